// Package extract reads individual snapshot components straight out
// of a .tar.gz archive, without extracting the archive to disk.
package extract
