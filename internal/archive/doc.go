// Package archive packs a snapshot directory into a gzip-compressed
// tar archive and reverses this.
//
// The archive's single top-level entry is the source directory's base
// name, so extracting reproduces the original relative layout. An
// archive may optionally be wrapped in an authenticated encryption
// envelope (argon2id passphrase KDF + ChaCha20-Poly1305); encrypted
// archives are detected by a magic prefix.
package archive
