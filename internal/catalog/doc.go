// Package catalog keeps a persistent registry of saved snapshot
// archives: id, name, path, size and content checksum. It is backed by
// an embedded Badger store and is used by the CLI to track archives
// across runs, including a directory watcher that registers archives
// as they appear.
package catalog
