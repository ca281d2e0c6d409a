// Package command provides CLI command definitions for snapdist.
//
// Commands operate on snapshot archives produced by pkg/snapdist:
// inspect and peek read manifests and attributes straight from an
// archive, pack/unpack/verify work on the archive container, and
// catalog manages the local registry of saved archives.
package command
