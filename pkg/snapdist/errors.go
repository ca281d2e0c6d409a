package snapdist

import "errors"

// Engine errors.
var (
	// ErrNotBuilt is returned by reload operations before a successful
	// Build has loaded the manifests.
	ErrNotBuilt = errors.New("snapdist: no snapshot loaded, call Build first")
)
