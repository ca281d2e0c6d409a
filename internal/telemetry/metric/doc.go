// Package metric provides Prometheus metrics for snapdist.
//
// It exposes counters for save/build/reload operations and for the
// recoverable failure modes (dispatch misses, lookup misses, encoding
// downgrades, checksum mismatches), plus a gauge for catalog size.
package metric
