// Package frame provides a small column-ordered tabular data structure
// with a delimited-text (CSV) round trip.
//
// A Frame is the "table" value a snapshot can carry: named columns in a
// fixed order, rows of typed cells. Cells are written as text and read
// back with int64 -> float64 -> string inference, so numeric tables
// round-trip within text precision.
package frame
