// Package codec maps complex-attribute type tags to encode/decode pairs.
//
// The registry is open for extension: callers can register additional
// codecs for their own value types. Built-in tags are "array" (dense
// 1-D numeric array, flat comma-delimited text) and "table" (tabular
// frame, comma-delimited text with a header row).
package codec
