// Package manifest defines the two snapshot manifest documents and
// their JSON (de)serialization.
//
// Every snapshot directory carries exactly two manifests: the simple
// manifest (the full attribute state as a JSON document, unencodable
// values downgraded to null) and the complex manifest (per-attribute
// entries recording filename, type tag, format tag and an optional
// content checksum). Both are mandatory structural components at build
// time; a missing manifest is a fatal error.
package manifest
