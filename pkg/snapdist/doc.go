// Package snapdist snapshots the attribute state of an in-memory
// object into a portable, self-contained tar.gz archive and restores
// that state into a fresh object, without per-field serialization code.
//
// Attributes live in a Bag, an explicit ordered name -> value mapping.
// On save, each attribute is classified as simple (JSON-representable)
// or complex (a value a registered codec handles, such as a numeric
// array or a tabular frame). Simple attributes land in
// simple_attributes.json; complex attributes are encoded to one file
// each and described by complex_attributes.json. The archive's single
// top-level entry is the snapshot directory, so extraction is
// self-contained.
//
//	bag := snapdist.New("simpsons")
//	bag.Set("years", []any{2020.0, 2019.0})
//	bag.Set("bart", make([]float64, 10))
//	eng := snapdist.NewEngine(bag)
//	if err := eng.Save("", ""); err != nil { ... }
//
//	fresh := snapdist.New("simpsons")
//	eng2 := snapdist.NewEngine(fresh)
//	if err := eng2.Build("", "", true); err != nil { ... }
//
// Restores are best-effort: an unrecognized type tag or a missing name
// in a single-attribute reload is a warning, never a fatal error. Only
// a missing manifest aborts a build.
package snapdist
