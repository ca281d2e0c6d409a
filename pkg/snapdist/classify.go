package snapdist

import (
	"github.com/yndnr/snapdist-go/pkg/snapdist/codec"
)

// Kind partitions attribute values into the two persistence paths.
type Kind int

const (
	// KindSimple values are stored literally in the simple manifest.
	KindSimple Kind = iota
	// KindComplex values are encoded to a dedicated file by a codec.
	KindComplex
)

func (k Kind) String() string {
	if k == KindComplex {
		return "complex"
	}
	return "simple"
}

// Classification is an attribute's assigned persistence path. TypeTag
// is set only for complex values.
type Classification struct {
	Kind    Kind
	TypeTag string
}

// Classify assigns a value to a persistence path. Classification is
// total: a value a registered codec handles is Complex with that
// codec's tag; everything else, including nil, is Simple.
func Classify(reg *codec.Registry, v any) Classification {
	if v == nil {
		return Classification{Kind: KindSimple}
	}
	if c, ok := reg.Match(v); ok {
		return Classification{Kind: KindComplex, TypeTag: c.Tag()}
	}
	return Classification{Kind: KindSimple}
}
