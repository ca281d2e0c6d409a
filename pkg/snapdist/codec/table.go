package codec

import (
	"fmt"
	"io"

	"github.com/yndnr/snapdist-go/pkg/frame"
)

// Table type tag.
const (
	TagTable    = "table"
	extTableCSV = ".csv"
)

// TableCodec encodes tabular frames as comma-delimited text with a
// header row of column names, columns in their existing order.
type TableCodec struct{}

func (TableCodec) Tag() string    { return TagTable }
func (TableCodec) Format() string { return FormatCSV }
func (TableCodec) Ext() string    { return extTableCSV }

func (TableCodec) Handles(v any) bool {
	_, ok := v.(*frame.Frame)
	return ok
}

func (TableCodec) Encode(v any, w io.Writer) error {
	f, ok := v.(*frame.Frame)
	if !ok {
		return fmt.Errorf("codec: table: unsupported value type %T", v)
	}
	return f.WriteCSV(w)
}

func (TableCodec) Decode(r io.Reader) (any, error) {
	return frame.ReadCSV(r)
}
