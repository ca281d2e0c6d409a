package codec

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Array type/format tags.
const (
	TagArray    = "array"
	FormatCSV   = "csv"
	extArrayCSV = ".csv"
)

// ArrayCodec encodes dense 1-D numeric arrays as a flat comma-delimited
// sequence. Shape is not preserved; multi-dimensional arrays are out of
// scope. All element types decode back as []float64 (text-precision
// trade-off).
type ArrayCodec struct{}

func (ArrayCodec) Tag() string    { return TagArray }
func (ArrayCodec) Format() string { return FormatCSV }
func (ArrayCodec) Ext() string    { return extArrayCSV }

func (ArrayCodec) Handles(v any) bool {
	switch v.(type) {
	case []float64, []float32, []int, []int64:
		return true
	}
	return false
}

func (ArrayCodec) Encode(v any, w io.Writer) error {
	vals, err := toFloat64s(v)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	for i, x := range vals {
		if i > 0 {
			if err := bw.WriteByte(','); err != nil {
				return fmt.Errorf("codec: array: write: %w", err)
			}
		}
		if _, err := bw.WriteString(strconv.FormatFloat(x, 'g', -1, 64)); err != nil {
			return fmt.Errorf("codec: array: write: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("codec: array: flush: %w", err)
	}
	return nil
}

func (ArrayCodec) Decode(r io.Reader) (any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("codec: array: read: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return []float64{}, nil
	}
	fields := strings.Split(text, ",")
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		x, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("codec: array: parse %q: %w", f, err)
		}
		out = append(out, x)
	}
	return out, nil
}

func toFloat64s(v any) ([]float64, error) {
	switch a := v.(type) {
	case []float64:
		return a, nil
	case []float32:
		out := make([]float64, len(a))
		for i, x := range a {
			out[i] = float64(x)
		}
		return out, nil
	case []int:
		out := make([]float64, len(a))
		for i, x := range a {
			out[i] = float64(x)
		}
		return out, nil
	case []int64:
		out := make([]float64, len(a))
		for i, x := range a {
			out[i] = float64(x)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("codec: array: unsupported value type %T", v)
	}
}
