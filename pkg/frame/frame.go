package frame

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Common errors.
var (
	ErrNoColumns       = errors.New("frame: at least one column is required")
	ErrEmptyColumnName = errors.New("frame: empty column name")
	ErrDuplicateColumn = errors.New("frame: duplicate column name")
	ErrColumnNotFound  = errors.New("frame: column not found")
)

// Frame is a column-ordered table. Column order is fixed at construction
// and preserved through the CSV round trip.
type Frame struct {
	cols    []string
	colIdx  map[string]int
	rows    [][]any
}

// New creates a frame with the given column names.
func New(columns []string) (*Frame, error) {
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		if c == "" {
			return nil, ErrEmptyColumnName
		}
		if _, ok := idx[c]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c)
		}
		idx[c] = i
	}
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Frame{cols: cols, colIdx: idx}, nil
}

// AppendRow appends one row. The number of cells must match the number
// of columns. Supported cell types: string, bool, nil and the numeric
// kinds; anything else is stored via fmt.Sprint at write time.
func (f *Frame) AppendRow(cells ...any) error {
	if len(cells) != len(f.cols) {
		return fmt.Errorf("frame: row has %d cells, want %d", len(cells), len(f.cols))
	}
	row := make([]any, len(cells))
	copy(row, cells)
	f.rows = append(f.rows, row)
	return nil
}

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.cols))
	copy(out, f.cols)
	return out
}

// NumRows returns the number of rows.
func (f *Frame) NumRows() int { return len(f.rows) }

// NumColumns returns the number of columns.
func (f *Frame) NumColumns() int { return len(f.cols) }

// Cell returns the cell at (row, col) by position.
func (f *Frame) Cell(row, col int) any {
	return f.rows[row][col]
}

// At returns the cell at the given row for a named column.
func (f *Frame) At(row int, column string) (any, error) {
	i, ok := f.colIdx[column]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, column)
	}
	return f.rows[row][i], nil
}

// Column returns all cells of a named column, in row order.
func (f *Frame) Column(column string) ([]any, error) {
	i, ok := f.colIdx[column]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, column)
	}
	out := make([]any, len(f.rows))
	for r, row := range f.rows {
		out[r] = row[i]
	}
	return out, nil
}

// WriteCSV writes the frame as comma-delimited text with a header row.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.cols); err != nil {
		return fmt.Errorf("frame: write header: %w", err)
	}
	record := make([]string, len(f.cols))
	for _, row := range f.rows {
		for i, cell := range row {
			record[i] = formatCell(cell)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("frame: write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("frame: flush: %w", err)
	}
	return nil
}

// ReadCSV reads comma-delimited text with a header row into a frame.
// Cells are inferred as int64, then float64, then bool, then string.
func ReadCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("frame: missing header row")
		}
		return nil, fmt.Errorf("frame: read header: %w", err)
	}
	f, err := New(header)
	if err != nil {
		return nil, err
	}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("frame: read row: %w", err)
		}
		cells := make([]any, len(record))
		for i, s := range record {
			cells[i] = inferCell(s)
		}
		if err := f.AppendRow(cells...); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	default:
		return fmt.Sprint(x)
	}
}

func inferCell(s string) any {
	if s == "" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if x, err := strconv.ParseFloat(s, 64); err == nil {
		return x
	}
	if s == "true" || s == "false" {
		return s == "true"
	}
	return s
}
