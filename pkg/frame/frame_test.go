package frame

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		wantErr error
	}{
		{"no columns", nil, ErrNoColumns},
		{"empty name", []string{"a", ""}, ErrEmptyColumnName},
		{"duplicate", []string{"a", "a"}, ErrDuplicateColumn},
		{"ok", []string{"a", "b"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.columns)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("New(%v) error = %v, want %v", tt.columns, err, tt.wantErr)
			}
		})
	}
}

func TestAppendRowArity(t *testing.T) {
	f, err := New([]string{"a", "b"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := f.AppendRow(1.0); err == nil {
		t.Fatal("AppendRow with wrong arity should fail")
	}
	if err := f.AppendRow(1.0, 2.0); err != nil {
		t.Fatalf("AppendRow: %v", err)
	}
	if f.NumRows() != 1 {
		t.Fatalf("NumRows = %d, want 1", f.NumRows())
	}
}

func TestCSVRoundTrip(t *testing.T) {
	f, err := New([]string{"Pi", "e", "label"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := f.AppendRow(3.1415, 2.7182, "row one"); err != nil {
		t.Fatalf("AppendRow: %v", err)
	}
	if err := f.AppendRow(6.283, 7.389, "row two"); err != nil {
		t.Fatalf("AppendRow: %v", err)
	}

	var buf bytes.Buffer
	if err := f.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	got, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if want := []string{"Pi", "e", "label"}; strings.Join(got.Columns(), ",") != strings.Join(want, ",") {
		t.Fatalf("Columns = %v, want %v", got.Columns(), want)
	}
	if got.NumRows() != 2 {
		t.Fatalf("NumRows = %d, want 2", got.NumRows())
	}
	pi, err := got.At(0, "Pi")
	if err != nil {
		t.Fatalf("At: %v", err)
	}
	if math.Abs(pi.(float64)-3.1415) > 1e-9 {
		t.Fatalf("Pi = %v, want 3.1415", pi)
	}
	label, err := got.At(1, "label")
	if err != nil {
		t.Fatalf("At: %v", err)
	}
	if label != "row two" {
		t.Fatalf("label = %v, want %q", label, "row two")
	}
}

func TestCellInference(t *testing.T) {
	in := "n,x,b,s\n42,1.5,true,hello\n"
	f, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if v := f.Cell(0, 0); v != int64(42) {
		t.Fatalf("int cell = %#v, want int64(42)", v)
	}
	if v := f.Cell(0, 1); v != 1.5 {
		t.Fatalf("float cell = %#v, want 1.5", v)
	}
	if v := f.Cell(0, 2); v != true {
		t.Fatalf("bool cell = %#v, want true", v)
	}
	if v := f.Cell(0, 3); v != "hello" {
		t.Fatalf("string cell = %#v, want hello", v)
	}
}

func TestColumnLookup(t *testing.T) {
	f, err := New([]string{"a"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := f.AppendRow(1.0); err != nil {
		t.Fatalf("AppendRow: %v", err)
	}
	if _, err := f.Column("missing"); !errors.Is(err, ErrColumnNotFound) {
		t.Fatalf("Column(missing) error = %v, want ErrColumnNotFound", err)
	}
	col, err := f.Column("a")
	if err != nil {
		t.Fatalf("Column: %v", err)
	}
	if len(col) != 1 || col[0] != 1.0 {
		t.Fatalf("Column(a) = %v", col)
	}
}
