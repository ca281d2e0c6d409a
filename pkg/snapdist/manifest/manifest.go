package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Manifest document filenames inside a snapshot directory.
const (
	SimpleFile  = "simple_attributes.json"
	ComplexFile = "complex_attributes.json"
)

// Structural errors. Both are fatal at build time.
var (
	ErrSimpleMissing  = errors.New("manifest: simple manifest missing")
	ErrComplexMissing = errors.New("manifest: complex manifest missing")
)

// reserved are attribute keys that historical writers leaked into the
// simple manifest. They are never applied on reload.
var reserved = map[string]struct{}{
	"_simple_attributes":  {},
	"_complex_attributes": {},
}

// Reserved reports whether a simple-manifest key must be skipped on reload.
func Reserved(name string) bool {
	_, ok := reserved[name]
	return ok
}

// Entry describes one encoded complex attribute.
type Entry struct {
	// Filename is the encoded file's name, relative to the snapshot
	// directory. Unique within a snapshot.
	Filename string `json:"filename"`

	// TypeTag selects the codec used to decode the file.
	TypeTag string `json:"type_tag"`

	// FormatTag names the on-disk encoding (e.g. "csv").
	FormatTag string `json:"format_tag"`

	// Checksum is an optional murmur3-64 hex checksum of the encoded
	// file. Empty in archives written before checksums existed.
	Checksum string `json:"checksum,omitempty"`
}

// Complex maps attribute names to their encoded-file entries.
// Fully replaced on every save; never merged.
type Complex map[string]Entry

// Names returns the attribute names in sorted order, for deterministic
// iteration.
func (m Complex) Names() []string {
	out := make([]string, 0, len(m))
	for name := range m {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Simple is the full attribute state as a JSON-literal document.
// Unencodable values appear as null.
type Simple map[string]any

// Names returns the attribute names in sorted order.
func (m Simple) Names() []string {
	out := make([]string, 0, len(m))
	for name := range m {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// WriteComplex writes the complex manifest document into dir.
func WriteComplex(dir string, m Complex) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: marshal complex: %w", err)
	}
	path := filepath.Join(dir, ComplexFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("manifest: write %s: %w", path, err)
	}
	return nil
}

// ReadComplex reads the complex manifest document from dir.
// A missing file is a structural failure wrapping ErrComplexMissing.
func ReadComplex(dir string) (Complex, error) {
	path := filepath.Join(dir, ComplexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrComplexMissing, path)
		}
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}
	var m Complex
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: unmarshal complex: %w", err)
	}
	if m == nil {
		m = Complex{}
	}
	return m, nil
}

// WriteSimple writes the simple manifest document into dir.
// The document must already be JSON-encodable; the caller downgrades
// unencodable values to null before calling.
func WriteSimple(dir string, m Simple) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: marshal simple: %w", err)
	}
	path := filepath.Join(dir, SimpleFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("manifest: write %s: %w", path, err)
	}
	return nil
}

// ReadSimple reads the simple manifest document from dir.
// A missing file is a structural failure wrapping ErrSimpleMissing.
func ReadSimple(dir string) (Simple, error) {
	path := filepath.Join(dir, SimpleFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSimpleMissing, path)
		}
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}
	var m Simple
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: unmarshal simple: %w", err)
	}
	if m == nil {
		m = Simple{}
	}
	return m, nil
}

// DecodeComplex parses a complex manifest document from raw bytes.
// Used when reading manifests straight out of an archive.
func DecodeComplex(data []byte) (Complex, error) {
	var m Complex
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: unmarshal complex: %w", err)
	}
	if m == nil {
		m = Complex{}
	}
	return m, nil
}

// DecodeSimple parses a simple manifest document from raw bytes.
func DecodeSimple(data []byte) (Simple, error) {
	var m Simple
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: unmarshal simple: %w", err)
	}
	if m == nil {
		m = Simple{}
	}
	return m, nil
}
