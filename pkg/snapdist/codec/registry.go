package codec

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spaolacci/murmur3"
)

// Common errors.
var (
	ErrUnknownTag   = errors.New("codec: unknown type tag")
	ErrDuplicateTag = errors.New("codec: type tag already registered")
)

// Codec is a paired encode/decode function for one complex type tag.
type Codec interface {
	// Tag is the type tag recorded in the complex manifest.
	Tag() string

	// Format is the format tag recorded in the complex manifest.
	Format() string

	// Ext is the filename extension for encoded files, including the dot.
	Ext() string

	// Handles reports whether this codec can encode the given value.
	Handles(v any) bool

	// Encode writes the value's delimited-text representation.
	Encode(v any, w io.Writer) error

	// Decode reads the representation back into the typed value.
	Decode(r io.Reader) (any, error)
}

// Registry maps type tags to codecs. Registration order determines
// classification order when several codecs could handle a value.
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]Codec
	order  []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]Codec)}
}

// Default returns a registry with the built-in array and table codecs.
func Default() *Registry {
	r := NewRegistry()
	// Registration cannot fail on an empty registry.
	_ = r.Register(ArrayCodec{})
	_ = r.Register(TableCodec{})
	return r
}

// Register adds a codec. The tag must not already be registered.
func (r *Registry) Register(c Codec) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tag := c.Tag()
	if tag == "" {
		return fmt.Errorf("codec: empty type tag")
	}
	if _, ok := r.codecs[tag]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateTag, tag)
	}
	r.codecs[tag] = c
	r.order = append(r.order, tag)
	return nil
}

// Lookup returns the codec for a type tag.
func (r *Registry) Lookup(tag string) (Codec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.codecs[tag]
	return c, ok
}

// Match returns the first registered codec that handles the value.
func (r *Registry) Match(v any) (Codec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, tag := range r.order {
		if c := r.codecs[tag]; c.Handles(v) {
			return c, true
		}
	}
	return nil, false
}

// Tags returns the registered type tags in registration order.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Checksum returns the murmur3-64 hex checksum of the given bytes.
// Recorded in manifest entries and verified, best-effort, on decode.
func Checksum(data []byte) string {
	return fmt.Sprintf("%016x", murmur3.Sum64(data))
}

// ChecksumFile returns the murmur3-64 hex checksum of a file's contents.
func ChecksumFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("codec: checksum %s: %w", path, err)
	}
	return Checksum(data), nil
}
