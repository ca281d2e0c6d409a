package snapdist

// DefaultName is used when a bag is created with an empty name.
const DefaultName = "snapshot"

// Bag is the host object's attribute state: an ordered mapping from
// attribute name to value. The engine reads it on save and writes into
// it on reload. Not safe for concurrent use; callers serialize access.
type Bag struct {
	name  string
	names []string
	attrs map[string]any
}

// New creates an empty bag. The name is the default stem for the
// snapshot directory ("<name>/") and archive ("<name>.tar.gz").
func New(name string) *Bag {
	if name == "" {
		name = DefaultName
	}
	return &Bag{
		name:  name,
		attrs: make(map[string]any),
	}
}

// Name returns the bag's name.
func (b *Bag) Name() string { return b.name }

// Set stores an attribute value. A new name is appended to the
// iteration order; setting an existing name keeps its position.
func (b *Bag) Set(name string, v any) {
	if _, ok := b.attrs[name]; !ok {
		b.names = append(b.names, name)
	}
	b.attrs[name] = v
}

// Get returns an attribute value and whether it is present.
func (b *Bag) Get(name string) (any, bool) {
	v, ok := b.attrs[name]
	return v, ok
}

// Delete removes an attribute.
func (b *Bag) Delete(name string) {
	if _, ok := b.attrs[name]; !ok {
		return
	}
	delete(b.attrs, name)
	for i, n := range b.names {
		if n == name {
			b.names = append(b.names[:i], b.names[i+1:]...)
			break
		}
	}
}

// Names returns the attribute names in insertion order.
func (b *Bag) Names() []string {
	out := make([]string, len(b.names))
	copy(out, b.names)
	return out
}

// Len returns the number of attributes.
func (b *Bag) Len() int { return len(b.attrs) }
