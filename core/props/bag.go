package props

// Bag is a resolved, ordered prop map: name to raw value or Marker.
// It is created fresh per request, filled provider-first then
// explicit-props, and handed to the transport for serialization.
type Bag struct {
	names  []string
	values map[string]any
}

// NewBag creates an empty bag.
func NewBag() *Bag {
	return &Bag{values: make(map[string]any)}
}

// Set stores value under name. A new name is appended; an existing name
// keeps its position and has its value replaced.
func (b *Bag) Set(name string, value any) {
	if _, ok := b.values[name]; !ok {
		b.names = append(b.names, name)
	}
	b.values[name] = value
}

// Get returns the value stored under name.
func (b *Bag) Get(name string) (any, bool) {
	v, ok := b.values[name]
	return v, ok
}

// Names returns prop names in insertion order.
func (b *Bag) Names() []string {
	out := make([]string, len(b.names))
	copy(out, b.names)
	return out
}

// Len returns the number of props in the bag.
func (b *Bag) Len() int {
	return len(b.names)
}

// Each calls fn for every prop in insertion order, stopping on the first
// error.
func (b *Bag) Each(fn func(name string, value any) error) error {
	for _, name := range b.names {
		if err := fn(name, b.values[name]); err != nil {
			return err
		}
	}
	return nil
}
