package vocab

// Table assigns sequential integer ids to distinct keys in first-seen order.
// Ids are never reused or renumbered.
type Table[K comparable] struct {
	ids  map[K]int
	keys []K
}

// NewTable creates an empty Table.
func NewTable[K comparable]() *Table[K] {
	return &Table[K]{ids: make(map[K]int)}
}

// Record returns the id of k, allocating the next id if k is new.
func (t *Table[K]) Record(k K) int {
	if id, ok := t.ids[k]; ok {
		return id
	}
	id := len(t.keys)
	t.ids[k] = id
	t.keys = append(t.keys, k)
	return id
}

// ID returns the id of k without recording it.
func (t *Table[K]) ID(k K) (int, bool) {
	id, ok := t.ids[k]
	return id, ok
}

// Lookup returns the key recorded under id.
func (t *Table[K]) Lookup(id int) (K, bool) {
	if id < 0 || id >= len(t.keys) {
		var zero K
		return zero, false
	}
	return t.keys[id], true
}

// Len returns the number of recorded keys.
func (t *Table[K]) Len() int {
	return len(t.keys)
}

// Keys returns a copy of all keys in id order.
func (t *Table[K]) Keys() []K {
	out := make([]K, len(t.keys))
	copy(out, t.keys)
	return out
}
