// Package vocab interns the strings and type compositions that appear while
// compressing syntax trees. Identifiers are assigned once, in first-seen
// order, so a merge sequence recorded as identifiers stays valid for replay.
package vocab

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSnapshot is returned by Restore when a persisted table is
// inconsistent.
var ErrInvalidSnapshot = errors.New("vocab: invalid snapshot")

// TypeID identifies a node type. Base labels have non-negative ids. Composite
// types produced by merging two types have negative ids, so both live in one
// identity space and a composite can merge again like any other type.
type TypeID int32

// compositeID returns the TypeID for the pair table entry at index.
func compositeID(index int) TypeID {
	return TypeID(-index - 1)
}

// IsComposite reports whether t was produced by a merge.
func (t TypeID) IsComposite() bool {
	return t < 0
}

// Index returns the position of t within its table.
func (t TypeID) Index() int {
	if t < 0 {
		return int(-t - 1)
	}
	return int(t)
}

// Pair is an edge type: the types of a parent and one of its children.
type Pair struct {
	Parent TypeID
	Child  TypeID
}

// Less orders pairs by parent id, then child id.
func (p Pair) Less(o Pair) bool {
	if p.Parent != o.Parent {
		return p.Parent < o.Parent
	}
	return p.Child < o.Child
}

// Vocabulary holds the token, base label and type-pair tables of one
// compression model.
type Vocabulary struct {
	tokens *Table[string]
	labels *Table[string]
	pairs  *Table[Pair]

	decoded map[TypeID]string
}

// New creates an empty Vocabulary.
func New() *Vocabulary {
	return &Vocabulary{
		tokens:  NewTable[string](),
		labels:  NewTable[string](),
		pairs:   NewTable[Pair](),
		decoded: make(map[TypeID]string),
	}
}

// Restore rebuilds a Vocabulary from persisted label and pair tables. Every
// pair may only reference labels or earlier pairs.
func Restore(labels []string, pairs []Pair) (*Vocabulary, error) {
	v := New()
	for i, l := range labels {
		if id := v.labels.Record(l); id != i {
			return nil, fmt.Errorf("%w: duplicate label %q", ErrInvalidSnapshot, l)
		}
	}
	for i, p := range pairs {
		for _, part := range []TypeID{p.Parent, p.Child} {
			if !v.known(part) {
				return nil, fmt.Errorf("%w: pair %d references unknown type %d", ErrInvalidSnapshot, i, part)
			}
		}
		if id := v.pairs.Record(p); id != i {
			return nil, fmt.Errorf("%w: duplicate pair %d", ErrInvalidSnapshot, i)
		}
	}
	return v, nil
}

func (v *Vocabulary) known(t TypeID) bool {
	if t.IsComposite() {
		return t.Index() < v.pairs.Len()
	}
	return t.Index() < v.labels.Len()
}

// Token interns a token string.
func (v *Vocabulary) Token(s string) int {
	return v.tokens.Record(s)
}

// TokenCount returns the number of distinct tokens seen.
func (v *Vocabulary) TokenCount() int {
	return v.tokens.Len()
}

// Type interns a base type label.
func (v *Vocabulary) Type(label string) TypeID {
	return TypeID(v.labels.Record(label))
}

// Merge interns the composite type formed by merging p.Child into p.Parent.
func (v *Vocabulary) Merge(p Pair) TypeID {
	return compositeID(v.pairs.Record(p))
}

// Composite returns the composite id for p if it has been merged before.
func (v *Vocabulary) Composite(p Pair) (TypeID, bool) {
	idx, ok := v.pairs.ID(p)
	if !ok {
		return 0, false
	}
	return compositeID(idx), true
}

// Pair returns the constituents of a composite type.
func (v *Vocabulary) Pair(t TypeID) (Pair, bool) {
	if !t.IsComposite() {
		return Pair{}, false
	}
	return v.pairs.Lookup(t.Index())
}

// Label decodes t into a readable label. A composite decodes to
// "Parent (Child)" with both sides decoded recursively. Unknown ids decode to
// the empty string.
func (v *Vocabulary) Label(t TypeID) string {
	if s, ok := v.decoded[t]; ok {
		return s
	}
	var s string
	if t.IsComposite() {
		p, ok := v.pairs.Lookup(t.Index())
		if !ok {
			return ""
		}
		s = v.PairLabel(p)
	} else {
		l, ok := v.labels.Lookup(t.Index())
		if !ok {
			return ""
		}
		s = l
	}
	v.decoded[t] = s
	return s
}

// PairLabel returns the label the composite of p has or would have.
func (v *Vocabulary) PairLabel(p Pair) string {
	parent, child := v.Label(p.Parent), v.Label(p.Child)
	var b strings.Builder
	b.Grow(len(parent) + len(child) + 3)
	b.WriteString(parent)
	b.WriteString(" (")
	b.WriteString(child)
	b.WriteByte(')')
	return b.String()
}

// Labels returns the base label table in id order.
func (v *Vocabulary) Labels() []string {
	return v.labels.Keys()
}

// Pairs returns the pair table in index order.
func (v *Vocabulary) Pairs() []Pair {
	return v.pairs.Keys()
}
