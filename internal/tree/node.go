// Package tree provides the mutable, ordered, labeled tree shared by the
// whole compression pipeline. Each node is owned by exactly one parent, or by
// the forest when it is a root.
package tree

import (
	"fmt"
	"io"
	"strings"

	"github.com/jward/lumberjack/internal/vocab"
)

// DefaultIndent is the indentation unit used by String.
const DefaultIndent = "| "

// Node is one syntax-tree element.
type Node struct {
	// Type is the semantic category, e.g. a grammar production name. For
	// merged nodes it is the decoded composite label.
	Type string
	// Token is the literal text, possibly empty.
	Token string

	children []*Node
	parent   *Node

	// Run state, owned by the compressor.
	typeID      vocab.TypeID
	unmergeable bool
	consumed    bool
}

// New creates a node and, when parent is non-nil, appends it to parent's
// children.
func New(token, nodeType string, parent *Node) *Node {
	n := &Node{Type: nodeType, Token: token}
	if parent != nil {
		parent.AddChild(n)
	}
	return n
}

// Parent returns the owning node, or nil for a root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns the ordered child list. Callers must not modify it.
func (n *Node) Children() []*Node {
	return n.children
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool {
	return len(n.children) == 0
}

// AddChild appends c and makes n its parent, detaching c from any previous
// parent first. Adding an existing child moves it to the end.
func (n *Node) AddChild(c *Node) {
	if c.parent != nil {
		c.parent.RemoveChild(c)
	}
	n.children = append(n.children, c)
	c.parent = n
}

// AddChildren appends every node in cs, in order.
func (n *Node) AddChildren(cs []*Node) {
	for _, c := range cs {
		n.AddChild(c)
	}
}

// RemoveChild detaches c from n. It reports false if c is not a child of n.
func (n *Node) RemoveChild(c *Node) bool {
	for i, ch := range n.children {
		if ch == c {
			n.children = append(n.children[:i], n.children[i+1:]...)
			c.parent = nil
			return true
		}
	}
	return false
}

// ReplaceChild puts repl at the position of old. old is detached.
func (n *Node) ReplaceChild(old, repl *Node) bool {
	for i, ch := range n.children {
		if ch != old {
			continue
		}
		if repl.parent != nil && repl.parent != n {
			repl.parent.RemoveChild(repl)
		}
		n.children[i] = repl
		repl.parent = n
		old.parent = nil
		return true
	}
	return false
}

// TakeChildren detaches and returns all of n's children.
func (n *Node) TakeChildren() []*Node {
	cs := n.children
	n.children = nil
	for _, c := range cs {
		c.parent = nil
	}
	return cs
}

// Release drops n's child references without touching the children. It is
// used on discarded nodes whose children were adopted elsewhere.
func (n *Node) Release() {
	n.children = nil
	n.parent = nil
}

// Mergeable reports whether n may take part in a merge.
func (n *Node) Mergeable() bool {
	return !n.unmergeable
}

// SetMergeable marks n as eligible or permanently excluded.
func (n *Node) SetMergeable(ok bool) {
	n.unmergeable = !ok
}

// Consumed reports whether n was merged away during the current pass.
func (n *Node) Consumed() bool {
	return n.consumed
}

// MarkConsumed flags n as merged.
func (n *Node) MarkConsumed() {
	n.consumed = true
}

// TypeID returns the interned identity of n's type.
func (n *Node) TypeID() vocab.TypeID {
	return n.typeID
}

// SetTypeID records the interned identity of n's type.
func (n *Node) SetTypeID(id vocab.TypeID) {
	n.typeID = id
}

// Walk visits n and its descendants in depth-first pre-order. Returning false
// from fn skips the node's subtree.
func (n *Node) Walk(fn func(*Node) bool) {
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(cur) {
			continue
		}
		for i := len(cur.children) - 1; i >= 0; i-- {
			stack = append(stack, cur.children[i])
		}
	}
}

// Size returns the number of nodes in the subtree rooted at n.
func (n *Node) Size() int {
	size := 0
	n.Walk(func(*Node) bool {
		size++
		return true
	})
	return size
}

// PrettyPrint writes the subtree depth-first, one node per line, prefixed by
// indent repeated once per level.
func (n *Node) PrettyPrint(w io.Writer, indent string) error {
	type frame struct {
		node  *Node
		depth int
	}
	stack := []frame{{n, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		line := strings.Repeat(indent, f.depth) + f.node.Type
		if f.node.Token != "" {
			line += " : " + f.node.Token
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
		for i := len(f.node.children) - 1; i >= 0; i-- {
			stack = append(stack, frame{f.node.children[i], f.depth + 1})
		}
	}
	return nil
}

func (n *Node) String() string {
	var b strings.Builder
	_ = n.PrettyPrint(&b, DefaultIndent)
	return b.String()
}
