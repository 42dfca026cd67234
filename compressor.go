package lumberjack

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jward/lumberjack/internal/tree"
	"github.com/jward/lumberjack/internal/vocab"
)

// DefaultTokenDelimiter joins the tokens of two merged nodes.
const DefaultTokenDelimiter = "_"

// Caller contract violations.
var (
	ErrNegativeBudget = errors.New("lumberjack: negative merge budget")
	ErrLabelCount     = errors.New("lumberjack: label count does not match root count")
	ErrNotRoot        = errors.New("lumberjack: tree root has a parent")
	ErrNotAForest     = errors.New("lumberjack: node reachable more than once")
	ErrParentMismatch = errors.New("lumberjack: child parent pointer is inconsistent")
	ErrConsumedNode   = errors.New("lumberjack: node was already merged away")
	ErrUnknownEdge    = errors.New("lumberjack: merge sequence references an unknown type")
)

// NodeFilter reports whether a node may take part in merges. It must give the
// same answer for a node every time it is asked.
type NodeFilter func(n *Node) bool

// Tree is one root of a forest with its opaque label (a file path, a method
// name, ...). The label follows the root through merges.
type Tree struct {
	Root  *Node
	Label string
}

// NewForest pairs roots with labels. A nil labels slice leaves every label
// empty.
func NewForest(roots []*Node, labels []string) ([]Tree, error) {
	if labels != nil && len(labels) != len(roots) {
		return nil, fmt.Errorf("%w: %d roots, %d labels", ErrLabelCount, len(roots), len(labels))
	}
	trees := make([]Tree, len(roots))
	for i, r := range roots {
		trees[i].Root = r
		if labels != nil {
			trees[i].Label = labels[i]
		}
	}
	return trees, nil
}

// MergeSequence is the ordered list of composite types chosen by Fit.
type MergeSequence []TypeID

// Step describes one iteration of the merge loop.
type Step struct {
	Edge   TypeID `json:"edge" yaml:"edge"`
	Label  string `json:"label" yaml:"label"`
	Count  int    `json:"count" yaml:"count"`
	Merged int    `json:"merged" yaml:"merged"`
}

// Stats summarizes a Fit or Transform call.
type Stats struct {
	Requested   int    `json:"requested" yaml:"requested"`
	NodesBefore int    `json:"nodes_before" yaml:"nodes_before"`
	NodesAfter  int    `json:"nodes_after" yaml:"nodes_after"`
	Steps       []Step `json:"steps" yaml:"steps"`
}

// Performed returns the number of iterations that ran.
func (s Stats) Performed() int {
	return len(s.Steps)
}

// Merged returns the total number of node pairs collapsed.
func (s Stats) Merged() int {
	total := 0
	for _, st := range s.Steps {
		total += st.Merged
	}
	return total
}

// Ratio returns NodesBefore / NodesAfter, or 0 for an empty forest.
func (s Stats) Ratio() float64 {
	if s.NodesAfter == 0 {
		return 0
	}
	return float64(s.NodesBefore) / float64(s.NodesAfter)
}

// Result is the output of Fit or Transform.
type Result struct {
	Trees    []Tree
	Sequence MergeSequence
	Stats    Stats
}

// Compressor runs Tree-BPE. It owns its vocabulary; a sequence produced by
// Fit can be replayed by Transform on the same Compressor, or on one built
// with WithVocabulary from a restored Artifact. A Compressor must not be used
// from more than one goroutine at a time.
type Compressor struct {
	vocab        *vocab.Vocabulary
	logger       *slog.Logger
	delimiter    string
	nonMergeable map[string]bool
	filter       NodeFilter
}

// Option configures a Compressor.
type Option func(*Compressor)

// WithLogger sets the logger used for per-iteration diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compressor) {
		c.logger = l
	}
}

// WithTokenDelimiter sets the string placed between fused tokens.
func WithTokenDelimiter(d string) Option {
	return func(c *Compressor) {
		c.delimiter = d
	}
}

// WithNonMergeable excludes nodes of the given types from every merge.
func WithNonMergeable(types ...string) Option {
	return func(c *Compressor) {
		if c.nonMergeable == nil {
			c.nonMergeable = make(map[string]bool, len(types))
		}
		for _, t := range types {
			c.nonMergeable[t] = true
		}
	}
}

// WithFilter adds a predicate both endpoints of an edge must pass.
func WithFilter(f NodeFilter) Option {
	return func(c *Compressor) {
		c.filter = f
	}
}

// WithVocabulary starts the Compressor from an existing vocabulary, typically
// one restored from an Artifact for Transform.
func WithVocabulary(v *Vocabulary) Option {
	return func(c *Compressor) {
		c.vocab = v
	}
}

// New creates a Compressor.
func New(opts ...Option) *Compressor {
	c := &Compressor{
		delimiter: DefaultTokenDelimiter,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.vocab == nil {
		c.vocab = vocab.New()
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// Vocabulary returns the interning tables of the last Fit, or the ones the
// Compressor was built with.
func (c *Compressor) Vocabulary() *Vocabulary {
	return c.vocab
}

// TokenDelimiter returns the configured token delimiter.
func (c *Compressor) TokenDelimiter() string {
	return c.delimiter
}

// Fit resets the vocabulary, then greedily merges the most frequent edge type
// up to budget times. Stopping early because nothing is left to merge is not
// an error. The input trees are consumed.
func (c *Compressor) Fit(trees []Tree, budget int) (*Result, error) {
	if budget < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeBudget, budget)
	}
	c.vocab = vocab.New()

	r, before, err := c.ingest(trees)
	if err != nil {
		return nil, err
	}

	c.logger.Info("fitting tree-bpe", "trees", len(trees), "nodes", before, "merges", budget)
	stats := Stats{Requested: budget, NodesBefore: before}
	var seq MergeSequence
	for iter := range budget {
		key, count, ok := r.ledger.max()
		if !ok {
			c.logger.Info("nothing left to merge", "iteration", iter)
			break
		}
		composite := c.vocab.Merge(key)
		seq = append(seq, composite)
		merged := r.mergeEdgeType(key, composite)

		label := c.vocab.Label(composite)
		c.logger.Debug("merged edge type", "iteration", iter, "edge", label, "count", count, "merged", merged)
		stats.Steps = append(stats.Steps, Step{Edge: composite, Label: label, Count: count, Merged: merged})
	}

	return c.finish(r, trees, seq, stats), nil
}

// Transform replays seq in order without consulting frequencies. Edge types
// absent from this forest are no-ops. The input trees are consumed.
func (c *Compressor) Transform(trees []Tree, seq MergeSequence) (*Result, error) {
	keys := make([]vocab.Pair, len(seq))
	for i, id := range seq {
		p, ok := c.vocab.Pair(id)
		if !ok {
			return nil, fmt.Errorf("%w: step %d id %d", ErrUnknownEdge, i, id)
		}
		keys[i] = p
	}

	r, before, err := c.ingest(trees)
	if err != nil {
		return nil, err
	}

	c.logger.Info("transforming with tree-bpe", "trees", len(trees), "nodes", before, "merges", len(seq))
	stats := Stats{Requested: len(seq), NodesBefore: before}
	for iter, key := range keys {
		count := r.ledger.count(key)
		merged := r.mergeEdgeType(key, seq[iter])

		label := c.vocab.Label(seq[iter])
		c.logger.Debug("replayed edge type", "iteration", iter, "edge", label, "count", count, "merged", merged)
		stats.Steps = append(stats.Steps, Step{Edge: seq[iter], Label: label, Count: count, Merged: merged})
	}

	return c.finish(r, trees, append(MergeSequence(nil), seq...), stats), nil
}

func (c *Compressor) finish(r *run, in []Tree, seq MergeSequence, stats Stats) *Result {
	out := make([]Tree, len(r.roots))
	for i, root := range r.roots {
		out[i] = Tree{Root: root, Label: in[i].Label}
		stats.NodesAfter += root.Size()
	}
	c.logger.Info("compressed forest",
		"steps", stats.Performed(),
		"merged", stats.Merged(),
		"nodes_before", stats.NodesBefore,
		"nodes_after", stats.NodesAfter,
	)
	return &Result{Trees: out, Sequence: seq, Stats: stats}
}

// ingest validates the forest, interns types and tokens, and registers every
// parent with a fresh ledger. It returns the run and the node count.
func (c *Compressor) ingest(trees []Tree) (*run, int, error) {
	r := &run{
		vocab:     c.vocab,
		delimiter: c.delimiter,
		roots:     make([]*tree.Node, len(trees)),
		rootIndex: make(map[*tree.Node]int, len(trees)),
	}
	r.ledger = newLedger(c.eligible, c.vocab.PairLabel)

	var nodes []*tree.Node
	seen := make(map[*tree.Node]bool)
	for i, t := range trees {
		if t.Root == nil {
			return nil, 0, fmt.Errorf("%w: tree %d has no root", ErrNotAForest, i)
		}
		if t.Root.Parent() != nil {
			return nil, 0, fmt.Errorf("%w: tree %d (%s)", ErrNotRoot, i, t.Root.Type)
		}
		r.roots[i] = t.Root
		r.rootIndex[t.Root] = i

		stack := []*tree.Node{t.Root}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if seen[n] {
				return nil, 0, fmt.Errorf("%w: %s in tree %d", ErrNotAForest, n.Type, i)
			}
			if n.Consumed() {
				return nil, 0, fmt.Errorf("%w: %s in tree %d", ErrConsumedNode, n.Type, i)
			}
			seen[n] = true
			nodes = append(nodes, n)

			n.SetTypeID(c.vocab.Type(n.Type))
			if n.Token != "" {
				c.vocab.Token(n.Token)
			}
			n.SetMergeable(!c.nonMergeable[n.Type])

			children := n.Children()
			for j := len(children) - 1; j >= 0; j-- {
				ch := children[j]
				if ch.Parent() != n {
					return nil, 0, fmt.Errorf("%w: %s under %s in tree %d", ErrParentMismatch, ch.Type, n.Type, i)
				}
				stack = append(stack, ch)
			}
		}
	}

	for _, n := range nodes {
		r.ledger.addParent(n)
	}
	return r, len(nodes), nil
}

func (c *Compressor) eligible(n *tree.Node) bool {
	if !n.Mergeable() {
		return false
	}
	return c.filter == nil || c.filter(n)
}
