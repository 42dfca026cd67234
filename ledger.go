package lumberjack

import (
	"container/heap"

	"github.com/jward/lumberjack/internal/tree"
	"github.com/jward/lumberjack/internal/vocab"
)

// edge is one queued (parent, child) instance of an edge type.
type edge struct {
	parent *tree.Node
	child  *tree.Node
}

// ledgerEntry tracks one edge type: the number of live parents with at least
// one eligible child of that type, and every instance queued for the next
// merge sweep.
type ledgerEntry struct {
	key   vocab.Pair
	label string
	count int
	edges []edge

	index int // position in the heap, -1 when absent
}

// ledger maintains edge-type frequencies incrementally. State changes only
// through addParent and removeParent; it never rescans the forest.
type ledger struct {
	entries  map[vocab.Pair]*ledgerEntry
	heap     entryHeap
	eligible func(*tree.Node) bool
	label    func(vocab.Pair) string
}

func newLedger(eligible func(*tree.Node) bool, label func(vocab.Pair) string) *ledger {
	return &ledger{
		entries:  make(map[vocab.Pair]*ledgerEntry),
		eligible: eligible,
		label:    label,
	}
}

// groups returns the eligible children of n grouped by edge type, in order of
// first appearance.
func (l *ledger) groups(n *tree.Node) ([]vocab.Pair, map[vocab.Pair][]*tree.Node) {
	if !l.eligible(n) {
		return nil, nil
	}
	var (
		order  []vocab.Pair
		byType map[vocab.Pair][]*tree.Node
	)
	for _, c := range n.Children() {
		if !l.eligible(c) {
			continue
		}
		key := vocab.Pair{Parent: n.TypeID(), Child: c.TypeID()}
		if byType == nil {
			byType = make(map[vocab.Pair][]*tree.Node)
		}
		if _, seen := byType[key]; !seen {
			order = append(order, key)
		}
		byType[key] = append(byType[key], c)
	}
	return order, byType
}

// addParent registers n as a parent. Each edge type among n's eligible
// children counts once, however many children share it, while every child is
// queued as an instance.
func (l *ledger) addParent(n *tree.Node) {
	order, byType := l.groups(n)
	for _, key := range order {
		e := l.entries[key]
		if e == nil {
			e = &ledgerEntry{key: key, label: l.label(key), index: -1}
			l.entries[key] = e
		}
		for _, c := range byType[key] {
			e.edges = append(e.edges, edge{parent: n, child: c})
		}
		e.count++
		if e.index < 0 {
			heap.Push(&l.heap, e)
		} else {
			heap.Fix(&l.heap, e.index)
		}
	}
}

// removeParent reverses addParent for n's current children.
func (l *ledger) removeParent(n *tree.Node) {
	order, _ := l.groups(n)
	for _, key := range order {
		e := l.entries[key]
		if e == nil {
			continue
		}
		e.count--
		if e.count > 0 {
			heap.Fix(&l.heap, e.index)
			continue
		}
		// No live parent realizes this type; queued instances are stale.
		if e.index >= 0 {
			heap.Remove(&l.heap, e.index)
		}
		delete(l.entries, key)
	}
}

// max returns the most frequent edge type.
func (l *ledger) max() (vocab.Pair, int, bool) {
	if len(l.heap) == 0 {
		return vocab.Pair{}, 0, false
	}
	top := l.heap[0]
	return top.key, top.count, true
}

// count returns the current frequency of key.
func (l *ledger) count(key vocab.Pair) int {
	if e := l.entries[key]; e != nil {
		return e.count
	}
	return 0
}

// take detaches the queued instances of key. The count is left alone: it is
// kept exact by the removeParent and addParent calls the merges make.
// Instances registered while the returned batch is processed queue up for a
// later sweep.
func (l *ledger) take(key vocab.Pair) []edge {
	e := l.entries[key]
	if e == nil {
		return nil
	}
	edges := e.edges
	e.edges = nil
	return edges
}

// entryHeap is a max-heap on count. Equal counts order by decoded label,
// then by type ids, so the choice never depends on map iteration.
type entryHeap []*ledgerEntry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.count != b.count {
		return a.count > b.count
	}
	if a.label != b.label {
		return a.label < b.label
	}
	return a.key.Less(b.key)
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x any) {
	e := x.(*ledgerEntry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}
