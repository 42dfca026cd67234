package lumberjack

import (
	"github.com/jward/lumberjack/internal/tree"
	"github.com/jward/lumberjack/internal/vocab"
)

// run holds the state of one Fit or Transform call.
type run struct {
	vocab     *vocab.Vocabulary
	ledger    *ledger
	delimiter string

	roots     []*tree.Node
	rootIndex map[*tree.Node]int
}

// mergeEdgeType sweeps every queued instance of key once, collapsing each
// non-conflicting one into a node of type composite. It returns the number of
// merges performed.
func (r *run) mergeEdgeType(key vocab.Pair, composite vocab.TypeID) int {
	merged := 0
	for _, e := range r.ledger.take(key) {
		if r.merge(e, composite) {
			merged++
		}
	}
	return merged
}

// merge collapses e.child into e.parent. It declines when either endpoint was
// already consumed earlier in the sweep.
func (r *run) merge(e edge, composite vocab.TypeID) bool {
	up, down := e.parent, e.child
	if up.Consumed() || down.Consumed() {
		return false
	}
	up.MarkConsumed()
	down.MarkConsumed()

	grand := up.Parent()
	if grand != nil {
		r.ledger.removeParent(grand)
	}
	r.ledger.removeParent(up)
	r.ledger.removeParent(down)

	merged := tree.New(fuseTokens(up.Token, down.Token, r.delimiter), r.vocab.Label(composite), nil)
	merged.SetTypeID(composite)
	if merged.Token != "" {
		r.vocab.Token(merged.Token)
	}

	upChildren := up.TakeChildren()
	downChildren := down.TakeChildren()
	for _, c := range upChildren {
		if c == down {
			merged.AddChildren(downChildren)
			continue
		}
		merged.AddChild(c)
	}

	if grand != nil {
		grand.ReplaceChild(up, merged)
		r.ledger.addParent(grand)
	} else {
		r.replaceRoot(up, merged)
	}
	r.ledger.addParent(merged)

	up.Release()
	down.Release()
	return true
}

// replaceRoot puts repl in old's forest slot, so old's label carries over.
func (r *run) replaceRoot(old, repl *tree.Node) {
	idx, ok := r.rootIndex[old]
	if !ok {
		return
	}
	delete(r.rootIndex, old)
	r.roots[idx] = repl
	r.rootIndex[repl] = idx
}

// fuseTokens joins the tokens of a merged pair, parent first. An empty side
// contributes nothing.
func fuseTokens(up, down, delimiter string) string {
	switch {
	case up == "":
		return down
	case down == "":
		return up
	default:
		return up + delimiter + down
	}
}
