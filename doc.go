// Package lumberjack compresses syntax trees with Tree-BPE, a byte-pair
// encoding over tree structure. It repeatedly collapses the most common
// parent/child type pattern across a forest, producing compact trees whose
// merged type labels form a vocabulary that can be learned once and replayed
// on other corpora.
//
// # Pipeline
//
//  1. Ingest: trees arrive as [Node] forests, built directly or loaded from
//     source files (tree-sitter) and JSON-lines dumps with [LoadForest].
//
//  2. Fit: [Compressor.Fit] counts, for every edge type (parent type, child
//     type), how many parents have at least one eligible child of that type,
//     then greedily merges the most frequent edge type up to a budget. Each
//     chosen type is recorded in a [MergeSequence].
//
//  3. Transform: [Compressor.Transform] replays a recorded sequence on another
//     forest without consulting its statistics, so every pattern that occurs
//     is compressed the same way.
//
// # Usage
//
//	c := lumberjack.New(lumberjack.WithNonMergeable("block"))
//	res, err := c.Fit(trainTrees, 100)
//	if err != nil { ... }
//
//	test, err := c.Transform(testTrees, res.Sequence)
//
// # Merging
//
// Merging a parent with one child produces a node whose type decodes as
// "Parent (Child)" and whose token joins the two tokens with the delimiter
// ("_" by default). The child's children take its place in the parent's child
// list. When a root is merged away, its label moves to the new root.
//
// # Persistence
//
// An [Artifact] captures the label and pair tables plus the sequence, so a
// model fitted in one process can be restored with [Artifact.Restore] and
// replayed in another. Artifacts are stored as YAML files or in the SQLite
// model store used by the lumberjack command.
package lumberjack
