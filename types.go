package lumberjack

import (
	"fmt"

	"github.com/jward/lumberjack/internal/store"
	"github.com/jward/lumberjack/internal/tree"
	"github.com/jward/lumberjack/internal/vocab"
)

// Public type aliases for the internal tree and vocabulary types used in the
// Compressor API. External consumers use these names; no conversion is needed.

type Node = tree.Node
type Vocabulary = vocab.Vocabulary
type TypeID = vocab.TypeID
type EdgeType = vocab.Pair

// NewNode creates a node and attaches it to parent when parent is non-nil.
func NewNode(token, nodeType string, parent *Node) *Node {
	return tree.New(token, nodeType, parent)
}

// NewVocabulary creates an empty vocabulary.
func NewVocabulary() *Vocabulary {
	return vocab.New()
}

// ModelStore persists fitted models; *store.Store implements it.
type ModelStore = store.ModelStore

// OpenStore opens (and migrates) a SQLite model store at path.
func OpenStore(path string) (*store.Store, error) {
	s, err := store.NewStore(path)
	if err != nil {
		return nil, fmt.Errorf("lumberjack: open store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("lumberjack: %w", err)
	}
	return s, nil
}
