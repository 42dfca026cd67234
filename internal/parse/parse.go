// Package parse turns source files into lumberjack syntax trees using
// tree-sitter grammars.
//
// Supported languages and the extensions that select them:
//
//	c           .c
//	cpp         .cpp .cc .cxx .hpp .hh
//	go          .go
//	java        .java
//	javascript  .js .jsx .mjs
//	php         .php
//	python      .py
//	ruby        .rb
//	rust        .rs
//	tsx         .tsx
//	typescript  .ts
//
// Node types are the grammar's own, so trees from different languages share
// no vocabulary beyond coincidental names.
package parse

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/lumberjack/internal/tree"
)

var (
	ErrUnsupportedLanguage = errors.New("parse: unsupported language")
	ErrEmptyTree           = errors.New("parse: every node was filtered out")
)

// Options controls which tree-sitter nodes survive conversion.
type Options struct {
	// TypePattern is matched against every node type; non-matching nodes are
	// dropped with their subtrees. Empty means tree.DefaultTypePattern.
	TypePattern string
	// DropDocstrings removes python-style docstring statements.
	DropDocstrings bool
	// NamedOnly skips anonymous tree-sitter nodes such as keywords.
	NamedOnly bool
}

// Parser converts source code to *tree.Node trees. It is safe for concurrent
// use; each call builds its own tree-sitter parser.
type Parser struct {
	opts Options
	keep tree.KeepFunc
}

// New compiles opts into a Parser.
func New(opts Options) (*Parser, error) {
	pattern := opts.TypePattern
	if pattern == "" {
		pattern = tree.DefaultTypePattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("parse: type pattern: %w", err)
	}
	return &Parser{opts: opts, keep: tree.SyntaxFilter(re, opts.DropDocstrings)}, nil
}

// ParseFile reads and parses path, picking the grammar from its extension.
func (p *Parser) ParseFile(ctx context.Context, path string) (*tree.Node, error) {
	lang, ok := LanguageForFile(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, path)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("parse: reading %s: %w", path, err)
	}
	root, err := p.ParseSource(ctx, src, lang)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return root, nil
}

// ParseSource parses src with the grammar for lang.
func (p *Parser) ParseSource(ctx context.Context, src []byte, lang string) (*tree.Node, error) {
	grammar, ok := GrammarForLanguage(lang)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	st, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse: tree-sitter parse failed: %w", err)
	}
	defer st.Close()

	root := tree.FromSource(&sitterSource{node: st.RootNode(), src: src, namedOnly: p.opts.NamedOnly}, p.keep)
	if root == nil {
		return nil, ErrEmptyTree
	}
	return root, nil
}

// sitterSource exposes a tree-sitter node as a tree.Source.
type sitterSource struct {
	node      *sitter.Node
	src       []byte
	namedOnly bool
}

func (s *sitterSource) SourceType() string {
	return s.node.Type()
}

// SourceToken returns the source text of leaves and "" for inner nodes.
func (s *sitterSource) SourceToken() string {
	if s.childCount() > 0 {
		return ""
	}
	return normalizeToken(s.node.Content(s.src))
}

func (s *sitterSource) SourceChildren() []tree.Source {
	n := s.childCount()
	if n == 0 {
		return nil
	}
	out := make([]tree.Source, 0, n)
	for i := range n {
		var child *sitter.Node
		if s.namedOnly {
			child = s.node.NamedChild(i)
		} else {
			child = s.node.Child(i)
		}
		if child == nil {
			continue
		}
		out = append(out, &sitterSource{node: child, src: s.src, namedOnly: s.namedOnly})
	}
	return out
}

func (s *sitterSource) childCount() int {
	if s.namedOnly {
		return int(s.node.NamedChildCount())
	}
	return int(s.node.ChildCount())
}

// normalizeToken replaces '|', which downstream formats use to join
// subtokens.
func normalizeToken(tok string) string {
	return strings.ReplaceAll(tok, "|", "_")
}
