// Package rules evaluates user-supplied Risor expressions that decide which
// nodes may take part in merges.
//
// A rule is a single expression with two globals, node_type (string) and
// is_leaf (bool), that must evaluate to a bool:
//
//	node_type != "block" && !(is_leaf && strings.has_prefix(node_type, "comment"))
package rules

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/object"

	"github.com/jward/lumberjack/internal/tree"
)

// ErrNotBool is returned when a rule evaluates to something other than a bool.
var ErrNotBool = errors.New("rules: rule did not return a bool")

type cacheKey struct {
	nodeType string
	leaf     bool
}

// Rule is a compiled eligibility expression. Results are cached per
// (node type, leaf) so a rule answers the same way for every node of a shape.
// A Rule is safe for concurrent use.
type Rule struct {
	name   string
	source string

	mu    sync.Mutex
	cache map[cacheKey]bool
}

// Compile checks src by evaluating it once for an empty inner node.
func Compile(ctx context.Context, name, src string) (*Rule, error) {
	r := &Rule{
		name:   name,
		source: strings.TrimSpace(src),
		cache:  make(map[cacheKey]bool),
	}
	if r.source == "" {
		return nil, fmt.Errorf("rules: %s: empty rule", name)
	}
	if _, err := r.eval(ctx, "", false); err != nil {
		return nil, err
	}
	return r, nil
}

// Load reads and compiles a .risor rule file from disk.
func Load(ctx context.Context, path string) (*Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rules: loading %s: %w", path, err)
	}
	return Compile(ctx, path, string(data))
}

// LoadFS reads and compiles a rule from fsys, e.g. an embedded directory.
func LoadFS(ctx context.Context, fsys fs.FS, path string) (*Rule, error) {
	// Strip any leading separator so the path is relative within the FS.
	fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
	data, err := fs.ReadFile(fsys, fsPath)
	if err != nil {
		return nil, fmt.Errorf("rules: loading %s from fs: %w", fsPath, err)
	}
	return Compile(ctx, fsPath, string(data))
}

// Name returns the file or label the rule was compiled from.
func (r *Rule) Name() string {
	return r.name
}

// Allow reports whether a node of nodeType may merge.
func (r *Rule) Allow(ctx context.Context, nodeType string, isLeaf bool) (bool, error) {
	key := cacheKey{nodeType, isLeaf}
	r.mu.Lock()
	v, ok := r.cache[key]
	r.mu.Unlock()
	if ok {
		return v, nil
	}

	v, err := r.eval(ctx, nodeType, isLeaf)
	if err != nil {
		return false, err
	}
	r.mu.Lock()
	r.cache[key] = v
	r.mu.Unlock()
	return v, nil
}

// Filter adapts the rule to a node predicate. Evaluation errors are logged
// once per node shape and treated as "not allowed".
func (r *Rule) Filter(ctx context.Context, logger *slog.Logger) func(*tree.Node) bool {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return func(n *tree.Node) bool {
		ok, err := r.Allow(ctx, n.Type, n.IsLeaf())
		if err != nil {
			logger.Warn("rule failed", "rule", r.name, "node_type", n.Type, "error", err)
			r.mu.Lock()
			r.cache[cacheKey{n.Type, n.IsLeaf()}] = false
			r.mu.Unlock()
			return false
		}
		return ok
	}
}

func (r *Rule) eval(ctx context.Context, nodeType string, isLeaf bool) (bool, error) {
	res, err := risor.Eval(ctx, r.source,
		risor.WithGlobal("node_type", nodeType),
		risor.WithGlobal("is_leaf", isLeaf),
	)
	if err != nil {
		return false, fmt.Errorf("rules: %s: %w", r.name, err)
	}
	b, ok := res.(*object.Bool)
	if !ok {
		return false, fmt.Errorf("%w: %s returned %s", ErrNotBool, r.name, res.Type())
	}
	return b.Value(), nil
}
