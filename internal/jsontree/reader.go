// Package jsontree reads and writes syntax trees stored one JSON object per
// line, the format used by the CodeSearchNet tree dumps:
//
//	{"type": "module", "string": "", "children": [...]}
//
// Files may be plain, gzip (.gz) or lz4 (.lz4) compressed. Lines written by
// Writer wrap the tree with its label: {"label": "...", "tree": {...}}.
// Such lines are read back as written, without the type and docstring
// filters, so compressed output can be loaded again.
package jsontree

import (
	"bufio"
	"bytes"
	"compress/gzip"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/pierrec/lz4/v4"
	"github.com/xeipuuv/gojsonschema"

	"github.com/jward/lumberjack/internal/tree"
)

// ErrInvalidTree is returned for lines that are not valid tree JSON.
var ErrInvalidTree = errors.New("jsontree: invalid tree")

// maxLineSize bounds a single JSON line.
const maxLineSize = 64 << 20

//go:embed tree-schema.json
var schemaJSON []byte

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
})

// Options controls how lines become trees.
type Options struct {
	// TypePattern drops nodes whose type does not match. Empty means
	// tree.DefaultTypePattern.
	TypePattern string
	// DropDocstrings removes python docstring statements.
	DropDocstrings bool
	// Validate checks each line against the embedded JSON schema first.
	Validate bool
}

// Entry is one tree read from a file.
type Entry struct {
	Root  *tree.Node
	Label string
	Line  int
}

// record is the on-disk node shape.
type record struct {
	Type     string    `json:"type,omitempty"`
	String   string    `json:"string,omitempty"`
	Children []*record `json:"children,omitempty"`
}

func (r *record) SourceType() string  { return r.Type }
func (r *record) SourceToken() string { return r.String }

func (r *record) SourceChildren() []tree.Source {
	out := make([]tree.Source, len(r.Children))
	for i, c := range r.Children {
		out[i] = c
	}
	return out
}

// line accepts both a bare node and a labeled {"label", "tree"} wrapper.
type line struct {
	record
	Label string  `json:"label,omitempty"`
	Tree  *record `json:"tree,omitempty"`
}

// Reader yields trees from a JSON-lines stream.
type Reader struct {
	sc      *bufio.Scanner
	keep    tree.KeepFunc
	schema  *gojsonschema.Schema
	closers []io.Closer
	line    int
}

// NewReader reads uncompressed JSON lines from r.
func NewReader(r io.Reader, opts Options) (*Reader, error) {
	pattern := opts.TypePattern
	if pattern == "" {
		pattern = tree.DefaultTypePattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("jsontree: type pattern: %w", err)
	}
	rd := &Reader{keep: tree.SyntaxFilter(re, opts.DropDocstrings)}
	if opts.Validate {
		s, err := compiledSchema()
		if err != nil {
			return nil, fmt.Errorf("jsontree: compile schema: %w", err)
		}
		rd.schema = s
	}
	rd.sc = bufio.NewScanner(r)
	rd.sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return rd, nil
}

// Open opens path, decompressing by extension.
func Open(path string, opts Options) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("jsontree: open: %w", err)
	}
	var src io.Reader = f
	closers := []io.Closer{f}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("jsontree: %s: %w", path, err)
		}
		src = gz
		closers = append([]io.Closer{gz}, closers...)
	case ".lz4":
		src = lz4.NewReader(f)
	}
	rd, err := NewReader(src, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	rd.closers = closers
	return rd, nil
}

// Next returns the next tree, skipping blank lines and bare lines whose root
// the filter rejects. Labeled lines are not filtered. It returns io.EOF when the stream is exhausted.
func (r *Reader) Next() (Entry, error) {
	for r.sc.Scan() {
		r.line++
		raw := bytes.TrimSpace(r.sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		if r.schema != nil {
			if err := r.validate(raw); err != nil {
				return Entry{}, err
			}
		}
		var l line
		if err := json.Unmarshal(raw, &l); err != nil {
			return Entry{}, fmt.Errorf("%w: line %d: %v", ErrInvalidTree, r.line, err)
		}
		// Labeled lines come from Writer and hold trees that were already
		// filtered, possibly with composite types; they are read unfiltered.
		rec, keep := &l.record, r.keep
		if l.Tree != nil {
			rec, keep = l.Tree, nil
		}
		if rec.Type == "" {
			return Entry{}, fmt.Errorf("%w: line %d: missing type", ErrInvalidTree, r.line)
		}
		root := tree.FromSource(rec, keep)
		if root == nil {
			continue
		}
		return Entry{Root: root, Label: l.Label, Line: r.line}, nil
	}
	if err := r.sc.Err(); err != nil {
		return Entry{}, fmt.Errorf("jsontree: read line %d: %w", r.line+1, err)
	}
	return Entry{}, io.EOF
}

func (r *Reader) validate(raw []byte) error {
	res, err := r.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: line %d: %v", ErrInvalidTree, r.line, err)
	}
	if res.Valid() {
		return nil
	}
	errs := res.Errors()
	return fmt.Errorf("%w: line %d: %s", ErrInvalidTree, r.line, errs[0].String())
}

// Close releases the underlying file, if any.
func (r *Reader) Close() error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// ReadFile reads every tree in path.
func ReadFile(path string, opts Options) ([]Entry, error) {
	r, err := Open(path, opts)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var entries []Entry
	for {
		e, err := r.Next()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		entries = append(entries, e)
	}
}
