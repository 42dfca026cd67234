package jsontree

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pierrec/lz4/v4"

	"github.com/jward/lumberjack/internal/tree"
)

// Writer emits labeled trees as JSON lines.
type Writer struct {
	buf     *bufio.Writer
	enc     *json.Encoder
	closers []io.Closer
}

// NewWriter writes uncompressed lines to w.
func NewWriter(w io.Writer) *Writer {
	buf := bufio.NewWriter(w)
	return &Writer{buf: buf, enc: json.NewEncoder(buf)}
}

// Create creates path, compressing by extension (.gz or .lz4).
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("jsontree: create: %w", err)
	}
	var dst io.Writer = f
	closers := []io.Closer{f}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		gz := gzip.NewWriter(f)
		dst = gz
		closers = append([]io.Closer{gz}, closers...)
	case ".lz4":
		zw := lz4.NewWriter(f)
		dst = zw
		closers = append([]io.Closer{zw}, closers...)
	}
	w := NewWriter(dst)
	w.closers = closers
	return w, nil
}

// Write appends one labeled tree.
func (w *Writer) Write(label string, root *tree.Node) error {
	if err := w.enc.Encode(line{Label: label, Tree: toRecord(root)}); err != nil {
		return fmt.Errorf("jsontree: encode %s: %w", label, err)
	}
	return nil
}

// Close flushes buffered lines and closes compressors and the file.
func (w *Writer) Close() error {
	errs := []error{w.buf.Flush()}
	for _, c := range w.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func toRecord(root *tree.Node) *record {
	type frame struct {
		n *tree.Node
		r *record
	}
	out := &record{Type: root.Type, String: root.Token}
	stack := []frame{{root, out}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		children := f.n.Children()
		if len(children) == 0 {
			continue
		}
		f.r.Children = make([]*record, len(children))
		for i, ch := range children {
			f.r.Children[i] = &record{Type: ch.Type, String: ch.Token}
			stack = append(stack, frame{ch, f.r.Children[i]})
		}
	}
	return out
}
