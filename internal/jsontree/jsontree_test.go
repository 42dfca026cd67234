package jsontree

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/lumberjack/internal/tree"
)

const csnLines = `{"type": "module", "string": "", "children": [{"type": "function_definition", "string": "", "children": [{"type": "def", "string": "def"}, {"type": "identifier", "string": "f"}, {"type": ":", "string": ":"}, {"type": "block", "string": "", "children": [{"type": "expression_statement", "string": "", "children": [{"type": "string", "string": "\"\"\"doc\"\"\""}]}, {"type": "pass_statement", "string": "pass"}]}]}]}

{"type": "(", "string": "("}
{"type": "module", "string": "", "children": [{"type": "identifier", "string": "x"}]}
`

func writeGzip(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
}

func TestReadFile_Gzip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "train.jsonl.gz")
	writeGzip(t, path, csnLines)

	entries, err := ReadFile(path, Options{DropDocstrings: true})
	require.NoError(t, err)
	require.Len(t, entries, 2, "blank line and filtered root are skipped")

	assert.Equal(t, 1, entries[0].Line)
	assert.Equal(t, 4, entries[1].Line)
	assert.Equal(t,
		"module\n| function_definition\n| | def : def\n| | identifier : f\n| | block\n| | | pass_statement : pass\n",
		entries[0].Root.String())
	assert.Equal(t, "module\n| identifier : x\n", entries[1].Root.String())
}

func TestReader_KeepsDocstrings(t *testing.T) {
	t.Parallel()
	r, err := NewReader(strings.NewReader(csnLines), Options{})
	require.NoError(t, err)

	e, err := r.Next()
	require.NoError(t, err)
	var strs int
	e.Root.Walk(func(n *tree.Node) bool {
		if n.Type == "string" {
			strs++
		}
		return true
	})
	assert.Equal(t, 1, strs)
}

func TestReader_InvalidJSON(t *testing.T) {
	t.Parallel()
	r, err := NewReader(strings.NewReader("{not json\n"), Options{})
	require.NoError(t, err)
	_, err = r.Next()
	require.ErrorIs(t, err, ErrInvalidTree)
}

func TestReader_MissingType(t *testing.T) {
	t.Parallel()
	r, err := NewReader(strings.NewReader(`{"string": "x"}`+"\n"), Options{})
	require.NoError(t, err)
	_, err = r.Next()
	require.ErrorIs(t, err, ErrInvalidTree)
}

func TestReader_SchemaValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		ok    bool
	}{
		{"bare node", `{"type": "module", "children": [{"type": "identifier", "string": "x"}]}`, true},
		{"labeled", `{"label": "f", "tree": {"type": "module"}}`, true},
		{"numeric type", `{"type": 5}`, false},
		{"child without type", `{"type": "module", "children": [{"string": "x"}]}`, false},
		{"children not array", `{"type": "module", "children": {"type": "x"}}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r, err := NewReader(strings.NewReader(tt.input+"\n"), Options{Validate: true})
			require.NoError(t, err)
			_, err = r.Next()
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidTree)
		})
	}
}

func TestReader_EOF(t *testing.T) {
	t.Parallel()
	r, err := NewReader(strings.NewReader("\n\n"), Options{})
	require.NoError(t, err)
	_, err = r.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestNewReader_InvalidPattern(t *testing.T) {
	t.Parallel()
	_, err := NewReader(strings.NewReader(""), Options{TypePattern: "("})
	require.Error(t, err)
}

func TestWriter_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"out.jsonl", "out.jsonl.gz", "out.jsonl.lz4"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), name)

			root := tree.New("", "Root (A)", nil)
			tree.New("x_y", "B", root)
			leaf := tree.New("", "C", root)
			tree.New("z", "D", leaf)

			w, err := Create(path)
			require.NoError(t, err)
			require.NoError(t, w.Write("get|name", root))
			require.NoError(t, w.Write("second", tree.New("t", "Leaf", nil)))
			require.NoError(t, w.Close())

			entries, err := ReadFile(path, Options{Validate: true})
			require.NoError(t, err)
			require.Len(t, entries, 2)
			assert.Equal(t, "get|name", entries[0].Label)
			assert.Equal(t, root.String(), entries[0].Root.String())
			assert.Equal(t, "second", entries[1].Label)
			assert.Equal(t, "Leaf : t\n", entries[1].Root.String())
		})
	}
}

func TestReader_LabeledLinesSkipFilter(t *testing.T) {
	t.Parallel()
	src := `{"label": "m", "tree": {"type": "Root (A)", "string": "x", "children": [{"type": "(", "string": "("}]}}
{"type": "Root (A)", "string": "x"}
`
	entries, err := ReadFile(writeTemp(t, "mixed.jsonl", src), Options{DropDocstrings: true})
	require.NoError(t, err)
	require.Len(t, entries, 1, "the bare composite line is still filtered")
	assert.Equal(t, "m", entries[0].Label)
	assert.Equal(t, "Root (A) : x\n| ( : (\n", entries[0].Root.String())
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
