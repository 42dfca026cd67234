package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/lumberjack"
	"github.com/jward/lumberjack/internal/config"
)

func TestFindRepoRoot_DirectGitDir(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))

	got := findRepoRoot(root)
	assert.Equal(t, root, got)
}

func TestFindRepoRoot_NestedSubdirectory(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	deep := filepath.Join(root, "sub", "deep")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	got := findRepoRoot(deep)
	assert.Equal(t, root, got)
}

func TestFindRepoRoot_NoGitAncestor(t *testing.T) {
	t.Parallel()
	// TempDir has no .git directory anywhere in its ancestry
	// (unless /tmp itself is a repo, which would be unusual).
	dir := t.TempDir()

	got := findRepoRoot(dir)
	assert.Equal(t, dir, got)
}

// TestResolveDBPath mutates package flags, so it does not run in parallel.
func TestResolveDBPath(t *testing.T) {
	cfg = config.Default()
	t.Cleanup(func() { flagDB = "" })

	flagDB = ""
	assert.Equal(t, filepath.Join("/repo", config.DefaultStorePath), resolveDBPath("/repo"))

	flagDB = "models/lj.db"
	assert.Equal(t, "/repo/models/lj.db", resolveDBPath("/repo"))

	flagDB = "/abs/lj.db"
	assert.Equal(t, "/abs/lj.db", resolveDBPath("/repo"))
}

func TestValidateFormat(t *testing.T) {
	t.Parallel()
	require.NoError(t, validateFormat("json"))
	require.NoError(t, validateFormat("text"))
	require.Error(t, validateFormat("yaml"))
}

func TestToCLISteps(t *testing.T) {
	t.Parallel()
	steps := toCLISteps([]lumberjack.Step{
		{Edge: -1, Label: "A (B)", Count: 4, Merged: 3},
		{Edge: -2, Label: "A (B) (C)", Count: 2, Merged: 2},
	})
	require.Len(t, steps, 2)
	assert.Equal(t, CLIStep{Step: 1, TypeID: -1, Label: "A (B)", Count: 4, Merged: 3}, steps[0])
	assert.Equal(t, 2, steps[1].Step)
}

func TestOutputResultText_Compression(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	err := outputResultText(&buf, CLIResult{Command: "fit", Results: CLICompression{
		Model:       "py",
		Trees:       2,
		Requested:   10,
		Performed:   1,
		NodesBefore: 12000,
		NodesAfter:  6000,
		Ratio:       2,
		Steps:       []CLIStep{{Step: 1, Label: "call (identifier)", Count: 7, Merged: 7}},
		Warnings:    []string{"load x.py: boom"},
	}})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Model: py")
	assert.Contains(t, out, "Merges: 1 of 10")
	assert.Contains(t, out, "12,000 -> 6,000 (2.00x)")
	assert.Contains(t, out, "call (identifier)")
	assert.Contains(t, out, "warning: load x.py: boom")
}

func TestOutputResultText_Models(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	total := 3
	err := outputResultText(&buf, CLIResult{
		Command:    "models",
		Results:    []CLIModel{{Name: "java", Hash: "0123456789abcdef", Steps: 5, CreatedAt: time.Now()}},
		TotalCount: &total,
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "java")
	assert.Contains(t, out, "0123456789ab")
	assert.NotContains(t, out, "0123456789abcdef")
	assert.Contains(t, out, "Showing 1 of 3 results")
}

func TestOutputResultText_Trees(t *testing.T) {
	t.Parallel()
	root := lumberjack.NewNode("", "Root (A)", nil)
	lumberjack.NewNode("y", "A", root)

	var buf bytes.Buffer
	err := outputResultText(&buf, CLIResult{Command: "show", Results: []CLITree{renderTree(lumberjack.Tree{Root: root, Label: "m"})}})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "label: m (2 nodes)")
	assert.Contains(t, buf.String(), "Root (A)\n|   A : y\n")
}

func TestOutputResultText_Unsupported(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	err := outputResultText(&buf, CLIResult{Results: 42})
	require.Error(t, err)
}
