package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

// testModel builds a small model: labels A, B; pair (A, B); one step.
func testModel(name string) *Model {
	return &Model{
		Name:            name,
		TokenDelimiter:  "_",
		SequenceHash:    ComputeSequenceHash([]string{"A (B)"}),
		MergesRequested: 5,
		NodesBefore:     10,
		NodesAfter:      7,
		CreatedAt:       time.Now().Truncate(time.Second),
		Labels:          []string{"A", "B"},
		Pairs:           []TypePair{{ParentType: 0, ChildType: 1}},
		Steps:           []MergeStep{{TypeID: -1, Label: "A (B)", Count: 3, Merged: 3}},
	}
}

// =============================================================================
// Schema & Lifecycle
// =============================================================================

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range []string{"models", "type_labels", "type_pairs", "merge_steps", "metadata"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

func TestMigrate_WALMode(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	var mode string
	err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode)
	require.NoError(t, err)
	assert.Equal(t, "wal", mode)
}

func TestNewStore_InvalidPath(t *testing.T) {
	t.Parallel()
	_, err := NewStore("/nonexistent/dir/db.sqlite")
	require.Error(t, err)
}

// =============================================================================
// Models
// =============================================================================

func TestModel_SaveAndLoad(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	m := testModel("python")

	id, err := s.SaveModel(m)
	require.NoError(t, err)
	require.Positive(t, id)
	assert.Equal(t, id, m.ID)

	got, err := s.LoadModel("python")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "_", got.TokenDelimiter)
	assert.Equal(t, m.SequenceHash, got.SequenceHash)
	assert.Equal(t, 5, got.MergesRequested)
	assert.Equal(t, 10, got.NodesBefore)
	assert.Equal(t, 7, got.NodesAfter)
	assert.Equal(t, []string{"A", "B"}, got.Labels)
	assert.Equal(t, m.Pairs, got.Pairs)
	assert.Equal(t, m.Steps, got.Steps)
	assert.WithinDuration(t, m.CreatedAt, got.CreatedAt, time.Second)
}

func TestModel_SaveReplacesByName(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	_, err := s.SaveModel(testModel("java"))
	require.NoError(t, err)

	m := testModel("java")
	m.Labels = []string{"X"}
	m.Pairs = nil
	m.Steps = nil
	_, err = s.SaveModel(m)
	require.NoError(t, err)

	got, err := s.LoadModel("java")
	require.NoError(t, err)
	assert.Equal(t, []string{"X"}, got.Labels)
	assert.Empty(t, got.Pairs)
	assert.Empty(t, got.Steps)

	var rows int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM type_labels").Scan(&rows))
	assert.Equal(t, 1, rows, "stale labels from the replaced model should be gone")
}

func TestModel_LoadNotFound(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	_, err := s.LoadModel("missing")
	require.ErrorIs(t, err, ErrModelNotFound)
}

func TestModel_List(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	_, err := s.SaveModel(testModel("zeta"))
	require.NoError(t, err)
	_, err = s.SaveModel(testModel("alpha"))
	require.NoError(t, err)

	infos, err := s.Models()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "alpha", infos[0].Name)
	assert.Equal(t, "zeta", infos[1].Name)
	assert.Equal(t, 1, infos[0].StepCount)
	assert.Equal(t, 2, infos[0].LabelCount)
}

func TestModel_Delete(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	_, err := s.SaveModel(testModel("go"))
	require.NoError(t, err)

	require.NoError(t, s.DeleteModel("go"))
	_, err = s.LoadModel("go")
	require.ErrorIs(t, err, ErrModelNotFound)
	require.ErrorIs(t, s.DeleteModel("go"), ErrModelNotFound)

	var rows int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM merge_steps").Scan(&rows))
	assert.Zero(t, rows)
}

// =============================================================================
// Metadata & hashing
// =============================================================================

func TestMetadata_RoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	v, err := s.GetMetadata("last_model")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.SetMetadata("last_model", "a"))
	require.NoError(t, s.SetMetadata("last_model", "b"))
	v, err = s.GetMetadata("last_model")
	require.NoError(t, err)
	assert.Equal(t, "b", v)
}

func TestComputeSequenceHash(t *testing.T) {
	t.Parallel()
	a := ComputeSequenceHash([]string{"A (B)", "C (D)"})
	assert.Len(t, a, 64)
	assert.Equal(t, a, ComputeSequenceHash([]string{"A (B)", "C (D)"}))
	assert.NotEqual(t, a, ComputeSequenceHash([]string{"C (D)", "A (B)"}))
	assert.NotEqual(t, a, ComputeSequenceHash(nil))
}
