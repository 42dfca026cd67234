package lumberjack

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/lumberjack/internal/store"
)

// fitArtifact fits the sample forest and captures the result.
func fitArtifact(t *testing.T, name string, budget int) (*Artifact, *Result) {
	t.Helper()
	c := New(WithNonMergeable("Block"))
	res, err := c.Fit(sampleForest(), budget)
	require.NoError(t, err)
	art, err := NewArtifact(name, c.Vocabulary(), res.Sequence, c.TokenDelimiter())
	require.NoError(t, err)
	art.Stats = &res.Stats
	return art, res
}

// replayArtifact restores art and transforms a fresh sample forest with it.
func replayArtifact(t *testing.T, art *Artifact) *Result {
	t.Helper()
	c, seq, err := art.Compressor(WithNonMergeable("Block"))
	require.NoError(t, err)
	res, err := c.Transform(sampleForest(), seq)
	require.NoError(t, err)
	return res
}

// =============================================================================
// Capture & Restore
// =============================================================================

func TestArtifact_Restore(t *testing.T) {
	t.Parallel()
	art, fit := fitArtifact(t, "m", 6)

	require.Len(t, art.Decoded, len(fit.Sequence))
	for i, st := range fit.Stats.Steps {
		assert.Equal(t, st.Label, art.Decoded[i])
	}
	assert.Equal(t, store.ComputeSequenceHash(art.Decoded), art.Hash)

	v, seq, err := art.Restore()
	require.NoError(t, err)
	assert.Equal(t, fit.Sequence, seq)
	for i, id := range seq {
		assert.Equal(t, art.Decoded[i], v.Label(id))
	}
}

func TestArtifact_ReplayMatchesFit(t *testing.T) {
	t.Parallel()
	art, fit := fitArtifact(t, "m", 6)
	res := replayArtifact(t, art)
	assert.Equal(t, snapshot(fit.Trees), snapshot(res.Trees))
}

func TestArtifact_DelimiterCarries(t *testing.T) {
	t.Parallel()
	c := New(WithTokenDelimiter("."))
	res, err := c.Fit([]Tree{{Root: scenarioTree()}}, 2)
	require.NoError(t, err)
	art, err := NewArtifact("dots", c.Vocabulary(), res.Sequence, c.TokenDelimiter())
	require.NoError(t, err)

	replayer, seq, err := art.Compressor()
	require.NoError(t, err)
	assert.Equal(t, ".", replayer.TokenDelimiter())
	out, err := replayer.Transform([]Tree{{Root: scenarioTree()}}, seq)
	require.NoError(t, err)
	assert.Equal(t, "x.y", out.Trees[0].Root.Token)
}

func TestArtifact_EmptyDelimiterCarries(t *testing.T) {
	t.Parallel()
	c := New(WithTokenDelimiter(""))
	res, err := c.Fit([]Tree{{Root: scenarioTree()}}, 2)
	require.NoError(t, err)
	require.Equal(t, "xy", res.Trees[0].Root.Token)

	art, err := NewArtifact("glued", c.Vocabulary(), res.Sequence, c.TokenDelimiter())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "glued.yaml")
	require.NoError(t, WriteArtifactFile(path, art))
	got, err := ReadArtifactFile(path)
	require.NoError(t, err)

	for name, a := range map[string]*Artifact{"memory": art, "file": got} {
		replayer, seq, err := a.Compressor()
		require.NoError(t, err, name)
		assert.Empty(t, replayer.TokenDelimiter(), name)
		out, err := replayer.Transform([]Tree{{Root: scenarioTree()}}, seq)
		require.NoError(t, err, name)
		assert.Equal(t, "xy", out.Trees[0].Root.Token, name)
	}
}

func TestNewArtifact_UnknownEdge(t *testing.T) {
	t.Parallel()
	_, err := NewArtifact("m", NewVocabulary(), MergeSequence{-1}, "_")
	require.ErrorIs(t, err, ErrUnknownEdge)
}

func TestArtifact_RestoreRejectsTampering(t *testing.T) {
	t.Parallel()

	t.Run("hash", func(t *testing.T) {
		t.Parallel()
		art, _ := fitArtifact(t, "m", 3)
		art.Hash = "deadbeef"
		_, _, err := art.Restore()
		require.ErrorIs(t, err, ErrArtifactHash)
	})

	t.Run("decoded label", func(t *testing.T) {
		t.Parallel()
		art, _ := fitArtifact(t, "m", 3)
		art.Decoded[0] = "Other (Thing)"
		art.Hash = store.ComputeSequenceHash(art.Decoded)
		_, _, err := art.Restore()
		require.ErrorIs(t, err, ErrInvalidArtifact)
	})

	t.Run("step count", func(t *testing.T) {
		t.Parallel()
		art, _ := fitArtifact(t, "m", 3)
		art.Decoded = art.Decoded[:1]
		_, _, err := art.Restore()
		require.ErrorIs(t, err, ErrInvalidArtifact)
	})

	t.Run("sequence id", func(t *testing.T) {
		t.Parallel()
		art, _ := fitArtifact(t, "m", 3)
		art.Sequence[0] = -100
		_, _, err := art.Restore()
		require.ErrorIs(t, err, ErrUnknownEdge)
	})
}

// =============================================================================
// Persistence
// =============================================================================

func TestArtifactFile_RoundTrip(t *testing.T) {
	t.Parallel()
	art, fit := fitArtifact(t, "file-model", 6)
	path := filepath.Join(t.TempDir(), "model.yaml")

	require.NoError(t, WriteArtifactFile(path, art))
	got, err := ReadArtifactFile(path)
	require.NoError(t, err)

	assert.Equal(t, art.Name, got.Name)
	assert.Equal(t, art.Labels, got.Labels)
	assert.Equal(t, art.Pairs, got.Pairs)
	assert.Equal(t, art.Sequence, got.Sequence)
	assert.Equal(t, art.Hash, got.Hash)
	assert.True(t, art.Created.Equal(got.Created))
	require.NotNil(t, got.Stats)
	assert.Equal(t, fit.Stats.Steps, got.Stats.Steps)

	res := replayArtifact(t, got)
	assert.Equal(t, snapshot(fit.Trees), snapshot(res.Trees))
}

func TestReadArtifactFile_Errors(t *testing.T) {
	t.Parallel()
	_, err := ReadArtifactFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, writeFile(path, "labels: [unterminated\n"))
	_, err = ReadArtifactFile(path)
	require.ErrorIs(t, err, ErrInvalidArtifact)
}

func TestArtifactStore_RoundTrip(t *testing.T) {
	t.Parallel()
	s, err := OpenStore(filepath.Join(t.TempDir(), "models.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	art, fit := fitArtifact(t, "stored", 6)
	require.NoError(t, SaveArtifact(s, art))

	got, err := LoadArtifact(s, "stored")
	require.NoError(t, err)
	assert.Equal(t, art.Labels, got.Labels)
	assert.Equal(t, art.Pairs, got.Pairs)
	assert.Equal(t, art.Sequence, got.Sequence)
	assert.Equal(t, art.Decoded, got.Decoded)
	assert.Equal(t, "_", got.Delimiter)
	assert.Equal(t, fit.Stats, *got.Stats)

	res := replayArtifact(t, got)
	assert.Equal(t, snapshot(fit.Trees), snapshot(res.Trees))
}

func TestArtifactStore_Errors(t *testing.T) {
	t.Parallel()
	s, err := OpenStore(filepath.Join(t.TempDir(), "models.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	art, _ := fitArtifact(t, "", 2)
	require.ErrorIs(t, SaveArtifact(s, art), ErrInvalidArtifact)

	_, err = LoadArtifact(s, "nope")
	require.ErrorIs(t, err, store.ErrModelNotFound)
}
