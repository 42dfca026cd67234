package lumberjack

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jward/lumberjack/internal/store"
	"github.com/jward/lumberjack/internal/vocab"
)

// Artifact errors.
var (
	ErrInvalidArtifact = errors.New("lumberjack: invalid artifact")
	ErrArtifactHash    = errors.New("lumberjack: artifact hash mismatch")
)

// Artifact is everything Transform needs to replay a fitted merge sequence
// in another process: the base label and pair tables, the sequence itself,
// its decoded labels and a fingerprint of them.
type Artifact struct {
	Name      string        `json:"name" yaml:"name"`
	Delimiter string        `json:"token_delimiter" yaml:"token_delimiter"`
	Created   time.Time     `json:"created" yaml:"created"`
	Labels    []string      `json:"labels" yaml:"labels"`
	Pairs     []EdgeType    `json:"pairs" yaml:"pairs"`
	Sequence  MergeSequence `json:"sequence" yaml:"sequence"`
	Decoded   []string      `json:"decoded" yaml:"decoded"`
	Hash      string        `json:"hash" yaml:"hash"`
	Stats     *Stats        `json:"stats,omitempty" yaml:"stats,omitempty"`
}

// NewArtifact captures v and seq. The vocabulary must be the one seq was
// produced against.
func NewArtifact(name string, v *Vocabulary, seq MergeSequence, delimiter string) (*Artifact, error) {
	decoded := make([]string, len(seq))
	for i, id := range seq {
		if _, ok := v.Pair(id); !ok {
			return nil, fmt.Errorf("%w: step %d id %d", ErrUnknownEdge, i, id)
		}
		decoded[i] = v.Label(id)
	}
	return &Artifact{
		Name:      name,
		Delimiter: delimiter,
		Created:   time.Now().UTC().Truncate(time.Second),
		Labels:    v.Labels(),
		Pairs:     v.Pairs(),
		Sequence:  append(MergeSequence(nil), seq...),
		Decoded:   decoded,
		Hash:      store.ComputeSequenceHash(decoded),
	}, nil
}

// Restore rebuilds the vocabulary and sequence, checking that every step
// still decodes to its recorded label and that the hash matches.
func (a *Artifact) Restore() (*Vocabulary, MergeSequence, error) {
	if len(a.Decoded) != len(a.Sequence) {
		return nil, nil, fmt.Errorf("%w: %d steps, %d decoded labels", ErrInvalidArtifact, len(a.Sequence), len(a.Decoded))
	}
	if got := store.ComputeSequenceHash(a.Decoded); got != a.Hash {
		return nil, nil, fmt.Errorf("%w: %s: want %s, got %s", ErrArtifactHash, a.Name, a.Hash, got)
	}
	v, err := vocab.Restore(a.Labels, a.Pairs)
	if err != nil {
		return nil, nil, fmt.Errorf("lumberjack: restore %s: %w", a.Name, err)
	}
	for i, id := range a.Sequence {
		if _, ok := v.Pair(id); !ok {
			return nil, nil, fmt.Errorf("%w: step %d id %d", ErrUnknownEdge, i, id)
		}
		if got := v.Label(id); got != a.Decoded[i] {
			return nil, nil, fmt.Errorf("%w: step %d decodes to %q, recorded %q", ErrInvalidArtifact, i, got, a.Decoded[i])
		}
	}
	return v, append(MergeSequence(nil), a.Sequence...), nil
}

// Compressor builds a Compressor ready to Transform with this artifact. The
// recorded delimiter is applied as is, including the empty string. Extra
// options are applied after the restored vocabulary and delimiter.
func (a *Artifact) Compressor(opts ...Option) (*Compressor, MergeSequence, error) {
	v, seq, err := a.Restore()
	if err != nil {
		return nil, nil, err
	}
	base := []Option{WithVocabulary(v), WithTokenDelimiter(a.Delimiter)}
	return New(append(base, opts...)...), seq, nil
}

// WriteArtifactFile writes a as YAML.
func WriteArtifactFile(path string, a *Artifact) error {
	data, err := yaml.Marshal(a)
	if err != nil {
		return fmt.Errorf("lumberjack: marshal artifact: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("lumberjack: write artifact: %w", err)
	}
	return nil
}

// ReadArtifactFile reads a YAML artifact. It does not verify it; call Restore.
func ReadArtifactFile(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lumberjack: read artifact: %w", err)
	}
	var a Artifact
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidArtifact, path, err)
	}
	return &a, nil
}

// SaveArtifact stores a in ms under a.Name, replacing any model with that name.
func SaveArtifact(ms ModelStore, a *Artifact) error {
	if a.Name == "" {
		return fmt.Errorf("%w: model name is required", ErrInvalidArtifact)
	}
	if _, err := ms.SaveModel(a.model()); err != nil {
		return fmt.Errorf("lumberjack: save model %s: %w", a.Name, err)
	}
	return nil
}

// LoadArtifact reads the model called name from ms.
func LoadArtifact(ms ModelStore, name string) (*Artifact, error) {
	m, err := ms.LoadModel(name)
	if err != nil {
		return nil, fmt.Errorf("lumberjack: load model: %w", err)
	}
	return artifactFromModel(m), nil
}

func (a *Artifact) model() *store.Model {
	m := &store.Model{
		Name:           a.Name,
		TokenDelimiter: a.Delimiter,
		SequenceHash:   a.Hash,
		CreatedAt:      a.Created,
		Labels:         append([]string(nil), a.Labels...),
		Pairs:          make([]store.TypePair, len(a.Pairs)),
		Steps:          make([]store.MergeStep, len(a.Sequence)),
	}
	for i, p := range a.Pairs {
		m.Pairs[i] = store.TypePair{ParentType: int32(p.Parent), ChildType: int32(p.Child)}
	}
	for i, id := range a.Sequence {
		m.Steps[i] = store.MergeStep{TypeID: int32(id), Label: a.Decoded[i]}
	}
	if a.Stats != nil {
		m.MergesRequested = a.Stats.Requested
		m.NodesBefore = a.Stats.NodesBefore
		m.NodesAfter = a.Stats.NodesAfter
		for i, st := range a.Stats.Steps {
			if i < len(m.Steps) {
				m.Steps[i].Count = st.Count
				m.Steps[i].Merged = st.Merged
			}
		}
	}
	return m
}

func artifactFromModel(m *store.Model) *Artifact {
	a := &Artifact{
		Name:      m.Name,
		Delimiter: m.TokenDelimiter,
		Created:   m.CreatedAt,
		Labels:    m.Labels,
		Pairs:     make([]EdgeType, len(m.Pairs)),
		Sequence:  make(MergeSequence, len(m.Steps)),
		Decoded:   make([]string, len(m.Steps)),
		Hash:      m.SequenceHash,
		Stats: &Stats{
			Requested:   m.MergesRequested,
			NodesBefore: m.NodesBefore,
			NodesAfter:  m.NodesAfter,
			Steps:       make([]Step, len(m.Steps)),
		},
	}
	for i, p := range m.Pairs {
		a.Pairs[i] = EdgeType{Parent: TypeID(p.ParentType), Child: TypeID(p.ChildType)}
	}
	for i, st := range m.Steps {
		a.Sequence[i] = TypeID(st.TypeID)
		a.Decoded[i] = st.Label
		a.Stats.Steps[i] = Step{Edge: TypeID(st.TypeID), Label: st.Label, Count: st.Count, Merged: st.Merged}
	}
	return a
}
