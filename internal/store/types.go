package store

import (
	"errors"
	"time"
)

// ErrModelNotFound is returned when no model has the requested name.
var ErrModelNotFound = errors.New("store: model not found")

// Model is a persisted merge sequence together with the slice of the
// interning tables needed to resolve it.
type Model struct {
	ID              int64
	Name            string
	TokenDelimiter  string
	SequenceHash    string
	MergesRequested int
	NodesBefore     int
	NodesAfter      int
	CreatedAt       time.Time

	Labels []string
	Pairs  []TypePair
	Steps  []MergeStep
}

// TypePair is one row of the composite type table.
type TypePair struct {
	ParentType int32
	ChildType  int32
}

// MergeStep is one recorded iteration of a fit run.
type MergeStep struct {
	TypeID int32
	Label  string
	Count  int
	Merged int
}

// ModelInfo summarizes a stored model without its tables.
type ModelInfo struct {
	ID              int64
	Name            string
	SequenceHash    string
	MergesRequested int
	StepCount       int
	LabelCount      int
	NodesBefore     int
	NodesAfter      int
	CreatedAt       time.Time
}
