package main

import (
	"time"

	"github.com/jward/lumberjack"
)

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLIStep is one merge iteration.
type CLIStep struct {
	Step   int    `json:"step"`
	TypeID int32  `json:"type_id"`
	Label  string `json:"label"`
	Count  int    `json:"count"`
	Merged int    `json:"merged"`
}

// CLICompression summarizes a fit or transform run.
type CLICompression struct {
	Model       string    `json:"model,omitempty"`
	Artifact    string    `json:"artifact,omitempty"`
	Output      string    `json:"output,omitempty"`
	Hash        string    `json:"hash,omitempty"`
	Trees       int       `json:"trees"`
	Requested   int       `json:"merges_requested"`
	Performed   int       `json:"merges_performed"`
	NodesBefore int       `json:"nodes_before"`
	NodesAfter  int       `json:"nodes_after"`
	Ratio       float64   `json:"ratio"`
	Steps       []CLIStep `json:"steps"`
	Warnings    []string  `json:"warnings,omitempty"`
}

// CLIModel is a JSON-friendly stored model summary.
type CLIModel struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Hash        string    `json:"hash"`
	Requested   int       `json:"merges_requested"`
	Steps       int       `json:"steps"`
	Labels      int       `json:"labels"`
	NodesBefore int       `json:"nodes_before"`
	NodesAfter  int       `json:"nodes_after"`
	CreatedAt   time.Time `json:"created_at"`
}

// CLITree is a printed tree.
type CLITree struct {
	Label string `json:"label"`
	Size  int    `json:"size"`
	Tree  string `json:"tree"`
}

// toCLISteps converts merge statistics to CLI steps.
func toCLISteps(steps []lumberjack.Step) []CLIStep {
	out := make([]CLIStep, len(steps))
	for i, st := range steps {
		out[i] = CLIStep{Step: i + 1, TypeID: int32(st.Edge), Label: st.Label, Count: st.Count, Merged: st.Merged}
	}
	return out
}

// toCLICompression builds the summary for a finished run.
func toCLICompression(res *lumberjack.Result, warnings []string) CLICompression {
	return CLICompression{
		Trees:       len(res.Trees),
		Requested:   res.Stats.Requested,
		Performed:   res.Stats.Performed(),
		NodesBefore: res.Stats.NodesBefore,
		NodesAfter:  res.Stats.NodesAfter,
		Ratio:       res.Stats.Ratio(),
		Steps:       toCLISteps(res.Stats.Steps),
		Warnings:    warnings,
	}
}
