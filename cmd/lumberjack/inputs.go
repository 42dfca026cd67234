package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jward/lumberjack"
	"github.com/jward/lumberjack/internal/jsontree"
	"github.com/jward/lumberjack/internal/rules"
)

var (
	flagFunctions    bool
	flagRule         string
	flagNonMergeable []string
	flagWorkers      int
	flagModel        string
	flagArtifact     string
	flagOut          string
)

// addInputFlags registers the flags shared by commands that load a forest.
func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&flagFunctions, "functions", false, "split source files into one tree per function")
	cmd.Flags().IntVar(&flagWorkers, "workers", 0, "parse workers (default: config load.workers, 0 = one per CPU)")
	cmd.Flags().StringVar(&flagRule, "rule", "", "Risor rule file deciding which nodes may merge")
	cmd.Flags().StringSliceVar(&flagNonMergeable, "non-mergeable", nil, "node types that never merge (default: config fit.non_mergeable)")
}

// loadOptions merges config values with any flags set on cmd.
func loadOptions(cmd *cobra.Command) lumberjack.LoadOptions {
	opts := lumberjack.LoadOptions{
		TypePattern:       cfg.Parse.TypePattern,
		DropDocstrings:    cfg.Parse.DropDocstrings,
		NamedOnly:         cfg.Parse.NamedOnly,
		ValidateJSON:      cfg.Load.ValidateJSON,
		Functions:         cfg.Parse.Functions,
		HideFunctionNames: cfg.Parse.HideFunctionNames,
		Workers:           cfg.Load.Workers,
		SkipDirs:          cfg.Load.SkipDirs,
		Git:               true,
		Logger:            logger,
	}
	if cmd.Flags().Changed("functions") {
		opts.Functions = flagFunctions
	}
	if cmd.Flags().Changed("workers") {
		opts.Workers = flagWorkers
	}
	return opts
}

// compressorOptions builds the eligibility options shared by fit and
// transform. Both must agree for a replay to reproduce a fit.
func compressorOptions(ctx context.Context, cmd *cobra.Command) ([]lumberjack.Option, error) {
	opts := []lumberjack.Option{lumberjack.WithLogger(logger)}

	nonMergeable := cfg.Fit.NonMergeable
	if cmd.Flags().Changed("non-mergeable") {
		nonMergeable = flagNonMergeable
	}
	if len(nonMergeable) > 0 {
		opts = append(opts, lumberjack.WithNonMergeable(nonMergeable...))
	}

	rulePath := cfg.Fit.Rule
	if cmd.Flags().Changed("rule") {
		rulePath = flagRule
	}
	if rulePath != "" {
		rule, err := rules.Load(ctx, rulePath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, lumberjack.WithFilter(rule.Filter(ctx, logger)))
	}
	return opts, nil
}

// loadForest loads args and splits per-file failures into warnings. It fails
// only when nothing loaded at all.
func loadForest(ctx context.Context, cmd *cobra.Command, args []string) ([]lumberjack.Tree, []string, error) {
	if len(args) == 0 {
		args = []string{"."}
	}
	trees, err := lumberjack.LoadForest(ctx, args, loadOptions(cmd))
	var warnings []string
	if err != nil {
		if len(trees) == 0 {
			return nil, nil, err
		}
		var joined interface{ Unwrap() []error }
		if errors.As(err, &joined) {
			for _, e := range joined.Unwrap() {
				warnings = append(warnings, e.Error())
			}
		} else {
			warnings = append(warnings, err.Error())
		}
	}
	if len(trees) == 0 {
		return nil, nil, fmt.Errorf("no trees found in %v", args)
	}
	return trees, warnings, nil
}

// loadArtifact reads the model named by --artifact or --model.
func loadArtifact() (*lumberjack.Artifact, error) {
	switch {
	case flagArtifact != "" && flagModel != "":
		return nil, errors.New("--model and --artifact are mutually exclusive")
	case flagArtifact != "":
		return lumberjack.ReadArtifactFile(flagArtifact)
	case flagModel != "":
		s, err := openStore()
		if err != nil {
			return nil, err
		}
		defer s.Close()
		return lumberjack.LoadArtifact(s, flagModel)
	default:
		return nil, errors.New("one of --model or --artifact is required")
	}
}

// writeTrees writes labeled trees as JSON lines, compressed by extension.
func writeTrees(path string, trees []lumberjack.Tree) error {
	w, err := jsontree.Create(path)
	if err != nil {
		return err
	}
	for _, t := range trees {
		if err := w.Write(t.Label, t.Root); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}
