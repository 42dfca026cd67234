package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jward/lumberjack"
)

var (
	flagMerges    int
	flagDelimiter string
)

var fitCmd = &cobra.Command{
	Use:   "fit [paths...]",
	Short: "Learn a merge sequence from a corpus",
	Long:  "Loads source files and JSON-lines tree files, greedily merges the most frequent parent/child type pattern up to --merges times, and saves the resulting model.",
	RunE:  runFit,
}

func init() {
	addInputFlags(fitCmd)
	fitCmd.Flags().IntVar(&flagMerges, "merges", 0, "merge budget (default: config fit.merges)")
	fitCmd.Flags().StringVar(&flagDelimiter, "delimiter", "", "token delimiter for merged nodes (default: config fit.token_delimiter)")
	fitCmd.Flags().StringVar(&flagModel, "model", "", "save the model in the database under this name")
	fitCmd.Flags().StringVar(&flagArtifact, "artifact", "", "write the model as a YAML artifact")
	fitCmd.Flags().StringVar(&flagOut, "out", "", "write compressed trees as JSON lines (.gz/.lz4 compress)")
}

func runFit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	merges := cfg.Fit.Merges
	if cmd.Flags().Changed("merges") {
		merges = flagMerges
	}
	delimiter := cfg.Fit.TokenDelimiter
	if cmd.Flags().Changed("delimiter") {
		delimiter = flagDelimiter
	}

	trees, warnings, err := loadForest(ctx, cmd, args)
	if err != nil {
		return outputError("fit", err)
	}

	opts, err := compressorOptions(ctx, cmd)
	if err != nil {
		return outputError("fit", err)
	}
	comp := lumberjack.New(append(opts, lumberjack.WithTokenDelimiter(delimiter))...)

	res, err := comp.Fit(trees, merges)
	if err != nil {
		return outputError("fit", err)
	}

	name := flagModel
	if name == "" {
		name = "default"
	}
	art, err := lumberjack.NewArtifact(name, comp.Vocabulary(), res.Sequence, comp.TokenDelimiter())
	if err != nil {
		return outputError("fit", err)
	}
	art.Stats = &res.Stats

	summary := toCLICompression(res, warnings)
	summary.Hash = art.Hash

	if flagModel != "" {
		if err := saveModel(art); err != nil {
			return outputError("fit", err)
		}
		summary.Model = flagModel
	}
	if flagArtifact != "" {
		if err := lumberjack.WriteArtifactFile(flagArtifact, art); err != nil {
			return outputError("fit", err)
		}
		summary.Artifact = flagArtifact
	}
	if flagOut != "" {
		if err := writeTrees(flagOut, res.Trees); err != nil {
			return outputError("fit", err)
		}
		summary.Output = flagOut
	}

	return outputResult(CLIResult{Command: "fit", Results: summary})
}

func saveModel(art *lumberjack.Artifact) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()
	if err := lumberjack.SaveArtifact(s, art); err != nil {
		return err
	}
	if err := s.SetMetadata("last_model", art.Name); err != nil {
		return fmt.Errorf("recording last model: %w", err)
	}
	return nil
}
