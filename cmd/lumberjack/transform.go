package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jward/lumberjack"
)

var transformCmd = &cobra.Command{
	Use:   "transform [paths...]",
	Short: "Replay a fitted merge sequence on new trees",
	Long:  "Loads a model from the database (--model) or a YAML artifact (--artifact) and applies its merges, in order, to the given inputs.",
	RunE:  runTransform,
}

func init() {
	addInputFlags(transformCmd)
	transformCmd.Flags().StringVar(&flagModel, "model", "", "model name in the database")
	transformCmd.Flags().StringVar(&flagArtifact, "artifact", "", "YAML artifact file")
	transformCmd.Flags().StringVar(&flagOut, "out", "", "write compressed trees as JSON lines (.gz/.lz4 compress)")
}

func runTransform(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	art, err := loadArtifact()
	if err != nil {
		return outputError("transform", err)
	}

	trees, warnings, err := loadForest(ctx, cmd, args)
	if err != nil {
		return outputError("transform", err)
	}

	res, err := replay(ctx, cmd, art, trees)
	if err != nil {
		return outputError("transform", err)
	}

	summary := toCLICompression(res, warnings)
	summary.Model = art.Name
	summary.Artifact = flagArtifact
	summary.Hash = art.Hash
	if flagOut != "" {
		if err := writeTrees(flagOut, res.Trees); err != nil {
			return outputError("transform", err)
		}
		summary.Output = flagOut
	}
	return outputResult(CLIResult{Command: "transform", Results: summary})
}

// replay restores art and transforms trees with it.
func replay(ctx context.Context, cmd *cobra.Command, art *lumberjack.Artifact, trees []lumberjack.Tree) (*lumberjack.Result, error) {
	opts, err := compressorOptions(ctx, cmd)
	if err != nil {
		return nil, err
	}
	comp, seq, err := art.Compressor(opts...)
	if err != nil {
		return nil, err
	}
	return comp.Transform(trees, seq)
}
