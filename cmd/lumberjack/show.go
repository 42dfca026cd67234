package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/lumberjack"
	"github.com/jward/lumberjack/internal/tree"
)

// showIndent matches the indentation used in compressed-tree dumps.
const showIndent = "|   "

var (
	flagLimit  int
	flagLeaves bool
)

var showCmd = &cobra.Command{
	Use:   "show [paths...]",
	Short: "Print parsed, optionally compressed, trees",
	Long:  "Loads inputs like fit does and pretty-prints the resulting trees. With --model or --artifact the stored merge sequence is applied first.",
	RunE:  runShow,
}

func init() {
	addInputFlags(showCmd)
	showCmd.Flags().StringVar(&flagModel, "model", "", "apply the named model before printing")
	showCmd.Flags().StringVar(&flagArtifact, "artifact", "", "apply a YAML artifact before printing")
	showCmd.Flags().IntVar(&flagLimit, "limit", 100, "maximum number of trees to print (0 = all)")
	showCmd.Flags().BoolVar(&flagLeaves, "leaves", false, "move node tokens into TOKEN_NODE leaves")
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	trees, _, err := loadForest(ctx, cmd, args)
	if err != nil {
		return outputError("show", err)
	}

	if flagModel != "" || flagArtifact != "" {
		art, err := loadArtifact()
		if err != nil {
			return outputError("show", err)
		}
		res, err := replay(ctx, cmd, art, trees)
		if err != nil {
			return outputError("show", err)
		}
		trees = res.Trees
	}

	total := len(trees)
	if flagLimit > 0 && len(trees) > flagLimit {
		trees = trees[:flagLimit]
	}
	out := make([]CLITree, 0, len(trees))
	for _, t := range trees {
		if flagLeaves {
			tree.MoveTokensToLeaves(t.Root)
		}
		out = append(out, renderTree(t))
	}
	return outputResult(CLIResult{Command: "show", Results: out, TotalCount: &total})
}

func renderTree(t lumberjack.Tree) CLITree {
	var b strings.Builder
	_ = t.Root.PrettyPrint(&b, showIndent)
	return CLITree{Label: t.Label, Size: t.Root.Size(), Tree: b.String()}
}
