package main

import (
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List stored models",
	Args:  cobra.NoArgs,
	RunE:  runModels,
}

var deleteModelCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a stored model",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeleteModel,
}

var stepsCmd = &cobra.Command{
	Use:   "steps <name>",
	Short: "Show the merge steps of a stored model",
	Args:  cobra.ExactArgs(1),
	RunE:  runSteps,
}

func init() {
	modelsCmd.AddCommand(deleteModelCmd)
	modelsCmd.AddCommand(stepsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("models", err)
	}
	defer s.Close()

	infos, err := s.Models()
	if err != nil {
		return outputError("models", err)
	}
	out := make([]CLIModel, len(infos))
	for i, m := range infos {
		out[i] = CLIModel{
			ID:          m.ID,
			Name:        m.Name,
			Hash:        m.SequenceHash,
			Requested:   m.MergesRequested,
			Steps:       m.StepCount,
			Labels:      m.LabelCount,
			NodesBefore: m.NodesBefore,
			NodesAfter:  m.NodesAfter,
			CreatedAt:   m.CreatedAt,
		}
	}
	total := len(out)
	return outputResult(CLIResult{Command: "models", Results: out, TotalCount: &total})
}

func runDeleteModel(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("models delete", err)
	}
	defer s.Close()

	if err := s.DeleteModel(args[0]); err != nil {
		return outputError("models delete", err)
	}
	return outputResult(CLIResult{Command: "models delete", Results: args[0]})
}

func runSteps(cmd *cobra.Command, args []string) error {
	flagModel = args[0]
	art, err := loadArtifact()
	if err != nil {
		return outputError("models steps", err)
	}
	// Verify the stored tables still decode to the recorded steps.
	if _, _, err := art.Restore(); err != nil {
		return outputError("models steps", err)
	}
	var steps []CLIStep
	if art.Stats != nil {
		steps = toCLISteps(art.Stats.Steps)
	}
	total := len(steps)
	return outputResult(CLIResult{Command: "models steps", Results: steps, TotalCount: &total})
}
