package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
)

// maxTextSteps caps the step table in text output; JSON always has all.
const maxTextSteps = 20

// outputResult writes result in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(os.Stdout, result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false
	return tbl
}

// formatStepsText formats merge steps as a table.
func formatStepsText(w io.Writer, steps []CLIStep) {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"#", "EDGE TYPE", "COUNT", "MERGED"})
	for _, st := range steps {
		tbl.AppendRow(table.Row{st.Step, st.Label, humanize.Comma(int64(st.Count)), humanize.Comma(int64(st.Merged))})
	}
	fmt.Fprintln(w, tbl.Render())
}

// formatCompressionText formats a fit or transform summary.
func formatCompressionText(w io.Writer, c CLICompression) {
	if c.Model != "" {
		fmt.Fprintf(w, "Model: %s\n", c.Model)
	}
	if c.Artifact != "" {
		fmt.Fprintf(w, "Artifact: %s\n", c.Artifact)
	}
	if c.Output != "" {
		fmt.Fprintf(w, "Output: %s\n", c.Output)
	}
	fmt.Fprintf(w, "Trees: %s\n", humanize.Comma(int64(c.Trees)))
	fmt.Fprintf(w, "Merges: %d of %d\n", c.Performed, c.Requested)
	fmt.Fprintf(w, "Nodes: %s -> %s (%.2fx)\n",
		humanize.Comma(int64(c.NodesBefore)), humanize.Comma(int64(c.NodesAfter)), c.Ratio)
	if c.Hash != "" {
		fmt.Fprintf(w, "Sequence hash: %s\n", c.Hash)
	}

	if len(c.Steps) > 0 {
		fmt.Fprintln(w)
		steps := c.Steps
		if len(steps) > maxTextSteps {
			steps = steps[:maxTextSteps]
		}
		formatStepsText(w, steps)
		if len(c.Steps) > len(steps) {
			fmt.Fprintf(w, "... %d more steps\n", len(c.Steps)-len(steps))
		}
	}

	for _, warn := range c.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
}

// formatModelsText formats stored models as a table.
func formatModelsText(w io.Writer, models []CLIModel) {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"NAME", "STEPS", "LABELS", "NODES BEFORE", "NODES AFTER", "CREATED", "HASH"})
	for _, m := range models {
		hash := m.Hash
		if len(hash) > 12 {
			hash = hash[:12]
		}
		tbl.AppendRow(table.Row{
			m.Name,
			m.Steps,
			m.Labels,
			humanize.Comma(int64(m.NodesBefore)),
			humanize.Comma(int64(m.NodesAfter)),
			humanize.Time(m.CreatedAt),
			hash,
		})
	}
	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d models", len(models))})
	fmt.Fprintln(w, tbl.Render())
}

// formatTreesText prints trees between separator lines.
func formatTreesText(w io.Writer, trees []CLITree) {
	sep := strings.Repeat("-", 31)
	for _, t := range trees {
		fmt.Fprintln(w, sep)
		fmt.Fprintf(w, "label: %s (%s nodes)\n", t.Label, humanize.Comma(int64(t.Size)))
		fmt.Fprint(w, t.Tree)
		fmt.Fprintln(w, sep)
	}
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case CLICompression:
		formatCompressionText(w, v)
	case []CLIModel:
		formatModelsText(w, v)
	case []CLITree:
		formatTreesText(w, v)
	case []CLIStep:
		formatStepsText(w, v)
	case string:
		fmt.Fprintln(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}

	if result.TotalCount != nil {
		count := *result.TotalCount
		shown := resultLen(result.Results)
		if shown < count {
			fmt.Fprintf(w, "\nShowing %d of %d results\n", shown, count)
		}
	}
	return nil
}

// resultLen returns the length of a result slice, or 1 for a single value.
func resultLen(v any) int {
	switch r := v.(type) {
	case []CLIModel:
		return len(r)
	case []CLITree:
		return len(r)
	case []CLIStep:
		return len(r)
	case nil:
		return 0
	default:
		return 1
	}
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
