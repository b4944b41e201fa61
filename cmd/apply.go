package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stackgen-cli/compose-edit/internal/diff"
	"github.com/stackgen-cli/compose-edit/internal/models"
)

var (
	applyPreview bool
	applyFormat  string
	applyUnified bool
	applyStrict  bool
)

var applyCmd = &cobra.Command{
	Use:   "apply <changes.json|->",
	Short: "Submit a change-set to the configured stack",
	Long: `Submit a change-set (the JSON wire format) to the mutation service.
With --preview nothing is written: the semantic diff of the result is
printed instead, optionally followed by a unified YAML diff.

Examples:
  compose-edit apply changes.json
  compose-edit apply --preview --unified changes.json
  cat changes.json | compose-edit apply --preview --format markdown -`,
	Args: cobra.ExactArgs(1),
	RunE: runApply,
}

func init() {
	applyCmd.Flags().BoolVar(&applyPreview, "preview", false, "Render the result without writing")
	applyCmd.Flags().StringVarP(&applyFormat, "format", "f", "text", "Preview format: text, json, markdown, category, category-detail")
	applyCmd.Flags().BoolVar(&applyUnified, "unified", false, "Also print a unified YAML diff with --preview")
	applyCmd.Flags().BoolVar(&applyStrict, "strict", false, "Refuse to apply when the preview has breaking changes")
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	ref, err := cfg.StackRef()
	if err != nil {
		return err
	}
	changes, err := readChanges(args[0])
	if err != nil {
		return err
	}
	if changes.IsEmpty() {
		color.Yellow("Change-set is empty, nothing to submit")
		return nil
	}

	c := newClient()
	ctx := cmd.Context()

	if applyPreview || applyStrict {
		resp, err := c.Update(ctx, ref, models.UpdateRequest{Changes: changes, Preview: true})
		if err != nil {
			return err
		}
		rules, err := reportRules()
		if err != nil {
			return err
		}
		report, err := diff.CompareYAML([]byte(resp.OriginalYAML), []byte(resp.ModifiedYAML), rules)
		if err != nil {
			return err
		}
		if applyPreview {
			return printPreview(report, resp.OriginalYAML, resp.ModifiedYAML, applyFormat, applyUnified)
		}
		if diff.HasBreaking(report) {
			return fmt.Errorf("change-set has %d breaking change(s), rerun with --preview to inspect", report.Summary.BreakingCount)
		}
	}

	resp, err := c.Update(ctx, ref, models.UpdateRequest{Changes: changes})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("change-set rejected: %s", resp.Message)
	}
	color.Green("Applied to %s: %s", ref, resp.Message)
	return nil
}
