package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stackgen-cli/compose-edit/internal/diff"
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots <compose-file|stack-dir>",
	Short: "List the snapshots of a local stack",
	Long: `List the snapshots taken before each applied change-set, newest
first, with the number of changes made since.

Examples:
  compose-edit snapshots ./stacks/shop
  compose-edit diff --snapshot <id> ./stacks/shop`,
	Args: cobra.ExactArgs(1),
	RunE: runSnapshots,
}

func init() {
	rootCmd.AddCommand(snapshotsCmd)
}

func runSnapshots(cmd *cobra.Command, args []string) error {
	path, current := readComposeOrExit(args[0])
	snaps, err := snapshotsFor(path).List()
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		color.Yellow("No snapshots for %s", path)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tSINCE\tMESSAGE")
	for _, snap := range snaps {
		since := "-"
		if report, err := diff.CompareYAML([]byte(snap.Content), current, nil); err == nil {
			since = changeCount(report)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", snap.ID, snap.CreatedAt.Local().Format(time.DateTime), since, snap.Message)
	}
	return w.Flush()
}
