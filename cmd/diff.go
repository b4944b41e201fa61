package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stackgen-cli/compose-edit/internal/diff"
	"github.com/stackgen-cli/compose-edit/internal/models"
	"github.com/stackgen-cli/compose-edit/internal/parser"
	"github.com/stackgen-cli/compose-edit/internal/reporter"
	"github.com/stackgen-cli/compose-edit/internal/snapshot"
)

var (
	formatFlag     string
	serviceFilter  string
	severityMin    string
	strictMode     bool
	snapshotFlag   string
	saveSnapshot   string
	categoryMode   bool
	categoryDetail bool
	unifiedMode    bool
)

var diffCmd = &cobra.Command{
	Use:   "diff <old-compose.yml> <new-compose.yml>",
	Short: "Compare two local Docker Compose files",
	Long: `Compare two Docker Compose files and report semantic differences.

Examples:
  compose-edit diff docker-compose.old.yml docker-compose.new.yml
  compose-edit diff --format json old.yml new.yml
  compose-edit diff --service api old.yml new.yml
  compose-edit diff --strict old.yml new.yml

  # Compare against a snapshot taken before an applied change-set
  compose-edit diff --snapshot 01hx... ./stacks/shop
  compose-edit diff --save-snapshot "before upgrade" ./stacks/shop

  # Category summary
  compose-edit diff --category old.yml new.yml
  compose-edit diff --category-detail old.yml new.yml`,
	Args: cobra.RangeArgs(1, 2),
	Run:  runDiff,
}

func init() {
	diffCmd.Flags().StringVarP(&formatFlag, "format", "f", "text", "Output format: text, json, markdown")
	diffCmd.Flags().StringVarP(&serviceFilter, "service", "s", "", "Filter to specific service")
	diffCmd.Flags().StringVar(&severityMin, "severity", "info", "Minimum severity: info, warning, breaking")
	diffCmd.Flags().BoolVar(&strictMode, "strict", false, "Exit 1 if breaking changes detected")
	diffCmd.Flags().StringVar(&snapshotFlag, "snapshot", "", "Compare against a saved snapshot id")
	diffCmd.Flags().StringVar(&saveSnapshot, "save-snapshot", "", "Save the compose file as a snapshot with this message")
	diffCmd.Flags().BoolVar(&categoryMode, "category", false, "Show category summary report")
	diffCmd.Flags().BoolVar(&categoryDetail, "category-detail", false, "Show detailed category report")
	diffCmd.Flags().BoolVar(&unifiedMode, "unified", false, "Also print a unified YAML diff")

	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) {
	var oldFile, newFile string
	var oldData, newData []byte

	rules, err := reportRules()
	if err != nil {
		color.Red("Error loading rules: %v", err)
		os.Exit(2)
	}

	// Handle save-snapshot mode
	if saveSnapshot != "" {
		path, data := readComposeOrExit(args[0])
		snaps := snapshotsFor(path)
		snap, err := snaps.Save(filepath.Base(filepath.Dir(path)), path, data, saveSnapshot)
		if err != nil {
			color.Red("Error saving snapshot: %v", err)
			os.Exit(2)
		}
		color.Green("Saved snapshot %s", snap.ID)
		return
	}

	if snapshotFlag != "" {
		// Snapshot comparison
		newFile, newData = readComposeOrExit(args[0])
		snap, err := snapshotsFor(newFile).Load(snapshotFlag)
		if err != nil {
			color.Red("Error loading snapshot '%s': %v", snapshotFlag, err)
			os.Exit(2)
		}
		oldFile = "(snapshot: " + snap.ID + ")"
		oldData = []byte(snap.Content)
	} else {
		// Standard two-file comparison
		if len(args) < 2 {
			color.Red("Usage: compose-edit diff <old-compose.yml> <new-compose.yml>")
			os.Exit(2)
		}
		oldFile, oldData = readComposeOrExit(args[0])
		newFile, newData = readComposeOrExit(args[1])
	}

	report, err := diff.CompareYAML(oldData, newData, rules)
	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(2)
	}

	// Filter by service if specified
	if serviceFilter != "" {
		report = diff.FilterByService(report, serviceFilter)
	}

	// Filter by severity
	report = diff.FilterBySeverity(report, severityMin)

	format := formatFlag
	switch {
	case categoryDetail:
		format = "category-detail"
	case categoryMode:
		format = "category"
	}
	output, err := renderReport(report, format, oldFile, newFile)
	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(2)
	}
	fmt.Println(output)

	if unifiedMode {
		text, err := reporter.ToUnified(string(oldData), string(newData), oldFile, newFile)
		if err != nil {
			color.Red("Error: %v", err)
			os.Exit(2)
		}
		fmt.Print(reporter.Colorize(text))
	}

	// Exit code handling
	if strictMode && report.Summary.BreakingCount > 0 {
		os.Exit(1)
	}
}

// readComposeOrExit resolves and reads a compose file or directory
func readComposeOrExit(path string) (string, []byte) {
	resolved, err := parser.ResolveComposePath(path)
	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(2)
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		color.Red("Error reading %s: %v", resolved, err)
		os.Exit(2)
	}
	return resolved, data
}

// snapshotsFor returns the snapshot manager next to a compose file
func snapshotsFor(composeFile string) *snapshot.Manager {
	return snapshot.NewManager(filepath.Join(filepath.Dir(composeFile), snapshot.DirName))
}

func changeCount(report *models.DiffReport) string {
	s := report.Summary
	return fmt.Sprintf("%d change(s), %d breaking", s.TotalChanges, s.BreakingCount)
}
