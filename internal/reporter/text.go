package reporter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/stackgen-cli/compose-edit/internal/models"
)

// valueWidth caps how much of a before/after value a preview line shows.
const valueWidth = 48

// ToText renders the pending edits of a preview for the terminal.
// Service edits are listed per service; volume, network, secret and config
// edits follow under a separate heading.
func ToText(report *models.DiffReport, currentLabel, previewLabel string) string {
	var sb strings.Builder

	bold := color.New(color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	fmt.Fprintf(&sb, "%s %s => %s\n", bold("Pending edits:"), currentLabel, previewLabel)

	s := report.Summary
	fmt.Fprintf(&sb, "services: %d edited, %d new, %d dropped\n",
		s.Services.Changed, s.Services.Added, s.Services.Removed)
	fmt.Fprintf(&sb, "fields:   %d total, %s, %s, %d info\n",
		s.TotalChanges,
		red(strconv.Itoa(s.BreakingCount)+" breaking"),
		yellow(strconv.Itoa(s.WarningCount)+" warning"),
		s.InfoCount)

	if len(report.Changes) == 0 {
		sb.WriteString(green("\nNothing to apply.\n"))
		return sb.String()
	}

	services, resources := splitByScope(report.Changes)
	last := ""
	for i, c := range services {
		if i == 0 || c.Name != last {
			last = c.Name
			fmt.Fprintf(&sb, "\n[%s]\n", cyan(c.Name))
		}
		fmt.Fprintf(&sb, "  %s %s %s\n", changeIcon(c.Kind, c.Severity), severityLabel(c.Severity), describe(extractField(c.Path), c))
	}

	if len(resources) > 0 {
		sb.WriteString("\nresources:\n")
		for _, c := range resources {
			fmt.Fprintf(&sb, "  %s %s %s %s %s\n", changeIcon(c.Kind, c.Severity), severityLabel(c.Severity), c.Scope, c.Name, c.Kind)
		}
	}

	return sb.String()
}

// ToNotices renders canonicalization notices, one per line
func ToNotices[N fmt.Stringer](notices []N) string {
	if len(notices) == 0 {
		return ""
	}
	yellow := color.New(color.FgYellow).SprintFunc()

	var sb strings.Builder
	sb.WriteString(yellow(fmt.Sprintf("%d value(s) replaced by defaults:\n", len(notices))))
	for _, n := range notices {
		sb.WriteString("  " + n.String() + "\n")
	}
	return sb.String()
}

func describe(target string, c models.Change) string {
	switch c.Kind {
	case models.ChangeAdded:
		return fmt.Sprintf("%s set to %s", target, formatValue(c.After))
	case models.ChangeRemoved:
		return fmt.Sprintf("%s unset (was %s)", target, formatValue(c.Before))
	default:
		return fmt.Sprintf("%s: %s => %s", target, formatValue(c.Before), formatValue(c.After))
	}
}

// splitByScope separates service edits, ordered by service name, from
// top-level resource edits. Order within a service is preserved.
func splitByScope(changes []models.Change) (services, resources []models.Change) {
	for _, c := range changes {
		if c.Scope == models.ScopeService {
			services = append(services, c)
		} else {
			resources = append(resources, c)
		}
	}
	sort.SliceStable(services, func(i, j int) bool { return services[i].Name < services[j].Name })
	return services, resources
}

func changeIcon(kind models.ChangeKind, severity models.Severity) string {
	if severity == models.SeverityBreaking {
		return color.New(color.FgRed).Sprint("!")
	}
	switch kind {
	case models.ChangeAdded:
		return color.New(color.FgGreen).Sprint("+")
	case models.ChangeRemoved:
		return color.New(color.FgYellow).Sprint("-")
	default:
		return "~"
	}
}

func severityLabel(s models.Severity) string {
	switch s {
	case models.SeverityBreaking:
		return color.New(color.FgRed).Sprint("BREAKING")
	case models.SeverityWarning:
		return color.New(color.FgYellow).Sprint("WARNING ")
	default:
		return "INFO    "
	}
}

// extractField strips the "services.<name>." prefix
func extractField(path string) string {
	if parts := strings.SplitN(path, ".", 3); len(parts) == 3 {
		return parts[2]
	}
	return path
}

func formatValue(v any) string {
	var s string
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		s = strconv.Quote(val)
	default:
		s = fmt.Sprint(val)
	}
	if len(s) > valueWidth {
		s = s[:valueWidth-3] + "..."
	}
	return s
}
