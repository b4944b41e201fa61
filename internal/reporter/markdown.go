package reporter

import (
	"fmt"
	"strings"

	"github.com/stackgen-cli/compose-edit/internal/models"
)

// ToMarkdown generates a Markdown preview suitable for review comments
func ToMarkdown(report *models.DiffReport, original, modified string) string {
	var sb strings.Builder

	sb.WriteString("## Compose Change Preview\n\n")
	sb.WriteString(fmt.Sprintf("**Comparing:** `%s` -> `%s`\n\n", original, modified))

	s := report.Summary
	sb.WriteString("### Summary\n\n")
	sb.WriteString("| Resource | Added | Removed | Changed |\n")
	sb.WriteString("|----------|-------|---------|---------|\n")
	for _, row := range []struct {
		label  string
		counts models.ResourceCounts
	}{
		{"Services", s.Services},
		{"Networks", s.Networks},
		{"Volumes", s.Volumes},
		{"Secrets", s.Secrets},
		{"Configs", s.Configs},
	} {
		if row.counts == (models.ResourceCounts{}) {
			continue
		}
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d |\n", row.label, row.counts.Added, row.counts.Removed, row.counts.Changed))
	}
	sb.WriteString(fmt.Sprintf("\n**Total changes:** %d", s.TotalChanges))
	if s.BreakingCount > 0 {
		sb.WriteString(fmt.Sprintf(", **%d breaking**", s.BreakingCount))
	}
	if s.WarningCount > 0 {
		sb.WriteString(fmt.Sprintf(", %d warnings", s.WarningCount))
	}
	sb.WriteString("\n\n")

	if s.TotalChanges == 0 {
		sb.WriteString("No differences found.\n")
		return sb.String()
	}

	writeSeverityTable(&sb, "Breaking Changes", filterBySeverity(report.Changes, models.SeverityBreaking), false)
	writeSeverityTable(&sb, "Warnings", filterBySeverity(report.Changes, models.SeverityWarning), false)

	// long info sections are collapsed
	info := filterBySeverity(report.Changes, models.SeverityInfo)
	writeSeverityTable(&sb, "Info Changes", info, len(info) > 5)

	return sb.String()
}

func writeSeverityTable(sb *strings.Builder, title string, changes []models.Change, collapsed bool) {
	if len(changes) == 0 {
		return
	}
	if collapsed {
		sb.WriteString(fmt.Sprintf("<details>\n<summary>%s (%d)</summary>\n\n", title, len(changes)))
	} else {
		sb.WriteString(fmt.Sprintf("### %s\n\n", title))
	}

	sb.WriteString("| Name | Field | Change |\n")
	sb.WriteString("|------|-------|--------|\n")
	for _, c := range changes {
		name := c.Name
		field := extractField(c.Path)
		if c.Scope != models.ScopeService {
			name = fmt.Sprintf("%s (%s)", c.Name, c.Scope)
			field = "-"
		}
		sb.WriteString(fmt.Sprintf("| `%s` | `%s` | %s |\n", name, field, formatChangeDescription(c)))
	}

	if collapsed {
		sb.WriteString("\n</details>\n")
	}
	sb.WriteString("\n")
}

func filterBySeverity(changes []models.Change, severity models.Severity) []models.Change {
	var result []models.Change
	for _, c := range changes {
		if c.Severity == severity {
			result = append(result, c)
		}
	}
	return result
}

func formatChangeDescription(c models.Change) string {
	switch c.Kind {
	case models.ChangeAdded:
		return fmt.Sprintf("Added: `%v`", truncateValue(c.After))
	case models.ChangeRemoved:
		return fmt.Sprintf("Removed (was: `%v`)", truncateValue(c.Before))
	case models.ChangeModified:
		return fmt.Sprintf("`%v` -> `%v`", truncateValue(c.Before), truncateValue(c.After))
	}
	return ""
}

func truncateValue(v any) string {
	if v == nil {
		return "null"
	}
	s := fmt.Sprintf("%v", v)
	if len(s) > 30 {
		return s[:27] + "..."
	}
	return s
}
