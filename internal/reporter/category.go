package reporter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/stackgen-cli/compose-edit/internal/models"
)

// CategorySummary holds changes grouped by category
type CategorySummary struct {
	Category string
	Count    int
	Breaking int
	Warning  int
	Info     int
	Changes  []models.Change
}

var categoryHeaders = map[string]string{
	"environment":  "Environment Variables",
	"ports":        "Port Mappings",
	"images":       "Images & Builds",
	"commands":     "Commands",
	"volumes":      "Volumes",
	"networks":     "Networks",
	"deploy":       "Deployment",
	"dependencies": "Dependencies & Healthchecks",
	"labels":       "Labels",
	"secrets":      "Secrets & Configs",
	"services":     "Services",
}

// ToCategorySummary generates a category-based summary table
func ToCategorySummary(report *models.DiffReport, original, modified string) string {
	var sb strings.Builder

	cyan := color.New(color.FgCyan).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	sb.WriteString(cyan("compose-edit: Category Summary\n\n"))
	sb.WriteString(fmt.Sprintf("Comparing: %s -> %s\n\n", original, modified))

	summaries := GroupByCategory(report.Changes)
	if len(summaries) == 0 {
		sb.WriteString(green("No differences found.\n"))
		return sb.String()
	}

	rule := "+" + strings.Repeat("-", 20) + "+" + strings.Repeat("-", 8) + "+" + strings.Repeat("-", 10) + "+" + strings.Repeat("-", 10) + "+" + strings.Repeat("-", 8) + "+\n"
	sb.WriteString(rule)
	sb.WriteString(fmt.Sprintf("| %-18s | %6s | %8s | %8s | %6s |\n", "Category", "Total", "Breaking", "Warning", "Info"))
	sb.WriteString(rule)

	var total, breaking, warning, info int
	for _, s := range summaries {
		// pad before coloring so escape codes do not break alignment
		breakingStr := fmt.Sprintf("%8d", s.Breaking)
		warningStr := fmt.Sprintf("%8d", s.Warning)
		if s.Breaking > 0 {
			breakingStr = red(breakingStr)
		}
		if s.Warning > 0 {
			warningStr = yellow(warningStr)
		}
		sb.WriteString(fmt.Sprintf("| %-18s | %6d | %s | %s | %6d |\n", s.Category, s.Count, breakingStr, warningStr, s.Info))

		total += s.Count
		breaking += s.Breaking
		warning += s.Warning
		info += s.Info
	}
	sb.WriteString(rule)

	sb.WriteString(fmt.Sprintf("\nTotal: %d changes (%s, %s, %d info)\n",
		total,
		red(fmt.Sprintf("%d breaking", breaking)),
		yellow(fmt.Sprintf("%d warning", warning)),
		info))

	return sb.String()
}

// ToCategoryDetail generates detailed output grouped by category
func ToCategoryDetail(report *models.DiffReport, original, modified string) string {
	var sb strings.Builder

	cyan := color.New(color.FgCyan).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	sb.WriteString(cyan("compose-edit: Category Report\n\n"))
	sb.WriteString(fmt.Sprintf("Comparing: %s -> %s\n", original, modified))

	summaries := GroupByCategory(report.Changes)
	if len(summaries) == 0 {
		sb.WriteString(green("\nNo differences found.\n"))
		return sb.String()
	}

	for _, s := range summaries {
		header, ok := categoryHeaders[s.Category]
		if !ok {
			header = "Other"
		}
		sb.WriteString(cyan(fmt.Sprintf("\n%s (%d changes)\n", header, s.Count)))
		sb.WriteString(strings.Repeat("-", 40) + "\n")

		for _, c := range s.Changes {
			icon := changeIcon(c.Kind, c.Severity)
			sevLabel := severityLabel(c.Severity)

			target := fmt.Sprintf("%s %s", c.Scope, c.Name)
			if c.Scope == models.ScopeService && strings.Count(c.Path, ".") >= 2 {
				target = fmt.Sprintf("%s.%s", c.Name, extractField(c.Path))
			}

			switch c.Kind {
			case models.ChangeAdded:
				sb.WriteString(fmt.Sprintf("  %s %s %s = %v\n", icon, sevLabel, target, formatValue(c.After)))
			case models.ChangeRemoved:
				sb.WriteString(fmt.Sprintf("  %s %s %s (removed)\n", icon, sevLabel, target))
			case models.ChangeModified:
				sb.WriteString(fmt.Sprintf("  %s %s %s: %v -> %v\n", icon, sevLabel, target, formatValue(c.Before), formatValue(c.After)))
			}
		}
	}

	return sb.String()
}

// GroupByCategory groups changes by category, most severe categories first
func GroupByCategory(changes []models.Change) []CategorySummary {
	categories := make(map[string]*CategorySummary)

	for _, c := range changes {
		cat := categorizeChange(c)
		cs, ok := categories[cat]
		if !ok {
			cs = &CategorySummary{Category: cat}
			categories[cat] = cs
		}
		cs.Count++
		cs.Changes = append(cs.Changes, c)

		switch c.Severity {
		case models.SeverityBreaking:
			cs.Breaking++
		case models.SeverityWarning:
			cs.Warning++
		default:
			cs.Info++
		}
	}

	result := make([]CategorySummary, 0, len(categories))
	for _, cs := range categories {
		result = append(result, *cs)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Breaking != result[j].Breaking {
			return result[i].Breaking > result[j].Breaking
		}
		if result[i].Warning != result[j].Warning {
			return result[i].Warning > result[j].Warning
		}
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Category < result[j].Category
	})

	return result
}

// categorizeChange determines the category of a change from its scope and path
func categorizeChange(c models.Change) string {
	switch c.Scope {
	case models.ScopeVolume:
		return "volumes"
	case models.ScopeNetwork:
		return "networks"
	case models.ScopeSecret, models.ScopeConfig:
		return "secrets"
	}

	field := extractField(c.Path)
	if field == c.Path {
		return "services"
	}
	head, _, _ := strings.Cut(field, ".")

	switch head {
	case "environment", "env_file":
		return "environment"
	case "ports":
		return "ports"
	case "image", "build":
		return "images"
	case "command", "entrypoint":
		return "commands"
	case "volumes":
		return "volumes"
	case "networks":
		return "networks"
	case "deploy", "restart":
		return "deploy"
	case "depends_on", "healthcheck":
		return "dependencies"
	case "labels":
		return "labels"
	case "secrets", "configs":
		return "secrets"
	}
	return "other"
}
