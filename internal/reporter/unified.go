package reporter

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"
)

// ToUnified renders a line diff between the original and modified YAML
func ToUnified(original, modified, fromLabel, toLabel string) (string, error) {
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(original),
		B:        difflib.SplitLines(modified),
		FromFile: fromLabel,
		ToFile:   toLabel,
		Context:  3,
	}
	out, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return "", fmt.Errorf("failed to render unified diff: %w", err)
	}
	return out, nil
}

// Colorize highlights the added and removed lines of a unified diff
func Colorize(unified string) string {
	red := color.New(color.FgRed).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	lines := strings.SplitAfter(unified, "\n")
	var sb strings.Builder
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			sb.WriteString(line)
		case strings.HasPrefix(line, "@@"):
			sb.WriteString(cyan(line))
		case strings.HasPrefix(line, "+"):
			sb.WriteString(green(line))
		case strings.HasPrefix(line, "-"):
			sb.WriteString(red(line))
		default:
			sb.WriteString(line)
		}
	}
	return sb.String()
}
