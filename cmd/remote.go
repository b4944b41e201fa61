package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/stackgen-cli/compose-edit/internal/client"
	"github.com/stackgen-cli/compose-edit/internal/diff"
	"github.com/stackgen-cli/compose-edit/internal/models"
	"github.com/stackgen-cli/compose-edit/internal/parser"
	"github.com/stackgen-cli/compose-edit/internal/reporter"
	"github.com/stackgen-cli/compose-edit/internal/session"
)

func newClient() *client.Client {
	return client.New(cfg.Endpoint, client.WithTimeout(cfg.Timeout), client.WithLogger(logger))
}

// reportRules returns the configured rules, nil when there are none
func reportRules() (diff.Rules, error) {
	rules, err := cfg.Rules()
	if err != nil {
		return nil, err
	}
	if rules.Empty() {
		return nil, nil
	}
	return rules, nil
}

// openSession loads the configured stack
func openSession(ctx context.Context) (*session.Session, error) {
	ref, err := cfg.StackRef()
	if err != nil {
		return nil, err
	}
	opts := []session.Option{session.WithLogger(logger)}
	rules, err := reportRules()
	if err != nil {
		return nil, err
	}
	if rules != nil {
		opts = append(opts, session.WithRules(rules))
	}

	s := session.New(newClient(), ref, opts...)
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	printNotices(s.Notices())
	return s, nil
}

func printNotices(notices []parser.Notice) {
	if len(notices) == 0 {
		return
	}
	color.New(color.FgYellow).Fprint(os.Stderr, reporter.ToNotices(notices))
}

// readChanges decodes a change-set file, "-" reads stdin
func readChanges(path string) (models.ComposeChanges, error) {
	var changes models.ComposeChanges
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return changes, fmt.Errorf("failed to read change-set: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&changes); err != nil {
		return changes, fmt.Errorf("invalid change-set %s: %w", path, err)
	}
	return changes, nil
}

// renderReport formats a report in one of the reporter formats
func renderReport(report *models.DiffReport, format, original, modified string) (string, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(reporter.ToJSON(report, original, modified), "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to generate JSON: %w", err)
		}
		return string(data), nil
	case "markdown":
		return reporter.ToMarkdown(report, original, modified), nil
	case "category":
		return reporter.ToCategorySummary(report, original, modified), nil
	case "category-detail":
		return reporter.ToCategoryDetail(report, original, modified), nil
	case "text", "":
		return reporter.ToText(report, original, modified), nil
	default:
		return "", fmt.Errorf("unknown format %q (text, json, markdown, category, category-detail)", format)
	}
}

// printPreview prints the semantic report and, when asked, the unified diff
func printPreview(report *models.DiffReport, original, modified, format string, unified bool) error {
	out, err := renderReport(report, format, "current", "preview")
	if err != nil {
		return err
	}
	fmt.Println(out)
	if !unified {
		return nil
	}
	text, err := reporter.ToUnified(original, modified, "current", "preview")
	if err != nil {
		return err
	}
	fmt.Print(reporter.Colorize(text))
	return nil
}
