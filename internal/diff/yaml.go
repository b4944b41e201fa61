package diff

import (
	"fmt"

	"github.com/stackgen-cli/compose-edit/internal/models"
	"github.com/stackgen-cli/compose-edit/internal/parser"
)

// CompareYAML canonicalizes two renderings of a document and compares them.
// Rules are applied when non-nil.
func CompareYAML(original, modified []byte, rules Rules) (*models.DiffReport, error) {
	old, _, err := parser.ParseDocument(original)
	if err != nil {
		return nil, fmt.Errorf("failed to parse original document: %w", err)
	}
	new, _, err := parser.ParseDocument(modified)
	if err != nil {
		return nil, fmt.Errorf("failed to parse modified document: %w", err)
	}
	report := Compare(old, new)
	if rules != nil {
		report = ApplyRules(report, rules)
	}
	return report, nil
}
