package diff

import (
	"testing"

	"github.com/stackgen-cli/compose-edit/internal/models"
)

func TestCompareYAML(t *testing.T) {
	original := []byte("services:\n  api:\n    image: node:18\n    labels:\n      tier: web\n")
	modified := []byte("services:\n  api:\n    image: node:20\n    labels:\n      tier: backend\n")

	report, err := CompareYAML(original, modified, nil)
	if err != nil {
		t.Fatalf("CompareYAML failed: %v", err)
	}
	if report.Summary.TotalChanges != 2 {
		t.Fatalf("Expected 2 changes, got %d", report.Summary.TotalChanges)
	}

	report, err = CompareYAML(original, modified, stubRules{ignored: "services.api.labels.tier"})
	if err != nil {
		t.Fatalf("CompareYAML failed: %v", err)
	}
	if len(report.Changes) != 1 || report.Changes[0].Path != "services.api.image" {
		t.Errorf("Expected only the image change, got %+v", report.Changes)
	}
	if report.Changes[0].Severity != models.SeverityWarning {
		t.Errorf("Expected warning for a major image bump, got %s", report.Changes[0].Severity)
	}
}

func TestCompareYAMLInvalid(t *testing.T) {
	if _, err := CompareYAML([]byte("services: ["), []byte("services: {}"), nil); err == nil {
		t.Error("Expected an error for malformed YAML")
	}
}
