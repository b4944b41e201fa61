package reporter

import "github.com/stackgen-cli/compose-edit/internal/models"

// JSONReport is the stable JSON output format of a preview
type JSONReport struct {
	SchemaVersion string          `json:"schema_version"`
	Original      string          `json:"original"`
	Modified      string          `json:"modified"`
	Summary       JSONSummary     `json:"summary"`
	Changes       []models.Change `json:"changes"`
	Unified       string          `json:"unified,omitempty"`
}

// JSONSummary is the summary section of JSON output
type JSONSummary struct {
	Services      models.ResourceCounts `json:"services"`
	Networks      models.ResourceCounts `json:"networks"`
	Volumes       models.ResourceCounts `json:"volumes"`
	Secrets       models.ResourceCounts `json:"secrets"`
	Configs       models.ResourceCounts `json:"configs"`
	TotalChanges  int                   `json:"total_changes"`
	BreakingCount int                   `json:"breaking_count"`
	WarningCount  int                   `json:"warning_count"`
	InfoCount     int                   `json:"info_count"`
}

// ToJSON converts a DiffReport to the stable JSON format
func ToJSON(report *models.DiffReport, original, modified string) *JSONReport {
	s := report.Summary
	changes := report.Changes
	if changes == nil {
		changes = []models.Change{}
	}
	return &JSONReport{
		SchemaVersion: "1.0",
		Original:      original,
		Modified:      modified,
		Summary: JSONSummary{
			Services:      s.Services,
			Networks:      s.Networks,
			Volumes:       s.Volumes,
			Secrets:       s.Secrets,
			Configs:       s.Configs,
			TotalChanges:  s.TotalChanges,
			BreakingCount: s.BreakingCount,
			WarningCount:  s.WarningCount,
			InfoCount:     s.InfoCount,
		},
		Changes: changes,
	}
}
