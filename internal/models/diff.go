package models

// ChangeKind represents the type of change
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeRemoved  ChangeKind = "removed"
	ChangeModified ChangeKind = "modified"
)

// Scope represents what entity was changed
type Scope string

const (
	ScopeService Scope = "service"
	ScopeNetwork Scope = "network"
	ScopeVolume  Scope = "volume"
	ScopeSecret  Scope = "secret"
	ScopeConfig  Scope = "config"
)

// Severity represents the impact level of a change
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityBreaking Severity = "breaking"
)

// Change is a single semantic difference between two canonical documents
type Change struct {
	Kind     ChangeKind `json:"kind"`
	Scope    Scope      `json:"scope"`
	Name     string     `json:"name"` // service or resource name
	Path     string     `json:"path"` // e.g. services.api.environment.DATABASE_URL
	Before   any        `json:"before"`
	After    any        `json:"after"`
	Severity Severity   `json:"severity"`
}

// ResourceCounts counts added, removed and changed entries of one class
type ResourceCounts struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
	Changed int `json:"changed"`
}

// DiffSummary provides aggregate counts of changes
type DiffSummary struct {
	Services      ResourceCounts `json:"services"`
	Networks      ResourceCounts `json:"networks"`
	Volumes       ResourceCounts `json:"volumes"`
	Secrets       ResourceCounts `json:"secrets"`
	Configs       ResourceCounts `json:"configs"`
	TotalChanges  int            `json:"total_changes"`
	BreakingCount int            `json:"breaking_count"`
	WarningCount  int            `json:"warning_count"`
	InfoCount     int            `json:"info_count"`
}

// Counts returns the counters for a scope
func (s *DiffSummary) Counts(scope Scope) *ResourceCounts {
	switch scope {
	case ScopeNetwork:
		return &s.Networks
	case ScopeVolume:
		return &s.Volumes
	case ScopeSecret:
		return &s.Secrets
	case ScopeConfig:
		return &s.Configs
	default:
		return &s.Services
	}
}

// DiffReport is the semantic comparison of two documents
type DiffReport struct {
	Summary DiffSummary `json:"summary"`
	Changes []Change    `json:"changes"`
}

// NewDiffReport creates an empty diff report
func NewDiffReport() *DiffReport {
	return &DiffReport{
		Changes: make([]Change, 0),
	}
}

// AddChange adds a change to the report and updates the severity counters
func (r *DiffReport) AddChange(c Change) {
	r.Changes = append(r.Changes, c)
	r.Summary.TotalChanges++

	switch c.Severity {
	case SeverityBreaking:
		r.Summary.BreakingCount++
	case SeverityWarning:
		r.Summary.WarningCount++
	default:
		r.Summary.InfoCount++
	}
}

// Recount rebuilds the severity counters from Changes
func (r *DiffReport) Recount() {
	r.Summary.TotalChanges = 0
	r.Summary.BreakingCount = 0
	r.Summary.WarningCount = 0
	r.Summary.InfoCount = 0
	changes := r.Changes
	r.Changes = make([]Change, 0, len(changes))
	for _, c := range changes {
		r.AddChange(c)
	}
}

// SeverityLevel returns a numeric level for severity comparison
func SeverityLevel(s Severity) int {
	switch s {
	case SeverityBreaking:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// ParseSeverity converts a string to Severity
func ParseSeverity(s string) Severity {
	switch s {
	case "breaking":
		return SeverityBreaking
	case "warning":
		return SeverityWarning
	default:
		return SeverityInfo
	}
}
