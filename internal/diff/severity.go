package diff

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/stackgen-cli/compose-edit/internal/models"
)

var majorVersionRe = regexp.MustCompile(`^(\d+)`)

// imageSeverity determines the severity of an image change
func imageSeverity(old, new *string) models.Severity {
	if old == nil || new == nil {
		return models.SeverityInfo
	}

	oldTag := extractTag(*old)
	newTag := extractTag(*new)

	// Same tag or both latest
	if oldTag == newTag {
		return models.SeverityInfo
	}

	oldMajor := extractMajorVersion(oldTag)
	newMajor := extractMajorVersion(newTag)
	if oldMajor == "" || newMajor == "" || oldMajor == newMajor {
		return models.SeverityInfo
	}

	oldNum, _ := strconv.Atoi(oldMajor)
	newNum, _ := strconv.Atoi(newMajor)
	if newNum < oldNum {
		return models.SeverityBreaking // Downgrade
	}
	return models.SeverityWarning // Major upgrade
}

// extractTag extracts the tag from an image reference
// e.g., "postgres:16-alpine" -> "16-alpine"
// e.g., "localhost:5000/app" -> "latest"
func extractTag(image string) string {
	// Handle digest-based references
	if strings.Contains(image, "@") {
		return ""
	}

	lastColon := strings.LastIndex(image, ":")
	if lastColon == -1 {
		return "latest"
	}

	tag := image[lastColon+1:]
	// registry:port/image has no tag
	if strings.Contains(tag, "/") {
		return "latest"
	}

	return tag
}

// extractMajorVersion extracts the major version from a tag
// e.g., "16-alpine" -> "16"
// e.g., "v1.2.3" -> "1"
func extractMajorVersion(tag string) string {
	if tag == "" || tag == "latest" {
		return ""
	}

	matches := majorVersionRe.FindStringSubmatch(strings.TrimPrefix(tag, "v"))
	if len(matches) > 1 {
		return matches[1]
	}

	return ""
}

// Rules adjusts a report: ignored paths are dropped and matching paths get
// an overridden severity
type Rules interface {
	Ignored(path string) bool
	SeverityOverride(path string) (models.Severity, bool)
}

// ApplyRules returns a copy of the report with rules applied and the
// severity counters recomputed
func ApplyRules(report *models.DiffReport, rules Rules) *models.DiffReport {
	out := models.NewDiffReport()
	out.Summary = report.Summary
	for _, c := range report.Changes {
		if rules.Ignored(c.Path) {
			continue
		}
		if sev, ok := rules.SeverityOverride(c.Path); ok {
			c.Severity = sev
		}
		out.Changes = append(out.Changes, c)
	}
	out.Recount()
	return out
}

// HasBreaking reports whether any change in the report is breaking
func HasBreaking(report *models.DiffReport) bool {
	for _, c := range report.Changes {
		if c.Severity == models.SeverityBreaking {
			return true
		}
	}
	return false
}
