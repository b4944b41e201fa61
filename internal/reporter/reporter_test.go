package reporter

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackgen-cli/compose-edit/internal/models"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func sampleReport() *models.DiffReport {
	r := models.NewDiffReport()
	r.AddChange(models.Change{Kind: models.ChangeModified, Scope: models.ScopeService, Name: "api",
		Path: "services.api.image", Before: "node:18", After: "node:20", Severity: models.SeverityWarning})
	r.AddChange(models.Change{Kind: models.ChangeRemoved, Scope: models.ScopeService, Name: "api",
		Path: "services.api.environment.DATABASE_URL", Before: "postgres://", Severity: models.SeverityBreaking})
	r.AddChange(models.Change{Kind: models.ChangeAdded, Scope: models.ScopeVolume, Name: "esdata",
		Path: "volumes.esdata", After: models.VolumeConfig{}, Severity: models.SeverityInfo})
	r.Summary.Services.Changed = 1
	r.Summary.Volumes.Added = 1
	return r
}

func TestToText(t *testing.T) {
	out := ToText(sampleReport(), "current", "proposed")

	assert.True(t, strings.HasPrefix(out, "Pending edits: current => proposed\n"))
	assert.Contains(t, out, "services: 1 edited, 0 new, 0 dropped")
	assert.Contains(t, out, "\n[api]\n")
	assert.Contains(t, out, `~ WARNING  image: "node:18" => "node:20"`)
	assert.Contains(t, out, `! BREAKING environment.DATABASE_URL unset (was "postgres://")`)
	assert.Contains(t, out, "resources:\n")
	assert.Contains(t, out, "volume esdata added")
}

func TestToTextOrdersServices(t *testing.T) {
	r := models.NewDiffReport()
	r.AddChange(models.Change{Kind: models.ChangeModified, Scope: models.ScopeService, Name: "web",
		Path: "services.web.image", Before: "nginx:1", After: "nginx:2", Severity: models.SeverityInfo})
	r.AddChange(models.Change{Kind: models.ChangeAdded, Scope: models.ScopeService, Name: "api",
		Path: "services.api.command", After: "serve", Severity: models.SeverityInfo})
	r.AddChange(models.Change{Kind: models.ChangeModified, Scope: models.ScopeService, Name: "web",
		Path: "services.web.restart", Before: "no", After: "always", Severity: models.SeverityInfo})

	out := ToText(r, "a", "b")

	api := strings.Index(out, "[api]")
	web := strings.Index(out, "[web]")
	require.NotEqual(t, -1, api)
	require.NotEqual(t, -1, web)
	assert.Less(t, api, web)
	assert.Equal(t, 1, strings.Count(out, "[web]"))
	assert.Contains(t, out, `+ INFO     command set to "serve"`)
}

func TestToTextEmpty(t *testing.T) {
	out := ToText(models.NewDiffReport(), "a", "b")
	assert.Contains(t, out, "Nothing to apply.")
	assert.NotContains(t, out, "resources:")
}

func TestFormatValueTruncates(t *testing.T) {
	assert.Equal(t, "null", formatValue(nil))
	assert.Equal(t, `"x"`, formatValue("x"))

	long := formatValue(strings.Repeat("a", 100))
	assert.Len(t, long, valueWidth)
	assert.True(t, strings.HasSuffix(long, "..."))
}

func TestToMarkdown(t *testing.T) {
	out := ToMarkdown(sampleReport(), "a", "b")

	assert.Contains(t, out, "| Services | 0 | 0 | 1 |")
	assert.Contains(t, out, "| Volumes | 1 | 0 | 0 |")
	assert.NotContains(t, out, "| Networks |", "empty rows are skipped")
	assert.Contains(t, out, "### Breaking Changes")
	assert.Contains(t, out, "| `api` | `environment.DATABASE_URL` |")
	assert.Contains(t, out, "| `esdata (volume)` | `-` |")
}

func TestToJSON(t *testing.T) {
	data, err := json.Marshal(ToJSON(sampleReport(), "a", "b"))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	summary := decoded["summary"].(map[string]any)
	assert.Equal(t, float64(3), summary["total_changes"])
	assert.Equal(t, float64(1), summary["breaking_count"])
	assert.Equal(t, float64(1), summary["volumes"].(map[string]any)["added"])

	empty, err := json.Marshal(ToJSON(models.NewDiffReport(), "a", "b"))
	require.NoError(t, err)
	assert.Contains(t, string(empty), `"changes":[]`)
}

func TestGroupByCategory(t *testing.T) {
	groups := GroupByCategory(sampleReport().Changes)
	require.Len(t, groups, 3)

	assert.Equal(t, "environment", groups[0].Category, "breaking categories sort first")
	assert.Equal(t, "images", groups[1].Category)
	assert.Equal(t, "volumes", groups[2].Category)
}

func TestCategorizeChange(t *testing.T) {
	tests := []struct {
		path  string
		scope models.Scope
		want  string
	}{
		{"services.web", models.ScopeService, "services"},
		{"services.web.ports.8080:80/tcp", models.ScopeService, "ports"},
		{"services.web.env_file", models.ScopeService, "environment"},
		{"services.web.entrypoint", models.ScopeService, "commands"},
		{"services.web.healthcheck", models.ScopeService, "dependencies"},
		{"services.web.logging", models.ScopeService, "other"},
		{"secrets.token", models.ScopeSecret, "secrets"},
		{"networks.front", models.ScopeNetwork, "networks"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, categorizeChange(models.Change{Path: tt.path, Scope: tt.scope}))
		})
	}
}

func TestToCategorySummary(t *testing.T) {
	out := ToCategorySummary(sampleReport(), "a", "b")
	assert.Contains(t, out, "| environment        |      1 |        1 |        0 |      0 |")
	assert.Contains(t, out, "Total: 3 changes (1 breaking, 1 warning, 1 info)")
}

func TestToUnified(t *testing.T) {
	original := "services:\n  web:\n    image: nginx:1\n"
	modified := "services:\n  web:\n    image: nginx:2\n"

	out, err := ToUnified(original, modified, "current", "proposed")
	require.NoError(t, err)
	assert.Contains(t, out, "--- current")
	assert.Contains(t, out, "+++ proposed")
	assert.Contains(t, out, "-    image: nginx:1")
	assert.Contains(t, out, "+    image: nginx:2")

	same, err := ToUnified(original, original, "a", "b")
	require.NoError(t, err)
	assert.Empty(t, same)
}

func TestToNotices(t *testing.T) {
	assert.Empty(t, ToNotices([]fakeStringer{}))

	out := ToNotices([]fakeStringer{"services.web.ports[0]: not numeric"})
	assert.True(t, strings.HasPrefix(out, "1 value(s) replaced by defaults:"))
	assert.Contains(t, out, "  services.web.ports[0]: not numeric\n")
}

type fakeStringer string

func (f fakeStringer) String() string { return string(f) }
