package cmd

import (
	"os"
	"path/filepath"
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

func TestParseEnv(t *testing.T) {
	env, err := parseEnv([]string{"A=1", "B=x=y", "EMPTY="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1", "B": "x=y", "EMPTY": ""}, env)

	_, err = parseEnv([]string{"NOVALUE"})
	assert.Error(t, err)

	env, err = parseEnv(nil)
	assert.NoError(t, err)
	assert.Nil(t, env)
}

func TestParsePortsAndMounts(t *testing.T) {
	assert.Equal(t, []models.Port{{Target: 80, Published: "8080", Protocol: "tcp"}}, parsePorts([]string{"8080:80"}))
	assert.Equal(t, []models.Mount{{Type: models.MountBind, Source: "./src", Target: "/app"}}, parseMounts([]string{"./src:/app"}))
}

func TestReadChanges(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"service_changes":{"api":{"image":"node:22","command":null}},"volume_changes":{"old":null}}`), 0644))

	changes, err := readChanges(good)
	require.NoError(t, err)
	api := changes.ServiceChanges["api"]
	image, ok := api.Image.Get()
	assert.True(t, ok)
	assert.Equal(t, "node:22", image)
	assert.True(t, api.Command.IsNull())
	assert.Contains(t, changes.VolumeChanges, "old")
	assert.Nil(t, changes.VolumeChanges["old"])

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"services":{}}`), 0644))
	_, err = readChanges(bad)
	assert.Error(t, err, "unknown fields are rejected")
}

func TestRenderReport(t *testing.T) {
	report := models.NewDiffReport()
	report.AddChange(models.Change{
		Kind: models.ChangeModified, Scope: models.ScopeService, Name: "api",
		Path: "services.api.image", Before: "node:20", After: "node:22", Severity: models.SeverityInfo,
	})

	for _, format := range []string{"text", "json", "markdown", "category", "category-detail"} {
		t.Run(format, func(t *testing.T) {
			out, err := renderReport(report, format, "a", "b")
			require.NoError(t, err)
			assert.NotEmpty(t, out)
		})
	}

	_, err := renderReport(report, "html", "a", "b")
	assert.Error(t, err)
}

func TestRenderDocument(t *testing.T) {
	doc := models.NewDocument()
	image := "nginx"
	doc.SetService("web", models.Service{Image: &image})

	out, err := renderDocument(doc, "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "image: nginx")

	out, err = renderDocument(doc, "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"image": "nginx"`)
}
