package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackgen-cli/compose-edit/internal/models"
)

const sampleConfig = `version: "1"
endpoint: http://stacks.internal:8780
server: prod
stack: shop
timeout: 5s
severity_overrides:
  - pattern: "services.*.labels.*"
    severity: info
  - pattern: '^services\.db\.image$'
    severity: breaking
    regex: true
ignore_patterns:
  - pattern: "services.*.environment.BUILD_ID"
    reason: changes every build
service_ignores:
  worker:
    fields: [deploy]
    paths: ["healthcheck.*"]
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	return dir
}

func TestLoadFromDir(t *testing.T) {
	dir := writeConfig(t, ".compose-edit.yaml", sampleConfig)

	cfg, err := LoadFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "http://stacks.internal:8780", cfg.Endpoint)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, DefaultListen, cfg.Listen, "unset keys keep defaults")
	assert.Equal(t, filepath.Join(dir, ".compose-edit.yaml"), cfg.Path)

	ref, err := cfg.StackRef()
	require.NoError(t, err)
	assert.Equal(t, models.StackRef{Server: "prod", Stack: "shop"}, ref)
}

func TestLoadFromDirDefaults(t *testing.T) {
	cfg, err := LoadFromDir(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = cfg.StackRef()
	assert.Error(t, err)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "endpoint: [\n"},
		{"bad severity", "severity_overrides:\n  - pattern: x\n    severity: fatal\n"},
		{"missing pattern", "ignore_patterns:\n  - reason: nothing\n"},
		{"bad endpoint", "endpoint: not a url\n"},
		{"bad timeout", "timeout: soon\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeConfig(t, "compose-edit.yml", tt.content)
			_, err := LoadFromDir(dir)
			assert.Error(t, err)
		})
	}
}

func TestRules(t *testing.T) {
	dir := writeConfig(t, ".compose-edit.yaml", sampleConfig)
	cfg, err := LoadFromDir(dir)
	require.NoError(t, err)
	rules, err := cfg.Rules()
	require.NoError(t, err)
	assert.False(t, rules.Empty())

	sev, ok := rules.SeverityOverride("services.web.labels.team")
	assert.True(t, ok)
	assert.Equal(t, models.SeverityInfo, sev)

	sev, ok = rules.SeverityOverride("services.db.image")
	assert.True(t, ok)
	assert.Equal(t, models.SeverityBreaking, sev)

	_, ok = rules.SeverityOverride("services.dbx.image")
	assert.False(t, ok)

	ignored, reason := rules.ShouldIgnore("services.api.environment.BUILD_ID")
	assert.True(t, ignored)
	assert.Equal(t, "changes every build", reason)

	tests := []struct {
		path string
		want bool
	}{
		{"services.worker.deploy.replicas", true},
		{"services.worker.deploy", true},
		{"services.worker.healthcheck.interval", true},
		{"services.worker.image", false},
		{"services.api.deploy.replicas", false},
		{"volumes.data", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, rules.Ignored(tt.path))
		})
	}
}

func TestRulesBadRegex(t *testing.T) {
	cfg := Default()
	cfg.IgnorePatterns = []IgnoreRule{{Pattern: "(", IsRegex: true}}
	_, err := cfg.Rules()
	assert.Error(t, err)
}

func TestGlobToRegex(t *testing.T) {
	assert.Equal(t, `^services\..*\.image$`, globToRegex("services.*.image"))
}
