package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackgen-cli/compose-edit/internal/models"
)

func TestNormalizePort(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want models.Port
	}{
		{"target only", "80", models.Port{Target: 80, Protocol: "tcp"}},
		{"bare number", 80, models.Port{Target: 80, Protocol: "tcp"}},
		{"json number", float64(53), models.Port{Target: 53, Protocol: "tcp"}},
		{"published and target", "8080:80", models.Port{Target: 80, Published: "8080", Protocol: "tcp"}},
		{"udp suffix", "8080:80/udp", models.Port{Target: 80, Published: "8080", Protocol: "udp"}},
		{"tcp suffix", "53:53/tcp", models.Port{Target: 53, Published: "53", Protocol: "tcp"}},
		{"host ip", "127.0.0.1:8080:80", models.Port{Target: 80, Published: "8080", Protocol: "tcp", HostIP: "127.0.0.1"}},
		{"published range", "9000-9005:9000", models.Port{Target: 9000, Published: "9000-9005", Protocol: "tcp"}},
		{"interpolated published", "${HOST_PORT:-8080}:80", models.Port{Target: 80, Published: "${HOST_PORT:-8080}", Protocol: "tcp"}},
		{"too many tokens", "1:2:3:4", models.Port{Protocol: "tcp", Raw: "1:2:3:4"}},
		{"non numeric target", "web", models.Port{Protocol: "tcp", Raw: "web"}},
		{
			"long form",
			map[string]any{"target": 80, "published": 8080, "protocol": "UDP", "host_ip": "0.0.0.0"},
			models.Port{Target: 80, Published: "8080", Protocol: "udp", HostIP: "0.0.0.0"},
		},
		{"long form defaults protocol", map[string]any{"target": "443"}, models.Port{Target: 443, Protocol: "tcp"}},
		{"canonical", models.Port{Target: 80}, models.Port{Target: 80, Protocol: "tcp"}},
		{"unknown shape", true, models.Port{Protocol: "tcp"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePort(tt.raw))
		})
	}
}

func TestNormalizePortNotices(t *testing.T) {
	n := new(Normalizer).At("ports[0]")
	n.Port("1:2:3:4")
	n.Port("80/sctp")
	n.Port(models.Port{Target: 80, Protocol: "sctp"})

	notices := n.Notices()
	require.Len(t, notices, 3)
	assert.Equal(t, "ports[0]", notices[0].Path)
	assert.Contains(t, notices[1].Message, "not numeric")
	assert.Contains(t, notices[2].Message, "sctp")
}

func TestNormalizeVolume(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want models.Mount
	}{
		{
			"interpolated source read only",
			"${DATA_DIR}:/app/data:ro",
			models.Mount{Type: models.MountBind, Source: "${DATA_DIR}", Target: "/app/data", ReadOnly: true},
		},
		{
			"colon inside interpolation",
			"${DATA_DIR:-/srv/data}:/app/data",
			models.Mount{Type: models.MountBind, Source: "${DATA_DIR:-/srv/data}", Target: "/app/data"},
		},
		{
			"nested interpolation",
			"${A:-${B:-/x}}:/y",
			models.Mount{Type: models.MountBind, Source: "${A:-${B:-/x}}", Target: "/y"},
		},
		{"named volume", "pgdata:/var/lib/postgresql/data", models.Mount{Type: models.MountVolume, Source: "pgdata", Target: "/var/lib/postgresql/data"}},
		{"relative bind", "./src:/app/src", models.Mount{Type: models.MountBind, Source: "./src", Target: "/app/src"}},
		{"home bind", "~/cfg:/cfg:rw", models.Mount{Type: models.MountBind, Source: "~/cfg", Target: "/cfg"}},
		{"options with ro", "/a:/b:z,ro", models.Mount{Type: models.MountBind, Source: "/a", Target: "/b", ReadOnly: true}},
		{"single token", "/cache", models.Mount{Type: models.MountBind, Source: "/cache"}},
		{"single name", "cache", models.Mount{Type: models.MountVolume, Source: "cache"}},
		{
			"long form tmpfs",
			map[string]any{"type": "tmpfs", "target": "/tmp"},
			models.Mount{Type: models.MountTmpfs, Target: "/tmp"},
		},
		{
			"long form infers type",
			map[string]any{"source": "/host", "target": "/c", "read_only": "true"},
			models.Mount{Type: models.MountBind, Source: "/host", Target: "/c", ReadOnly: true},
		},
		{"canonical", models.Mount{Source: "data", Target: "/d"}, models.Mount{Type: models.MountVolume, Source: "data", Target: "/d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeVolume(tt.raw))
		})
	}
}

func TestNormalizeEnvironment(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want map[string]string
	}{
		{"list form", []any{"A=1", "B"}, map[string]string{"A": "1", "B": ""}},
		{"map form with null", map[string]any{"A": "1", "B": nil}, map[string]string{"A": "1", "B": ""}},
		{"map form numbers", map[string]any{"PORT": 8080, "DEBUG": true}, map[string]string{"PORT": "8080", "DEBUG": "true"}},
		{"value containing equals", []any{"URL=a=b"}, map[string]string{"URL": "a=b"}},
		{"absent", nil, nil},
		{"canonical", map[string]string{"A": "1"}, map[string]string{"A": "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeEnvironment(tt.raw))
		})
	}
}

func TestNormalizeEnvironmentNestedValue(t *testing.T) {
	n := new(Normalizer)
	env := n.Environment(map[string]any{"A": []any{"x"}})
	assert.Equal(t, map[string]string{"A": ""}, env)
	assert.Len(t, n.Notices(), 1)
}

func TestNormalizeDependsOn(t *testing.T) {
	yes := true

	tests := []struct {
		name string
		raw  any
		want map[string]models.Dependency
	}{
		{"list form", []any{"db"}, map[string]models.Dependency{"db": {Condition: models.ConditionStarted}}},
		{
			"map form",
			map[string]any{
				"db":    map[string]any{"condition": "service_healthy", "restart": true},
				"cache": nil,
			},
			map[string]models.Dependency{
				"db":    {Condition: models.ConditionHealthy, Restart: &yes},
				"cache": {Condition: models.ConditionStarted},
			},
		},
		{
			"unknown condition",
			map[string]any{"db": map[string]any{"condition": "whenever"}},
			map[string]models.Dependency{"db": {Condition: models.ConditionStarted}},
		},
		{"absent", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDependsOn(tt.raw))
		})
	}
}

func TestNormalizeCommand(t *testing.T) {
	assert.Nil(t, NormalizeCommand(nil), "absent means inherit from image")

	empty := NormalizeCommand([]any{})
	require.NotNil(t, empty, "an empty sequence is not absent")
	assert.Empty(t, *empty)

	assert.Equal(t, &models.Command{"npm start"}, NormalizeCommand("npm start"))
	assert.Equal(t, &models.Command{"sleep", "10"}, NormalizeCommand([]any{"sleep", 10}))
	assert.Nil(t, NormalizeCommand(map[string]any{"a": 1}))
}

func TestNormalizeLabels(t *testing.T) {
	assert.Equal(t, map[string]string{"a": "1", "b": ""}, NormalizeLabels([]any{"a=1", "b"}))
	assert.Equal(t, map[string]string{"traefik.enable": "true"}, NormalizeLabels(map[string]any{"traefik.enable": true}))
}

func TestNormalizeEnvFile(t *testing.T) {
	no := false

	assert.Equal(t, []models.EnvFile{{Path: ".env"}}, NormalizeEnvFile(".env"))
	assert.Equal(t, []models.EnvFile{{Path: "a.env"}, {Path: "b.env", Required: &no}}, NormalizeEnvFile([]any{
		"a.env",
		map[string]any{"path": "b.env", "required": false},
	}))
	assert.Nil(t, NormalizeEnvFile(nil))
}

func TestNormalizeHealthcheck(t *testing.T) {
	hc := NormalizeHealthcheck(map[string]any{
		"test":     "curl -f http://localhost",
		"interval": "30s",
		"retries":  3,
	})
	require.NotNil(t, hc)
	assert.Equal(t, []string{"CMD-SHELL", "curl -f http://localhost"}, hc.Test)
	assert.Equal(t, "30s", hc.Interval)
	require.NotNil(t, hc.Retries)
	assert.Equal(t, uint64(3), *hc.Retries)
	assert.False(t, hc.Disable)

	disabled := NormalizeHealthcheck(map[string]any{"test": []any{"NONE"}})
	require.NotNil(t, disabled)
	assert.True(t, disabled.Disable, "NONE disables the check")

	assert.Nil(t, NormalizeHealthcheck(nil), "absent means inherit")
}

func TestNormalizeBuild(t *testing.T) {
	assert.Equal(t, &models.Build{Context: "./app"}, NormalizeBuild("./app"))
	assert.Equal(t, &models.Build{
		Context:    ".",
		Dockerfile: "Dockerfile.dev",
		Args:       map[string]string{"VERSION": "1"},
	}, NormalizeBuild(map[string]any{
		"context":    ".",
		"dockerfile": "Dockerfile.dev",
		"args":       []any{"VERSION=1"},
	}))
}

func TestNormalizeDeploy(t *testing.T) {
	n := new(Normalizer)
	deploy := n.Deploy(map[string]any{
		"replicas": 2,
		"labels":   []any{"tier=web"},
		"resources": map[string]any{
			"limits": map[string]any{"cpus": "0.5", "memory": "512M"},
		},
	})
	require.NotNil(t, deploy)
	assert.Empty(t, n.Notices())
	require.NotNil(t, deploy.Replicas)
	assert.Equal(t, 2, *deploy.Replicas)
	assert.Equal(t, map[string]string{"tier": "web"}, deploy.Labels)
	assert.Equal(t, "512M", deploy.Resources.Limits.Memory)
}

// Canonical values fed back in must come out unchanged
func TestNormalizeIdempotence(t *testing.T) {
	ports := []any{"80", 80, "8080:80/udp", "127.0.0.1:8080:80", "${P:-1}:2", "1:2:3:4", "x",
		map[string]any{"target": 80, "protocol": "udp"}}
	for _, raw := range ports {
		once := NormalizePort(raw)
		assert.Equal(t, once, NormalizePort(once), "port %v", raw)
	}

	volumes := []any{"${DATA_DIR}:/app/data:ro", "data:/d", "/x", "./a:/b:rw",
		map[string]any{"type": "tmpfs", "target": "/t"}}
	for _, raw := range volumes {
		once := NormalizeVolume(raw)
		assert.Equal(t, once, NormalizeVolume(once), "volume %v", raw)
	}

	envs := []any{[]any{"A=1", "B"}, map[string]any{"A": 1, "B": nil}}
	for _, raw := range envs {
		once := NormalizeEnvironment(raw)
		assert.Equal(t, once, NormalizeEnvironment(once), "environment %v", raw)
	}

	deps := []any{[]any{"db"}, map[string]any{"db": map[string]any{"condition": "service_healthy", "required": false}}}
	for _, raw := range deps {
		once := NormalizeDependsOn(raw)
		assert.Equal(t, once, NormalizeDependsOn(once), "depends_on %v", raw)
	}

	commands := []any{nil, "npm start", []any{}, []any{"a", "b"}}
	for _, raw := range commands {
		once := NormalizeCommand(raw)
		assert.Equal(t, once, NormalizeCommand(once), "command %v", raw)
	}

	hc := NormalizeHealthcheck(map[string]any{"test": "true"})
	assert.Equal(t, hc, NormalizeHealthcheck(hc))
}

func TestSplitUnquoted(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"a:b:c", []string{"a", "b", "c"}},
		{"${A:-x}:b", []string{"${A:-x}", "b"}},
		{"${A:-${B:-1:2}}:c", []string{"${A:-${B:-1:2}}", "c"}},
		{"plain", []string{"plain"}},
		{"", []string{""}},
		{"a}:b", []string{"a}", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, splitUnquoted(tt.in, ':'))
		})
	}
}
