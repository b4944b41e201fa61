package diff

import (
	"testing"

	"github.com/stackgen-cli/compose-edit/internal/models"
)

func TestCompareServices(t *testing.T) {
	old := models.NewDocument()
	old.SetService("api", models.Service{
		Image: ptrStr("node:18"),
		Environment: map[string]string{
			"NODE_ENV":     "development",
			"DATABASE_URL": "postgres://old",
		},
	})
	old.SetService("worker", models.Service{Image: ptrStr("node:18")})

	new := models.NewDocument()
	new.SetService("api", models.Service{
		Image: ptrStr("node:20"),
		Environment: map[string]string{
			"NODE_ENV": "production",
			"API_KEY":  "secret",
		},
	})
	new.SetService("cache", models.Service{Image: ptrStr("redis:7")})

	report := Compare(old, new)

	if report.Summary.Services.Added != 1 {
		t.Errorf("Expected 1 service added, got %d", report.Summary.Services.Added)
	}
	if report.Summary.Services.Removed != 1 {
		t.Errorf("Expected 1 service removed, got %d", report.Summary.Services.Removed)
	}
	if report.Summary.Services.Changed != 1 {
		t.Errorf("Expected 1 service changed, got %d", report.Summary.Services.Changed)
	}

	hasImageChange := false
	hasEnvRemoved := false
	hasEnvAdded := false
	hasServiceRemoved := false

	for _, c := range report.Changes {
		if c.Path == "services.api.image" {
			hasImageChange = true
			if c.Severity != models.SeverityWarning {
				t.Errorf("Major image bump should be a warning, got %s", c.Severity)
			}
		}
		if c.Path == "services.api.environment.DATABASE_URL" && c.Kind == models.ChangeRemoved {
			hasEnvRemoved = true
			if c.Severity != models.SeverityBreaking {
				t.Error("Removed env var should be breaking")
			}
		}
		if c.Path == "services.api.environment.API_KEY" && c.Kind == models.ChangeAdded {
			hasEnvAdded = true
		}
		if c.Name == "worker" && c.Kind == models.ChangeRemoved {
			hasServiceRemoved = true
			if c.Severity != models.SeverityBreaking {
				t.Error("Removed service should be breaking")
			}
		}
	}

	if !hasImageChange {
		t.Error("Expected image change not found")
	}
	if !hasEnvRemoved {
		t.Error("Expected DATABASE_URL removal not found")
	}
	if !hasEnvAdded {
		t.Error("Expected API_KEY addition not found")
	}
	if !hasServiceRemoved {
		t.Error("Expected worker removal not found")
	}
}

func TestCompareIdenticalDocuments(t *testing.T) {
	doc := models.NewDocument()
	doc.SetService("web", models.Service{
		Image: ptrStr("nginx"),
		Ports: []models.Port{{Target: 80, Published: "8080", Protocol: "tcp"}},
	})
	doc.Volumes["data"] = models.VolumeConfig{Driver: "local"}

	report := Compare(doc, doc)
	if report.Summary.TotalChanges != 0 {
		t.Errorf("Expected no changes, got %d: %+v", report.Summary.TotalChanges, report.Changes)
	}
}

func TestCompareResources(t *testing.T) {
	old := models.NewDocument()
	old.Volumes["pgdata"] = models.VolumeConfig{}
	old.Volumes["redisdata"] = models.VolumeConfig{}
	old.Networks["front"] = models.NetworkConfig{Driver: "bridge"}
	old.Secrets["token"] = models.SecretConfig{File: "./token"}

	new := models.NewDocument()
	new.Volumes["pgdata"] = models.VolumeConfig{}
	new.Volumes["esdata"] = models.VolumeConfig{}
	new.Networks["front"] = models.NetworkConfig{Driver: "overlay"}

	report := Compare(old, new)

	if report.Summary.Volumes.Added != 1 {
		t.Errorf("Expected 1 volume added, got %d", report.Summary.Volumes.Added)
	}
	if report.Summary.Volumes.Removed != 1 {
		t.Errorf("Expected 1 volume removed, got %d", report.Summary.Volumes.Removed)
	}
	if report.Summary.Networks.Changed != 1 {
		t.Errorf("Expected 1 network changed, got %d", report.Summary.Networks.Changed)
	}
	if report.Summary.Secrets.Removed != 1 {
		t.Errorf("Expected 1 secret removed, got %d", report.Summary.Secrets.Removed)
	}

	for _, c := range report.Changes {
		if c.Scope == models.ScopeVolume && c.Kind == models.ChangeRemoved && c.Severity != models.SeverityBreaking {
			t.Error("Removed volume should be breaking")
		}
	}
}

func TestComparePorts(t *testing.T) {
	old := models.NewDocument()
	old.SetService("web", models.Service{
		Image: ptrStr("nginx:latest"),
		Ports: []models.Port{
			{Target: 80, Published: "80", Protocol: "tcp"},
			{Target: 443, Published: "443", Protocol: "tcp"},
		},
	})

	new := models.NewDocument()
	new.SetService("web", models.Service{
		Image: ptrStr("nginx:latest"),
		Ports: []models.Port{
			{Target: 80, Published: "8080", Protocol: "tcp"},
		},
	})

	report := Compare(old, new)

	removed, added := 0, 0
	for _, c := range report.Changes {
		if c.Kind == models.ChangeRemoved && c.Name == "web" {
			removed++
			if c.Severity != models.SeverityBreaking {
				t.Error("Removed port should be breaking")
			}
		}
		if c.Kind == models.ChangeAdded && c.Name == "web" {
			added++
		}
	}

	if removed != 2 {
		t.Errorf("Expected 2 port removals (80 and 443), got %d", removed)
	}
	if added != 1 {
		t.Errorf("Expected 1 port addition (8080:80), got %d", added)
	}
}

func TestCompareCommandAbsentVersusEmpty(t *testing.T) {
	empty := models.Command{}

	old := models.NewDocument()
	old.SetService("job", models.Service{Image: ptrStr("busybox")})

	new := models.NewDocument()
	new.SetService("job", models.Service{Image: ptrStr("busybox"), Command: &empty})

	report := Compare(old, new)
	if len(report.Changes) != 1 {
		t.Fatalf("Expected 1 change, got %d", len(report.Changes))
	}
	c := report.Changes[0]
	if c.Path != "services.job.command" || c.Kind != models.ChangeAdded {
		t.Errorf("Expected command added, got %s %s", c.Kind, c.Path)
	}
}

func TestCompareHealthcheck(t *testing.T) {
	old := models.NewDocument()
	old.SetService("api", models.Service{Healthcheck: &models.Healthcheck{Test: []string{"CMD", "true"}}})

	disabled := models.NewDocument()
	disabled.SetService("api", models.Service{Healthcheck: &models.Healthcheck{Test: []string{"NONE"}, Disable: true}})

	removed := models.NewDocument()
	removed.SetService("api", models.Service{})

	if got := Compare(old, disabled).Changes[0].Severity; got != models.SeverityWarning {
		t.Errorf("Disabling a healthcheck should be a warning, got %s", got)
	}
	if got := Compare(old, removed).Changes[0].Severity; got != models.SeverityBreaking {
		t.Errorf("Removing a healthcheck should be breaking, got %s", got)
	}
}

func TestCompareDependsOn(t *testing.T) {
	old := models.NewDocument()
	old.SetService("api", models.Service{DependsOn: map[string]models.Dependency{
		"db": {Condition: models.ConditionStarted},
	}})

	new := models.NewDocument()
	new.SetService("api", models.Service{DependsOn: map[string]models.Dependency{
		"db": {Condition: models.ConditionHealthy},
	}})

	report := Compare(old, new)
	if len(report.Changes) != 1 {
		t.Fatalf("Expected 1 change, got %d", len(report.Changes))
	}
	if report.Changes[0].Path != "services.api.depends_on.db" || report.Changes[0].Kind != models.ChangeModified {
		t.Errorf("Unexpected change %+v", report.Changes[0])
	}
}

func TestFilterByService(t *testing.T) {
	report := &models.DiffReport{
		Changes: []models.Change{
			{Scope: models.ScopeService, Name: "api", Path: "services.api.image"},
			{Scope: models.ScopeService, Name: "db", Path: "services.db.image"},
			{Scope: models.ScopeVolume, Name: "data", Path: "volumes.data"},
		},
	}

	filtered := FilterByService(report, "api")

	if len(filtered.Changes) != 1 {
		t.Errorf("Expected 1 change after filter, got %d", len(filtered.Changes))
	}
	if filtered.Changes[0].Name != "api" {
		t.Error("Filtered change should be for api service")
	}
}

func TestFilterBySeverity(t *testing.T) {
	report := &models.DiffReport{
		Changes: []models.Change{
			{Severity: models.SeverityInfo},
			{Severity: models.SeverityWarning},
			{Severity: models.SeverityBreaking},
		},
	}

	filtered := FilterBySeverity(report, "warning")

	if len(filtered.Changes) != 2 {
		t.Errorf("Expected 2 changes at warning+, got %d", len(filtered.Changes))
	}
}

func ptrStr(s string) *string {
	return &s
}
