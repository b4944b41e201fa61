package diff

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/stackgen-cli/compose-edit/internal/models"
)

// Compare compares two canonical documents and produces a DiffReport
func Compare(old, new *models.Document) *models.DiffReport {
	report := models.NewDiffReport()
	if old == nil {
		old = models.NewDocument()
	}
	if new == nil {
		new = models.NewDocument()
	}

	compareServices(old.Services, new.Services, report)

	compareResources(models.ScopeNetwork, "networks", old.Networks, new.Networks, models.SeverityWarning, report)
	compareResources(models.ScopeVolume, "volumes", old.Volumes, new.Volumes, models.SeverityBreaking, report)
	compareResources(models.ScopeSecret, "secrets", old.Secrets, new.Secrets, models.SeverityBreaking, report)
	compareResources(models.ScopeConfig, "configs", old.Configs, new.Configs, models.SeverityWarning, report)

	return report
}

// compareServices compares service maps
func compareServices(old, new map[string]models.Service, report *models.DiffReport) {
	added, removed, common := diffSets(mapKeys(old), mapKeys(new))
	counts := report.Summary.Counts(models.ScopeService)
	counts.Added = len(added)
	counts.Removed = len(removed)

	for _, name := range added {
		report.AddChange(models.Change{
			Kind:     models.ChangeAdded,
			Scope:    models.ScopeService,
			Name:     name,
			Path:     fmt.Sprintf("services.%s", name),
			After:    new[name],
			Severity: models.SeverityInfo,
		})
	}

	// Removed services are breaking
	for _, name := range removed {
		report.AddChange(models.Change{
			Kind:     models.ChangeRemoved,
			Scope:    models.ScopeService,
			Name:     name,
			Path:     fmt.Sprintf("services.%s", name),
			Before:   old[name],
			Severity: models.SeverityBreaking,
		})
	}

	for _, name := range common {
		oldSvc, newSvc := old[name], new[name]
		changes := compareService(name, &oldSvc, &newSvc)
		if len(changes) > 0 {
			counts.Changed++
			for _, c := range changes {
				report.AddChange(c)
			}
		}
	}
}

// fieldDiff builds changes for one service
type fieldDiff struct {
	name    string
	base    string
	changes []models.Change
}

func (d *fieldDiff) add(kind models.ChangeKind, path string, before, after any, sev models.Severity) {
	d.changes = append(d.changes, models.Change{
		Kind:     kind,
		Scope:    models.ScopeService,
		Name:     d.name,
		Path:     d.base + "." + path,
		Before:   before,
		After:    after,
		Severity: sev,
	})
}

// value reports a whole-field change when the two values differ
func (d *fieldDiff) value(path string, before, after any, beforeSet, afterSet bool, sev models.Severity) {
	if beforeSet == afterSet && reflect.DeepEqual(before, after) {
		return
	}
	switch {
	case !beforeSet:
		d.add(models.ChangeAdded, path, nil, after, models.SeverityInfo)
	case !afterSet:
		d.add(models.ChangeRemoved, path, before, nil, sev)
	default:
		d.add(models.ChangeModified, path, before, after, sev)
	}
}

// compareService compares two services and returns changes
func compareService(name string, old, new *models.Service) []models.Change {
	d := &fieldDiff{name: name, base: fmt.Sprintf("services.%s", name)}

	if !ptrEqual(old.Image, new.Image) {
		d.add(changeKindForPtrs(old.Image, new.Image), "image", ptrValue(old.Image), ptrValue(new.Image), imageSeverity(old.Image, new.Image))
	}
	d.value("build", deref(old.Build), deref(new.Build), old.Build != nil, new.Build != nil, models.SeverityWarning)

	// absent and empty commands are different states
	d.value("command", commandValue(old.Command), commandValue(new.Command), old.Command != nil, new.Command != nil, models.SeverityInfo)
	d.value("entrypoint", commandValue(old.Entrypoint), commandValue(new.Entrypoint), old.Entrypoint != nil, new.Entrypoint != nil, models.SeverityWarning)

	compareStringMap(d, "environment", old.Environment, new.Environment, models.SeverityBreaking, models.SeverityWarning)
	compareStringMap(d, "labels", old.Labels, new.Labels, models.SeverityInfo, models.SeverityInfo)

	compareKeyed(d, "ports", portMap(old.Ports), portMap(new.Ports), models.SeverityBreaking)
	compareKeyed(d, "volumes", mountMap(old.Volumes), mountMap(new.Volumes), models.SeverityBreaking)
	compareKeyed(d, "depends_on", old.DependsOn, new.DependsOn, models.SeverityWarning)
	compareKeyed(d, "networks", old.Networks, new.Networks, models.SeverityWarning)
	compareKeyed(d, "secrets", refMap(old.Secrets), refMap(new.Secrets), models.SeverityWarning)
	compareKeyed(d, "configs", refMap(old.Configs), refMap(new.Configs), models.SeverityWarning)

	d.value("env_file", old.EnvFile, new.EnvFile, len(old.EnvFile) > 0, len(new.EnvFile) > 0, models.SeverityWarning)

	// Healthcheck removal is breaking; disabling one is a warning
	hcSev := models.SeverityInfo
	if new.Healthcheck != nil && new.Healthcheck.Disable && (old.Healthcheck == nil || !old.Healthcheck.Disable) {
		hcSev = models.SeverityWarning
	}
	if old.Healthcheck != nil && new.Healthcheck == nil {
		hcSev = models.SeverityBreaking
	}
	d.value("healthcheck", deref(old.Healthcheck), deref(new.Healthcheck), old.Healthcheck != nil, new.Healthcheck != nil, hcSev)

	d.value("deploy", deref(old.Deploy), deref(new.Deploy), old.Deploy != nil, new.Deploy != nil, models.SeverityWarning)
	d.value("restart", old.Restart, new.Restart, old.Restart != "", new.Restart != "", models.SeverityInfo)

	return d.changes
}

// compareStringMap compares environment-like maps key by key
func compareStringMap(d *fieldDiff, field string, old, new map[string]string, removedSev, modifiedSev models.Severity) {
	added, removed, common := diffSets(mapKeys(old), mapKeys(new))

	for _, key := range added {
		d.add(models.ChangeAdded, fmt.Sprintf("%s.%s", field, key), nil, new[key], models.SeverityInfo)
	}
	for _, key := range removed {
		d.add(models.ChangeRemoved, fmt.Sprintf("%s.%s", field, key), old[key], nil, removedSev)
	}
	for _, key := range common {
		if old[key] != new[key] {
			d.add(models.ChangeModified, fmt.Sprintf("%s.%s", field, key), old[key], new[key], modifiedSev)
		}
	}
}

// compareKeyed compares entries identified by a key
func compareKeyed[V any](d *fieldDiff, field string, old, new map[string]V, removedSev models.Severity) {
	added, removed, common := diffSets(mapKeys(old), mapKeys(new))

	for _, key := range added {
		d.add(models.ChangeAdded, fmt.Sprintf("%s.%s", field, key), nil, new[key], models.SeverityInfo)
	}
	for _, key := range removed {
		d.add(models.ChangeRemoved, fmt.Sprintf("%s.%s", field, key), old[key], nil, removedSev)
	}
	for _, key := range common {
		if !reflect.DeepEqual(old[key], new[key]) {
			d.add(models.ChangeModified, fmt.Sprintf("%s.%s", field, key), old[key], new[key], models.SeverityWarning)
		}
	}
}

// compareResources compares top-level resource definitions
func compareResources[T any](scope models.Scope, section string, old, new map[string]T, removedSev models.Severity, report *models.DiffReport) {
	added, removed, common := diffSets(mapKeys(old), mapKeys(new))
	counts := report.Summary.Counts(scope)
	counts.Added = len(added)
	counts.Removed = len(removed)

	for _, name := range added {
		report.AddChange(models.Change{
			Kind:     models.ChangeAdded,
			Scope:    scope,
			Name:     name,
			Path:     fmt.Sprintf("%s.%s", section, name),
			After:    new[name],
			Severity: models.SeverityInfo,
		})
	}

	for _, name := range removed {
		report.AddChange(models.Change{
			Kind:     models.ChangeRemoved,
			Scope:    scope,
			Name:     name,
			Path:     fmt.Sprintf("%s.%s", section, name),
			Before:   old[name],
			Severity: removedSev,
		})
	}

	for _, name := range common {
		if reflect.DeepEqual(old[name], new[name]) {
			continue
		}
		counts.Changed++
		report.AddChange(models.Change{
			Kind:     models.ChangeModified,
			Scope:    scope,
			Name:     name,
			Path:     fmt.Sprintf("%s.%s", section, name),
			Before:   old[name],
			After:    new[name],
			Severity: models.SeverityWarning,
		})
	}
}

// FilterByService filters a report to only include changes for a specific service
func FilterByService(report *models.DiffReport, service string) *models.DiffReport {
	filtered := models.NewDiffReport()
	filtered.Summary = report.Summary

	for _, c := range report.Changes {
		if c.Scope == models.ScopeService && c.Name == service {
			filtered.Changes = append(filtered.Changes, c)
		}
	}

	return filtered
}

// FilterBySeverity filters a report to only include changes at or above a severity level
func FilterBySeverity(report *models.DiffReport, minSeverity string) *models.DiffReport {
	minLevel := models.SeverityLevel(models.ParseSeverity(minSeverity))

	filtered := models.NewDiffReport()
	filtered.Summary = report.Summary

	for _, c := range report.Changes {
		if models.SeverityLevel(c.Severity) >= minLevel {
			filtered.Changes = append(filtered.Changes, c)
		}
	}

	return filtered
}

// Helper functions

func mapKeys[K comparable, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func diffSets(old, new []string) (added, removed, common []string) {
	oldSet := make(map[string]bool)
	newSet := make(map[string]bool)

	for _, s := range old {
		oldSet[s] = true
	}
	for _, s := range new {
		newSet[s] = true
	}

	for s := range newSet {
		if !oldSet[s] {
			added = append(added, s)
		}
	}
	for s := range oldSet {
		if !newSet[s] {
			removed = append(removed, s)
		} else {
			common = append(common, s)
		}
	}

	sort.Strings(added)
	sort.Strings(removed)
	sort.Strings(common)
	return
}

func ptrEqual(a, b *string) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

func ptrValue(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func commandValue(c *models.Command) any {
	if c == nil {
		return nil
	}
	return []string(*c)
}

func changeKindForPtrs(old, new *string) models.ChangeKind {
	if old == nil {
		return models.ChangeAdded
	}
	if new == nil {
		return models.ChangeRemoved
	}
	return models.ChangeModified
}

func portMap(ports []models.Port) map[string]models.Port {
	m := make(map[string]models.Port)
	for _, p := range ports {
		key := p.Raw
		if key == "" {
			key = fmt.Sprintf("%s:%d/%s", p.Published, p.Target, p.Protocol)
			if p.HostIP != "" {
				key = p.HostIP + ":" + key
			}
		}
		m[key] = p
	}
	return m
}

func mountMap(mounts []models.Mount) map[string]models.Mount {
	m := make(map[string]models.Mount)
	for _, mount := range mounts {
		key := mount.Target
		if key == "" {
			key = mount.Source
		}
		m[key] = mount
	}
	return m
}

func refMap(refs []models.FileRef) map[string]models.FileRef {
	m := make(map[string]models.FileRef)
	for _, r := range refs {
		m[r.Source] = r
	}
	return m
}
