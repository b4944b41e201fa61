// Package edit holds uncommitted edits over a canonical document: one
// ServiceEdit per service and one Section per top-level resource class.
package edit

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/stackgen-cli/compose-edit/internal/models"
)

// ErrSelfDependency is returned when a service is made to depend on itself
var ErrSelfDependency = errors.New("service cannot depend on itself")

// Field names an editable service field
type Field string

const (
	FieldImage       Field = "image"
	FieldBuild       Field = "build"
	FieldCommand     Field = "command"
	FieldEntrypoint  Field = "entrypoint"
	FieldPorts       Field = "ports"
	FieldVolumes     Field = "volumes"
	FieldEnvironment Field = "environment"
	FieldEnvFile     Field = "env_file"
	FieldDependsOn   Field = "depends_on"
	FieldHealthcheck Field = "healthcheck"
	FieldDeploy      Field = "deploy"
	FieldLabels      Field = "labels"
	FieldRestart     Field = "restart"
	FieldNetworks    Field = "networks"
	FieldSecrets     Field = "secrets"
	FieldConfigs     Field = "configs"
)

// ServiceEdit tracks overrides for one service over an immutable base.
// Each field is unset (use the base), a value, or, for the nullable fields,
// null (clear). Not safe for concurrent use.
type ServiceEdit struct {
	name    string
	base    models.Service
	changes models.ServiceChanges

	rev       uint64
	baseRev   uint64
	cached    models.Service
	cachedRev [2]uint64
	hasCached bool
}

// NewServiceEdit creates a clean edit session for a service
func NewServiceEdit(name string, base models.Service) *ServiceEdit {
	return &ServiceEdit{name: name, base: base}
}

// Name returns the service name
func (e *ServiceEdit) Name() string { return e.name }

// Base returns the canonical service the overrides apply to
func (e *ServiceEdit) Base() models.Service { return e.base }

// Revision increases on every change to the overrides
func (e *ServiceEdit) Revision() uint64 { return e.rev }

// Rename changes the service name, keeping the overrides
func (e *ServiceEdit) Rename(name string) { e.name = name }

// Rebase replaces the base, keeping the overrides
func (e *ServiceEdit) Rebase(base models.Service) {
	e.base = base
	e.baseRev++
}

func (e *ServiceEdit) touch() { e.rev++ }

func (e *ServiceEdit) SetImage(image string) {
	e.changes.Image = models.Set(image)
	e.touch()
}

func (e *ServiceEdit) SetBuild(build models.Build) {
	build.Args = maps.Clone(build.Args)
	e.changes.Build = models.Set(build)
	e.touch()
}

func (e *ServiceEdit) ClearBuild() {
	e.changes.Build = models.Null[models.Build]()
	e.touch()
}

// SetCommand replaces the command. An empty (or nil) slice means "no
// command", which is distinct from clearing it back to the image default.
func (e *ServiceEdit) SetCommand(tokens []string) {
	e.changes.Command = models.Set(commandValues(tokens))
	e.touch()
}

// ClearCommand removes the command so the image default applies
func (e *ServiceEdit) ClearCommand() {
	e.changes.Command = models.Null[models.CommandValues]()
	e.touch()
}

func (e *ServiceEdit) SetEntrypoint(tokens []string) {
	e.changes.Entrypoint = models.Set(commandValues(tokens))
	e.touch()
}

func (e *ServiceEdit) ClearEntrypoint() {
	e.changes.Entrypoint = models.Null[models.CommandValues]()
	e.touch()
}

func (e *ServiceEdit) SetPorts(ports []models.Port) {
	e.changes.Ports = models.Set(nonNil(ports))
	e.touch()
}

func (e *ServiceEdit) SetVolumes(mounts []models.Mount) {
	e.changes.Volumes = models.Set(nonNil(mounts))
	e.touch()
}

func (e *ServiceEdit) SetEnvironment(env map[string]string) {
	e.changes.Environment = models.Set(nonNilMap(env))
	e.touch()
}

func (e *ServiceEdit) SetEnvFile(files []models.EnvFile) {
	e.changes.EnvFile = models.Set(nonNil(files))
	e.touch()
}

// SetDependsOn replaces the dependency map. A dependency on the service
// itself is rejected and leaves the overrides untouched.
func (e *ServiceEdit) SetDependsOn(deps map[string]models.Dependency) error {
	if _, ok := deps[e.name]; ok {
		return fmt.Errorf("%s: %w", e.name, ErrSelfDependency)
	}
	e.changes.DependsOn = models.Set(nonNilMap(deps))
	e.touch()
	return nil
}

// RenameDependency rewrites an overridden depends_on entry after the
// service it names was renamed
func (e *ServiceEdit) RenameDependency(oldName, newName string) {
	deps, ok := e.changes.DependsOn.Get()
	if !ok {
		return
	}
	dep, found := deps[oldName]
	if !found {
		return
	}
	next := maps.Clone(deps)
	delete(next, oldName)
	next[newName] = dep
	e.changes.DependsOn = models.Set(next)
	e.touch()
}

func (e *ServiceEdit) SetHealthcheck(hc models.Healthcheck) {
	hc.Test = slices.Clone(hc.Test)
	e.changes.Healthcheck = models.Set(hc)
	e.touch()
}

// ClearHealthcheck removes the healthcheck so the image default applies.
// Use SetHealthcheck with Disable to turn checks off explicitly.
func (e *ServiceEdit) ClearHealthcheck() {
	e.changes.Healthcheck = models.Null[models.Healthcheck]()
	e.touch()
}

func (e *ServiceEdit) SetDeploy(deploy models.Deploy) {
	deploy.Labels = maps.Clone(deploy.Labels)
	e.changes.Deploy = models.Set(deploy)
	e.touch()
}

func (e *ServiceEdit) ClearDeploy() {
	e.changes.Deploy = models.Null[models.Deploy]()
	e.touch()
}

func (e *ServiceEdit) SetLabels(labels map[string]string) {
	e.changes.Labels = models.Set(nonNilMap(labels))
	e.touch()
}

func (e *ServiceEdit) SetRestart(policy string) {
	e.changes.Restart = models.Set(policy)
	e.touch()
}

func (e *ServiceEdit) SetNetworks(networks map[string]models.ServiceNetwork) {
	e.changes.Networks = models.Set(nonNilMap(networks))
	e.touch()
}

func (e *ServiceEdit) SetSecrets(refs []models.FileRef) {
	e.changes.Secrets = models.Set(nonNil(refs))
	e.touch()
}

func (e *ServiceEdit) SetConfigs(refs []models.FileRef) {
	e.changes.Configs = models.Set(nonNil(refs))
	e.touch()
}

// Reset drops the override of one field
func (e *ServiceEdit) Reset(field Field) error {
	c := &e.changes
	switch field {
	case FieldImage:
		c.Image = models.Slot[string]{}
	case FieldBuild:
		c.Build = models.Slot[models.Build]{}
	case FieldCommand:
		c.Command = models.Slot[models.CommandValues]{}
	case FieldEntrypoint:
		c.Entrypoint = models.Slot[models.CommandValues]{}
	case FieldPorts:
		c.Ports = models.Slot[[]models.Port]{}
	case FieldVolumes:
		c.Volumes = models.Slot[[]models.Mount]{}
	case FieldEnvironment:
		c.Environment = models.Slot[map[string]string]{}
	case FieldEnvFile:
		c.EnvFile = models.Slot[[]models.EnvFile]{}
	case FieldDependsOn:
		c.DependsOn = models.Slot[map[string]models.Dependency]{}
	case FieldHealthcheck:
		c.Healthcheck = models.Slot[models.Healthcheck]{}
	case FieldDeploy:
		c.Deploy = models.Slot[models.Deploy]{}
	case FieldLabels:
		c.Labels = models.Slot[map[string]string]{}
	case FieldRestart:
		c.Restart = models.Slot[string]{}
	case FieldNetworks:
		c.Networks = models.Slot[map[string]models.ServiceNetwork]{}
	case FieldSecrets:
		c.Secrets = models.Slot[[]models.FileRef]{}
	case FieldConfigs:
		c.Configs = models.Slot[[]models.FileRef]{}
	default:
		return fmt.Errorf("unknown field %q", field)
	}
	e.touch()
	return nil
}

// Dirty reports whether any field is overridden
func (e *ServiceEdit) Dirty() bool {
	return !e.changes.IsEmpty()
}

// Discard drops every override
func (e *ServiceEdit) Discard() {
	e.changes = models.ServiceChanges{}
	e.touch()
}

// Payload returns the per-service change object. Unset fields are absent.
func (e *ServiceEdit) Payload() models.ServiceChanges {
	return e.changes
}

// Effective returns the base with the overrides applied. The result is
// cached until the next edit, so slices and maps are shared between calls
// and must not be modified.
func (e *ServiceEdit) Effective() models.Service {
	revs := [2]uint64{e.rev, e.baseRev}
	if e.hasCached && e.cachedRev == revs {
		return e.cached
	}

	c := e.changes
	svc := e.base
	svc.Image = pointer(c.Image, e.base.Image)
	svc.Build = pointer(c.Build, e.base.Build)
	svc.Command = command(c.Command, e.base.Command)
	svc.Entrypoint = command(c.Entrypoint, e.base.Entrypoint)
	svc.Ports = value(c.Ports, e.base.Ports)
	svc.Volumes = value(c.Volumes, e.base.Volumes)
	svc.Environment = value(c.Environment, e.base.Environment)
	svc.EnvFile = value(c.EnvFile, e.base.EnvFile)
	svc.DependsOn = value(c.DependsOn, e.base.DependsOn)
	svc.Healthcheck = pointer(c.Healthcheck, e.base.Healthcheck)
	svc.Deploy = pointer(c.Deploy, e.base.Deploy)
	svc.Labels = value(c.Labels, e.base.Labels)
	svc.Restart = value(c.Restart, e.base.Restart)
	svc.Networks = value(c.Networks, e.base.Networks)
	svc.Secrets = value(c.Secrets, e.base.Secrets)
	svc.Configs = value(c.Configs, e.base.Configs)

	e.cached, e.cachedRev, e.hasCached = svc, revs, true
	return svc
}

// value resolves a slot over a base value; null yields the zero value
func value[T any](s models.Slot[T], base T) T {
	switch {
	case s.IsSet():
		v, _ := s.Get()
		return v
	case s.IsNull():
		var zero T
		return zero
	default:
		return base
	}
}

func pointer[T any](s models.Slot[T], base *T) *T {
	switch {
	case s.IsSet():
		v, _ := s.Get()
		return &v
	case s.IsNull():
		return nil
	default:
		return base
	}
}

func command(s models.Slot[models.CommandValues], base *models.Command) *models.Command {
	switch {
	case s.IsSet():
		v, _ := s.Get()
		cmd := models.Command(v.Values)
		return &cmd
	case s.IsNull():
		return nil
	default:
		return base
	}
}

func commandValues(tokens []string) models.CommandValues {
	return models.CommandValues{Values: nonNil(tokens)}
}

// nonNil copies a slice, turning nil into an empty slice so that a set
// field is never confused with an absent one
func nonNil[S ~[]E, E any](s S) S {
	if s == nil {
		return S{}
	}
	return slices.Clone(s)
}

func nonNilMap[M ~map[K]V, K comparable, V any](m M) M {
	if m == nil {
		return M{}
	}
	return maps.Clone(m)
}
