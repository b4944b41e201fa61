// Package mutate applies change-sets to compose documents. Documents are
// edited as yaml.v3 node trees, so untouched content keeps its comments,
// key order and formatting.
package mutate

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stackgen-cli/compose-edit/internal/models"
)

var (
	ErrInvalid  = errors.New("invalid change")
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// Apply returns src with changes applied. Deletions and renames run first,
// then additions, then field and section changes.
func Apply(src []byte, changes models.ComposeChanges) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse compose document: %w", err)
	}
	if doc.Kind == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{mapping()}}
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level of a compose document must be a mapping", ErrInvalid)
	}

	if err := applyServices(root, changes); err != nil {
		return nil, err
	}
	for _, sec := range []struct {
		name  string
		delta map[string]any
	}{
		{"networks", anyDelta(changes.NetworkChanges)},
		{"volumes", anyDelta(changes.VolumeChanges)},
		{"secrets", anyDelta(changes.SecretChanges)},
		{"configs", anyDelta(changes.ConfigChanges)},
	} {
		if err := applySection(root, sec.name, sec.delta); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, fmt.Errorf("failed to encode compose document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode compose document: %w", err)
	}
	return buf.Bytes(), nil
}

// anyDelta turns a typed section delta into values, keeping nil as delete
func anyDelta[T any](delta map[string]*T) map[string]any {
	if len(delta) == 0 {
		return nil
	}
	out := make(map[string]any, len(delta))
	for name, cfg := range delta {
		if cfg == nil {
			out[name] = nil
		} else {
			out[name] = *cfg
		}
	}
	return out
}

func applyServices(root *yaml.Node, changes models.ComposeChanges) error {
	needed := len(changes.AddServices) > 0 || len(changes.ServiceChanges) > 0 ||
		len(changes.DeleteServices) > 0 || len(changes.RenameServices) > 0
	if !needed {
		return nil
	}
	services, err := editable(root, "services")
	if err != nil {
		return err
	}
	if services == nil {
		services = mapping()
		set(root, "services", services)
	}

	for _, name := range changes.DeleteServices {
		if !remove(services, name) {
			return fmt.Errorf("service %s: %w", name, ErrNotFound)
		}
	}

	for _, oldName := range slices.Sorted(maps.Keys(changes.RenameServices)) {
		newName := changes.RenameServices[oldName]
		if err := renameService(services, oldName, newName); err != nil {
			return err
		}
	}

	for _, name := range slices.Sorted(maps.Keys(changes.AddServices)) {
		if !models.ValidServiceName(name) {
			return fmt.Errorf("service %q: %w: name must match %s", name, ErrInvalid, models.ServiceNamePattern)
		}
		if existing, _ := lookup(services, name); existing != nil {
			return fmt.Errorf("service %s: %w", name, ErrConflict)
		}
		node, err := newServiceNode(changes.AddServices[name])
		if err != nil {
			return fmt.Errorf("service %s: %w", name, err)
		}
		set(services, name, node)
	}

	for _, name := range slices.Sorted(maps.Keys(changes.ServiceChanges)) {
		svc, err := editable(services, name)
		if err != nil {
			return fmt.Errorf("service %s: %w", name, err)
		}
		if svc == nil {
			return fmt.Errorf("service %s: %w", name, ErrNotFound)
		}
		if err := applyServiceChanges(svc, changes.ServiceChanges[name]); err != nil {
			return fmt.Errorf("service %s: %w", name, err)
		}
	}
	return nil
}

// renameService renames the key and rewrites references from other services
func renameService(services *yaml.Node, oldName, newName string) error {
	if !models.ValidServiceName(newName) {
		return fmt.Errorf("service %q: %w: name must match %s", newName, ErrInvalid, models.ServiceNamePattern)
	}
	if existing, _ := lookup(services, newName); existing != nil {
		return fmt.Errorf("service %s: %w", newName, ErrConflict)
	}
	if !renameKey(services, oldName, newName) {
		return fmt.Errorf("service %s: %w", oldName, ErrNotFound)
	}

	for i := 1; i < len(services.Content); i += 2 {
		svc := services.Content[i]
		if svc.Kind != yaml.MappingNode {
			continue
		}
		if deps, _ := lookup(svc, "depends_on"); deps != nil {
			switch deps.Kind {
			case yaml.SequenceNode:
				for _, item := range deps.Content {
					if item.Value == oldName {
						item.Value = newName
					}
				}
			case yaml.MappingNode:
				renameKey(deps, oldName, newName)
			}
		}
		if mode, _ := lookup(svc, "network_mode"); mode != nil && mode.Value == "service:"+oldName {
			mode.Value = "service:" + newName
		}
		if from, _ := lookup(svc, "volumes_from"); from != nil && from.Kind == yaml.SequenceNode {
			for _, item := range from.Content {
				ref, mode, _ := strings.Cut(item.Value, ":")
				if ref == oldName {
					item.Value = newName
					if mode != "" {
						item.Value += ":" + mode
					}
				}
			}
		}
	}
	return nil
}

func newServiceNode(cfg models.NewServiceConfig) (*yaml.Node, error) {
	if cfg.Image == "" {
		return nil, fmt.Errorf("%w: image is required", ErrInvalid)
	}
	svc := mapping()
	set(svc, "image", scalar(cfg.Image))
	if len(cfg.Ports) > 0 {
		n, err := listNode(cfg.Ports, portNode)
		if err != nil {
			return nil, err
		}
		set(svc, "ports", n)
	}
	if len(cfg.Environment) > 0 {
		set(svc, "environment", stringMapNode(cfg.Environment))
	}
	if len(cfg.Volumes) > 0 {
		n, err := listNode(cfg.Volumes, mountNode)
		if err != nil {
			return nil, err
		}
		set(svc, "volumes", n)
	}
	if cfg.Restart != "" {
		set(svc, "restart", scalar(cfg.Restart))
	}
	return svc, nil
}

// field writes one slot: unset is skipped, null removes the key and a value
// replaces it
func field[T any](svc *yaml.Node, key string, slot models.Slot[T], fn func(T) (*yaml.Node, error)) error {
	if slot.IsZero() {
		return nil
	}
	v, ok := slot.Get()
	if !ok {
		remove(svc, key)
		return nil
	}
	n, err := fn(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	set(svc, key, n)
	return nil
}

func plain[T any](fn func(T) *yaml.Node) func(T) (*yaml.Node, error) {
	return func(v T) (*yaml.Node, error) { return fn(v), nil }
}

func applyServiceChanges(svc *yaml.Node, c models.ServiceChanges) error {
	for _, write := range []func() error{
		func() error { return field(svc, "image", c.Image, plain(scalar)) },
		func() error { return field(svc, "build", c.Build, buildNode) },
		func() error { return field(svc, "command", c.Command, plain(commandNode)) },
		func() error { return field(svc, "entrypoint", c.Entrypoint, plain(commandNode)) },
		func() error {
			return field(svc, "ports", c.Ports, func(p []models.Port) (*yaml.Node, error) { return listNode(p, portNode) })
		},
		func() error {
			return field(svc, "volumes", c.Volumes, func(m []models.Mount) (*yaml.Node, error) { return listNode(m, mountNode) })
		},
		func() error { return field(svc, "environment", c.Environment, plain(stringMapNode)) },
		func() error { return field(svc, "env_file", c.EnvFile, envFileNode) },
		func() error { return field(svc, "depends_on", c.DependsOn, dependsOnNode) },
		func() error {
			return field(svc, "healthcheck", c.Healthcheck, func(h models.Healthcheck) (*yaml.Node, error) { return encode(h) })
		},
		func() error {
			return field(svc, "deploy", c.Deploy, func(d models.Deploy) (*yaml.Node, error) { return encode(d) })
		},
		func() error { return field(svc, "labels", c.Labels, plain(stringMapNode)) },
		func() error { return field(svc, "restart", c.Restart, plain(scalar)) },
		func() error { return field(svc, "networks", c.Networks, serviceNetworksNode) },
		func() error {
			return field(svc, "secrets", c.Secrets, func(r []models.FileRef) (*yaml.Node, error) { return listNode(r, fileRefNode) })
		},
		func() error {
			return field(svc, "configs", c.Configs, func(r []models.FileRef) (*yaml.Node, error) { return listNode(r, fileRefNode) })
		},
	} {
		if err := write(); err != nil {
			return err
		}
	}
	return nil
}

// applySection puts or deletes top-level resources; an emptied section is removed
func applySection(root *yaml.Node, name string, delta map[string]any) error {
	if len(delta) == 0 {
		return nil
	}
	sec, err := editable(root, name)
	if err != nil {
		return err
	}
	if sec == nil {
		sec = mapping()
		set(root, name, sec)
	}

	for _, key := range slices.Sorted(maps.Keys(delta)) {
		cfg := delta[key]
		if cfg == nil {
			remove(sec, key)
			continue
		}
		if !models.ValidServiceName(key) {
			return fmt.Errorf("%s %q: %w: name must match %s", name, key, ErrInvalid, models.ServiceNamePattern)
		}
		n, err := encode(cfg)
		if err != nil {
			return fmt.Errorf("%s %s: %w", name, key, err)
		}
		set(sec, key, n)
	}

	if len(sec.Content) == 0 {
		remove(root, name)
	}
	return nil
}
