package mutate

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stackgen-cli/compose-edit/internal/models"
)

// portNode writes a port in short syntax unless the host ip has colons
func portNode(p models.Port) (*yaml.Node, error) {
	if p.Raw != "" {
		return quoted(p.Raw), nil
	}
	if strings.Contains(p.HostIP, ":") {
		return encode(p)
	}
	s := strconv.Itoa(p.Target)
	switch {
	case p.HostIP != "":
		s = p.HostIP + ":" + p.Published + ":" + s
	case p.Published != "":
		s = p.Published + ":" + s
	}
	if p.Protocol != "" && p.Protocol != "tcp" {
		s += "/" + p.Protocol
	}
	return quoted(s), nil
}

// mountNode writes a mount in short syntax when it reads back the same
func mountNode(m models.Mount) (*yaml.Node, error) {
	short := m.Type != models.MountTmpfs &&
		m.Source != "" && m.Target != "" &&
		!strings.Contains(m.Source, ":") && !strings.Contains(m.Target, ":") &&
		inferredType(m.Source) == m.Type
	if !short {
		return encode(m)
	}
	s := m.Source + ":" + m.Target
	if m.ReadOnly {
		s += ":ro"
	}
	return scalar(s), nil
}

func inferredType(source string) string {
	if strings.HasPrefix(source, "/") || strings.HasPrefix(source, ".") ||
		strings.HasPrefix(source, "~") || strings.Contains(source, "${") {
		return models.MountBind
	}
	return models.MountVolume
}

func listNode[T any](items []T, fn func(T) (*yaml.Node, error)) (*yaml.Node, error) {
	nodes := make([]*yaml.Node, 0, len(items))
	for _, item := range items {
		n, err := fn(item)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return sequence(nodes...), nil
}

func stringsNode(values []string) *yaml.Node {
	nodes := make([]*yaml.Node, 0, len(values))
	for _, v := range values {
		nodes = append(nodes, scalar(v))
	}
	return sequence(nodes...)
}

// stringMapNode writes a mapping with sorted keys and quoted values
func stringMapNode(values map[string]string) *yaml.Node {
	m := mapping()
	for _, k := range slices.Sorted(maps.Keys(values)) {
		m.Content = append(m.Content, scalar(k), quoted(values[k]))
	}
	return m
}

// dependsOnNode uses the list form when every entry is a plain start dependency
func dependsOnNode(deps map[string]models.Dependency) (*yaml.Node, error) {
	names := slices.Sorted(maps.Keys(deps))
	plain := true
	for _, d := range deps {
		if d.Condition != models.ConditionStarted || d.Required != nil || d.Restart != nil {
			plain = false
			break
		}
	}
	if plain {
		return stringsNode(names), nil
	}
	m := mapping()
	for _, name := range names {
		n, err := encode(deps[name])
		if err != nil {
			return nil, err
		}
		m.Content = append(m.Content, scalar(name), n)
	}
	return m, nil
}

func envFileNode(files []models.EnvFile) (*yaml.Node, error) {
	if !slices.ContainsFunc(files, func(f models.EnvFile) bool { return f.Required != nil }) {
		paths := make([]string, len(files))
		for i, f := range files {
			paths[i] = f.Path
		}
		if len(paths) == 1 {
			return scalar(paths[0]), nil
		}
		return stringsNode(paths), nil
	}
	return listNode(files, func(f models.EnvFile) (*yaml.Node, error) { return encode(f) })
}

func buildNode(b models.Build) (*yaml.Node, error) {
	if b.Context != "" && b.Dockerfile == "" && len(b.Args) == 0 && b.Target == "" &&
		len(b.CacheFrom) == 0 && len(b.CacheTo) == 0 && len(b.Platforms) == 0 {
		return scalar(b.Context), nil
	}
	return encode(b)
}

// serviceNetworksNode uses the list form when no attachment has settings
func serviceNetworksNode(networks map[string]models.ServiceNetwork) (*yaml.Node, error) {
	names := slices.Sorted(maps.Keys(networks))
	plain := true
	for _, n := range networks {
		if len(n.Aliases) > 0 || n.IPv4Address != "" || n.IPv6Address != "" || n.Priority != 0 {
			plain = false
			break
		}
	}
	if plain {
		return stringsNode(names), nil
	}
	m := mapping()
	for _, name := range names {
		n, err := encode(networks[name])
		if err != nil {
			return nil, err
		}
		m.Content = append(m.Content, scalar(name), n)
	}
	return m, nil
}

func fileRefNode(r models.FileRef) (*yaml.Node, error) {
	if r.Target == "" && r.UID == "" && r.GID == "" && r.Mode == "" {
		return scalar(r.Source), nil
	}
	return encode(r)
}

func commandNode(c models.CommandValues) *yaml.Node {
	return stringsNode(c.Values)
}
