package parser

import (
	"strconv"
	"strings"

	"github.com/stackgen-cli/compose-edit/internal/models"
)

// NormalizePort normalizes a port mapping, discarding notices
func NormalizePort(raw any) models.Port { return new(Normalizer).Port(raw) }

// NormalizeVolume normalizes a service volume mount, discarding notices
func NormalizeVolume(raw any) models.Mount { return new(Normalizer).Mount(raw) }

// NormalizeEnvironment normalizes environment, discarding notices
func NormalizeEnvironment(raw any) map[string]string { return new(Normalizer).Environment(raw) }

// NormalizeDependsOn normalizes depends_on, discarding notices
func NormalizeDependsOn(raw any) map[string]models.Dependency { return new(Normalizer).DependsOn(raw) }

// NormalizeCommand normalizes command or entrypoint, discarding notices
func NormalizeCommand(raw any) *models.Command { return new(Normalizer).Command(raw) }

// NormalizeLabels normalizes labels, discarding notices
func NormalizeLabels(raw any) map[string]string { return new(Normalizer).Labels(raw) }

// NormalizeEnvFile normalizes env_file, discarding notices
func NormalizeEnvFile(raw any) []models.EnvFile { return new(Normalizer).EnvFile(raw) }

// Port normalizes one port mapping: "80", "8080:80", "127.0.0.1:8080:80/udp",
// a bare number, or the long mapping form.
func (n *Normalizer) Port(raw any) models.Port {
	switch p := raw.(type) {
	case models.Port:
		return n.coercePort(p)
	case *models.Port:
		if p != nil {
			return n.coercePort(*p)
		}
	}

	v := classify(raw)
	switch v.kind {
	case kindString:
		return n.portString(v.text)
	case kindNumber:
		target, ok := v.integer()
		if !ok {
			n.notef("port %s is not a whole number", v.text)
			return models.Port{Protocol: "tcp", Raw: v.text}
		}
		return models.Port{Target: target, Protocol: "tcp"}
	case kindMapping:
		return n.portMapping(v.obj)
	default:
		n.notef("unrecognized port of type %s", v.kind)
		return models.Port{Protocol: "tcp"}
	}
}

func (n *Normalizer) coercePort(p models.Port) models.Port {
	p.Protocol = n.protocol(p.Protocol)
	return p
}

func (n *Normalizer) protocol(s string) string {
	switch proto := strings.ToLower(strings.TrimSpace(s)); proto {
	case "":
		return "tcp"
	case "tcp", "udp":
		return proto
	default:
		n.notef("unsupported protocol %q, using tcp", s)
		return "tcp"
	}
}

// portString parses the short syntax. Colons inside ${...} are not delimiters.
func (n *Normalizer) portString(s string) models.Port {
	port := models.Port{Protocol: "tcp"}
	rest := strings.TrimSpace(s)

	// Check for protocol suffix
	if strings.HasSuffix(rest, "/udp") {
		port.Protocol = "udp"
		rest = strings.TrimSuffix(rest, "/udp")
	} else if strings.HasSuffix(rest, "/tcp") {
		rest = strings.TrimSuffix(rest, "/tcp")
	}

	var target string
	parts := splitUnquoted(rest, ':')
	switch len(parts) {
	case 1:
		// Just container port: "80"
		target = parts[0]
	case 2:
		// published:target
		port.Published = parts[0]
		target = parts[1]
	case 3:
		// host_ip:published:target
		port.HostIP = parts[0]
		port.Published = parts[1]
		target = parts[2]
	default:
		n.notef("cannot split port %q into host_ip:published:target", s)
		port.Raw = s
		return port
	}

	t, ok := classify(target).integer()
	if !ok {
		n.notef("container port %q is not numeric", target)
		port.Raw = s
		return port
	}
	port.Target = t
	return port
}

func (n *Normalizer) portMapping(obj map[string]any) models.Port {
	port := models.Port{
		Published: stringify(obj["published"]),
		HostIP:    stringify(obj["host_ip"]),
		Raw:       stringify(obj["raw"]),
		Protocol:  n.protocol(stringify(obj["protocol"])),
	}

	target := classify(obj["target"])
	if t, ok := target.integer(); ok {
		port.Target = t
	} else if target.kind != kindAbsent {
		n.notef("container port %q is not numeric", target.text)
		if port.Raw == "" {
			port.Raw = target.text
		}
	}
	return port
}

// Ports normalizes the ports list
func (n *Normalizer) Ports(raw any) []models.Port {
	if ports, ok := raw.([]models.Port); ok {
		out := make([]models.Port, len(ports))
		for i, p := range ports {
			out[i] = n.coercePort(p)
		}
		return out
	}

	v := classify(raw)
	switch v.kind {
	case kindAbsent:
		return nil
	case kindSequence:
		ports := make([]models.Port, 0, len(v.seq))
		for i, item := range v.seq {
			n.within(index(i), func() {
				ports = append(ports, n.Port(item))
			})
		}
		return ports
	default:
		n.notef("ports must be a sequence, got %s", v.kind)
		return nil
	}
}

// Mount normalizes one service volume: "src:dst[:opts]", a bare path, or the long mapping form
func (n *Normalizer) Mount(raw any) models.Mount {
	switch m := raw.(type) {
	case models.Mount:
		return n.coerceMount(m)
	case *models.Mount:
		if m != nil {
			return n.coerceMount(*m)
		}
	}

	v := classify(raw)
	switch v.kind {
	case kindString:
		return volumeString(v.text)
	case kindMapping:
		mount := models.Mount{
			Type:   stringify(v.obj["type"]),
			Source: stringify(v.obj["source"]),
			Target: stringify(v.obj["target"]),
		}
		if ro := classify(v.obj["read_only"]); ro.kind != kindAbsent {
			b, ok := ro.boolean()
			if !ok {
				n.notef("read_only %q is not a boolean", ro.text)
			}
			mount.ReadOnly = b
		}
		return n.coerceMount(mount)
	default:
		n.notef("unrecognized volume of type %s", v.kind)
		return models.Mount{Type: models.MountVolume}
	}
}

func (n *Normalizer) coerceMount(m models.Mount) models.Mount {
	switch m.Type {
	case models.MountBind, models.MountVolume, models.MountTmpfs:
	case "":
		m.Type = inferMountType(m.Source)
	default:
		n.notef("unsupported mount type %q", m.Type)
		m.Type = inferMountType(m.Source)
	}
	return m
}

// volumeString parses a volume string like "./data:/app/data:ro"
func volumeString(s string) models.Mount {
	parts := splitUnquoted(s, ':')
	if len(parts) < 2 {
		return models.Mount{Type: inferMountType(s), Source: s}
	}

	mount := models.Mount{
		Type:   inferMountType(parts[0]),
		Source: parts[0],
		Target: parts[1],
	}
	if opts := strings.Join(parts[2:], ":"); strings.Contains(opts, "ro") {
		mount.ReadOnly = true
	}
	return mount
}

// inferMountType determines if a source is a bind mount or named volume
func inferMountType(source string) string {
	if strings.HasPrefix(source, "/") || strings.HasPrefix(source, ".") ||
		strings.HasPrefix(source, "~") || strings.Contains(source, "${") {
		return models.MountBind
	}
	return models.MountVolume
}

// Mounts normalizes the service volumes list
func (n *Normalizer) Mounts(raw any) []models.Mount {
	if mounts, ok := raw.([]models.Mount); ok {
		out := make([]models.Mount, len(mounts))
		for i, m := range mounts {
			out[i] = n.coerceMount(m)
		}
		return out
	}

	v := classify(raw)
	switch v.kind {
	case kindAbsent:
		return nil
	case kindSequence:
		mounts := make([]models.Mount, 0, len(v.seq))
		for i, item := range v.seq {
			n.within(index(i), func() {
				mounts = append(mounts, n.Mount(item))
			})
		}
		return mounts
	default:
		n.notef("volumes must be a sequence, got %s", v.kind)
		return nil
	}
}

// Environment normalizes environment variables (list or map form)
func (n *Normalizer) Environment(raw any) map[string]string {
	return n.stringMap(raw, "environment")
}

// Labels normalizes labels (list or map form)
func (n *Normalizer) Labels(raw any) map[string]string {
	return n.stringMap(raw, "labels")
}

// stringMap accepts KEY: VALUE mappings and KEY=VALUE sequences.
// Null values and entries without "=" map to the empty string.
func (n *Normalizer) stringMap(raw any, what string) map[string]string {
	v := classify(raw)
	switch v.kind {
	case kindAbsent:
		return nil
	case kindMapping:
		out := make(map[string]string, len(v.obj))
		for _, key := range sortedKeys(v.obj) {
			val := classify(v.obj[key])
			if val.kind != kindAbsent && !val.scalar() {
				n.notef("%s value for %q is a %s, using empty string", what, key, val.kind)
				out[key] = ""
				continue
			}
			out[key] = val.text
		}
		return out
	case kindSequence:
		out := make(map[string]string, len(v.seq))
		for i, item := range v.seq {
			entry := classify(item)
			if !entry.scalar() {
				n.within(index(i), func() {
					n.notef("%s entry must be a string, got %s", what, entry.kind)
				})
				continue
			}
			key, value, _ := strings.Cut(entry.text, "=")
			out[key] = value
		}
		return out
	default:
		n.notef("%s must be a mapping or a sequence, got %s", what, v.kind)
		return nil
	}
}

// DependsOn normalizes depends_on (list or map form)
func (n *Normalizer) DependsOn(raw any) map[string]models.Dependency {
	if deps, ok := raw.(map[string]models.Dependency); ok {
		out := make(map[string]models.Dependency, len(deps))
		for name, dep := range deps {
			dep.Condition = n.condition(dep.Condition)
			out[name] = dep
		}
		return out
	}

	v := classify(raw)
	switch v.kind {
	case kindAbsent:
		return nil
	case kindSequence:
		out := make(map[string]models.Dependency, len(v.seq))
		for i, item := range v.seq {
			name := classify(item)
			if name.kind != kindString {
				n.within(index(i), func() {
					n.notef("depends_on entry must be a service name, got %s", name.kind)
				})
				continue
			}
			out[name.text] = models.Dependency{Condition: models.ConditionStarted}
		}
		return out
	case kindMapping:
		out := make(map[string]models.Dependency, len(v.obj))
		for _, name := range sortedKeys(v.obj) {
			n.within(name, func() {
				out[name] = n.dependency(v.obj[name])
			})
		}
		return out
	default:
		n.notef("depends_on must be a mapping or a sequence, got %s", v.kind)
		return nil
	}
}

func (n *Normalizer) dependency(raw any) models.Dependency {
	if dep, ok := raw.(models.Dependency); ok {
		dep.Condition = n.condition(dep.Condition)
		return dep
	}

	dep := models.Dependency{Condition: models.ConditionStarted}
	v := classify(raw)
	switch v.kind {
	case kindAbsent:
		return dep
	case kindMapping:
		dep.Condition = n.condition(stringify(v.obj["condition"]))
		dep.Required = n.optionalBool(v.obj["required"], "required")
		dep.Restart = n.optionalBool(v.obj["restart"], "restart")
		return dep
	default:
		n.notef("dependency must be a mapping, got %s", v.kind)
		return dep
	}
}

func (n *Normalizer) condition(s string) string {
	switch s {
	case "":
		return models.ConditionStarted
	case models.ConditionStarted, models.ConditionHealthy, models.ConditionCompleted:
		return s
	default:
		n.notef("unknown condition %q, using %s", s, models.ConditionStarted)
		return models.ConditionStarted
	}
}

func (n *Normalizer) optionalBool(raw any, what string) *bool {
	v := classify(raw)
	if v.kind == kindAbsent {
		return nil
	}
	b, ok := v.boolean()
	if !ok {
		n.notef("%s %q is not a boolean", what, v.text)
		return nil
	}
	return &b
}

// Command normalizes command or entrypoint. Absent stays nil (inherit from
// the image) and is never conflated with an empty sequence.
func (n *Normalizer) Command(raw any) *models.Command {
	switch c := raw.(type) {
	case *models.Command:
		if c == nil {
			return nil
		}
		out := append(models.Command{}, (*c)...)
		return &out
	case models.Command:
		out := append(models.Command{}, c...)
		return &out
	}

	v := classify(raw)
	switch {
	case v.kind == kindAbsent:
		return nil
	case v.scalar():
		// legacy shorthand: the whole string is one token
		return &models.Command{v.text}
	case v.kind == kindSequence:
		out := make(models.Command, 0, len(v.seq))
		for _, item := range v.seq {
			out = append(out, stringify(item))
		}
		return &out
	default:
		n.notef("command must be a string or a sequence, got %s", v.kind)
		return nil
	}
}

// EnvFile normalizes env_file: a path, a list of paths, or a list of {path, required}
func (n *Normalizer) EnvFile(raw any) []models.EnvFile {
	if files, ok := raw.([]models.EnvFile); ok {
		return append([]models.EnvFile(nil), files...)
	}

	v := classify(raw)
	switch v.kind {
	case kindAbsent:
		return nil
	case kindString:
		return []models.EnvFile{{Path: v.text}}
	case kindSequence:
		files := make([]models.EnvFile, 0, len(v.seq))
		for i, item := range v.seq {
			entry := classify(item)
			n.within(index(i), func() {
				switch entry.kind {
				case kindString:
					files = append(files, models.EnvFile{Path: entry.text})
				case kindMapping:
					files = append(files, models.EnvFile{
						Path:     stringify(entry.obj["path"]),
						Required: n.optionalBool(entry.obj["required"], "required"),
					})
				default:
					n.notef("env_file entry must be a path or a mapping, got %s", entry.kind)
				}
			})
		}
		return files
	default:
		n.notef("env_file must be a path or a sequence, got %s", v.kind)
		return nil
	}
}

// stringList accepts a single string or a sequence of scalars
func (n *Normalizer) stringList(raw any, what string) []string {
	if list, ok := raw.([]string); ok {
		return append([]string(nil), list...)
	}

	v := classify(raw)
	switch {
	case v.kind == kindAbsent:
		return nil
	case v.scalar():
		return []string{v.text}
	case v.kind == kindSequence:
		out := make([]string, 0, len(v.seq))
		for _, item := range v.seq {
			out = append(out, stringify(item))
		}
		return out
	default:
		n.notef("%s must be a string or a sequence, got %s", what, v.kind)
		return nil
	}
}

func index(i int) string {
	return "[" + strconv.Itoa(i) + "]"
}
