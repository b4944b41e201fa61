package parser

import (
	"gopkg.in/yaml.v3"

	"github.com/stackgen-cli/compose-edit/internal/models"
)

// NormalizeHealthcheck normalizes a healthcheck, discarding notices
func NormalizeHealthcheck(raw any) *models.Healthcheck { return new(Normalizer).Healthcheck(raw) }

// NormalizeBuild normalizes a build section, discarding notices
func NormalizeBuild(raw any) *models.Build { return new(Normalizer).Build(raw) }

// Service normalizes a whole service definition
func (n *Normalizer) Service(raw any) models.Service {
	if svc, ok := raw.(models.Service); ok {
		return n.coerceService(svc)
	}

	v := classify(raw)
	switch v.kind {
	case kindAbsent:
		return models.Service{}
	case kindMapping:
	default:
		n.notef("service must be a mapping, got %s", v.kind)
		return models.Service{}
	}

	obj := v.obj
	svc := models.Service{}
	field := func(key string, fn func(raw any)) {
		if val, ok := obj[key]; ok {
			n.within(key, func() { fn(val) })
		}
	}

	field("image", func(raw any) {
		if img := classify(raw); img.scalar() {
			svc.Image = &img.text
		} else if img.kind != kindAbsent {
			n.notef("image must be a string, got %s", img.kind)
		}
	})
	field("build", func(raw any) { svc.Build = n.Build(raw) })
	field("command", func(raw any) { svc.Command = n.Command(raw) })
	field("entrypoint", func(raw any) { svc.Entrypoint = n.Command(raw) })
	field("ports", func(raw any) { svc.Ports = n.Ports(raw) })
	field("volumes", func(raw any) { svc.Volumes = n.Mounts(raw) })
	field("environment", func(raw any) { svc.Environment = n.Environment(raw) })
	field("env_file", func(raw any) { svc.EnvFile = n.EnvFile(raw) })
	field("depends_on", func(raw any) { svc.DependsOn = n.DependsOn(raw) })
	field("healthcheck", func(raw any) { svc.Healthcheck = n.Healthcheck(raw) })
	field("deploy", func(raw any) { svc.Deploy = n.Deploy(raw) })
	field("labels", func(raw any) { svc.Labels = n.Labels(raw) })
	field("restart", func(raw any) { svc.Restart = stringify(raw) })
	field("networks", func(raw any) { svc.Networks = n.ServiceNetworks(raw) })
	field("secrets", func(raw any) { svc.Secrets = n.FileRefs(raw) })
	field("configs", func(raw any) { svc.Configs = n.FileRefs(raw) })

	return svc
}

// coerceService re-applies field coercions to an already canonical service
func (n *Normalizer) coerceService(svc models.Service) models.Service {
	out := svc
	out.Build = n.Build(svc.Build)
	out.Command = n.Command(svc.Command)
	out.Entrypoint = n.Command(svc.Entrypoint)
	out.Ports = n.Ports(svc.Ports)
	out.Volumes = n.Mounts(svc.Volumes)
	out.DependsOn = n.DependsOn(svc.DependsOn)
	out.Healthcheck = n.Healthcheck(svc.Healthcheck)
	out.Deploy = n.Deploy(svc.Deploy)
	if svc.Ports == nil {
		out.Ports = nil
	}
	if svc.Volumes == nil {
		out.Volumes = nil
	}
	return out
}

// Healthcheck normalizes a healthcheck. A string test becomes ["CMD-SHELL", test]
// and a ["NONE"] test marks the check as disabled.
func (n *Normalizer) Healthcheck(raw any) *models.Healthcheck {
	switch hc := raw.(type) {
	case *models.Healthcheck:
		if hc == nil {
			return nil
		}
		return n.coerceHealthcheck(*hc)
	case models.Healthcheck:
		return n.coerceHealthcheck(hc)
	}

	v := classify(raw)
	switch v.kind {
	case kindAbsent:
		return nil
	case kindMapping:
	default:
		n.notef("healthcheck must be a mapping, got %s", v.kind)
		return nil
	}

	hc := models.Healthcheck{
		Interval:      stringify(v.obj["interval"]),
		Timeout:       stringify(v.obj["timeout"]),
		StartPeriod:   stringify(v.obj["start_period"]),
		StartInterval: stringify(v.obj["start_interval"]),
	}

	test := classify(v.obj["test"])
	switch test.kind {
	case kindAbsent:
	case kindString:
		hc.Test = []string{"CMD-SHELL", test.text}
	case kindSequence:
		hc.Test = n.stringList(v.obj["test"], "test")
	default:
		n.within("test", func() { n.notef("test must be a string or a sequence, got %s", test.kind) })
	}

	if retries := classify(v.obj["retries"]); retries.kind != kindAbsent {
		if r, ok := retries.integer(); ok && r >= 0 {
			u := uint64(r)
			hc.Retries = &u
		} else {
			n.within("retries", func() { n.notef("retries %q is not a non-negative integer", retries.text) })
		}
	}

	if disable := n.optionalBool(v.obj["disable"], "disable"); disable != nil {
		hc.Disable = *disable
	}
	return n.coerceHealthcheck(hc)
}

func (n *Normalizer) coerceHealthcheck(hc models.Healthcheck) *models.Healthcheck {
	if len(hc.Test) > 0 && hc.Test[0] == "NONE" {
		hc.Disable = true
	}
	hc.Test = append([]string(nil), hc.Test...)
	return &hc
}

// Build normalizes a build section; the string form is the context path
func (n *Normalizer) Build(raw any) *models.Build {
	switch b := raw.(type) {
	case *models.Build:
		if b == nil {
			return nil
		}
		out := *b
		return &out
	case models.Build:
		return &b
	}

	v := classify(raw)
	switch v.kind {
	case kindAbsent:
		return nil
	case kindString:
		return &models.Build{Context: v.text}
	case kindMapping:
		build := &models.Build{
			Context:    stringify(v.obj["context"]),
			Dockerfile: stringify(v.obj["dockerfile"]),
			Target:     stringify(v.obj["target"]),
		}
		n.within("args", func() { build.Args = n.stringMap(v.obj["args"], "args") })
		n.within("cache_from", func() { build.CacheFrom = n.stringList(v.obj["cache_from"], "cache_from") })
		n.within("cache_to", func() { build.CacheTo = n.stringList(v.obj["cache_to"], "cache_to") })
		n.within("platforms", func() { build.Platforms = n.stringList(v.obj["platforms"], "platforms") })
		return build
	default:
		n.notef("build must be a path or a mapping, got %s", v.kind)
		return nil
	}
}

// Deploy normalizes a deploy section by re-decoding the mapping into the typed form
func (n *Normalizer) Deploy(raw any) *models.Deploy {
	switch d := raw.(type) {
	case *models.Deploy:
		if d == nil {
			return nil
		}
		out := *d
		return &out
	case models.Deploy:
		return &d
	}

	v := classify(raw)
	switch v.kind {
	case kindAbsent:
		return nil
	case kindMapping:
	default:
		n.notef("deploy must be a mapping, got %s", v.kind)
		return nil
	}

	// labels accept the list form, which the typed decode does not
	obj := make(map[string]any, len(v.obj))
	for k, val := range v.obj {
		obj[k] = val
	}
	if labels, ok := obj["labels"]; ok {
		n.within("labels", func() { obj["labels"] = n.Labels(labels) })
	}

	var deploy models.Deploy
	if err := redecode(obj, &deploy); err != nil {
		n.notef("cannot interpret deploy: %v", err)
		return nil
	}
	return &deploy
}

// ServiceNetworks normalizes a service's networks (list or map form)
func (n *Normalizer) ServiceNetworks(raw any) map[string]models.ServiceNetwork {
	if nets, ok := raw.(map[string]models.ServiceNetwork); ok {
		out := make(map[string]models.ServiceNetwork, len(nets))
		for k, v := range nets {
			out[k] = v
		}
		return out
	}

	v := classify(raw)
	switch v.kind {
	case kindAbsent:
		return nil
	case kindSequence:
		out := make(map[string]models.ServiceNetwork, len(v.seq))
		for _, item := range v.seq {
			if name := classify(item); name.kind == kindString {
				out[name.text] = models.ServiceNetwork{}
			} else {
				n.notef("network entry must be a name, got %s", name.kind)
			}
		}
		return out
	case kindMapping:
		out := make(map[string]models.ServiceNetwork, len(v.obj))
		for _, name := range sortedKeys(v.obj) {
			entry := classify(v.obj[name])
			switch entry.kind {
			case kindAbsent:
				out[name] = models.ServiceNetwork{}
			case kindMapping:
				net := models.ServiceNetwork{
					IPv4Address: stringify(entry.obj["ipv4_address"]),
					IPv6Address: stringify(entry.obj["ipv6_address"]),
				}
				n.within(name, func() {
					net.Aliases = n.stringList(entry.obj["aliases"], "aliases")
					if p, ok := classify(entry.obj["priority"]).integer(); ok {
						net.Priority = p
					}
				})
				out[name] = net
			default:
				n.within(name, func() { n.notef("network attachment must be a mapping, got %s", entry.kind) })
				out[name] = models.ServiceNetwork{}
			}
		}
		return out
	default:
		n.notef("networks must be a mapping or a sequence, got %s", v.kind)
		return nil
	}
}

// FileRefs normalizes service secrets or configs references
func (n *Normalizer) FileRefs(raw any) []models.FileRef {
	if refs, ok := raw.([]models.FileRef); ok {
		return append([]models.FileRef(nil), refs...)
	}

	v := classify(raw)
	switch v.kind {
	case kindAbsent:
		return nil
	case kindSequence:
		refs := make([]models.FileRef, 0, len(v.seq))
		for i, item := range v.seq {
			entry := classify(item)
			switch entry.kind {
			case kindString:
				refs = append(refs, models.FileRef{Source: entry.text})
			case kindMapping:
				refs = append(refs, models.FileRef{
					Source: stringify(entry.obj["source"]),
					Target: stringify(entry.obj["target"]),
					UID:    stringify(entry.obj["uid"]),
					GID:    stringify(entry.obj["gid"]),
					Mode:   stringify(entry.obj["mode"]),
				})
			default:
				n.within(index(i), func() { n.notef("reference must be a name or a mapping, got %s", entry.kind) })
			}
		}
		return refs
	default:
		n.notef("references must be a sequence, got %s", v.kind)
		return nil
	}
}

// NetworkConfig normalizes a top-level network definition
func (n *Normalizer) NetworkConfig(raw any) models.NetworkConfig {
	if cfg, ok := raw.(models.NetworkConfig); ok {
		return cfg
	}
	obj, ok := n.resource(raw, "network")
	if !ok {
		return models.NetworkConfig{}
	}

	cfg := models.NetworkConfig{
		Driver: stringify(obj["driver"]),
		Name:   stringify(obj["name"]),
	}
	cfg.External, cfg.Name = n.external(obj["external"], cfg.Name)
	cfg.Internal = n.flag(obj["internal"], "internal")
	cfg.Attachable = n.flag(obj["attachable"], "attachable")
	n.within("driver_opts", func() { cfg.DriverOpts = n.stringMap(obj["driver_opts"], "driver_opts") })
	n.within("labels", func() { cfg.Labels = n.Labels(obj["labels"]) })
	if ipam, ok := obj["ipam"]; ok && ipam != nil {
		var decoded models.IPAM
		if err := redecode(ipam, &decoded); err != nil {
			n.within("ipam", func() { n.notef("cannot interpret ipam: %v", err) })
		} else {
			cfg.IPAM = &decoded
		}
	}
	return cfg
}

// VolumeConfig normalizes a top-level volume definition
func (n *Normalizer) VolumeConfig(raw any) models.VolumeConfig {
	if cfg, ok := raw.(models.VolumeConfig); ok {
		return cfg
	}
	obj, ok := n.resource(raw, "volume")
	if !ok {
		return models.VolumeConfig{}
	}

	cfg := models.VolumeConfig{
		Driver: stringify(obj["driver"]),
		Name:   stringify(obj["name"]),
	}
	cfg.External, cfg.Name = n.external(obj["external"], cfg.Name)
	n.within("driver_opts", func() { cfg.DriverOpts = n.stringMap(obj["driver_opts"], "driver_opts") })
	n.within("labels", func() { cfg.Labels = n.Labels(obj["labels"]) })
	return cfg
}

// SecretConfig normalizes a top-level secret definition
func (n *Normalizer) SecretConfig(raw any) models.SecretConfig {
	if cfg, ok := raw.(models.SecretConfig); ok {
		return cfg
	}
	obj, ok := n.resource(raw, "secret")
	if !ok {
		return models.SecretConfig{}
	}

	cfg := models.SecretConfig{
		File:        stringify(obj["file"]),
		Environment: stringify(obj["environment"]),
		Name:        stringify(obj["name"]),
	}
	cfg.External, cfg.Name = n.external(obj["external"], cfg.Name)
	return cfg
}

// ConfigConfig normalizes a top-level config definition
func (n *Normalizer) ConfigConfig(raw any) models.ConfigConfig {
	if cfg, ok := raw.(models.ConfigConfig); ok {
		return cfg
	}
	obj, ok := n.resource(raw, "config")
	if !ok {
		return models.ConfigConfig{}
	}

	cfg := models.ConfigConfig{
		File:        stringify(obj["file"]),
		Environment: stringify(obj["environment"]),
		Content:     stringify(obj["content"]),
		Name:        stringify(obj["name"]),
	}
	cfg.External, cfg.Name = n.external(obj["external"], cfg.Name)
	return cfg
}

// resource returns the mapping of a top-level definition. A bare declaration
// ("pgdata:") is an empty mapping.
func (n *Normalizer) resource(raw any, what string) (map[string]any, bool) {
	v := classify(raw)
	switch v.kind {
	case kindAbsent:
		return nil, false
	case kindMapping:
		return v.obj, true
	default:
		n.notef("%s definition must be a mapping, got %s", what, v.kind)
		return nil, false
	}
}

// external folds the legacy `external: {name: x}` form into external + name
func (n *Normalizer) external(raw any, name string) (bool, string) {
	v := classify(raw)
	switch v.kind {
	case kindAbsent:
		return false, name
	case kindMapping:
		if legacy := stringify(v.obj["name"]); legacy != "" && name == "" {
			name = legacy
		}
		return true, name
	default:
		return n.flag(raw, "external"), name
	}
}

func (n *Normalizer) flag(raw any, what string) bool {
	if b := n.optionalBool(raw, what); b != nil {
		return *b
	}
	return false
}

// redecode converts a generic value into a typed struct through YAML
func redecode(raw any, out any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}
