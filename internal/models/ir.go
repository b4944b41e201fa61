package models

import (
	"regexp"
	"sort"
)

// Document is the canonical representation of a Docker Compose file
type Document struct {
	Services map[string]Service       `json:"services" yaml:"services"`
	Networks map[string]NetworkConfig `json:"networks,omitempty" yaml:"networks,omitempty"`
	Volumes  map[string]VolumeConfig  `json:"volumes,omitempty" yaml:"volumes,omitempty"`
	Secrets  map[string]SecretConfig  `json:"secrets,omitempty" yaml:"secrets,omitempty"`
	Configs  map[string]ConfigConfig  `json:"configs,omitempty" yaml:"configs,omitempty"`

	// order is the insertion order of Services, for display only
	order []string
}

// Service represents a normalized service configuration
type Service struct {
	Image       *string                   `json:"image,omitempty" yaml:"image,omitempty"`
	Build       *Build                    `json:"build,omitempty" yaml:"build,omitempty"`
	Command     *Command                  `json:"command,omitempty" yaml:"command,omitempty"`
	Entrypoint  *Command                  `json:"entrypoint,omitempty" yaml:"entrypoint,omitempty"`
	Ports       []Port                    `json:"ports,omitempty" yaml:"ports,omitempty"`
	Volumes     []Mount                   `json:"volumes,omitempty" yaml:"volumes,omitempty"`
	Environment map[string]string         `json:"environment,omitempty" yaml:"environment,omitempty"`
	EnvFile     []EnvFile                 `json:"env_file,omitempty" yaml:"env_file,omitempty"`
	DependsOn   map[string]Dependency     `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	Healthcheck *Healthcheck              `json:"healthcheck,omitempty" yaml:"healthcheck,omitempty"`
	Deploy      *Deploy                   `json:"deploy,omitempty" yaml:"deploy,omitempty"`
	Labels      map[string]string         `json:"labels,omitempty" yaml:"labels,omitempty"`
	Restart     string                    `json:"restart,omitempty" yaml:"restart,omitempty"`
	Networks    map[string]ServiceNetwork `json:"networks,omitempty" yaml:"networks,omitempty"`
	Secrets     []FileRef                 `json:"secrets,omitempty" yaml:"secrets,omitempty"`
	Configs     []FileRef                 `json:"configs,omitempty" yaml:"configs,omitempty"`
}

// Command is a command or entrypoint token sequence.
// A nil *Command means "inherit from the image"; an empty Command means "no command".
type Command []string

// Port represents a normalized port mapping
type Port struct {
	Target    int    `json:"target" yaml:"target"`
	Published string `json:"published" yaml:"published,omitempty"`
	Protocol  string `json:"protocol" yaml:"protocol"`
	HostIP    string `json:"host_ip,omitempty" yaml:"host_ip,omitempty"`
	// Raw holds the original shorthand when it could not be split
	Raw string `json:"raw,omitempty" yaml:"-"`
}

// Mount types
const (
	MountBind   = "bind"
	MountVolume = "volume"
	MountTmpfs  = "tmpfs"
)

// Mount represents a normalized volume mount
type Mount struct {
	Type     string `json:"type" yaml:"type"`
	Source   string `json:"source,omitempty" yaml:"source,omitempty"`
	Target   string `json:"target" yaml:"target"`
	ReadOnly bool   `json:"read_only,omitempty" yaml:"read_only,omitempty"`
}

// Dependency conditions
const (
	ConditionStarted   = "service_started"
	ConditionHealthy   = "service_healthy"
	ConditionCompleted = "service_completed_successfully"
)

// Dependency is one depends_on entry
type Dependency struct {
	Condition string `json:"condition" yaml:"condition"`
	Required  *bool  `json:"required,omitempty" yaml:"required,omitempty"`
	Restart   *bool  `json:"restart,omitempty" yaml:"restart,omitempty"`
}

// EnvFile is one env_file entry
type EnvFile struct {
	Path     string `json:"path" yaml:"path"`
	Required *bool  `json:"required,omitempty" yaml:"required,omitempty"`
}

// Build represents a build configuration
type Build struct {
	Context    string            `json:"context,omitempty" yaml:"context,omitempty"`
	Dockerfile string            `json:"dockerfile,omitempty" yaml:"dockerfile,omitempty"`
	Args       map[string]string `json:"args,omitempty" yaml:"args,omitempty"`
	Target     string            `json:"target,omitempty" yaml:"target,omitempty"`
	CacheFrom  []string          `json:"cache_from,omitempty" yaml:"cache_from,omitempty"`
	CacheTo    []string          `json:"cache_to,omitempty" yaml:"cache_to,omitempty"`
	Platforms  []string          `json:"platforms,omitempty" yaml:"platforms,omitempty"`
}

// Healthcheck represents a healthcheck configuration.
// Disable true is an explicitly disabled healthcheck, distinct from a nil *Healthcheck.
type Healthcheck struct {
	Test          []string `json:"test,omitempty" yaml:"test,omitempty"`
	Interval      string   `json:"interval,omitempty" yaml:"interval,omitempty"`
	Timeout       string   `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Retries       *uint64  `json:"retries,omitempty" yaml:"retries,omitempty"`
	StartPeriod   string   `json:"start_period,omitempty" yaml:"start_period,omitempty"`
	StartInterval string   `json:"start_interval,omitempty" yaml:"start_interval,omitempty"`
	Disable       bool     `json:"disable,omitempty" yaml:"disable,omitempty"`
}

// Deploy represents the deploy section of a service
type Deploy struct {
	Mode           string                `json:"mode,omitempty" yaml:"mode,omitempty"`
	Replicas       *int                  `json:"replicas,omitempty" yaml:"replicas,omitempty"`
	Labels         map[string]string     `json:"labels,omitempty" yaml:"labels,omitempty"`
	Resources      *Resources            `json:"resources,omitempty" yaml:"resources,omitempty"`
	RestartPolicy  *RestartPolicy        `json:"restart_policy,omitempty" yaml:"restart_policy,omitempty"`
	Placement      *Placement            `json:"placement,omitempty" yaml:"placement,omitempty"`
	UpdateConfig   *UpdateRollbackConfig `json:"update_config,omitempty" yaml:"update_config,omitempty"`
	RollbackConfig *UpdateRollbackConfig `json:"rollback_config,omitempty" yaml:"rollback_config,omitempty"`
}

type Resources struct {
	Limits       *ResourceLimits `json:"limits,omitempty" yaml:"limits,omitempty"`
	Reservations *ResourceLimits `json:"reservations,omitempty" yaml:"reservations,omitempty"`
}

type ResourceLimits struct {
	CPUs   string `json:"cpus,omitempty" yaml:"cpus,omitempty"`
	Memory string `json:"memory,omitempty" yaml:"memory,omitempty"`
	Pids   *int64 `json:"pids,omitempty" yaml:"pids,omitempty"`
}

type RestartPolicy struct {
	Condition   string `json:"condition,omitempty" yaml:"condition,omitempty"`
	Delay       string `json:"delay,omitempty" yaml:"delay,omitempty"`
	MaxAttempts *int   `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	Window      string `json:"window,omitempty" yaml:"window,omitempty"`
}

type Placement struct {
	Constraints []string              `json:"constraints,omitempty" yaml:"constraints,omitempty"`
	Preferences []PlacementPreference `json:"preferences,omitempty" yaml:"preferences,omitempty"`
}

type PlacementPreference struct {
	Spread string `json:"spread" yaml:"spread"`
}

type UpdateRollbackConfig struct {
	Parallelism     *int    `json:"parallelism,omitempty" yaml:"parallelism,omitempty"`
	Delay           string  `json:"delay,omitempty" yaml:"delay,omitempty"`
	FailureAction   string  `json:"failure_action,omitempty" yaml:"failure_action,omitempty"`
	Monitor         string  `json:"monitor,omitempty" yaml:"monitor,omitempty"`
	MaxFailureRatio float64 `json:"max_failure_ratio,omitempty" yaml:"max_failure_ratio,omitempty"`
	Order           string  `json:"order,omitempty" yaml:"order,omitempty"`
}

// ServiceNetwork is a service's attachment to a top-level network
type ServiceNetwork struct {
	Aliases     []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	IPv4Address string   `json:"ipv4_address,omitempty" yaml:"ipv4_address,omitempty"`
	IPv6Address string   `json:"ipv6_address,omitempty" yaml:"ipv6_address,omitempty"`
	Priority    int      `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// FileRef is a service's reference to a top-level secret or config
type FileRef struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target,omitempty" yaml:"target,omitempty"`
	UID    string `json:"uid,omitempty" yaml:"uid,omitempty"`
	GID    string `json:"gid,omitempty" yaml:"gid,omitempty"`
	Mode   string `json:"mode,omitempty" yaml:"mode,omitempty"`
}

// NetworkConfig represents a top-level network definition
type NetworkConfig struct {
	Driver     string            `json:"driver,omitempty" yaml:"driver,omitempty"`
	DriverOpts map[string]string `json:"driver_opts,omitempty" yaml:"driver_opts,omitempty"`
	External   bool              `json:"external,omitempty" yaml:"external,omitempty"`
	Internal   bool              `json:"internal,omitempty" yaml:"internal,omitempty"`
	Attachable bool              `json:"attachable,omitempty" yaml:"attachable,omitempty"`
	Name       string            `json:"name,omitempty" yaml:"name,omitempty"`
	Labels     map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	IPAM       *IPAM             `json:"ipam,omitempty" yaml:"ipam,omitempty"`
}

type IPAM struct {
	Driver string     `json:"driver,omitempty" yaml:"driver,omitempty"`
	Config []IPAMPool `json:"config,omitempty" yaml:"config,omitempty"`
}

type IPAMPool struct {
	Subnet  string `json:"subnet,omitempty" yaml:"subnet,omitempty"`
	Gateway string `json:"gateway,omitempty" yaml:"gateway,omitempty"`
	IPRange string `json:"ip_range,omitempty" yaml:"ip_range,omitempty"`
}

// VolumeConfig represents a top-level volume definition
type VolumeConfig struct {
	Driver     string            `json:"driver,omitempty" yaml:"driver,omitempty"`
	DriverOpts map[string]string `json:"driver_opts,omitempty" yaml:"driver_opts,omitempty"`
	External   bool              `json:"external,omitempty" yaml:"external,omitempty"`
	Name       string            `json:"name,omitempty" yaml:"name,omitempty"`
	Labels     map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// SecretConfig represents a top-level secret definition
type SecretConfig struct {
	File        string `json:"file,omitempty" yaml:"file,omitempty"`
	Environment string `json:"environment,omitempty" yaml:"environment,omitempty"`
	External    bool   `json:"external,omitempty" yaml:"external,omitempty"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
}

// ConfigConfig represents a top-level config definition
type ConfigConfig struct {
	File        string `json:"file,omitempty" yaml:"file,omitempty"`
	Environment string `json:"environment,omitempty" yaml:"environment,omitempty"`
	Content     string `json:"content,omitempty" yaml:"content,omitempty"`
	External    bool   `json:"external,omitempty" yaml:"external,omitempty"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
}

// NewDocument creates an empty Document with initialized maps
func NewDocument() *Document {
	return &Document{
		Services: make(map[string]Service),
		Networks: make(map[string]NetworkConfig),
		Volumes:  make(map[string]VolumeConfig),
		Secrets:  make(map[string]SecretConfig),
		Configs:  make(map[string]ConfigConfig),
	}
}

// SetService adds or replaces a service, appending new names to the display order
func (d *Document) SetService(name string, svc Service) {
	if _, ok := d.Services[name]; !ok {
		d.order = append(d.order, name)
	}
	d.Services[name] = svc
}

// ServiceNames returns service names in insertion order.
// Names without a recorded position (e.g. after a JSON round trip) follow in sorted order.
func (d *Document) ServiceNames() []string {
	names := make([]string, 0, len(d.Services))
	seen := make(map[string]bool, len(d.Services))
	for _, name := range d.order {
		if _, ok := d.Services[name]; ok && !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}
	var rest []string
	for name := range d.Services {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// ServiceNamePattern is the grammar every service name must match
const ServiceNamePattern = `^[A-Za-z][A-Za-z0-9_-]*$`

var serviceNameRe = regexp.MustCompile(ServiceNamePattern)

// ValidServiceName reports whether name matches ServiceNamePattern
func ValidServiceName(name string) bool {
	return serviceNameRe.MatchString(name)
}
