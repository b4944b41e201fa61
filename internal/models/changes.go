package models

import (
	"bytes"
	"encoding/json"
	"reflect"
)

type slotState uint8

const (
	slotUnset slotState = iota
	slotValue
	slotNull
)

// Slot is a three-state change field: unset (no change), a value (replace),
// or null (clear to default). Unset slots are dropped by `json:",omitzero"`.
type Slot[T any] struct {
	state slotState
	value T
}

// Set returns a slot holding v
func Set[T any](v T) Slot[T] {
	return Slot[T]{state: slotValue, value: v}
}

// Null returns a slot that clears the field
func Null[T any]() Slot[T] {
	return Slot[T]{state: slotNull}
}

// IsZero reports whether the slot is unset
func (s Slot[T]) IsZero() bool { return s.state == slotUnset }

// IsSet reports whether the slot holds a value
func (s Slot[T]) IsSet() bool { return s.state == slotValue }

// IsNull reports whether the slot clears the field
func (s Slot[T]) IsNull() bool { return s.state == slotNull }

// Get returns the held value and whether the slot holds one
func (s Slot[T]) Get() (T, bool) {
	return s.value, s.state == slotValue
}

func (s Slot[T]) MarshalJSON() ([]byte, error) {
	switch s.state {
	case slotValue:
		// an empty-but-set collection must not collapse into null
		rv := reflect.ValueOf(s.value)
		switch {
		case rv.Kind() == reflect.Slice && rv.IsNil():
			return []byte("[]"), nil
		case rv.Kind() == reflect.Map && rv.IsNil():
			return []byte("{}"), nil
		}
		return json.Marshal(s.value)
	default:
		return []byte("null"), nil
	}
}

func (s *Slot[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = Null[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Set(v)
	return nil
}

// CommandValues wraps command/entrypoint tokens so that an empty sequence
// is distinguishable from an absent field on the wire
type CommandValues struct {
	Values []string `json:"values"`
}

// ServiceChanges is the sparse per-service change object
type ServiceChanges struct {
	Image       Slot[string]                    `json:"image,omitzero"`
	Build       Slot[Build]                     `json:"build,omitzero"`
	Command     Slot[CommandValues]             `json:"command,omitzero"`
	Entrypoint  Slot[CommandValues]             `json:"entrypoint,omitzero"`
	Ports       Slot[[]Port]                    `json:"ports,omitzero"`
	Volumes     Slot[[]Mount]                   `json:"volumes,omitzero"`
	Environment Slot[map[string]string]         `json:"environment,omitzero"`
	EnvFile     Slot[[]EnvFile]                 `json:"env_file,omitzero"`
	DependsOn   Slot[map[string]Dependency]     `json:"depends_on,omitzero"`
	Healthcheck Slot[Healthcheck]               `json:"healthcheck,omitzero"`
	Deploy      Slot[Deploy]                    `json:"deploy,omitzero"`
	Labels      Slot[map[string]string]         `json:"labels,omitzero"`
	Restart     Slot[string]                    `json:"restart,omitzero"`
	Networks    Slot[map[string]ServiceNetwork] `json:"networks,omitzero"`
	Secrets     Slot[[]FileRef]                 `json:"secrets,omitzero"`
	Configs     Slot[[]FileRef]                 `json:"configs,omitzero"`
}

// IsEmpty reports whether no field was touched
func (c ServiceChanges) IsEmpty() bool {
	return c.FieldCount() == 0
}

// FieldCount returns the number of touched fields
func (c ServiceChanges) FieldCount() int {
	n := 0
	for _, zero := range []bool{
		c.Image.IsZero(), c.Build.IsZero(), c.Command.IsZero(), c.Entrypoint.IsZero(),
		c.Ports.IsZero(), c.Volumes.IsZero(), c.Environment.IsZero(), c.EnvFile.IsZero(),
		c.DependsOn.IsZero(), c.Healthcheck.IsZero(), c.Deploy.IsZero(), c.Labels.IsZero(),
		c.Restart.IsZero(), c.Networks.IsZero(), c.Secrets.IsZero(), c.Configs.IsZero(),
	} {
		if !zero {
			n++
		}
	}
	return n
}

// NewServiceConfig is the initial configuration of an added service
type NewServiceConfig struct {
	Image       string            `json:"image"`
	Ports       []Port            `json:"ports,omitempty"`
	Environment map[string]string `json:"environment,omitempty"`
	Volumes     []Mount           `json:"volumes,omitempty"`
	Restart     string            `json:"restart,omitempty"`
}

// ComposeChanges is a change-set. In the resource maps a nil value deletes
// the entry and an absent key leaves it untouched.
type ComposeChanges struct {
	ServiceChanges map[string]ServiceChanges   `json:"service_changes,omitempty"`
	AddServices    map[string]NewServiceConfig `json:"add_services,omitempty"`
	DeleteServices []string                    `json:"delete_services,omitempty"`
	RenameServices map[string]string           `json:"rename_services,omitempty"`
	NetworkChanges map[string]*NetworkConfig   `json:"network_changes,omitempty"`
	VolumeChanges  map[string]*VolumeConfig    `json:"volume_changes,omitempty"`
	SecretChanges  map[string]*SecretConfig    `json:"secret_changes,omitempty"`
	ConfigChanges  map[string]*ConfigConfig    `json:"config_changes,omitempty"`
}

// IsEmpty reports whether the change-set carries no change at all
func (c ComposeChanges) IsEmpty() bool {
	for _, sc := range c.ServiceChanges {
		if !sc.IsEmpty() {
			return false
		}
	}
	return len(c.AddServices) == 0 &&
		len(c.DeleteServices) == 0 &&
		len(c.RenameServices) == 0 &&
		len(c.NetworkChanges) == 0 &&
		len(c.VolumeChanges) == 0 &&
		len(c.SecretChanges) == 0 &&
		len(c.ConfigChanges) == 0
}

// UpdateRequest is the body of a change-set submission
type UpdateRequest struct {
	Changes ComposeChanges `json:"changes"`
	Preview bool           `json:"preview,omitempty"`
}

// UpdateResponse acknowledges a submission. OriginalYAML and ModifiedYAML
// are only filled for preview requests.
type UpdateResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message,omitempty"`
	OriginalYAML string `json:"original_yaml,omitempty"`
	ModifiedYAML string `json:"modified_yaml,omitempty"`
}

// RawCompose is a fetched document before canonicalization.
// Values keep whatever shorthand the file uses.
type RawCompose struct {
	ComposeFile  string         `json:"compose_file"`
	Services     map[string]any `json:"services"`
	ServiceOrder []string       `json:"service_order,omitempty"`
	Networks     map[string]any `json:"networks,omitempty"`
	Volumes      map[string]any `json:"volumes,omitempty"`
	Secrets      map[string]any `json:"secrets,omitempty"`
	Configs      map[string]any `json:"configs,omitempty"`
}

// StackRef addresses one compose stack on one server
type StackRef struct {
	Server string `json:"server" validate:"required"`
	Stack  string `json:"stack" validate:"required"`
}

func (r StackRef) String() string {
	return r.Server + "/" + r.Stack
}
