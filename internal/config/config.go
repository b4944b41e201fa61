// Package config loads .compose-edit.yaml: the remote endpoint, the stack
// to edit and the rules applied to preview reports.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/stackgen-cli/compose-edit/internal/models"
)

// DefaultEndpoint is used when neither the file nor a flag names one
const DefaultEndpoint = "http://localhost:8780"

// DefaultListen is the serve address
const DefaultListen = ":8780"

// Candidates are the file names searched by LoadFromDir, in order
var Candidates = []string{
	".compose-edit.yaml",
	".compose-edit.yml",
	"compose-edit.yaml",
	"compose-edit.yml",
}

var validate = validator.New()

// Config is the file layout
type Config struct {
	Version  string        `yaml:"version"`
	Endpoint string        `yaml:"endpoint" validate:"omitempty,url"`
	Server   string        `yaml:"server"`
	Stack    string        `yaml:"stack"`
	Timeout  time.Duration `yaml:"timeout" validate:"gte=0"`

	// Listen and Stacks configure serve: server id -> stacks directory
	Listen string            `yaml:"listen"`
	Stacks map[string]string `yaml:"stacks"`

	// SeverityOverrides maps path patterns to severity levels
	SeverityOverrides []SeverityRule `yaml:"severity_overrides" validate:"dive"`

	// IgnorePatterns defines paths left out of preview reports
	IgnorePatterns []IgnoreRule `yaml:"ignore_patterns" validate:"dive"`

	// ServiceIgnores defines per-service ignore lists
	ServiceIgnores map[string]ServiceIgnoreRules `yaml:"service_ignores"`

	// Path is the file the config was read from, empty for defaults
	Path string `yaml:"-"`
}

// SeverityRule maps a path pattern to a severity
type SeverityRule struct {
	Pattern  string `yaml:"pattern" validate:"required"`                           // glob or regex pattern
	Severity string `yaml:"severity" validate:"required,oneof=info warning breaking"` // info, warning, breaking
	IsRegex  bool   `yaml:"regex"`                                                 // if true, use regex matching
}

// IgnoreRule defines what to ignore
type IgnoreRule struct {
	Pattern string `yaml:"pattern" validate:"required"` // path pattern to ignore
	IsRegex bool   `yaml:"regex"`                       // if true, use regex matching
	Reason  string `yaml:"reason"`                      // why it's ignored
}

// ServiceIgnoreRules defines ignores for a specific service
type ServiceIgnoreRules struct {
	Paths  []string `yaml:"paths"`  // path globs below the service
	Fields []string `yaml:"fields"` // field names, e.g. "image", "environment"
}

// Default returns the configuration used when no file is found
func Default() *Config {
	return &Config{
		Endpoint: DefaultEndpoint,
		Timeout:  30 * time.Second,
		Listen:   DefaultListen,
	}
}

// Load reads a config file over the defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// LoadFromDir finds and loads the first candidate file in dir. Defaults are
// returned when there is none.
func LoadFromDir(dir string) (*Config, error) {
	for _, name := range Candidates {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return Default(), nil
}

// StackRef returns the configured stack, requiring both parts
func (c *Config) StackRef() (models.StackRef, error) {
	ref := models.StackRef{Server: c.Server, Stack: c.Stack}
	if err := validate.Struct(ref); err != nil {
		return ref, errors.New("server and stack must be set (flags --server and --stack or the config file)")
	}
	return ref, nil
}
