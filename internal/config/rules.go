package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/stackgen-cli/compose-edit/internal/models"
)

// Rules are the compiled report rules of a config
type Rules struct {
	severityPatterns []compiledSeverity
	ignorePatterns   []compiledIgnore
	serviceIgnores   map[string]compiledServiceIgnore
}

type compiledSeverity struct {
	pattern  *regexp.Regexp
	severity models.Severity
}

type compiledIgnore struct {
	pattern *regexp.Regexp
	reason  string
}

type compiledServiceIgnore struct {
	fields []string
	paths  []*regexp.Regexp
}

// Rules compiles the severity overrides and ignore lists
func (c *Config) Rules() (*Rules, error) {
	rules := &Rules{
		severityPatterns: make([]compiledSeverity, 0, len(c.SeverityOverrides)),
		ignorePatterns:   make([]compiledIgnore, 0, len(c.IgnorePatterns)),
		serviceIgnores:   make(map[string]compiledServiceIgnore, len(c.ServiceIgnores)),
	}

	for _, sr := range c.SeverityOverrides {
		re, err := compilePattern(sr.Pattern, sr.IsRegex)
		if err != nil {
			return nil, err
		}
		rules.severityPatterns = append(rules.severityPatterns, compiledSeverity{
			pattern:  re,
			severity: models.Severity(sr.Severity),
		})
	}

	for _, ir := range c.IgnorePatterns {
		re, err := compilePattern(ir.Pattern, ir.IsRegex)
		if err != nil {
			return nil, err
		}
		rules.ignorePatterns = append(rules.ignorePatterns, compiledIgnore{pattern: re, reason: ir.Reason})
	}

	for svc, si := range c.ServiceIgnores {
		csi := compiledServiceIgnore{fields: si.Fields}
		for _, p := range si.Paths {
			re, err := compilePattern(p, false)
			if err != nil {
				return nil, err
			}
			csi.paths = append(csi.paths, re)
		}
		rules.serviceIgnores[svc] = csi
	}

	return rules, nil
}

// Empty reports whether the rules change nothing
func (r *Rules) Empty() bool {
	return len(r.severityPatterns) == 0 && len(r.ignorePatterns) == 0 && len(r.serviceIgnores) == 0
}

// SeverityOverride returns the severity of the first matching override
func (r *Rules) SeverityOverride(path string) (models.Severity, bool) {
	for _, sp := range r.severityPatterns {
		if sp.pattern.MatchString(path) {
			return sp.severity, true
		}
	}
	return "", false
}

// Ignored reports whether a change path is left out of reports
func (r *Rules) Ignored(path string) bool {
	ignored, _ := r.ShouldIgnore(path)
	return ignored
}

// ShouldIgnore returns true and the configured reason if the path is ignored
func (r *Rules) ShouldIgnore(path string) (bool, string) {
	for _, ip := range r.ignorePatterns {
		if ip.pattern.MatchString(path) {
			return true, ip.reason
		}
	}

	// services.<name>.<field>...
	parts := strings.SplitN(path, ".", 3)
	if len(parts) == 3 && parts[0] == "services" {
		if r.ShouldIgnoreServiceField(parts[1], parts[2]) {
			return true, "service ignore"
		}
	}
	return false, ""
}

// ShouldIgnoreServiceField returns true if the field should be ignored for service
func (r *Rules) ShouldIgnoreServiceField(service, field string) bool {
	si, ok := r.serviceIgnores[service]
	if !ok {
		return false
	}

	head, _, _ := strings.Cut(field, ".")
	if slices.Contains(si.fields, head) {
		return true
	}
	for _, p := range si.paths {
		if p.MatchString(field) {
			return true
		}
	}
	return false
}

func compilePattern(pattern string, isRegex bool) (*regexp.Regexp, error) {
	if !isRegex {
		pattern = globToRegex(pattern)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return re, nil
}

// globToRegex turns a simple glob (* wildcards) into an anchored regex
func globToRegex(pattern string) string {
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return "^" + strings.Join(parts, ".*") + "$"
}
