package parser

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/stackgen-cli/compose-edit/internal/models"
)

// ComposeFileNames are the file names probed, in order, when a directory is given
var ComposeFileNames = []string{
	"compose.yaml",
	"compose.yml",
	"docker-compose.yaml",
	"docker-compose.yml",
}

// ParseComposeFile reads and canonicalizes a compose file. A directory is
// searched for one of ComposeFileNames.
func ParseComposeFile(filePath string) (*models.Document, []Notice, error) {
	actualPath, err := ResolveComposePath(filePath)
	if err != nil {
		return nil, nil, err
	}

	data, err := os.ReadFile(actualPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read file: %w", err)
	}

	return ParseDocument(data)
}

// ResolveComposePath finds the actual compose file, supporting auto-detection
func ResolveComposePath(path string) (string, error) {
	// If it's a directory, look for compose files
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		for _, candidate := range ComposeFileNames {
			fullPath := filepath.Join(path, candidate)
			if _, err := os.Stat(fullPath); err == nil {
				return fullPath, nil
			}
		}
		return "", fmt.Errorf("no compose file found in directory: %s", path)
	}

	if err != nil {
		return "", fmt.Errorf("file not found: %s", path)
	}

	return path, nil
}

// ParseDocument canonicalizes a compose document. Only syntactically invalid
// YAML is an error; every other problem is reported as a Notice.
func ParseDocument(data []byte) (*models.Document, []Notice, error) {
	raw, err := DecodeRaw(data)
	if err != nil {
		return nil, nil, err
	}
	doc, notices := FromRaw(raw)
	return doc, notices, nil
}

// DecodeRaw decodes a compose document without interpreting any field.
// Service order is taken from the YAML mapping.
func DecodeRaw(data []byte) (*models.RawCompose, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	raw := &models.RawCompose{}
	if root.Kind == 0 || len(root.Content) == 0 {
		// empty document
		return raw, nil
	}

	top := resolveAlias(root.Content[0])
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("failed to parse YAML: top level must be a mapping")
	}

	for i := 0; i+1 < len(top.Content); i += 2 {
		key, value := top.Content[i].Value, resolveAlias(top.Content[i+1])

		var target *map[string]any
		switch key {
		case "services":
			target = &raw.Services
			raw.ServiceOrder = mappingKeys(value)
		case "networks":
			target = &raw.Networks
		case "volumes":
			target = &raw.Volumes
		case "secrets":
			target = &raw.Secrets
		case "configs":
			target = &raw.Configs
		default:
			continue
		}

		if value.Kind != yaml.MappingNode {
			// "services:" with no body, or a scalar in its place
			continue
		}
		section := make(map[string]any)
		if err := value.Decode(&section); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", key, err)
		}
		*target = section
	}

	return raw, nil
}

// FromRaw canonicalizes a decoded document, recording a notice for every
// value replaced by its default
func FromRaw(raw *models.RawCompose) (*models.Document, []Notice) {
	doc := models.NewDocument()
	if raw == nil {
		return doc, nil
	}
	n := new(Normalizer)

	for _, name := range orderedNames(raw.Services, raw.ServiceOrder) {
		path := "services." + name
		if !models.ValidServiceName(name) {
			n.At(path).notef("service name %q does not match %s, skipped", name, models.ServiceNamePattern)
			continue
		}
		svc := n.At(path).Service(raw.Services[name])
		doc.SetService(name, svc)
	}

	for _, name := range sortedKeys(raw.Networks) {
		doc.Networks[name] = n.At("networks." + name).NetworkConfig(raw.Networks[name])
	}
	for _, name := range sortedKeys(raw.Volumes) {
		doc.Volumes[name] = n.At("volumes." + name).VolumeConfig(raw.Volumes[name])
	}
	for _, name := range sortedKeys(raw.Secrets) {
		doc.Secrets[name] = n.At("secrets." + name).SecretConfig(raw.Secrets[name])
	}
	for _, name := range sortedKeys(raw.Configs) {
		doc.Configs[name] = n.At("configs." + name).ConfigConfig(raw.Configs[name])
	}

	return doc, n.Notices()
}

// orderedNames returns the keys of services in the given order, followed by
// any keys the order does not mention
func orderedNames(services map[string]any, order []string) []string {
	names := make([]string, 0, len(services))
	seen := make(map[string]bool, len(services))
	for _, name := range order {
		if _, ok := services[name]; ok && !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}
	for _, name := range sortedKeys(services) {
		if !seen[name] {
			names = append(names, name)
		}
	}
	return names
}

func mappingKeys(node *yaml.Node) []string {
	if node.Kind != yaml.MappingNode {
		return nil
	}
	keys := make([]string, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		if k := node.Content[i].Value; k != "<<" {
			keys = append(keys, k)
		}
	}
	return keys
}

func resolveAlias(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	return node
}
