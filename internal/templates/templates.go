// Package templates provides the embedded updater config templates used by
// rfid-updater init.
package templates

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/quanghiep03198/rfid-agent/internal/config"
)

//go:embed *.yaml
var templatesFS embed.FS

// Template is an updater config template with metadata.
type Template struct {
	Name        string
	Description string
	Content     []byte
}

var templateDescriptions = map[string]string{
	"default": "Interactive updates from the latest GitHub release",
	"service": "Unattended updates for an agent running as a service",
}

// List returns all available template names sorted alphabetically.
func List() []string {
	entries, err := templatesFS.ReadDir(".")
	if err != nil {
		return nil
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".yaml"))
	}

	sort.Strings(names)
	return names
}

// Get returns a template by name.
func Get(name string) (*Template, error) {
	content, err := templatesFS.ReadFile(name + ".yaml")
	if err != nil {
		if pathErr, ok := err.(*fs.PathError); ok {
			return nil, fmt.Errorf("template '%s' not found: %w", name, pathErr)
		}
		return nil, fmt.Errorf("failed to read template '%s': %w", name, err)
	}

	return &Template{
		Name:        name,
		Description: templateDescriptions[name],
		Content:     content,
	}, nil
}

// GetDescription returns the description for a template.
func GetDescription(name string) string {
	if desc, ok := templateDescriptions[name]; ok {
		return desc
	}
	return "Custom template"
}

// GetExpanded returns a template with environment variables expanded.
func GetExpanded(name string) (*Template, error) {
	tmpl, err := Get(name)
	if err != nil {
		return nil, err
	}

	tmpl.Content = config.ExpandEnvVars(tmpl.Content)
	return tmpl, nil
}

// Render returns the expanded template in the given config format, "yaml"
// or "toml". Comments only survive in YAML.
func Render(name, format string) ([]byte, error) {
	tmpl, err := GetExpanded(name)
	if err != nil {
		return nil, err
	}

	switch format {
	case "", "yaml", "yml":
		return tmpl.Content, nil
	case "toml":
		var doc map[string]interface{}
		if err := yaml.Unmarshal(tmpl.Content, &doc); err != nil {
			return nil, fmt.Errorf("template '%s' is not valid YAML: %w", name, err)
		}
		out, err := toml.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to encode template '%s' as TOML: %w", name, err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported config format: %s", format)
	}
}

// FileName returns the config file name init writes for format.
func FileName(format string) string {
	if format == "toml" {
		return config.FileName + ".toml"
	}
	return config.FileName + ".yaml"
}
