package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format represents the file format of a release descriptor.
type Format int

const (
	FormatUnknown Format = iota
	FormatYAML
	FormatTOML
	FormatJSON
)

// String returns the lower-case format name.
func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatTOML:
		return "toml"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// Descriptor is a release descriptor document.
type Descriptor struct {
	Version     string `yaml:"version" toml:"version" json:"version"`
	DownloadURL string `yaml:"download_url,omitempty" toml:"download_url,omitempty" json:"download_url,omitempty"`
	URL         string `yaml:"url,omitempty" toml:"url,omitempty" json:"url,omitempty"`
	Notes       string `yaml:"notes,omitempty" toml:"notes,omitempty" json:"notes,omitempty"`
	PublishedAt string `yaml:"published_at,omitempty" toml:"published_at,omitempty" json:"published_at,omitempty"`
}

// looseDescriptor is decoded from JSON and TOML, where release tooling may
// write the version as a number or the publish date as a datetime.
type looseDescriptor struct {
	Version     any    `toml:"version" json:"version"`
	DownloadURL string `toml:"download_url" json:"download_url"`
	URL         string `toml:"url" json:"url"`
	Notes       string `toml:"notes" json:"notes"`
	PublishedAt any    `toml:"published_at" json:"published_at"`
}

func (l looseDescriptor) descriptor() Descriptor {
	return Descriptor{
		Version:     scalarString(l.Version),
		DownloadURL: l.DownloadURL,
		URL:         l.URL,
		Notes:       l.Notes,
		PublishedAt: scalarString(l.PublishedAt),
	}
}

// scalarString renders a decoded scalar as text. Composite values render
// through fmt and will simply never match an installed version.
func scalarString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

// Location returns download_url, falling back to url. Empty when neither is set.
func (d *Descriptor) Location() string {
	if d.DownloadURL != "" {
		return d.DownloadURL
	}
	return d.URL
}

// DetectFormat determines the file format based on extension or content.
func DetectFormat(path string, content []byte) Format {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	case ".json":
		return FormatJSON
	}

	return sniffFormat(content)
}

// sniffFormat attempts to detect format from content.
func sniffFormat(content []byte) Format {
	trimmed := strings.TrimSpace(string(content))

	if strings.HasPrefix(trimmed, "{") {
		return FormatJSON
	}

	// TOML uses key = value, YAML uses key: value
	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") || strings.Contains(line, "=") {
			return FormatTOML
		}
		if strings.Contains(line, ":") {
			return FormatYAML
		}
	}

	return FormatUnknown
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// ExpandEnvVars replaces ${VAR} and ${VAR:-default} patterns in content.
func ExpandEnvVars(content []byte) []byte {
	return envVarPattern.ReplaceAllFunc(content, func(match []byte) []byte {
		parts := envVarPattern.FindSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		value := os.Getenv(string(parts[1]))
		if value == "" && len(parts) >= 3 && len(parts[2]) > 0 {
			value = string(parts[2])
		}

		return []byte(value)
	})
}

// ParseDescriptor parses descriptor content. path is only used to pick the format.
func ParseDescriptor(path string, content []byte) (*Descriptor, error) {
	format := DetectFormat(path, content)
	content = ExpandEnvVars(content)

	var d Descriptor
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(content, &d); err != nil {
			return nil, fmt.Errorf("YAML parse error: %w", err)
		}
	case FormatTOML:
		var l looseDescriptor
		if err := toml.Unmarshal(content, &l); err != nil {
			return nil, fmt.Errorf("TOML parse error: %w", err)
		}
		d = l.descriptor()
	case FormatJSON:
		var l looseDescriptor
		dec := json.NewDecoder(bytes.NewReader(content))
		dec.UseNumber()
		if err := dec.Decode(&l); err != nil {
			return nil, fmt.Errorf("JSON parse error: %w", err)
		}
		d = l.descriptor()
	default:
		return nil, fmt.Errorf("unable to detect descriptor format for %s", path)
	}

	d.Version = strings.TrimSpace(d.Version)
	return &d, nil
}

// LoadDescriptor reads and parses a descriptor file.
func LoadDescriptor(path string) (*Descriptor, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor: %w", err)
	}
	return ParseDescriptor(path, content)
}
