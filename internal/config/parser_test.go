package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		content  string
		expected Format
	}{
		{"yaml extension", "release.yaml", "", FormatYAML},
		{"yml extension", "release.yml", "", FormatYAML},
		{"toml extension", "release.toml", "", FormatTOML},
		{"json extension", "release.json", "", FormatJSON},
		{"json content", "latest", `{"version": "1.0.0"}`, FormatJSON},
		{"yaml content", "latest", `version: 1.0.0`, FormatYAML},
		{"toml content", "latest", `version = "1.0.0"`, FormatTOML},
		{"yaml after comment", "latest", "# release\nversion: 2.0.0", FormatYAML},
		{"unknown content", "latest", "just words", FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectFormat(tt.path, []byte(tt.content))
			if got != tt.expected {
				t.Errorf("DetectFormat() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "test_value")
	t.Setenv("EMPTY_VAR", "")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple var", "${TEST_VAR}", "test_value"},
		{"var with default", "${MISSING_VAR:-default_value}", "default_value"},
		{"existing var ignores default", "${TEST_VAR:-default_value}", "test_value"},
		{"empty var uses default", "${EMPTY_VAR:-default_value}", "default_value"},
		{"no var", "plain text", "plain text"},
		{"mixed content", "prefix ${TEST_VAR} suffix", "prefix test_value suffix"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(ExpandEnvVars([]byte(tt.input)))
			if got != tt.expected {
				t.Errorf("ExpandEnvVars() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestParseDescriptor(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		content     string
		wantVersion string
		wantURL     string
	}{
		{
			name:        "json with download_url",
			path:        "release.json",
			content:     `{"version": "1.4.0", "download_url": "https://example.com/a.zip", "url": "https://example.com/b.zip"}`,
			wantVersion: "1.4.0",
			wantURL:     "https://example.com/a.zip",
		},
		{
			name:        "json falls back to url",
			path:        "release.json",
			content:     `{"version": "1.4.0", "url": "https://example.com/b.zip"}`,
			wantVersion: "1.4.0",
			wantURL:     "https://example.com/b.zip",
		},
		{
			name:        "yaml",
			path:        "release.yaml",
			content:     "version: \"2.0.1\"\ndownload_url: https://example.com/c.zip\n",
			wantVersion: "2.0.1",
			wantURL:     "https://example.com/c.zip",
		},
		{
			name:        "toml",
			path:        "release.toml",
			content:     "version = \"3.1.0\"\ndownload_url = \"https://example.com/d.zip\"\n",
			wantVersion: "3.1.0",
			wantURL:     "https://example.com/d.zip",
		},
		{
			name:        "no location",
			path:        "release.json",
			content:     `{"version": " 1.0.0 "}`,
			wantVersion: "1.0.0",
			wantURL:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDescriptor(tt.path, []byte(tt.content))
			if err != nil {
				t.Fatalf("ParseDescriptor() error = %v", err)
			}
			if d.Version != tt.wantVersion {
				t.Errorf("Version = %q, want %q", d.Version, tt.wantVersion)
			}
			if d.Location() != tt.wantURL {
				t.Errorf("Location() = %q, want %q", d.Location(), tt.wantURL)
			}
		})
	}
}

func TestParseDescriptorLooseValues(t *testing.T) {
	tests := []struct {
		name          string
		path          string
		content       string
		wantVersion   string
		wantPublished string
	}{
		{"json number", "release.json", `{"version": 1.20, "url": "a.zip"}`, "1.20", ""},
		{"json bool", "release.json", `{"version": true, "url": "a.zip"}`, "true", ""},
		{"json null", "release.json", `{"version": null, "url": "a.zip"}`, "", ""},
		{"json numeric date", "release.json", `{"version": "1.0.0", "published_at": 1772366400}`, "1.0.0", "1772366400"},
		{"toml integer", "release.toml", "version = 2\nurl = \"a.zip\"\n", "2", ""},
		{"toml float", "release.toml", "version = 1.5\nurl = \"a.zip\"\n", "1.5", ""},
		{"toml datetime", "release.toml", "version = \"1.0.0\"\npublished_at = 2026-03-01T12:00:00Z\n", "1.0.0", "2026-03-01T12:00:00Z"},
		{"yaml float", "release.yaml", "version: 1.10\nurl: a.zip\n", "1.10", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDescriptor(tt.path, []byte(tt.content))
			if err != nil {
				t.Fatalf("ParseDescriptor() error = %v", err)
			}
			if d.Version != tt.wantVersion {
				t.Errorf("Version = %q, want %q", d.Version, tt.wantVersion)
			}
			if d.PublishedAt != tt.wantPublished {
				t.Errorf("PublishedAt = %q, want %q", d.PublishedAt, tt.wantPublished)
			}
		})
	}
}

func TestParseDescriptorExpandsEnv(t *testing.T) {
	t.Setenv("RELEASE_HOST", "mirror.local")

	d, err := ParseDescriptor("release.yaml", []byte("version: \"1.0.0\"\nurl: https://${RELEASE_HOST}/pkg.zip\n"))
	if err != nil {
		t.Fatalf("ParseDescriptor() error = %v", err)
	}
	if d.URL != "https://mirror.local/pkg.zip" {
		t.Errorf("URL = %q, want expanded host", d.URL)
	}
}

func TestParseDescriptorErrors(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		content     string
		errContains string
	}{
		{"bad json", "release.json", `{"version": `, "JSON parse error"},
		{"bad toml", "release.toml", `version = `, "TOML parse error"},
		{"unknown format", "release", `hello`, "unable to detect"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDescriptor(tt.path, []byte(tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("error = %v, want containing %q", err, tt.errContains)
			}
		})
	}
}

func TestLoadDescriptor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "release.json")
	if err := os.WriteFile(path, []byte(`{"version": "9.9.9"}`), 0644); err != nil {
		t.Fatal(err)
	}

	d, err := LoadDescriptor(path)
	if err != nil {
		t.Fatalf("LoadDescriptor() error = %v", err)
	}
	if d.Version != "9.9.9" {
		t.Errorf("Version = %q, want 9.9.9", d.Version)
	}

	if _, err := LoadDescriptor(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing descriptor")
	}
}
