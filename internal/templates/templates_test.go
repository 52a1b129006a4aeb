package templates

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/quanghiep03198/rfid-agent/internal/config"
)

func TestList(t *testing.T) {
	names := List()

	expected := []string{"default", "service"}
	if len(names) != len(expected) {
		t.Fatalf("List() = %v, want %v", names, expected)
	}
	for i, name := range expected {
		if names[i] != name {
			t.Errorf("List()[%d] = %s, want %s", i, names[i], name)
		}
	}
}

func TestGet(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"default", false},
		{"service", false},
		{"nonexistent", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := Get(tt.name)

			if tt.wantErr {
				if err == nil {
					t.Errorf("Get(%s) expected error, got nil", tt.name)
				}
				return
			}

			if err != nil {
				t.Fatalf("Get(%s) unexpected error: %v", tt.name, err)
			}
			if tmpl.Name != tt.name {
				t.Errorf("Get(%s) name = %s", tt.name, tmpl.Name)
			}
			if !strings.Contains(string(tmpl.Content), "max_retries:") {
				t.Errorf("Get(%s) content missing max_retries", tt.name)
			}
		})
	}
}

func TestGetDescription(t *testing.T) {
	if got := GetDescription("service"); !strings.Contains(got, "Unattended") {
		t.Errorf("GetDescription(service) = %q", got)
	}
	if got := GetDescription("unknown"); got != "Custom template" {
		t.Errorf("GetDescription(unknown) = %q", got)
	}
}

func TestGetExpanded(t *testing.T) {
	t.Setenv("RFID_AGENT_HOME", "/opt/rfid")
	t.Setenv("RFID_AGENT_SERVICE", "")

	tmpl, err := GetExpanded("service")
	if err != nil {
		t.Fatalf("GetExpanded(service) error: %v", err)
	}

	content := string(tmpl.Content)
	if strings.Contains(content, "${") {
		t.Errorf("GetExpanded(service) left variables unexpanded:\n%s", content)
	}
	for _, want := range []string{"install_dir: /opt/rfid", "log_file: /opt/rfid/logs/update.log", "- rfid-agent"} {
		if !strings.Contains(content, want) {
			t.Errorf("expanded content missing %q", want)
		}
	}
}

func TestRenderTOML(t *testing.T) {
	out, err := Render("default", "toml")
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	var doc map[string]interface{}
	if err := toml.Unmarshal(out, &doc); err != nil {
		t.Fatalf("Render() produced invalid TOML: %v\n%s", err, out)
	}
	curl, ok := doc["curl"].(map[string]interface{})
	if !ok || curl["path"] != "curl" {
		t.Errorf("curl table = %v", doc["curl"])
	}
}

func TestRenderUnsupportedFormat(t *testing.T) {
	if _, err := Render("default", "ini"); err == nil {
		t.Error("Render(ini) expected error")
	}
}

func TestFileName(t *testing.T) {
	if got := FileName("toml"); got != "updater.toml" {
		t.Errorf("FileName(toml) = %s", got)
	}
	if got := FileName("yaml"); got != "updater.yaml" {
		t.Errorf("FileName(yaml) = %s", got)
	}
}

// Every template must load cleanly as an updater config.
func TestTemplatesLoad(t *testing.T) {
	for _, name := range List() {
		for _, format := range []string{"yaml", "toml"} {
			t.Run(name+"/"+format, func(t *testing.T) {
				content, err := Render(name, format)
				if err != nil {
					t.Fatalf("Render() error: %v", err)
				}

				var doc map[string]interface{}
				if format == "yaml" {
					err = yaml.Unmarshal(content, &doc)
				} else {
					err = toml.Unmarshal(content, &doc)
				}
				if err != nil {
					t.Fatalf("invalid %s: %v", format, err)
				}

				path := filepath.Join(t.TempDir(), FileName(format))
				if err := os.WriteFile(path, content, 0644); err != nil {
					t.Fatal(err)
				}
				s, err := config.Load(config.Options{ConfigFile: path})
				if err != nil {
					t.Fatalf("config.Load() error: %v", err)
				}
				if s.MaxRetries < 1 || s.Curl.Path != "curl" {
					t.Errorf("loaded settings = %+v", s)
				}
			})
		}
	}
}
