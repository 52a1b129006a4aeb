package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/quanghiep03198/rfid-agent/internal/backup"
	"github.com/quanghiep03198/rfid-agent/internal/logging"
)

func TestRunInit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "agent")
	var out bytes.Buffer

	if err := runInit(&out, dir, "default", "yaml", false); err != nil {
		t.Fatalf("runInit() error = %v", err)
	}
	path := filepath.Join(dir, "updater.yaml")
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if !strings.Contains(string(content), "max_retries: 3") {
		t.Errorf("unexpected config:\n%s", content)
	}
	if !strings.Contains(out.String(), "Created "+path) {
		t.Errorf("output = %q", out.String())
	}

	if err := runInit(&out, dir, "default", "yaml", false); err == nil {
		t.Error("runInit() over an existing file should fail without --force")
	}
	if err := runInit(&out, dir, "service", "yaml", true); err != nil {
		t.Errorf("runInit() with force error = %v", err)
	}
}

func TestRunInitTOML(t *testing.T) {
	dir := t.TempDir()
	if err := runInit(&bytes.Buffer{}, dir, "default", "TOML", false); err != nil {
		t.Fatalf("runInit() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "updater.toml")); err != nil {
		t.Errorf("updater.toml not written: %v", err)
	}
}

func TestRunInitUnknownTemplate(t *testing.T) {
	dir := t.TempDir()
	if err := runInit(&bytes.Buffer{}, dir, "kiosk", "yaml", false); err == nil {
		t.Fatal("runInit() with unknown template should fail")
	}
	if _, err := os.Stat(filepath.Join(dir, "updater.yaml")); !os.IsNotExist(err) {
		t.Error("config written for an unknown template")
	}
}

func TestLoadSettingsFromFlags(t *testing.T) {
	dir := t.TempDir()
	root := NewRootCmd()

	err := root.ParseFlags([]string{
		"--install-dir", dir,
		"--update-url", "https://updates.example.com/release.json",
		"--max-retries", "5",
		"--processes", "main.exe,reader.exe",
		"--auto-restore",
	})
	if err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}

	s, err := loadSettings(root)
	if err != nil {
		t.Fatalf("loadSettings() error = %v", err)
	}

	if s.InstallDir != dir {
		t.Errorf("InstallDir = %s, want %s", s.InstallDir, dir)
	}
	if s.UpdateURL != "https://updates.example.com/release.json" {
		t.Errorf("UpdateURL = %s", s.UpdateURL)
	}
	if s.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", s.MaxRetries)
	}
	if len(s.Processes) != 2 || s.Processes[1] != "reader.exe" {
		t.Errorf("Processes = %v", s.Processes)
	}
	if !s.AutoRestore || s.Silent {
		t.Errorf("AutoRestore/Silent = %v/%v", s.AutoRestore, s.Silent)
	}

	req := newRequest(s)
	if req.Reference != s.UpdateURL || req.InstallDir != dir || !req.AutoRestore {
		t.Errorf("newRequest() = %+v", req)
	}
}

func TestLoadSettingsConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "updater.yaml")
	if err := os.WriteFile(cfg, []byte("current_version: 1.2.0\nmax_retries: 7\n"), 0644); err != nil {
		t.Fatal(err)
	}

	root := NewRootCmd()
	if err := root.ParseFlags([]string{"--config", cfg, "--max-retries", "2"}); err != nil {
		t.Fatal(err)
	}

	s, err := loadSettings(root)
	if err != nil {
		t.Fatalf("loadSettings() error = %v", err)
	}
	if s.CurrentVersion != "1.2.0" {
		t.Errorf("CurrentVersion = %s, want 1.2.0", s.CurrentVersion)
	}
	if s.MaxRetries != 2 {
		t.Errorf("MaxRetries = %d, flag should win over the file", s.MaxRetries)
	}
}

func TestResolveBackup(t *testing.T) {
	install := t.TempDir()
	if err := os.WriteFile(filepath.Join(install, "main.exe"), []byte("v1"), 0644); err != nil {
		t.Fatal(err)
	}
	snapshot := filepath.Join(install, "backup_1700000000")
	if !backup.NewSnapshotter(logging.Discard(), "1.0.0").Create(install, snapshot) {
		t.Fatal("snapshot not created")
	}

	for _, ref := range []string{"latest", "backup_1700000000", snapshot} {
		got, err := resolveBackup(install, ref)
		if err != nil {
			t.Errorf("resolveBackup(%q) error = %v", ref, err)
			continue
		}
		if got != snapshot {
			t.Errorf("resolveBackup(%q) = %s, want %s", ref, got, snapshot)
		}
	}

	if _, err := resolveBackup(install, "backup_1"); err == nil {
		t.Error("resolveBackup() of an unknown id should fail")
	}
}
