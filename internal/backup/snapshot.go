// Package backup snapshots an installation before it is updated, restores
// snapshots, and keeps the set of retained snapshots in check.
package backup

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/quanghiep03198/rfid-agent/internal/platform"
)

// ManifestName is written at the root of every snapshot.
const ManifestName = ".backup-manifest.json"

// DirPrefix starts the name of every default snapshot directory.
const DirPrefix = "backup_"

// Manifest describes a snapshot.
type Manifest struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	InstallDir string    `json:"install_dir"`
	Version    string    `json:"version,omitempty"`
	Files      int       `json:"files"`
	Failed     int       `json:"failed,omitempty"`
}

// DefaultDir returns <installDir>/backup_<unix-seconds>.
func DefaultDir(installDir string, now time.Time) string {
	return filepath.Join(installDir, fmt.Sprintf("%s%d", DirPrefix, now.Unix()))
}

// UniqueDir returns dir if nothing exists there yet, otherwise dir_<n> for the
// smallest free n. Runs started within the same second get separate snapshots.
func UniqueDir(dir string) string {
	if _, err := os.Lstat(dir); os.IsNotExist(err) {
		return dir
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s_%d", dir, n)
		if _, err := os.Lstat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// Snapshotter copies installation trees in and out of snapshot directories.
// Both directions are best effort: individual copy failures are logged and
// skipped.
type Snapshotter struct {
	logger  *log.Logger
	version string
	now     func() time.Time
}

// NewSnapshotter creates a Snapshotter. version is recorded in manifests.
func NewSnapshotter(logger *log.Logger, version string) *Snapshotter {
	return &Snapshotter{
		logger:  logger,
		version: version,
		now:     time.Now,
	}
}

// Create copies every file under installDir into backupDir, preserving
// relative paths. backupDir itself, earlier snapshots and the updater lock
// file are skipped. It returns true iff at least one file was copied.
func (s *Snapshotter) Create(installDir, backupDir string) bool {
	_, ok := s.CreateManifest(installDir, backupDir)
	return ok
}

// CreateManifest is Create returning the written manifest.
func (s *Snapshotter) CreateManifest(installDir, backupDir string) (*Manifest, bool) {
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		s.logger.Error("Cannot create backup directory", "dir", backupDir, "error", err)
		return nil, false
	}

	absInstall, err := filepath.Abs(installDir)
	if err != nil {
		s.logger.Error("Cannot resolve install directory", "dir", installDir, "error", err)
		return nil, false
	}
	absBackup, err := filepath.Abs(backupDir)
	if err != nil {
		s.logger.Error("Cannot resolve backup directory", "dir", backupDir, "error", err)
		return nil, false
	}

	m := &Manifest{
		ID:         filepath.Base(absBackup),
		CreatedAt:  s.now(),
		InstallDir: absInstall,
		Version:    s.version,
	}

	walkErr := filepath.WalkDir(absInstall, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Warn("Cannot read path during backup", "path", path, "error", err)
			if d != nil && d.IsDir() && path != absInstall {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path == absBackup || (path != absInstall && IsSnapshot(path)) {
				return fs.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			s.logger.Debug("Skipping non-regular file", "path", path)
			return nil
		}

		rel, err := filepath.Rel(absInstall, path)
		if err != nil {
			m.Failed++
			return nil
		}
		if rel == platform.LockFileName {
			return nil
		}

		if err := CopyFile(path, filepath.Join(absBackup, rel)); err != nil {
			s.logger.Warn("Could not back up file", "file", rel, "error", err)
			m.Failed++
			return nil
		}
		m.Files++
		return nil
	})
	if walkErr != nil {
		s.logger.Error("Backup walk failed", "dir", absInstall, "error", walkErr)
	}

	if err := writeManifest(absBackup, m); err != nil {
		s.logger.Warn("Could not write backup manifest", "error", err)
	}

	s.logger.Info("Backup created", "dir", backupDir, "files", m.Files, "failed", m.Failed)
	return m, m.Files > 0
}

// Restore copies every file in backupDir back into installDir. It returns
// true iff at least one file was restored.
func (s *Snapshotter) Restore(backupDir, installDir string) bool {
	info, err := os.Stat(backupDir)
	if err != nil || !info.IsDir() {
		s.logger.Error("Backup directory not found", "dir", backupDir)
		return false
	}

	restored, failed := 0, 0
	_ = filepath.WalkDir(backupDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Warn("Cannot read path during restore", "path", path, "error", err)
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(backupDir, path)
		if err != nil || rel == ManifestName {
			return nil
		}

		if err := CopyFile(path, filepath.Join(installDir, rel)); err != nil {
			s.logger.Warn("Could not restore file", "file", rel, "error", err)
			failed++
			return nil
		}
		restored++
		return nil
	})

	s.logger.Info("Restore finished", "dir", backupDir, "files", restored, "failed", failed)
	return restored > 0
}

// IsSnapshot reports whether dir holds a snapshot manifest.
func IsSnapshot(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ManifestName))
	return err == nil && info.Mode().IsRegular()
}

func writeManifest(dir string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestName), data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// readManifest loads the manifest of the snapshot in dir.
func readManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("backup not found: %s", filepath.Base(dir))
		}
		return nil, fmt.Errorf("failed to read backup manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse backup manifest: %w", err)
	}
	return &m, nil
}
