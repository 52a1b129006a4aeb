package backup

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// BackupInfo provides summary information about a snapshot for listing.
type BackupInfo struct {
	ID        string    `json:"id" yaml:"id"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Version   string    `json:"version,omitempty" yaml:"version,omitempty"`
	Files     int       `json:"files" yaml:"files"`
	Size      int64     `json:"size" yaml:"size"`
	Path      string    `json:"path" yaml:"path"`
}

// Manager lists and removes the snapshots kept under a root directory,
// normally the install directory.
type Manager struct {
	root string
}

// NewManager creates a manager for snapshots under root.
func NewManager(root string) *Manager {
	return &Manager{root: root}
}

// List returns all snapshots sorted by creation time (newest first).
func (m *Manager) List() ([]BackupInfo, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		if os.IsNotExist(err) {
			return []BackupInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	backups := []BackupInfo{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		dir := filepath.Join(m.root, entry.Name())
		manifest, err := readManifest(dir)
		if err != nil {
			continue
		}

		backups = append(backups, BackupInfo{
			ID:        entry.Name(),
			CreatedAt: manifest.CreatedAt,
			Version:   manifest.Version,
			Files:     manifest.Files,
			Size:      dirSize(dir),
			Path:      dir,
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})

	return backups, nil
}

// Get retrieves a snapshot by ID. Use "latest" to get the most recent one.
func (m *Manager) Get(id string) (*BackupInfo, error) {
	backups, err := m.List()
	if err != nil {
		return nil, err
	}

	if id == "latest" {
		if len(backups) == 0 {
			return nil, fmt.Errorf("no backups found")
		}
		return &backups[0], nil
	}

	for i := range backups {
		if backups[i].ID == id {
			return &backups[i], nil
		}
	}
	return nil, fmt.Errorf("backup not found: %s", id)
}

// Delete removes a snapshot by ID.
func (m *Manager) Delete(id string) error {
	if id == "" || filepath.Base(id) != id {
		return fmt.Errorf("invalid backup id: %q", id)
	}

	dir := filepath.Join(m.root, id)
	if !IsSnapshot(dir) {
		return fmt.Errorf("backup not found: %s", id)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to delete backup: %w", err)
	}

	return nil
}

// Root returns the directory the manager scans.
func (m *Manager) Root() string {
	return m.root
}

func dirSize(dir string) int64 {
	var size int64
	_ = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			size += info.Size()
		}
		return nil
	})
	return size
}
