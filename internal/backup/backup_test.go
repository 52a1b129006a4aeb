package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/quanghiep03198/rfid-agent/internal/logging"
)

// createSnapshot makes a snapshot under root with a fixed creation time.
func createSnapshot(t *testing.T, root, id string, at time.Time) {
	t.Helper()
	install := t.TempDir()
	writeTree(t, install, map[string]string{"main.exe": id})

	s := NewSnapshotter(logging.Discard(), "1.0.0")
	s.now = func() time.Time { return at }
	if !s.Create(install, filepath.Join(root, id)) {
		t.Fatalf("Create(%s) = false", id)
	}
}

func TestManager_List(t *testing.T) {
	root := t.TempDir()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	createSnapshot(t, root, "backup_1", base)
	createSnapshot(t, root, "backup_3", base.Add(2*time.Hour))
	createSnapshot(t, root, "backup_2", base.Add(time.Hour))

	// Directories without a manifest are not snapshots.
	if err := os.MkdirAll(filepath.Join(root, "logs"), 0755); err != nil {
		t.Fatal(err)
	}

	m := NewManager(root)
	backups, err := m.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(backups) != 3 {
		t.Fatalf("List() returned %d backups, want 3", len(backups))
	}

	want := []string{"backup_3", "backup_2", "backup_1"}
	for i, id := range want {
		if backups[i].ID != id {
			t.Errorf("backups[%d].ID = %s, want %s", i, backups[i].ID, id)
		}
	}
	if backups[0].Files != 1 || backups[0].Size == 0 {
		t.Errorf("backups[0] = %+v, want 1 file and non-zero size", backups[0])
	}
}

func TestManager_ListEmpty(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "missing"))
	backups, err := m.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(backups) != 0 {
		t.Errorf("List() = %v, want empty", backups)
	}
}

func TestManager_Get(t *testing.T) {
	root := t.TempDir()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	createSnapshot(t, root, "backup_1", base)
	createSnapshot(t, root, "backup_2", base.Add(time.Minute))

	m := NewManager(root)

	got, err := m.Get("backup_1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Path != filepath.Join(root, "backup_1") {
		t.Errorf("Path = %s", got.Path)
	}

	latest, err := m.Get("latest")
	if err != nil {
		t.Fatalf("Get(latest) error = %v", err)
	}
	if latest.ID != "backup_2" {
		t.Errorf("Get(latest).ID = %s, want backup_2", latest.ID)
	}

	if _, err := m.Get("backup_9"); err == nil {
		t.Error("expected error for unknown id")
	}
}

func TestManager_GetLatestNoBackups(t *testing.T) {
	m := NewManager(t.TempDir())
	if _, err := m.Get("latest"); err == nil {
		t.Error("expected error when no backups exist")
	}
}

func TestManager_Delete(t *testing.T) {
	root := t.TempDir()
	createSnapshot(t, root, "backup_1", time.Now())

	m := NewManager(root)
	if err := m.Delete("backup_1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "backup_1")); !os.IsNotExist(err) {
		t.Error("snapshot directory still exists")
	}

	if err := m.Delete("backup_1"); err == nil {
		t.Error("expected error deleting a missing backup")
	}
	if err := m.Delete("../etc"); err == nil {
		t.Error("expected error for an id with a path separator")
	}
}

func TestManager_DeleteRefusesPlainDirectories(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"assets/logo.png": "png"})

	m := NewManager(root)
	if err := m.Delete("assets"); err == nil {
		t.Error("Delete() removed a directory that is not a snapshot")
	}
	if _, err := os.Stat(filepath.Join(root, "assets", "logo.png")); err != nil {
		t.Errorf("assets were touched: %v", err)
	}
}
