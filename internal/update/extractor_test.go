package update

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/quanghiep03198/rfid-agent/internal/config"
	"github.com/quanghiep03198/rfid-agent/internal/logging"
)

// makeZip writes a zip archive containing files (name -> content).
func makeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

// makeTarGz writes a tar.gz archive containing files (name -> content).
func makeTarGz(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		hdr := &tar.Header{Name: name, Mode: 0644, Size: int64(len(content)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestExtractZip(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "update.bin")
	makeZip(t, archive, map[string]string{
		"app/main.exe":          "binary",
		"app/assets/logo.png":   "png",
		"app/config/agent.yaml": "port: 8080",
	})

	out := filepath.Join(dir, "out")
	n, err := NewExtractor(logging.Discard(), 0).Extract(archive, out)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Extract() = %d files, want 3", n)
	}

	got, err := os.ReadFile(filepath.Join(out, "app", "config", "agent.yaml"))
	if err != nil || string(got) != "port: 8080" {
		t.Errorf("agent.yaml = %q, %v", got, err)
	}
}

func TestExtractTarGz(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "update.tgz")
	makeTarGz(t, archive, map[string]string{
		"rfid-agent/main":          "elf",
		"rfid-agent/lib/driver.so": "so",
	})

	out := filepath.Join(dir, "out")
	n, err := NewExtractor(logging.Discard(), 0).Extract(archive, out)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Extract() = %d files, want 2", n)
	}
	if _, err := os.Stat(filepath.Join(out, "rfid-agent", "lib", "driver.so")); err != nil {
		t.Errorf("driver.so missing: %v", err)
	}
}

func TestExtractRejectsBadArchives(t *testing.T) {
	dir := t.TempDir()

	notArchive := filepath.Join(dir, "release.json")
	writeFile(t, notArchive, `{"version": "1.0.0"}`)

	truncated := filepath.Join(dir, "truncated.zip")
	writeFile(t, truncated, "PK\x03\x04garbage")

	escaping := filepath.Join(dir, "escape.zip")
	makeZip(t, escaping, map[string]string{"../../evil.exe": "x"})

	escapingTar := filepath.Join(dir, "escape.tar.gz")
	makeTarGz(t, escapingTar, map[string]string{"/etc/evil": "x"})

	tests := []struct {
		name        string
		archive     string
		unsupported bool
	}{
		{"not an archive", notArchive, false},
		{"corrupt zip", truncated, false},
		{"missing file", filepath.Join(dir, "missing.zip"), false},
		{"zip slip", escaping, true},
		{"absolute tar entry", escapingTar, true},
	}

	e := NewExtractor(logging.Discard(), 0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Extract(tt.archive, filepath.Join(dir, "out-"+tt.name))
			if err == nil {
				t.Fatal("Extract() expected error")
			}
			if tt.unsupported && !errors.Is(err, ErrUnsupportedEntry) {
				t.Errorf("error = %v, want ErrUnsupportedEntry", err)
			}
		})
	}

	if _, err := os.Stat(filepath.Join(filepath.Dir(dir), "evil.exe")); !os.IsNotExist(err) {
		t.Error("zip slip entry was written outside the extraction directory")
	}
}

func TestExtractRejectsSymlinks(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "link.zip")

	f, err := os.Create(archive)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	hdr := &zip.FileHeader{Name: "app/link"}
	hdr.SetMode(os.ModeSymlink | 0777)
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = w.Write([]byte("/etc/passwd"))
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	_, err = NewExtractor(logging.Discard(), 0).Extract(archive, filepath.Join(dir, "out"))
	if !errors.Is(err, ErrUnsupportedEntry) {
		t.Errorf("Extract() error = %v, want ErrUnsupportedEntry", err)
	}
}

func TestExtractEntrySizeLimit(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "big.zip")
	makeZip(t, archive, map[string]string{"big.bin": "0123456789abcdef"})

	_, err := NewExtractor(logging.Discard(), 8).Extract(archive, filepath.Join(dir, "out"))
	if !errors.Is(err, ErrUnsupportedEntry) {
		t.Errorf("Extract() error = %v, want ErrUnsupportedEntry", err)
	}
}

func TestFindPayloadRoot(t *testing.T) {
	indicators := config.DefaultPayloadIndicators

	tests := []struct {
		name    string
		files   []string
		wantSub string
	}{
		{"wrapped executable", []string{"app/main.exe", "app/readme.txt"}, "app"},
		{"wrapped uppercase dll", []string{"rfid-agent/CORE.DLL"}, "rfid-agent"},
		{"wrapped assets folder", []string{"bundle/assets/logo.png"}, "bundle"},
		{"wrapped pyqt", []string{"bundle/PyQt6/Qt.pyd"}, "bundle"},
		{"wrapper without indicators", []string{"docs/readme.txt"}, ""},
		{"flat payload", []string{"main.exe", "core.dll"}, ""},
		{"two subdirectories", []string{"a/main.exe", "b/core.dll"}, ""},
		{"name containing indicator text", []string{"app/exe-notes.txt"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, f := range tt.files {
				writeFile(t, filepath.Join(dir, filepath.FromSlash(f)), "x")
			}

			want := dir
			if tt.wantSub != "" {
				want = filepath.Join(dir, tt.wantSub)
			}
			if got := FindPayloadRoot(dir, indicators); got != want {
				t.Errorf("FindPayloadRoot() = %q, want %q", got, want)
			}
		})
	}
}
