package update

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// DefaultMaxEntryBytes limits the size of a single extracted file.
const DefaultMaxEntryBytes int64 = 2 << 30

var (
	zipMagic  = []byte("PK\x03\x04")
	gzipMagic = []byte{0x1f, 0x8b}
)

// ErrUnsupportedEntry is returned for links, devices and entries that
// would land outside the extraction directory.
var ErrUnsupportedEntry = errors.New("unsupported archive entry")

// ArchiveExtractor unpacks zip and tar.gz archives. The format is taken
// from the file's leading bytes, not its name.
type ArchiveExtractor struct {
	logger   *log.Logger
	maxEntry int64
}

// NewExtractor creates an ArchiveExtractor. maxEntry <= 0 uses DefaultMaxEntryBytes.
func NewExtractor(logger *log.Logger, maxEntry int64) *ArchiveExtractor {
	if maxEntry <= 0 {
		maxEntry = DefaultMaxEntryBytes
	}
	return &ArchiveExtractor{logger: logger, maxEntry: maxEntry}
}

// Extract unpacks archive into dir and returns the number of files written.
func (e *ArchiveExtractor) Extract(archive, dir string) (int, error) {
	head, err := readHead(archive, 4)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("creating extraction directory: %w", err)
	}

	var n int
	switch {
	case bytes.HasPrefix(head, zipMagic):
		n, err = e.extractZip(archive, dir)
	case bytes.HasPrefix(head, gzipMagic):
		n, err = e.extractTarGz(archive, dir)
	default:
		return 0, fmt.Errorf("%s is not a zip or tar.gz archive", filepath.Base(archive))
	}
	if err != nil {
		return n, err
	}

	e.logger.Info("Extracted files", "count", n, "dir", dir)
	return n, nil
}

func readHead(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading archive: %w", err)
	}
	return buf[:read], nil
}

func (e *ArchiveExtractor) extractZip(archive, dir string) (int, error) {
	r, err := zip.OpenReader(archive)
	if errors.Is(err, zip.ErrInsecurePath) {
		r.Close()
		return 0, fmt.Errorf("%w: %v", ErrUnsupportedEntry, err)
	}
	if err != nil {
		return 0, fmt.Errorf("opening zip archive: %w", err)
	}
	defer r.Close()

	count := 0
	for _, f := range r.File {
		target, err := entryPath(dir, f.Name)
		if err != nil {
			return count, err
		}

		mode := f.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0755); err != nil {
				return count, err
			}
			continue
		case !mode.IsRegular():
			return count, fmt.Errorf("%w: %s (%s)", ErrUnsupportedEntry, f.Name, mode.Type())
		}

		if f.UncompressedSize64 > uint64(e.maxEntry) {
			return count, fmt.Errorf("%w: %s exceeds %d bytes", ErrUnsupportedEntry, f.Name, e.maxEntry)
		}

		rc, err := f.Open()
		if err != nil {
			return count, fmt.Errorf("opening zip entry %s: %w", f.Name, err)
		}
		err = e.writeEntry(target, rc, mode.Perm())
		rc.Close()
		if err != nil {
			return count, fmt.Errorf("extracting %s: %w", f.Name, err)
		}
		count++
	}
	return count, nil
}

func (e *ArchiveExtractor) extractTarGz(archive, dir string) (int, error) {
	f, err := os.Open(archive)
	if err != nil {
		return 0, fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return 0, fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	count := 0
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return count, fmt.Errorf("reading tar entry: %w", err)
		}

		target, err := entryPath(dir, hdr.Name)
		if err != nil {
			return count, err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return count, err
			}
		case tar.TypeReg:
			if hdr.Size > e.maxEntry {
				return count, fmt.Errorf("%w: %s exceeds %d bytes", ErrUnsupportedEntry, hdr.Name, e.maxEntry)
			}
			if err := e.writeEntry(target, tr, fs.FileMode(hdr.Mode).Perm()); err != nil {
				return count, fmt.Errorf("extracting %s: %w", hdr.Name, err)
			}
			count++
		case tar.TypeXGlobalHeader:
		default:
			return count, fmt.Errorf("%w: %s (type %c)", ErrUnsupportedEntry, hdr.Name, hdr.Typeflag)
		}
	}
}

// writeEntry copies at most maxEntry bytes of r to target.
func (e *ArchiveExtractor) writeEntry(target string, r io.Reader, perm fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	if perm == 0 {
		perm = 0644
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0200)
	if err != nil {
		return err
	}

	n, err := io.Copy(out, io.LimitReader(r, e.maxEntry+1))
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err == nil && n > e.maxEntry {
		err = fmt.Errorf("%w: entry exceeds %d bytes", ErrUnsupportedEntry, e.maxEntry)
	}
	if err != nil {
		os.Remove(target)
	}
	return err
}

// entryPath maps an archive entry name into dir, rejecting names that
// would escape it.
func entryPath(dir, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.ReplaceAll(name, `\`, "/")))
	if clean == "." || filepath.IsAbs(clean) || filepath.VolumeName(clean) != "" ||
		clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s escapes the extraction directory", ErrUnsupportedEntry, name)
	}
	return filepath.Join(dir, clean), nil
}

// FindPayloadRoot returns the directory holding the application files. When
// dir contains exactly one subdirectory and that subdirectory has an entry
// matching one of indicators, the subdirectory is the root. Indicators
// starting with "." match file name suffixes; others match whole names.
// Both comparisons ignore case.
func FindPayloadRoot(dir string, indicators []string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return dir
	}

	var subdirs []string
	for _, e := range entries {
		if e.IsDir() {
			subdirs = append(subdirs, e.Name())
		}
	}
	if len(subdirs) != 1 {
		return dir
	}

	candidate := filepath.Join(dir, subdirs[0])
	contents, err := os.ReadDir(candidate)
	if err != nil {
		return dir
	}

	for _, item := range contents {
		if matchesIndicator(item.Name(), indicators) {
			return candidate
		}
	}
	return dir
}

func matchesIndicator(name string, indicators []string) bool {
	lower := strings.ToLower(name)
	for _, ind := range indicators {
		ind = strings.ToLower(ind)
		if ind == "" {
			continue
		}
		if strings.HasPrefix(ind, ".") {
			if strings.HasSuffix(lower, ind) {
				return true
			}
		} else if lower == ind {
			return true
		}
	}
	return false
}
