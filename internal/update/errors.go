package update

import (
	"errors"

	"github.com/quanghiep03198/rfid-agent/internal/platform"
)

// Run failure taxonomy. Errors returned by Updater.Run wrap exactly one of
// these; test with errors.Is.
var (
	// ErrResolution means no download location could be determined.
	ErrResolution = errors.New("release resolution failed")
	// ErrDownload means every download strategy was exhausted.
	ErrDownload = errors.New("download failed")
	// ErrExtraction means the archive could not be unpacked.
	ErrExtraction = errors.New("extraction failed")
	// ErrPartialReplacement means fewer files than the acceptance
	// threshold were installed.
	ErrPartialReplacement = errors.New("partial replacement")
	// ErrBackup is only returned when a backup is required.
	ErrBackup = errors.New("backup failed")
	// ErrLocked means another run holds the install directory.
	ErrLocked = platform.ErrLocked
	// ErrCancelled means the context ended between states.
	ErrCancelled = errors.New("update cancelled")
)
