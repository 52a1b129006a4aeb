package update

import (
	"context"
	"time"

	"github.com/quanghiep03198/rfid-agent/internal/backup"
	"github.com/quanghiep03198/rfid-agent/internal/process"
	"github.com/quanghiep03198/rfid-agent/internal/replace"
	"github.com/quanghiep03198/rfid-agent/internal/types"
)

// UnknownVersion is the version of a release whose metadata is absent.
// A release with this version is always considered newer.
const UnknownVersion = "unknown"

// ReleaseDescriptor is a resolved release: what to download and which
// version it claims to be.
type ReleaseDescriptor struct {
	Version     string              `json:"version" yaml:"version"`
	DownloadURL string              `json:"download_url" yaml:"download_url"`
	Kind        types.ReferenceKind `json:"kind" yaml:"kind"`
	Reference   string              `json:"reference" yaml:"reference"`
	Notes       string              `json:"notes,omitempty" yaml:"notes,omitempty"`
	// Degraded is set when a metadata endpoint could not be read and the
	// reference itself is used as the archive location.
	Degraded bool `json:"degraded,omitempty" yaml:"degraded,omitempty"`
}

// Request is one update run. It is not modified by the Updater.
type Request struct {
	Reference      string
	InstallDir     string
	BackupDir      string
	StagingDir     string
	CurrentVersion string
	Processes      []string
	Services       []string
	Force          bool
	Silent         bool
	AutoRestore    bool
	RequireBackup  bool

	// Release is a descriptor resolved before the run, typically by
	// auto-detection. When set, Reference is not resolved again.
	Release *ReleaseDescriptor
}

// Result describes how a run ended. Updater.Run always returns one.
type Result struct {
	State          types.State            `json:"state" yaml:"state"`
	Success        bool                   `json:"success" yaml:"success"`
	UpToDate       bool                   `json:"up_to_date,omitempty" yaml:"up_to_date,omitempty"`
	Release        *ReleaseDescriptor     `json:"release,omitempty" yaml:"release,omitempty"`
	CurrentVersion string                 `json:"current_version,omitempty" yaml:"current_version,omitempty"`
	BackupDir      string                 `json:"backup_dir,omitempty" yaml:"backup_dir,omitempty"`
	BackedUp       int                    `json:"backed_up" yaml:"backed_up"`
	Replaced       int                    `json:"replaced" yaml:"replaced"`
	Total          int                    `json:"total" yaml:"total"`
	Strategies     map[types.Strategy]int `json:"strategies,omitempty" yaml:"strategies,omitempty"`
	Restored       bool                   `json:"restored,omitempty" yaml:"restored,omitempty"`
	Duration       time.Duration          `json:"duration" yaml:"duration"`
	Error          string                 `json:"error,omitempty" yaml:"error,omitempty"`
}

// Resolver turns an update reference into a ReleaseDescriptor.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (*ReleaseDescriptor, error)
}

// Downloader fetches url into dest. It reports failure as false.
type Downloader interface {
	Download(ctx context.Context, url, dest string) bool
}

// Extractor unpacks an archive into dir and returns the file count.
type Extractor interface {
	Extract(archive, dir string) (int, error)
}

// ProcessStopper terminates running instances of the application.
type ProcessStopper interface {
	Terminate(ctx context.Context, names []string) bool
}

// ServiceController stops and restarts OS services hosting the application.
type ServiceController interface {
	Stop(names []string) []string
	Start(names []string)
}

// Snapshotter creates and restores install directory snapshots.
type Snapshotter interface {
	CreateManifest(installDir, backupDir string) (*backup.Manifest, bool)
	Restore(backupDir, installDir string) bool
}

// FileReplacer installs one file.
type FileReplacer interface {
	Replace(ctx context.Context, source, target, backupPath string) replace.Outcome
}

// Prompter asks the user whether to restore after a failed run.
type Prompter interface {
	ConfirmRestore() bool
}

var (
	_ ProcessStopper    = (*process.Manager)(nil)
	_ ServiceController = (*process.ServiceController)(nil)
	_ FileReplacer      = (*replace.Replacer)(nil)
	_ Snapshotter       = (*backup.Snapshotter)(nil)
	_ Extractor         = (*ArchiveExtractor)(nil)
	_ Downloader        = (*RetryDownloader)(nil)
	_ Resolver          = (*ReferenceResolver)(nil)
)
