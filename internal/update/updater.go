package update

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/quanghiep03198/rfid-agent/internal/backup"
	"github.com/quanghiep03198/rfid-agent/internal/config"
	"github.com/quanghiep03198/rfid-agent/internal/platform"
	"github.com/quanghiep03198/rfid-agent/internal/replace"
	"github.com/quanghiep03198/rfid-agent/internal/types"
)

// AcceptanceThreshold is the minimum percentage of payload files that must
// be installed for a run to succeed.
const AcceptanceThreshold = 70

// StagingPrefix starts the name of every per-run staging directory.
const StagingPrefix = "rfid_update_"

// Accept applies the acceptance threshold. An empty payload is never accepted.
func Accept(success, total int) bool {
	return total > 0 && success*100 >= total*AcceptanceThreshold
}

// Components are the collaborators an Updater sequences. Services and
// Prompter may be nil.
type Components struct {
	Resolver   Resolver
	Downloader Downloader
	Extractor  Extractor
	Processes  ProcessStopper
	Services   ServiceController
	Snapshots  Snapshotter
	Replacer   FileReplacer
	Prompter   Prompter
}

type releaser interface {
	Release() error
}

// Updater runs the update pipeline against one install directory.
type Updater struct {
	Components
	logger     *log.Logger
	indicators []string
	now        func() time.Time
	lock       func(dir string) (releaser, error)
}

// Option configures an Updater.
type Option func(*Updater)

// WithIndicators sets the payload root indicators.
func WithIndicators(indicators []string) Option {
	return func(u *Updater) {
		if len(indicators) > 0 {
			u.indicators = indicators
		}
	}
}

// WithClock sets the time source used for default backup names and durations.
func WithClock(now func() time.Time) Option {
	return func(u *Updater) {
		u.now = now
	}
}

// New creates an Updater.
func New(logger *log.Logger, c Components, opts ...Option) *Updater {
	u := &Updater{
		Components: c,
		logger:     logger,
		indicators: config.DefaultPayloadIndicators,
		now:        time.Now,
		lock: func(dir string) (releaser, error) {
			return platform.LockDir(dir)
		},
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// session is the working state of one run.
type session struct {
	req        Request
	result     *Result
	state      types.State
	installDir string
	stagingDir string
	archive    string
	payload    string
	backupDir  string
	services   []string
	targets    []string
	mutated    bool
}

func (s *session) enter(st types.State, logger *log.Logger) {
	s.state = st
	s.result.State = st
	logger.Info("Update state", "state", st)
}

type step struct {
	state types.State
	run   func(ctx context.Context, s *session) error
}

// Check resolves the release for req and reports whether it should be
// installed. Force skips the version comparison only.
func (u *Updater) Check(ctx context.Context, req Request) (*ReleaseDescriptor, bool, error) {
	desc := req.Release
	if desc == nil {
		var err error
		desc, err = u.Resolver.Resolve(ctx, req.Reference)
		if err != nil {
			if !errors.Is(err, ErrResolution) {
				err = fmt.Errorf("%w: %v", ErrResolution, err)
			}
			return nil, false, err
		}
	}
	if desc.DownloadURL == "" {
		return desc, false, fmt.Errorf("%w: release %s has no download location", ErrResolution, desc.Version)
	}

	if req.Force {
		u.logger.Info("Forced update, skipping version check", "latest", desc.Version)
		return desc, true, nil
	}
	return desc, NeedsUpdate(desc.Version, req.CurrentVersion), nil
}

// Run executes the pipeline. The returned Result is never nil; on failure
// the error wraps one of the Err* sentinels. Staging files are removed on
// every path; the backup directory is kept.
func (u *Updater) Run(ctx context.Context, req Request) (*Result, error) {
	start := u.now()
	res := &Result{
		State:          types.StateChecking,
		CurrentVersion: req.CurrentVersion,
		Strategies:     map[types.Strategy]int{},
	}
	s := &session{req: req, result: res, state: types.StateChecking}

	err := u.run(ctx, s)
	if err != nil {
		res.State = types.StateFailed
		res.Error = err.Error()
	} else {
		res.State = types.StateDone
		res.Success = true
	}
	res.Duration = u.now().Sub(start)
	return res, err
}

func (u *Updater) run(ctx context.Context, s *session) error {
	installDir, err := filepath.Abs(s.req.InstallDir)
	if err != nil {
		return fmt.Errorf("invalid install directory: %w", err)
	}
	if err := os.MkdirAll(installDir, 0755); err != nil {
		return fmt.Errorf("creating install directory: %w", err)
	}
	s.installDir = installDir

	lock, err := u.lock(installDir)
	if err != nil {
		u.logger.Error("Cannot lock install directory", "dir", installDir, "error", err)
		return err
	}
	defer lock.Release()
	defer u.cleanup(s)

	err = u.pipeline(ctx, s)
	if err != nil {
		u.logger.Error("Update failed", "state", s.state, "error", err)
		u.offerRestore(s)
	}
	if len(s.services) > 0 {
		u.Services.Start(s.services)
	}
	return err
}

func (u *Updater) pipeline(ctx context.Context, s *session) error {
	steps := []step{
		{types.StateChecking, u.check},
		{types.StateDownloading, u.download},
		{types.StateExtracting, u.extract},
		{types.StateStoppingProcesses, u.stopProcesses},
		{types.StateBackingUp, u.createBackup},
		{types.StateReplacing, u.replaceFiles},
		{types.StateVerifying, u.verify},
	}

	for _, st := range steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w before %s: %v", ErrCancelled, st.state, err)
		}
		s.enter(st.state, u.logger)
		if err := st.run(ctx, s); err != nil {
			return err
		}
		if s.result.UpToDate {
			return nil
		}
	}
	return nil
}

func (u *Updater) check(ctx context.Context, s *session) error {
	desc, needed, err := u.Check(ctx, s.req)
	if err != nil {
		return err
	}
	s.result.Release = desc

	if !needed {
		u.logger.Info("Current version is up to date", "version", s.req.CurrentVersion)
		s.result.UpToDate = true
		return nil
	}
	u.logger.Info("Update available", "current", s.req.CurrentVersion, "latest", desc.Version, "url", desc.DownloadURL)
	return nil
}

func (u *Updater) download(ctx context.Context, s *session) error {
	if s.req.StagingDir != "" {
		if err := os.MkdirAll(s.req.StagingDir, 0755); err != nil {
			return fmt.Errorf("%w: creating staging directory: %v", ErrDownload, err)
		}
	}
	dir, err := os.MkdirTemp(s.req.StagingDir, StagingPrefix)
	if err != nil {
		return fmt.Errorf("%w: creating staging directory: %v", ErrDownload, err)
	}
	s.stagingDir = dir
	s.archive = filepath.Join(dir, "update.pkg")

	if !u.Downloader.Download(ctx, s.result.Release.DownloadURL, s.archive) {
		return fmt.Errorf("%w: %s", ErrDownload, s.result.Release.DownloadURL)
	}
	return nil
}

func (u *Updater) extract(_ context.Context, s *session) error {
	dir := filepath.Join(s.stagingDir, "extracted")
	n, err := u.Extractor.Extract(s.archive, dir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: archive contains no files", ErrExtraction)
	}

	s.payload = FindPayloadRoot(dir, u.indicators)
	if s.payload != dir {
		u.logger.Info("Found application directory", "dir", filepath.Base(s.payload))
	}
	return nil
}

func (u *Updater) stopProcesses(ctx context.Context, s *session) error {
	if u.Services != nil && len(s.req.Services) > 0 {
		s.services = u.Services.Stop(s.req.Services)
	}
	if !u.Processes.Terminate(ctx, s.req.Processes) {
		u.logger.Warn("Some processes could not be stopped; locked files will be retried", "processes", s.req.Processes)
	}
	return nil
}

func (u *Updater) createBackup(_ context.Context, s *session) error {
	dir := s.req.BackupDir
	switch {
	case dir == "":
		dir = backup.UniqueDir(backup.DefaultDir(s.installDir, u.now()))
	case backup.IsSnapshot(dir):
		dir = backup.UniqueDir(dir)
	}

	m, ok := u.Snapshots.CreateManifest(s.installDir, dir)
	if ok {
		s.backupDir = dir
		s.result.BackupDir = dir
		s.result.BackedUp = m.Files
		return nil
	}

	if m != nil && m.Files == 0 && m.Failed == 0 {
		u.logger.Info("Install directory is empty, nothing to back up", "dir", s.installDir)
		discardEmptySnapshot(dir)
		return nil
	}

	if s.req.RequireBackup {
		return fmt.Errorf("%w: no files could be copied to %s", ErrBackup, dir)
	}
	u.logger.Warn("Backup failed, continuing without a backup", "dir", dir)
	discardEmptySnapshot(dir)
	return nil
}

// discardEmptySnapshot removes a snapshot directory holding only its manifest.
func discardEmptySnapshot(dir string) {
	_ = os.Remove(filepath.Join(dir, backup.ManifestName))
	_ = os.Remove(dir)
}

func (u *Updater) replaceFiles(ctx context.Context, s *session) error {
	var files []string
	err := filepath.WalkDir(s.payload, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: reading payload: %v", ErrExtraction, err)
	}

	total := len(files)
	s.result.Total = total
	u.logger.Info("Replacing files", "count", total)

	s.mutated = true
	for i, src := range files {
		rel, err := filepath.Rel(s.payload, src)
		if err != nil {
			continue
		}
		target := filepath.Join(s.installDir, rel)
		s.targets = append(s.targets, target)
		backupPath := ""
		if s.backupDir != "" {
			backupPath = filepath.Join(s.backupDir, rel)
		}

		out := u.Replacer.Replace(ctx, src, target, backupPath)
		if out.OK() {
			s.result.Replaced++
			s.result.Strategies[out.Strategy]++
			u.logger.Info("Replaced", "file", fmt.Sprintf("[%d/%d] %s", i+1, total, rel), "strategy", out.Strategy)
		} else {
			s.result.Strategies[types.StrategySkipped]++
			u.logger.Warn("Skipped", "file", fmt.Sprintf("[%d/%d] %s", i+1, total, rel), "error", out.Err)
		}
	}
	return nil
}

func (u *Updater) verify(_ context.Context, s *session) error {
	r := s.result
	u.logger.Info("Replacement summary", "replaced", r.Replaced, "total", r.Total)
	if !Accept(r.Replaced, r.Total) {
		return fmt.Errorf("%w: %d of %d files replaced (need %d%%)", ErrPartialReplacement, r.Replaced, r.Total, AcceptanceThreshold)
	}
	return nil
}

// offerRestore restores the snapshot after a failed run that may have
// changed the install directory. Silent runs restore only with AutoRestore.
func (u *Updater) offerRestore(s *session) {
	if !s.mutated || s.backupDir == "" || s.result.BackedUp == 0 {
		return
	}

	restore := false
	switch {
	case s.req.AutoRestore:
		u.logger.Info("Restoring from backup automatically", "backup", s.backupDir)
		restore = true
	case s.req.Silent || u.Prompter == nil:
		u.logger.Info("Backup kept for manual restore", "backup", s.backupDir)
	default:
		restore = u.Prompter.ConfirmRestore()
	}

	if restore {
		s.result.Restored = u.Snapshots.Restore(s.backupDir, s.installDir)
	}
}

// cleanup runs once per run on every exit path.
func (u *Updater) cleanup(s *session) {
	if s.stagingDir != "" {
		if err := os.RemoveAll(s.stagingDir); err != nil {
			u.logger.Warn("Could not remove staging directory", "dir", s.stagingDir, "error", err)
		} else {
			u.logger.Debug("Removed staging directory", "dir", s.stagingDir)
		}
	}
	if !s.mutated {
		return
	}
	if n := replace.CleanupStale(s.targets, u.logger); n > 0 {
		u.logger.Debug("Removed renamed originals", "count", n)
	}
}
