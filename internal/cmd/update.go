package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/quanghiep03198/rfid-agent/internal/backup"
	"github.com/quanghiep03198/rfid-agent/internal/config"
	"github.com/quanghiep03198/rfid-agent/internal/interactive"
	"github.com/quanghiep03198/rfid-agent/internal/output"
	"github.com/quanghiep03198/rfid-agent/internal/platform"
	"github.com/quanghiep03198/rfid-agent/internal/process"
	"github.com/quanghiep03198/rfid-agent/internal/replace"
	"github.com/quanghiep03198/rfid-agent/internal/update"
)

type updateOptions struct {
	dryRun bool
}

// addFlags registers the update flags. Their values are read back through
// config.Load, which binds every flag to the setting of the same name.
func (o *updateOptions) addFlags(fs *pflag.FlagSet) {
	fs.StringP("update-url", "u", "", "Release reference: descriptor file, descriptor URL or archive")
	fs.String("current-version", "", "Installed version, compared with the release version")
	fs.String("backup-dir", "", "Backup directory (default <install-dir>/backup_<timestamp>)")
	fs.String("staging-dir", "", "Parent directory for download staging (default system temp)")
	fs.StringSlice("processes", nil, "Executables to stop before replacing files (default main.exe)")
	fs.StringSlice("services", nil, "OS services to stop during the update and start afterwards")
	fs.Int("max-retries", 3, "Download attempts per strategy")
	fs.Bool("force", false, "Install even when the versions match")
	fs.Bool("silent", false, "Never prompt or pause")
	fs.Bool("auto-restore", false, "Restore the backup without asking when the update fails")
	fs.Bool("require-backup", false, "Fail when a non-empty install directory cannot be backed up")
	fs.BoolVar(&o.dryRun, "dry-run", false, "Resolve the release and report without downloading")
}

func runUpdate(cmd *cobra.Command, opts *updateOptions) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	logger, closer := newLogger(cmd, s)
	defer func() { _ = closer.Close() }()

	writer, err := newWriter(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prompter := interactive.NewPrompter()
	u := newUpdater(logger, s, prompter)
	req := newRequest(s)

	if req.Reference == "" {
		release, err := detectRelease(ctx, s)
		if err != nil {
			logger.Error("Cannot detect the latest release", "owner", s.Release.Owner, "repo", s.Release.Repo, "error", err)
			return fmt.Errorf("%w: no update URL given and auto-detection failed: %v", update.ErrResolution, err)
		}
		logger.Info("Detected latest release", "version", release.Version, "url", release.DownloadURL)
		req.Release = release
		req.Reference = release.Reference
	}

	if opts.dryRun {
		release, needed, err := u.Check(ctx, req)
		if err != nil {
			return err
		}
		return writer.Write(&output.DryRun{
			Release:        release,
			CurrentVersion: req.CurrentVersion,
			UpdateNeeded:   needed,
		})
	}

	logger.Info("Starting update", "install_dir", req.InstallDir, "reference", req.Reference, "current", req.CurrentVersion)
	res, runErr := u.Run(ctx, req)
	if err := writer.Write(res); err != nil {
		return err
	}
	if !s.Silent {
		prompter.WaitForEnter()
	}
	return runErr
}

func newUpdater(logger *log.Logger, s *config.Settings, prompter *interactive.Prompter) *update.Updater {
	native := platform.Native(nil)

	downloader := update.NewDownloader(logger,
		update.WithFetchers(
			update.NewCurlFetcher(nil, s.Curl),
			update.NewHTTPFetcher(s.HTTP.Timeout),
		),
		update.WithMaxRetries(s.MaxRetries),
		update.WithRetryBase(s.RetryBase),
	)

	return update.New(logger, update.Components{
		Resolver:   update.NewResolver(logger),
		Downloader: downloader,
		Extractor:  update.NewExtractor(logger, update.DefaultMaxEntryBytes),
		Processes:  process.NewManager(native, logger, process.WithSettleTime(s.SettleTime)),
		Services:   process.NewServiceController(logger),
		Snapshots:  backup.NewSnapshotter(logger, s.CurrentVersion),
		Replacer:   replace.New(native, logger),
		Prompter:   prompter,
	}, update.WithIndicators(s.PayloadIndicators))
}

func newRequest(s *config.Settings) update.Request {
	return update.Request{
		Reference:      s.UpdateURL,
		InstallDir:     s.InstallDir,
		BackupDir:      s.BackupDir,
		StagingDir:     s.StagingDir,
		CurrentVersion: s.CurrentVersion,
		Processes:      s.Processes,
		Services:       s.Services,
		Force:          s.Force,
		Silent:         s.Silent,
		AutoRestore:    s.AutoRestore,
		RequireBackup:  s.RequireBackup,
	}
}

func newChecker(s *config.Settings) *update.GitHubChecker {
	return update.NewGitHubChecker(s.Release.Owner, s.Release.Repo).
		WithToken(s.Release.Token).
		WithAsset(s.Release.Asset).
		WithBaseURL(s.Release.APIURL)
}

func detectRelease(ctx context.Context, s *config.Settings) (*update.ReleaseDescriptor, error) {
	return newChecker(s).LatestRelease(ctx)
}
