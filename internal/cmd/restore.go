package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/quanghiep03198/rfid-agent/internal/backup"
	"github.com/quanghiep03198/rfid-agent/internal/interactive"
	"github.com/quanghiep03198/rfid-agent/internal/output"
	"github.com/quanghiep03198/rfid-agent/internal/platform"
	"github.com/quanghiep03198/rfid-agent/internal/process"
)

func newRestoreCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "restore [id|latest|path]",
		Short: "Restore the install directory from a backup",
		Long: `Restore copies every file of a backup back into the install directory.

The backup is named by its ID (as shown by 'rfid-updater backup list'),
'latest' for the most recent one, or a path to a backup directory.
Running agent processes and services are stopped first.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := "latest"
			if len(args) == 1 {
				ref = args[0]
			}
			return runRestore(cmd, ref, yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompt")
	cmd.Flags().StringSlice("processes", nil, "Executables to stop before restoring (default main.exe)")
	cmd.Flags().StringSlice("services", nil, "OS services to stop during the restore")

	return cmd
}

func runRestore(cmd *cobra.Command, ref string, yes bool) error {
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

	target, err := filepath.Abs(s.InstallDir)
	if err != nil {
		return fmt.Errorf("invalid install directory: %w", err)
	}

	dir, err := resolveBackup(target, ref)
	if err != nil {
		return err
	}

	prompter := interactive.NewPrompter()
	if !yes && prompter.Interactive() && !prompter.Confirm("Restore %s into %s?", dir, target) {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
		return nil
	}

	lock, err := platform.LockDir(target)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	ctx := cmd.Context()
	services := process.NewServiceController(logger)
	stopped := services.Stop(s.Services)
	native := platform.Native(nil)
	if !process.NewManager(native, logger, process.WithSettleTime(s.SettleTime)).Terminate(ctx, s.Processes) {
		logger.Warn("Some processes could not be stopped", "processes", s.Processes)
	}

	restored := backup.NewSnapshotter(logger, s.CurrentVersion).Restore(dir, target)
	services.Start(stopped)

	if err := writer.Write(&output.RestoreReport{Backup: dir, InstallDir: target, Restored: restored}); err != nil {
		return err
	}
	if !restored {
		return fmt.Errorf("no files restored from %s", dir)
	}
	return nil
}

// resolveBackup turns a backup ID, "latest" or a directory path into the
// backup directory to restore.
func resolveBackup(installDir, ref string) (string, error) {
	if info, err := os.Stat(ref); err == nil && info.IsDir() && filepath.Base(ref) != ref {
		return filepath.Abs(ref)
	}

	b, err := backup.NewManager(installDir).Get(ref)
	if err != nil {
		return "", err
	}
	return b.Path, nil
}
