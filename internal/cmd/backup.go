package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/quanghiep03198/rfid-agent/internal/backup"
	"github.com/quanghiep03198/rfid-agent/internal/interactive"
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage install directory backups",
		Long: `Backup manages the snapshots taken before each update.

Snapshots are stored as backup_<timestamp> directories inside the install
directory. Use 'rfid-updater restore' to copy one back.`,
	}

	cmd.AddCommand(newBackupListCmd())
	cmd.AddCommand(newBackupPruneCmd())

	return cmd
}

func newBackupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all backups",
		Long:  `List displays all backups with their creation time, version, file count and size.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackupList(cmd)
		},
	}
}

func newBackupPruneCmd() *cobra.Command {
	var keep int
	var yes bool

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove old backups",
		Long: fmt.Sprintf(`Prune deletes old backups, keeping only the most recent N.

By default, keeps the %d most recent backups.`, backup.DefaultKeepCount),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackupPrune(cmd, keep, yes)
		},
	}

	cmd.Flags().IntVar(&keep, "keep", backup.DefaultKeepCount, "Number of backups to keep")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompt")

	return cmd
}

func backupManager(cmd *cobra.Command) (*backup.Manager, error) {
	s, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	root, err := filepath.Abs(s.InstallDir)
	if err != nil {
		return nil, fmt.Errorf("invalid install directory: %w", err)
	}
	return backup.NewManager(root), nil
}

// runBackupList lists all backups.
func runBackupList(cmd *cobra.Command) error {
	manager, err := backupManager(cmd)
	if err != nil {
		return err
	}

	backups, err := manager.List()
	if err != nil {
		return err
	}

	writer, err := newWriter(cmd)
	if err != nil {
		return err
	}
	return writer.Write(backups)
}

// runBackupPrune removes all but the newest keep backups.
func runBackupPrune(cmd *cobra.Command, keep int, yes bool) error {
	manager, err := backupManager(cmd)
	if err != nil {
		return err
	}

	backups, err := manager.List()
	if err != nil {
		return err
	}

	if excess := len(backups) - keep; excess > 0 && !yes {
		prompter := interactive.NewPrompter()
		if prompter.Interactive() && !prompter.Confirm("Delete %d old backups?", excess) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
	}

	result, err := manager.Prune(keep)
	if err != nil {
		return err
	}

	writer, err := newWriter(cmd)
	if err != nil {
		return err
	}
	return writer.Write(result)
}
