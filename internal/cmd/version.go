package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information and check for updates",
		Long: `Display the updater version and optionally check whether a newer
release has been published.

The installed version is current_version when configured, otherwise the
updater's own version.

Examples:
  rfid-updater version
  rfid-updater version --check`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !check {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "rfid-updater version %s (commit %s, built %s)\n", buildVersion, buildCommit, buildDate)
				return nil
			}
			return runVersionCheck(cmd)
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Check for a newer release")

	return cmd
}

func runVersionCheck(cmd *cobra.Command) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	current := s.CurrentVersion
	if current == "" {
		current = buildVersion
	}

	info, err := newChecker(s).CheckForUpdate(cmd.Context(), current)
	if err != nil {
		return fmt.Errorf("failed to check for updates: %w", err)
	}

	writer, err := newWriter(cmd)
	if err != nil {
		return err
	}
	return writer.Write(info)
}
