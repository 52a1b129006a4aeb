package cmd

import (
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/quanghiep03198/rfid-agent/internal/config"
	"github.com/quanghiep03198/rfid-agent/internal/logging"
	"github.com/quanghiep03198/rfid-agent/internal/output"
)

var (
	// Global flags
	outputFormat string
	configPath   string
	installDir   string
	logFile      string
	verbose      bool
)

// Build information, set by Execute.
var (
	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

// flagKeys maps flags to setting keys. An empty key leaves the flag unbound.
var flagKeys = map[string]string{
	"config":  "",
	"output":  "",
	"verbose": "",
	"dry-run": "",
	"help":    "",
	"version": "",
	"yes":     "",
	"keep":    "",
	"check":   "",
}

// Execute runs the command line.
func Execute(version, commit, date string) error {
	buildVersion, buildCommit, buildDate = version, commit, date
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree. The root command runs an update.
func NewRootCmd() *cobra.Command {
	opts := &updateOptions{}

	rootCmd := &cobra.Command{
		Use:   "rfid-updater",
		Short: "Update an RFID agent installation in place",
		Long: `rfid-updater replaces an RFID agent installation with a newer release.

It resolves the release reference (a descriptor file, a descriptor URL or an
archive), downloads and extracts the archive, stops the running agent, backs
up the install directory and replaces every file. When too few files could be
replaced the previous installation can be restored from the backup.

Without --update-url the latest GitHub release is used.`,
		Version:       buildVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd, opts)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json, yaml")
	pf.StringVar(&configPath, "config", "", "Path to updater config file")
	pf.StringVarP(&installDir, "install-dir", "d", ".", "Application install directory")
	pf.StringVar(&logFile, "log-file", config.DefaultLogFile, "Log file (best effort)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	opts.addFlags(rootCmd.Flags())

	rootCmd.AddCommand(newRestoreCmd())
	rootCmd.AddCommand(newBackupCmd())
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json", "yaml"}, cobra.ShellCompDirectiveNoFileComp
	})

	return rootCmd
}

// loadSettings merges the config file, environment and the flags of cmd.
func loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	return config.Load(config.Options{
		ConfigFile:  configPath,
		SearchPaths: searchPaths(),
		Flags:       cmd.Flags(),
		FlagKeys:    flagKeys,
	})
}

func searchPaths() []string {
	paths := []string{"."}
	if dir := strings.TrimSpace(installDir); dir != "" && dir != "." {
		paths = append(paths, dir)
	}
	return paths
}

// newLogger builds the run logger. The returned closer flushes the log file.
func newLogger(cmd *cobra.Command, s *config.Settings) (*log.Logger, io.Closer) {
	level := s.LogLevel
	if verbose {
		level = "debug"
	}
	return logging.New(logging.Options{
		Console: cmd.ErrOrStderr(),
		File:    s.LogFile,
		Level:   level,
	})
}

func newWriter(cmd *cobra.Command) (*output.Writer, error) {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	return output.NewWriter(cmd.OutOrStdout(), format), nil
}
