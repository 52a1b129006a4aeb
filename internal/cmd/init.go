package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quanghiep03198/rfid-agent/internal/templates"
)

func newInitCmd() *cobra.Command {
	var templateName string
	var format string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create an updater config file from a template",
		Long: `Create an updater config file in the install directory.

Available templates:
  default  - Interactive updates from the latest GitHub release
  service  - Unattended updates for an agent running as a service

${VAR} and ${VAR:-default} references in the template are expanded from the
environment.

Examples:
  rfid-updater init
  rfid-updater init --template service --install-dir C:\rfid-agent
  rfid-updater init --format toml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.OutOrStdout(), installDir, templateName, format, force)
		},
	}

	cmd.Flags().StringVarP(&templateName, "template", "t", "default", "Template name")
	cmd.Flags().StringVar(&format, "format", "yaml", "Config format: yaml, toml")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	_ = cmd.RegisterFlagCompletionFunc("template", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var completions []string
		for _, name := range templates.List() {
			completions = append(completions, fmt.Sprintf("%s\t%s", name, templates.GetDescription(name)))
		}
		return completions, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"yaml", "toml"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// runInit writes the rendered template into dir.
func runInit(stdout io.Writer, dir, templateName, format string, force bool) error {
	format = strings.ToLower(format)
	content, err := templates.Render(templateName, format)
	if err != nil {
		return err
	}

	path := filepath.Join(dir, templates.FileName(format))
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	_, _ = fmt.Fprintf(stdout, "Created %s from the '%s' template\n", path, templateName)
	_, _ = fmt.Fprintln(stdout, "\nNext steps:")
	_, _ = fmt.Fprintln(stdout, "  1. Edit the config to set update_url and current_version")
	_, _ = fmt.Fprintln(stdout, "  2. Run 'rfid-updater --dry-run' to preview the update")
	_, _ = fmt.Fprintln(stdout, "  3. Run 'rfid-updater' to apply it")

	return nil
}
