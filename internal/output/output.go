// Package output handles formatting output in different formats.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/quanghiep03198/rfid-agent/internal/backup"
	"github.com/quanghiep03198/rfid-agent/internal/update"
)

// Format represents an output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var (
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	failureStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("242")).Italic(true)
)

// DryRun is the result of resolving a release without installing it.
type DryRun struct {
	Release        *update.ReleaseDescriptor `json:"release" yaml:"release"`
	CurrentVersion string                    `json:"current_version,omitempty" yaml:"current_version,omitempty"`
	UpdateNeeded   bool                      `json:"update_needed" yaml:"update_needed"`
}

// RestoreReport is the result of restoring a snapshot.
type RestoreReport struct {
	Backup     string `json:"backup" yaml:"backup"`
	InstallDir string `json:"install_dir" yaml:"install_dir"`
	Restored   bool   `json:"restored" yaml:"restored"`
}

// Writer handles output in the specified format.
type Writer struct {
	format Format
	w      io.Writer
}

// NewWriter creates a new output writer.
func NewWriter(w io.Writer, format Format) *Writer {
	return &Writer{format: format, w: w}
}

// Write outputs the given value in the configured format.
func (w *Writer) Write(v interface{}) error {
	switch w.format {
	case FormatJSON:
		enc := json.NewEncoder(w.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w.w)
		enc.SetIndent(2)
		return enc.Encode(v)
	default:
		_, err := io.WriteString(w.w, Text(v))
		return err
	}
}

// Text renders v for a terminal.
func Text(v interface{}) string {
	switch t := v.(type) {
	case *update.Result:
		return resultText(t)
	case *DryRun:
		return dryRunText(t)
	case []backup.BackupInfo:
		return backupsText(t)
	case *backup.PruneResult:
		return pruneText(t)
	case *RestoreReport:
		return restoreText(t)
	case *update.UpdateInfo:
		return updateInfoText(t)
	case fmt.Stringer:
		return t.String() + "\n"
	default:
		return fmt.Sprintf("%+v\n", v)
	}
}

func field(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "  %s %s\n", labelStyle.Render(fmt.Sprintf("%-12s", label+":")), valueStyle.Render(value))
}

func resultText(r *update.Result) string {
	var b strings.Builder

	switch {
	case r.UpToDate:
		b.WriteString(successStyle.Render("Already up to date") + "\n")
	case r.Success:
		b.WriteString(successStyle.Render("Update completed successfully") + "\n")
	default:
		b.WriteString(failureStyle.Render("Update failed") + "\n")
	}

	if r.Release != nil {
		field(&b, "Version", versionLine(r.CurrentVersion, r.Release.Version))
	}
	field(&b, "State", r.State.String())
	if r.Total > 0 {
		field(&b, "Replaced", fmt.Sprintf("%d/%d files", r.Replaced, r.Total))
		if s := strategySummary(r); s != "" {
			field(&b, "Strategies", s)
		}
	}
	if r.BackupDir != "" {
		field(&b, "Backup", fmt.Sprintf("%s (%d files)", r.BackupDir, r.BackedUp))
	}
	if r.Restored {
		field(&b, "Restored", "previous installation restored from backup")
	}
	if r.Error != "" {
		field(&b, "Error", r.Error)
	}
	field(&b, "Duration", r.Duration.Round(time.Millisecond).String())

	if !r.Success && !r.Restored && r.BackupDir != "" && r.Replaced > 0 {
		b.WriteString(hintStyle.Render(fmt.Sprintf("Run 'rfid-updater restore %s' to roll back.", r.BackupDir)) + "\n")
	}
	return b.String()
}

func versionLine(current, latest string) string {
	if current == "" {
		return latest
	}
	return current + " -> " + latest
}

func strategySummary(r *update.Result) string {
	var parts []string
	for s, n := range r.Strategies {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", s, n))
		}
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}

func dryRunText(d *DryRun) string {
	var b strings.Builder
	b.WriteString(labelStyle.Render("Dry run: nothing was downloaded") + "\n")
	if d.Release != nil {
		field(&b, "Reference", d.Release.Reference)
		field(&b, "Kind", d.Release.Kind.String())
		field(&b, "Version", d.Release.Version)
		field(&b, "Download", d.Release.DownloadURL)
		if d.Release.Degraded {
			b.WriteString(hintStyle.Render("Release metadata unavailable; the reference will be downloaded directly.") + "\n")
		}
	}
	if d.CurrentVersion != "" {
		field(&b, "Installed", d.CurrentVersion)
	}
	if d.UpdateNeeded {
		b.WriteString(successStyle.Render("Update available") + "\n")
	} else {
		b.WriteString(successStyle.Render("Already up to date") + "\n")
	}
	return b.String()
}

func backupsText(list []backup.BackupInfo) string {
	if len(list) == 0 {
		return "No backups found\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-24s %-20s %-10s %6s %10s\n", "ID", "CREATED", "VERSION", "FILES", "SIZE")
	for _, info := range list {
		version := info.Version
		if version == "" {
			version = "-"
		}
		fmt.Fprintf(&b, "%-24s %-20s %-10s %6d %10s\n",
			info.ID, info.CreatedAt.Local().Format("2006-01-02 15:04:05"), version, info.Files, humanSize(info.Size))
	}
	return b.String()
}

func pruneText(p *backup.PruneResult) string {
	if len(p.Deleted) == 0 {
		return fmt.Sprintf("Nothing to prune (%d kept)\n", p.Kept)
	}
	var b strings.Builder
	for _, info := range p.Deleted {
		fmt.Fprintf(&b, "Deleted %s\n", info.ID)
	}
	fmt.Fprintf(&b, "Pruned %d backups, kept %d, freed %s\n", len(p.Deleted), p.Kept, humanSize(p.Freed))
	return b.String()
}

func restoreText(r *RestoreReport) string {
	if r.Restored {
		return successStyle.Render(fmt.Sprintf("Restored %s into %s", r.Backup, r.InstallDir)) + "\n"
	}
	return failureStyle.Render(fmt.Sprintf("Nothing restored from %s", r.Backup)) + "\n"
}

func updateInfoText(u *update.UpdateInfo) string {
	if u.Available {
		return fmt.Sprintf("Update available: %s -> %s\n", u.CurrentVersion, u.LatestVersion)
	}
	return fmt.Sprintf("rfid-updater %s is the latest release\n", u.CurrentVersion)
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// ParseFormat parses a format string into a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format: %s", s)
	}
}
