// Package replace installs individual files over an existing installation,
// escalating through increasingly aggressive strategies when a target is
// locked or read-only.
package replace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/quanghiep03198/rfid-agent/internal/backup"
	"github.com/quanghiep03198/rfid-agent/internal/platform"
	"github.com/quanghiep03198/rfid-agent/internal/types"
)

// Outcome is the result of replacing one file.
type Outcome struct {
	Target   string
	Strategy types.Strategy
	// Err is the last strategy error when every strategy failed.
	Err error
}

// OK reports whether the file was installed.
func (o Outcome) OK() bool {
	return o.Strategy.Succeeded()
}

type job struct {
	source string
	target string
	backup string
}

type strategy struct {
	name  types.Strategy
	apply func(ctx context.Context, j job) error
}

// Replacer replaces files. Strategies run in order; each is tried only if
// the previous one returned an error.
type Replacer struct {
	platform   platform.Platform
	logger     *log.Logger
	now        func() time.Time
	copy       func(src, dst string) error
	strategies []strategy
}

// New creates a Replacer with the direct, swap and forced strategies.
func New(p platform.Platform, logger *log.Logger) *Replacer {
	r := &Replacer{
		platform: p,
		logger:   logger,
		now:      time.Now,
		copy:     backup.CopyFile,
	}
	r.strategies = []strategy{
		{name: types.StrategyDirect, apply: r.direct},
		{name: types.StrategySwap, apply: r.swap},
		{name: types.StrategyForced, apply: r.forced},
	}
	return r
}

// Replace installs source at target. When backupPath is non-empty the
// current target is copied there first. Replace never returns an error;
// failure is reported through the Outcome.
func (r *Replacer) Replace(ctx context.Context, source, target, backupPath string) Outcome {
	j := job{source: source, target: target, backup: backupPath}
	name := filepath.Base(target)

	var lastErr error
	for _, s := range r.strategies {
		err := s.apply(ctx, j)
		if err == nil {
			r.logger.Debug("Replaced file", "file", name, "strategy", s.name)
			return Outcome{Target: target, Strategy: s.name}
		}
		r.logger.Warn("Replacement strategy failed", "file", name, "strategy", s.name, "error", err)
		lastErr = err
	}

	r.logger.Warn("Could not replace file, skipping", "file", name)
	return Outcome{Target: target, Strategy: types.StrategySkipped, Err: lastErr}
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// direct backs up the target and overwrites it in place.
func (r *Replacer) direct(_ context.Context, j job) error {
	if j.backup != "" && exists(j.target) {
		if err := r.copy(j.target, j.backup); err != nil {
			return fmt.Errorf("backup: %w", err)
		}
	}
	return r.copy(j.source, j.target)
}

// swap renames the target aside, which works for running executables on
// Windows, then copies the new file into the freed name. Any failure before
// the new file is in place renames the original back.
func (r *Replacer) swap(ctx context.Context, j job) error {
	if !exists(j.target) {
		return r.copy(j.source, j.target)
	}

	aside := fmt.Sprintf("%s.old.%d", j.target, r.now().Unix())
	if err := os.Rename(j.target, aside); err != nil {
		return fmt.Errorf("rename aside: %w", err)
	}

	if j.backup != "" {
		if err := r.copy(aside, j.backup); err != nil {
			return restoreAside(aside, j.target, fmt.Errorf("backup: %w", err))
		}
	}

	if err := r.copy(j.source, j.target); err != nil {
		return restoreAside(aside, j.target, err)
	}

	if err := os.Remove(aside); err != nil {
		// A running executable can be renamed but not deleted until it exits.
		r.logger.Debug("Left renamed original in place", "path", aside, "error", err)
	}
	return nil
}

// restoreAside moves a renamed original back over target after err.
func restoreAside(aside, target string, err error) error {
	if _, serr := os.Lstat(target); serr == nil {
		_ = os.Remove(target)
	}
	if rerr := os.Rename(aside, target); rerr != nil {
		return errors.Join(err, fmt.Errorf("restore original: %w", rerr))
	}
	return err
}

// forced clears the read-only attribute, force-deletes the target and copies
// the new file in. Only the final copy can fail the strategy.
func (r *Replacer) forced(ctx context.Context, j job) error {
	if !exists(j.target) {
		return r.copy(j.source, j.target)
	}

	if j.backup != "" {
		if err := r.copy(j.target, j.backup); err != nil {
			r.logger.Debug("Backup before forced delete failed", "file", filepath.Base(j.target), "error", err)
		}
	}

	if r.platform != nil {
		if err := r.platform.ClearReadOnly(j.target); err != nil {
			r.logger.Debug("Could not clear read-only attribute", "file", j.target, "error", err)
		}
		if err := r.platform.ForceDelete(ctx, j.target); err != nil {
			r.logger.Debug("Forced delete failed", "file", j.target, "error", err)
		}
	}

	return r.copy(j.source, j.target)
}

// asideSuffix matches the suffix the swap strategy gives a renamed original.
var asideSuffix = regexp.MustCompile(`^\.old\.\d{10,}$`)

// CleanupStale removes originals the swap strategy renamed aside next to the
// given targets, whether from this run or an earlier one whose process has
// since exited. Only files named <target>.old.<unix-seconds> are touched. It
// returns how many were removed.
func CleanupStale(targets []string, logger *log.Logger) int {
	byDir := make(map[string]map[string]bool)
	for _, target := range targets {
		dir := filepath.Dir(target)
		if byDir[dir] == nil {
			byDir[dir] = make(map[string]bool)
		}
		byDir[dir][filepath.Base(target)] = true
	}

	removed := 0
	for dir, names := range byDir {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.Type().IsRegular() {
				continue
			}
			name := e.Name()
			i := strings.LastIndex(name, ".old.")
			if i <= 0 || !names[name[:i]] || !asideSuffix.MatchString(name[i:]) {
				continue
			}
			path := filepath.Join(dir, name)
			if err := os.Remove(path); err != nil {
				logger.Debug("Stale file still in use", "path", path, "error", err)
				continue
			}
			removed++
		}
	}
	return removed
}
