// Package process finds and stops running instances of the application
// before its files are replaced.
package process

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/quanghiep03198/rfid-agent/internal/platform"
)

// DefaultSettleTime is how long Terminate waits after stopping processes so
// the OS can release file handles.
const DefaultSettleTime = 2 * time.Second

// Process is a running process matched by name.
type Process struct {
	PID  int32
	Name string
	Exe  string
}

// Source enumerates and gracefully stops processes.
type Source interface {
	Processes(ctx context.Context) ([]Process, error)
	Terminate(ctx context.Context, pid int32) error
}

// Manager discovers processes through a live Source, falling back to the
// platform's process-listing command, and terminates them.
type Manager struct {
	source   Source
	platform platform.Platform
	logger   *log.Logger
	settle   time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option configures a Manager.
type Option func(*Manager)

// WithSource replaces the live process source. A nil source forces the
// platform fallback.
func WithSource(s Source) Option {
	return func(m *Manager) { m.source = s }
}

// WithSettleTime sets the post-termination wait.
func WithSettleTime(d time.Duration) Option {
	return func(m *Manager) { m.settle = d }
}

// WithSleep replaces the context-aware sleep used for the settle wait.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(m *Manager) { m.sleep = fn }
}

// NewManager creates a Manager using gopsutil as the live source.
func NewManager(p platform.Platform, logger *log.Logger, opts ...Option) *Manager {
	m := &Manager{
		source:   NewLiveSource(),
		platform: p,
		logger:   logger,
		settle:   DefaultSettleTime,
		sleep:    platform.Sleep,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Find returns running processes whose name matches one of names,
// case-insensitively. Enumeration failures yield an empty result.
func (m *Manager) Find(ctx context.Context, names []string) []Process {
	if len(names) == 0 {
		return nil
	}

	procs, err := m.enumerate(ctx)
	if err != nil {
		m.logger.Error("Could not enumerate processes", "error", err)
		return nil
	}

	var found []Process
	for _, p := range procs {
		if matches(p, names) {
			m.logger.Info("Found process", "name", p.Name, "pid", p.PID)
			found = append(found, p)
		}
	}
	return found
}

func (m *Manager) enumerate(ctx context.Context) ([]Process, error) {
	if m.source != nil {
		procs, err := m.source.Processes(ctx)
		if err == nil {
			return procs, nil
		}
		m.logger.Warn("Live process enumeration unavailable, using OS command", "error", err)
	}

	if m.platform == nil {
		return nil, nil
	}

	entries, err := m.platform.ListProcesses(ctx)
	if err != nil {
		return nil, err
	}

	procs := make([]Process, 0, len(entries))
	for _, e := range entries {
		procs = append(procs, Process{PID: int32(e.PID), Name: e.Name})
	}
	return procs, nil
}

func matches(p Process, names []string) bool {
	for _, n := range names {
		if strings.EqualFold(p.Name, n) {
			return true
		}
		if p.Exe != "" && strings.EqualFold(filepath.Base(p.Exe), n) {
			return true
		}
	}
	return false
}

// Terminate stops every process matching names. Each process gets a graceful
// stop first and a forced kill if that fails. It returns true when nothing
// matched or at least one process was stopped; it never returns an error.
func (m *Manager) Terminate(ctx context.Context, names []string) bool {
	found := m.Find(ctx, names)
	if len(found) == 0 {
		m.logger.Info("No matching processes found")
		return true
	}

	terminated := 0
	for _, p := range found {
		if m.source != nil {
			err := m.source.Terminate(ctx, p.PID)
			if err == nil {
				m.logger.Info("Terminated process", "name", p.Name, "pid", p.PID)
				terminated++
				continue
			}
			m.logger.Warn("Could not terminate gracefully", "name", p.Name, "pid", p.PID, "error", err)
		}

		if m.platform == nil {
			continue
		}
		if err := m.platform.KillProcess(ctx, int(p.PID)); err != nil {
			m.logger.Warn("Forced kill failed", "name", p.Name, "pid", p.PID, "error", err)
			continue
		}
		m.logger.Info("Terminated process with forced kill", "name", p.Name, "pid", p.PID)
		terminated++
	}

	if terminated == 0 {
		return false
	}

	if m.settle > 0 {
		_ = m.sleep(ctx, m.settle)
	}
	return true
}
