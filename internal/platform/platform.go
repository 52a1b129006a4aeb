// Package platform isolates the operating-system specific operations the
// updater needs: process listing and forced termination, forced deletion,
// read-only attribute clearing and the install-directory lock.
package platform

import (
	"context"
	"os/exec"
)

// ProcessEntry is one row of the OS process table.
type ProcessEntry struct {
	PID  int
	Name string
}

// Platform is the capability set the updater relies on. Native returns the
// implementation for the running OS; tests substitute fakes.
type Platform interface {
	// ListProcesses enumerates processes through an OS command.
	ListProcesses(ctx context.Context) ([]ProcessEntry, error)
	// KillProcess forcefully terminates a process by id.
	KillProcess(ctx context.Context, pid int) error
	// ForceDelete removes a file through an OS-level forced-delete command.
	ForceDelete(ctx context.Context, path string) error
	// ClearReadOnly makes a file writable.
	ClearReadOnly(path string) error
}

// CommandRunner is an interface for running external commands.
// This allows for mocking in tests.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner uses os/exec to run commands.
type ExecRunner struct{}

// Run executes name with args and returns combined stdout and stderr.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// Native returns the Platform for the running OS backed by runner.
// A nil runner uses ExecRunner.
func Native(runner CommandRunner) Platform {
	if runner == nil {
		runner = ExecRunner{}
	}
	return newNative(runner)
}
