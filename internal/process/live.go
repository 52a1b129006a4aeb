package process

import (
	"context"

	"github.com/shirou/gopsutil/v4/process"
)

// LiveSource reads the process table through gopsutil.
type LiveSource struct{}

// NewLiveSource returns a gopsutil-backed Source.
func NewLiveSource() *LiveSource {
	return &LiveSource{}
}

// Processes lists processes. Entries whose name cannot be read (exited or
// access denied) are skipped.
func (LiveSource) Processes(ctx context.Context) ([]Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Process, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil || name == "" {
			continue
		}
		exe, _ := p.ExeWithContext(ctx)
		out = append(out, Process{PID: p.Pid, Name: name, Exe: exe})
	}
	return out, nil
}

// Terminate asks the process to exit (SIGTERM, or TerminateProcess on Windows).
func (LiveSource) Terminate(ctx context.Context, pid int32) error {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return err
	}
	return p.TerminateWithContext(ctx)
}
