//go:build !windows

package platform

import (
	"context"
	"fmt"
	"os"
	"strconv"
)

type unixPlatform struct {
	runner CommandRunner
}

func newNative(runner CommandRunner) Platform {
	return &unixPlatform{runner: runner}
}

func (p *unixPlatform) ListProcesses(ctx context.Context) ([]ProcessEntry, error) {
	out, err := p.runner.Run(ctx, "ps", "-A", "-o", "pid=", "-o", "comm=")
	if err != nil {
		return nil, fmt.Errorf("ps failed: %w\nOutput: %s", err, string(out))
	}
	return parsePS(out)
}

func (p *unixPlatform) KillProcess(ctx context.Context, pid int) error {
	out, err := p.runner.Run(ctx, "kill", "-9", strconv.Itoa(pid))
	if err != nil {
		return fmt.Errorf("kill -9 %d failed: %w\nOutput: %s", pid, err, string(out))
	}
	return nil
}

func (p *unixPlatform) ForceDelete(ctx context.Context, path string) error {
	out, err := p.runner.Run(ctx, "rm", "-f", path)
	if err != nil {
		return fmt.Errorf("rm -f %s failed: %w\nOutput: %s", path, err, string(out))
	}
	if _, err := os.Lstat(path); err == nil {
		return fmt.Errorf("%s still exists after forced delete", path)
	}
	return nil
}

func (p *unixPlatform) ClearReadOnly(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.Chmod(path, info.Mode().Perm()|0o200)
}
