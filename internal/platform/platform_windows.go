//go:build windows

package platform

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"golang.org/x/sys/windows"
)

type windowsPlatform struct {
	runner CommandRunner
}

func newNative(runner CommandRunner) Platform {
	return &windowsPlatform{runner: runner}
}

func (p *windowsPlatform) ListProcesses(ctx context.Context) ([]ProcessEntry, error) {
	out, err := p.runner.Run(ctx, "tasklist", "/fo", "csv", "/nh")
	if err != nil {
		return nil, fmt.Errorf("tasklist failed: %w\nOutput: %s", err, string(out))
	}
	return parseTasklistCSV(out)
}

func (p *windowsPlatform) KillProcess(ctx context.Context, pid int) error {
	out, err := p.runner.Run(ctx, "taskkill", "/PID", strconv.Itoa(pid), "/F")
	if err != nil {
		return fmt.Errorf("taskkill /PID %d failed: %w\nOutput: %s", pid, err, string(out))
	}
	return nil
}

func (p *windowsPlatform) ForceDelete(ctx context.Context, path string) error {
	out, err := p.runner.Run(ctx, "cmd", "/c", "del", "/f", "/q", path)
	if err != nil {
		return fmt.Errorf("del /f %s failed: %w\nOutput: %s", path, err, string(out))
	}
	// del exits 0 even when the file is locked
	if _, err := os.Lstat(path); err == nil {
		return fmt.Errorf("%s still exists after forced delete", path)
	}
	return nil
}

func (p *windowsPlatform) ClearReadOnly(path string) error {
	name, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return err
	}
	attrs, err := windows.GetFileAttributes(name)
	if err != nil {
		return fmt.Errorf("failed to read attributes of %s: %w", path, err)
	}
	if attrs&windows.FILE_ATTRIBUTE_READONLY == 0 {
		return nil
	}
	if err := windows.SetFileAttributes(name, attrs&^windows.FILE_ATTRIBUTE_READONLY); err != nil {
		return fmt.Errorf("failed to clear read-only on %s: %w", path, err)
	}
	return nil
}
