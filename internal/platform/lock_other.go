//go:build !unix && !windows

package platform

import (
	"fmt"
	"os"
	"path/filepath"
)

// LockDir creates the lock file exclusively. Platforms without advisory locks
// leave a stale file behind after a crash; delete it by hand.
func LockDir(dir string) (*DirLock, error) {
	path := filepath.Join(dir, LockFileName)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
		}
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}

	return &DirLock{path: path, file: f}, nil
}

// Release closes and removes the lock file. Safe to call more than once.
func (l *DirLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	_ = os.Remove(l.path)
	return err
}
