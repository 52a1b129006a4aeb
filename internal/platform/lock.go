package platform

import (
	"errors"
	"os"
)

// LockFileName is created in the install directory while an update runs.
const LockFileName = ".rfid-updater.lock"

// ErrLocked is returned by LockDir when another updater holds the directory.
var ErrLocked = errors.New("install directory is locked by another update")

// DirLock is an exclusive, non-blocking lock on a directory. The lock file is
// left in place on release; the OS drops the lock when the handle closes,
// including on crash.
type DirLock struct {
	path string
	file *os.File
}

// Path returns the lock file path.
func (l *DirLock) Path() string {
	return l.path
}
