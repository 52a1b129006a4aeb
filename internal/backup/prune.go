package backup

import (
	"fmt"
)

// DefaultKeepCount is the number of snapshots `backup prune` retains by default.
const DefaultKeepCount = 5

// PruneResult reports what Prune removed.
type PruneResult struct {
	Deleted []BackupInfo `json:"deleted" yaml:"deleted"`
	Kept    int          `json:"kept" yaml:"kept"`
	// Freed is the total size in bytes of the deleted snapshots.
	Freed int64 `json:"freed" yaml:"freed"`
}

// Prune deletes all but the keep most recent snapshots.
func (m *Manager) Prune(keep int) (*PruneResult, error) {
	if keep < 0 {
		return nil, fmt.Errorf("keep count must be non-negative")
	}

	backups, err := m.List()
	if err != nil {
		return nil, err
	}

	result := &PruneResult{Kept: len(backups)}
	if len(backups) <= keep {
		return result, nil
	}

	result.Kept = keep
	for _, b := range backups[keep:] {
		if err := m.Delete(b.ID); err != nil {
			return result, fmt.Errorf("failed to delete backup %s: %w", b.ID, err)
		}
		result.Deleted = append(result.Deleted, b)
		result.Freed += b.Size
	}

	return result, nil
}
