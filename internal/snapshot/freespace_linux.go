//go:build linux

package snapshot

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// CheckFreeSpace fails with ErrLowDiskSpace when the filesystem holding
// dir has fewer than need bytes available to unprivileged writers.
func CheckFreeSpace(dir string, need uint64) error {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return fmt.Errorf("statfs %s: %w", dir, err)
	}
	free := st.Bavail * uint64(st.Bsize)
	if free < need {
		return fmt.Errorf("%s: %d bytes free, need %d: %w", dir, free, need, ErrLowDiskSpace)
	}
	return nil
}
