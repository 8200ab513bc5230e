//go:build unix

package walker

import (
	"fmt"
	"os"
	"syscall"
)

// deviceID returns the filesystem device of path, used by the
// same-filesystem restriction to stop traversal at mount points.
func deviceID(path string) (uint64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, fmt.Errorf("no stat info for %s", path)
	}
	return uint64(st.Dev), nil
}
