//go:build windows

package walker

// deviceID is a no-op on Windows; every path reports the same device, so
// the same-filesystem restriction never prunes traversal there.
func deviceID(path string) (uint64, error) {
	return 0, nil
}
