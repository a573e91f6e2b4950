package download

import "os"

// CacheProbe checks for a complete, size-verified local copy.
type CacheProbe struct{}

// Hit reports whether path exists with exactly expectedSize bytes.
// An unknown expected size (0) is never a hit.
func (CacheProbe) Hit(path string, expectedSize int64) bool {
	if expectedSize <= 0 {
		return false
	}
	size, ok := fileSize(path)
	return ok && size == expectedSize
}

// fileSize returns the size of a regular file.
func fileSize(path string) (int64, bool) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return 0, false
	}
	return info.Size(), true
}
