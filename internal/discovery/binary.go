package discovery

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// sniffWindow is how many leading bytes are inspected to classify a file as
// binary. 8KB mirrors what Git checks before deciding a blob needs "binary"
// diff handling; it keeps the probe O(1) regardless of file size.
const sniffWindow = 8192

// DefaultMaxFileSize is the per-file size cap applied when a profile or
// global setting does not override it (see internal/profile.Options and
// internal/config.Settings, both of which default to the same 1MB).
const DefaultMaxFileSize int64 = 1 << 20

// IsBinary reports whether path's content looks binary: a NUL byte anywhere
// in the first sniffWindow bytes. An empty file is never binary. The file is
// opened and closed within this call, so concurrent callers never contend on
// a shared handle.
func IsBinary(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("opening %s for binary detection: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, sniffWindow)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("reading %s for binary detection: %w", path, err)
	}
	if n == 0 {
		return false, nil
	}
	return bytes.IndexByte(buf[:n], 0) != -1, nil
}

// IsLargeFile reports whether path's size exceeds maxBytes without reading
// its content. A maxBytes of 0 treats every non-empty file as large.
func IsLargeFile(path string, maxBytes int64) (large bool, size int64, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, 0, fmt.Errorf("stat %s for size check: %w", path, err)
	}
	size = info.Size()
	return size > maxBytes, size, nil
}
