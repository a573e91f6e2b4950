package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"sync"
	"time"
)

// zipWriter appends entries to a streaming zip. The first failure is
// latched; later calls are no-ops returning it.
type zipWriter struct {
	mu    sync.Mutex
	zw    *zip.Writer
	names map[string]bool
	count int
	err   error
	now   func() time.Time
}

func newZipWriter(w io.Writer, now func() time.Time) *zipWriter {
	return &zipWriter{
		zw:    zip.NewWriter(w),
		names: make(map[string]bool),
		now:   now,
	}
}

// Err returns the latched write error, if any.
func (z *zipWriter) Err() error {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.err
}

// Entries returns the number of entries written.
func (z *zipWriter) Entries() int {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.count
}

// AddFile copies the file at src into a stored (uncompressed) entry and
// returns the entry name used.
func (z *zipWriter) AddFile(name, suffix, src string) (string, error) {
	f, err := os.Open(src)
	if err != nil {
		// The source vanished; the container itself is still sound.
		return "", fmt.Errorf("open %s: %w", src, err)
	}
	defer func() { _ = f.Close() }()

	z.mu.Lock()
	defer z.mu.Unlock()
	entry := z.uniqueName(name, suffix)
	return entry, z.write(entry, zip.Store, f)
}

// AddText writes a deflated text entry and returns the entry name used.
func (z *zipWriter) AddText(name, suffix, text string) (string, error) {
	z.mu.Lock()
	defer z.mu.Unlock()
	entry := z.uniqueName(name, suffix)
	return entry, z.write(entry, zip.Deflate, strings.NewReader(text))
}

// Close finishes the central directory.
func (z *zipWriter) Close() error {
	z.mu.Lock()
	defer z.mu.Unlock()
	if z.err != nil {
		return z.err
	}
	if err := z.zw.Close(); err != nil {
		z.err = fmt.Errorf("close zip: %w", err)
	}
	return z.err
}

// uniqueName returns name unchanged if unused, else name with suffix
// inserted before the extension, then a counter. Callers hold mu.
func (z *zipWriter) uniqueName(name, suffix string) string {
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	candidate := name
	if z.names[candidate] && suffix != "" {
		candidate = base + "_" + suffix + ext
	}
	for i := 2; z.names[candidate]; i++ {
		candidate = fmt.Sprintf("%s_%d%s", base, i, ext)
	}
	z.names[candidate] = true
	return candidate
}

// write streams r into a new entry. Callers hold mu.
func (z *zipWriter) write(name string, method uint16, r io.Reader) error {
	if z.err != nil {
		return z.err
	}
	w, err := z.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   method,
		Modified: z.now(),
	})
	if err != nil {
		z.err = fmt.Errorf("create entry %s: %w", name, err)
		return z.err
	}
	if _, err := io.Copy(w, r); err != nil {
		z.err = fmt.Errorf("write entry %s: %w", name, err)
		return z.err
	}
	z.count++
	return nil
}
