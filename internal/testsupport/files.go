package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes data to name inside dir, creating parents, and returns the
// full path.
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WritePattern fills the target path with size bytes of a repeating,
// position-dependent pattern so that chunks of the same length differ.
func WritePattern(t testing.TB, path string, size int64) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	var written int64
	for written < size {
		toWrite := int64(chunkSize)
		if remaining := size - written; remaining < toWrite {
			toWrite = remaining
		}
		for i := int64(0); i < toWrite; i++ {
			buf[i] = PatternByte(written + i)
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		written += toWrite
	}
}

// PatternByte returns the byte WritePattern stores at offset.
func PatternByte(offset int64) byte {
	return byte((offset*31 + offset/251) % 256)
}

// Pattern returns size bytes of the WritePattern sequence in memory.
func Pattern(size int) []byte {
	out := make([]byte, size)
	for i := range out {
		out[i] = PatternByte(int64(i))
	}
	return out
}
