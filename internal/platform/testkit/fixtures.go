package testkit

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
)

// GzipLines returns lines joined by newlines and gzip compressed
func GzipLines(t *testing.T, lines ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(joinLines(lines))); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

// DamagedGzipLines gzips lines and then overwrites the deflate body with 0xff, keeping
// the 10 byte header and the 8 byte trailer intact. Decoding fails inside the body.
func DamagedGzipLines(t *testing.T, lines ...string) []byte {
	t.Helper()
	b := GzipLines(t, lines...)
	if len(b) < 19 {
		t.Fatalf("gzip fixture too short to damage: %d bytes", len(b))
	}
	for i := 10; i < len(b)-8; i++ {
		b[i] = 0xff
	}
	return b
}

// WriteGzipLines writes a gzip NDJSON fixture to dir/name and returns its path
func WriteGzipLines(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	return WriteFile(t, dir, name, GzipLines(t, lines...))
}

// WritePlainLines writes an uncompressed NDJSON fixture to dir/name and returns its path
func WritePlainLines(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	return WriteFile(t, dir, name, []byte(joinLines(lines)))
}

// WriteFile writes b to dir/name, creating dir if needed
func WriteFile(t *testing.T, dir, name string, b []byte) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, b, 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

// Eventually polls cond until it returns true or timeout elapses
func Eventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %s", timeout)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
