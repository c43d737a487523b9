// Package testkit holds helpers shared by ghscan package tests
package testkit

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	perr "ghscan/internal/platform/errors"
)

// MustPanic asserts that fn panics
func MustPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic, got none")
		}
	}()
	fn()
}

// MustNotPanic asserts that fn does not panic
func MustNotPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("unexpected panic: %v", r)
		}
	}()
	fn()
}

// MustContain asserts that haystack contains needle. Long haystacks (log output, NDJSON)
// are written to a temp file instead of the failure message
func MustContain(t *testing.T, haystack, needle string) {
	t.Helper()
	if strings.Contains(haystack, needle) {
		return
	}
	if len(haystack) <= 512 {
		t.Fatalf("expected %q to contain %q", haystack, needle)
	}
	tmpfile := filepath.Join(t.TempDir(), "haystack.txt")
	_ = os.WriteFile(tmpfile, []byte(haystack), 0o600)
	t.Fatalf("expected output to contain %q\n\nfull output written to %s", needle, tmpfile)
}

// MustCode asserts that err carries the given perr code
func MustCode(t *testing.T, err error, code perr.ErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if got := perr.CodeOf(err); got != code {
		t.Fatalf("expected %s error, got %s: %v", code, got, err)
	}
}

var seamMu sync.Mutex

// Swap replaces a package-level seam (usually a func var) for the duration of the test
func Swap[T any](t *testing.T, target *T, replacement T) {
	t.Helper()
	orig := *target
	*target = replacement
	t.Cleanup(func() { *target = orig })
}

// Serial runs the rest of the test under a global lock; use it in tests that Swap seams
func Serial(t *testing.T) {
	t.Helper()
	seamMu.Lock()
	t.Cleanup(func() { seamMu.Unlock() })
}
