package checkpoint

import (
	"context"
	"path/filepath"
	"testing"

	perr "ghscan/internal/platform/errors"
)

func TestOpen_SelectsBackend(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx := context.Background()

	cases := []struct {
		name     string
		location string
		check    func(t *testing.T, b Backend)
	}{
		{"empty", "", func(t *testing.T, b Backend) {
			if _, ok := b.(Nop); !ok {
				t.Fatalf("want Nop, got %T", b)
			}
		}},
		{"plain path", filepath.Join(dir, "cp"), func(t *testing.T, b Backend) {
			fb, ok := b.(*FileBackend)
			if !ok || fb.Path != filepath.Join(dir, "cp") {
				t.Fatalf("got %#v", b)
			}
		}},
		{"file prefix", "file:relative/cp", func(t *testing.T, b Backend) {
			fb, ok := b.(*FileBackend)
			if !ok || fb.Path != "relative/cp" {
				t.Fatalf("got %#v", b)
			}
		}},
		{"file url", "file:///var/lib/ghscan/cp", func(t *testing.T, b Backend) {
			fb, ok := b.(*FileBackend)
			if !ok || fb.Path != "/var/lib/ghscan/cp" {
				t.Fatalf("got %#v", b)
			}
		}},
		{"redis with name", "redis://localhost:6379/2?name=hourly", func(t *testing.T, b Backend) {
			rb, ok := b.(*RedisBackend)
			if !ok {
				t.Fatalf("want redis, got %T", b)
			}
			if rb.Key() != "ghscan:checkpoint:hourly" {
				t.Fatalf("key = %q", rb.Key())
			}
			_ = rb.Close()
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b, err := Open(ctx, c.location)
			if err != nil {
				t.Fatalf("Open(%q): %v", c.location, err)
			}
			c.check(t, b)
		})
	}
}

func TestOpen_Errors(t *testing.T) {
	t.Parallel()

	for _, loc := range []string{"ftp://host/cp", "redis://localhost:6379/notadb", "postgres://u:p@h:notaport/db"} {
		_, err := Open(context.Background(), loc)
		if err == nil {
			t.Fatalf("Open(%q) should fail", loc)
		}
		if perr.KindOf(err) != perr.KindFatal {
			t.Fatalf("Open(%q) error kind = %v (%v)", loc, perr.KindOf(err), err)
		}
	}
}
