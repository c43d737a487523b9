package gharchive

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	perr "ghscan/internal/platform/errors"
	kit "ghscan/internal/platform/testkit"
)

func mirror(t *testing.T, hours int) *FolderSource {
	t.Helper()
	dir := t.TempDir()
	for i := 0; i < hours; i++ {
		kit.WriteGzipLines(t, dir, Key(h0.Add(time.Duration(i)*time.Hour)), `{"i":1}`)
	}
	return NewFolderSource(dir)
}

func TestDownloaderMirrorsAndSkips(t *testing.T) {
	src := mirror(t, 3)
	dst := filepath.Join(t.TempDir(), "out")
	d, err := NewDownloader(dst, src)
	if err != nil {
		t.Fatalf("NewDownloader: %v", err)
	}
	kit.WriteGzipLines(t, dst, Key(h0), `{"pre":"existing"}`)

	var written []string
	rep, err := d.Download(context.Background(), h0, h0.Add(4*time.Hour), func(p string) { written = append(written, p) })
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if rep.Skipped != 1 || rep.Downloaded != 2 || len(rep.Errors) != 1 || len(written) != 2 {
		t.Fatalf("report = %+v written=%v", rep, written)
	}
	if !perr.IsCode(rep.Errors[0], perr.CodeNotFound) {
		t.Fatalf("missing hour error = %v", rep.Errors[0])
	}
	// the mirror is readable by FolderSource
	recs, err := NewFolderSource(dst).Fetch(context.Background(), h0.Add(time.Hour))
	if err != nil || len(recs) != 1 {
		t.Fatalf("mirror read = %v, %v", recs, err)
	}
	if _, err := os.Stat(filepath.Join(dst, Key(h0.Add(time.Hour))+".part")); !os.IsNotExist(err) {
		t.Fatalf(".part file left behind")
	}
}

func TestDownloaderDecompressAndMax(t *testing.T) {
	src := mirror(t, 4)
	dst := t.TempDir()
	d, err := NewDownloader(dst, src, WithDecompress(true), WithMax(2))
	if err != nil {
		t.Fatalf("NewDownloader: %v", err)
	}
	rep, err := d.Download(context.Background(), h0, h0.Add(4*time.Hour), nil)
	if err != nil || rep.Downloaded != 4 || len(rep.Removed) != 2 {
		t.Fatalf("report = %+v, %v", rep, err)
	}
	entries, _ := os.ReadDir(dst)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if len(names) != 2 || names[0] != PlainKey(h0.Add(2*time.Hour)) || names[1] != PlainKey(h0.Add(3*time.Hour)) {
		t.Fatalf("kept files = %v", names)
	}
	b, _ := os.ReadFile(filepath.Join(dst, names[0]))
	if string(b) != "{\"i\":1}\n" {
		t.Fatalf("decompressed content = %q", b)
	}
}

func TestDownloaderDecompressCorruptBody(t *testing.T) {
	dir := t.TempDir()
	kit.WriteFile(t, dir, Key(h0), kit.DamagedGzipLines(t, `{"i":1}`, `{"i":2}`))
	dst := t.TempDir()
	d, err := NewDownloader(dst, NewFolderSource(dir), WithDecompress(true))
	if err != nil {
		t.Fatalf("NewDownloader: %v", err)
	}
	rep, err := d.Download(context.Background(), h0, h0.Add(time.Hour), nil)
	if err != nil || rep.Downloaded != 0 || len(rep.Errors) != 1 {
		t.Fatalf("report = %+v, %v", rep, err)
	}
	kit.MustCode(t, rep.Errors[0], perr.CodeCorrupt)
	kit.MustContain(t, rep.Errors[0].Error(), "invalid gzip")
	if entries, _ := os.ReadDir(dst); len(entries) != 0 {
		t.Fatalf("partial output left behind: %v", entries)
	}
}

func TestDownloaderCompressesPlainMirror(t *testing.T) {
	dir := t.TempDir()
	kit.WritePlainLines(t, dir, PlainKey(h0), `{"p":1}`)
	dst := t.TempDir()
	d, _ := NewDownloader(dst, NewFolderSource(dir))
	if _, err := d.Download(context.Background(), h0, h0.Add(time.Hour), nil); err != nil {
		t.Fatalf("Download: %v", err)
	}
	recs, err := NewFolderSource(dst).Fetch(context.Background(), h0)
	if err != nil || len(recs) != 1 || recs[0]["p"] != float64(1) {
		t.Fatalf("recompressed read = %v, %v", recs, err)
	}
	if _, err := os.Stat(filepath.Join(dst, Key(h0))); err != nil {
		t.Fatalf("expected %s: %v", Key(h0), err)
	}
}

func TestNewDownloaderConflict(t *testing.T) {
	p := kit.WriteFile(t, t.TempDir(), "file", []byte("x"))
	if _, err := NewDownloader(p, mirror(t, 0)); !perr.IsCode(err, perr.CodeConfig) || perr.KindOf(err) != perr.KindFatal {
		t.Fatalf("NewDownloader over a file = %v, want fatal config error", err)
	}
}

func TestDownloaderCancelled(t *testing.T) {
	d, _ := NewDownloader(t.TempDir(), mirror(t, 2))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.Download(ctx, h0, h0.Add(2*time.Hour), nil); err == nil {
		t.Fatalf("expected ctx error")
	}
}
