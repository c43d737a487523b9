package gharchive

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	perr "ghscan/internal/platform/errors"
	"ghscan/internal/platform/logger"

	"github.com/klauspost/compress/gzip"
)

// Downloader mirrors archive hours into a local directory that FolderSource can read
type Downloader struct {
	dir        string
	src        Opener
	decompress bool
	max        int

	kept []string // files written by this downloader, oldest first
}

// DownloadOption configures a Downloader
type DownloadOption func(*Downloader)

// WithDecompress stores plain .json files instead of the .json.gz originals
func WithDecompress(on bool) DownloadOption {
	return func(d *Downloader) { d.decompress = on }
}

// WithMax keeps at most n downloaded files, removing the oldest first; 0 keeps all
func WithMax(n int) DownloadOption {
	return func(d *Downloader) { d.max = n }
}

// DownloadReport summarises one Download call
type DownloadReport struct {
	Downloaded int
	Skipped    int
	Removed    []string
	Errors     []error
}

// NewDownloader creates dir if needed. A non-directory already at dir is a config error.
func NewDownloader(dir string, src Opener, opts ...DownloadOption) (*Downloader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, perr.Wrapf(err, perr.CodeConfig, "gharchive: cannot create %s", dir)
	}
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, perr.Wrapf(err, perr.CodeConfig, "gharchive: cannot stat %s", dir)
	}
	if !fi.IsDir() {
		return nil, perr.Configf("gharchive: %s exists and is not a directory", dir)
	}
	d := &Downloader{dir: dir, src: src}
	for _, o := range opts {
		o(d)
	}
	return d, nil
}

// target is the local path for hour
func (d *Downloader) target(hour time.Time) string {
	if d.decompress {
		return filepath.Join(d.dir, PlainKey(hour))
	}
	return filepath.Join(d.dir, Key(hour))
}

// Download fetches every hour of [from, to) that is not already present.
// Per hour failures are collected in the report; only ctx cancellation stops the walk.
// onFile, when set, is called with each newly written path.
func (d *Downloader) Download(ctx context.Context, from, to time.Time, onFile func(path string)) (DownloadReport, error) {
	l := logger.NamedC(ctx, "gharchive")
	var rep DownloadReport

	for hour := range Hours(from, to) {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		path := d.target(hour)
		if _, err := os.Stat(path); err == nil {
			l.Info().Time("hour", hour).Str("path", path).Msg("gharchive: skipping existing file")
			rep.Skipped++
			continue
		}

		l.Info().Time("hour", hour).Msg("gharchive: downloading")
		if err := d.fetchTo(ctx, hour, path); err != nil {
			if ctx.Err() != nil {
				return rep, ctx.Err()
			}
			l.Error().Time("hour", hour).Err(err).Msg("gharchive: download failed")
			rep.Errors = append(rep.Errors, err)
			continue
		}
		rep.Downloaded++
		d.kept = append(d.kept, path)

		if d.max > 0 && len(d.kept) > d.max {
			old := d.kept[0]
			d.kept = d.kept[1:]
			l.Info().Str("path", old).Msg("gharchive: removing local file")
			if err := os.Remove(old); err != nil && !errors.Is(err, os.ErrNotExist) {
				l.Warn().Err(err).Str("path", old).Msg("gharchive: remove failed")
			} else {
				rep.Removed = append(rep.Removed, old)
			}
		}
		if onFile != nil {
			onFile(path)
		}
	}
	return rep, nil
}

// fetchTo writes hour to path atomically through a .part file
func (d *Downloader) fetchTo(ctx context.Context, hour time.Time, path string) error {
	b, err := d.src.Open(ctx, hour)
	if err != nil {
		return err
	}
	defer func() { _ = b.ReadCloser.Close() }()

	var src io.Reader = b.ReadCloser
	switch {
	case d.decompress && b.Compressed:
		zr, err := gzip.NewReader(b.ReadCloser)
		if err != nil {
			return corruptGzip(b.Name, err)
		}
		defer func() { _ = zr.Close() }()
		src = zr
	case !d.decompress && !b.Compressed:
		zw := newGzipPipe(b.ReadCloser)
		defer func() { _ = zw.Close() }()
		src = zw
	}

	tmp := path + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	_, werr := io.Copy(out, src)
	cerr := out.Close()
	if werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(tmp)
		if badGzip(werr) {
			return corruptGzip(b.Name, werr)
		}
		return werr
	}
	return os.Rename(tmp, path)
}

// newGzipPipe compresses r on the fly so plain mirror files are stored as .json.gz
func newGzipPipe(r io.Reader) io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		zw := gzip.NewWriter(pw)
		_, err := io.Copy(zw, r)
		if cerr := zw.Close(); err == nil {
			err = cerr
		}
		_ = pw.CloseWithError(err)
	}()
	return pr
}
