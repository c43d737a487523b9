package gharchive

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	perr "ghscan/internal/platform/errors"
)

// Source fetches every record of one archive hour, in file order
type Source interface {
	Fetch(ctx context.Context, hour time.Time) ([]Record, error)
}

// Opener returns the raw compressed archive file of one hour
type Opener interface {
	Open(ctx context.Context, hour time.Time) (Body, error)
}

// Body is an opened archive file; Compressed tells whether it is gzip
type Body struct {
	Name       string
	Compressed bool
	ReadCloser io.ReadCloser
}

// FolderSource reads hours from a local directory laid out like the archive.
// Each hour is <dir>/YYYY-MM-DD-H.json.gz or, failing that, the plain .json file.
type FolderSource struct {
	Dir string
}

// NewFolderSource returns a FolderSource over dir
func NewFolderSource(dir string) *FolderSource { return &FolderSource{Dir: dir} }

// Open locates the file for hour; CodeNotFound when neither variant exists
func (s *FolderSource) Open(_ context.Context, hour time.Time) (Body, error) {
	for _, cand := range []struct {
		name       string
		compressed bool
	}{{Key(hour), true}, {PlainKey(hour), false}} {
		p := filepath.Join(s.Dir, cand.name)
		f, err := os.Open(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Body{}, err
		}
		return Body{Name: p, Compressed: cand.compressed, ReadCloser: f}, nil
	}
	return Body{}, perr.NotFoundf("gharchive: no %s or %s in %s", Key(hour), PlainKey(hour), s.Dir)
}

// Fetch implements Source
func (s *FolderSource) Fetch(ctx context.Context, hour time.Time) ([]Record, error) {
	b, err := s.Open(ctx, hour)
	if err != nil {
		return nil, err
	}
	defer func() { _ = b.ReadCloser.Close() }()
	return ReadAll(b.ReadCloser, b.Compressed, b.Name)
}
