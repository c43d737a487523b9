package gharchive

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"

	perr "ghscan/internal/platform/errors"
	"ghscan/internal/platform/logger"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
)

const (
	maxScanTokenSize = 32 * 1024 * 1024
	sampleRawMax     = 2048 // max bytes of raw JSON to log for the sample
)

// Reader streams records from one archive file
type Reader struct {
	name    string
	gz      *gzip.Reader
	sc      *bufio.Scanner
	err     error
	line    int
	records int
	bytes   int64
	sampled bool // logs exactly one sample raw line per file
}

// NewReader wraps r; compressed selects gzip decoding. name labels errors and logs.
// A compressed stream without a valid gzip header fails with CodeCorrupt.
func NewReader(r io.Reader, compressed bool, name string) (*Reader, error) {
	rd := &Reader{name: name}
	src := r
	if compressed {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, corruptGzip(name, err)
		}
		rd.gz = gz
		src = gz
	}
	sc := bufio.NewScanner(src)
	sc.Buffer(make([]byte, 512*1024), maxScanTokenSize)
	rd.sc = sc
	return rd, nil
}

// badGzip reports whether err comes from a damaged gzip header, deflate body or trailer
func badGzip(err error) bool {
	var ce flate.CorruptInputError
	return errors.Is(err, gzip.ErrChecksum) || errors.Is(err, gzip.ErrHeader) || errors.As(err, &ce)
}

func corruptGzip(name string, err error) error {
	return perr.Wrapf(err, perr.CodeCorrupt, "gharchive: invalid gzip in %s", name)
}

// Next returns the next record; io.EOF when done. Blank lines are skipped.
func (rd *Reader) Next() (Record, error) {
	if rd.err != nil {
		return nil, rd.err
	}
	for {
		if !rd.sc.Scan() {
			rd.err = rd.scanErr()
			return nil, rd.err
		}
		rd.line++
		line := rd.sc.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			rd.err = perr.Wrapf(err, perr.CodeCorrupt, "gharchive: invalid json in %s at line %d", rd.name, rd.line)
			return nil, rd.err
		}
		rd.records++
		rd.bytes += int64(len(line) + 1) // include newline

		if !rd.sampled {
			rd.sampled = true
			logger.Named("gharchive").Debug().
				Str("file", rd.name).
				Int("line_bytes", len(line)).
				Str("sample_raw", truncateUTF8(line, sampleRawMax)).
				Msg("gharchive: sample raw line")
		}
		return rec, nil
	}
}

func (rd *Reader) scanErr() error {
	err := rd.sc.Err()
	switch {
	case err == nil:
		return io.EOF
	case errors.Is(err, bufio.ErrTooLong):
		return perr.Wrapf(err, perr.CodeCorrupt, "gharchive: line too long in %s at line %d", rd.name, rd.line+1)
	case rd.gz != nil && badGzip(err):
		return corruptGzip(rd.name, err)
	case rd.gz != nil && errors.Is(err, io.ErrUnexpectedEOF):
		// truncated stream; keeps ErrUnexpectedEOF in the chain
		return corruptGzip(rd.name, err)
	default:
		return err
	}
}

// Close releases the gzip decoder; the underlying reader is owned by the caller
func (rd *Reader) Close() error {
	if rd.gz != nil {
		return rd.gz.Close()
	}
	return nil
}

// Stats returns the number of records parsed and uncompressed bytes read so far
func (rd *Reader) Stats() (records int, bytes int64) {
	return rd.records, rd.bytes
}

// ReadAll decodes every record of r in file order
func ReadAll(r io.Reader, compressed bool, name string) ([]Record, error) {
	rd, err := NewReader(r, compressed, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rd.Close() }()

	var out []Record
	for {
		rec, err := rd.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
}

// truncateUTF8 returns a string made from b, truncated to at most max bytes,
// backing up to a UTF-8 boundary if needed, and appending an ellipsis if truncated
func truncateUTF8(b []byte, max int) string {
	if max <= 0 || len(b) <= max {
		return string(b)
	}
	i := max
	for i > 0 && (b[i]&0xC0) == 0x80 {
		i--
	}
	if i <= 0 {
		i = max
	}
	return string(b[:i]) + "..."
}
