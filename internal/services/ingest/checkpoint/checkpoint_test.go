package checkpoint

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	perr "ghscan/internal/platform/errors"
)

// memBackend is an in-memory Backend that can be told to fail
type memBackend struct {
	raw     string
	ok      bool
	loadErr error
	saveErr error
	saves   []string
}

func (m *memBackend) Load(context.Context) (string, bool, error) {
	return m.raw, m.ok, m.loadErr
}

func (m *memBackend) Save(_ context.Context, raw string) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.raw, m.ok = raw, true
	m.saves = append(m.saves, raw)
	return nil
}

func (m *memBackend) Close() error { return nil }

var from = time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)

func TestRestore(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		b        *memBackend
		want     time.Time
		wantCode perr.ErrorCode
		wantErr  bool
	}{
		{name: "nothing saved", b: &memBackend{}, want: from},
		{name: "equal to from", b: &memBackend{raw: "2015-01-01T00:00:00Z", ok: true}, want: from},
		{name: "after from", b: &memBackend{raw: "2015-01-01T05:00:00Z\n", ok: true}, want: from.Add(5 * time.Hour)},
		{name: "offset normalised", b: &memBackend{raw: "2015-01-01T07:00:00+02:00", ok: true}, want: from.Add(5 * time.Hour)},
		{name: "before from", b: &memBackend{raw: "2014-12-31T23:00:00Z", ok: true}, wantErr: true, wantCode: perr.CodeCheckpoint},
		{name: "malformed", b: &memBackend{raw: "yesterday", ok: true}, wantErr: true, wantCode: perr.CodeCheckpoint},
		{name: "empty content", b: &memBackend{raw: "", ok: true}, wantErr: true, wantCode: perr.CodeCheckpoint},
		{name: "load fails", b: &memBackend{loadErr: errors.New("conn refused")}, wantErr: true, wantCode: perr.CodeCheckpoint},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := New(c.b).Restore(context.Background(), from)
			if c.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				if perr.CodeOf(err) != c.wantCode {
					t.Fatalf("code = %v want %v", perr.CodeOf(err), c.wantCode)
				}
				if perr.KindOf(err) != perr.KindFatal {
					t.Fatalf("restore errors must be fatal, got %v", perr.KindOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(c.want) {
				t.Fatalf("got %v want %v", got, c.want)
			}
		})
	}
}

func TestRestore_NilBackendReturnsFrom(t *testing.T) {
	t.Parallel()

	s := New(nil)
	got, err := s.Restore(context.Background(), from)
	if err != nil || !got.Equal(from) {
		t.Fatalf("got %v, %v", got, err)
	}
	s.Persist(context.Background(), from.Add(time.Hour))
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestPersist_Monotonic(t *testing.T) {
	t.Parallel()

	b := &memBackend{}
	s := New(b)
	ctx := context.Background()

	s.Persist(ctx, from.Add(2*time.Hour))
	s.Persist(ctx, from.Add(1*time.Hour)) // refused
	s.Persist(ctx, from.Add(2*time.Hour)) // equal is fine
	s.Persist(ctx, from.Add(3*time.Hour))

	want := []string{"2015-01-01T02:00:00Z", "2015-01-01T02:00:00Z", "2015-01-01T03:00:00Z"}
	if len(b.saves) != len(want) {
		t.Fatalf("saves = %v want %v", b.saves, want)
	}
	for i := range want {
		if b.saves[i] != want[i] {
			t.Fatalf("save %d = %q want %q", i, b.saves[i], want[i])
		}
	}
	last, ok := s.Last()
	if !ok || !last.Equal(from.Add(3*time.Hour)) {
		t.Fatalf("Last() = %v, %v", last, ok)
	}
}

func TestPersist_RestoredValueIsFloor(t *testing.T) {
	t.Parallel()

	b := &memBackend{raw: "2015-01-01T04:00:00Z", ok: true}
	s := New(b)
	if _, err := s.Restore(context.Background(), from); err != nil {
		t.Fatalf("restore: %v", err)
	}
	s.Persist(context.Background(), from.Add(time.Hour))
	if len(b.saves) != 0 {
		t.Fatalf("backwards write went through: %v", b.saves)
	}
}

func TestPersist_SaveFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	b := &memBackend{saveErr: errors.New("disk full")}
	s := New(b)
	s.Persist(context.Background(), from)
	if _, ok := s.Last(); ok {
		t.Fatalf("failed save must not advance Last")
	}
}

func TestFileBackend_RoundTripAndAtomicWrite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "ghscan.checkpoint")
	s := New(NewFileBackend(path))
	ctx := context.Background()

	got, err := s.Restore(ctx, from)
	if err != nil || !got.Equal(from) {
		t.Fatalf("missing file: got %v, %v", got, err)
	}

	s.Persist(ctx, from.Add(6*time.Hour))

	matches, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if len(matches) != 0 {
		t.Fatalf("temp files left behind: %v", matches)
	}

	got, err = New(NewFileBackend(path)).Restore(ctx, from)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !got.Equal(from.Add(6 * time.Hour)) {
		t.Fatalf("got %v", got)
	}
}

func TestFileBackend_UnwritableDirWarnsOnly(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "missing", "dir", "cp")
	s := New(NewFileBackend(path))
	s.Persist(context.Background(), from)
	if _, ok := s.Last(); ok {
		t.Fatalf("save into missing dir should fail")
	}
}

func TestEncodeDecode(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("x", -3*3600)
	in := time.Date(2020, 6, 1, 9, 0, 0, 0, loc)
	raw := Encode(in)
	if raw != "2020-06-01T12:00:00Z" {
		t.Fatalf("Encode = %q", raw)
	}
	out, err := Decode(" " + raw + "\n")
	if err != nil || !out.Equal(in) || out.Location() != time.UTC {
		t.Fatalf("Decode = %v, %v", out, err)
	}
}
