// Package checkpoint persists the hour a scan has reached so an interrupted run
// can resume where it stopped
package checkpoint

import (
	"context"
	"strings"
	"sync"
	"time"

	perr "ghscan/internal/platform/errors"
	"ghscan/internal/platform/logger"
)

// Backend loads and saves the raw encoded checkpoint
// Load reports ok=false when nothing has been saved yet
type Backend interface {
	Load(ctx context.Context) (raw string, ok bool, err error)
	Save(ctx context.Context, raw string) error
	Close() error
}

// Encode renders an instant the way every backend stores it
func Encode(t time.Time) string { return t.UTC().Format(time.RFC3339) }

// Decode parses a stored checkpoint
func Decode(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// Store wraps a Backend with restore validation and monotonic writes
type Store struct {
	b   Backend
	log *logger.Logger

	mu   sync.Mutex
	last time.Time
	has  bool
}

// New returns a Store over b; a nil backend disables checkpointing
func New(b Backend) *Store {
	if b == nil {
		b = Nop{}
	}
	return &Store{b: b, log: logger.Named("checkpoint")}
}

// Restore returns the instant a run over [from, ...) should start at
func (s *Store) Restore(ctx context.Context, from time.Time) (time.Time, error) {
	raw, ok, err := s.b.Load(ctx)
	if err != nil {
		return time.Time{}, perr.Wrap(err, perr.CodeCheckpoint, "checkpoint: load")
	}
	if !ok {
		return from, nil
	}
	t, err := Decode(raw)
	if err != nil {
		return time.Time{}, perr.Wrapf(err, perr.CodeCheckpoint, "checkpoint: malformed value %q", raw)
	}
	if t.Before(from) {
		return time.Time{}, perr.Checkpointf("checkpoint: loaded checkpoint %s occurs before range start %s", Encode(t), Encode(from))
	}

	s.mu.Lock()
	s.last, s.has = t, true
	s.mu.Unlock()

	s.log.Info().Str("checkpoint", Encode(t)).Msg("checkpoint restored")
	return t, nil
}

// Persist records t; failures and backwards writes are logged and swallowed
func (s *Store) Persist(ctx context.Context, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.has && t.Before(s.last) {
		s.log.Warn().
			Str("checkpoint", Encode(t)).
			Str("last", Encode(s.last)).
			Msg("refusing to move checkpoint backwards")
		return
	}
	if err := s.b.Save(ctx, Encode(t)); err != nil {
		s.log.Warn().Err(err).Str("checkpoint", Encode(t)).Msg("unable to save checkpoint")
		return
	}
	s.last, s.has = t, true
}

// Last returns the most recent instant restored or persisted by this store
func (s *Store) Last() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.has
}

// Close releases the backend
func (s *Store) Close() error { return s.b.Close() }

// Nop is the backend used when checkpointing is off
type Nop struct{}

func (Nop) Load(context.Context) (string, bool, error) { return "", false, nil }
func (Nop) Save(context.Context, string) error         { return nil }
func (Nop) Close() error                               { return nil }
