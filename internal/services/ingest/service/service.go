// Package service drives a scan over a window of archive hours
package service

import (
	"context"
	"errors"
	"time"

	"ghscan/internal/adapters/ingest/gharchive"
	"ghscan/internal/core/event"
	"ghscan/internal/core/filter"
	perr "ghscan/internal/platform/errors"
	"ghscan/internal/platform/logger"
	"ghscan/internal/services/ingest/checkpoint"
	"ghscan/internal/services/ingest/domain"
	"ghscan/internal/services/ingest/retry"
)

// ErrStop ends a run cleanly when returned by a Handler
var ErrStop = domain.ErrStop

// Handler receives matching records; see domain.Handler
type Handler = domain.Handler

// Config holds configuration options for the ingest service
type Config struct {
	// Proactive downloads upcoming hours on a pool while the current one is handled
	Proactive bool
	PoolSize  int // prefetch workers; <=0 -> 10
	CacheSize int // prefetched hours held at once; <=0 -> 10

	// Retry applies to network sources; RetryDirect enables it on the sequential path
	Retry       retry.Policy
	RetryDirect bool

	// Decode attaches a typed event to every delivery
	Decode bool
}

// Service implements domain.ScannerPort
type Service struct {
	src    gharchive.Source
	cp     domain.Checkpointer
	filter filter.Spec
	cfg    Config
}

// New constructs the ingest service; a nil checkpointer disables checkpoints
func New(src gharchive.Source, cp domain.Checkpointer, f filter.Spec, cfg Config) *Service {
	if src == nil {
		panic("ingest.Service requires a non nil Source")
	}
	if cp == nil {
		cp = checkpoint.New(nil)
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 10
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 10
	}
	cfg.Retry.OnRetry = chainRetry(cfg.Retry.OnRetry)
	return &Service{src: src, cp: cp, filter: f, cfg: cfg}
}

func chainRetry(next func(time.Time, retry.Mode, error, time.Duration)) func(time.Time, retry.Mode, error, time.Duration) {
	return func(hour time.Time, mode retry.Mode, err error, d time.Duration) {
		fetchRetries.WithLabelValues(mode.String()).Inc()
		if next != nil {
			next(hour, mode, err, d)
		}
	}
}

// Run scans [from, to) and hands every matching record to h in order.
// The slice collects per hour failures that did not stop the scan; the error
// is set when the scan itself was aborted (checkpoint, handler or context).
func (s *Service) Run(ctx context.Context, from, to time.Time, h Handler) ([]error, error) {
	ctx = logger.WithRun(ctx, logger.RunID(ctx))
	l := logger.NamedC(ctx, "ingest")
	from, to = from.UTC(), to.UTC()

	start, err := s.cp.Restore(ctx, from)
	if err != nil {
		l.Error().Err(err).Msg("ingest: unable to restore checkpoint")
		return nil, err
	}
	l.Info().
		Time("from", start).
		Time("to", to).
		Int("hours", gharchive.CountHours(start, to)).
		Bool("proactive", s.cfg.Proactive).
		Str("filter", s.filter.String()).
		Msg("ingest: scan started")

	fetch, mode := s.direct, retry.Direct
	if s.cfg.Proactive {
		pf := NewPrefetcher(s.src, s.cfg.Retry, s.cfg.PoolSize, s.cfg.CacheSize)
		pf.Start(ctx, start, to)
		defer pf.Close()
		fetch, mode = pf.Await, retry.Prefetch
	}

	var errs []error
	for hour := range gharchive.Hours(start, to) {
		if err := ctx.Err(); err != nil {
			return errs, err
		}
		s.cp.Persist(ctx, hour)

		t0 := time.Now()
		recs, err := fetch(ctx, hour)
		if mode == retry.Direct {
			fetchDuration.WithLabelValues(mode.String()).Observe(time.Since(t0).Seconds())
		}
		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return errs, cerr
			}
			if perr.KindOf(err) == perr.KindRecoverable {
				l.Warn().Str("hour", gharchive.Key(hour)).Str("code", perr.CodeOf(err).String()).Err(err).
					Msg("ingest: skipping hour")
				hoursScanned.WithLabelValues("skipped").Inc()
				continue
			}
			l.Error().Str("hour", gharchive.Key(hour)).Str("code", perr.CodeOf(err).String()).Err(err).
				Msg("ingest: hour failed")
			hoursScanned.WithLabelValues("failed").Inc()
			errs = append(errs, err)
			continue
		}

		n, err := s.dispatch(ctx, hour, recs, h)
		if errors.Is(err, ErrStop) {
			l.Info().Str("hour", gharchive.Key(hour)).Msg("ingest: scan stopped by handler")
			return errs, nil
		}
		if err != nil {
			return errs, err
		}
		hoursScanned.WithLabelValues("ok").Inc()
		l.Info().
			Str("hour", gharchive.Key(hour)).
			Int("records", len(recs)).
			Int("delivered", n).
			Dur("elapsed", time.Since(t0)).
			Msg("ingest: scanned hour")
	}

	s.cp.Persist(ctx, to)
	l.Info().Int("failed_hours", len(errs)).Msg("ingest: scan finished")
	return errs, nil
}

// direct fetches on the caller's goroutine, retrying when the source is remote
func (s *Service) direct(ctx context.Context, hour time.Time) ([]gharchive.Record, error) {
	if !s.cfg.RetryDirect {
		return s.src.Fetch(ctx, hour)
	}
	return retry.Do(ctx, s.cfg.Retry, hour, retry.Direct, func(ctx context.Context) ([]gharchive.Record, error) {
		return s.src.Fetch(ctx, hour)
	})
}

func (s *Service) dispatch(ctx context.Context, hour time.Time, recs []gharchive.Record, h Handler) (int, error) {
	n := 0
	for _, rec := range recs {
		if !s.filter.Matches(rec) {
			recordsSeen.WithLabelValues("filtered").Inc()
			continue
		}
		d := domain.Delivery{Hour: hour, Record: rec}
		if s.cfg.Decode {
			ev := event.Decode(rec)
			d.Event = &ev
		}
		if err := h(ctx, d); err != nil {
			return n, err
		}
		recordsSeen.WithLabelValues("delivered").Inc()
		n++
	}
	return n, nil
}
