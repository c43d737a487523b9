// Package retry decides how a failed archive download is handled and runs
// the bounded retry loop with exponential backoff.
package retry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"syscall"
	"time"

	"ghscan/internal/adapters/ingest/gharchive"
	perr "ghscan/internal/platform/errors"
	"ghscan/internal/platform/logger"

	"github.com/cenkalti/backoff/v4"
)

// Mode tells the policy which caller it serves
type Mode uint8

const (
	// Direct is the sequential consumer fetching an hour itself
	Direct Mode = iota
	// Prefetch is a background job filling the cache
	Prefetch
)

func (m Mode) String() string {
	if m == Prefetch {
		return "prefetch"
	}
	return "direct"
}

// Decision is the outcome of classifying one failed attempt
type Decision uint8

const (
	// Retry consumes an attempt and tries again after a backoff
	Retry Decision = iota
	// GiveUp stops retrying and reports the hour as skipped
	GiveUp
	// Fail returns the error to the caller at once
	Fail
)

func (d Decision) String() string {
	switch d {
	case Retry:
		return "retry"
	case GiveUp:
		return "give_up"
	default:
		return "fail"
	}
}

// Policy bounds the attempts made for one hour
type Policy struct {
	MaxRetries     int           // total attempts per hour; <=0 -> 1
	Base           time.Duration // first backoff; 0 retries immediately
	Max            time.Duration // backoff cap; <=0 -> 30s
	AttemptTimeout time.Duration // optional budget per attempt; 0 = none

	// OnRetry, when set, observes every retried attempt
	OnRetry func(hour time.Time, mode Mode, err error, delay time.Duration)
}

// Classify maps a failed attempt to a Decision.
// Connection resets, 5xx answers and corrupt payloads are transient.
// A 404 is final: the direct path fails the hour, the prefetch path gives up.
// Everything else, including cancellation, fails at once.
func (p Policy) Classify(err error, mode Mode) Decision {
	var se *gharchive.StatusError
	switch {
	case err == nil:
		return Fail
	case errors.Is(err, context.Canceled):
		return Fail
	case errors.As(err, &se):
		switch {
		case se.Status >= 500 && se.Status <= 599:
			return Retry
		case se.Status == http.StatusNotFound && mode == Prefetch:
			return GiveUp
		default:
			return Fail
		}
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, io.ErrUnexpectedEOF):
		return Retry
	case perr.IsCode(err, perr.CodeCorrupt):
		return Retry
	}
	return Fail
}

// backOff builds the wait schedule; attempts-1 waits at most
func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	attempts := max(p.MaxRetries, 1)
	var b backoff.BackOff = &backoff.ZeroBackOff{}
	if p.Base > 0 {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = p.Base
		exp.MaxInterval = p.Max
		if exp.MaxInterval <= 0 {
			exp.MaxInterval = 30 * time.Second
		}
		exp.MaxElapsedTime = 0
		exp.Reset()
		b = exp
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// Do runs op for hour until it succeeds, the policy stops it, or attempts run out.
// Running out yields a recoverable CodeExhausted error wrapping the last failure.
func Do[T any](ctx context.Context, p Policy, hour time.Time, mode Mode, op func(context.Context) (T, error)) (T, error) {
	l := logger.NamedC(ctx, "ingest")
	var (
		out      T
		last     error
		decision = Fail
		attempts int
	)

	operation := func() error {
		attempts++
		actx, cancel := attemptContext(ctx, p.AttemptTimeout)
		v, err := op(actx)
		cancel()
		if err == nil {
			out = v
			return nil
		}
		last = err
		if ctx.Err() != nil {
			decision = Fail
			return backoff.Permanent(ctx.Err())
		}
		decision = p.Classify(err, mode)
		if decision == Fail && p.AttemptTimeout > 0 && errors.Is(err, context.DeadlineExceeded) {
			// our own per attempt budget ran out; the run itself is still live
			decision = Retry
		}
		if decision != Retry {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, delay time.Duration) {
		l.Warn().Time("hour", hour).Str("mode", mode.String()).Int("attempt", attempts).
			Dur("delay", delay).Err(err).Msg("ingest: transient download failure, retrying")
		if p.OnRetry != nil {
			p.OnRetry(hour, mode, err, delay)
		}
	}

	err := backoff.RetryNotify(operation, p.backOff(ctx), notify)
	if err == nil {
		return out, nil
	}
	var zero T
	if ctx.Err() != nil {
		return zero, ctx.Err()
	}
	switch decision {
	case Retry:
		return zero, perr.Wrapf(last, perr.CodeExhausted,
			"ingest: exceeded %d download attempts for %s", attempts, gharchive.Key(hour))
	case GiveUp:
		l.Error().Time("hour", hour).Err(last).Msg("ingest: archive file not found, skipping")
	}
	return zero, last
}

// attemptContext bounds one attempt by d without extending any parent deadline
func attemptContext(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	if dl, ok := parent.Deadline(); ok {
		if rem := time.Until(dl); rem > 0 && rem < d {
			return context.WithTimeout(parent, rem)
		}
	}
	return context.WithTimeout(parent, d)
}
