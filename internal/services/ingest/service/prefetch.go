package service

import (
	"context"
	"time"

	"ghscan/internal/adapters/ingest/gharchive"
	perr "ghscan/internal/platform/errors"
	"ghscan/internal/platform/hourcache"
	"ghscan/internal/platform/logger"
	"ghscan/internal/platform/workpool"
	"ghscan/internal/services/ingest/retry"
)

// fetched is a cache entry; records == nil with err set marks a failed hour
type fetched struct {
	records []gharchive.Record
	err     error
}

type prefetchJob struct {
	hour time.Time
	slot *hourcache.Slot[string, fetched]
}

// Prefetcher downloads upcoming hours on a worker pool into a bounded cache.
// Capacity is reserved in chronological order before a job is queued, so the
// hour a consumer waits for always holds a slot.
type Prefetcher struct {
	src    gharchive.Source
	policy retry.Policy
	cache  *hourcache.Cache[string, fetched]
	pool   *workpool.Pool

	cancel context.CancelFunc
	done   chan struct{}
}

// NewPrefetcher starts poolSize workers over a cache of cacheSize hours
func NewPrefetcher(src gharchive.Source, policy retry.Policy, poolSize, cacheSize int) *Prefetcher {
	return &Prefetcher{
		src:    src,
		policy: policy,
		cache:  hourcache.New[string, fetched](cacheSize),
		pool:   workpool.New(poolSize),
	}
}

// Start schedules every hour of [from, to) in the background
func (p *Prefetcher) Start(ctx context.Context, from, to time.Time) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go func() {
		defer close(p.done)
		l := logger.NamedC(ctx, "ingest")
		for hour := range gharchive.Hours(from, to) {
			slot, err := p.cache.Reserve(ctx)
			if err != nil {
				return
			}
			depth, err := workpool.Go(p.pool, prefetchJob{hour: hour, slot: slot}, func(j prefetchJob) {
				p.fill(ctx, j.hour, j.slot)
			})
			if err != nil {
				slot.Release()
				l.Debug().Err(err).Msg("ingest: prefetch scheduling stopped")
				return
			}
			poolQueued.Set(float64(depth))
		}
	}()
}

// Prefetch downloads hour into the cache, blocking while the cache is full.
// It always leaves an entry behind unless ctx is done first.
func (p *Prefetcher) Prefetch(ctx context.Context, hour time.Time) error {
	slot, err := p.cache.Reserve(ctx)
	if err != nil {
		return err
	}
	p.fill(ctx, hour, slot)
	return nil
}

func (p *Prefetcher) fill(ctx context.Context, hour time.Time, slot *hourcache.Slot[string, fetched]) {
	t0 := time.Now()
	recs, err := retry.Do(ctx, p.policy, hour, retry.Prefetch, func(ctx context.Context) ([]gharchive.Record, error) {
		return p.src.Fetch(ctx, hour)
	})
	fetchDuration.WithLabelValues(retry.Prefetch.String()).Observe(time.Since(t0).Seconds())
	if ctx.Err() != nil {
		slot.Release()
		return
	}
	if err != nil {
		recs = nil
	}
	_ = slot.Fill(gharchive.Key(hour), fetched{records: recs, err: err})
	cacheResident.Set(float64(p.cache.Size()))
	poolQueued.Set(float64(p.pool.Enqueued()))
}

// Await blocks until hour is in the cache and takes it out.
// A failed prefetch comes back as a CodeUnavailable error wrapping the cause.
func (p *Prefetcher) Await(ctx context.Context, hour time.Time) ([]gharchive.Record, error) {
	key := gharchive.Key(hour)
	f, err := p.cache.Await(ctx, key)
	if err != nil {
		return nil, err
	}
	cacheResident.Set(float64(p.cache.Size()))
	if f.err != nil {
		return nil, perr.Wrapf(f.err, perr.CodeUnavailable, "ingest: data unavailable for %s", key)
	}
	return f.records, nil
}

// Close cancels outstanding downloads, drops queued jobs and waits for the workers
func (p *Prefetcher) Close() {
	if p.cancel != nil {
		p.cancel()
		<-p.done
	}
	p.pool.Shutdown(true)
	p.pool.Wait()
	poolQueued.Set(0)
	cacheResident.Set(0)
}
