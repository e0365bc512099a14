package fetch

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"Warboard/pkg/cache"
	whttp "Warboard/pkg/http"
	"Warboard/pkg/logger"
	"Warboard/pkg/metrics"
	"Warboard/pkg/queue"
)

// Producer performs the actual upstream call for one key.
type Producer[T any] func(ctx context.Context) (T, error)

// Options configure a Pipeline.
type Options struct {
	// TTL is how long a cached value counts as fresh.
	TTL time.Duration
	// Cooldown is the backoff window entered after a rate limit or
	// malformed response.
	Cooldown time.Duration
	// Queue, when set, serializes upstream dispatches with a minimum
	// inter-request gap. Used for sources with tight free-tier quotas.
	Queue *queue.Queue
	// Shared, when set, mirrors successful fetches into an external
	// snapshot store so restarts can serve stale data cold.
	Shared  cache.Service
	Status  *Registry
	Metrics *metrics.Recorder
	Logger  *logger.Logger
	// Breaker, when set, is shared with other pipelines of the same
	// source so one backoff window covers all of its endpoints.
	Breaker *Breaker
	// Now overrides the time source, for tests.
	Now func() time.Time
}

type entry[T any] struct {
	value     T
	fetchedAt time.Time
}

// Pipeline composes the TTL cache, inflight deduplication, optional
// rate-limited queue and failure backoff around one upstream source.
// All state is owned by the pipeline; callers only ever see values.
type Pipeline[T any] struct {
	source  string
	opts    Options
	now     func() time.Time
	breaker *Breaker
	group   singleflight.Group

	mu      sync.RWMutex
	entries map[string]entry[T]
}

// New creates a pipeline for one named source.
func New[T any](source string, opts Options) *Pipeline[T] {
	if opts.TTL <= 0 {
		opts.TTL = time.Minute
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = 2 * time.Minute
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	breaker := opts.Breaker
	if breaker == nil {
		breaker = NewBreaker(opts.Cooldown)
		breaker.setClock(now)
	}

	return &Pipeline[T]{
		source:  source,
		opts:    opts,
		now:     now,
		breaker: breaker,
		entries: make(map[string]entry[T]),
	}
}

// Source returns the pipeline's source name.
func (p *Pipeline[T]) Source() string {
	return p.source
}

// Fetch returns the best available value for key: fresh cache, a newly
// fetched value, or stale cache when the upstream is failing or backed
// off. ok is false only when no value is available at all. Fetch never
// returns an error; failures are routed into the status registry and
// backoff state instead.
func (p *Pipeline[T]) Fetch(ctx context.Context, key string, produce Producer[T]) (T, bool) {
	if v, ok := p.fresh(key); ok {
		p.countRead("fresh")
		return v, true
	}

	if !p.breaker.Allow() {
		return p.fallback(ctx, key)
	}

	p.markLoading()

	v, err := p.refresh(ctx, key, produce)
	if err != nil {
		p.observeFailure(key, err)
		return p.fallback(ctx, key)
	}
	return v, true
}

// Cached returns the cached value for key regardless of freshness.
func (p *Pipeline[T]) Cached(key string) (T, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.entries[key]
	return e.value, ok
}

// Invalidate drops the cached value for key.
func (p *Pipeline[T]) Invalidate(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.entries, key)
}

// refresh collapses concurrent callers for the same key into one
// upstream call. Both the flight and any queued task re-check the cache
// first since a racing caller may have already filled it.
func (p *Pipeline[T]) refresh(ctx context.Context, key string, produce Producer[T]) (T, error) {
	v, err, _ := p.group.Do(key, func() (interface{}, error) {
		if v, ok := p.fresh(key); ok {
			return v, nil
		}

		if p.opts.Queue == nil {
			return p.dispatch(ctx, key, produce)
		}

		var out T
		err := p.opts.Queue.Do(ctx, func() error {
			if v, ok := p.fresh(key); ok {
				out = v
				return nil
			}
			fetched, err := p.dispatch(ctx, key, produce)
			if err != nil {
				return err
			}
			out = fetched
			return nil
		})
		return out, err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// dispatch performs the upstream call and records the result.
func (p *Pipeline[T]) dispatch(ctx context.Context, key string, produce Producer[T]) (T, error) {
	start := time.Now()
	v, err := produce(ctx)
	if p.opts.Metrics != nil {
		p.opts.Metrics.RecordLatency(p.source, time.Since(start).Seconds())
		result := "ok"
		if err != nil {
			result = "error"
		}
		p.opts.Metrics.RecordRequest(p.source, result)
	}
	if err != nil {
		var zero T
		return zero, err
	}

	p.store(key, v)
	p.breaker.Reset()
	if p.opts.Status != nil {
		p.opts.Status.MarkOk(p.source)
	}
	p.mirror(ctx, key, v)
	return v, nil
}

func (p *Pipeline[T]) fresh(key string) (T, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	e, ok := p.entries[key]
	if !ok || p.now().Sub(e.fetchedAt) > p.opts.TTL {
		var zero T
		return zero, false
	}
	return e.value, true
}

func (p *Pipeline[T]) store(key string, v T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[key] = entry[T]{value: v, fetchedAt: p.now()}
}

// fallback serves the last good value: local stale cache first, then
// the shared snapshot store for cold starts.
func (p *Pipeline[T]) fallback(ctx context.Context, key string) (T, bool) {
	p.mu.RLock()
	e, ok := p.entries[key]
	p.mu.RUnlock()
	if ok {
		p.countRead("stale")
		return e.value, true
	}

	if p.opts.Shared != nil {
		raw, err := p.opts.Shared.Get(ctx, cache.GenerateKey(p.source, key))
		if err == nil {
			var v T
			if err := json.Unmarshal([]byte(raw), &v); err == nil {
				p.countRead("stale")
				return v, true
			}
		}
	}

	p.countRead("empty")
	var zero T
	return zero, false
}

// mirror writes a successful fetch into the shared snapshot store.
// Best effort: a store failure never fails the fetch.
func (p *Pipeline[T]) mirror(ctx context.Context, key string, v T) {
	if p.opts.Shared == nil {
		return
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := p.opts.Shared.Set(ctx, cache.GenerateKey(p.source, key), string(raw), 24*time.Hour); err != nil && p.opts.Logger != nil {
		p.opts.Logger.Warn("snapshot mirror failed",
			logger.String("source", p.source),
			logger.Error(err))
	}
}

func (p *Pipeline[T]) markLoading() {
	if p.opts.Status == nil {
		return
	}
	if info, ok := p.opts.Status.Get(p.source); !ok || info.State == StateIdle {
		p.opts.Status.Set(p.source, StateLoading, "")
	}
}

// observeFailure classifies an upstream failure and updates backoff and
// status. Rate limits and malformed responses trip the breaker;
// transient errors (timeouts, 5xx) do not, the next call after TTL
// expiry retries naturally.
func (p *Pipeline[T]) observeFailure(key string, err error) {
	status := whttp.UpstreamStatus(err)

	switch {
	case status == 429:
		p.breaker.Trip()
		p.countBackoff()
		p.setStatus(StateRateLimited, "upstream rate limit")
	case IsMalformed(err):
		p.breaker.Trip()
		p.countBackoff()
		p.setStatus(StateError, err.Error())
	default:
		p.setStatus(StateStale, err.Error())
	}

	if p.opts.Logger != nil {
		p.opts.Logger.Warn("fetch failed",
			logger.String("source", p.source),
			logger.String("key", key),
			logger.Int("status", status),
			logger.Error(err))
	}
}

func (p *Pipeline[T]) setStatus(state State, message string) {
	if p.opts.Status != nil {
		p.opts.Status.Set(p.source, state, message)
	}
}

func (p *Pipeline[T]) countRead(kind string) {
	if p.opts.Metrics != nil {
		p.opts.Metrics.RecordCacheRead(p.source, kind)
	}
}

func (p *Pipeline[T]) countBackoff() {
	if p.opts.Metrics != nil {
		p.opts.Metrics.RecordBackoff(p.source)
	}
}
