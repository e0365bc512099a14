package fetch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	whttp "Warboard/pkg/http"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestPipelineCacheMonotonicity(t *testing.T) {
	clock := newFakeClock()
	var calls atomic.Int32

	p := New[string]("test", Options{
		TTL:      60 * time.Second,
		Cooldown: 120 * time.Second,
		Now:      clock.Now,
	})

	produce := func(ctx context.Context) (string, error) {
		calls.Add(1)
		return "v1", nil
	}

	v, ok := p.Fetch(context.Background(), "k", produce)
	require.True(t, ok)
	assert.Equal(t, "v1", v)
	assert.Equal(t, int32(1), calls.Load())

	// Within TTL the cached value is returned without a second call.
	v, ok = p.Fetch(context.Background(), "k", produce)
	require.True(t, ok)
	assert.Equal(t, "v1", v)
	assert.Equal(t, int32(1), calls.Load())

	// Past TTL a new call is issued.
	clock.Advance(61 * time.Second)
	_, ok = p.Fetch(context.Background(), "k", produce)
	require.True(t, ok)
	assert.Equal(t, int32(2), calls.Load())
}

func TestPipelineDedup(t *testing.T) {
	var calls atomic.Int32

	p := New[int]("test", Options{TTL: time.Minute, Cooldown: time.Minute})

	produce := func(ctx context.Context) (int, error) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond)
		return 42, nil
	}

	const n = 10
	results := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, ok := p.Fetch(context.Background(), "k", produce)
			require.True(t, ok)
			results[i] = v
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "concurrent callers must share one upstream call")
	for _, v := range results {
		assert.Equal(t, 42, v)
	}
}

func TestPipelineBackoffSuppression(t *testing.T) {
	clock := newFakeClock()
	var calls atomic.Int32

	reg := NewRegistry()
	p := New[string]("test", Options{
		TTL:      60 * time.Second,
		Cooldown: 120 * time.Second,
		Status:   reg,
		Now:      clock.Now,
	})

	produce := func(ctx context.Context) (string, error) {
		calls.Add(1)
		return "", &whttp.UpstreamError{StatusCode: 429, Body: "Too Many Requests"}
	}

	// Cold cache plus 429: empty result, status RateLimited.
	_, ok := p.Fetch(context.Background(), "k", produce)
	assert.False(t, ok)
	assert.Equal(t, int32(1), calls.Load())

	info, found := reg.Get("test")
	require.True(t, found)
	assert.Equal(t, StateRateLimited, info.State)

	// Inside the cooldown no network call is made.
	clock.Advance(119 * time.Second)
	_, ok = p.Fetch(context.Background(), "k", produce)
	assert.False(t, ok)
	assert.Equal(t, int32(1), calls.Load())

	// After the cooldown exactly one new call is issued.
	clock.Advance(2 * time.Second)
	p.Fetch(context.Background(), "k", produce)
	assert.Equal(t, int32(2), calls.Load())
}

func TestPipelineTransientServesStale(t *testing.T) {
	clock := newFakeClock()
	var calls atomic.Int32
	var fail atomic.Bool

	p := New[string]("test", Options{
		TTL:      60 * time.Second,
		Cooldown: 120 * time.Second,
		Now:      clock.Now,
	})

	produce := func(ctx context.Context) (string, error) {
		calls.Add(1)
		if fail.Load() {
			return "", errors.New("connection reset")
		}
		return "good", nil
	}

	_, ok := p.Fetch(context.Background(), "k", produce)
	require.True(t, ok)

	// Stale entry plus transient failure: last good value is served.
	clock.Advance(61 * time.Second)
	fail.Store(true)
	v, ok := p.Fetch(context.Background(), "k", produce)
	require.True(t, ok)
	assert.Equal(t, "good", v)
	assert.Equal(t, int32(2), calls.Load())

	// Transient failures do not trip the breaker: the next call after
	// the fresh window attempts the network again.
	v, ok = p.Fetch(context.Background(), "k", produce)
	require.True(t, ok)
	assert.Equal(t, "good", v)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPipelineMalformedTripsBreaker(t *testing.T) {
	clock := newFakeClock()
	var calls atomic.Int32

	reg := NewRegistry()
	p := New[string]("test", Options{
		TTL:      60 * time.Second,
		Cooldown: 120 * time.Second,
		Status:   reg,
		Now:      clock.Now,
	})

	produce := func(ctx context.Context) (string, error) {
		calls.Add(1)
		return "", Malformed(errors.New("unexpected HTML body"))
	}

	_, ok := p.Fetch(context.Background(), "k", produce)
	assert.False(t, ok)
	assert.Equal(t, int32(1), calls.Load())

	info, _ := reg.Get("test")
	assert.Equal(t, StateError, info.State)

	_, _ = p.Fetch(context.Background(), "k", produce)
	assert.Equal(t, int32(1), calls.Load(), "malformed response must enter backoff")
}

func TestBreakerResetOnSuccess(t *testing.T) {
	clock := newFakeClock()
	b := NewBreaker(120 * time.Second)
	b.setClock(clock.Now)

	assert.True(t, b.Allow())
	b.Trip()
	assert.False(t, b.Allow())
	assert.Equal(t, 120*time.Second, b.Remaining())

	clock.Advance(121 * time.Second)
	assert.True(t, b.Allow())
	assert.Equal(t, time.Duration(0), b.Remaining())

	// A repeat failure restarts the cooldown.
	b.Trip()
	assert.False(t, b.Allow())

	b.Reset()
	assert.True(t, b.Allow())
}

func TestRegistryOnChange(t *testing.T) {
	reg := NewRegistry()

	var events []State
	reg.OnChange(func(source string, info Info) {
		events = append(events, info.State)
	})

	reg.Set("opensky", StateLoading, "")
	reg.MarkOk("opensky")
	reg.SetPremium("opensky", false)

	require.Len(t, events, 3)
	assert.Equal(t, StateLoading, events[0])
	assert.Equal(t, StateOk, events[1])

	info, ok := reg.Get("opensky")
	require.True(t, ok)
	assert.Equal(t, StateOk, info.State)
	assert.False(t, info.UsingPremiumKey)
	assert.False(t, info.LastOk.IsZero())
}
