// Package cache provides coarse caches that refetch at most once per fixed
// time bucket.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/raterudder/energymatrix/pkg/log"
)

// Outcome describes how a GetOrRefresh call was served.
type Outcome string

const (
	OutcomeHit       Outcome = "hit"
	OutcomeRefreshed Outcome = "refreshed"
	OutcomeStale     Outcome = "stale"
	OutcomeFailed    Outcome = "failed"
)

// RefreshFunc produces a fresh value for the bucket starting at bucketStart.
type RefreshFunc[T any] func(ctx context.Context, bucketStart time.Time) (T, error)

// Option configures a Bucket.
type Option func(*options)

type options struct {
	now           func() time.Time
	staleFallback bool
	observer      func(Outcome)
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithStaleFallback returns the previously stored value when a refresh fails,
// instead of the error.
func WithStaleFallback(enabled bool) Option {
	return func(o *options) { o.staleFallback = enabled }
}

// WithObserver is called with the outcome of every GetOrRefresh call.
func WithObserver(fn func(Outcome)) Option {
	return func(o *options) { o.observer = fn }
}

// Bucket caches a single value until the next multiple of width (counted from
// the unix epoch) starts. It is not a TTL: a value fetched one second before a
// boundary is refetched one second later.
type Bucket[T any] struct {
	name  string
	width int64
	opts  options

	mu     sync.Mutex
	start  int64
	value  T
	stored bool
}

// New creates a Bucket with the given width, which must be at least a second.
func New[T any](name string, width time.Duration, opts ...Option) *Bucket[T] {
	if width < time.Second {
		panic(fmt.Sprintf("cache %s: bucket width %s is below one second", name, width))
	}
	b := &Bucket[T]{
		name:  name,
		width: int64(width / time.Second),
		opts:  options{now: time.Now},
	}
	for _, o := range opts {
		o(&b.opts)
	}
	return b
}

// BucketStart returns the start of the bucket containing t.
func (b *Bucket[T]) BucketStart(t time.Time) time.Time {
	return time.Unix(b.bucketStart(t.Unix()), 0).In(t.Location())
}

func (b *Bucket[T]) bucketStart(unix int64) int64 {
	mod := unix % b.width
	if mod < 0 {
		mod += b.width
	}
	return unix - mod
}

// GetOrRefresh returns the stored value if it was computed in the current
// bucket. Otherwise it calls refresh and stores the result. A failed refresh
// leaves the stored value untouched.
//
// The lock is held across refresh so concurrent callers in the same bucket
// trigger at most one refresh.
func (b *Bucket[T]) GetOrRefresh(ctx context.Context, refresh RefreshFunc[T]) (T, error) {
	now := b.opts.now()
	start := b.bucketStart(now.Unix())

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stored && b.start == start {
		b.observe(OutcomeHit)
		return b.value, nil
	}

	v, err := refresh(ctx, time.Unix(start, 0).In(now.Location()))
	if err != nil {
		if b.opts.staleFallback && b.stored {
			log.Ctx(ctx).WarnContext(
				ctx,
				"refresh failed, using stale cached value",
				slog.String("cache", b.name),
				slog.Time("storedBucket", time.Unix(b.start, 0)),
				slog.Any("error", err),
			)
			b.observe(OutcomeStale)
			return b.value, nil
		}
		b.observe(OutcomeFailed)
		var zero T
		return zero, err
	}

	b.start = start
	b.value = v
	b.stored = true
	b.observe(OutcomeRefreshed)
	return v, nil
}

// Peek returns the stored value and the start of the bucket it was computed
// in, without refreshing.
func (b *Bucket[T]) Peek() (T, time.Time, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.stored {
		var zero T
		return zero, time.Time{}, false
	}
	return b.value, time.Unix(b.start, 0), true
}

// Name returns the name the bucket was created with.
func (b *Bucket[T]) Name() string {
	return b.name
}

func (b *Bucket[T]) observe(o Outcome) {
	if b.opts.observer != nil {
		b.opts.observer(o)
	}
}
