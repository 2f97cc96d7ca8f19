package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type bucketState struct {
	// timestamps holds request times in Unix ms, newest last.
	timestamps []int64
}

// MemoryLimiter is an in-process sliding-window limiter. Keys idle for
// longer than the widest window are dropped.
type MemoryLimiter struct {
	mu        sync.Mutex
	limits    limits
	buckets   map[string]*bucketState
	horizonMs int64
	lastSweep int64
	now       func() time.Time
}

func NewMemoryLimiter(l map[string]Limit) *MemoryLimiter {
	if l == nil {
		l = map[string]Limit{}
	}
	horizon := limits(l).longest().Milliseconds()
	if horizon < 1 {
		horizon = 1
	}
	return &MemoryLimiter{
		limits:    l,
		buckets:   make(map[string]*bucketState),
		horizonMs: horizon,
		now:       time.Now,
	}
}

// Allow records the call and reports whether it is within the bucket's
// limit. Buckets without a configured limit are unlimited.
func (l *MemoryLimiter) Allow(ctx context.Context, bucket, key string) (bool, error) {
	if l == nil {
		return true, nil
	}
	if err := validate(bucket, key); err != nil {
		return false, err
	}

	lim, ok := l.limits.get(bucket)
	if !ok || lim.Limit <= 0 {
		return true, nil
	}

	nowMs := l.now().UnixMilli()
	windowStart := nowMs - lim.Window.Milliseconds()
	limitKey := fmt.Sprintf("%s:%s", key, bucket)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(nowMs)

	b, ok := l.buckets[limitKey]
	if !ok {
		b = &bucketState{}
		l.buckets[limitKey] = b
	}

	// Prune timestamps outside the window.
	ts := b.timestamps
	pruneIdx := 0
	for pruneIdx < len(ts) && ts[pruneIdx] <= windowStart {
		pruneIdx++
	}
	ts = ts[pruneIdx:]

	if len(ts) >= lim.Limit {
		// Deny without recording this attempt.
		b.timestamps = ts
		return false, nil
	}

	b.timestamps = append(ts, nowMs)
	return true, nil
}

// sweep drops buckets whose newest call left every window. It runs at most
// once per horizon, so the cost is amortised over the calls in between.
func (l *MemoryLimiter) sweep(nowMs int64) {
	if nowMs-l.lastSweep < l.horizonMs {
		return
	}
	l.lastSweep = nowMs

	cutoff := nowMs - l.horizonMs
	for k, b := range l.buckets {
		if n := len(b.timestamps); n == 0 || b.timestamps[n-1] <= cutoff {
			delete(l.buckets, k)
		}
	}
}
