// Package ratelimit throttles expensive store calls per user. The Redis
// limiter is shared by all server replicas; the memory limiter is the
// single-node fallback when no Redis URL is configured.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Limit allows Limit calls per Window.
type Limit struct {
	Limit  int
	Window time.Duration
}

// Limiter decides whether one more call for key fits into the bucket.
type Limiter interface {
	Allow(ctx context.Context, bucket, key string) (bool, error)
}

type limits map[string]Limit

func (l limits) get(bucket string) (Limit, bool) {
	if v, ok := l[bucket]; ok {
		return v, true
	}
	if v, ok := l["default"]; ok {
		return v, true
	}
	return Limit{}, false
}

// longest returns the widest window of any bucket.
func (l limits) longest() time.Duration {
	var w time.Duration
	for _, v := range l {
		if v.Window > w {
			w = v.Window
		}
	}
	return w
}

func validate(bucket, key string) error {
	if bucket == "" || key == "" {
		return fmt.Errorf("bucket and key required")
	}
	return nil
}
