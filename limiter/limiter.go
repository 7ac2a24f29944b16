// Package limiter provides the crawl engine's two throttles: a composable
// pacing limiter applied to every request, and a per-destination windowed
// gate configured at runtime.
package limiter

import (
	"context"
	"sort"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is the pacing interface the engine waits on before each fetch.
type RateLimiter interface {
	Wait(ctx context.Context) error
	Limit() rate.Limit
}

// Per converts "eventCount events per duration" into a rate.Limit.
func Per(eventCount int, duration time.Duration) rate.Limit {
	return rate.Every(duration / time.Duration(eventCount))
}

type multiLimiter struct {
	limiters []RateLimiter
}

// Multi combines limiters; Wait blocks until every one of them admits the
// event, most restrictive first.
func Multi(limiters ...RateLimiter) RateLimiter {
	byLimit := func(i, j int) bool {
		return limiters[i].Limit() < limiters[j].Limit()
	}
	sort.Slice(limiters, byLimit)
	return &multiLimiter{limiters: limiters}
}

func (m *multiLimiter) Wait(ctx context.Context) error {
	for _, l := range m.limiters {
		if err := l.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (m *multiLimiter) Limit() rate.Limit {
	if len(m.limiters) == 0 {
		return rate.Inf
	}
	return m.limiters[0].Limit()
}
