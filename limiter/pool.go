package limiter

import (
	"context"
	"sync"
	"time"
)

// window admits at most capacity acquisitions per rolling interval. The
// first acquisition opens the window; once capacity is used, callers block
// until the window rolls over.
type window struct {
	mu       sync.Mutex
	capacity int
	interval time.Duration
	used     int
	start    time.Time
}

func (w *window) acquire(ctx context.Context) error {
	for {
		w.mu.Lock()
		now := time.Now()
		if w.used == 0 || now.Sub(w.start) >= w.interval {
			w.start = now
			w.used = 0
		}
		if w.used < w.capacity {
			w.used++
			w.mu.Unlock()
			return nil
		}
		wait := w.start.Add(w.interval).Sub(now)
		w.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Pool is the process-wide per-destination gate. Destinations without a
// configured rate acquire immediately; limits are created by SetRate,
// replaced by calling it again and removed by ClearRate. Waiting on one
// destination never blocks acquisitions for another.
type Pool struct {
	mu      sync.RWMutex
	windows map[string]*window
}

func NewPool() *Pool {
	return &Pool{windows: make(map[string]*window)}
}

// SetRate allows n acquisitions per interval for destination. n < 1 or a
// non-positive interval clears the limit instead.
func (p *Pool) SetRate(destination string, n int, interval time.Duration) {
	if n < 1 || interval <= 0 {
		p.ClearRate(destination)
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.windows[destination] = &window{capacity: n, interval: interval}
}

// ClearRate removes destination's limit; future acquisitions are immediate,
// permits already granted are unaffected.
func (p *Pool) ClearRate(destination string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.windows, destination)
}

// Acquire blocks until destination's window admits the caller. The window is
// looked up under the pool lock but waited on outside it, so concurrent
// callers for different destinations proceed independently.
func (p *Pool) Acquire(ctx context.Context, destination string) error {
	p.mu.RLock()
	w := p.windows[destination]
	p.mu.RUnlock()
	if w == nil {
		return nil
	}
	return w.acquire(ctx)
}
