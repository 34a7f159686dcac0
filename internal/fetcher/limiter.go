package fetcher

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// hostLimiter spaces requests to the same host by at least delay.
// Each host gets its own token bucket with a burst of one, so the first
// request to a host goes out immediately and different hosts never wait
// on each other.
type hostLimiter struct {
	delay time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newHostLimiter(delay time.Duration) *hostLimiter {
	return &hostLimiter{
		delay:    delay,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until a request to host may be sent or ctx is done.
// A zero delay never blocks.
func (l *hostLimiter) Wait(ctx context.Context, host string) error {
	if l == nil || l.delay <= 0 {
		return nil
	}
	return l.get(host).Wait(ctx)
}

func (l *hostLimiter) get(host string) *rate.Limiter {
	host = strings.ToLower(host)

	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Every(l.delay), 1)
		l.limiters[host] = lim
	}
	return lim
}
