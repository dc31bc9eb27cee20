package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LoginLimiter is a token bucket per client IP. Idle buckets are dropped
// after ttl, checked lazily on each call.
type LoginLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	perSecond rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewLoginLimiter allows perMinute attempts per IP with the given burst.
// perMinute <= 0 disables limiting.
func NewLoginLimiter(perMinute, burst int) *LoginLimiter {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &LoginLimiter{
		buckets:   make(map[string]*bucket),
		perSecond: rate.Limit(float64(perMinute) / 60),
		burst:     burst,
		ttl:       5 * time.Minute,
	}
}

// Allow reports whether ip may attempt a login now. A nil limiter allows all.
func (l *LoginLimiter) Allow(ip string) bool {
	if l == nil {
		return true
	}
	if ip == "" {
		ip = "unknown"
	}
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > time.Minute {
		for k, b := range l.buckets {
			if now.Sub(b.seen) > l.ttl {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[ip]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.perSecond, l.burst)}
		l.buckets[ip] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}
