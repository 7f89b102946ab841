// Package ratelimit keeps one token bucket per client IP in a bounded LRU.
package ratelimit

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter *rate.Limiter
	last    time.Time
}

type PerIP struct {
	mu       sync.Mutex
	visitors *lru.Cache[string, *visitor]
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	now      func() time.Time
}

func NewPerIP(limit float64, burst, cacheSize int, ttl time.Duration) *PerIP {
	if cacheSize <= 0 {
		cacheSize = 10_000
	}
	visitors, _ := lru.New[string, *visitor](cacheSize)
	return &PerIP{
		visitors: visitors,
		limit:    rate.Limit(limit),
		burst:    burst,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Allow reports whether host may proceed now.
func (p *PerIP) Allow(host string) bool {
	p.mu.Lock()
	v, ok := p.visitors.Get(host)
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(p.limit, p.burst)}
		p.visitors.Add(host, v)
	}
	v.last = p.now()
	p.mu.Unlock()

	return v.limiter.Allow()
}

// Sweep forgets hosts idle for longer than the ttl and returns how many were dropped.
func (p *PerIP) Sweep() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	dropped := 0
	now := p.now()
	for _, key := range p.visitors.Keys() {
		if v, ok := p.visitors.Peek(key); ok && now.Sub(v.last) > p.ttl {
			p.visitors.Remove(key)
			dropped++
		}
	}
	return dropped
}

// Run sweeps every ttl until ctx is done.
func (p *PerIP) Run(ctx context.Context) {
	ticker := time.NewTicker(p.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Sweep()
		}
	}
}

func (p *PerIP) Len() int {
	return p.visitors.Len()
}
