package shopify

import (
	"context"
	"sync"
	"time"
)

// tokenBucket throttles outbound requests for a single shop. The bucket
// starts full so a fresh sync can burst, then refills at a sustained rate.
type tokenBucket struct {
	mu       sync.Mutex
	capacity float64
	refill   float64 // tokens per second
	tokens   float64
	last     time.Time
}

func newTokenBucket(capacity int, refillPerSec float64) *tokenBucket {
	return &tokenBucket{
		capacity: float64(capacity),
		refill:   refillPerSec,
		tokens:   float64(capacity),
		last:     time.Now(),
	}
}

// reserve takes a token if one is available, otherwise returns how long the
// caller must wait before a token becomes available.
func (b *tokenBucket) reserve(now time.Time) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * b.refill
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
		b.last = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return 0
	}

	deficit := 1 - b.tokens
	return time.Duration(deficit / b.refill * float64(time.Second))
}

// Acquire blocks until a token is available or the context is cancelled
func (b *tokenBucket) Acquire(ctx context.Context) error {
	for {
		wait := b.reserve(time.Now())
		if wait == 0 {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// limiterPool holds one bucket per shop domain. Buckets are created lazily
// and shared by every request against the same shop, so webhook-driven and
// scheduled traffic count against the same budget.
type limiterPool struct {
	mu       sync.Mutex
	buckets  map[string]*tokenBucket
	capacity int
	refill   float64
}

func newLimiterPool(capacity int, refillPerSec float64) *limiterPool {
	return &limiterPool{
		buckets:  make(map[string]*tokenBucket),
		capacity: capacity,
		refill:   refillPerSec,
	}
}

func (p *limiterPool) bucket(shopDomain string) *tokenBucket {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.buckets[shopDomain]
	if !ok {
		b = newTokenBucket(p.capacity, p.refill)
		p.buckets[shopDomain] = b
	}
	return b
}
