package command

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Cooldowns keeps one token bucket per user and command.
type Cooldowns struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	buckets map[string]*bucket
	now     func() time.Time
}

// NewCooldowns allows burst invocations at once, refilled at perSecond.
func NewCooldowns(perSecond float64, burst int) *Cooldowns {
	if burst < 1 {
		burst = 1
	}
	return &Cooldowns{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow takes a token for key. When none is left it returns false and how
// long until the next one.
func (c *Cooldowns) Allow(key string) (bool, time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	b, ok := c.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(c.limit, c.burst)}
		c.buckets[key] = b
	}
	b.lastSeen = now

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, d
	}
	return true, 0
}

// Prune drops buckets idle for longer than idle and returns how many went.
func (c *Cooldowns) Prune(idle time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-idle)
	n := 0
	for k, b := range c.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(c.buckets, k)
			n++
		}
	}
	return n
}

// Len returns the number of tracked buckets.
func (c *Cooldowns) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buckets)
}

// RunPruner prunes idle buckets every interval until ctx is done.
func (c *Cooldowns) RunPruner(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := c.Prune(interval); n > 0 {
				log.Debug().Int("pruned", n).Msg("cleared idle cooldowns")
			}
		}
	}
}
