// Package retrylimit provides an adaptive rate limiter and a retry loop for
// calls against the Discord REST API. The limiter slows down when Discord
// answers with 429 or 5xx and speeds back up after a quiet period.
//
// Example usage:
//
//	lim := retrylimit.NewAdaptiveLimiter(5, 1, 20, 1, 0.5)
//	err := retrylimit.Do(ctx, func() error {
//	    return s.ChannelMessageDelete(channelID, messageID)
//	}, lim)
package retrylimit

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// quietPeriod is how long the limiter must go without a throttling response
// before Success is allowed to raise the rate again.
const quietPeriod = 10 * time.Second

// AdaptiveLimiter wraps a token bucket whose rate follows request outcomes.
// It is safe for concurrent use.
type AdaptiveLimiter struct {
	mu        sync.RWMutex
	limiter   *rate.Limiter
	minLimit  rate.Limit
	maxLimit  rate.Limit
	stepUp    rate.Limit
	stepDown  float64
	lastError time.Time
}

// NewAdaptiveLimiter creates an AdaptiveLimiter.
//
// Parameters:
//   - initial: starting requests per second
//   - min: minimum allowed rate
//   - max: maximum allowed rate
//   - stepUp: increment on success
//   - stepDown: multiplier applied on throttling (e.g., 0.5 to halve)
func NewAdaptiveLimiter(initial, min, max, stepUp rate.Limit, stepDown float64) *AdaptiveLimiter {
	if initial < 1 {
		initial = 1
	}
	if min < 1 {
		min = 1
	}
	if max < min {
		max = min
	}
	return &AdaptiveLimiter{
		limiter:  rate.NewLimiter(initial, burstFor(initial)),
		minLimit: min,
		maxLimit: max,
		stepUp:   stepUp,
		stepDown: stepDown,
	}
}

// Wait blocks until a token is available or ctx is done.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	a.mu.RLock()
	l := a.limiter
	a.mu.RUnlock()
	return l.Wait(ctx)
}

// Success raises the rate by stepUp, unless throttling was seen recently.
func (a *AdaptiveLimiter) Success() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if time.Since(a.lastError) > quietPeriod {
		a.adjust(a.limiter.Limit() + a.stepUp)
	}
}

// Throttled lowers the rate by the stepDown factor.
func (a *AdaptiveLimiter) Throttled() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastError = time.Now()
	a.adjust(rate.Limit(float64(a.limiter.Limit()) * a.stepDown))
}

// Limit returns the current rate in requests per second.
func (a *AdaptiveLimiter) Limit() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return float64(a.limiter.Limit())
}

func (a *AdaptiveLimiter) adjust(next rate.Limit) {
	if next > a.maxLimit {
		next = a.maxLimit
	} else if next < a.minLimit {
		next = a.minLimit
	}
	if next != a.limiter.Limit() {
		a.limiter.SetLimit(next)
		a.limiter.SetBurst(burstFor(next))
	}
}

func burstFor(l rate.Limit) int {
	if int(l) < 1 {
		return 1
	}
	return int(l)
}

// StatusCode extracts the HTTP status from a discordgo REST error.
// It returns 0 for anything else.
func StatusCode(err error) int {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		return rest.Response.StatusCode
	}
	return 0
}

// Retryable reports whether err is worth another attempt: Discord throttling
// (429) or a server side failure (5xx). Not found and forbidden are final.
func Retryable(err error) bool {
	code := StatusCode(err)
	return code == http.StatusTooManyRequests || (code >= 500 && code < 600)
}

// Config controls Do.
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Retryable    func(error) bool
}

// DefaultConfig returns the retry settings used for message cleanup.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  4,
		InitialDelay: 250 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Retryable:    Retryable,
	}
}

// Do runs fn with DefaultConfig.
func Do(ctx context.Context, fn func() error, lim *AdaptiveLimiter) error {
	return DoConfig(ctx, fn, lim, DefaultConfig())
}

// DoConfig runs fn until it succeeds, fails with a non-retryable error,
// ctx is done or MaxAttempts is reached. lim may be nil.
func DoConfig(ctx context.Context, fn func() error, lim *AdaptiveLimiter, cfg Config) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Retryable == nil {
		cfg.Retryable = Retryable
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}

	delay := cfg.InitialDelay
	var err error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if lim != nil {
			if werr := lim.Wait(ctx); werr != nil {
				return werr
			}
		}

		err = fn()
		if err == nil {
			if lim != nil {
				lim.Success()
			}
			return nil
		}
		if !cfg.Retryable(err) {
			return err
		}
		if lim != nil {
			lim.Throttled()
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		log.Debug().Err(err).Int("attempt", attempt).Dur("sleep", delay).Msg("retrying request")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(jitter(delay)):
		}
		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return fmt.Errorf("gave up after %d attempts: %w", cfg.MaxAttempts, err)
}

// jitter adds up to 25% of d.
func jitter(d time.Duration) time.Duration {
	if d < 4 {
		return d
	}
	return d + time.Duration(rand.Int63n(int64(d/4)))
}
