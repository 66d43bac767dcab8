package rate

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// defaultMaxTokens is the default bucket capacity.
	defaultMaxTokens = 1200
	// defaultWindow is the default refill window.
	defaultWindow = time.Minute
	// defaultWaitInterval is the default poll interval while waiting for a slot.
	defaultWaitInterval = time.Millisecond * 100
	// maxWaitPolls is the maximum number of unsuccessful polls before the
	// limiter proceeds anyway. Guards against unbounded blocking under clock
	// skew.
	maxWaitPolls = 100
)

// LimiterConfig represents the configuration for the token bucket limiter.
type LimiterConfig struct {
	// MaxTokens is the bucket capacity.
	MaxTokens float64
	// Window is the duration over which a full bucket refills.
	Window time.Duration
	// WaitInterval is the poll interval while waiting for a slot.
	WaitInterval time.Duration
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Limiter represents a token bucket admission controller. Tokens refill at a
// constant rate up to the bucket capacity, each admitted request consumes one.
type Limiter struct {
	cfg        *LimiterConfig
	mtx        sync.Mutex
	tokens     float64
	lastRefill time.Time
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewLimiter initializes a new token bucket limiter starting full.
func NewLimiter(cfg *LimiterConfig) *Limiter {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Window <= 0 {
		cfg.Window = defaultWindow
	}
	if cfg.WaitInterval <= 0 {
		cfg.WaitInterval = defaultWaitInterval
	}

	return &Limiter{
		cfg:        cfg,
		tokens:     cfg.MaxTokens,
		lastRefill: time.Now(),
		now:        time.Now,
		sleep:      sleepContext,
	}
}

// sleepContext sleeps for the provided duration or until the context is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// refillRate returns the token refill rate per second.
func (l *Limiter) refillRate() float64 {
	return l.cfg.MaxTokens / l.cfg.Window.Seconds()
}

// refill tops up the bucket for the time elapsed since the last refill. The
// bucket never exceeds its capacity. A regressed clock only advances the
// refill instant.
func (l *Limiter) refill() {
	now := l.now()
	elapsed := now.Sub(l.lastRefill)
	if elapsed > 0 {
		l.tokens = math.Min(l.cfg.MaxTokens, l.tokens+elapsed.Seconds()*l.refillRate())
	}
	l.lastRefill = now
}

// Check reports whether a request slot is currently available.
func (l *Limiter) Check() bool {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	l.refill()
	return l.tokens >= 1
}

// WaitForSlot blocks until a request slot is available and consumes it.
// After the poll safety cap is hit the limiter logs a warning and proceeds,
// consuming the slot regardless.
func (l *Limiter) WaitForSlot(ctx context.Context) error {
	for polls := 0; ; polls++ {
		l.mtx.Lock()
		l.refill()
		if l.tokens >= 1 || polls >= maxWaitPolls {
			if polls >= maxWaitPolls {
				l.cfg.Logger.Warn().Msgf("rate limiter wait exceeded %d polls, proceeding", maxWaitPolls)
			}
			l.tokens = math.Max(0, l.tokens-1)
			l.mtx.Unlock()
			return nil
		}
		l.mtx.Unlock()

		if err := l.sleep(ctx, l.cfg.WaitInterval); err != nil {
			return err
		}
	}
}

// Remaining returns the number of whole tokens currently available.
func (l *Limiter) Remaining() int {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	l.refill()
	return int(math.Floor(l.tokens))
}

// ResetTime returns the instant at which the bucket will be full again.
func (l *Limiter) ResetTime() time.Time {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	l.refill()
	missing := l.cfg.MaxTokens - l.tokens
	if missing <= 0 {
		return l.lastRefill
	}

	seconds := missing / l.refillRate()
	return l.lastRefill.Add(time.Duration(seconds * float64(time.Second)))
}
