package proxy

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"streetwise-crawler/logger"
)

const throttleWindow = time.Minute

var errInvalidThrottle = errors.New("invalid throttle configuration")

// ThrottleConfig controls request pacing.
type ThrottleConfig struct {
	Enabled           bool          `json:"enabled"`
	MinDelay          time.Duration `json:"min_delay"`
	MaxDelay          time.Duration `json:"max_delay"`
	RequestsPerMinute int           `json:"requests_per_minute"`
}

// DefaultThrottleConfig waits 2-8s between requests, at most 30 a minute.
var DefaultThrottleConfig = ThrottleConfig{
	Enabled:           true,
	MinDelay:          2 * time.Second,
	MaxDelay:          8 * time.Second,
	RequestsPerMinute: 30,
}

// Validate checks the delay range and request cap.
func (c ThrottleConfig) Validate() error {
	if c.MinDelay < 0 || c.MaxDelay < c.MinDelay {
		return errors.Join(errInvalidThrottle, errors.New("delays must satisfy 0 <= min <= max"))
	}
	if c.RequestsPerMinute < 1 {
		return errors.Join(errInvalidThrottle, errors.New("requests per minute must be positive"))
	}
	return nil
}

// Throttler spaces outbound requests with a random delay and caps the
// number of requests per minute. The cap is approximate: each request
// holds a slot for one minute after it was sent.
type Throttler struct {
	mu          sync.Mutex
	cfg         ThrottleConfig
	windowStart time.Time
	inWindow    int

	rng       *rand.Rand
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
	afterFunc func(d time.Duration, f func())
	logger    *zap.SugaredLogger
}

// NewThrottler creates a throttler with the given settings
func NewThrottler(cfg ThrottleConfig) (*Throttler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Throttler{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		now:   time.Now,
		sleep: sleepContext,
		afterFunc: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
		logger: logger.WithComponent("throttler"),
	}, nil
}

// Configure replaces the throttle settings.
func (t *Throttler) Configure(cfg ThrottleConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cfg = cfg
	t.logger.Infow("Throttling configured",
		"enabled", cfg.Enabled,
		"min_delay", cfg.MinDelay,
		"max_delay", cfg.MaxDelay,
		"requests_per_minute", cfg.RequestsPerMinute,
	)
	return nil
}

// Config returns the current settings.
func (t *Throttler) Config() ThrottleConfig {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cfg
}

// Throttle blocks until the next request may be sent or ctx is done.
func (t *Throttler) Throttle(ctx context.Context) error {
	delay, ok := t.nextDelay()
	if !ok {
		return nil
	}

	if err := t.sleep(ctx, delay); err != nil {
		return err
	}

	t.mu.Lock()
	t.inWindow++
	t.mu.Unlock()

	t.afterFunc(throttleWindow, t.release)
	return nil
}

// nextDelay picks a random delay in [MinDelay, MaxDelay], extended to the
// end of the window once the per-minute cap is reached.
func (t *Throttler) nextDelay() (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.cfg.Enabled {
		return 0, false
	}

	delay := t.cfg.MinDelay
	if spread := t.cfg.MaxDelay - t.cfg.MinDelay; spread > 0 {
		delay += time.Duration(t.rng.Int63n(int64(spread) + 1))
	}

	now := t.now()
	elapsed := now.Sub(t.windowStart)
	if elapsed >= throttleWindow {
		t.windowStart = now
		elapsed = 0
	}
	if t.inWindow >= t.cfg.RequestsPerMinute {
		if remaining := throttleWindow - elapsed; remaining > delay {
			t.logger.Debugw("Request cap reached, waiting for window", "wait", remaining)
			delay = remaining
		}
	}
	return delay, true
}

func (t *Throttler) release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inWindow > 0 {
		t.inWindow--
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
