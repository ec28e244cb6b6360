package proxy

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"streetwise-crawler/logger"
)

type entry struct {
	proxy    Proxy
	health   *health
	lastUsed time.Time
}

func (e *entry) snapshot() Proxy {
	p := e.proxy
	p.FailureCount = e.health.failureCount
	p.Healthy = e.health.healthy
	p.LastUsed = e.lastUsed
	p.LastFailure = e.health.lastFailureTime
	return p
}

// Pool holds proxy endpoints and their health. It is safe for concurrent use.
type Pool struct {
	mu          sync.Mutex
	entries     []*entry
	strategy    RotationStrategy
	maxFailures int
	rrIndex     int
	rng         *rand.Rand
	now         func() time.Time
	logger      *zap.SugaredLogger
}

// NewPool creates an empty pool. Proxies become unhealthy after
// maxFailures consecutive failures.
func NewPool(maxFailures int, strategy RotationStrategy) *Pool {
	if maxFailures < 1 {
		maxFailures = DefaultMaxFailures
	}
	if strategy == "" {
		strategy = HealthBased
	}
	return &Pool{
		strategy:    strategy,
		maxFailures: maxFailures,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		now:         time.Now,
		logger:      logger.WithComponent("proxy_pool"),
	}
}

// AddProxy adds p to the pool as healthy.
func (pl *Pool) AddProxy(p Proxy) error {
	if p.Server == "" {
		return fmt.Errorf("%w: empty server", ErrInvalidProxy)
	}
	if p.Protocol == "" {
		p.Protocol = "http"
	}

	pl.mu.Lock()
	defer pl.mu.Unlock()

	if pl.find(p.Server) != nil {
		return fmt.Errorf("%w: %s", ErrDuplicate, p.Server)
	}
	p.FailureCount, p.Healthy = 0, true
	pl.entries = append(pl.entries, &entry{proxy: p, health: newHealth(pl.maxFailures)})
	logger.WithProxy(p.Server).Infow("Proxy added", "protocol", p.Protocol)
	return nil
}

// RemoveProxy removes the proxy with the given server address.
func (pl *Pool) RemoveProxy(server string) error {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	for i, e := range pl.entries {
		if e.proxy.Server == server {
			pl.entries = append(pl.entries[:i], pl.entries[i+1:]...)
			logger.WithProxy(server).Infow("Proxy removed")
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, server)
}

// NextProxy selects a healthy proxy with the current strategy and stamps
// its last-used time. It reports false when no proxy is healthy; callers
// then proceed without a proxy.
func (pl *Pool) NextProxy() (Proxy, bool) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	healthy := make([]*entry, 0, len(pl.entries))
	for _, e := range pl.entries {
		if e.health.healthy {
			healthy = append(healthy, e)
		}
	}
	if len(healthy) == 0 {
		return Proxy{}, false
	}

	var chosen *entry
	switch pl.strategy {
	case RoundRobin:
		chosen = healthy[pl.rrIndex%len(healthy)]
		pl.rrIndex = (pl.rrIndex + 1) % len(healthy)
	case Random:
		chosen = healthy[pl.rng.Intn(len(healthy))]
	default:
		sort.SliceStable(healthy, func(i, j int) bool {
			a, b := healthy[i], healthy[j]
			if a.health.failureCount != b.health.failureCount {
				return a.health.failureCount < b.health.failureCount
			}
			return a.lastUsed.Before(b.lastUsed)
		})
		chosen = healthy[0]
	}

	chosen.lastUsed = pl.now()
	return chosen.snapshot(), true
}

// MarkFailed records a failed request through server.
func (pl *Pool) MarkFailed(server string) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	e := pl.find(server)
	if e == nil {
		return
	}
	if e.health.onFailure(pl.now()) {
		logger.WithProxy(server).Warnw("Proxy marked unhealthy", "failures", e.health.failureCount)
	}
}

// MarkSuccess resets the failure count of server and restores its health.
func (pl *Pool) MarkSuccess(server string) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	e := pl.find(server)
	if e == nil {
		return
	}
	if e.health.onSuccess() {
		logger.WithProxy(server).Infow("Proxy recovered")
	}
}

// SetRotationStrategy changes how NextProxy selects proxies.
func (pl *Pool) SetRotationStrategy(s RotationStrategy) error {
	parsed, err := ParseStrategy(string(s))
	if err != nil {
		return err
	}
	pl.mu.Lock()
	defer pl.mu.Unlock()
	pl.strategy = parsed
	pl.rrIndex = 0
	pl.logger.Infow("Rotation strategy changed", "strategy", parsed)
	return nil
}

// ResetHealth marks every proxy healthy with no failures.
func (pl *Pool) ResetHealth() {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	for _, e := range pl.entries {
		e.health.reset()
	}
	pl.logger.Infow("Proxy health reset", "proxies", len(pl.entries))
}

// Len returns the number of proxies in the pool.
func (pl *Pool) Len() int {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return len(pl.entries)
}

// Stats returns a snapshot of the pool.
func (pl *Pool) Stats() PoolStats {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	stats := PoolStats{
		Total:    len(pl.entries),
		Strategy: pl.strategy,
		Proxies:  make([]Proxy, 0, len(pl.entries)),
	}
	for _, e := range pl.entries {
		if e.health.healthy {
			stats.Healthy++
		} else {
			stats.Unhealthy++
		}
		stats.Proxies = append(stats.Proxies, e.snapshot())
	}
	return stats
}

func (pl *Pool) find(server string) *entry {
	for _, e := range pl.entries {
		if e.proxy.Server == server {
			return e
		}
	}
	return nil
}
