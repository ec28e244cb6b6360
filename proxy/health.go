package proxy

import "time"

// health tracks consecutive failures of one proxy. It trips after
// threshold failures and closes again on the next success or a reset.
type health struct {
	failureCount    int
	healthy         bool
	lastFailureTime time.Time
	threshold       int
}

func newHealth(threshold int) *health {
	if threshold < 1 {
		threshold = DefaultMaxFailures
	}
	return &health{healthy: true, threshold: threshold}
}

// onFailure records a failed request and reports whether it tripped the proxy.
func (h *health) onFailure(now time.Time) bool {
	h.failureCount++
	h.lastFailureTime = now
	if h.healthy && h.failureCount >= h.threshold {
		h.healthy = false
		return true
	}
	return false
}

// onSuccess records a successful request and reports whether it revived the proxy.
func (h *health) onSuccess() bool {
	revived := !h.healthy
	h.failureCount = 0
	h.healthy = true
	return revived
}

func (h *health) reset() {
	h.failureCount = 0
	h.healthy = true
}
