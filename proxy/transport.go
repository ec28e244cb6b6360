package proxy

import (
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"streetwise-crawler/logger"
)

// failureStatuses are responses that suggest the proxy was blocked.
var failureStatuses = map[int]bool{
	http.StatusForbidden:         true,
	http.StatusProxyAuthRequired: true,
	http.StatusTooManyRequests:   true,
}

// Transport is an http.RoundTripper that throttles requests, routes them
// through the pool's next healthy proxy and reports the outcome back to the
// pool. Without a healthy proxy requests go out directly. Nil Pool,
// Throttler and Fingerprints disable their step.
type Transport struct {
	Pool         *Pool
	Throttler    *Throttler
	Fingerprints *FingerprintGenerator

	base       *http.Transport
	mu         sync.Mutex
	transports map[string]*http.Transport
	logger     *zap.SugaredLogger
}

// NewTransport creates a transport over the given pool, throttler and
// fingerprint generator, any of which may be nil.
func NewTransport(pool *Pool, throttler *Throttler, fingerprints *FingerprintGenerator) *Transport {
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.Proxy = nil
	base.MaxIdleConnsPerHost = 4
	base.IdleConnTimeout = 30 * time.Second

	return &Transport{
		Pool:         pool,
		Throttler:    throttler,
		Fingerprints: fingerprints,
		base:         base,
		transports:   make(map[string]*http.Transport),
		logger:       logger.WithComponent("proxy_transport"),
	}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Throttler != nil {
		if err := t.Throttler.Throttle(req.Context()); err != nil {
			return nil, err
		}
	}

	req = req.Clone(req.Context())
	if t.Fingerprints != nil {
		t.Fingerprints.Generate().Apply(req.Header)
	}

	var (
		p       Proxy
		proxied bool
	)
	if t.Pool != nil {
		p, proxied = t.Pool.NextProxy()
	}
	if !proxied {
		return t.base.RoundTrip(req)
	}

	resp, err := t.transportFor(p).RoundTrip(req)
	switch {
	case err != nil:
		t.logger.Debugw("Proxied request failed", "proxy", p.Server, "url", req.URL.String(), "error", err)
		t.Pool.MarkFailed(p.Server)
	case failureStatuses[resp.StatusCode]:
		t.logger.Debugw("Proxy blocked", "proxy", p.Server, "url", req.URL.String(), "status", resp.StatusCode)
		t.Pool.MarkFailed(p.Server)
	default:
		t.Pool.MarkSuccess(p.Server)
	}
	return resp, err
}

// transportFor returns the cached transport routing through p.
func (t *Transport) transportFor(p Proxy) *http.Transport {
	proxyURL := p.URL()
	key := proxyURL.String()

	t.mu.Lock()
	defer t.mu.Unlock()

	if rt, ok := t.transports[key]; ok {
		return rt
	}
	rt := t.base.Clone()
	rt.Proxy = http.ProxyURL(proxyURL)
	t.transports[key] = rt
	return rt
}

// CloseIdleConnections closes idle connections of every proxy transport.
func (t *Transport) CloseIdleConnections() {
	t.base.CloseIdleConnections()
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, rt := range t.transports {
		rt.CloseIdleConnections()
	}
}
