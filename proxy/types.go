package proxy

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// Pool errors
var (
	ErrDuplicate       = errors.New("proxy already in pool")
	ErrNotFound        = errors.New("proxy not in pool")
	ErrInvalidProxy    = errors.New("invalid proxy address")
	ErrUnknownStrategy = errors.New("unknown rotation strategy")
)

// DefaultMaxFailures is the number of consecutive failures after which a
// proxy stops being selected.
const DefaultMaxFailures = 3

// Proxy is a single proxy endpoint with its health state.
type Proxy struct {
	Server       string    `json:"server"`
	Username     string    `json:"username,omitempty"`
	Password     string    `json:"-"`
	Protocol     string    `json:"protocol"`
	FailureCount int       `json:"failure_count"`
	Healthy      bool      `json:"healthy"`
	LastUsed     time.Time `json:"last_used"`
	LastFailure  time.Time `json:"last_failure"`
}

// URL returns the proxy address in the form http.Transport expects.
func (p Proxy) URL() *url.URL {
	u := &url.URL{Scheme: p.Protocol, Host: p.Server}
	if u.Scheme == "" {
		u.Scheme = "http"
	}
	if p.Username != "" {
		u.User = url.UserPassword(p.Username, p.Password)
	}
	return u
}

// ParseProxy parses "[scheme://][user:pass@]host:port". The scheme defaults
// to http.
func ParseProxy(raw string) (Proxy, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Proxy{}, fmt.Errorf("%w: empty", ErrInvalidProxy)
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Proxy{}, fmt.Errorf("%w: %v", ErrInvalidProxy, err)
	}
	switch u.Scheme {
	case "http", "https", "socks5":
	default:
		return Proxy{}, fmt.Errorf("%w: unsupported protocol %q", ErrInvalidProxy, u.Scheme)
	}
	if _, port, err := net.SplitHostPort(u.Host); err != nil || port == "" {
		return Proxy{}, fmt.Errorf("%w: %q needs host:port", ErrInvalidProxy, u.Host)
	}

	p := Proxy{Server: u.Host, Protocol: u.Scheme, Healthy: true}
	if u.User != nil {
		p.Username = u.User.Username()
		p.Password, _ = u.User.Password()
	}
	return p, nil
}

// RotationStrategy selects the next proxy among the healthy ones.
type RotationStrategy string

const (
	RoundRobin  RotationStrategy = "round-robin"
	Random      RotationStrategy = "random"
	HealthBased RotationStrategy = "health"
)

// ParseStrategy converts a strategy name into a RotationStrategy
func ParseStrategy(name string) (RotationStrategy, error) {
	switch s := RotationStrategy(strings.ToLower(strings.TrimSpace(name))); s {
	case RoundRobin, Random, HealthBased:
		return s, nil
	case "health-based":
		return HealthBased, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// PoolStats summarizes the pool.
type PoolStats struct {
	Total     int              `json:"total"`
	Healthy   int              `json:"healthy"`
	Unhealthy int              `json:"unhealthy"`
	Strategy  RotationStrategy `json:"strategy"`
	Proxies   []Proxy          `json:"proxies"`
}
