package crawler

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"streetwise-crawler/logger"
)

// RobotsPolicy decides whether a URL may be crawled.
type RobotsPolicy interface {
	Allowed(ctx context.Context, u *url.URL) bool
}

// RobotsChecker fetches robots.txt once per host and tests paths against
// the configured agent. Hosts whose robots.txt cannot be fetched or parsed
// allow everything.
type RobotsChecker struct {
	client *http.Client
	agent  string
	logger *zap.SugaredLogger

	mu     sync.Mutex
	hosts  map[string]*robotstxt.Group
	flight singleflight.Group
}

// NewRobotsChecker creates a checker that identifies as agent
func NewRobotsChecker(client *http.Client, agent string) *RobotsChecker {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if agent == "" {
		agent = DefaultUserAgent
	}
	return &RobotsChecker{
		client: client,
		agent:  agent,
		logger: logger.WithComponent("robots"),
		hosts:  make(map[string]*robotstxt.Group),
	}
}

// Allowed reports whether u may be crawled.
func (rc *RobotsChecker) Allowed(ctx context.Context, u *url.URL) bool {
	group := rc.group(ctx, u)
	if group == nil {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return group.Test(path)
}

func (rc *RobotsChecker) group(ctx context.Context, u *url.URL) *robotstxt.Group {
	key := u.Scheme + "://" + u.Host

	rc.mu.Lock()
	g, ok := rc.hosts[key]
	rc.mu.Unlock()
	if ok {
		return g
	}

	// Concurrent lookups of one origin share a single fetch. A fetch cut
	// short by the caller's context is not cached.
	v, _, _ := rc.flight.Do(key, func() (interface{}, error) {
		g := rc.fetch(ctx, key)
		if ctx.Err() == nil {
			rc.mu.Lock()
			rc.hosts[key] = g
			rc.mu.Unlock()
		}
		return g, nil
	})
	g, _ = v.(*robotstxt.Group)
	return g
}

func (rc *RobotsChecker) fetch(ctx context.Context, origin string) *robotstxt.Group {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", rc.agent)

	resp, err := rc.client.Do(req)
	if err != nil {
		rc.logger.Debugw("robots.txt unavailable", "origin", origin, "error", err)
		return nil
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		rc.logger.Debugw("robots.txt unparsable", "origin", origin, "error", err)
		return nil
	}
	return data.FindGroup(rc.agent)
}
