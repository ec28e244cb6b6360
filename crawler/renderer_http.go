package crawler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"
)

// HTTPLauncher renders pages with plain HTTP GET requests. It does not run
// scripts; the settle delay is skipped. Like a browser navigation, any
// response status yields a document.
type HTTPLauncher struct {
	Client    *http.Client
	UserAgent string
	Timeout   time.Duration
}

// NewHTTPLauncher creates a launcher sending requests through transport.
// A nil transport uses http.DefaultTransport.
func NewHTTPLauncher(transport http.RoundTripper, userAgent string) *HTTPLauncher {
	if transport == nil {
		transport = http.DefaultTransport
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &HTTPLauncher{
		Client:    &http.Client{Transport: transport},
		UserAgent: userAgent,
		Timeout:   NavigationTimeout,
	}
}

// Launch returns a session sharing the launcher's client.
func (l *HTTPLauncher) Launch(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewLaunchError(err)
	}
	return nopSession{RendererFunc(l.render)}, nil
}

func (l *HTTPLauncher) render(ctx context.Context, pageURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, l.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", NewInvalidURLError(pageURL, err)
	}
	req.Header.Set("User-Agent", l.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := l.Client.Do(req)
	if err != nil {
		return "", l.classify(ctx, pageURL, err)
	}
	defer resp.Body.Close()

	reader, err := charset.NewReader(io.LimitReader(resp.Body, MaxResponseBody), resp.Header.Get("Content-Type"))
	if err != nil {
		return "", NewParseError(pageURL, err)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return "", l.classify(ctx, pageURL, err)
	}
	return string(body), nil
}

func (l *HTTPLauncher) classify(ctx context.Context, pageURL string, err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return NewCanceledError(pageURL, err)
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return NewTimeoutError(pageURL, l.Timeout).WithCause(err)
	default:
		return NewNavigationError(pageURL, err)
	}
}
