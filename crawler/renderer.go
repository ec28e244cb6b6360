package crawler

import (
	"context"
	"fmt"
	"net/http"
)

// Renderer kinds accepted by NewLauncher
const (
	RendererHTTP    = "http"
	RendererBrowser = "browser"
)

// Renderer loads a URL and returns the rendered HTML document.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// Session is a renderer bound to one launched engine. Close releases the
// engine and must be called exactly once.
type Session interface {
	Renderer
	Close() error
}

// Launcher starts rendering sessions. One session serves a whole crawl.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// LauncherFunc adapts a function to the Launcher interface.
type LauncherFunc func(ctx context.Context) (Session, error)

// Launch calls f(ctx).
func (f LauncherFunc) Launch(ctx context.Context) (Session, error) {
	return f(ctx)
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(ctx context.Context, url string) (string, error)

// Render calls f(ctx, url).
func (f RendererFunc) Render(ctx context.Context, url string) (string, error) {
	return f(ctx, url)
}

// nopSession wraps a Renderer that holds no engine resources.
type nopSession struct {
	Renderer
}

func (nopSession) Close() error { return nil }

// StaticLauncher returns a launcher whose sessions all share r.
func StaticLauncher(r Renderer) Launcher {
	return LauncherFunc(func(context.Context) (Session, error) {
		return nopSession{r}, nil
	})
}

// NewLauncher builds the launcher for kind. transport carries the HTTP
// renderer's requests; proxyServer feeds the browser its proxy.
func NewLauncher(kind string, transport http.RoundTripper, userAgent, chromePath string, proxyServer func() string) (Launcher, error) {
	switch kind {
	case RendererHTTP, "":
		return NewHTTPLauncher(transport, userAgent), nil
	case RendererBrowser:
		l := NewBrowserLauncher(chromePath, userAgent)
		l.ProxyServer = proxyServer
		return l, nil
	default:
		return nil, fmt.Errorf("unknown renderer %q", kind)
	}
}
