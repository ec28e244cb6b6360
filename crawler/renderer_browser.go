package crawler

import (
	"context"
	"errors"
	"time"

	"github.com/chromedp/chromedp"
)

// BrowserLauncher renders pages in headless Chrome.
type BrowserLauncher struct {
	ExecPath  string
	UserAgent string
	Timeout   time.Duration
	Settle    time.Duration

	// ProxyServer, when set, is asked for a proxy at every launch.
	// An empty result launches without a proxy.
	ProxyServer func() string
}

// NewBrowserLauncher creates a launcher with the desktop defaults
func NewBrowserLauncher(execPath, userAgent string) *BrowserLauncher {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &BrowserLauncher{
		ExecPath:  execPath,
		UserAgent: userAgent,
		Timeout:   NavigationTimeout,
		Settle:    SettleDelay,
	}
}

// Launch starts a browser process. Failure to start is fatal for the crawl.
func (l *BrowserLauncher) Launch(ctx context.Context) (Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(l.UserAgent),
		chromedp.WindowSize(ViewportWidth, ViewportHeight),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
	)
	if l.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.ExecPath))
	}
	if l.ProxyServer != nil {
		if server := l.ProxyServer(); server != "" {
			opts = append(opts, chromedp.ProxyServer(server))
		}
	}

	// The browser outlives the launch request; only the crawl's Close ends it.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, NewLaunchError(err)
	}

	return &browserSession{
		launcher:      l,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
	}, nil
}

type browserSession struct {
	launcher      *BrowserLauncher
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
}

// Render opens a tab, navigates, waits for the document to settle and
// returns its outer HTML.
func (s *browserSession) Render(ctx context.Context, pageURL string) (string, error) {
	tabCtx, tabCancel := chromedp.NewContext(s.browserCtx)
	defer tabCancel()

	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, s.launcher.Timeout)
	defer timeoutCancel()

	// Propagate the caller's cancellation into the tab
	stop := context.AfterFunc(ctx, timeoutCancel)
	defer stop()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(s.launcher.Settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return "", NewCanceledError(pageURL, ctx.Err())
		case errors.Is(err, context.DeadlineExceeded), errors.Is(tabCtx.Err(), context.DeadlineExceeded):
			return "", NewTimeoutError(pageURL, s.launcher.Timeout).WithCause(err)
		default:
			return "", NewNavigationError(pageURL, err)
		}
	}
	return html, nil
}

// Close shuts the browser down and releases the allocator.
func (s *browserSession) Close() error {
	err := chromedp.Cancel(s.browserCtx)
	s.browserCancel()
	s.allocCancel()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
