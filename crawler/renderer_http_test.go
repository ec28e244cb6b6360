package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPLauncher_Render(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/latin1":
			w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
			w.Write([]byte("<html><body>caf\xe9</body></html>"))
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("<html><head><title>Not Found</title></head></html>"))
		default:
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte("<html><body>ok " + r.Header.Get("User-Agent") + "</body></html>"))
		}
	}))
	defer server.Close()

	session, err := NewHTTPLauncher(nil, "test-agent").Launch(context.Background())
	if err != nil {
		t.Fatalf("Launch returned error: %v", err)
	}
	defer session.Close()

	testCases := []struct {
		name     string
		path     string
		contains string
	}{
		{"utf-8 with user agent", "/", "ok test-agent"},
		{"latin-1 decoded", "/latin1", "café"},
		{"error status still renders", "/missing", "Not Found"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			html, err := session.Render(context.Background(), server.URL+tc.path)
			if err != nil {
				t.Fatalf("Render returned error: %v", err)
			}
			if !strings.Contains(html, tc.contains) {
				t.Errorf("Expected body to contain %q, got %q", tc.contains, html)
			}
		})
	}
}

func TestHTTPLauncher_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	launcher := NewHTTPLauncher(nil, "")
	launcher.Timeout = 50 * time.Millisecond
	session, _ := launcher.Launch(context.Background())

	_, err := session.Render(context.Background(), server.URL)
	if !HasCode(err, ErrCodeTimeoutError) {
		t.Errorf("Expected %s error, got %v", ErrCodeTimeoutError, err)
	}
	if !IsTransient(err) {
		t.Error("Expected timeout to be transient")
	}
}

func TestHTTPLauncher_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	session, _ := NewHTTPLauncher(nil, "").Launch(context.Background())
	_, err := session.Render(context.Background(), addr)
	if !HasCode(err, ErrCodeNavigationError) {
		t.Errorf("Expected %s error, got %v", ErrCodeNavigationError, err)
	}
	if !IsTransient(err) {
		t.Errorf("Expected refused connection to be transient, got %v", err)
	}
}

func TestHTTPLauncher_LaunchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewHTTPLauncher(nil, "").Launch(ctx); !HasCode(err, ErrCodeLaunchFailed) {
		t.Errorf("Expected %s error, got %v", ErrCodeLaunchFailed, err)
	}
}

func TestNewLauncher(t *testing.T) {
	testCases := []struct {
		kind    string
		wantErr bool
	}{
		{RendererHTTP, false},
		{"", false},
		{RendererBrowser, false},
		{"lynx", true},
	}

	for _, tc := range testCases {
		t.Run(tc.kind, func(t *testing.T) {
			l, err := NewLauncher(tc.kind, nil, "", "", nil)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Expected error=%v, got %v", tc.wantErr, err)
			}
			if tc.wantErr {
				return
			}
			switch tc.kind {
			case RendererBrowser:
				if _, ok := l.(*BrowserLauncher); !ok {
					t.Errorf("Expected *BrowserLauncher, got %T", l)
				}
			default:
				if _, ok := l.(*HTTPLauncher); !ok {
					t.Errorf("Expected *HTTPLauncher, got %T", l)
				}
			}
		})
	}
}
