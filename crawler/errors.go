package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
	"time"
)

// Error codes for different types of errors
const (
	ErrCodeInvalidURL       = "INVALID_URL"
	ErrCodeLaunchFailed     = "LAUNCH_FAILED"
	ErrCodeNavigationError  = "NAVIGATION_ERROR"
	ErrCodeTimeoutError     = "TIMEOUT_ERROR"
	ErrCodeParseError       = "PARSE_ERROR"
	ErrCodeRobotsDisallowed = "ROBOTS_DISALLOWED"
	ErrCodeCanceled         = "CANCELED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// CrawlError represents a structured error with additional context
type CrawlError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	URL       string    `json:"url,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Cause     error     `json:"-"`
}

// Error implements the error interface
func (e *CrawlError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *CrawlError) Unwrap() error {
	return e.Cause
}

// NewCrawlError creates a new CrawlError
func NewCrawlError(code, message string) *CrawlError {
	return &CrawlError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// WithDetails adds details to the error
func (e *CrawlError) WithDetails(details string) *CrawlError {
	e.Details = details
	return e
}

// WithURL adds URL context to the error
func (e *CrawlError) WithURL(url string) *CrawlError {
	e.URL = url
	return e
}

// WithCause adds the underlying error cause
func (e *CrawlError) WithCause(cause error) *CrawlError {
	e.Cause = cause
	return e
}

// GetCrawlError extracts a CrawlError from an error chain
func GetCrawlError(err error) *CrawlError {
	var ce *CrawlError
	if errors.As(err, &ce) {
		return ce
	}
	return nil
}

// HasCode reports whether err carries a CrawlError with the given code.
func HasCode(err error, code string) bool {
	ce := GetCrawlError(err)
	return ce != nil && ce.Code == code
}

// Common error constructors
func NewInvalidURLError(url string, cause error) *CrawlError {
	return NewCrawlError(ErrCodeInvalidURL, "Invalid URL format").
		WithURL(url).
		WithCause(cause)
}

func NewLaunchError(cause error) *CrawlError {
	return NewCrawlError(ErrCodeLaunchFailed, "Failed to start page renderer").
		WithCause(cause)
}

func NewNavigationError(url string, cause error) *CrawlError {
	return NewCrawlError(ErrCodeNavigationError, "Failed to load page").
		WithURL(url).
		WithCause(cause)
}

func NewTimeoutError(url string, timeout time.Duration) *CrawlError {
	return NewCrawlError(ErrCodeTimeoutError, fmt.Sprintf("Navigation timed out after %v", timeout)).
		WithURL(url)
}

func NewParseError(url string, cause error) *CrawlError {
	return NewCrawlError(ErrCodeParseError, "Failed to parse HTML content").
		WithURL(url).
		WithCause(cause)
}

func NewRobotsDisallowedError(url string) *CrawlError {
	return NewCrawlError(ErrCodeRobotsDisallowed, "Start URL is disallowed by robots.txt").
		WithURL(url)
}

func NewCanceledError(url string, cause error) *CrawlError {
	return NewCrawlError(ErrCodeCanceled, "Crawl canceled").
		WithURL(url).
		WithCause(cause)
}

// transientSignatures are substrings of navigation errors worth retrying.
var transientSignatures = []string{
	"net::err_",
	"timeout",
	"timed out",
	"connection reset",
	"connection refused",
	"no such host",
	"eof",
}

// IsTransient reports whether err is a navigation or network failure that a
// retry may fix. Cancellation of the caller's context is never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if ce := GetCrawlError(err); ce != nil {
		switch ce.Code {
		case ErrCodeTimeoutError:
			return true
		case ErrCodeNavigationError:
			// fall through to the cause checks below
		default:
			return false
		}
	}

	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, sig := range transientSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
