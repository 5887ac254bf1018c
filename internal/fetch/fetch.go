// ABOUTME: HTTP fetcher for feed documents with conditional requests and typed failures
// ABOUTME: Retries transient failures with capped backoff; guards against SSRF and oversized bodies

package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

const MaxResponseSize = 10 * 1024 * 1024 // 10MB

const (
	DefaultUserAgent  = "podroll/1.0 (+podcast crawler)"
	defaultTimeout    = 30 * time.Second
	defaultRetries    = 2
	defaultRetryDelay = 2 * time.Second
	defaultMaxDelay   = 30 * time.Second
)

// ErrNotModified is returned when the server answers 304 to a conditional request.
var ErrNotModified = errors.New("not modified")

// Kind separates failures that will not fix themselves from transient ones.
type Kind string

const (
	// Inaccessible covers client errors and refused destinations.
	Inaccessible Kind = "inaccessible"
	// Unavailable covers server errors, throttling and transport failures.
	Unavailable Kind = "unavailable"
)

// Error is a classified fetch failure.
type Error struct {
	Kind   Kind
	URL    string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: %s (status %d)", e.URL, e.Kind, e.Status)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Result contains a fetched document and its cache validators.
type Result struct {
	URL          string
	Status       int
	Body         []byte
	ETag         string
	LastModified string
}

// Fetcher performs conditional GETs.
type Fetcher struct {
	client     *http.Client
	userAgent  string
	retries    int
	retryDelay time.Duration
	maxDelay   time.Duration
	maxSize    int64
	sleep      func(context.Context, time.Duration) error
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.client.Timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithRetries sets how many times an Unavailable failure is retried.
func WithRetries(n int, baseDelay, maxDelay time.Duration) Option {
	return func(f *Fetcher) {
		f.retries = max(n, 0)
		if baseDelay >= 0 {
			f.retryDelay = baseDelay
		}
		if maxDelay > 0 {
			f.maxDelay = maxDelay
		}
	}
}

// WithMaxSize caps the accepted body size.
func WithMaxSize(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxSize = n
		}
	}
}

// WithSleeper overrides how retry waits are performed.
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(f *Fetcher) {
		f.sleep = sleep
	}
}

// New creates a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:     &http.Client{Timeout: defaultTimeout},
		userAgent:  DefaultUserAgent,
		retries:    defaultRetries,
		retryDelay: defaultRetryDelay,
		maxDelay:   defaultMaxDelay,
		maxSize:    MaxResponseSize,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves rawURL. Non-empty etag and lastModified are sent as conditional
// headers. A 304 returns ErrNotModified; other failures return *Error.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, etag, lastModified string) (*Result, error) {
	for attempt := 0; ; attempt++ {
		res, err := f.fetchOnce(ctx, rawURL, etag, lastModified)
		if err == nil || attempt >= f.retries || !retryable(ctx, err) {
			return res, err
		}

		delay := min(f.retryDelay<<attempt, f.maxDelay)
		if err := f.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == Unavailable
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL, etag, lastModified string) (*Result, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") {
		return nil, &Error{Kind: Inaccessible, URL: rawURL, Err: fmt.Errorf("invalid URL: %q", rawURL)}
	}

	if ips, err := net.DefaultResolver.LookupIPAddr(ctx, parsedURL.Hostname()); err == nil {
		for _, ip := range ips {
			if isPrivateIP(ip.IP) {
				return nil, &Error{Kind: Inaccessible, URL: rawURL, Err: errors.New("access to private IP ranges is not allowed")}
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{Kind: Inaccessible, URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5")
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastModified != "" {
		req.Header.Set("If-Modified-Since", lastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &Error{Kind: Unavailable, URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return nil, ErrNotModified
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= http.StatusInternalServerError:
		return nil, &Error{Kind: Unavailable, URL: rawURL, Status: resp.StatusCode}
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, &Error{Kind: Inaccessible, URL: rawURL, Status: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		return nil, &Error{Kind: Unavailable, URL: rawURL, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, &Error{Kind: Unavailable, URL: rawURL, Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	if int64(len(body)) > f.maxSize {
		return nil, &Error{Kind: Inaccessible, URL: rawURL, Err: fmt.Errorf("response too large (exceeds %d bytes)", f.maxSize)}
	}

	return &Result{
		URL:          resp.Request.URL.String(),
		Status:       resp.StatusCode,
		Body:         body,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
	}, nil
}

// isPrivateIP checks if an IP address is in a private range (excluding loopback for tests).
func isPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() {
		return false
	}
	return ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
