package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stitcher/internal/services"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36"

// Options configures a Session.
type Options struct {
	Proxy             string
	ProxyMetadataOnly bool
	MaxRetries        int
	RetryDelay        time.Duration
	BackoffFactor     float64
	Timeout           time.Duration
	UserAgent         string
}

// Response is the subset of an HTTP response the pipeline consumes.
type Response struct {
	Status int
	Body   []byte
	Header http.Header
}

// OK reports whether the response carries a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.Status >= 200 && r.Status < 300
}

// Session is a retrying HTTP client with separate routing for metadata and
// segment requests. Transport failures and 5xx responses are retried with
// exponential backoff and jitter; other statuses are returned to the caller
// for interpretation.
type Session struct {
	metadata   *http.Client
	segments   *http.Client
	maxRetries int
	retryDelay time.Duration
	backoff    float64
	userAgent  string
}

// New constructs a Session. With ProxyMetadataOnly set, segment requests
// bypass the proxy while metadata requests keep using it.
func New(opts Options) (*Session, error) {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.BackoffFactor <= 1 {
		opts.BackoffFactor = 2
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	direct := &http.Client{Timeout: opts.Timeout}
	proxied := direct
	if strings.TrimSpace(opts.Proxy) != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "client", "proxy", fmt.Sprintf("invalid proxy %q", opts.Proxy), err)
		}
		proxied = &http.Client{
			Timeout:   opts.Timeout,
			Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		}
	}

	segments := proxied
	if opts.ProxyMetadataOnly {
		segments = direct
	}

	return &Session{
		metadata:   proxied,
		segments:   segments,
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
		backoff:    opts.BackoffFactor,
		userAgent:  opts.UserAgent,
	}, nil
}

// GetMetadata fetches a metadata document, honoring the configured proxy.
func (s *Session) GetMetadata(ctx context.Context, rawURL string) (*Response, error) {
	return s.do(ctx, s.metadata, http.MethodGet, rawURL, "", nil)
}

// PostForm submits a form-encoded metadata request.
func (s *Session) PostForm(ctx context.Context, rawURL string, form url.Values) (*Response, error) {
	return s.do(ctx, s.metadata, http.MethodPost, rawURL, "application/x-www-form-urlencoded", []byte(form.Encode()))
}

// GetSegment fetches a media segment. In metadata-only proxy mode this goes
// directly to the remote service.
func (s *Session) GetSegment(ctx context.Context, rawURL string) (*Response, error) {
	return s.do(ctx, s.segments, http.MethodGet, rawURL, "", nil)
}

func (s *Session) do(ctx context.Context, hc *http.Client, method, rawURL, contentType string, body []byte) (*Response, error) {
	delay := s.retryDelay
	var lastErr error

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, withJitter(delay)); err != nil {
				return nil, err
			}
			delay = time.Duration(float64(delay) * s.backoff)
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "client", "request", rawURL, err)
		}
		req.Header.Set("User-Agent", s.userAgent)
		req.Header.Set("Connection", "keep-alive")
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server returned %d", resp.StatusCode)
			continue
		}

		return &Response{Status: resp.StatusCode, Body: data, Header: resp.Header}, nil
	}

	return nil, services.Wrap(services.ErrTransient, "client", method, fmt.Sprintf("%s: retries exhausted", rawURL), lastErr)
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration(rand.Int63n(int64(d)))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
