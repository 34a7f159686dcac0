package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/out-of-energy/topshop/internal/config"
	"github.com/out-of-energy/topshop/internal/model"
	"golang.org/x/net/html/charset"
)

// Fetcher retrieves pages and probes endpoints.
// It is safe for concurrent use; the rate limiter state is shared by all
// goroutines using the same Fetcher.
type Fetcher struct {
	pageClient  *http.Client
	probeClient *http.Client
	limiter     *hostLimiter
	logger      *slog.Logger

	timeout      time.Duration
	probeTimeout time.Duration
	maxAttempts  int
	backoff      time.Duration
	userAgent    string
	maxBodySize  int64
	sites        *config.File
	transport    http.RoundTripper
	delay        time.Duration
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the per-attempt timeout of full fetches.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithProbeTimeout sets the timeout of a probe.
func WithProbeTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.probeTimeout = d
	}
}

// WithDelay sets the minimum spacing between full fetches to one host.
// Zero disables rate limiting.
func WithDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		f.delay = d
	}
}

// WithMaxAttempts sets how many times a full fetch is tried.
func WithMaxAttempts(n int) Option {
	return func(f *Fetcher) {
		f.maxAttempts = n
	}
}

// WithBackoff sets the wait before the first retry. It doubles after
// every further failed attempt.
func WithBackoff(d time.Duration) Option {
	return func(f *Fetcher) {
		f.backoff = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize sets the maximum number of body bytes read.
// Longer bodies are truncated, not rejected.
func WithMaxBodySize(size int64) Option {
	return func(f *Fetcher) {
		f.maxBodySize = size
	}
}

// WithSites enables per-site cookies and headers from the rule file.
func WithSites(sites *config.File) Option {
	return func(f *Fetcher) {
		f.sites = sites
	}
}

// WithTransport replaces the HTTP transport. Tests use it to inject
// failures; per-site headers are still applied on top of it.
func WithTransport(rt http.RoundTripper) Option {
	return func(f *Fetcher) {
		f.transport = rt
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// New creates a Fetcher with defaults from the config package.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		logger:       slog.Default(),
		timeout:      config.DefaultTimeout,
		probeTimeout: config.DefaultProbeTimeout,
		delay:        config.DefaultRateLimitDelay,
		maxAttempts:  config.DefaultMaxAttempts,
		backoff:      config.DefaultRetryBackoff,
		userAgent:    config.DefaultUserAgent,
		maxBodySize:  config.DefaultMaxBodySize,
	}

	for _, opt := range opts {
		opt(f)
	}

	transport := f.transport
	if transport == nil {
		transport = newTransport(f.sites)
	} else if f.sites != nil {
		transport = &siteTransport{base: transport, sites: f.sites}
	}
	if f.maxAttempts < 1 {
		f.maxAttempts = 1
	}
	f.pageClient = newPageClient(transport)
	f.probeClient = newProbeClient(transport)
	f.limiter = newHostLimiter(f.delay)

	return f
}

// FromConfig creates a Fetcher from runtime configuration.
func FromConfig(cfg *config.Config, logger *slog.Logger) *Fetcher {
	return New(
		WithTimeout(cfg.Timeout),
		WithProbeTimeout(cfg.ProbeTimeout),
		WithDelay(cfg.RateLimitDelay),
		WithMaxAttempts(cfg.MaxAttempts),
		WithBackoff(cfg.RetryBackoff),
		WithUserAgent(cfg.UserAgent),
		WithMaxBodySize(cfg.MaxBodySize),
		WithSites(cfg.Rules),
		WithLogger(logger),
	)
}

// Fetch retrieves rawURL in the given mode. It never returns an error;
// failures are described by the result's ErrorKind and Err.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, mode model.FetchMode) model.FetchResult {
	start := time.Now()
	var res model.FetchResult
	if mode == model.FetchModeProbe {
		res = f.probe(ctx, rawURL)
	} else {
		res = f.fetchWithRetry(ctx, rawURL)
	}
	res.Duration = time.Since(start)
	return res
}

// Exists reports whether a probe result counts as "endpoint exists":
// a response was received and its status is one of statuses.
// A redirect, a 404 or any transport failure is "absent".
func Exists(res model.FetchResult, statuses []int) bool {
	if !res.HasStatus {
		return false
	}
	return slices.Contains(statuses, res.StatusCode)
}

func (f *Fetcher) probe(ctx context.Context, rawURL string) model.FetchResult {
	res := model.FetchResult{URL: rawURL, Attempts: 1, ErrorKind: model.FetchErrorNone}

	reqCtx, cancel := context.WithTimeout(ctx, f.probeTimeout)
	defer cancel()

	req, err := f.newRequest(reqCtx, http.MethodHead, rawURL)
	if err != nil {
		res.ErrorKind, res.Err = model.FetchErrorOther, err
		return res
	}

	resp, err := f.probeClient.Do(req)
	if err != nil {
		res.ErrorKind, res.Err = classify(ctx, err)
		return res
	}
	defer resp.Body.Close()

	res.HasStatus = true
	res.StatusCode = resp.StatusCode
	res.FinalURL = resp.Request.URL.String()
	res.ContentType = resp.Header.Get("Content-Type")
	return res
}

func (f *Fetcher) fetchWithRetry(ctx context.Context, rawURL string) model.FetchResult {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return model.FetchResult{
			URL:       rawURL,
			ErrorKind: model.FetchErrorOther,
			Err:       fmt.Errorf("%w: %q", ErrInvalidURL, rawURL),
		}
	}

	var res model.FetchResult
	wait := f.backoff
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		if err := f.limiter.Wait(ctx, u.Hostname()); err != nil {
			res = model.FetchResult{URL: rawURL, ErrorKind: model.FetchErrorTimeout, Err: errors.Join(ErrTimeout, err)}
			res.Attempts = attempt - 1
			return res
		}

		res = f.fetchOnce(ctx, rawURL)
		res.Attempts = attempt
		if res.OK() || !res.ErrorKind.Retryable() || attempt == f.maxAttempts {
			return res
		}

		f.logger.Debug("retrying fetch",
			"url", rawURL,
			"attempt", attempt,
			"error_kind", string(res.ErrorKind),
			"backoff", wait,
		)
		select {
		case <-ctx.Done():
			return res
		case <-time.After(wait):
		}
		wait *= 2
	}
	return res
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) model.FetchResult {
	res := model.FetchResult{URL: rawURL, ErrorKind: model.FetchErrorNone}

	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := f.newRequest(reqCtx, http.MethodGet, rawURL)
	if err != nil {
		res.ErrorKind, res.Err = model.FetchErrorOther, err
		return res
	}

	resp, err := f.pageClient.Do(req)
	if err != nil {
		res.ErrorKind, res.Err = classify(ctx, err)
		return res
	}
	defer resp.Body.Close()

	res.HasStatus = true
	res.StatusCode = resp.StatusCode
	res.FinalURL = resp.Request.URL.String()
	res.ContentType = resp.Header.Get("Content-Type")

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		res.ErrorKind, res.Err = classify(ctx, err)
		return res
	}
	res.Body = decode(raw, res.ContentType)

	// The body of an error page is kept for diagnostics but the fetch
	// still fails.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		res.ErrorKind = model.FetchErrorHTTP
		res.Err = fmt.Errorf("%w: %d", ErrHTTPStatus, resp.StatusCode)
		return res
	}

	f.logger.Debug("fetched page",
		"url", rawURL,
		"final_url", res.FinalURL,
		"status", res.StatusCode,
		"bytes", len(res.Body),
	)
	return res
}

func (f *Fetcher) newRequest(ctx context.Context, method, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, errors.Join(ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	return req, nil
}

// decode converts body to UTF-8 using the Content-Type charset, a <meta>
// declaration or content sniffing. Undecodable input is returned as-is.
func decode(body []byte, contentType string) []byte {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return body
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return body
	}
	return out
}
