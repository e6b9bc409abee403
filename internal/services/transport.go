package services

import (
	"context"
	"io"
	"math"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/deemixkit/internal/shared"
	"golang.org/x/time/rate"
)

const maxRetryAfter = time.Minute

// HTTPOpts configures the shared catalog [Transport].
type HTTPOpts struct {
	Timeout           time.Duration // Per-attempt timeout
	MaxRetries        int
	Backoff           time.Duration // Attempt n waits Backoff * 2^n
	RetryStatuses     []int
	UserAgent         string
	RequestsPerSecond float64 // 0 disables the limiter
	Base              http.RoundTripper
	Logger            *log.Logger
}

// HTTPOptsFromConfig builds [HTTPOpts] from the [http] config section.
func HTTPOptsFromConfig(c shared.HTTPConfig, logger *log.Logger) HTTPOpts {
	return HTTPOpts{
		Timeout:           c.Timeout(),
		MaxRetries:        c.MaxRetries,
		Backoff:           c.Backoff(),
		RetryStatuses:     slices.Clone(c.RetryStatuses),
		UserAgent:         c.UserAgent,
		RequestsPerSecond: c.RequestsPerSecond,
		Logger:            logger,
	}
}

// Transport is an [http.RoundTripper] that applies a per-attempt timeout, a politeness rate
// limit, identifying headers and bounded retries for transient failures.
//
// Only network errors and the configured statuses are retried. Requests whose body cannot be
// replayed (no GetBody) are sent once.
type Transport struct {
	base       http.RoundTripper
	limiter    *rate.Limiter
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
	statuses   []int
	userAgent  string
	logger     *log.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewTransport creates a [Transport] from opts.
func NewTransport(opts HTTPOpts) *Transport {
	if opts.Base == nil {
		opts.Base = http.DefaultTransport
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &Transport{
		base:       opts.Base,
		limiter:    limiter,
		timeout:    opts.Timeout,
		maxRetries: max(opts.MaxRetries, 0),
		backoff:    opts.Backoff,
		statuses:   opts.RetryStatuses,
		userAgent:  opts.UserAgent,
		logger:     opts.Logger,
		sleep:      sleepContext,
	}
}

// NewHTTPClient returns an [http.Client] backed by a [Transport].
func NewHTTPClient(opts HTTPOpts) *http.Client {
	return &http.Client{Transport: NewTransport(opts)}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	replayable := req.Body == nil || req.Body == http.NoBody || req.GetBody != nil

	for attempt := 0; ; attempt++ {
		if t.limiter != nil {
			if err := t.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := t.attempt(req, attempt)
		if !t.retryable(ctx, resp, err) || attempt >= t.maxRetries || !replayable {
			return resp, err
		}

		wait := t.delay(attempt, resp)
		if resp != nil {
			t.logger.Warn("retrying request", "url", req.URL.Redacted(), "status", resp.StatusCode, "attempt", attempt+1, "wait", wait)
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		} else {
			t.logger.Warn("retrying request", "url", req.URL.Redacted(), "err", err, "attempt", attempt+1, "wait", wait)
		}

		if err := t.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// attempt sends a single copy of req bounded by the per-attempt timeout.
func (t *Transport) attempt(req *http.Request, n int) (*http.Response, error) {
	ctx, cancel := req.Context(), context.CancelFunc(func() {})
	if t.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
	}

	r := req.Clone(ctx)
	if n > 0 && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			cancel()
			return nil, err
		}
		r.Body = body
	}
	if t.userAgent != "" && r.Header.Get("User-Agent") == "" {
		r.Header.Set("User-Agent", t.userAgent)
	}
	if r.Header.Get("Accept") == "" {
		r.Header.Set("Accept", "application/json")
	}

	resp, err := t.base.RoundTrip(r)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

func (t *Transport) retryable(ctx context.Context, resp *http.Response, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if err != nil {
		return true
	}
	return slices.Contains(t.statuses, resp.StatusCode)
}

// delay is backoff * 2^attempt, raised to the server's Retry-After when that is longer.
func (t *Transport) delay(attempt int, resp *http.Response) time.Duration {
	wait := time.Duration(float64(t.backoff) * math.Pow(2, float64(attempt)))
	if resp == nil {
		return wait
	}
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		if ra := min(time.Duration(secs)*time.Second, maxRetryAfter); ra > wait {
			return ra
		}
	}
	return wait
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

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
