// Package fetch configures resty clients with the retry policy shared by all
// outbound provider calls: transient failures (5xx, timeouts, network errors)
// are retried with capped exponential backoff, client errors are surfaced
// immediately.
package fetch

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/twojabajka/server/internal/infra"
)

const (
	// DefaultMaxRetries is the total number of attempts, first call included.
	DefaultMaxRetries   = 3
	DefaultInitialDelay = 1 * time.Second
	DefaultMaxDelay     = 10 * time.Second
)

// Options tunes retry behavior for one client.
type Options struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Timeout      time.Duration
	Logger       *infra.Logger
}

// NewClient builds a resty client that retries 5xx responses, request
// timeouts and network-level errors up to MaxRetries total attempts, waiting
// min(InitialDelay·2^attempt, MaxDelay) between them. 4xx responses never
// retry; callers surface them via StatusError.
func NewClient(opts Options) *resty.Client {
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	initialDelay := opts.InitialDelay
	if initialDelay <= 0 {
		initialDelay = DefaultInitialDelay
	}
	maxDelay := opts.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}
	logger := opts.Logger
	if logger == nil {
		nop := infra.Logger(zerolog.Nop())
		logger = &nop
	}

	client := resty.New()
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	client.SetRetryCount(maxRetries - 1).
		SetRetryAfter(func(c *resty.Client, resp *resty.Response) (time.Duration, error) {
			// resp.Request.Attempt is 1-based and counts finished attempts.
			delay := BackoffDelay(initialDelay, maxDelay, resp.Request.Attempt-1)
			status := 0
			if resp.RawResponse != nil {
				status = resp.StatusCode()
			}
			logger.Warn().
				Str("url", resp.Request.URL).
				Int("attempt", resp.Request.Attempt).
				Int("status", status).
				Dur("delay", delay).
				Msg("fetch: retrying transient failure")
			return delay, nil
		}).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
	client.SetLogger(restyLogger{logger})
	return client
}

// BackoffDelay returns min(initial·2^attempt, max) for a zero-based attempt
// index.
func BackoffDelay(initial, max time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := initial << uint(attempt)
	if delay > max || delay <= 0 {
		delay = max
	}
	return delay
}

// StatusError converts a non-2xx resty response into a descriptive error
// carrying the URL, status and a truncated body. Returns nil for 2xx.
func StatusError(resp *resty.Response) error {
	if resp == nil {
		return fmt.Errorf("fetch: no response")
	}
	if resp.IsSuccess() {
		return nil
	}
	return fmt.Errorf("fetch: %s %s: status %d: %s",
		resp.Request.Method, resp.Request.URL, resp.StatusCode(), TruncateBody(resp.String(), 500))
}

// TruncateBody trims a response body for inclusion in errors and logs.
func TruncateBody(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	return body[:max]
}

// DrainBody reads and returns at most max bytes of r for diagnostics.
func DrainBody(r io.Reader, max int64) string {
	data, _ := io.ReadAll(io.LimitReader(r, max))
	return string(data)
}

type restyLogger struct {
	l *infra.Logger
}

func (r restyLogger) Errorf(format string, v ...interface{}) { r.l.Error().Msgf(format, v...) }
func (r restyLogger) Warnf(format string, v ...interface{})  { r.l.Warn().Msgf(format, v...) }
func (r restyLogger) Debugf(format string, v ...interface{}) { r.l.Debug().Msgf(format, v...) }
