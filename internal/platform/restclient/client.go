// Package restclient is the JSON-over-HTTP plumbing shared by the backend clients:
// bearer auth, {"detail": ...} error bodies, client spans and bounded GET retries.
package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 64 << 10
	tracerName     = "singlebrief.restclient"
)

// Client sends JSON requests to one base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	retryWait  time.Duration
	tracer     trace.Tracer
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client (its Timeout is left as given).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMaxRetries sets how many times a GET is retried after a transport error or a 502/503/504.
// Other methods are never retried.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithRetryWait sets the initial backoff between GET retries.
func WithRetryWait(d time.Duration) Option {
	return func(c *Client) { c.retryWait = d }
}

// WithLogger sets the logger used for retry and failure diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a Client for baseURL. timeout bounds each attempt; zero means 10s.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		retryWait:  200 * time.Millisecond,
		tracer:     otel.Tracer(tracerName),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the base URL without trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Do sends a request to baseURL+path. in, when non-nil, is encoded as the JSON body; out, when
// non-nil, receives the decoded 2xx response. bearer, when non-empty, is sent as Authorization.
// Non-2xx responses return *APIError.
func (c *Client) Do(ctx context.Context, method, path, bearer string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("restclient: encode %s %s: %w", method, path, err)
		}
	}

	ctx, span := c.tracer.Start(ctx, method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	defer span.End()

	attempt := func() (struct{}, error) {
		return struct{}{}, c.once(ctx, span, method, path, bearer, payload, out)
	}

	var err error
	if method == http.MethodGet && c.maxRetries > 0 {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = c.retryWait
		_, err = backoff.Retry(ctx, attempt,
			backoff.WithBackOff(b),
			backoff.WithMaxTries(uint(c.maxRetries+1)),
			backoff.WithNotify(func(err error, wait time.Duration) {
				c.logger.Debug("restclient: retrying GET", zap.String("path", path), zap.Duration("wait", wait), zap.Error(err))
			}),
		)
	} else {
		_, err = attempt()
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Err
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// once performs a single attempt. Errors that must not be retried are wrapped in backoff.Permanent.
func (c *Client) once(ctx context.Context, span trace.Span, method, path, bearer string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{StatusCode: resp.StatusCode, Detail: parseDetail(raw)}
		switch resp.StatusCode {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return apiErr
		}
		return backoff.Permanent(apiErr)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return backoff.Permanent(fmt.Errorf("restclient: %s %s: empty response body", method, path))
		}
		return backoff.Permanent(fmt.Errorf("restclient: decode %s %s: %w", method, path, err))
	}
	return nil
}
