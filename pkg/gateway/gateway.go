// Package gateway sends authenticated requests to the remote REST backend with a fixed bounded retry.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/swimcoach/pkg/errors"
	"github.com/noah-isme/swimcoach/pkg/middleware/requestid"
)

const (
	defaultMaxAttempts = 3
	defaultDelay       = time.Second
	maxResponseBytes   = 4 << 20

	headerIdempotencyKey = "Idempotency-Key"
)

// Doer sends a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenProvider supplies the bearer token for outbound calls.
// An empty token with a nil error means no user is signed in.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to TokenProvider.
type TokenFunc func(ctx context.Context) (string, error)

// Token implements TokenProvider.
func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticToken always returns the same token.
func StaticToken(token string) TokenProvider {
	return TokenFunc(func(context.Context) (string, error) { return token, nil })
}

// Observer receives per-attempt telemetry. Implementations must be safe for concurrent use.
type Observer interface {
	ObserveUpstreamAttempt(method, route string, status int, duration time.Duration)
	ObserveUpstreamRetry(method, route string)
	ObserveUpstreamFailure(method, route, code string)
	SetConsecutiveFailures(n int)
}

// Config tunes the gateway.
type Config struct {
	BaseURL     string
	MaxAttempts int
	Delay       time.Duration
	// RetryUnsafeWithKey retries POST requests only when they carry an idempotency key.
	// When false, POST is never retried.
	RetryUnsafeWithKey bool
	Logger             *zap.Logger
	Observer           Observer
	// Wait blocks between attempts. Defaults to a timer honouring ctx cancellation.
	Wait func(ctx context.Context, d time.Duration) error
}

// Request describes one logical call to the backend.
type Request struct {
	Method string
	// Path is relative to the base URL, e.g. /enrollments/42/attendances.
	Path string
	// Route is a low-cardinality label for metrics and logs, e.g. /enrollments/{id}/attendances.
	Route          string
	Query          url.Values
	Body           interface{}
	IdempotencyKey string
}

// Response is a buffered successful backend response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Decode unmarshals the response body into dest. An empty body leaves dest untouched.
func (r *Response) Decode(dest interface{}) error {
	if r == nil || len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, dest); err != nil {
		e := appErrors.Wrap(err, appErrors.ErrUnknownServer.Code, appErrors.ErrUnknownServer.Status, "unparseable upstream body")
		e.UpstreamStatus = r.Status
		e.UpstreamBody = truncate(string(r.Body))
		return e
	}
	return nil
}

// Gateway attaches the bearer token to every call and retries failures a fixed number of times.
type Gateway struct {
	baseURL       string
	doer          Doer
	tokens        TokenProvider
	maxAttempts   int
	delay         time.Duration
	unsafeWithKey bool
	logger        *zap.Logger
	observer      Observer
	wait          func(ctx context.Context, d time.Duration) error

	mu       sync.Mutex
	failures int
}

// New constructs a Gateway.
func New(cfg Config, doer Doer, tokens TokenProvider) *Gateway {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Delay <= 0 {
		cfg.Delay = defaultDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Wait == nil {
		cfg.Wait = sleep
	}
	if doer == nil {
		doer = &http.Client{Timeout: 10 * time.Second}
	}
	return &Gateway{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		doer:          doer,
		tokens:        tokens,
		maxAttempts:   cfg.MaxAttempts,
		delay:         cfg.Delay,
		unsafeWithKey: cfg.RetryUnsafeWithKey,
		logger:        cfg.Logger,
		observer:      cfg.Observer,
		wait:          cfg.Wait,
	}
}

// ConsecutiveFailures returns the shared count of failed attempts since the last success.
func (g *Gateway) ConsecutiveFailures() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.failures
}

// Send performs the request, retrying failed attempts after a fixed delay.
// The returned error is always an *errors.Error carrying upstream status and body when available.
func (g *Gateway) Send(ctx context.Context, req Request) (*Response, error) {
	if req.Route == "" {
		req.Route = req.Path
	}
	req.Method = strings.ToUpper(req.Method)

	var payload []byte
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "request body is not encodable")
		}
		payload = raw
	}

	attempts := g.attemptsFor(req)
	var lastErr *appErrors.Error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := g.attempt(ctx, req, payload)
		if err == nil {
			g.resetFailures()
			return resp, nil
		}
		if isSignedOut(err) {
			// retrying cannot produce a token; the caller must send the user to login
			return nil, err
		}
		lastErr = err
		g.recordFailure()
		if attempt == attempts || ctx.Err() != nil {
			break
		}

		g.logger.Warn("upstream call failed, retrying",
			zap.String("method", req.Method),
			zap.String("route", req.Route),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.String("code", err.Code),
			zap.Error(err),
		)
		if g.observer != nil {
			g.observer.ObserveUpstreamRetry(req.Method, req.Route)
		}
		if werr := g.wait(ctx, g.delay); werr != nil {
			lastErr = appErrors.Wrap(werr, appErrors.ErrTransient.Code, appErrors.ErrTransient.Status, "request cancelled while waiting to retry")
			break
		}
	}

	g.resetFailures()
	if g.observer != nil {
		g.observer.ObserveUpstreamFailure(req.Method, req.Route, lastErr.Code)
	}
	g.logger.Error("upstream call failed",
		zap.String("method", req.Method),
		zap.String("route", req.Route),
		zap.String("code", lastErr.Code),
		zap.Int("upstream_status", lastErr.UpstreamStatus),
		zap.Error(lastErr),
	)
	return nil, lastErr
}

// attemptsFor restricts retries of non-idempotent methods.
func (g *Gateway) attemptsFor(req Request) int {
	if req.Method != http.MethodPost {
		return g.maxAttempts
	}
	if g.unsafeWithKey && req.IdempotencyKey != "" {
		return g.maxAttempts
	}
	return 1
}

func (g *Gateway) attempt(ctx context.Context, req Request, payload []byte) (*Response, *appErrors.Error) {
	if g.tokens == nil {
		return nil, appErrors.Clone(appErrors.ErrAuthMissing, "no token provider configured")
	}
	token, err := g.tokens.Token(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrAuthMissing.Code, appErrors.ErrAuthMissing.Status, "failed to acquire token")
	}
	if token == "" {
		return nil, appErrors.Clone(appErrors.ErrAuthMissing, "")
	}

	httpReq, err := g.buildRequest(ctx, req, payload, token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request")
	}

	start := time.Now()
	resp, err := g.doer.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		if g.observer != nil {
			g.observer.ObserveUpstreamAttempt(req.Method, req.Route, 0, duration)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrTransient.Code, appErrors.ErrTransient.Status, "upstream unreachable")
	}
	defer resp.Body.Close()

	if g.observer != nil {
		g.observer.ObserveUpstreamAttempt(req.Method, req.Route, resp.StatusCode, duration)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransient.Code, appErrors.ErrTransient.Status, "failed to read upstream body")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, appErrors.FromUpstream(resp.StatusCode, truncate(string(body)))
	}

	return &Response{Status: resp.StatusCode, Header: resp.Header.Clone(), Body: body}, nil
}

func (g *Gateway) buildRequest(ctx context.Context, req Request, payload []byte, token string) (*http.Request, error) {
	target := g.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", req.Method, req.Route, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if id := requestid.FromContext(ctx); id != "" {
		httpReq.Header.Set(requestid.HeaderKey, id)
	}
	if req.IdempotencyKey != "" {
		httpReq.Header.Set(headerIdempotencyKey, req.IdempotencyKey)
	}
	return httpReq, nil
}

func (g *Gateway) recordFailure() {
	g.mu.Lock()
	g.failures++
	n := g.failures
	g.mu.Unlock()
	if g.observer != nil {
		g.observer.SetConsecutiveFailures(n)
	}
}

func (g *Gateway) resetFailures() {
	g.mu.Lock()
	g.failures = 0
	g.mu.Unlock()
	if g.observer != nil {
		g.observer.SetConsecutiveFailures(0)
	}
}

func isSignedOut(err *appErrors.Error) bool {
	return err.Code == appErrors.ErrAuthMissing.Code && err.UpstreamStatus == 0 && err.Err == nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(s string) string {
	const limit = 2048
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
