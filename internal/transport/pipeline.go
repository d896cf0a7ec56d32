// Package transport implements the request-authorization pipeline: an
// http.RoundTripper decorator that attaches the bearer token to every
// outbound request, detects the backend's authorization-expired status,
// performs one silent refresh-and-retry, and terminates the session when
// the refresh itself fails.
//
// The pipeline is an explicit decorator around a base transport rather than
// a hook mutating shared request state; the "already retried" marker travels
// in the request context, scoped to that one request.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskboard/taskboard-cli/internal/credstore"
	"github.com/taskboard/taskboard-cli/internal/domain/identity"
)

// DefaultExpiredStatus is the status the paired backend sends for an expired
// access token. The backend uses 403 rather than the conventional 401; this
// is a fixed contract, kept configurable only for forward compatibility.
const DefaultExpiredStatus = http.StatusForbidden

// refreshTimeout bounds the shared refresh exchange. The exchange runs on a
// context detached from any single caller, so it needs its own deadline.
const refreshTimeout = 30 * time.Second

// Refresher exchanges a refresh token for a new token pair. Implementations
// must not route their own HTTP call back through the pipeline.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (identity.TokenPair, error)
}

// RefresherFunc adapts a function to the Refresher interface.
type RefresherFunc func(ctx context.Context, refreshToken string) (identity.TokenPair, error)

// Refresh implements Refresher.
func (f RefresherFunc) Refresh(ctx context.Context, refreshToken string) (identity.TokenPair, error) {
	return f(ctx, refreshToken)
}

// SessionExpiredError is returned when the refresh exchange fails and the
// session has been terminated. The original caller still observes the
// failure; the terminate hook handles the user-facing consequence.
type SessionExpiredError struct {
	Err error
}

// Error returns a human-readable description of the expired session.
func (e *SessionExpiredError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("session expired: %v", e.Err)
	}
	return "session expired"
}

// Unwrap returns the underlying refresh failure.
func (e *SessionExpiredError) Unwrap() error { return e.Err }

// retryMarker is the context key recording that a request has already been
// replayed once. Scoped per request: a fresh request always starts unmarked.
type retryMarker struct{}

func markRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, retryMarker{}, true)
}

func wasRetried(ctx context.Context) bool {
	v, _ := ctx.Value(retryMarker{}).(bool)
	return v
}

// refreshCall is one in-flight refresh exchange shared by every request
// that hits the expired status while it runs.
type refreshCall struct {
	done chan struct{}
	pair identity.TokenPair
	err  error
}

// Pipeline is the authorization wrapper around all outbound API calls.
type Pipeline struct {
	base          http.RoundTripper
	creds         credstore.Store
	refresher     Refresher
	expiredStatus int
	logger        *slog.Logger
	metrics       *Metrics
	onExpired     func(reason string)

	refreshMu sync.Mutex
	inflight  *refreshCall
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithBase sets the underlying transport. Defaults to http.DefaultTransport.
func WithBase(rt http.RoundTripper) Option {
	return func(p *Pipeline) { p.base = rt }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithMetrics attaches pipeline metrics. Without it nothing is recorded.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithExpiredStatus overrides the authorization-expired status code.
func WithExpiredStatus(code int) Option {
	return func(p *Pipeline) { p.expiredStatus = code }
}

// WithSessionExpiredHook registers the callback fired after an irrecoverable
// refresh failure, once credentials are cleared. The application shell wires
// its session manager's Terminate here.
func WithSessionExpiredHook(fn func(reason string)) Option {
	return func(p *Pipeline) { p.onExpired = fn }
}

// NewPipeline creates a Pipeline over the given credential store and refresher.
func NewPipeline(creds credstore.Store, refresher Refresher, opts ...Option) *Pipeline {
	p := &Pipeline{
		base:          http.DefaultTransport,
		creds:         creds,
		refresher:     refresher,
		expiredStatus: DefaultExpiredStatus,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RoundTrip implements http.RoundTripper.
//
// Request leg: attach the stored bearer token if present (absent token means
// the request proceeds unauthenticated) and stamp an X-Request-ID.
//
// Response leg: 2xx and unrelated failures pass through unchanged. The
// expired status triggers at most one refresh-and-retry per original
// request; a second expired response after the replay propagates as-is.
func (p *Pipeline) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	if out.Header.Get("X-Request-ID") == "" {
		out.Header.Set("X-Request-ID", uuid.New().String())
	}
	requestID := out.Header.Get("X-Request-ID")

	token, ok, err := p.creds.Get(credstore.KeyAccessToken)
	if err != nil {
		p.logger.Warn("failed to read access token, sending unauthenticated",
			"request_id", requestID, "error", err)
	} else if ok && token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := p.base.RoundTrip(out)
	p.observe(req.Method, start, resp, err)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != p.expiredStatus || wasRetried(req.Context()) {
		return resp, nil
	}

	// Expired token. If there is no refresh token, recovery is impossible;
	// hand the original failure back untouched.
	refreshToken, ok, err := p.creds.Get(credstore.KeyRefreshToken)
	if err != nil {
		p.logger.Warn("failed to read refresh token, cannot recover expired session",
			"request_id", requestID, "error", err)
		return resp, nil
	}
	if !ok || refreshToken == "" {
		return resp, nil
	}

	// A replay is coming; the original response will not reach the caller.
	drainAndClose(resp)

	p.logger.Debug("access token expired, refreshing", "request_id", requestID)
	pair, err := p.refresh(req.Context())
	if err != nil {
		// A canceled or timed-out caller is a transport-class failure for
		// that caller only; the shared exchange keeps running and other
		// callers still get its result. Only a failure of the exchange
		// itself ends the session.
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, p.terminate(err)
	}

	retry, err := p.replayable(req, pair.AccessToken)
	if err != nil {
		return nil, err
	}
	if p.metrics != nil {
		p.metrics.RetriedRequests.Inc()
	}

	start = time.Now()
	resp, err = p.base.RoundTrip(retry)
	p.observe(req.Method, start, resp, err)
	return resp, err
}

// replayable rebuilds the original request for the single retry: the retry
// marker is set, the body re-materialized, and the fresh token attached.
func (p *Pipeline) replayable(req *http.Request, accessToken string) (*http.Request, error) {
	retry := req.Clone(markRetried(req.Context()))
	if req.Body != nil {
		if req.GetBody == nil {
			return nil, errors.New("transport: cannot replay request without GetBody")
		}
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("transport: rewind request body: %w", err)
		}
		retry.Body = body
	}
	retry.Header.Set("Authorization", "Bearer "+accessToken)
	return retry, nil
}

// refresh performs the refresh exchange, collapsing concurrent callers onto
// one in-flight call. Rotation makes redundant exchanges harmful: a second
// refresh would present an already-consumed token and kill the session.
// The exchange runs on a context detached from every caller with its own
// deadline, so one canceled waiter never condemns the shared result. On
// success both tokens in the credential store are overwritten with the pair
// from the refresh response.
func (p *Pipeline) refresh(ctx context.Context) (identity.TokenPair, error) {
	p.refreshMu.Lock()
	if call := p.inflight; call != nil {
		p.refreshMu.Unlock()
		if p.metrics != nil {
			p.metrics.RefreshTotal.WithLabelValues("shared").Inc()
		}
		select {
		case <-call.done:
			return call.pair, call.err
		case <-ctx.Done():
			return identity.TokenPair{}, ctx.Err()
		}
	}
	call := &refreshCall{done: make(chan struct{})}
	p.inflight = call
	p.refreshMu.Unlock()

	exCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
	defer cancel()
	call.pair, call.err = p.doRefresh(exCtx)
	close(call.done)

	p.refreshMu.Lock()
	p.inflight = nil
	p.refreshMu.Unlock()

	return call.pair, call.err
}

func (p *Pipeline) doRefresh(ctx context.Context) (identity.TokenPair, error) {
	refreshToken, ok, err := p.creds.Get(credstore.KeyRefreshToken)
	if err != nil {
		return identity.TokenPair{}, fmt.Errorf("read refresh token: %w", err)
	}
	if !ok || refreshToken == "" {
		return identity.TokenPair{}, errors.New("no refresh token")
	}

	pair, err := p.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		if p.metrics != nil {
			p.metrics.RefreshTotal.WithLabelValues("error").Inc()
		}
		return identity.TokenPair{}, err
	}

	if err := p.creds.Set(credstore.KeyAccessToken, pair.AccessToken); err != nil {
		return identity.TokenPair{}, fmt.Errorf("store access token: %w", err)
	}
	if err := p.creds.Set(credstore.KeyRefreshToken, pair.RefreshToken); err != nil {
		return identity.TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}
	if p.metrics != nil {
		p.metrics.RefreshTotal.WithLabelValues("ok").Inc()
	}
	p.logger.Debug("token pair rotated")
	return pair, nil
}

// terminate handles an irrecoverable refresh failure: wipe every credential
// key, fire the session-expired hook, and hand the caller an error that
// still carries the refresh failure.
func (p *Pipeline) terminate(cause error) error {
	if err := p.creds.Clear(); err != nil {
		p.logger.Warn("failed to clear credentials after refresh failure", "error", err)
	}
	if p.metrics != nil {
		p.metrics.ForcedLogouts.Inc()
	}
	p.logger.Warn("token refresh failed, session terminated", "error", cause)
	if p.onExpired != nil {
		p.onExpired(cause.Error())
	}
	return &SessionExpiredError{Err: cause}
}

func (p *Pipeline) observe(method string, start time.Time, resp *http.Response, err error) {
	if p.metrics == nil {
		return
	}
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case resp.StatusCode == p.expiredStatus:
		outcome = "expired"
	case resp.StatusCode >= 400:
		outcome = "error"
	}
	p.metrics.RequestsTotal.WithLabelValues(method, outcome).Inc()
	p.metrics.RequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

// drainAndClose discards the rest of a response body so the underlying
// connection can be reused.
func drainAndClose(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}
