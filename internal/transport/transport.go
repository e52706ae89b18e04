// Package transport implements the upstream wire protocol: form-encoded JSON
// request bodies, the session header set, the response envelope, silent token
// rotation and the download and preflight sub-protocols.
package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bytedance/sonic"
	"go.opentelemetry.io/otel/trace"

	"github.com/cartable-app/cartable/internal/monitoring"
	"github.com/cartable-app/cartable/pkg/constants"
	"github.com/cartable-app/cartable/pkg/errors"
	"github.com/cartable-app/cartable/pkg/logger"
	"github.com/cartable-app/cartable/pkg/types"
)

// SessionSource exposes the current session to the transport and receives
// rotated tokens back from it.
type SessionSource interface {
	// Current returns a snapshot of the session used to build headers.
	Current() types.Session
	// Rotate adopts refreshed tokens observed on a response. Empty values
	// mean "unchanged" and must not overwrite the existing token.
	Rotate(token, secondFactorToken string)
}

// Transport performs HTTP exchanges against the upstream API.
type Transport struct {
	baseURL    string
	apiVersion string
	httpClient *http.Client
	session    SessionSource
	canceller  *canceller
	logger     logger.Logger
	metrics    *monitoring.Metrics
	tracing    *monitoring.TracingManager
}

// Option configures a Transport.
type Option func(*Transport)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Transport) { t.httpClient = c }
}

// WithMetrics attaches request metrics.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(t *Transport) { t.metrics = m }
}

// WithTracing starts a client span around every upstream call.
func WithTracing(tm *monitoring.TracingManager) Option {
	return func(t *Transport) { t.tracing = tm }
}

// New builds a Transport bound to baseURL.
func New(baseURL, apiVersion string, session SessionSource, log logger.Logger, opts ...Option) *Transport {
	t := &Transport{
		baseURL:    baseURL,
		apiVersion: apiVersion,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		session:    session,
		canceller:  newCanceller(),
		logger:     log,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// CancelAll aborts every in-flight request.
func (t *Transport) CancelAll() {
	t.canceller.cancelAll()
}

// Exchange performs one protocol POST and returns the raw envelope together
// with the response headers. Token rotation is already applied when it
// returns. Callers that need the envelope code (login, challenge) use this
// directly; everything else goes through Post.
func (t *Transport) Exchange(ctx context.Context, endpoint string, query url.Values, payload interface{}) (*Envelope, http.Header, error) {
	ctx, end := t.startSpan(ctx, "upstream.exchange", endpoint)
	env, header, err := t.exchange(ctx, endpoint, query, payload)
	if env != nil && t.tracing != nil {
		t.tracing.SetSpanAttributes(ctx, map[string]interface{}{"code": int(env.Code)})
	}
	end(err)
	return env, header, err
}

func (t *Transport) exchange(ctx context.Context, endpoint string, query url.Values, payload interface{}) (*Envelope, http.Header, error) {
	ctx, done := t.canceller.track(ctx)
	defer done()

	body, err := encodeBody(payload)
	if err != nil {
		return nil, nil, errors.ErrUsage("failed to encode request payload").WithCause(err)
	}

	req, err := newPostRequest(ctx, t.buildURL(endpoint, query), body)
	if err != nil {
		return nil, nil, errors.ErrUsage("failed to build request").WithCause(err)
	}
	t.setHeaders(req)

	start := time.Now()
	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.observe(endpoint, "network_error", start)
		if ctx.Err() != nil {
			return nil, nil, errors.ErrCancelled().WithCause(ctx.Err())
		}
		return nil, nil, errors.ErrTransport("upstream request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.observe(endpoint, "read_error", start)
		if ctx.Err() != nil {
			return nil, nil, errors.ErrCancelled().WithCause(ctx.Err())
		}
		return nil, nil, errors.ErrTransport("failed to read upstream response", err)
	}
	if len(raw) == 0 {
		t.observe(endpoint, "empty", start)
		return nil, nil, errors.ErrTransport("empty upstream response", nil)
	}

	env, err := DecodeEnvelope(raw)
	if err != nil {
		t.observe(endpoint, "decode_error", start)
		return nil, nil, errors.ErrTransport("malformed upstream response", err)
	}
	t.observe(endpoint, env.Code.String(), start)

	t.rotate(env, resp.Header)
	return env, resp.Header, nil
}

// Post performs one authenticated data call and returns the envelope's data
// payload. Upstream error codes are mapped to the client error taxonomy.
func (t *Transport) Post(ctx context.Context, endpoint string, query url.Values, payload interface{}) ([]byte, error) {
	env, _, err := t.Exchange(ctx, endpoint, query, payload)
	if err != nil {
		return nil, err
	}
	if err := MapEnvelopeError(env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// MapEnvelopeError converts a non-success envelope into a typed error.
// A success envelope yields nil.
func MapEnvelopeError(env *Envelope) error {
	switch env.Code {
	case constants.CodeSuccess:
		return nil
	case constants.CodeInvalidToken, constants.CodeSessionExpired:
		return errors.ErrSessionExpired(env.Code)
	default:
		return errors.ErrAuthentication(env.Code, env.Message)
	}
}

// DataQuery returns the standard query string for data calls.
func (t *Transport) DataQuery() url.Values {
	return url.Values{
		"verbe": {"get"},
		"v":     {t.apiVersion},
	}
}

func (t *Transport) buildURL(endpoint string, query url.Values) string {
	u := t.baseURL + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (t *Transport) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	s := t.session.Current()
	if s.Token != "" {
		req.Header.Set(constants.HeaderToken, s.Token)
	}
	if s.SecondFactorToken != "" {
		req.Header.Set(constants.HeaderSecondFactorToken, s.SecondFactorToken)
	}
	if s.GtkToken != "" {
		req.Header.Set(constants.HeaderGtk, s.GtkToken)
	}
	if s.SessionID != "" {
		req.Header.Set(constants.HeaderSessionID, s.SessionID)
	}
}

// rotate adopts refreshed tokens: the envelope token field wins over the
// response header, and the secondary token only ever comes from the header.
func (t *Transport) rotate(env *Envelope, header http.Header) {
	token := env.Token
	if token == "" {
		token = header.Get(constants.ResponseHeaderToken)
	}
	secondFactor := header.Get(constants.ResponseHeaderSecondFactorToken)
	if token == "" && secondFactor == "" {
		return
	}
	t.session.Rotate(token, secondFactor)
	if t.metrics != nil {
		t.metrics.TokenRotations.Inc()
	}
}

// startSpan opens a client span around one upstream call when tracing is
// attached. The returned func ends the span, recording err when non-nil.
func (t *Transport) startSpan(ctx context.Context, name, endpoint string) (context.Context, func(error)) {
	if t.tracing == nil {
		return ctx, func(error) {}
	}
	ctx, span := t.tracing.StartSpan(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
	t.tracing.SetSpanAttributes(ctx, map[string]interface{}{"endpoint": endpoint})
	return ctx, func(err error) {
		if err != nil {
			t.tracing.RecordError(ctx, err)
		}
		span.End()
	}
}

func (t *Transport) observe(endpoint, result string, start time.Time) {
	if t.metrics == nil {
		return
	}
	t.metrics.RecordUpstreamRequest(endpoint, result, time.Since(start))
}

func newPostRequest(ctx context.Context, url string, body []byte) (*http.Request, error) {
	return http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
}

func encodeBody(payload interface{}) ([]byte, error) {
	if payload == nil {
		payload = struct{}{}
	}
	raw, err := sonic.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return []byte("data=" + url.QueryEscape(string(raw))), nil
}
