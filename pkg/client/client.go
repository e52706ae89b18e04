// Package client implements the École Directe client: the authentication
// state machine, the domain API surface and the supporting plumbing (request
// gate, state store, roster cache, event bus).
package client

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/cartable-app/cartable/internal/config"
	"github.com/cartable-app/cartable/internal/monitoring"
	"github.com/cartable-app/cartable/internal/ratelimit"
	"github.com/cartable-app/cartable/internal/roster"
	"github.com/cartable-app/cartable/internal/store"
	"github.com/cartable-app/cartable/internal/transport"
	"github.com/cartable-app/cartable/pkg/constants"
	"github.com/cartable-app/cartable/pkg/errors"
	"github.com/cartable-app/cartable/pkg/logger"
	"github.com/cartable-app/cartable/pkg/types"
)

// sessionState holds the session record behind a lock. The whole record is
// swapped, never mutated field by field under concurrent access.
type sessionState struct {
	mu sync.RWMutex
	s  types.Session
}

func (st *sessionState) Current() types.Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s
}

// Rotate adopts refreshed tokens; empty values leave the current ones alone.
func (st *sessionState) Rotate(token, secondFactorToken string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if token != "" {
		st.s.Token = token
	}
	if secondFactorToken != "" {
		st.s.SecondFactorToken = secondFactorToken
	}
}

func (st *sessionState) Swap(s types.Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s = s
}

func (st *sessionState) Update(fn func(*types.Session)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	fn(&st.s)
}

// retainedCredentials keeps the login inputs alive across a security
// challenge so answering it can replay the login without re-prompting.
type retainedCredentials struct {
	username string
	password string
	remember bool
}

// Client is an explicitly constructed École Directe client. Instances are
// independent; nothing is shared process-wide.
type Client struct {
	cfg     *config.Config
	log     logger.Logger
	metrics *monitoring.Metrics
	state   store.StateStore
	roster  *roster.Cache
	bus     EventBus.Bus
	tr      *transport.Transport
	gate    *ratelimit.Gate

	relogin singleflight.Group

	// rosterDelay paces the per-group roster fetches; tests shorten it.
	rosterDelay func() time.Duration

	session *sessionState

	mu      sync.RWMutex
	account *types.Account
	pending *types.PendingChallenge
	creds   *retainedCredentials
}

// Option configures a Client.
type Option func(*options)

type options struct {
	cfg        *config.Config
	log        logger.Logger
	metrics    *monitoring.Metrics
	tracing    *monitoring.TracingManager
	state      store.StateStore
	roster     *roster.Cache
	httpClient *http.Client
}

// WithConfig overrides the default configuration.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithLogger attaches a logger; the default discards everything.
func WithLogger(log logger.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTracing attaches OpenTelemetry spans around upstream calls.
func WithTracing(tm *monitoring.TracingManager) Option {
	return func(o *options) { o.tracing = tm }
}

// WithStateStore overrides the persistent state backend.
func WithStateStore(s store.StateStore) Option {
	return func(o *options) { o.state = s }
}

// WithRosterCache attaches a roster snapshot cache.
func WithRosterCache(c *roster.Cache) Option {
	return func(o *options) { o.roster = c }
}

// WithHTTPClient overrides the underlying HTTP client; tests point it at a
// local fake upstream.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// New builds a Client.
func New(opts ...Option) (*Client, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.cfg == nil {
		o.cfg = config.Default()
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, errors.ErrUsage(err.Error())
	}
	if o.log == nil {
		o.log = logger.NewNoopLogger()
	}
	if o.state == nil {
		st, err := store.Open(o.cfg.Store)
		if err != nil {
			return nil, err
		}
		o.state = st
	}

	c := &Client{
		cfg:         o.cfg,
		log:         o.log,
		metrics:     o.metrics,
		state:       o.state,
		roster:      o.roster,
		bus:         EventBus.New(),
		session:     &sessionState{},
		rosterDelay: rosterFetchDelay,
	}

	gateOpts := []ratelimit.Option{}
	if o.metrics != nil {
		gateOpts = append(gateOpts,
			ratelimit.WithWaitObserver(o.metrics.RecordGateWait),
			ratelimit.WithDepthGauge(o.metrics.GateInFlight),
		)
	}
	c.gate = ratelimit.NewGate(o.cfg.Gate.Concurrency, o.cfg.Gate.Delay, gateOpts...)

	trOpts := []transport.Option{}
	if o.httpClient != nil {
		trOpts = append(trOpts, transport.WithHTTPClient(o.httpClient))
	}
	if o.metrics != nil {
		trOpts = append(trOpts, transport.WithMetrics(o.metrics))
	}
	if o.tracing != nil {
		trOpts = append(trOpts, transport.WithTracing(o.tracing))
	}
	c.tr = transport.New(o.cfg.API.BaseURL, o.cfg.API.Version, c.session, o.log, trOpts...)

	return c, nil
}

// ApplyConfig adopts the runtime-tunable settings of a freshly loaded
// configuration, typically wired to config.Watch. Only the gate pacing delay
// can change on a live client; everything else needs a rebuild.
func (c *Client) ApplyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	c.gate.SetDelay(cfg.Gate.Delay)
	c.log.Info(context.Background(), "configuration change applied", logger.Fields{
		"gate_delay": cfg.Gate.Delay.String(),
	})
}

// Close releases the client's backing resources. It does not log out.
func (c *Client) Close() error {
	c.tr.CancelAll()
	if c.roster != nil {
		if err := c.roster.Close(); err != nil {
			return err
		}
	}
	return c.state.Close()
}

// IsAuthenticated reports whether the client holds a usable session.
func (c *Client) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.Current().Token != "" && c.account != nil
}

// Account returns the authenticated account, or nil.
func (c *Client) Account() *types.Account {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.account
}

// Session returns a snapshot of the current session.
func (c *Client) Session() types.Session {
	return c.session.Current()
}

// PendingChallenge returns the in-flight security challenge, or nil.
func (c *Client) PendingChallenge() *types.PendingChallenge {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pending
}

// request performs one gated, authenticated data call. Session-expiry codes
// are published on the event bus before the error propagates.
func (c *Client) request(ctx context.Context, endpoint string, query map[string]string, payload interface{}) ([]byte, error) {
	if err := c.gate.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.gate.Release()

	if !c.IsAuthenticated() {
		return nil, errors.ErrNotAuthenticated()
	}

	q := c.tr.DataQuery()
	for k, v := range query {
		q.Set(k, v)
	}
	data, err := c.tr.Post(ctx, endpoint, q, payload)
	if err != nil {
		if errors.IsSessionExpired(err) {
			c.log.Warn(ctx, "session expired on data call", logger.Fields{"endpoint": endpoint})
			c.bus.Publish(constants.TopicSessionExpired)
		}
		return nil, err
	}
	return data, nil
}

// deviceID returns the stable device identifier, generating and persisting
// one on first use.
func (c *Client) deviceID(ctx context.Context) string {
	if id := c.session.Current().DeviceID; id != "" {
		return id
	}

	id, ok, err := c.state.Get(ctx, constants.StateKeyDeviceID)
	if err != nil || !ok || id == "" {
		id = uuid.NewString()
		if err := c.state.Set(ctx, constants.StateKeyDeviceID, id); err != nil {
			c.log.Warn(ctx, "failed to persist device identifier", logger.Fields{"error": err.Error()})
		}
	}
	c.session.Update(func(s *types.Session) { s.DeviceID = id })
	return id
}
