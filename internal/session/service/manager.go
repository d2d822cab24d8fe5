// Package service implements the session lifecycle: login, registration, logout, validation
// and refresh of the token pair, and persistence of the session between runs.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/hariseldon84/singlebrief-full-sub000/internal/identity/client"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/session/domain"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/session/repository"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/telemetry"
)

const instrumentationName = "singlebrief.session"

// Clearing the store is retried so a transient failure does not leave credentials on disk.
const (
	clearAttempts  = 3
	clearRetryWait = 50 * time.Millisecond
)

// AuthClient is the Authentication Service surface used by the Manager.
type AuthClient interface {
	Login(ctx context.Context, req client.LoginRequest) (*domain.AuthResult, error)
	Register(ctx context.Context, req client.RegisterRequest) (*domain.AuthResult, error)
	Logout(ctx context.Context, accessToken string) error
	Refresh(ctx context.Context, refreshToken string) (*domain.Tokens, error)
	Me(ctx context.Context, accessToken string) (*domain.User, error)
}

// Accessor is the read-only view of the session handed to the rest of the application.
type Accessor interface {
	// Snapshot returns a copy of the current session; never nil.
	Snapshot() *domain.Session
	IsAuthenticated() bool
	// AccessToken returns the current access token, or "" when there is none.
	AccessToken() string
}

// Listener is called with a copy of the session after every change.
type Listener func(s *domain.Session)

// Options configures a Manager. Zero values fall back to defaults.
type Options struct {
	// RefreshRatio is the fraction of the token lifetime after which the token is refreshed. Default 0.93.
	RefreshRatio float64
	// DefaultTTL is the token lifetime assumed when neither expires_in nor a JWT exp claim is available. Default 30m.
	DefaultTTL time.Duration
	Logger     *zap.Logger
	Emitter    telemetry.EventEmitter
	// Source is stamped on telemetry events.
	Source string
	// Now is the clock; tests override it.
	Now func() time.Time
}

// Manager owns the single session of a running client. Safe for concurrent use.
type Manager struct {
	auth    AuthClient
	repo    repository.Repository
	ratio   float64
	ttl     time.Duration
	logger  *zap.Logger
	emitter telemetry.EventEmitter
	source  string
	now     func() time.Time

	// writeMu orders persistence writes with in-memory installs.
	writeMu sync.Mutex

	mu        sync.Mutex
	session   *domain.Session
	epoch     uint64
	loading   int
	listeners map[int]Listener
	nextID    int

	refreshGroup singleflight.Group
	changed      chan struct{}

	bgMu     sync.Mutex
	bgCancel context.CancelFunc
	bgDone   chan struct{}

	tracer   trace.Tracer
	logins   metric.Int64Counter
	refreshs metric.Int64Counter

	clearWait time.Duration
}

// NewManager returns a Manager with an empty (unauthenticated) session. Call Restore to rehydrate.
func NewManager(auth AuthClient, repo repository.Repository, opts Options) *Manager {
	if opts.RefreshRatio <= 0 || opts.RefreshRatio >= 1 {
		opts.RefreshRatio = 0.93
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = 30 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	m := &Manager{
		auth:      auth,
		repo:      repo,
		ratio:     opts.RefreshRatio,
		ttl:       opts.DefaultTTL,
		logger:    opts.Logger,
		emitter:   opts.Emitter,
		source:    opts.Source,
		now:       opts.Now,
		session:   &domain.Session{Status: domain.StatusUnauthenticated},
		listeners: make(map[int]Listener),
		changed:   make(chan struct{}, 1),
		tracer:    otel.Tracer(instrumentationName),
		clearWait: clearRetryWait,
	}
	meter := otel.Meter(instrumentationName)
	m.logins = counter(meter, "singlebrief.session.logins", "Login and registration attempts by outcome")
	m.refreshs = counter(meter, "singlebrief.session.refreshes", "Session refresh executions by outcome")
	return m
}

func counter(meter metric.Meter, name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		return noop.Int64Counter{}
	}
	return c
}

// Snapshot implements Accessor.
func (m *Manager) Snapshot() *domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() *domain.Session {
	s := m.session.Clone()
	s.IsLoading = m.loading > 0
	return s
}

// IsAuthenticated implements Accessor.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.IsAuthenticated()
}

// AccessToken implements Accessor.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.Tokens == nil {
		return ""
	}
	return m.session.Tokens.AccessToken
}

// Subscribe registers fn for session changes and returns a function that removes it.
func (m *Manager) Subscribe(fn Listener) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Manager) notify() {
	m.mu.Lock()
	snap := m.snapshotLocked()
	fns := make([]Listener, 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(snap.Clone())
	}
}

func (m *Manager) setLoading(delta int) {
	m.mu.Lock()
	m.loading += delta
	m.mu.Unlock()
	m.notify()
}

// signalChanged wakes the background refresher so it reschedules from the new tokens.
func (m *Manager) signalChanged() {
	select {
	case m.changed <- struct{}{}:
	default:
	}
}

// Login authenticates with email and password. On success the new session replaces the current
// one in memory and in persistence together. On failure the current session is left as it was and
// the service's message is returned verbatim.
func (m *Manager) Login(ctx context.Context, email, password string, rememberMe bool) (*domain.Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, client.ErrMissingCredentials
	}
	m.setLoading(1)
	defer m.setLoading(-1)

	res, err := m.auth.Login(ctx, client.LoginRequest{Email: email, Password: password, RememberMe: rememberMe})
	if err != nil {
		m.recordAuthFailure(ctx, "login", err)
		return nil, err
	}
	s, err := m.install(ctx, res)
	if err != nil {
		m.recordAuthFailure(ctx, "login", err)
		return nil, err
	}
	m.logins.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "login"), attribute.String("outcome", "success")))
	m.emit(ctx, telemetry.EventLogin, s, "", map[string]string{"remember_me": fmt.Sprint(rememberMe)})
	m.logger.Info("session: logged in", zap.String("user_id", s.User.ID))
	return s, nil
}

// Register creates an account (and an organization when organizationName is non-blank) and
// installs the resulting session with the same guarantees as Login.
func (m *Manager) Register(ctx context.Context, email, password, fullName, organizationName string) (*domain.Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, client.ErrMissingCredentials
	}
	m.setLoading(1)
	defer m.setLoading(-1)

	res, err := m.auth.Register(ctx, client.RegisterRequest{
		Email:            email,
		Password:         password,
		FullName:         fullName,
		OrganizationName: organizationName,
	})
	if err != nil {
		m.recordAuthFailure(ctx, "register", err)
		return nil, err
	}
	s, err := m.install(ctx, res)
	if err != nil {
		m.recordAuthFailure(ctx, "register", err)
		return nil, err
	}
	m.logins.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "register"), attribute.String("outcome", "success")))
	m.emit(ctx, telemetry.EventRegister, s, "", nil)
	m.logger.Info("session: registered", zap.String("user_id", s.User.ID), zap.Bool("with_organization", s.Organization != nil))
	return s, nil
}

func (m *Manager) recordAuthFailure(ctx context.Context, op string, err error) {
	m.logins.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op), attribute.String("outcome", "failure")))
	m.emit(ctx, telemetry.EventLoginFailure, nil, err.Error(), map[string]string{"op": op})
	m.logger.Warn("session: "+op+" failed", zap.Error(err))
}

// install persists the auth result and then swaps it in. Persistence failure leaves memory untouched.
func (m *Manager) install(ctx context.Context, res *domain.AuthResult) (*domain.Session, error) {
	tokens := *res.Tokens
	tokens.ObtainedAt = m.now().UTC()
	user := *res.User
	next := &domain.Session{
		User:        &user,
		Tokens:      &tokens,
		Status:      domain.StatusAuthenticated,
		ValidatedAt: tokens.ObtainedAt,
	}
	if res.Organization != nil {
		org := *res.Organization
		next.Organization = &org
	}

	m.writeMu.Lock()
	if err := m.repo.Save(ctx, next); err != nil {
		m.writeMu.Unlock()
		return nil, fmt.Errorf("session: persist: %w", err)
	}
	m.mu.Lock()
	m.session = next
	m.epoch++
	m.mu.Unlock()
	m.writeMu.Unlock()

	m.notify()
	m.signalChanged()
	return next.Clone(), nil
}

// Logout tells the service (best effort) and then clears the session in memory and in persistence.
func (m *Manager) Logout(ctx context.Context) {
	prev := m.Snapshot()
	if prev.Tokens != nil && prev.Tokens.AccessToken != "" {
		if err := m.auth.Logout(ctx, prev.Tokens.AccessToken); err != nil {
			m.logger.Warn("session: logout request failed; clearing locally", zap.Error(err))
		}
	}
	m.clear(ctx, "logout")
	m.emit(ctx, telemetry.EventLogout, prev, "", nil)
}

// clear removes the session from memory and persistence. Memory is cleared even when the store fails.
func (m *Manager) clear(ctx context.Context, reason string) {
	m.writeMu.Lock()
	if err := m.clearPersisted(ctx); err != nil {
		m.logger.Error("session: clear persisted session", zap.Error(err))
	}
	m.mu.Lock()
	prev := m.session
	m.session = &domain.Session{Status: domain.StatusUnauthenticated}
	m.epoch++
	m.mu.Unlock()
	m.writeMu.Unlock()

	m.notify()
	m.signalChanged()
	m.emit(ctx, telemetry.EventSessionCleared, prev, "", map[string]string{"reason": reason})
	m.logger.Info("session: cleared", zap.String("reason", reason))
}

// clearPersisted deletes the stored session, retrying failed batches. It is not cut short by ctx
// being canceled; the in-memory session is cleared regardless of the result.
func (m *Manager) clearPersisted(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, m.repo.Clear(ctx)
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(m.clearWait)),
		backoff.WithMaxTries(clearAttempts),
		backoff.WithNotify(func(err error, wait time.Duration) {
			m.logger.Warn("session: clear persisted session, retrying", zap.Error(err), zap.Duration("wait", wait))
		}),
	)
	return err
}

// Restore loads the persisted session, if any, and validates it with Refresh. A corrupt stored
// session is discarded. Only storage failures are returned.
func (m *Manager) Restore(ctx context.Context) error {
	s, err := m.repo.Load(ctx)
	if errors.Is(err, repository.ErrCorruptSession) {
		m.logger.Warn("session: discarding corrupt persisted session")
		m.clear(ctx, "corrupt")
		return nil
	}
	if err != nil {
		return fmt.Errorf("session: load: %w", err)
	}
	if s == nil {
		return nil
	}
	s.Status = domain.StatusRestored

	m.mu.Lock()
	m.session = s
	m.epoch++
	m.mu.Unlock()
	m.notify()

	m.Refresh(ctx)
	return nil
}

func (m *Manager) emit(ctx context.Context, eventType string, s *domain.Session, detail string, meta map[string]string) {
	ev := &telemetry.Event{Type: eventType, Source: m.source, Detail: detail, Metadata: meta}
	if s != nil {
		if s.User != nil {
			ev.UserID = s.User.ID
		}
		if s.Organization != nil {
			ev.OrgID = s.Organization.ID
		}
	}
	telemetry.EmitAsync(m.emitter, ctx, ev)
}
