package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hariseldon84/singlebrief-full-sub000/internal/identity/client"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/session/domain"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/session/repository"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/telemetry"
)

var errUnauthorized = &client.APIError{StatusCode: http.StatusUnauthorized, Detail: "Not authenticated"}

// fakeAuth is an in-memory Authentication Service. Access tokens listed in valid are accepted by Me.
type fakeAuth struct {
	mu sync.Mutex

	loginRes    *domain.AuthResult
	loginErr    error
	registerRes *domain.AuthResult
	registerReq []client.RegisterRequest
	logoutErr   error
	valid       map[string]*domain.User
	refreshFn   func(refreshToken string) (*domain.Tokens, error)

	loginCalls, logoutCalls, meCalls, refreshCalls int
	inFlight, maxInFlight                          int

	// refreshStarted receives once per Refresh call; refreshGate, when set, blocks Refresh until closed.
	refreshStarted chan struct{}
	refreshGate    chan struct{}
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{valid: make(map[string]*domain.User), refreshStarted: make(chan struct{}, 64)}
}

func (f *fakeAuth) Login(ctx context.Context, req client.LoginRequest) (*domain.AuthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls++
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	f.accept(f.loginRes)
	return f.loginRes, nil
}

func (f *fakeAuth) Register(ctx context.Context, req client.RegisterRequest) (*domain.AuthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registerReq = append(f.registerReq, req)
	res := *f.registerRes
	if req.OrganizationName == "" {
		res.Organization = nil
	}
	f.accept(&res)
	return &res, nil
}

func (f *fakeAuth) accept(res *domain.AuthResult) {
	if res != nil && res.Tokens != nil {
		f.valid[res.Tokens.AccessToken] = res.User
	}
}

func (f *fakeAuth) Logout(ctx context.Context, accessToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	return f.logoutErr
}

func (f *fakeAuth) Refresh(ctx context.Context, refreshToken string) (*domain.Tokens, error) {
	f.mu.Lock()
	f.refreshCalls++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	gate, fn := f.refreshGate, f.refreshFn
	f.mu.Unlock()

	f.refreshStarted <- struct{}{}
	if gate != nil {
		<-gate
	}

	var tok *domain.Tokens
	var err error = errUnauthorized
	if fn != nil {
		tok, err = fn(refreshToken)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	if err != nil {
		return nil, err
	}
	return tok, nil
}

func (f *fakeAuth) Me(ctx context.Context, accessToken string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meCalls++
	u, ok := f.valid[accessToken]
	if !ok {
		return nil, errUnauthorized
	}
	cp := *u
	return &cp, nil
}

func (f *fakeAuth) setValid(access string, u *domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.valid[access] = u
}

func (f *fakeAuth) revoke(access string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.valid, access)
}

func (f *fakeAuth) counts() (login, logout, me, refresh int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginCalls, f.logoutCalls, f.meCalls, f.refreshCalls
}

// rotatingRefresh issues access-N/refresh-N pairs and marks the new access token valid for user.
func (f *fakeAuth) rotatingRefresh(user *domain.User, expiresIn int64) func(string) (*domain.Tokens, error) {
	n := 0
	var mu sync.Mutex
	return func(string) (*domain.Tokens, error) {
		mu.Lock()
		n++
		id := n
		mu.Unlock()
		tok := &domain.Tokens{
			AccessToken:  fmt.Sprintf("access-r%d", id),
			RefreshToken: fmt.Sprintf("refresh-r%d", id),
			TokenType:    "bearer",
			ExpiresIn:    expiresIn,
		}
		f.setValid(tok.AccessToken, user)
		return tok, nil
	}
}

func authResult(userID, email, access, refresh string, org *domain.Organization) *domain.AuthResult {
	return &domain.AuthResult{
		User:         &domain.User{ID: userID, Email: email, FullName: "Test", IsActive: true},
		Tokens:       &domain.Tokens{AccessToken: access, RefreshToken: refresh, TokenType: "bearer", ExpiresIn: 1800},
		Organization: org,
	}
}

// failingRepo wraps a Repository and fails Save or Clear on demand. clearFailures makes the next
// that many Clear calls fail with errDisk.
type failingRepo struct {
	repository.Repository
	mu            sync.Mutex
	saveErr       error
	clearErr      error
	clearFailures int
	clearCalls    int
}

func (r *failingRepo) Save(ctx context.Context, s *domain.Session) error {
	r.mu.Lock()
	err := r.saveErr
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.Repository.Save(ctx, s)
}

func (r *failingRepo) Clear(ctx context.Context) error {
	r.mu.Lock()
	r.clearCalls++
	err := r.clearErr
	if err == nil && r.clearFailures > 0 {
		r.clearFailures--
		err = errDisk
	}
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.Repository.Clear(ctx)
}

var errDisk = errors.New("disk full")

// fakeClock is a settable clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// eventRecorder collects telemetry events.
type eventRecorder struct {
	mu     sync.Mutex
	events []telemetry.Event
}

func (r *eventRecorder) Emit(ctx context.Context, ev *telemetry.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *ev)
	return nil
}

func (r *eventRecorder) has(eventType string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.events {
		if ev.Type == eventType {
			return true
		}
	}
	return false
}
