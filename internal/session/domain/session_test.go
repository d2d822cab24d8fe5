package domain

import (
	"testing"
	"time"
)

func TestTokens_LifetimeAndValid(t *testing.T) {
	var nilTokens *Tokens
	if nilTokens.Lifetime() != 0 || nilTokens.Valid() {
		t.Error("nil tokens must have no lifetime and be invalid")
	}
	tok := &Tokens{AccessToken: "a", RefreshToken: "r", ExpiresIn: 1800}
	if tok.Lifetime() != 30*time.Minute {
		t.Errorf("Lifetime = %v", tok.Lifetime())
	}
	if !tok.Valid() {
		t.Error("tokens with both values should be valid")
	}
	if (&Tokens{AccessToken: "a"}).Valid() {
		t.Error("missing refresh token should be invalid")
	}
}

func TestSession_IsAuthenticated(t *testing.T) {
	user := &User{ID: "u1"}
	tokens := &Tokens{AccessToken: "a", RefreshToken: "r"}
	testCases := []struct {
		name string
		s    *Session
		want bool
	}{
		{"nil", nil, false},
		{"empty", &Session{Status: StatusUnauthenticated}, false},
		{"restored", &Session{User: user, Tokens: tokens, Status: StatusRestored}, false},
		{"authenticated", &Session{User: user, Tokens: tokens, Status: StatusAuthenticated}, true},
		{"authenticated without user", &Session{Tokens: tokens, Status: StatusAuthenticated}, false},
		{"authenticated without tokens", &Session{User: user, Status: StatusAuthenticated}, false},
	}
	for _, tc := range testCases {
		if got := tc.s.IsAuthenticated(); got != tc.want {
			t.Errorf("%s: IsAuthenticated = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestSession_CloneIsDeep(t *testing.T) {
	s := &Session{
		User:         &User{ID: "u1", Email: "a@b.com"},
		Organization: &Organization{ID: "o1"},
		Tokens:       &Tokens{AccessToken: "a", RefreshToken: "r"},
		Status:       StatusAuthenticated,
	}
	c := s.Clone()
	c.User.Email = "x@y.z"
	c.Organization.ID = "o2"
	c.Tokens.AccessToken = "b"
	if s.User.Email != "a@b.com" || s.Organization.ID != "o1" || s.Tokens.AccessToken != "a" {
		t.Errorf("mutating clone changed original: %+v", s)
	}
	if (*Session)(nil).Clone() != nil {
		t.Error("Clone of nil should be nil")
	}
}
