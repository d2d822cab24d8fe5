package domain

import "time"

// Role is the user's role within the organization.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// User is the authenticated actor as returned by the Authentication Service.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	Role      Role   `json:"role,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	IsActive  bool   `json:"is_active"`
}

// Organization is the optional tenant context of the session.
type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

// Tokens is the token pair issued on login, registration and refresh.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	// ExpiresIn is the access token lifetime in seconds; zero when the service omits it.
	ExpiresIn int64 `json:"expires_in"`
	// ObtainedAt is set by the client when the pair is installed; services never send it.
	ObtainedAt time.Time `json:"obtained_at,omitzero"`
}

// Lifetime returns ExpiresIn as a duration, or zero when unknown.
func (t *Tokens) Lifetime() time.Duration {
	if t == nil || t.ExpiresIn <= 0 {
		return 0
	}
	return time.Duration(t.ExpiresIn) * time.Second
}

// Valid reports whether both tokens are present.
func (t *Tokens) Valid() bool {
	return t != nil && t.AccessToken != "" && t.RefreshToken != ""
}

// Status is the session-level state.
type Status string

const (
	// StatusUnauthenticated: no tokens.
	StatusUnauthenticated Status = "unauthenticated"
	// StatusRestored: tokens and user rehydrated from persistence, not yet validated.
	StatusRestored Status = "restored"
	// StatusAuthenticated: tokens and user present and the last validation succeeded.
	StatusAuthenticated Status = "authenticated"
)

// Session is the client-side record of who is using the app and with which tokens.
// Values handed out by the manager are copies; mutating them has no effect on the live session.
type Session struct {
	User         *User
	Organization *Organization
	Tokens       *Tokens
	Status       Status
	// IsLoading is true while a login, registration or refresh is in flight.
	IsLoading bool
	// ValidatedAt is when the last successful validation happened.
	ValidatedAt time.Time
}

// IsAuthenticated is true iff tokens and user are present and the last validation succeeded.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.Status == StatusAuthenticated && s.User != nil && s.Tokens.Valid()
}

// HasCredentials reports whether there is anything a refresh could validate.
func (s *Session) HasCredentials() bool {
	return s != nil && s.User != nil && s.Tokens.Valid()
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	if s.Organization != nil {
		o := *s.Organization
		out.Organization = &o
	}
	if s.Tokens != nil {
		t := *s.Tokens
		out.Tokens = &t
	}
	return &out
}

// AuthResult is the payload of a successful login or registration.
type AuthResult struct {
	User         *User         `json:"user"`
	Tokens       *Tokens       `json:"tokens"`
	Organization *Organization `json:"organization,omitempty"`
}
