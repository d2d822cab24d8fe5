package domain

import "time"

// Identity is a user's local credential.
type Identity struct {
	ID           string
	UserID       string
	Provider     IdentityProvider
	ProviderID   string
	PasswordHash string
	CreatedAt    time.Time
}

type IdentityProvider string

const (
	IdentityProviderLocal IdentityProvider = "local"
)

// Grant is the server-side record behind one token pair family. Every refresh rotates RefreshJti;
// presenting a refresh token whose jti no longer matches revokes all of the user's grants.
type Grant struct {
	ID               string
	UserID           string
	OrgID            string
	RefreshJti       string
	RefreshTokenHash string
	ExpiresAt        time.Time
	RevokedAt        *time.Time
	LastSeenAt       *time.Time
	CreatedAt        time.Time
}

// Active reports whether the grant is neither revoked nor expired at now.
func (g *Grant) Active(now time.Time) bool {
	return g != nil && g.RevokedAt == nil && now.Before(g.ExpiresAt)
}
