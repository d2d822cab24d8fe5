package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, expired, or of the wrong kind.
	ErrInvalidToken = errors.New("invalid token")
	// ErrNoExpiry is returned by PeekExpiry when the token carries no exp claim.
	ErrNoExpiry = errors.New("token has no exp claim")
)

// Token kinds carried in the typ claim so a refresh token is never accepted as an access token.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

// Claims are the JWT claims shared by access and refresh tokens.
type Claims struct {
	jwt.RegisteredClaims
	Kind    string `json:"typ"`
	GrantID string `json:"grant_id"`
	OrgID   string `json:"org_id,omitempty"`
}

// TokenProvider issues and validates access and refresh JWTs signed with RS256 or ES256.
type TokenProvider struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenProvider returns a TokenProvider that signs with privateKey and verifies with publicKey.
// issuer and audience are set on every token and enforced on validation.
func NewTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string, accessTTL, refreshTTL time.Duration) *TokenProvider {
	return &TokenProvider{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// AccessTTL returns the access token lifetime; it is reported to clients as expires_in.
func (p *TokenProvider) AccessTTL() time.Duration { return p.accessTTL }

// RefreshTTL returns the refresh token lifetime.
func (p *TokenProvider) RefreshTTL() time.Duration { return p.refreshTTL }

// IssueAccess issues an access JWT bound to grantID. Returns the token, its jti and its expiry.
func (p *TokenProvider) IssueAccess(grantID, userID, orgID string) (token, jti string, expiresAt time.Time, err error) {
	return p.issue(KindAccess, p.accessTTL, grantID, userID, orgID)
}

// IssueRefresh issues a refresh JWT bound to grantID. The caller stores jti on the grant for rotation.
func (p *TokenProvider) IssueRefresh(grantID, userID, orgID string) (token, jti string, expiresAt time.Time, err error) {
	return p.issue(KindRefresh, p.refreshTTL, grantID, userID, orgID)
}

func (p *TokenProvider) issue(kind string, ttl time.Duration, grantID, userID, orgID string) (string, string, time.Time, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", "", time.Time{}, err
	}
	now := p.now().UTC()
	expiresAt := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Kind:    kind,
		GrantID: grantID,
		OrgID:   orgID,
	}
	var method jwt.SigningMethod
	switch p.privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return "", "", time.Time{}, ErrInvalidKey
	}
	token, err := jwt.NewWithClaims(method, claims).SignedString(p.privateKey)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return token, jti, expiresAt, nil
}

// ValidateAccess verifies signature, exp, iss, aud and kind of an access token.
func (p *TokenProvider) ValidateAccess(tokenString string) (*Claims, error) {
	return p.validate(tokenString, KindAccess)
}

// ValidateRefresh verifies signature, exp, iss, aud and kind of a refresh token.
func (p *TokenProvider) ValidateRefresh(tokenString string) (*Claims, error) {
	return p.validate(tokenString, KindRefresh)
}

func (p *TokenProvider) validate(tokenString, kind string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg(), jwt.SigningMethodES256.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return p.publicKey, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Kind != kind || claims.Subject == "" || claims.GrantID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// PeekExpiry returns the exp claim of a JWT without verifying its signature.
// Clients use it to schedule refreshes when the service omits expires_in; never use it for authorization.
func PeekExpiry(tokenString string) (time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return time.Time{}, ErrInvalidToken
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
