// Package service is the server side of the Authentication Service contract used by the
// development backend: registration, password login, refresh with rotation, logout and /me.
package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	identitydomain "github.com/hariseldon84/singlebrief-full-sub000/internal/identity/domain"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/identity/repository"
	membershipdomain "github.com/hariseldon84/singlebrief-full-sub000/internal/membership/domain"
	orgdomain "github.com/hariseldon84/singlebrief-full-sub000/internal/organization/domain"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/security"
	userdomain "github.com/hariseldon84/singlebrief-full-sub000/internal/user/domain"
)

// Sentinel errors for auth service; the HTTP layer maps them to status codes.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("incorrect email or password")
	ErrInvalidRefreshToken    = errors.New("invalid or expired refresh token")
	ErrRefreshTokenReuse      = errors.New("refresh token reuse detected; all sessions revoked")
	ErrInvalidAccessToken     = errors.New("could not validate credentials")
)

// ValidationError reports unacceptable registration input. Its message is shown to the user as is.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// TokenPair is a freshly issued access/refresh pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	// ExpiresIn is the access token lifetime.
	ExpiresIn time.Duration
}

// AuthResult is the outcome of Register and Login.
type AuthResult struct {
	TokenPair
	User *userdomain.User
	// Org is the organization the session is bound to; nil when the user has none.
	Org  *orgdomain.Org
	Role membershipdomain.Role
}

// Principal is the caller identified by a valid access token.
type Principal struct {
	UserID  string
	OrgID   string
	GrantID string
}

// Profile is what GET /me reports.
type Profile struct {
	User *userdomain.User
	Org  *orgdomain.Org
	Role membershipdomain.Role
}

// AuthService implements password register, login, refresh, logout and token authentication.
type AuthService struct {
	repo   repository.Repository
	hasher *security.Hasher
	tokens *security.TokenProvider
	now    func() time.Time
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(repo repository.Repository, hasher *security.Hasher, tokens *security.TokenProvider) *AuthService {
	return &AuthService{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		now:    time.Now,
	}
}

// Register creates a user with a local identity and signs it in. When organizationName is
// non-blank an organization is created with the user as owner.
func (s *AuthService) Register(ctx context.Context, email, password, fullName, organizationName string) (*AuthResult, error) {
	email = normalizeEmail(email)
	fullName = strings.TrimSpace(fullName)
	organizationName = strings.TrimSpace(organizationName)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	if fullName == "" {
		return nil, &ValidationError{Msg: "full name is required"}
	}
	existing, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailAlreadyRegistered
	}
	now := s.now().UTC()
	user := &userdomain.User{
		ID:        uuid.New().String(),
		Email:     email,
		FullName:  fullName,
		Status:    userdomain.UserStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := user.Validate(); err != nil {
		return nil, &ValidationError{Msg: err.Error()}
	}
	var org *orgdomain.Org
	if organizationName != "" {
		org = &orgdomain.Org{ID: uuid.New().String(), Name: organizationName, CreatedAt: now}
		if err := org.Validate(); err != nil {
			return nil, &ValidationError{Msg: err.Error()}
		}
	}
	hashed, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailAlreadyRegistered
		}
		return nil, err
	}
	identity := &identitydomain.Identity{
		ID:           uuid.New().String(),
		UserID:       user.ID,
		Provider:     identitydomain.IdentityProviderLocal,
		ProviderID:   email,
		PasswordHash: hashed,
		CreatedAt:    now,
	}
	if err := s.repo.CreateIdentity(ctx, identity); err != nil {
		return nil, err
	}
	res := &AuthResult{User: user}
	orgID := ""
	if org != nil {
		if err := s.repo.CreateOrg(ctx, org); err != nil {
			return nil, err
		}
		m := &membershipdomain.Membership{
			ID:        uuid.New().String(),
			UserID:    user.ID,
			OrgID:     org.ID,
			Role:      membershipdomain.RoleOwner,
			CreatedAt: now,
		}
		if err := s.repo.CreateMembership(ctx, m); err != nil {
			return nil, err
		}
		res.Org, res.Role, orgID = org, m.Role, org.ID
	}
	pair, err := s.openGrant(ctx, user.ID, orgID)
	if err != nil {
		return nil, err
	}
	res.TokenPair = *pair
	return res, nil
}

// Login authenticates with email and password. The session is bound to the user's oldest
// organization membership, if any.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive() {
		return nil, ErrInvalidCredentials
	}
	ident, err := s.repo.GetIdentityByUserAndProvider(ctx, user.ID, identitydomain.IdentityProviderLocal)
	if err != nil {
		return nil, err
	}
	if ident == nil || ident.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(ident.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	res := &AuthResult{User: user}
	memberships, err := s.repo.ListMembershipsByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	orgID := ""
	if len(memberships) > 0 {
		org, err := s.repo.GetOrg(ctx, memberships[0].OrgID)
		if err != nil {
			return nil, err
		}
		if org != nil {
			res.Org, res.Role, orgID = org, memberships[0].Role, org.ID
		}
	}
	pair, err := s.openGrant(ctx, user.ID, orgID)
	if err != nil {
		return nil, err
	}
	res.TokenPair = *pair
	return res, nil
}

// openGrant creates a grant and issues its first token pair.
func (s *AuthService) openGrant(ctx context.Context, userID, orgID string) (*TokenPair, error) {
	grantID := uuid.New().String()
	refreshToken, jti, refreshExp, err := s.tokens.IssueRefresh(grantID, userID, orgID)
	if err != nil {
		return nil, err
	}
	accessToken, _, _, err := s.tokens.IssueAccess(grantID, userID, orgID)
	if err != nil {
		return nil, err
	}
	grant := &identitydomain.Grant{
		ID:               grantID,
		UserID:           userID,
		OrgID:            orgID,
		RefreshJti:       jti,
		RefreshTokenHash: security.HashRefreshToken(refreshToken),
		ExpiresAt:        refreshExp,
		CreatedAt:        s.now().UTC(),
	}
	if err := s.repo.CreateGrant(ctx, grant); err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken, ExpiresIn: s.tokens.AccessTTL()}, nil
}

// Refresh validates the refresh token, rotates it, and returns a new pair.
// A token that was already rotated away revokes every grant of its user.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}
	claims, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	grant, err := s.repo.GetGrant(ctx, claims.GrantID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if !grant.Active(now) || grant.UserID != claims.Subject {
		return nil, ErrInvalidRefreshToken
	}
	if grant.RefreshJti != claims.ID {
		_ = s.repo.RevokeAllGrantsByUser(ctx, grant.UserID, now)
		return nil, ErrRefreshTokenReuse
	}
	if grant.RefreshTokenHash != "" && !security.RefreshTokenHashEqual(refreshToken, grant.RefreshTokenHash) {
		return nil, ErrInvalidRefreshToken
	}
	newRefresh, newJti, _, err := s.tokens.IssueRefresh(grant.ID, grant.UserID, grant.OrgID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateGrantRefresh(ctx, grant.ID, newJti, security.HashRefreshToken(newRefresh), now); err != nil {
		return nil, err
	}
	accessToken, _, _, err := s.tokens.IssueAccess(grant.ID, grant.UserID, grant.OrgID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: newRefresh, ExpiresIn: s.tokens.AccessTTL()}, nil
}

// Authenticate resolves a bearer access token to its principal. The token's grant must still be
// active, so logout and reuse detection invalidate outstanding access tokens immediately.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*Principal, error) {
	claims, err := s.tokens.ValidateAccess(accessToken)
	if err != nil {
		return nil, ErrInvalidAccessToken
	}
	grant, err := s.repo.GetGrant(ctx, claims.GrantID)
	if err != nil {
		return nil, err
	}
	if !grant.Active(s.now().UTC()) {
		return nil, ErrInvalidAccessToken
	}
	return &Principal{UserID: claims.Subject, OrgID: claims.OrgID, GrantID: claims.GrantID}, nil
}

// Me returns the principal's profile.
func (s *AuthService) Me(ctx context.Context, p *Principal) (*Profile, error) {
	user, err := s.repo.GetUserByID(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive() {
		return nil, ErrInvalidAccessToken
	}
	out := &Profile{User: user}
	if p.OrgID == "" {
		return out, nil
	}
	org, err := s.repo.GetOrg(ctx, p.OrgID)
	if err != nil {
		return nil, err
	}
	m, err := s.repo.GetMembershipByUserAndOrg(ctx, p.UserID, p.OrgID)
	if err != nil {
		return nil, err
	}
	if org != nil && m != nil {
		out.Org, out.Role = org, m.Role
	}
	return out, nil
}

// Logout revokes the grant. Unknown or already revoked grants are a no-op.
func (s *AuthService) Logout(ctx context.Context, grantID string) error {
	if grantID == "" {
		return nil
	}
	return s.repo.RevokeGrant(ctx, grantID, s.now().UTC())
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

var simpleEmail = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func validateEmail(email string) error {
	if email == "" {
		return &ValidationError{Msg: "email is required"}
	}
	if !simpleEmail.MatchString(email) {
		return &ValidationError{Msg: "invalid email format"}
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return &ValidationError{Msg: "password must be at least 8 characters"}
	}
	var hasLetter, hasNumber bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
			hasLetter = true
		case r >= '0' && r <= '9':
			hasNumber = true
		}
	}
	if !hasLetter {
		return &ValidationError{Msg: "password must contain at least one letter"}
	}
	if !hasNumber {
		return &ValidationError{Msg: "password must contain at least one number"}
	}
	return nil
}
