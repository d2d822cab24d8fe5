// Package repository holds the development backend's account records: users, local identities,
// refresh grants, organizations and memberships.
package repository

import (
	"context"
	"time"

	"github.com/hariseldon84/singlebrief-full-sub000/internal/identity/domain"
	membershipdomain "github.com/hariseldon84/singlebrief-full-sub000/internal/membership/domain"
	orgdomain "github.com/hariseldon84/singlebrief-full-sub000/internal/organization/domain"
	userdomain "github.com/hariseldon84/singlebrief-full-sub000/internal/user/domain"
)

// Repository defines persistence for everything the auth service owns.
// Getters return nil, nil when the record does not exist.
type Repository interface {
	GetUserByID(ctx context.Context, id string) (*userdomain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*userdomain.User, error)
	CreateUser(ctx context.Context, u *userdomain.User) error

	GetIdentityByUserAndProvider(ctx context.Context, userID string, provider domain.IdentityProvider) (*domain.Identity, error)
	CreateIdentity(ctx context.Context, i *domain.Identity) error

	GetGrant(ctx context.Context, id string) (*domain.Grant, error)
	CreateGrant(ctx context.Context, g *domain.Grant) error
	RevokeGrant(ctx context.Context, id string, at time.Time) error
	RevokeAllGrantsByUser(ctx context.Context, userID string, at time.Time) error
	UpdateGrantRefresh(ctx context.Context, id, jti, refreshTokenHash string, seenAt time.Time) error

	GetOrg(ctx context.Context, id string) (*orgdomain.Org, error)
	CreateOrg(ctx context.Context, o *orgdomain.Org) error

	GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*membershipdomain.Membership, error)
	ListMembershipsByUser(ctx context.Context, userID string) ([]*membershipdomain.Membership, error)
	CreateMembership(ctx context.Context, m *membershipdomain.Membership) error
}
