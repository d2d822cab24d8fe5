// Package rbac guards team-management operations by organization role.
package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/hariseldon84/singlebrief-full-sub000/internal/membership/domain"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/platform/authctx"
)

var (
	// ErrUnauthenticated means the context carries no caller.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrNoOrganization means the caller's session is not bound to an organization.
	ErrNoOrganization = errors.New("an organization is required; register one to manage a team")
	// ErrNotMember means the caller is not a member of the context organization.
	ErrNotMember = errors.New("not a member of this organization")
	// ErrAdminRequired means the caller's role may not change the team.
	ErrAdminRequired = errors.New("organization admin or owner required")
)

// OrgMembershipGetter returns a user's membership in an org, or nil when there is none.
type OrgMembershipGetter interface {
	GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error)
}

// RequireOrgMember ensures the caller is authenticated and is a member of the context org (any role).
func RequireOrgMember(ctx context.Context, getter OrgMembershipGetter) (orgID, userID string, err error) {
	orgID, userID, _, err = resolve(ctx, getter)
	return orgID, userID, err
}

// RequireOrgAdmin ensures the caller is authenticated and has role owner or admin in the context org.
func RequireOrgAdmin(ctx context.Context, getter OrgMembershipGetter) (orgID, userID string, err error) {
	orgID, userID, m, err := resolve(ctx, getter)
	if err != nil {
		return "", "", err
	}
	if !m.Role.CanManageTeam() {
		return "", "", ErrAdminRequired
	}
	return orgID, userID, nil
}

func resolve(ctx context.Context, getter OrgMembershipGetter) (string, string, *domain.Membership, error) {
	userID, okUser := authctx.GetUserID(ctx)
	if !okUser || userID == "" {
		return "", "", nil, ErrUnauthenticated
	}
	orgID, _ := authctx.GetOrgID(ctx)
	if orgID == "" {
		return "", "", nil, ErrNoOrganization
	}
	m, err := getter.GetMembershipByUserAndOrg(ctx, userID, orgID)
	if err != nil {
		return "", "", nil, fmt.Errorf("rbac: resolve membership: %w", err)
	}
	if m == nil {
		return "", "", nil, ErrNotMember
	}
	return orgID, userID, m, nil
}
