package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/hariseldon84/singlebrief-full-sub000/internal/membership/domain"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/platform/authctx"
)

// mockMembershipGetter implements OrgMembershipGetter for tests.
type mockMembershipGetter struct {
	memberships map[string]*domain.Membership
	err         error
}

func (m *mockMembershipGetter) GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.memberships[userID+":"+orgID], nil
}

func getterWithRole(role domain.Role) *mockMembershipGetter {
	return &mockMembershipGetter{memberships: map[string]*domain.Membership{
		"user-1:org-1": {ID: "m1", UserID: "user-1", OrgID: "org-1", Role: role},
	}}
}

func TestRequireOrgAdmin(t *testing.T) {
	errDB := errors.New("database error")
	tests := []struct {
		name    string
		ctx     context.Context
		getter  *mockMembershipGetter
		wantErr error
	}{
		{"owner", authctx.WithIdentity(context.Background(), "user-1", "org-1", "g"), getterWithRole(domain.RoleOwner), nil},
		{"admin", authctx.WithIdentity(context.Background(), "user-1", "org-1", "g"), getterWithRole(domain.RoleAdmin), nil},
		{"member", authctx.WithIdentity(context.Background(), "user-1", "org-1", "g"), getterWithRole(domain.RoleMember), ErrAdminRequired},
		{"not member", authctx.WithIdentity(context.Background(), "user-2", "org-1", "g"), getterWithRole(domain.RoleOwner), ErrNotMember},
		{"no org", authctx.WithIdentity(context.Background(), "user-1", "", "g"), getterWithRole(domain.RoleOwner), ErrNoOrganization},
		{"no caller", context.Background(), getterWithRole(domain.RoleOwner), ErrUnauthenticated},
		{"repository error", authctx.WithIdentity(context.Background(), "user-1", "org-1", "g"), &mockMembershipGetter{err: errDB}, errDB},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orgID, userID, err := RequireOrgAdmin(tt.ctx, tt.getter)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("RequireOrgAdmin: %v", err)
			}
			if orgID != "org-1" || userID != "user-1" {
				t.Errorf("got (%q, %q), want (org-1, user-1)", orgID, userID)
			}
		})
	}
}

func TestRequireOrgMember(t *testing.T) {
	ctx := authctx.WithIdentity(context.Background(), "user-1", "org-1", "g")
	if _, _, err := RequireOrgMember(ctx, getterWithRole(domain.RoleMember)); err != nil {
		t.Errorf("member: %v", err)
	}
	other := authctx.WithIdentity(context.Background(), "user-2", "org-1", "g")
	if _, _, err := RequireOrgMember(other, getterWithRole(domain.RoleMember)); !errors.Is(err, ErrNotMember) {
		t.Errorf("non-member err = %v, want ErrNotMember", err)
	}
	if _, _, err := RequireOrgMember(context.Background(), getterWithRole(domain.RoleMember)); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("no caller err = %v, want ErrUnauthenticated", err)
	}
}
