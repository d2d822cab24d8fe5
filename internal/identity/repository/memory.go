package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/hariseldon84/singlebrief-full-sub000/internal/identity/domain"
	membershipdomain "github.com/hariseldon84/singlebrief-full-sub000/internal/membership/domain"
	orgdomain "github.com/hariseldon84/singlebrief-full-sub000/internal/organization/domain"
	userdomain "github.com/hariseldon84/singlebrief-full-sub000/internal/user/domain"
)

// ErrDuplicate is returned when a unique key (user email, membership user+org) is already taken.
var ErrDuplicate = errors.New("repository: duplicate record")

// MemoryRepository keeps all records in maps guarded by one mutex. Records are copied on the way
// in and out so callers never share memory with the store.
type MemoryRepository struct {
	mu          sync.Mutex
	users       map[string]*userdomain.User
	userByEmail map[string]string
	identities  map[string]*domain.Identity
	grants      map[string]*domain.Grant
	orgs        map[string]*orgdomain.Org
	memberships map[string]*membershipdomain.Membership
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:       make(map[string]*userdomain.User),
		userByEmail: make(map[string]string),
		identities:  make(map[string]*domain.Identity),
		grants:      make(map[string]*domain.Grant),
		orgs:        make(map[string]*orgdomain.Org),
		memberships: make(map[string]*membershipdomain.Membership),
	}
}

func (r *MemoryRepository) GetUserByID(ctx context.Context, id string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyOf(r.users[id]), nil
}

func (r *MemoryRepository) GetUserByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.userByEmail[email]
	if !ok {
		return nil, nil
	}
	return copyOf(r.users[id]), nil
}

func (r *MemoryRepository) CreateUser(ctx context.Context, u *userdomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.userByEmail[u.Email]; ok {
		return ErrDuplicate
	}
	r.users[u.ID] = copyOf(u)
	r.userByEmail[u.Email] = u.ID
	return nil
}

func (r *MemoryRepository) GetIdentityByUserAndProvider(ctx context.Context, userID string, provider domain.IdentityProvider) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.identities {
		if i.UserID == userID && i.Provider == provider {
			return copyOf(i), nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) CreateIdentity(ctx context.Context, i *domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.identities[i.ID] = copyOf(i)
	return nil
}

func (r *MemoryRepository) GetGrant(ctx context.Context, id string) (*domain.Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyOf(r.grants[id]), nil
}

func (r *MemoryRepository) CreateGrant(ctx context.Context, g *domain.Grant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grants[g.ID] = copyOf(g)
	return nil
}

func (r *MemoryRepository) RevokeGrant(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.grants[id]; ok && g.RevokedAt == nil {
		g.RevokedAt = &at
	}
	return nil
}

func (r *MemoryRepository) RevokeAllGrantsByUser(ctx context.Context, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.grants {
		if g.UserID == userID && g.RevokedAt == nil {
			g.RevokedAt = &at
		}
	}
	return nil
}

func (r *MemoryRepository) UpdateGrantRefresh(ctx context.Context, id, jti, refreshTokenHash string, seenAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.grants[id]; ok {
		g.RefreshJti = jti
		g.RefreshTokenHash = refreshTokenHash
		g.LastSeenAt = &seenAt
	}
	return nil
}

func (r *MemoryRepository) GetOrg(ctx context.Context, id string) (*orgdomain.Org, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyOf(r.orgs[id]), nil
}

func (r *MemoryRepository) CreateOrg(ctx context.Context, o *orgdomain.Org) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orgs[o.ID] = copyOf(o)
	return nil
}

func (r *MemoryRepository) GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*membershipdomain.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.memberships {
		if m.UserID == userID && m.OrgID == orgID {
			return copyOf(m), nil
		}
	}
	return nil, nil
}

// ListMembershipsByUser returns the user's memberships, oldest first.
func (r *MemoryRepository) ListMembershipsByUser(ctx context.Context, userID string) ([]*membershipdomain.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*membershipdomain.Membership
	for _, m := range r.memberships {
		if m.UserID == userID {
			out = append(out, copyOf(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepository) CreateMembership(ctx context.Context, m *membershipdomain.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.memberships {
		if existing.UserID == m.UserID && existing.OrgID == m.OrgID {
			return ErrDuplicate
		}
	}
	r.memberships[m.ID] = copyOf(m)
	return nil
}

func copyOf[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

var _ Repository = (*MemoryRepository)(nil)
