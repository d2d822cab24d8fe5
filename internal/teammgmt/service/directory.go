// Package service is the development backend's team directory: members and invitations,
// scoped per organization.
package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/hariseldon84/singlebrief-full-sub000/internal/teammgmt/domain"
)

// DefaultInvitationTTL is how long an invitation stays pending.
const DefaultInvitationTTL = 7 * 24 * time.Hour

var (
	ErrMemberNotFound     = errors.New("team member not found")
	ErrMemberExists       = errors.New("a team member with this email already exists")
	ErrInvitationNotFound = errors.New("invitation not found or expired")
)

// InvalidInputError wraps a validation failure of the request body.
type InvalidInputError struct{ Err error }

func (e *InvalidInputError) Error() string { return e.Err.Error() }
func (e *InvalidInputError) Unwrap() error { return e.Err }

// Directory stores members per organization in memory. Pending invitations live in a go-cache
// with the invitation TTL, so expired ones disappear without a sweeper of our own.
type Directory struct {
	mu      sync.Mutex
	members map[string]map[string]*domain.Member // orgID -> memberID -> member
	invites *cache.Cache                         // orgID + "/" + invitationID -> *domain.Invitation
	ttl     time.Duration
	now     func() time.Time
}

// NewDirectory returns an empty directory. ttl <= 0 uses DefaultInvitationTTL.
func NewDirectory(ttl time.Duration) *Directory {
	if ttl <= 0 {
		ttl = DefaultInvitationTTL
	}
	return &Directory{
		members: make(map[string]map[string]*domain.Member),
		invites: cache.New(ttl, time.Hour),
		ttl:     ttl,
		now:     time.Now,
	}
}

// List returns the org's members ordered by name.
func (d *Directory) List(ctx context.Context, orgID string) []domain.Member {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.Member, 0, len(d.members[orgID]))
	for _, m := range d.members[orgID] {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FullName == out[j].FullName {
			return out[i].ID < out[j].ID
		}
		return out[i].FullName < out[j].FullName
	})
	return out
}

// Get returns one member.
func (d *Directory) Get(ctx context.Context, orgID, id string) (*domain.Member, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.members[orgID][id]
	if !ok {
		return nil, ErrMemberNotFound
	}
	out := *m
	return &out, nil
}

// Create adds an active member. Emails are unique within an organization.
func (d *Directory) Create(ctx context.Context, orgID string, in domain.MemberInput) (*domain.Member, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, &InvalidInputError{Err: err}
	}
	return d.add(orgID, in, domain.MemberStatusActive)
}

func (d *Directory) add(orgID string, in domain.MemberInput, status domain.MemberStatus) (*domain.Member, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	team := d.members[orgID]
	if team == nil {
		team = make(map[string]*domain.Member)
		d.members[orgID] = team
	}
	for _, existing := range team {
		if strings.EqualFold(existing.Email, in.Email) {
			return nil, ErrMemberExists
		}
	}
	now := d.now().UTC()
	m := &domain.Member{
		ID:          uuid.New().String(),
		FullName:    in.FullName,
		Email:       in.Email,
		Role:        in.Role,
		Department:  in.Department,
		Designation: in.Designation,
		Channel:     in.Channel,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	team[m.ID] = m
	out := *m
	return &out, nil
}

// Update applies u to the member.
func (d *Directory) Update(ctx context.Context, orgID, id string, u domain.MemberUpdate) (*domain.Member, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.members[orgID][id]
	if !ok {
		return nil, ErrMemberNotFound
	}
	next := *m
	if err := u.Apply(&next); err != nil {
		return nil, &InvalidInputError{Err: err}
	}
	next.UpdatedAt = d.now().UTC()
	*m = next
	return &next, nil
}

// Invite records a pending invitation and lists the invitee as an invited member.
func (d *Directory) Invite(ctx context.Context, orgID string, req domain.InvitationRequest) (*domain.Invitation, error) {
	if err := req.Validate(); err != nil {
		return nil, &InvalidInputError{Err: err}
	}
	name := req.FullName
	if name == "" {
		name = req.EmailAddress
	}
	m, err := d.add(orgID, domain.MemberInput{FullName: name, Email: req.EmailAddress, Role: string(req.Role)}, domain.MemberStatusInvited)
	if err != nil {
		return nil, err
	}
	now := d.now().UTC()
	inv := &domain.Invitation{
		ID:           uuid.New().String(),
		EmailAddress: req.EmailAddress,
		Role:         req.Role,
		Status:       "pending",
		MemberID:     m.ID,
		CreatedAt:    now,
		ExpiresAt:    now.Add(d.ttl),
	}
	d.invites.Set(inviteKey(orgID, inv.ID), inv, d.ttl)
	out := *inv
	return &out, nil
}

// Accept turns a pending invitation into an active member.
func (d *Directory) Accept(ctx context.Context, orgID, invitationID string) (*domain.Member, error) {
	key := inviteKey(orgID, invitationID)
	v, ok := d.invites.Get(key)
	if !ok {
		return nil, ErrInvitationNotFound
	}
	inv := v.(*domain.Invitation)
	d.invites.Delete(key)
	active := domain.MemberStatusActive
	return d.Update(ctx, orgID, inv.MemberID, domain.MemberUpdate{Status: &active})
}

// PendingInvitations returns the org's unexpired invitations.
func (d *Directory) PendingInvitations(ctx context.Context, orgID string) []domain.Invitation {
	prefix := orgID + "/"
	var out []domain.Invitation
	for k, item := range d.invites.Items() {
		if strings.HasPrefix(k, prefix) {
			out = append(out, *item.Object.(*domain.Invitation))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func inviteKey(orgID, id string) string {
	return orgID + "/" + id
}
