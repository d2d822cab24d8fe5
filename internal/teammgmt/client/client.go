// Package client talks to the team-management backend on behalf of the signed-in user.
package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hariseldon84/singlebrief-full-sub000/internal/platform/restclient"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/teammgmt/domain"
)

// ErrNotAuthenticated is returned without a network call when there is no access token.
var ErrNotAuthenticated = errors.New("sign in to manage your team")

// TokenSource yields the current access token; the session Accessor satisfies it.
type TokenSource interface {
	AccessToken() string
}

// Client is the team-management client. Every request carries the current bearer token.
type Client struct {
	rest   *restclient.Client
	tokens TokenSource
}

// New returns a Client for baseURL (API_BASE_URL).
func New(baseURL string, timeout time.Duration, tokens TokenSource, opts ...restclient.Option) *Client {
	return &Client{rest: restclient.New(baseURL, timeout, opts...), tokens: tokens}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	token := c.tokens.AccessToken()
	if token == "" {
		return ErrNotAuthenticated
	}
	return c.rest.Do(ctx, method, path, token, in, out)
}

// ListMembers returns every member of the caller's team.
func (c *Client) ListMembers(ctx context.Context) ([]domain.Member, error) {
	var out domain.MemberList
	if err := c.do(ctx, http.MethodGet, "/team-management/members", nil, &out); err != nil {
		return nil, err
	}
	return out.Members, nil
}

// ActiveMembers returns the members that can receive a query.
func (c *Client) ActiveMembers(ctx context.Context) ([]domain.Member, error) {
	all, err := c.ListMembers(ctx)
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, m := range all {
		if m.Status == domain.MemberStatusActive {
			active = append(active, m)
		}
	}
	return active, nil
}

// GetMember returns one member.
func (c *Client) GetMember(ctx context.Context, id string) (*domain.Member, error) {
	var out domain.Member
	if err := c.do(ctx, http.MethodGet, memberPath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateMember adds a member directly, without an invitation.
func (c *Client) CreateMember(ctx context.Context, in domain.MemberInput) (*domain.Member, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var out domain.Member
	if err := c.do(ctx, http.MethodPost, "/team-management/members", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateMember changes the fields set in u.
func (c *Client) UpdateMember(ctx context.Context, id string, u domain.MemberUpdate) (*domain.Member, error) {
	var out domain.Member
	if err := c.do(ctx, http.MethodPut, memberPath(id), u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// InviteMember sends an invitation; the invitee appears as an invited member until they accept.
func (c *Client) InviteMember(ctx context.Context, req domain.InvitationRequest) (*domain.Invitation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out domain.Invitation
	if err := c.do(ctx, http.MethodPost, "/team-management/clerk-invitations", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func memberPath(id string) string {
	return "/team-management/members/" + url.PathEscape(strings.TrimSpace(id))
}
