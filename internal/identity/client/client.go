// Package client talks to the Authentication Service: login, registration, logout, token
// refresh and the /me probe.
package client

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/hariseldon84/singlebrief-full-sub000/internal/platform/restclient"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/session/domain"
)

// APIError is returned for non-2xx responses; Error() is the service's detail verbatim.
type APIError = restclient.APIError

// ErrMissingCredentials is returned before any network call when email or password is blank.
var ErrMissingCredentials = errors.New("email and password are required")

// ErrMalformedResponse is returned when a 2xx response lacks the user or the token pair.
var ErrMalformedResponse = errors.New("authentication service returned an incomplete response")

// LoginRequest is the POST /login body.
type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

// RegisterRequest is the POST /register body.
type RegisterRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	FullName         string `json:"full_name"`
	OrganizationName string `json:"organization_name,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Client is the Authentication Service client.
type Client struct {
	rest *restclient.Client
}

// New returns a Client for baseURL (AUTH_BASE_URL). Options are passed to the REST transport.
func New(baseURL string, timeout time.Duration, opts ...restclient.Option) *Client {
	return &Client{rest: restclient.New(baseURL, timeout, opts...)}
}

// Login exchanges credentials for a user, a token pair and an optional organization.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*domain.AuthResult, error) {
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return nil, ErrMissingCredentials
	}
	var out domain.AuthResult
	if err := c.rest.Do(ctx, http.MethodPost, "/login", "", req, &out); err != nil {
		return nil, err
	}
	if out.User == nil || !out.Tokens.Valid() {
		return nil, ErrMalformedResponse
	}
	return &out, nil
}

// Register creates an account, and an organization when OrganizationName is non-blank.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*domain.AuthResult, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)
	req.OrganizationName = strings.TrimSpace(req.OrganizationName)
	if req.Email == "" || req.Password == "" {
		return nil, ErrMissingCredentials
	}
	var out domain.AuthResult
	if err := c.rest.Do(ctx, http.MethodPost, "/register", "", req, &out); err != nil {
		return nil, err
	}
	if out.User == nil || !out.Tokens.Valid() {
		return nil, ErrMalformedResponse
	}
	return &out, nil
}

// Logout revokes the session server-side. The access token is sent as bearer, with no body.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	return c.rest.Do(ctx, http.MethodPost, "/logout", accessToken, nil, nil)
}

// Refresh exchanges the refresh token for a new token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*domain.Tokens, error) {
	var out domain.Tokens
	if err := c.rest.Do(ctx, http.MethodPost, "/refresh", "", refreshRequest{RefreshToken: refreshToken}, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, ErrMalformedResponse
	}
	if out.RefreshToken == "" {
		// Services that do not rotate keep the old refresh token valid.
		out.RefreshToken = refreshToken
	}
	return &out, nil
}

// Me returns the user the access token belongs to.
func (c *Client) Me(ctx context.Context, accessToken string) (*domain.User, error) {
	var out domain.User
	if err := c.rest.Do(ctx, http.MethodGet, "/me", accessToken, nil, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, ErrMalformedResponse
	}
	return &out, nil
}
