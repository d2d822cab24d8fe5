package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const authBody = `{
	"user": {"id": "u1", "email": "ada@acme.io", "full_name": "Ada", "role": "owner", "is_active": true},
	"tokens": {"access_token": "acc", "refresh_token": "ref", "token_type": "bearer", "expires_in": 1800},
	"organization": {"id": "o1", "name": "Acme"}
}`

func TestLogin_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/login" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		var body LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Email != "ada@acme.io" || body.Password != "pw" || !body.RememberMe {
			t.Errorf("body = %+v", body)
		}
		_, _ = w.Write([]byte(authBody))
	}))
	defer srv.Close()

	c := New(srv.URL+"/auth", time.Second)
	res, err := c.Login(context.Background(), LoginRequest{Email: "  ada@acme.io ", Password: "pw", RememberMe: true})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.User.ID != "u1" || res.Tokens.AccessToken != "acc" || res.Tokens.ExpiresIn != 1800 || res.Organization.ID != "o1" {
		t.Errorf("Login = %+v", res)
	}
}

func TestLogin_BlankCredentialsSkipNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls.Add(1) }))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	for _, req := range []LoginRequest{{Email: "", Password: "pw"}, {Email: "a@b.c", Password: ""}, {Email: "   ", Password: "pw"}} {
		if _, err := c.Login(context.Background(), req); !errors.Is(err, ErrMissingCredentials) {
			t.Errorf("Login(%+v) err = %v", req, err)
		}
	}
	if _, err := c.Register(context.Background(), RegisterRequest{Email: "a@b.c"}); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("Register err = %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("network calls = %d, want 0", calls.Load())
	}
}

func TestLogin_DetailVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Invalid email or password"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Login(context.Background(), LoginRequest{Email: "a@b.c", Password: "x"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("err = %v, want 401 APIError", err)
	}
	if err.Error() != "Invalid email or password" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestLogin_IncompleteResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user":{"id":"u1"},"tokens":{"access_token":"a"}}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Login(context.Background(), LoginRequest{Email: "a@b.c", Password: "x"})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("err = %v, want ErrMalformedResponse", err)
	}
}

func TestRegister_OmitsBlankOrganization(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/register" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&raw)
		_, _ = w.Write([]byte(authBody))
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Register(context.Background(), RegisterRequest{
		Email: "ada@acme.io", Password: "pw", FullName: " Ada ", OrganizationName: "   ",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, ok := raw["organization_name"]; ok {
		t.Errorf("organization_name should be omitted, body = %v", raw)
	}
	if raw["full_name"] != "Ada" {
		t.Errorf("full_name = %v", raw["full_name"])
	}
}

func TestLogout_SendsBearerWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/logout" || r.Header.Get("Authorization") != "Bearer acc" {
			t.Errorf("request = %s auth=%q", r.URL.Path, r.Header.Get("Authorization"))
		}
		if r.ContentLength > 0 {
			t.Errorf("logout should have no body, got %d bytes", r.ContentLength)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := New(srv.URL, time.Second).Logout(context.Background(), "acc"); err != nil {
		t.Fatalf("Logout: %v", err)
	}
}

func TestRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch body["refresh_token"] {
		case "rotating":
			_, _ = w.Write([]byte(`{"access_token":"acc2","refresh_token":"ref2","token_type":"bearer","expires_in":900}`))
		case "sticky":
			_, _ = w.Write([]byte(`{"access_token":"acc3","token_type":"bearer"}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Invalid refresh token"}`))
		}
	}))
	defer srv.Close()
	c := New(srv.URL, time.Second)

	tok, err := c.Refresh(context.Background(), "rotating")
	if err != nil || tok.AccessToken != "acc2" || tok.RefreshToken != "ref2" || tok.ExpiresIn != 900 {
		t.Errorf("Refresh rotating = %+v, %v", tok, err)
	}
	tok, err = c.Refresh(context.Background(), "sticky")
	if err != nil || tok.RefreshToken != "sticky" {
		t.Errorf("Refresh sticky = %+v, %v", tok, err)
	}
	if _, err := c.Refresh(context.Background(), "revoked"); err == nil || err.Error() != "Invalid refresh token" {
		t.Errorf("Refresh revoked err = %v", err)
	}
}

func TestMe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/me" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Not authenticated"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"u1","email":"ada@acme.io","full_name":"Ada","is_active":true}`))
	}))
	defer srv.Close()
	c := New(srv.URL, time.Second)

	u, err := c.Me(context.Background(), "good")
	if err != nil || u.ID != "u1" {
		t.Errorf("Me = %+v, %v", u, err)
	}
	_, err = c.Me(context.Background(), "bad")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("Me bad err = %v", err)
	}
}
