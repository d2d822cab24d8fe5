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

	"github.com/hariseldon84/singlebrief-full-sub000/internal/platform/restclient"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/teammgmt/domain"
)

type staticToken string

func (s staticToken) AccessToken() string { return string(s) }

func TestListMembers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/team-management/members" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		_, _ = w.Write([]byte(`{"members":[
			{"id":"m1","full_name":"Ada","email":"ada@acme.io","status":"active"},
			{"id":"m2","full_name":"Bob","email":"bob@acme.io","status":"invited"}
		],"total":2}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, staticToken("tok"))
	all, err := c.ListMembers(context.Background())
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	if len(all) != 2 || all[1].Status != domain.MemberStatusInvited {
		t.Errorf("members = %+v", all)
	}
	active, err := c.ActiveMembers(context.Background())
	if err != nil {
		t.Fatalf("ActiveMembers: %v", err)
	}
	if len(active) != 1 || active[0].ID != "m1" {
		t.Errorf("active = %+v", active)
	}
}

func TestNoTokenSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls.Add(1) }))
	defer srv.Close()

	c := New(srv.URL, time.Second, staticToken(""))
	if _, err := c.ListMembers(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("err = %v, want ErrNotAuthenticated", err)
	}
	if calls.Load() != 0 {
		t.Errorf("calls = %d", calls.Load())
	}
}

func TestCreateAndUpdateMember(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/team-management/members":
			var in domain.MemberInput
			_ = json.NewDecoder(r.Body).Decode(&in)
			if in.Email != "ada@acme.io" || in.FullName != "Ada" {
				t.Errorf("create body = %+v", in)
			}
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(domain.Member{ID: "m1", FullName: in.FullName, Email: in.Email, Status: domain.MemberStatusActive})
		case r.Method == http.MethodPut && r.URL.Path == "/team-management/members/m1":
			var u domain.MemberUpdate
			_ = json.NewDecoder(r.Body).Decode(&u)
			if u.Department == nil || *u.Department != "Research" || u.FullName != nil {
				t.Errorf("update body = %+v", u)
			}
			_ = json.NewEncoder(w).Encode(domain.Member{ID: "m1", FullName: "Ada", Department: *u.Department})
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, staticToken("tok"))
	m, err := c.CreateMember(context.Background(), domain.MemberInput{FullName: " Ada ", Email: "ADA@acme.io"})
	if err != nil {
		t.Fatalf("CreateMember: %v", err)
	}
	dept := "Research"
	m, err = c.UpdateMember(context.Background(), m.ID, domain.MemberUpdate{Department: &dept})
	if err != nil {
		t.Fatalf("UpdateMember: %v", err)
	}
	if m.Department != "Research" {
		t.Errorf("member = %+v", m)
	}
}

func TestCreateMember_InvalidInputSkipsNetwork(t *testing.T) {
	c := New("http://127.0.0.1:1", time.Second, staticToken("tok"))
	if _, err := c.CreateMember(context.Background(), domain.MemberInput{FullName: "Ada"}); err == nil {
		t.Error("missing email should fail before the request")
	}
}

func TestInviteMember(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/team-management/clerk-invitations" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req domain.InvitationRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.EmailAddress != "new@acme.io" || req.Role != domain.InvitationRoleMember {
			t.Errorf("body = %+v", req)
		}
		_ = json.NewEncoder(w).Encode(domain.Invitation{ID: "inv1", EmailAddress: req.EmailAddress, Role: req.Role, Status: "pending"})
	}))
	defer srv.Close()

	inv, err := New(srv.URL, time.Second, staticToken("tok")).InviteMember(context.Background(), domain.InvitationRequest{EmailAddress: " New@acme.io "})
	if err != nil {
		t.Fatalf("InviteMember: %v", err)
	}
	if inv.ID != "inv1" || inv.Status != "pending" {
		t.Errorf("invitation = %+v", inv)
	}
}

func TestForbiddenDetailSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"detail":"organization admin or owner required"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second, staticToken("tok")).InviteMember(context.Background(), domain.InvitationRequest{EmailAddress: "x@acme.io"})
	if restclient.StatusCode(err) != http.StatusForbidden || err.Error() != "organization admin or owner required" {
		t.Errorf("err = %v", err)
	}
}
