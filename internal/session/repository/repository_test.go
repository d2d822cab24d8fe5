package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/hariseldon84/singlebrief-full-sub000/internal/session/domain"
)

func testSession(withOrg bool) *domain.Session {
	s := &domain.Session{
		User:   &domain.User{ID: "u1", Email: "a@b.com", FullName: "Ada", Role: domain.RoleAdmin, IsActive: true},
		Tokens: &domain.Tokens{AccessToken: "acc", RefreshToken: "ref", TokenType: "bearer", ExpiresIn: 1800},
		Status: domain.StatusAuthenticated,
	}
	if withOrg {
		s.Organization = &domain.Organization{ID: "o1", Name: "Acme", Slug: "acme"}
	}
	return s
}

func TestKVRepository_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	repo := NewKVRepository(kv)

	got, err := repo.Load(ctx)
	if err != nil || got != nil {
		t.Fatalf("Load on empty store = %v, %v; want nil, nil", got, err)
	}

	if err := repo.Save(ctx, testSession(true)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if kv.Len() != 3 {
		t.Fatalf("stored entries = %d, want 3", kv.Len())
	}

	got, err = repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.User.Email != "a@b.com" || got.Tokens.AccessToken != "acc" || got.Organization.Slug != "acme" {
		t.Errorf("Load = %+v", got)
	}
	if got.Status != domain.StatusRestored {
		t.Errorf("Status = %q, want %q", got.Status, domain.StatusRestored)
	}
	if got.IsAuthenticated() {
		t.Error("restored session must not count as authenticated before validation")
	}

	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	for _, k := range SessionKeys {
		if _, ok, _ := kv.Get(ctx, k); ok {
			t.Errorf("key %q still present after Clear", k)
		}
	}
}

func TestKVRepository_SaveWithoutOrgDropsStoredOrg(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	repo := NewKVRepository(kv)

	if err := repo.Save(ctx, testSession(true)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := repo.Save(ctx, testSession(false)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, ok, _ := kv.Get(ctx, KeyOrganization); ok {
		t.Error("organization should be removed when the session has none")
	}
	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Organization != nil {
		t.Errorf("Organization = %+v, want nil", got.Organization)
	}
}

func TestKVRepository_SaveRejectsIncompleteSession(t *testing.T) {
	repo := NewKVRepository(NewMemoryKV())
	for _, s := range []*domain.Session{
		nil,
		{User: &domain.User{ID: "u1"}},
		{Tokens: &domain.Tokens{AccessToken: "a", RefreshToken: "r"}},
		{User: &domain.User{ID: "u1"}, Tokens: &domain.Tokens{AccessToken: "a"}},
	} {
		if err := repo.Save(context.Background(), s); err == nil {
			t.Errorf("Save(%+v) should fail", s)
		}
	}
}

func TestKVRepository_LoadCorrupt(t *testing.T) {
	testCases := []struct {
		name    string
		entries map[string]string
	}{
		{"tokens without user", map[string]string{KeyTokens: `{"access_token":"a","refresh_token":"r"}`}},
		{"user without tokens", map[string]string{KeyUser: `{"id":"u1"}`}},
		{"bad tokens json", map[string]string{KeyTokens: `{`, KeyUser: `{"id":"u1"}`}},
		{"missing refresh token", map[string]string{KeyTokens: `{"access_token":"a"}`, KeyUser: `{"id":"u1"}`}},
		{"user without id", map[string]string{KeyTokens: `{"access_token":"a","refresh_token":"r"}`, KeyUser: `{}`}},
		{"bad org json", map[string]string{
			KeyTokens:       `{"access_token":"a","refresh_token":"r"}`,
			KeyUser:         `{"id":"u1"}`,
			KeyOrganization: `[`,
		}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			kv := NewMemoryKV()
			if err := kv.Write(context.Background(), Batch{Set: tc.entries}); err != nil {
				t.Fatalf("Write: %v", err)
			}
			_, err := NewKVRepository(kv).Load(context.Background())
			if !errors.Is(err, ErrCorruptSession) {
				t.Errorf("Load err = %v, want ErrCorruptSession", err)
			}
		})
	}
}
