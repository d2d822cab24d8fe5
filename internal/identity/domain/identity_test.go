package domain

import (
	"testing"
	"time"
)

func TestGrant_Active(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	revoked := now.Add(-time.Minute)
	tests := []struct {
		name  string
		grant *Grant
		want  bool
	}{
		{"nil", nil, false},
		{"live", &Grant{ExpiresAt: now.Add(time.Hour)}, true},
		{"expired", &Grant{ExpiresAt: now}, false},
		{"revoked", &Grant{ExpiresAt: now.Add(time.Hour), RevokedAt: &revoked}, false},
	}
	for _, tt := range tests {
		if got := tt.grant.Active(now); got != tt.want {
			t.Errorf("%s: Active = %v, want %v", tt.name, got, tt.want)
		}
	}
}
