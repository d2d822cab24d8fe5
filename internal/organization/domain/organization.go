package domain

import (
	"errors"
	"strings"
	"time"
)

// Org represents an organization/tenant.
type Org struct {
	ID        string
	Name      string
	Slug      string
	Status    OrgStatus
	CreatedAt time.Time
}

type OrgStatus string

const (
	OrgStatusActive    OrgStatus = "active"
	OrgStatusSuspended OrgStatus = "suspended"
)

// Validate validates the organization for persistence. Returns an error describing the first validation failure.
// An empty Slug is derived from Name.
func (o *Org) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return errors.New("organization name is required")
	}
	if o.Slug == "" {
		o.Slug = Slugify(o.Name)
	}
	if o.Status == "" {
		o.Status = OrgStatusActive
	}
	return nil
}

// Slugify lowercases name and joins its alphanumeric runs with single hyphens.
func Slugify(name string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		default:
			pendingDash = true
		}
	}
	return b.String()
}
