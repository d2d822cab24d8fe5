// Package domain defines team members and invitations exchanged with the team-management backend.
package domain

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

// MemberStatus is the lifecycle state of a team member.
type MemberStatus string

const (
	MemberStatusActive   MemberStatus = "active"
	MemberStatusInvited  MemberStatus = "invited"
	MemberStatusInactive MemberStatus = "inactive"
)

// Member is a person on the team. Active members are the recipients offered by the query workflow.
type Member struct {
	ID          string       `json:"id"`
	FullName    string       `json:"full_name"`
	Email       string       `json:"email"`
	Role        string       `json:"role,omitempty"`
	Department  string       `json:"department,omitempty"`
	Designation string       `json:"designation,omitempty"`
	// Channel is the member's preferred contact channel label (slack, email, teams, ...).
	Channel   string       `json:"channel,omitempty"`
	Status    MemberStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// MemberInput is the body of POST /team-management/members.
type MemberInput struct {
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	Role        string `json:"role,omitempty"`
	Department  string `json:"department,omitempty"`
	Designation string `json:"designation,omitempty"`
	Channel     string `json:"channel,omitempty"`
}

// Normalize trims every field and lowercases the email.
func (in *MemberInput) Normalize() {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Role = strings.TrimSpace(in.Role)
	in.Department = strings.TrimSpace(in.Department)
	in.Designation = strings.TrimSpace(in.Designation)
	in.Channel = strings.TrimSpace(in.Channel)
}

// Validate returns the first problem with the input, or nil.
func (in *MemberInput) Validate() error {
	if in.FullName == "" {
		return errors.New("full name is required")
	}
	return validateEmail(in.Email)
}

// MemberUpdate is the body of PUT /team-management/members/{id}. Nil fields are left unchanged.
type MemberUpdate struct {
	FullName    *string       `json:"full_name,omitempty"`
	Role        *string       `json:"role,omitempty"`
	Department  *string       `json:"department,omitempty"`
	Designation *string       `json:"designation,omitempty"`
	Channel     *string       `json:"channel,omitempty"`
	Status      *MemberStatus `json:"status,omitempty"`
}

// Apply copies the set fields onto m.
func (u *MemberUpdate) Apply(m *Member) error {
	if u.FullName != nil {
		name := strings.TrimSpace(*u.FullName)
		if name == "" {
			return errors.New("full name is required")
		}
		m.FullName = name
	}
	if u.Role != nil {
		m.Role = strings.TrimSpace(*u.Role)
	}
	if u.Department != nil {
		m.Department = strings.TrimSpace(*u.Department)
	}
	if u.Designation != nil {
		m.Designation = strings.TrimSpace(*u.Designation)
	}
	if u.Channel != nil {
		m.Channel = strings.TrimSpace(*u.Channel)
	}
	if u.Status != nil {
		switch *u.Status {
		case MemberStatusActive, MemberStatusInvited, MemberStatusInactive:
			m.Status = *u.Status
		default:
			return errors.New("unknown member status")
		}
	}
	return nil
}

// InvitationRole is the organization role an invitee receives on acceptance.
type InvitationRole string

const (
	InvitationRoleAdmin  InvitationRole = "admin"
	InvitationRoleMember InvitationRole = "member"
)

// InvitationRequest is the body of POST /team-management/clerk-invitations.
type InvitationRequest struct {
	EmailAddress string         `json:"email_address"`
	Role         InvitationRole `json:"role,omitempty"`
	FullName     string         `json:"full_name,omitempty"`
}

// Validate normalizes the request and returns the first problem with it, or nil.
func (r *InvitationRequest) Validate() error {
	r.EmailAddress = strings.ToLower(strings.TrimSpace(r.EmailAddress))
	r.FullName = strings.TrimSpace(r.FullName)
	switch r.Role {
	case "":
		r.Role = InvitationRoleMember
	case InvitationRoleAdmin, InvitationRoleMember:
	default:
		return errors.New("role must be admin or member")
	}
	return validateEmail(r.EmailAddress)
}

// Invitation is a pending invitation.
type Invitation struct {
	ID           string         `json:"id"`
	EmailAddress string         `json:"email_address"`
	Role         InvitationRole `json:"role"`
	Status       string         `json:"status"`
	MemberID     string         `json:"member_id,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	ExpiresAt    time.Time      `json:"expires_at"`
}

// MemberList is the GET /team-management/members response.
type MemberList struct {
	Members []Member `json:"members"`
	Total   int      `json:"total"`
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return errors.New("invalid email format")
	}
	return nil
}
