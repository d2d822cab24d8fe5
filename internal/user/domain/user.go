package domain

import (
	"errors"
	"time"
)

// User is the account record kept by the development backend.
type User struct {
	ID        string
	Email     string
	FullName  string
	AvatarURL string
	Status    UserStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.FullName == "" {
		return errors.New("full name is required")
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	return nil
}

// IsActive reports whether the user may sign in.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}
