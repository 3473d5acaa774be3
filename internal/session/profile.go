package session

import (
	"bytes"
	"errors"
)

// AdminFlag is the decoded is_admin field of a profile. Only the JSON literal
// true sets it; 1, "true", null and a missing field all decode to false.
type AdminFlag bool

func (a *AdminFlag) UnmarshalJSON(data []byte) error {
	*a = AdminFlag(bytes.Equal(bytes.TrimSpace(data), []byte("true")))
	return nil
}

// UserProfile is the cached copy of the authenticated person returned by /me.
// It may be stale; the backend stays authoritative for every permission.
type UserProfile struct {
	ID       int       `json:"id"`
	Nombre   string    `json:"nombre"`
	Email    string    `json:"email"`
	IsAdmin  AdminFlag `json:"is_admin"`
	IsActive bool      `json:"is_active"`
}

// ErrIncompleteProfile is returned for profiles lacking an id
var ErrIncompleteProfile = errors.New("incomplete user data")

// Admin reports whether the profile carries is_admin == true
func (p *UserProfile) Admin() bool {
	return p != nil && bool(p.IsAdmin)
}

// Validate checks the fields a profile must have to be cached
func (p *UserProfile) Validate() error {
	if p == nil || p.ID <= 0 {
		return ErrIncompleteProfile
	}
	return nil
}

// Role returns a display label for the profile
func (p *UserProfile) Role() string {
	if p.Admin() {
		return "Administrator"
	}
	return "User"
}
