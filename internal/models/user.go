package models

import (
	"strings"
	"time"
)

// User is the durable account record that owns buyer leads.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
}

// Identity is the caller identity carried inside a session token. It is only
// used as a lookup key into the user store and is never persisted itself.
//
// Field order is part of the token format: the JSON encoding of Identity is
// the signed payload, so reordering fields invalidates every issued token.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Complete reports whether every required identity field is present.
func (i Identity) Complete() bool {
	return i.ID != "" && i.Name != "" && i.Email != ""
}

// IdentityFromUser builds the token payload for a stored user.
func IdentityFromUser(u *User) Identity {
	return Identity{ID: u.ID, Name: u.Name, Email: u.Email}
}

// NormalizeEmail trims and lowercases an email address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DisplayNameFallback returns name, or the local part of email when name is blank.
func DisplayNameFallback(name, email string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	local, _, _ := strings.Cut(email, "@")
	return local
}
