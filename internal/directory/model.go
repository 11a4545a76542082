// Package directory holds the canonical user model, the seeded demo accounts,
// and the JWT session boundary.
package directory

import (
	"strings"
	"time"
)

// Role is the single role enum every part of the platform keys off.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// ParseRole normalizes a role string.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RolePatient:
		return RolePatient, true
	case RoleDoctor:
		return RoleDoctor, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// User is the one canonical account type. The demo has no real credential
// store; Password is a plaintext demo secret checked at login only.
type User struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Specialty string    `json:"specialty,omitempty"` // doctors only
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// LegacyAccount is the shape of the old simple-auth user record. Some demo
// clients still post it at login. It is reconciled into User exactly once,
// at the authentication boundary, never per-feature.
type LegacyAccount struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	AccountType string `json:"accountType"` // "user", "provider", "administrator"
	LinkedID    string `json:"linkedId,omitempty"`
}

// CanonicalizeLegacy maps a legacy account onto the canonical user type.
func CanonicalizeLegacy(acc LegacyAccount) User {
	role := RolePatient
	switch strings.ToLower(acc.AccountType) {
	case "provider", "doctor":
		role = RoleDoctor
	case "administrator", "admin":
		role = RoleAdmin
	}
	id := acc.UserID
	if acc.LinkedID != "" {
		id = acc.LinkedID
	}
	return User{
		ID:     id,
		Role:   role,
		Name:   acc.DisplayName,
		Email:  strings.ToLower(strings.TrimSpace(acc.Email)),
		Active: true,
	}
}
