// Package vercode issues and redeems the short-lived email verification codes
// gating registration and password reset.
package vercode

import "time"

// Purpose scopes which flow may redeem a code.
type Purpose string

const (
	// PurposeRegister gates account creation.
	PurposeRegister Purpose = "register"
	// PurposeReset gates password reset.
	PurposeReset Purpose = "reset"
)

// Valid reports whether the purpose is one of the known flows.
func (p Purpose) Valid() bool {
	return p == PurposeRegister || p == PurposeReset
}

// Code is a stored one-time verification code. A code is authoritative only
// while used=false and expires_at is in the future; expiry is never marked
// explicitly.
type Code struct {
	ID        int64
	Email     string
	Code      string
	Purpose   Purpose
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// Issued reports the outcome of a successful code request.
type Issued struct {
	Email     string
	Purpose   Purpose
	ExpiresAt time.Time
}
