// file: model/staff_account.go

package model

import (
	"time"

	"github.com/google/uuid"
)

// StaffAccount is an operator-console account. The token core only
// reads its identity, status and permission codes; its lifecycle is
// managed by the staff administration service.
type StaffAccount struct {
	ID                    uuid.UUID  `json:"id"`
	Username              string     `json:"username"`
	PasswordHash          string     `json:"-"`
	IsActive              bool       `json:"is_active"`
	RequiresPasswordReset bool       `json:"requires_password_reset"`
	FailedLoginAttempts   int        `json:"-"`
	LockedUntil           *time.Time `json:"locked_until,omitempty"`
	Version               int        `json:"version"`
	CreatedAt             time.Time  `json:"created_at"`
}

// IsLocked reports whether the account is inside an active lockout
// window.
func (a *StaffAccount) IsLocked(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}

// RecordFailedLogin bumps the failure counter and locks the account
// once the threshold is crossed. It reports whether this call caused
// the lock, so the caller publishes the lock event exactly once.
func (a *StaffAccount) RecordFailedLogin(threshold int, lockFor time.Duration) bool {
	a.FailedLoginAttempts++
	a.Version++
	if a.FailedLoginAttempts < threshold {
		return false
	}
	until := time.Now().UTC().Add(lockFor)
	a.LockedUntil = &until
	a.FailedLoginAttempts = 0
	return true
}

// ResetFailedLogins clears the failure counter after a successful
// login. It reports whether the account actually changed; an already
// clean account must not be rewritten, since its version did not move.
func (a *StaffAccount) ResetFailedLogins() bool {
	if a.FailedLoginAttempts == 0 && a.LockedUntil == nil {
		return false
	}
	a.FailedLoginAttempts = 0
	a.LockedUntil = nil
	a.Version++
	return true
}

// Disable deactivates the account. Revocation of its sessions is
// driven by the StaffAccountDisabled event, not here.
func (a *StaffAccount) Disable() {
	a.IsActive = false
	a.Version++
}

// Enable reactivates the account.
func (a *StaffAccount) Enable() {
	a.IsActive = true
	a.Version++
}

// ResetPassword installs a new password hash and forces the holder to
// choose their own at next login.
func (a *StaffAccount) ResetPassword(newHash string) {
	a.PasswordHash = newHash
	a.RequiresPasswordReset = true
	a.Version++
}
