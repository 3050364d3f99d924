// file: event/event.go

// Package event carries the closed set of domain events the identity
// core emits. The set is sealed: new kinds are added here and every
// subscriber's type switch is a compile-visible place to extend.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Event is the sealed interface over the domain event variants below.
type Event interface {
	isEvent()
	// StaffID identifies the account the event concerns.
	StaffID() uuid.UUID
	// OccurredAt is when the event was raised.
	OccurredAt() time.Time
}

type base struct {
	StaffAccountID uuid.UUID
	At             time.Time
}

func (b base) isEvent()              {}
func (b base) StaffID() uuid.UUID    { return b.StaffAccountID }
func (b base) OccurredAt() time.Time { return b.At }

// StaffAccountLocked is raised when repeated failed logins lock an
// account.
type StaffAccountLocked struct {
	base
	LockedUntil time.Time
}

// StaffAccountDisabled is raised when an administrator deactivates an
// account.
type StaffAccountDisabled struct {
	base
}

// StaffPasswordReset is raised when an administrator resets an
// account's password.
type StaffPasswordReset struct {
	base
}

// RefreshTokenTheftDetected is raised when an already-rotated token is
// replayed. The synchronous mass revocation has already been committed
// by the time this fires; the event exists for the audit trail.
type RefreshTokenTheftDetected struct {
	base
	PresentedTokenID uuid.UUID
	SourceIP         string
}

func NewStaffAccountLocked(staffID uuid.UUID, lockedUntil time.Time) StaffAccountLocked {
	return StaffAccountLocked{base: newBase(staffID), LockedUntil: lockedUntil}
}

func NewStaffAccountDisabled(staffID uuid.UUID) StaffAccountDisabled {
	return StaffAccountDisabled{base: newBase(staffID)}
}

func NewStaffPasswordReset(staffID uuid.UUID) StaffPasswordReset {
	return StaffPasswordReset{base: newBase(staffID)}
}

func NewRefreshTokenTheftDetected(staffID, tokenID uuid.UUID, sourceIP string) RefreshTokenTheftDetected {
	return RefreshTokenTheftDetected{base: newBase(staffID), PresentedTokenID: tokenID, SourceIP: sourceIP}
}

func newBase(staffID uuid.UUID) base {
	return base{StaffAccountID: staffID, At: time.Now().UTC()}
}
