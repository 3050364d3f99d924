// file: model/refresh_token.go

package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// RefreshTokenTTL is the fixed lifetime of a refresh token, set once at
// issuance and never extended.
const RefreshTokenTTL = 7 * 24 * time.Hour

var (
	ErrMissingTokenHash      = errors.New("token hash is required")
	ErrMissingStaffAccountID = errors.New("staff account id is required")
	ErrMissingIPAddress      = errors.New("issuing ip address is required")

	// ErrTokenAlreadyRevoked signals a state-machine violation: revoking
	// or rotating a token that is already revoked. It is deliberately
	// not a no-op: a second revoke on the same aggregate instance is a
	// contract breach, and at the rotation boundary it is the replay
	// signal that triggers account-wide revocation.
	ErrTokenAlreadyRevoked = errors.New("refresh token is already revoked")
)

// RefreshToken is the aggregate root for one session credential. Only
// its own methods mutate it; the plaintext credential never appears
// here, only its one-way hash.
type RefreshToken struct {
	ID             uuid.UUID  `json:"id"`
	TokenHash      string     `json:"-"` // Never exposed in JSON responses.
	StaffAccountID uuid.UUID  `json:"staff_account_id"`
	IssuedFromIP   string     `json:"issued_from_ip"`
	ExpiresAt      time.Time  `json:"expires_at"`
	IsRevoked      bool       `json:"is_revoked"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
	ReplacedBy     *uuid.UUID `json:"replaced_by,omitempty"`
	Version        int        `json:"version"`
	CreatedAt      time.Time  `json:"created_at"`
}

// IssueRefreshToken creates a new active token for a successful login.
func IssueRefreshToken(tokenHash string, staffAccountID uuid.UUID, ipAddress string) (*RefreshToken, error) {
	if tokenHash == "" {
		return nil, ErrMissingTokenHash
	}
	if staffAccountID == uuid.Nil {
		return nil, ErrMissingStaffAccountID
	}
	if ipAddress == "" {
		return nil, ErrMissingIPAddress
	}

	now := time.Now().UTC()
	return &RefreshToken{
		ID:             uuid.New(),
		TokenHash:      tokenHash,
		StaffAccountID: staffAccountID,
		IssuedFromIP:   ipAddress,
		ExpiresAt:      now.Add(RefreshTokenTTL),
		IsRevoked:      false,
		Version:        1,
		CreatedAt:      now,
	}, nil
}

// IsExpired is derived from the clock, never stored: expiry does not
// mutate the record.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Revoke terminates the token. Revocation is terminal and monotonic; a
// token is never un-revoked.
func (t *RefreshToken) Revoke() error {
	if t.IsRevoked {
		return ErrTokenAlreadyRevoked
	}
	now := time.Now().UTC()
	t.IsRevoked = true
	t.RevokedAt = &now
	t.Version++
	return nil
}

// Replace rotates the token: the receiver is revoked with ReplacedBy
// pointing at the successor, and a fresh token is returned with the
// same owner and provenance, a new hash and a fresh lifetime. The
// caller persists both the mutated original and the new record.
func (t *RefreshToken) Replace(newTokenHash string) (*RefreshToken, error) {
	if t.IsRevoked {
		return nil, ErrTokenAlreadyRevoked
	}

	successor, err := IssueRefreshToken(newTokenHash, t.StaffAccountID, t.IssuedFromIP)
	if err != nil {
		return nil, err
	}

	if err := t.Revoke(); err != nil {
		return nil, err
	}
	t.ReplacedBy = &successor.ID

	return successor, nil
}

// WasRotated distinguishes a token retired by rotation from one revoked
// outright: ReplacedBy is set if and only if revocation happened via
// Replace.
func (t *RefreshToken) WasRotated() bool {
	return t.IsRevoked && t.ReplacedBy != nil
}
