// file: service/token_service.go

package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"staff-identity-api/event"
	"staff-identity-api/logger"
	"staff-identity-api/model"
	"staff-identity-api/repository"
	"staff-identity-api/uow"
)

// ErrInvalidRefreshToken is the single error every rotation failure is
// flattened to. Unknown, expired, revoked and replayed tokens are
// indistinguishable to the caller so the response cannot be used as an
// oracle for token state.
var ErrInvalidRefreshToken = errors.New("invalid refresh token")

// RotationResult is what a successful rotation hands back for minting
// the short-lived access credential.
type RotationResult struct {
	StaffAccountID        uuid.UUID
	Username              string
	RequiresPasswordReset bool
	NewRefreshToken       string // plaintext, surfaced exactly once
	Permissions           []string
	TokenVersion          int
}

// TokenService orchestrates the refresh-token rotation command flow.
type TokenService struct {
	uowManager *uow.Manager
	tokenRepo  repository.ITokenRepository
	staffRepo  repository.IStaffRepository
	revocation *RevocationService
	bus        *event.Bus
}

func NewTokenService(
	uowManager *uow.Manager,
	tokenRepo repository.ITokenRepository,
	staffRepo repository.IStaffRepository,
	revocation *RevocationService,
	bus *event.Bus,
) *TokenService {
	return &TokenService{
		uowManager: uowManager,
		tokenRepo:  tokenRepo,
		staffRepo:  staffRepo,
		revocation: revocation,
		bus:        bus,
	}
}

// HashToken produces the one-way digest under which refresh tokens are
// persisted. The plaintext never reaches storage.
func HashToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// GenerateRefreshToken returns a fresh opaque credential and its
// storage digest.
func GenerateRefreshToken() (plaintext string, digest string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	plaintext = base64.RawURLEncoding.EncodeToString(buf)
	return plaintext, HashToken(plaintext), nil
}

// Rotate validates the presented plaintext token, detects replay of a
// rotated-away token, swaps in a successor and returns the account's
// current identity and permission set, all inside one unit of work.
//
// Every failure path rolls back before surfacing its error, with one
// deliberate exception: when replay is detected, the account-wide
// revocation is committed first so the defensive action survives the
// failing request.
func (s *TokenService) Rotate(ctx context.Context, plaintext, sourceIP string) (*RotationResult, error) {
	if plaintext == "" {
		return nil, ErrInvalidRefreshToken
	}

	txCtx, err := s.uowManager.Begin(ctx)
	if err != nil {
		return nil, err
	}

	token, err := s.tokenRepo.GetByTokenHash(txCtx, HashToken(plaintext))
	if err != nil {
		_ = s.uowManager.Rollback(txCtx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("%w: load refresh token: %v", uow.ErrInfrastructure, err)
	}

	if token.IsExpired(time.Now()) {
		_ = s.uowManager.Rollback(txCtx)
		return nil, ErrInvalidRefreshToken
	}

	if token.IsRevoked {
		return nil, s.handleReplay(ctx, txCtx, token, sourceIP)
	}

	newPlaintext, newDigest, err := GenerateRefreshToken()
	if err != nil {
		_ = s.uowManager.Rollback(txCtx)
		return nil, err
	}

	successor, err := token.Replace(newDigest)
	if err != nil {
		_ = s.uowManager.Rollback(txCtx)
		return nil, ErrInvalidRefreshToken
	}

	if err := s.tokenRepo.Update(txCtx, token); err != nil {
		_ = s.uowManager.Rollback(txCtx)
		if errors.Is(err, repository.ErrTokenVersionConflict) {
			// A concurrent rotation of the same token won the race.
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("%w: retire rotated token: %v", uow.ErrInfrastructure, err)
	}

	if err := s.tokenRepo.Create(txCtx, successor); err != nil {
		_ = s.uowManager.Rollback(txCtx)
		return nil, fmt.Errorf("%w: persist successor token: %v", uow.ErrInfrastructure, err)
	}

	// Identity and permissions are read inside the same transaction so
	// they are consistent with the token state being committed.
	account, err := s.staffRepo.GetByID(txCtx, token.StaffAccountID)
	if err != nil {
		_ = s.uowManager.Rollback(txCtx)
		return nil, fmt.Errorf("%w: load staff account: %v", uow.ErrInfrastructure, err)
	}

	permissions, err := s.staffRepo.GetPermissionCodes(txCtx, account.ID)
	if err != nil {
		_ = s.uowManager.Rollback(txCtx)
		return nil, fmt.Errorf("%w: load permission codes: %v", uow.ErrInfrastructure, err)
	}

	if err := s.uowManager.Commit(txCtx); err != nil {
		_ = s.uowManager.Rollback(txCtx)
		return nil, err
	}

	logger.Log.WithFields(logrus.Fields{
		"staff_account_id": account.ID,
		"retired_token_id": token.ID,
		"new_token_id":     successor.ID,
	}).Info("Refresh token rotated")

	return &RotationResult{
		StaffAccountID:        account.ID,
		Username:              account.Username,
		RequiresPasswordReset: account.RequiresPasswordReset,
		NewRefreshToken:       newPlaintext,
		Permissions:           permissions,
		TokenVersion:          successor.Version,
	}, nil
}

// handleReplay is the theft-detection branch: a token that was already
// revoked has been presented again, so every live session of the
// account is revoked and that revocation is committed before the
// generic failure is returned. A replay must never be undone by the
// failure of the request that exposed it.
func (s *TokenService) handleReplay(ctx, txCtx context.Context, token *model.RefreshToken, sourceIP string) error {
	log := logger.Log.WithFields(logrus.Fields{
		"staff_account_id":   token.StaffAccountID,
		"presented_token_id": token.ID,
		"source_ip":          sourceIP,
	})
	log.Warn("Revoked refresh token replayed, revoking all sessions for the account")

	if err := s.revocation.RevokeAllInUnitOfWork(txCtx, token.StaffAccountID); err != nil {
		_ = s.uowManager.Rollback(txCtx)
		return err
	}

	if err := s.uowManager.Commit(txCtx); err != nil {
		_ = s.uowManager.Rollback(txCtx)
		return err
	}

	s.bus.Publish(ctx, event.NewRefreshTokenTheftDetected(token.StaffAccountID, token.ID, sourceIP))

	return ErrInvalidRefreshToken
}
