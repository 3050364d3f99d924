// file: service/revocation_service.go

package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"staff-identity-api/event"
	"staff-identity-api/logger"
	"staff-identity-api/repository"
	"staff-identity-api/uow"
)

// RevocationService bulk-revokes every live session of a staff
// account. It runs synchronously inside the rotation flow's unit of
// work on replay detection, and asynchronously as an event-bus
// subscriber for account lock, disable and password reset.
type RevocationService struct {
	uowManager *uow.Manager
	tokenRepo  repository.ITokenRepository
}

func NewRevocationService(uowManager *uow.Manager, tokenRepo repository.ITokenRepository) *RevocationService {
	return &RevocationService{uowManager: uowManager, tokenRepo: tokenRepo}
}

// RevokeAllTokensForStaffAccount opens its own unit of work and revokes
// every active token for the account. Zero active tokens is a no-op,
// which also makes the operation idempotent.
func (s *RevocationService) RevokeAllTokensForStaffAccount(ctx context.Context, staffAccountID uuid.UUID) error {
	txCtx, err := s.uowManager.Begin(ctx)
	if err != nil {
		return err
	}

	if err := s.RevokeAllInUnitOfWork(txCtx, staffAccountID); err != nil {
		_ = s.uowManager.Rollback(txCtx)
		return err
	}

	if err := s.uowManager.Commit(txCtx); err != nil {
		_ = s.uowManager.Rollback(txCtx)
		return err
	}
	return nil
}

// RevokeAllInUnitOfWork performs the bulk revocation inside the unit
// of work already bound to ctx. The rotation flow uses this so the
// defensive revocation commits together with nothing else.
func (s *RevocationService) RevokeAllInUnitOfWork(ctx context.Context, staffAccountID uuid.UUID) error {
	tokens, err := s.tokenRepo.GetActiveTokensByStaffAccountID(ctx, staffAccountID)
	if err != nil {
		return fmt.Errorf("%w: load active tokens: %v", uow.ErrInfrastructure, err)
	}

	if len(tokens) == 0 {
		logger.Log.WithField("staff_account_id", staffAccountID).
			Info("No active refresh tokens to revoke")
		return nil
	}

	for _, token := range tokens {
		if err := token.Revoke(); err != nil {
			// GetActiveTokens only returns un-revoked rows, so this is
			// a broken invariant, not a tolerated state.
			return err
		}
	}

	if err := s.tokenRepo.UpdateAll(ctx, tokens); err != nil {
		return fmt.Errorf("%w: persist bulk revocation: %v", uow.ErrInfrastructure, err)
	}

	logger.Log.WithFields(logrus.Fields{
		"staff_account_id": staffAccountID,
		"revoked_count":    len(tokens),
	}).Info("Revoked all active refresh tokens for staff account")
	return nil
}

// Handle consumes the closed set of security events. Lock, disable and
// password reset all invalidate every live session the same way,
// regardless of which event caused it.
func (s *RevocationService) Handle(ctx context.Context, ev event.Event) error {
	switch ev.(type) {
	case event.StaffAccountLocked, event.StaffAccountDisabled, event.StaffPasswordReset:
		return s.RevokeAllTokensForStaffAccount(ctx, ev.StaffID())
	case event.RefreshTokenTheftDetected:
		// Already revoked synchronously inside the rotation flow.
		return nil
	}
	return nil
}
