// file: service/staff_service.go

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"staff-identity-api/event"
	"staff-identity-api/logger"
	"staff-identity-api/model"
	"staff-identity-api/repository"
	"staff-identity-api/uow"
)

var (
	ErrStaffNotFound      = errors.New("staff account not found")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrCannotDisableTwice = errors.New("staff account is already disabled")
)

const permissionCacheTTL = 10 * time.Minute

// StaffService manages staff account administration. Security-relevant
// transitions (disable, password reset) publish their event after the
// commit; the revocation subscriber reacts to them.
type StaffService struct {
	uowManager *uow.Manager
	staffRepo  repository.IStaffRepository
	auth       *AuthService
	bus        *event.Bus
	cache      ICacheClient
}

func NewStaffService(
	uowManager *uow.Manager,
	staffRepo repository.IStaffRepository,
	auth *AuthService,
	bus *event.Bus,
	cache ICacheClient,
) *StaffService {
	return &StaffService{
		uowManager: uowManager,
		staffRepo:  staffRepo,
		auth:       auth,
		bus:        bus,
		cache:      cache,
	}
}

func permissionCacheKey(staffAccountID uuid.UUID) string {
	return fmt.Sprintf("staff:permissions:%s", staffAccountID)
}

// Register creates a new staff account with its initial permission set.
func (s *StaffService) Register(ctx context.Context, username, password string, permissions []string) (*model.StaffAccount, error) {
	passwordHash, err := s.auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	account := &model.StaffAccount{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
		IsActive:     true,
		Version:      1,
		CreatedAt:    time.Now().UTC(),
	}

	txCtx, err := s.uowManager.Begin(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.staffRepo.Create(txCtx, account, permissions); err != nil {
		_ = s.uowManager.Rollback(txCtx)
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("%w: create staff account: %v", uow.ErrInfrastructure, err)
	}

	if err := s.uowManager.Commit(txCtx); err != nil {
		_ = s.uowManager.Rollback(txCtx)
		return nil, err
	}

	logger.Log.WithField("staff_account_id", account.ID).Info("Staff account registered")
	return account, nil
}

// Disable deactivates the account and publishes StaffAccountDisabled,
// which revokes every live session.
func (s *StaffService) Disable(ctx context.Context, staffAccountID uuid.UUID) error {
	err := s.mutateAccount(ctx, staffAccountID, func(account *model.StaffAccount) error {
		if !account.IsActive {
			return ErrCannotDisableTwice
		}
		account.Disable()
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidatePermissionCache(ctx, staffAccountID)
	s.bus.Publish(ctx, event.NewStaffAccountDisabled(staffAccountID))
	return nil
}

// Enable reactivates a disabled account. No sessions exist to restore;
// the holder logs in again.
func (s *StaffService) Enable(ctx context.Context, staffAccountID uuid.UUID) error {
	return s.mutateAccount(ctx, staffAccountID, func(account *model.StaffAccount) error {
		account.Enable()
		return nil
	})
}

// ResetPassword installs an administrator-chosen password, flags the
// account for a forced change and publishes StaffPasswordReset, which
// revokes every live session.
func (s *StaffService) ResetPassword(ctx context.Context, staffAccountID uuid.UUID, newPassword string) error {
	newHash, err := s.auth.HashPassword(newPassword)
	if err != nil {
		return err
	}

	err = s.mutateAccount(ctx, staffAccountID, func(account *model.StaffAccount) error {
		account.ResetPassword(newHash)
		return nil
	})
	if err != nil {
		return err
	}

	s.bus.Publish(ctx, event.NewStaffPasswordReset(staffAccountID))
	return nil
}

// ReplacePermissions swaps the account's permission set and drops the
// cached copy.
func (s *StaffService) ReplacePermissions(ctx context.Context, staffAccountID uuid.UUID, permissions []string) error {
	txCtx, err := s.uowManager.Begin(ctx)
	if err != nil {
		return err
	}

	if _, err := s.staffRepo.GetByID(txCtx, staffAccountID); err != nil {
		_ = s.uowManager.Rollback(txCtx)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrStaffNotFound
		}
		return fmt.Errorf("%w: load staff account: %v", uow.ErrInfrastructure, err)
	}

	if err := s.staffRepo.ReplacePermissions(txCtx, staffAccountID, permissions); err != nil {
		_ = s.uowManager.Rollback(txCtx)
		return fmt.Errorf("%w: replace permissions: %v", uow.ErrInfrastructure, err)
	}

	if err := s.uowManager.Commit(txCtx); err != nil {
		_ = s.uowManager.Rollback(txCtx)
		return err
	}

	s.invalidatePermissionCache(ctx, staffAccountID)
	return nil
}

// GetPermissionCodes reads the account's permission set through the
// cache. Staleness is bounded by the TTL plus invalidation on every
// permission change.
func (s *StaffService) GetPermissionCodes(ctx context.Context, staffAccountID uuid.UUID) ([]string, error) {
	key := permissionCacheKey(staffAccountID)

	if cached, err := s.cache.Get(ctx, key).Result(); err == nil {
		var codes []string
		if err := json.Unmarshal([]byte(cached), &codes); err == nil {
			return codes, nil
		}
	} else if err != redis.Nil {
		logger.Log.WithError(err).Warn("Permission cache read failed, falling back to database")
	}

	codes, err := s.staffRepo.GetPermissionCodes(ctx, staffAccountID)
	if err != nil {
		return nil, fmt.Errorf("%w: load permission codes: %v", uow.ErrInfrastructure, err)
	}

	if payload, err := json.Marshal(codes); err == nil {
		if err := s.cache.Set(ctx, key, payload, permissionCacheTTL).Err(); err != nil {
			logger.Log.WithError(err).Warn("Permission cache write failed")
		}
	}
	return codes, nil
}

// List returns every staff account.
func (s *StaffService) List(ctx context.Context) ([]*model.StaffAccount, error) {
	accounts, err := s.staffRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list staff accounts: %v", uow.ErrInfrastructure, err)
	}
	return accounts, nil
}

// GetByID returns one staff account.
func (s *StaffService) GetByID(ctx context.Context, staffAccountID uuid.UUID) (*model.StaffAccount, error) {
	account, err := s.staffRepo.GetByID(ctx, staffAccountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStaffNotFound
		}
		return nil, fmt.Errorf("%w: load staff account: %v", uow.ErrInfrastructure, err)
	}
	return account, nil
}

// GetDetail returns one staff account together with its permission
// codes, read through the cache.
func (s *StaffService) GetDetail(ctx context.Context, staffAccountID uuid.UUID) (*model.StaffAccount, []string, error) {
	account, err := s.GetByID(ctx, staffAccountID)
	if err != nil {
		return nil, nil, err
	}

	codes, err := s.GetPermissionCodes(ctx, staffAccountID)
	if err != nil {
		return nil, nil, err
	}
	return account, codes, nil
}

func (s *StaffService) mutateAccount(ctx context.Context, staffAccountID uuid.UUID, mutate func(*model.StaffAccount) error) error {
	txCtx, err := s.uowManager.Begin(ctx)
	if err != nil {
		return err
	}

	account, err := s.staffRepo.GetByID(txCtx, staffAccountID)
	if err != nil {
		_ = s.uowManager.Rollback(txCtx)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrStaffNotFound
		}
		return fmt.Errorf("%w: load staff account: %v", uow.ErrInfrastructure, err)
	}

	if err := mutate(account); err != nil {
		_ = s.uowManager.Rollback(txCtx)
		return err
	}

	if err := s.staffRepo.Update(txCtx, account); err != nil {
		_ = s.uowManager.Rollback(txCtx)
		return fmt.Errorf("%w: persist staff account: %v", uow.ErrInfrastructure, err)
	}

	if err := s.uowManager.Commit(txCtx); err != nil {
		_ = s.uowManager.Rollback(txCtx)
		return err
	}
	return nil
}

func (s *StaffService) invalidatePermissionCache(ctx context.Context, staffAccountID uuid.UUID) {
	if err := s.cache.Del(ctx, permissionCacheKey(staffAccountID)).Err(); err != nil {
		logger.Log.WithError(err).Warn("Permission cache invalidation failed")
	}
}
