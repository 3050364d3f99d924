// file: service/auth_service.go

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"staff-identity-api/config"
	"staff-identity-api/event"
	"staff-identity-api/logger"
	"staff-identity-api/model"
	"staff-identity-api/repository"
	"staff-identity-api/uow"
)

var (
	// ErrInvalidCredentials flattens unknown-username and wrong-password
	// so login responses cannot be used for account enumeration.
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountLocked      = errors.New("account is temporarily locked")
	ErrAccountInactive    = errors.New("account is disabled")
)

// TokenPair is the login response body.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthService handles login, logout and access-token minting.
type AuthService struct {
	uowManager *uow.Manager
	staffRepo  repository.IStaffRepository
	tokenRepo  repository.ITokenRepository
	bus        *event.Bus
}

func NewAuthService(
	uowManager *uow.Manager,
	staffRepo repository.IStaffRepository,
	tokenRepo repository.ITokenRepository,
	bus *event.Bus,
) *AuthService {
	return &AuthService{
		uowManager: uowManager,
		staffRepo:  staffRepo,
		tokenRepo:  tokenRepo,
		bus:        bus,
	}
}

func (s *AuthService) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to hash password")
		return "", err
	}
	return string(bytes), nil
}

func (s *AuthService) CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// Login verifies credentials, maintains the failed-login counter and
// issues a refresh token plus a short-lived access token. Crossing the
// lockout threshold publishes StaffAccountLocked after the commit,
// which in turn revokes every existing session.
func (s *AuthService) Login(ctx context.Context, username, password, ipAddress string) (*TokenPair, error) {
	log := logger.Log.WithField("username", username)

	txCtx, err := s.uowManager.Begin(ctx)
	if err != nil {
		return nil, err
	}

	account, err := s.staffRepo.GetByUsername(txCtx, username)
	if err != nil {
		_ = s.uowManager.Rollback(txCtx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: load staff account: %v", uow.ErrInfrastructure, err)
	}

	if !account.IsActive {
		_ = s.uowManager.Rollback(txCtx)
		return nil, ErrAccountInactive
	}
	if account.IsLocked(time.Now()) {
		_ = s.uowManager.Rollback(txCtx)
		return nil, ErrAccountLocked
	}

	if !s.CheckPasswordHash(password, account.PasswordHash) {
		return nil, s.handleFailedLogin(ctx, txCtx, account)
	}

	counterCleared := account.ResetFailedLogins()

	plaintext, digest, err := GenerateRefreshToken()
	if err != nil {
		_ = s.uowManager.Rollback(txCtx)
		return nil, err
	}

	refreshToken, err := model.IssueRefreshToken(digest, account.ID, ipAddress)
	if err != nil {
		_ = s.uowManager.Rollback(txCtx)
		return nil, err
	}

	// Only write the account back when the counter reset moved its
	// version; the guarded UPDATE matches zero rows for a clean account.
	if counterCleared {
		if err := s.staffRepo.Update(txCtx, account); err != nil {
			_ = s.uowManager.Rollback(txCtx)
			return nil, fmt.Errorf("%w: persist login state: %v", uow.ErrInfrastructure, err)
		}
	}
	if err := s.tokenRepo.Create(txCtx, refreshToken); err != nil {
		_ = s.uowManager.Rollback(txCtx)
		return nil, fmt.Errorf("%w: persist refresh token: %v", uow.ErrInfrastructure, err)
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

	accessToken, err := s.GenerateAccessToken(account, permissions)
	if err != nil {
		return nil, err
	}

	log.WithField("staff_account_id", account.ID).Info("Staff login succeeded")
	return &TokenPair{AccessToken: accessToken, RefreshToken: plaintext}, nil
}

// handleFailedLogin persists the bumped failure counter in its own
// commit and publishes the lock event when this attempt crossed the
// threshold. The login itself still fails with the flattened error.
func (s *AuthService) handleFailedLogin(ctx, txCtx context.Context, account *model.StaffAccount) error {
	cfg := config.AppConfig.Token
	lockFor := time.Duration(cfg.LockoutWindowMinutes) * time.Minute

	locked := account.RecordFailedLogin(cfg.MaxFailedLogins, lockFor)

	if err := s.staffRepo.Update(txCtx, account); err != nil {
		_ = s.uowManager.Rollback(txCtx)
		return fmt.Errorf("%w: persist failed login: %v", uow.ErrInfrastructure, err)
	}
	if err := s.uowManager.Commit(txCtx); err != nil {
		_ = s.uowManager.Rollback(txCtx)
		return err
	}

	if locked {
		logger.Log.WithFields(logrus.Fields{
			"staff_account_id": account.ID,
			"locked_until":     account.LockedUntil,
		}).Warn("Staff account locked after repeated failed logins")
		s.bus.Publish(ctx, event.NewStaffAccountLocked(account.ID, *account.LockedUntil))
	}

	return ErrInvalidCredentials
}

// Logout revokes the presented refresh token. Unknown or already
// revoked tokens fail with the same generic error as rotation.
func (s *AuthService) Logout(ctx context.Context, plaintext string) error {
	if plaintext == "" {
		return ErrInvalidRefreshToken
	}

	txCtx, err := s.uowManager.Begin(ctx)
	if err != nil {
		return err
	}

	token, err := s.tokenRepo.GetByTokenHash(txCtx, HashToken(plaintext))
	if err != nil {
		_ = s.uowManager.Rollback(txCtx)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInvalidRefreshToken
		}
		return fmt.Errorf("%w: load refresh token: %v", uow.ErrInfrastructure, err)
	}

	if err := token.Revoke(); err != nil {
		_ = s.uowManager.Rollback(txCtx)
		return ErrInvalidRefreshToken
	}

	if err := s.tokenRepo.Update(txCtx, token); err != nil {
		_ = s.uowManager.Rollback(txCtx)
		if errors.Is(err, repository.ErrTokenVersionConflict) {
			return ErrInvalidRefreshToken
		}
		return fmt.Errorf("%w: persist logout revocation: %v", uow.ErrInfrastructure, err)
	}

	if err := s.uowManager.Commit(txCtx); err != nil {
		_ = s.uowManager.Rollback(txCtx)
		return err
	}

	logger.Log.WithField("staff_account_id", token.StaffAccountID).Info("Staff logout succeeded")
	return nil
}

// GenerateAccessToken mints the short-lived JWT carrying identity and
// permission codes.
func (s *AuthService) GenerateAccessToken(account *model.StaffAccount, permissions []string) (string, error) {
	ttl := time.Duration(config.AppConfig.JWT.AccessTokenTTLMn) * time.Minute

	claims := &model.AppClaims{
		StaffAccountID: account.ID.String(),
		Username:       account.Username,
		Permissions:    permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(config.AppConfig.JWT.SecretKey))
	if err != nil {
		logger.Log.WithError(err).WithField("staff_account_id", account.ID).
			Error("Failed to sign access token")
		return "", fmt.Errorf("failed to sign token string: %w", err)
	}
	return signed, nil
}
