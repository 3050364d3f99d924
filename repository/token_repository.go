// file: repository/token_repository.go

package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"staff-identity-api/logger"
	"staff-identity-api/model"
	"staff-identity-api/uow"
)

// ErrTokenVersionConflict is returned when a guarded update matched no
// row: either the version moved or the token was revoked by a
// concurrent rotation. A lost race fails loudly instead of silently
// double-rotating.
var ErrTokenVersionConflict = errors.New("refresh token was modified concurrently")

// ITokenRepository defines the contract for refresh token persistence.
// Every method joins the unit of work bound to ctx when one is active.
type ITokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	GetActiveTokensByStaffAccountID(ctx context.Context, staffAccountID uuid.UUID) ([]*model.RefreshToken, error)
	Update(ctx context.Context, token *model.RefreshToken) error
	UpdateAll(ctx context.Context, tokens []*model.RefreshToken) error
}

// TokenRepository implements ITokenRepository on PostgreSQL.
type TokenRepository struct {
	DB *sql.DB
}

func NewTokenRepository(database *sql.DB) *TokenRepository {
	return &TokenRepository{DB: database}
}

const tokenColumns = `id, token_hash, staff_account_id, issued_from_ip, expires_at, is_revoked, revoked_at, replaced_by, version, created_at`

// Create inserts a new refresh token record.
func (r *TokenRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	log := logger.Log.WithFields(logrus.Fields{
		"token_id":         token.ID,
		"staff_account_id": token.StaffAccountID,
	})
	log.Info("Executing query to create a new refresh token")

	query := `INSERT INTO refresh_tokens (id, token_hash, staff_account_id, issued_from_ip, expires_at, is_revoked, version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := uow.Conn(ctx, r.DB).ExecContext(ctx, query,
		token.ID, token.TokenHash, token.StaffAccountID, token.IssuedFromIP,
		token.ExpiresAt, token.IsRevoked, token.Version, token.CreatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to execute create refresh token query")
		return err
	}
	return nil
}

// GetByTokenHash retrieves a refresh token by its hashed value.
// Returns sql.ErrNoRows when no token matches.
func (r *TokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM refresh_tokens WHERE token_hash = $1`
	row := uow.Conn(ctx, r.DB).QueryRowContext(ctx, query, tokenHash)

	token, err := scanToken(row)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Log.WithError(err).Error("Failed to execute get refresh token by hash query")
		}
		return nil, err
	}
	return token, nil
}

// GetActiveTokensByStaffAccountID returns every not-yet-revoked token
// for the account, expired ones included; expiry is evaluated by
// callers, not the store.
func (r *TokenRepository) GetActiveTokensByStaffAccountID(ctx context.Context, staffAccountID uuid.UUID) ([]*model.RefreshToken, error) {
	log := logger.Log.WithField("staff_account_id", staffAccountID)
	log.Info("Executing query to get active refresh tokens for a staff account")

	query := `SELECT ` + tokenColumns + ` FROM refresh_tokens WHERE staff_account_id = $1 AND is_revoked = FALSE`
	rows, err := uow.Conn(ctx, r.DB).QueryContext(ctx, query, staffAccountID)
	if err != nil {
		log.WithError(err).Error("Failed to execute get active refresh tokens query")
		return nil, err
	}
	defer rows.Close()

	var tokens []*model.RefreshToken
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			log.WithError(err).Error("Failed to scan refresh token row")
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

// Update persists a mutated aggregate. The statement is guarded on the
// previous version and the un-revoked state so that only one of two
// concurrent rotations of the same token can succeed.
func (r *TokenRepository) Update(ctx context.Context, token *model.RefreshToken) error {
	log := logger.Log.WithFields(logrus.Fields{
		"token_id": token.ID,
		"version":  token.Version,
	})
	log.Info("Executing query to update a refresh token")

	query := `UPDATE refresh_tokens
		SET is_revoked = $1, revoked_at = $2, replaced_by = $3, version = $4
		WHERE id = $5 AND version = $6 AND is_revoked = FALSE`
	result, err := uow.Conn(ctx, r.DB).ExecContext(ctx, query,
		token.IsRevoked, token.RevokedAt, token.ReplacedBy, token.Version,
		token.ID, token.Version-1)
	if err != nil {
		log.WithError(err).Error("Failed to execute update refresh token query")
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		log.WithError(err).Error("Failed to read affected rows for refresh token update")
		return err
	}
	if affected == 0 {
		log.Warn("Refresh token update matched no rows, lost a concurrent race")
		return ErrTokenVersionConflict
	}
	return nil
}

// UpdateAll persists a batch of mutated aggregates. Used by the bulk
// revocation path; individual version conflicts abort the batch so the
// enclosing unit of work rolls back as one.
func (r *TokenRepository) UpdateAll(ctx context.Context, tokens []*model.RefreshToken) error {
	for _, token := range tokens {
		if err := r.Update(ctx, token); err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanToken(row rowScanner) (*model.RefreshToken, error) {
	token := &model.RefreshToken{}
	err := row.Scan(
		&token.ID, &token.TokenHash, &token.StaffAccountID, &token.IssuedFromIP,
		&token.ExpiresAt, &token.IsRevoked, &token.RevokedAt, &token.ReplacedBy,
		&token.Version, &token.CreatedAt)
	if err != nil {
		return nil, err
	}
	return token, nil
}
