// file: repository/staff_repository.go

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

// ErrStaffVersionConflict is returned when a guarded staff update
// matched no row because the account changed concurrently.
var ErrStaffVersionConflict = errors.New("staff account was modified concurrently")

// IStaffRepository defines the contract for staff account persistence.
type IStaffRepository interface {
	Create(ctx context.Context, account *model.StaffAccount, permissions []string) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.StaffAccount, error)
	GetByUsername(ctx context.Context, username string) (*model.StaffAccount, error)
	GetAll(ctx context.Context) ([]*model.StaffAccount, error)
	Update(ctx context.Context, account *model.StaffAccount) error
	GetPermissionCodes(ctx context.Context, staffAccountID uuid.UUID) ([]string, error)
	ReplacePermissions(ctx context.Context, staffAccountID uuid.UUID, permissions []string) error
}

// StaffRepository implements IStaffRepository on PostgreSQL.
type StaffRepository struct {
	DB *sql.DB
}

func NewStaffRepository(database *sql.DB) *StaffRepository {
	return &StaffRepository{DB: database}
}

const staffColumns = `id, username, password_hash, is_active, requires_password_reset, failed_login_attempts, locked_until, version, created_at`

// Create inserts a new staff account and its initial permission set.
func (r *StaffRepository) Create(ctx context.Context, account *model.StaffAccount, permissions []string) error {
	log := logger.Log.WithField("username", account.Username)
	log.Info("Executing query to create a new staff account")

	query := `INSERT INTO staff_accounts (id, username, password_hash, is_active, requires_password_reset, failed_login_attempts, version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := uow.Conn(ctx, r.DB).ExecContext(ctx, query,
		account.ID, account.Username, account.PasswordHash, account.IsActive,
		account.RequiresPasswordReset, account.FailedLoginAttempts, account.Version, account.CreatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to execute create staff account query")
		return err
	}

	return r.insertPermissions(ctx, account.ID, permissions)
}

// GetByID retrieves a staff account by id.
func (r *StaffRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.StaffAccount, error) {
	query := `SELECT ` + staffColumns + ` FROM staff_accounts WHERE id = $1`
	row := uow.Conn(ctx, r.DB).QueryRowContext(ctx, query, id)
	return scanStaff(row)
}

// GetByUsername retrieves a staff account by username.
func (r *StaffRepository) GetByUsername(ctx context.Context, username string) (*model.StaffAccount, error) {
	query := `SELECT ` + staffColumns + ` FROM staff_accounts WHERE username = $1`
	row := uow.Conn(ctx, r.DB).QueryRowContext(ctx, query, username)
	return scanStaff(row)
}

// GetAll lists every staff account.
func (r *StaffRepository) GetAll(ctx context.Context) ([]*model.StaffAccount, error) {
	query := `SELECT ` + staffColumns + ` FROM staff_accounts ORDER BY created_at`
	rows, err := uow.Conn(ctx, r.DB).QueryContext(ctx, query)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to execute list staff accounts query")
		return nil, err
	}
	defer rows.Close()

	var accounts []*model.StaffAccount
	for rows.Next() {
		account, err := scanStaff(rows)
		if err != nil {
			logger.Log.WithError(err).Error("Failed to scan staff account row")
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// Update persists a mutated staff account, guarded on the previous
// version.
func (r *StaffRepository) Update(ctx context.Context, account *model.StaffAccount) error {
	log := logger.Log.WithFields(logrus.Fields{
		"staff_account_id": account.ID,
		"version":          account.Version,
	})
	log.Info("Executing query to update a staff account")

	query := `UPDATE staff_accounts
		SET password_hash = $1, is_active = $2, requires_password_reset = $3, failed_login_attempts = $4, locked_until = $5, version = $6
		WHERE id = $7 AND version = $8`
	result, err := uow.Conn(ctx, r.DB).ExecContext(ctx, query,
		account.PasswordHash, account.IsActive, account.RequiresPasswordReset,
		account.FailedLoginAttempts, account.LockedUntil, account.Version,
		account.ID, account.Version-1)
	if err != nil {
		log.WithError(err).Error("Failed to execute update staff account query")
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		log.Warn("Staff account update matched no rows, lost a concurrent race")
		return ErrStaffVersionConflict
	}
	return nil
}

// GetPermissionCodes returns the current permission set for the
// account. The rotation flow calls this inside its unit of work so the
// codes it returns are consistent with the token state being committed.
func (r *StaffRepository) GetPermissionCodes(ctx context.Context, staffAccountID uuid.UUID) ([]string, error) {
	query := `SELECT permission_code FROM staff_permissions WHERE staff_account_id = $1 ORDER BY permission_code`
	rows, err := uow.Conn(ctx, r.DB).QueryContext(ctx, query, staffAccountID)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to execute get permission codes query")
		return nil, err
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// ReplacePermissions swaps the whole permission set for the account.
func (r *StaffRepository) ReplacePermissions(ctx context.Context, staffAccountID uuid.UUID, permissions []string) error {
	log := logger.Log.WithField("staff_account_id", staffAccountID)
	log.Info("Executing query to replace staff permissions")

	if _, err := uow.Conn(ctx, r.DB).ExecContext(ctx,
		`DELETE FROM staff_permissions WHERE staff_account_id = $1`, staffAccountID); err != nil {
		log.WithError(err).Error("Failed to clear staff permissions")
		return err
	}
	return r.insertPermissions(ctx, staffAccountID, permissions)
}

func (r *StaffRepository) insertPermissions(ctx context.Context, staffAccountID uuid.UUID, permissions []string) error {
	for _, code := range permissions {
		if _, err := uow.Conn(ctx, r.DB).ExecContext(ctx,
			`INSERT INTO staff_permissions (staff_account_id, permission_code) VALUES ($1, $2)`,
			staffAccountID, code); err != nil {
			logger.Log.WithError(err).WithField("permission_code", code).
				Error("Failed to insert staff permission")
			return err
		}
	}
	return nil
}

func scanStaff(row rowScanner) (*model.StaffAccount, error) {
	account := &model.StaffAccount{}
	err := row.Scan(
		&account.ID, &account.Username, &account.PasswordHash, &account.IsActive,
		&account.RequiresPasswordReset, &account.FailedLoginAttempts, &account.LockedUntil,
		&account.Version, &account.CreatedAt)
	if err != nil {
		return nil, err
	}
	return account, nil
}
