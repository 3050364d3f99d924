// file: repository/audit_repository.go

package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"staff-identity-api/logger"
	"staff-identity-api/uow"
)

// IAuditRepository records security events. This core only writes the
// trail; reading it belongs to the reporting surface.
type IAuditRepository interface {
	Record(ctx context.Context, eventType string, staffAccountID uuid.UUID, detail string, occurredAt time.Time) error
}

// AuditRepository implements IAuditRepository on PostgreSQL.
type AuditRepository struct {
	DB *sql.DB
}

func NewAuditRepository(database *sql.DB) *AuditRepository {
	return &AuditRepository{DB: database}
}

// Record appends one audit row.
func (r *AuditRepository) Record(ctx context.Context, eventType string, staffAccountID uuid.UUID, detail string, occurredAt time.Time) error {
	query := `INSERT INTO audit_events (event_type, staff_account_id, detail, occurred_at) VALUES ($1, $2, $3, $4)`
	_, err := uow.Conn(ctx, r.DB).ExecContext(ctx, query, eventType, staffAccountID, detail, occurredAt)
	if err != nil {
		logger.Log.WithError(err).WithField("event_type", eventType).
			Error("Failed to execute record audit event query")
		return err
	}
	return nil
}
