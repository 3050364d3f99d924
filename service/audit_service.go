// file: service/audit_service.go

package service

import (
	"context"
	"fmt"

	"staff-identity-api/event"
	"staff-identity-api/repository"
)

// AuditService is the event-bus subscriber that persists the security
// trail. Writes only; the reporting surface reads the table.
type AuditService struct {
	auditRepo repository.IAuditRepository
}

func NewAuditService(auditRepo repository.IAuditRepository) *AuditService {
	return &AuditService{auditRepo: auditRepo}
}

// Handle records one audit row per event. The switch covers the closed
// variant set; adding an event kind means adding a case here.
func (s *AuditService) Handle(ctx context.Context, ev event.Event) error {
	var eventType, detail string

	switch e := ev.(type) {
	case event.StaffAccountLocked:
		eventType = "staff_account_locked"
		detail = fmt.Sprintf("locked until %s", e.LockedUntil.Format("2006-01-02T15:04:05Z07:00"))
	case event.StaffAccountDisabled:
		eventType = "staff_account_disabled"
	case event.StaffPasswordReset:
		eventType = "staff_password_reset"
	case event.RefreshTokenTheftDetected:
		eventType = "refresh_token_theft_detected"
		detail = fmt.Sprintf("token %s replayed from %s", e.PresentedTokenID, e.SourceIP)
	default:
		return fmt.Errorf("unhandled event variant %T", ev)
	}

	return s.auditRepo.Record(ctx, eventType, ev.StaffID(), detail, ev.OccurredAt())
}
