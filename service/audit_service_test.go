// file: service/audit_service_test.go

package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"staff-identity-api/event"
)

func TestAuditService_RecordsEveryVariant(t *testing.T) {
	staffID := uuid.New()
	tokenID := uuid.New()

	cases := []struct {
		name      string
		ev        event.Event
		eventType string
	}{
		{"locked", event.NewStaffAccountLocked(staffID, time.Now().Add(15*time.Minute)), "staff_account_locked"},
		{"disabled", event.NewStaffAccountDisabled(staffID), "staff_account_disabled"},
		{"password reset", event.NewStaffPasswordReset(staffID), "staff_password_reset"},
		{"theft detected", event.NewRefreshTokenTheftDetected(staffID, tokenID, "1.2.3.4"), "refresh_token_theft_detected"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auditRepo := new(mockAuditRepo)
			auditRepo.On("Record", mock.Anything, tc.eventType, staffID, mock.AnythingOfType("string"), tc.ev.OccurredAt()).
				Return(nil).Once()

			svc := NewAuditService(auditRepo)
			assert.NoError(t, svc.Handle(context.Background(), tc.ev))
			auditRepo.AssertExpectations(t)
		})
	}
}

func TestAuditService_TheftDetailNamesTokenAndSource(t *testing.T) {
	staffID := uuid.New()
	tokenID := uuid.New()
	auditRepo := new(mockAuditRepo)
	auditRepo.On("Record", mock.Anything, "refresh_token_theft_detected", staffID, mock.Anything, mock.Anything).
		Return(nil).Once()

	svc := NewAuditService(auditRepo)
	assert.NoError(t, svc.Handle(context.Background(), event.NewRefreshTokenTheftDetected(staffID, tokenID, "6.6.6.6")))

	detail := auditRepo.Calls[0].Arguments.String(3)
	assert.Contains(t, detail, tokenID.String())
	assert.Contains(t, detail, "6.6.6.6")
}
