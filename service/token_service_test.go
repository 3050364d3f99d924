// file: service/token_service_test.go

package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"staff-identity-api/event"
	"staff-identity-api/model"
	"staff-identity-api/repository"
	"staff-identity-api/uow"
)

func newTokenServiceForTest(t *testing.T) (*TokenService, sqlmock.Sqlmock, *mockTokenRepo, *mockStaffRepo, *recordingSubscriber, func()) {
	t.Helper()

	db, dbMock, err := sqlmock.New()
	assert.NoError(t, err)

	tokenRepo := new(mockTokenRepo)
	staffRepo := new(mockStaffRepo)
	manager := uow.NewManager(db)
	revocation := NewRevocationService(manager, tokenRepo)
	bus := event.NewBus()
	recorder := &recordingSubscriber{}
	bus.Subscribe(recorder)

	svc := NewTokenService(manager, tokenRepo, staffRepo, revocation, bus)
	return svc, dbMock, tokenRepo, staffRepo, recorder, func() { db.Close() }
}

func activeTokenForTest(t *testing.T, plaintext string, staffID uuid.UUID) *model.RefreshToken {
	t.Helper()
	token, err := model.IssueRefreshToken(HashToken(plaintext), staffID, "1.2.3.4")
	assert.NoError(t, err)
	return token
}

func TestTokenService_Rotate_Success(t *testing.T) {
	svc, dbMock, tokenRepo, staffRepo, _, cleanup := newTokenServiceForTest(t)
	defer cleanup()

	staffID := uuid.New()
	plaintext := "valid-refresh-token"
	stored := activeTokenForTest(t, plaintext, staffID)
	account := &model.StaffAccount{
		ID:       staffID,
		Username: "operator1",
		IsActive: true,
		Version:  1,
	}

	dbMock.ExpectBegin()
	tokenRepo.On("GetByTokenHash", mock.Anything, HashToken(plaintext)).Return(stored, nil).Once()
	tokenRepo.On("Update", mock.Anything, stored).Return(nil).Once()
	tokenRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.RefreshToken")).Return(nil).Once()
	staffRepo.On("GetByID", mock.Anything, staffID).Return(account, nil).Once()
	staffRepo.On("GetPermissionCodes", mock.Anything, staffID).Return([]string{"staff.read", "staff.write"}, nil).Once()
	dbMock.ExpectCommit()

	result, err := svc.Rotate(context.Background(), plaintext, "1.2.3.4")
	assert.NoError(t, err)
	assert.Equal(t, staffID, result.StaffAccountID)
	assert.Equal(t, "operator1", result.Username)
	assert.False(t, result.RequiresPasswordReset)
	assert.NotEmpty(t, result.NewRefreshToken)
	assert.NotEqual(t, plaintext, result.NewRefreshToken)
	assert.Equal(t, []string{"staff.read", "staff.write"}, result.Permissions)
	assert.Equal(t, 1, result.TokenVersion)

	// The original was retired by rotation inside the same transaction.
	assert.True(t, stored.IsRevoked)
	assert.NotNil(t, stored.ReplacedBy)

	successor := tokenRepo.Calls[2].Arguments.Get(1).(*model.RefreshToken)
	assert.Equal(t, *stored.ReplacedBy, successor.ID)
	assert.Equal(t, HashToken(result.NewRefreshToken), successor.TokenHash)
	assert.False(t, successor.IsRevoked)
	assert.Nil(t, successor.ReplacedBy)

	tokenRepo.AssertExpectations(t)
	staffRepo.AssertExpectations(t)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestTokenService_Rotate_UnknownToken(t *testing.T) {
	svc, dbMock, tokenRepo, _, _, cleanup := newTokenServiceForTest(t)
	defer cleanup()

	dbMock.ExpectBegin()
	tokenRepo.On("GetByTokenHash", mock.Anything, mock.Anything).Return(nil, sql.ErrNoRows).Once()
	dbMock.ExpectRollback()

	_, err := svc.Rotate(context.Background(), "unknown-token", "1.2.3.4")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	tokenRepo.AssertExpectations(t)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestTokenService_Rotate_ExpiredToken(t *testing.T) {
	svc, dbMock, tokenRepo, _, _, cleanup := newTokenServiceForTest(t)
	defer cleanup()

	plaintext := "expired-token"
	stored := activeTokenForTest(t, plaintext, uuid.New())
	stored.ExpiresAt = time.Now().Add(-time.Hour)

	dbMock.ExpectBegin()
	tokenRepo.On("GetByTokenHash", mock.Anything, HashToken(plaintext)).Return(stored, nil).Once()
	dbMock.ExpectRollback()

	_, err := svc.Rotate(context.Background(), plaintext, "1.2.3.4")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	// Expiry is derived state; the record itself is untouched.
	assert.False(t, stored.IsRevoked)
	tokenRepo.AssertNotCalled(t, "Update")
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestTokenService_Rotate_ReplayRevokesWholeLineage(t *testing.T) {
	svc, dbMock, tokenRepo, _, recorder, cleanup := newTokenServiceForTest(t)
	defer cleanup()

	staffID := uuid.New()

	// T1 was legitimately rotated to T2 earlier; the attacker replays T1.
	t1 := activeTokenForTest(t, "stolen-token", staffID)
	t2, err := t1.Replace(HashToken("current-token"))
	assert.NoError(t, err)
	otherSession := activeTokenForTest(t, "other-session", staffID)

	dbMock.ExpectBegin()
	tokenRepo.On("GetByTokenHash", mock.Anything, HashToken("stolen-token")).Return(t1, nil).Once()
	tokenRepo.On("GetActiveTokensByStaffAccountID", mock.Anything, staffID).
		Return([]*model.RefreshToken{t2, otherSession}, nil).Once()
	tokenRepo.On("UpdateAll", mock.Anything, mock.Anything).Return(nil).Once()
	// The defensive revocation is committed, not rolled back.
	dbMock.ExpectCommit()

	_, err = svc.Rotate(context.Background(), "stolen-token", "6.6.6.6")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	// Every live session of the account was revoked, T2 included.
	assert.True(t, t2.IsRevoked)
	assert.True(t, otherSession.IsRevoked)
	assert.Nil(t, t2.ReplacedBy, "bulk revocation is not a rotation")

	// The theft event fired for the audit trail, after the commit.
	assert.Len(t, recorder.seen, 1)
	theft, ok := recorder.seen[0].(event.RefreshTokenTheftDetected)
	assert.True(t, ok)
	assert.Equal(t, staffID, theft.StaffID())
	assert.Equal(t, t1.ID, theft.PresentedTokenID)
	assert.Equal(t, "6.6.6.6", theft.SourceIP)

	tokenRepo.AssertExpectations(t)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestTokenService_Rotate_ReplayRevocationFailureRollsBack(t *testing.T) {
	svc, dbMock, tokenRepo, _, recorder, cleanup := newTokenServiceForTest(t)
	defer cleanup()

	staffID := uuid.New()
	t1 := activeTokenForTest(t, "stolen-token", staffID)
	assert.NoError(t, t1.Revoke())

	dbMock.ExpectBegin()
	tokenRepo.On("GetByTokenHash", mock.Anything, HashToken("stolen-token")).Return(t1, nil).Once()
	tokenRepo.On("GetActiveTokensByStaffAccountID", mock.Anything, staffID).
		Return(nil, errors.New("connection reset")).Once()
	dbMock.ExpectRollback()

	_, err := svc.Rotate(context.Background(), "stolen-token", "6.6.6.6")
	assert.ErrorIs(t, err, uow.ErrInfrastructure)
	assert.Empty(t, recorder.seen, "no theft event without a committed revocation")
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestTokenService_Rotate_InfrastructureFailureRollsBack(t *testing.T) {
	svc, dbMock, tokenRepo, _, _, cleanup := newTokenServiceForTest(t)
	defer cleanup()

	plaintext := "valid-refresh-token"
	stored := activeTokenForTest(t, plaintext, uuid.New())

	// First write succeeds, second raises an infrastructure error; the
	// unit of work must roll back as a whole.
	dbMock.ExpectBegin()
	tokenRepo.On("GetByTokenHash", mock.Anything, HashToken(plaintext)).Return(stored, nil).Once()
	tokenRepo.On("Update", mock.Anything, stored).Return(nil).Once()
	tokenRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection reset")).Once()
	dbMock.ExpectRollback()

	_, err := svc.Rotate(context.Background(), plaintext, "1.2.3.4")
	assert.ErrorIs(t, err, uow.ErrInfrastructure)

	tokenRepo.AssertExpectations(t)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestTokenService_Rotate_LostConcurrencyRaceFailsLoudly(t *testing.T) {
	svc, dbMock, tokenRepo, _, _, cleanup := newTokenServiceForTest(t)
	defer cleanup()

	plaintext := "contended-token"
	stored := activeTokenForTest(t, plaintext, uuid.New())

	dbMock.ExpectBegin()
	tokenRepo.On("GetByTokenHash", mock.Anything, HashToken(plaintext)).Return(stored, nil).Once()
	tokenRepo.On("Update", mock.Anything, stored).Return(repository.ErrTokenVersionConflict).Once()
	dbMock.ExpectRollback()

	_, err := svc.Rotate(context.Background(), plaintext, "1.2.3.4")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	tokenRepo.AssertNotCalled(t, "Create")
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestTokenService_Rotate_EmptyToken(t *testing.T) {
	svc, _, tokenRepo, _, _, cleanup := newTokenServiceForTest(t)
	defer cleanup()

	_, err := svc.Rotate(context.Background(), "", "1.2.3.4")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	tokenRepo.AssertNotCalled(t, "GetByTokenHash")
}

func TestGenerateRefreshToken(t *testing.T) {
	plaintext, digest, err := GenerateRefreshToken()
	assert.NoError(t, err)
	assert.NotEmpty(t, plaintext)
	assert.Equal(t, HashToken(plaintext), digest)

	plaintext2, _, err := GenerateRefreshToken()
	assert.NoError(t, err)
	assert.NotEqual(t, plaintext, plaintext2)
}
