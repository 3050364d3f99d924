// file: model/staff_account_test.go

package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStaffAccount_RecordFailedLogin(t *testing.T) {
	account := &StaffAccount{IsActive: true, Version: 1}

	locked := false
	for i := 0; i < 4; i++ {
		locked = account.RecordFailedLogin(5, 15*time.Minute)
		assert.False(t, locked, "lock must not trigger before the threshold")
	}

	locked = account.RecordFailedLogin(5, 15*time.Minute)
	assert.True(t, locked, "the fifth failure crosses the threshold")
	assert.True(t, account.IsLocked(time.Now()))
	assert.Zero(t, account.FailedLoginAttempts)
}

func TestStaffAccount_LockExpires(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	account := &StaffAccount{LockedUntil: &past}
	assert.False(t, account.IsLocked(time.Now()))
}

func TestStaffAccount_ResetFailedLogins(t *testing.T) {
	account := &StaffAccount{FailedLoginAttempts: 3, Version: 1}
	assert.True(t, account.ResetFailedLogins())
	assert.Zero(t, account.FailedLoginAttempts)
	assert.Nil(t, account.LockedUntil)
	assert.Equal(t, 2, account.Version)

	// No-op when there is nothing to clear: the version must not move.
	assert.False(t, account.ResetFailedLogins())
	assert.Equal(t, 2, account.Version)
}

func TestStaffAccount_ResetPassword(t *testing.T) {
	account := &StaffAccount{PasswordHash: "old", Version: 1}
	account.ResetPassword("new")
	assert.Equal(t, "new", account.PasswordHash)
	assert.True(t, account.RequiresPasswordReset)
	assert.Equal(t, 2, account.Version)
}

func TestStaffAccount_DisableEnable(t *testing.T) {
	account := &StaffAccount{IsActive: true, Version: 1}
	account.Disable()
	assert.False(t, account.IsActive)
	account.Enable()
	assert.True(t, account.IsActive)
	assert.Equal(t, 3, account.Version)
}
