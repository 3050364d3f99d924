// file: model/request.go

package model

// LoginRequest defines the payload for staff authentication.
type LoginRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8"`
}

// RefreshRequest carries the plaintext refresh token presented by the
// client. Shaping is transport-level only; the token core receives the
// bare string.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RegisterStaffRequest defines the payload for creating a new staff
// account.
type RegisterStaffRequest struct {
	Username    string   `json:"username" validate:"required,min=3,max=50"`
	Password    string   `json:"password" validate:"required,min=8"`
	Permissions []string `json:"permissions" validate:"dive,min=1,max=100"`
}

// ResetPasswordRequest defines the payload for an administrative
// password reset.
type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// UpdatePermissionsRequest replaces a staff account's permission set.
type UpdatePermissionsRequest struct {
	Permissions []string `json:"permissions" validate:"required,dive,min=1,max=100"`
}
