// file: handler/auth_handler.go

package handler

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"staff-identity-api/common"
	"staff-identity-api/model"
	"staff-identity-api/service"
)

type AuthHandler struct {
	authService  *service.AuthService
	tokenService *service.TokenService
}

func NewAuthHandler(authService *service.AuthService, tokenService *service.TokenService) *AuthHandler {
	return &AuthHandler{authService: authService, tokenService: tokenService}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Login godoc
// @Summary      Authenticate a staff member
// @Description  Verifies credentials and returns an access/refresh token pair
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body model.LoginRequest true "Credentials"
// @Success      200 {object} service.TokenPair
// @Failure      401 {object} common.AppError
// @Router       /login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.LoginRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	pair, err := h.authService.Login(r.Context(), req.Username, req.Password, clientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			return common.NewAppError(http.StatusUnauthorized, "Invalid username or password", nil)
		case errors.Is(err, service.ErrAccountLocked):
			return common.NewAppError(http.StatusUnauthorized, "Account is temporarily locked", nil)
		case errors.Is(err, service.ErrAccountInactive):
			return common.NewAppError(http.StatusUnauthorized, "Account is disabled", nil)
		default:
			return common.NewAppError(http.StatusInternalServerError, "Login failed", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(pair)
	return nil
}

// RefreshResponse is the rotation response body. The new refresh token
// appears here exactly once; only its hash is stored.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Refresh godoc
// @Summary      Rotate a refresh token
// @Description  Exchanges a valid refresh token for a new token pair
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body model.RefreshRequest true "Refresh token"
// @Success      200 {object} handler.RefreshResponse
// @Failure      401 {object} common.AppError
// @Router       /api/token/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RefreshRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	result, err := h.tokenService.Rotate(r.Context(), req.RefreshToken, clientIP(r))
	if err != nil {
		// Unknown, expired, revoked and replayed tokens all surface the
		// same response; only infrastructure failures differ.
		if errors.Is(err, service.ErrInvalidRefreshToken) {
			return common.NewAppError(http.StatusUnauthorized, "Invalid refresh token", nil)
		}
		return common.NewAppError(http.StatusInternalServerError, "Token refresh failed", err)
	}

	accessToken, err := h.authService.GenerateAccessToken(&model.StaffAccount{
		ID:                    result.StaffAccountID,
		Username:              result.Username,
		RequiresPasswordReset: result.RequiresPasswordReset,
	}, result.Permissions)
	if err != nil {
		return common.NewAppError(http.StatusInternalServerError, "Token refresh failed", err)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(RefreshResponse{
		AccessToken:  accessToken,
		RefreshToken: result.NewRefreshToken,
	})
	return nil
}

// Logout godoc
// @Summary      Revoke a refresh token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body model.RefreshRequest true "Refresh token"
// @Success      204
// @Failure      401 {object} common.AppError
// @Router       /api/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RefreshRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	if err := h.authService.Logout(r.Context(), req.RefreshToken); err != nil {
		if errors.Is(err, service.ErrInvalidRefreshToken) {
			return common.NewAppError(http.StatusUnauthorized, "Invalid refresh token", nil)
		}
		return common.NewAppError(http.StatusInternalServerError, "Logout failed", err)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}
