// file: handler/staff_handler.go

package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"staff-identity-api/common"
	"staff-identity-api/model"
	"staff-identity-api/service"
)

type StaffHandler struct {
	staffService *service.StaffService
}

func NewStaffHandler(staffService *service.StaffService) *StaffHandler {
	return &StaffHandler{staffService: staffService}
}

func staffIDFromPath(r *http.Request) (uuid.UUID, *common.AppError) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, common.NewAppError(http.StatusBadRequest, "Invalid staff account id", err)
	}
	return id, nil
}

func (h *StaffHandler) mapError(err error, action string) *common.AppError {
	if errors.Is(err, service.ErrStaffNotFound) {
		return common.NewAppError(http.StatusNotFound, "Staff account not found", nil)
	}
	if errors.Is(err, service.ErrUsernameTaken) {
		return common.NewAppError(http.StatusConflict, "Username is already taken", nil)
	}
	if errors.Is(err, service.ErrCannotDisableTwice) {
		return common.NewAppError(http.StatusConflict, "Staff account is already disabled", nil)
	}
	return common.NewAppError(http.StatusInternalServerError, action+" failed", err)
}

// Register godoc
// @Summary      Create a staff account
// @Tags         staff
// @Accept       json
// @Produce      json
// @Param        request body model.RegisterStaffRequest true "New staff account"
// @Success      201 {object} model.StaffAccount
// @Failure      409 {object} common.AppError
// @Security     BearerAuth
// @Router       /api/admin/staff [post]
func (h *StaffHandler) Register(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RegisterStaffRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	account, err := h.staffService.Register(r.Context(), req.Username, req.Password, req.Permissions)
	if err != nil {
		return h.mapError(err, "Staff registration")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(account)
	return nil
}

// List godoc
// @Summary      List staff accounts
// @Tags         staff
// @Produce      json
// @Success      200 {array} model.StaffAccount
// @Security     BearerAuth
// @Router       /api/admin/staff [get]
func (h *StaffHandler) List(w http.ResponseWriter, r *http.Request) *common.AppError {
	accounts, err := h.staffService.List(r.Context())
	if err != nil {
		return h.mapError(err, "Staff listing")
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(accounts)
	return nil
}

// StaffDetailResponse is one staff account plus its permission codes.
type StaffDetailResponse struct {
	*model.StaffAccount
	Permissions []string `json:"permissions"`
}

// Get godoc
// @Summary      Fetch one staff account with its permissions
// @Tags         staff
// @Produce      json
// @Success      200 {object} handler.StaffDetailResponse
// @Failure      404 {object} common.AppError
// @Security     BearerAuth
// @Router       /api/admin/staff/{id} [get]
func (h *StaffHandler) Get(w http.ResponseWriter, r *http.Request) *common.AppError {
	id, appErr := staffIDFromPath(r)
	if appErr != nil {
		return appErr
	}

	account, permissions, err := h.staffService.GetDetail(r.Context(), id)
	if err != nil {
		return h.mapError(err, "Staff lookup")
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(StaffDetailResponse{StaffAccount: account, Permissions: permissions})
	return nil
}

// Disable godoc
// @Summary      Disable a staff account and revoke its sessions
// @Tags         staff
// @Success      204
// @Failure      404 {object} common.AppError
// @Security     BearerAuth
// @Router       /api/admin/staff/{id}/disable [post]
func (h *StaffHandler) Disable(w http.ResponseWriter, r *http.Request) *common.AppError {
	id, appErr := staffIDFromPath(r)
	if appErr != nil {
		return appErr
	}

	if err := h.staffService.Disable(r.Context(), id); err != nil {
		return h.mapError(err, "Staff disable")
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// Enable godoc
// @Summary      Re-enable a staff account
// @Tags         staff
// @Success      204
// @Failure      404 {object} common.AppError
// @Security     BearerAuth
// @Router       /api/admin/staff/{id}/enable [post]
func (h *StaffHandler) Enable(w http.ResponseWriter, r *http.Request) *common.AppError {
	id, appErr := staffIDFromPath(r)
	if appErr != nil {
		return appErr
	}

	if err := h.staffService.Enable(r.Context(), id); err != nil {
		return h.mapError(err, "Staff enable")
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// ResetPassword godoc
// @Summary      Reset a staff password and revoke its sessions
// @Tags         staff
// @Accept       json
// @Param        request body model.ResetPasswordRequest true "New password"
// @Success      204
// @Failure      404 {object} common.AppError
// @Security     BearerAuth
// @Router       /api/admin/staff/{id}/reset-password [post]
func (h *StaffHandler) ResetPassword(w http.ResponseWriter, r *http.Request) *common.AppError {
	id, appErr := staffIDFromPath(r)
	if appErr != nil {
		return appErr
	}

	var req model.ResetPasswordRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	if err := h.staffService.ResetPassword(r.Context(), id, req.NewPassword); err != nil {
		return h.mapError(err, "Password reset")
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// UpdatePermissions godoc
// @Summary      Replace a staff account's permission set
// @Tags         staff
// @Accept       json
// @Param        request body model.UpdatePermissionsRequest true "Permission codes"
// @Success      204
// @Failure      404 {object} common.AppError
// @Security     BearerAuth
// @Router       /api/admin/staff/{id}/permissions [put]
func (h *StaffHandler) UpdatePermissions(w http.ResponseWriter, r *http.Request) *common.AppError {
	id, appErr := staffIDFromPath(r)
	if appErr != nil {
		return appErr
	}

	var req model.UpdatePermissionsRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	if err := h.staffService.ReplacePermissions(r.Context(), id, req.Permissions); err != nil {
		return h.mapError(err, "Permission update")
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}
