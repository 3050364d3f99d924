package router

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "staff-identity-api/docs"
	"staff-identity-api/handler"
	"staff-identity-api/model"
)

func NewRouter(authHandler *handler.AuthHandler, staffHandler *handler.StaffHandler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handler.HealthCheck)
	mux.Handle("GET /swagger/", httpSwagger.Handler())

	mux.Handle("POST /login", handler.ErrorHandlingMiddleware(authHandler.Login))
	mux.Handle("POST /api/token/refresh", handler.ErrorHandlingMiddleware(authHandler.Refresh))
	mux.Handle("POST /api/logout", handler.ErrorHandlingMiddleware(authHandler.Logout))

	// Staff administration requires a valid access token carrying the
	// staff admin permission.
	mux.Handle("POST /api/admin/staff",
		handler.AuthMiddleware(handler.RequirePermission(model.PermissionStaffAdmin,
			handler.ErrorHandlingMiddleware(staffHandler.Register))))
	mux.Handle("GET /api/admin/staff",
		handler.AuthMiddleware(handler.RequirePermission(model.PermissionStaffAdmin,
			handler.ErrorHandlingMiddleware(staffHandler.List))))
	mux.Handle("GET /api/admin/staff/{id}",
		handler.AuthMiddleware(handler.RequirePermission(model.PermissionStaffAdmin,
			handler.ErrorHandlingMiddleware(staffHandler.Get))))
	mux.Handle("POST /api/admin/staff/{id}/disable",
		handler.AuthMiddleware(handler.RequirePermission(model.PermissionStaffAdmin,
			handler.ErrorHandlingMiddleware(staffHandler.Disable))))
	mux.Handle("POST /api/admin/staff/{id}/enable",
		handler.AuthMiddleware(handler.RequirePermission(model.PermissionStaffAdmin,
			handler.ErrorHandlingMiddleware(staffHandler.Enable))))
	mux.Handle("POST /api/admin/staff/{id}/reset-password",
		handler.AuthMiddleware(handler.RequirePermission(model.PermissionStaffAdmin,
			handler.ErrorHandlingMiddleware(staffHandler.ResetPassword))))
	mux.Handle("PUT /api/admin/staff/{id}/permissions",
		handler.AuthMiddleware(handler.RequirePermission(model.PermissionStaffAdmin,
			handler.ErrorHandlingMiddleware(staffHandler.UpdatePermissions))))

	return mux
}
