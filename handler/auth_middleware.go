package handler

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"staff-identity-api/common"
	"staff-identity-api/config"
	"staff-identity-api/model"
)

type contextKey string

const (
	StaffIDKey     contextKey = "staffAccountID"
	UsernameKey    contextKey = "username"
	PermissionsKey contextKey = "permissions"
)

func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			err := common.NewAppError(http.StatusUnauthorized, "Authorization header is required", nil)
			err.Send(w)
			return
		}

		headerParts := strings.Split(authHeader, " ")
		if len(headerParts) != 2 || strings.ToLower(headerParts[0]) != "bearer" {
			err := common.NewAppError(http.StatusUnauthorized, "Invalid authorization header format", nil)
			err.Send(w)
			return
		}

		tokenString := headerParts[1]
		claims := &model.AppClaims{}

		jwtKey := []byte(config.AppConfig.JWT.SecretKey)

		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return jwtKey, nil
		})

		if err != nil || !token.Valid {
			appErr := common.NewAppError(http.StatusUnauthorized, "Invalid or expired token", err)
			appErr.Send(w)
			return
		}

		ctx := context.WithValue(r.Context(), StaffIDKey, claims.StaffAccountID)
		ctx = context.WithValue(ctx, UsernameKey, claims.Username)
		ctx = context.WithValue(ctx, PermissionsKey, claims.Permissions)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermission guards a route behind a permission code carried in
// the access token.
func RequirePermission(code string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		permissions, ok := r.Context().Value(PermissionsKey).([]string)
		if !ok || !slices.Contains(permissions, code) {
			err := common.NewAppError(http.StatusForbidden, "Access denied. Missing required permission.", nil)
			err.Send(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}
