package model

import "github.com/golang-jwt/jwt/v5"

type AppClaims struct {
	StaffAccountID string   `json:"staff_account_id"`
	Username       string   `json:"username"`
	Permissions    []string `json:"permissions"`
	jwt.RegisteredClaims
}
