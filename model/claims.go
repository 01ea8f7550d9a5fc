package model

import "github.com/golang-jwt/jwt/v5"

// AccessClaims is the claim set of a short-lived access token. Carrying the
// public profile fields lets downstream handlers identify the caller without
// a second lookup once the middleware has resolved the user.
type AccessClaims struct {
	UserID   string `json:"_id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// RefreshClaims is the claim set of a refresh token. It carries only the
// user ID; the token value itself is additionally persisted on the user row
// so that rotation and logout can invalidate it before its natural expiry.
type RefreshClaims struct {
	UserID string `json:"_id"`
	jwt.RegisteredClaims
}
