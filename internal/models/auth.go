package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the payload of an access token issued by the identity service.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	OrgID  string   `json:"org_id"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}
