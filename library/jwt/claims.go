package jwt

import (
	"github.com/golang-jwt/jwt/v5"
)

// AccountClaims identifies an authenticated account.
type AccountClaims struct {
	jwt.RegisteredClaims
	AccountID string `json:"uid"`
	Username  string `json:"username"`
	Role      string `json:"role"`
}
