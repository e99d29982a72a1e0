package types

import "github.com/golang-jwt/jwt/v4"

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	Profile  uint   `json:"profile"`
	UID      string `json:"uid"`
	jwt.RegisteredClaims
}
