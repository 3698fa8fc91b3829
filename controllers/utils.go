package controllers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func UIntToStr(value uint) string {
	return strconv.FormatUint(uint64(value), 10)
}

// GenerateUserToken signs an HS256 access token for userPk, the same shape
// JWTMiddleware accepts.
func GenerateUserToken(userPk string, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt secret is empty")
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userPk,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	})
	t, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token for %s: %w", userPk, err)
	}
	return t, nil
}
