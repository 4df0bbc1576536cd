package services

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"picking-control.com/picking-control/internal/constants"
	apperrors "picking-control.com/picking-control/internal/errors"
)

var ErrInvalidCredentials = &apperrors.Exception{
	Message:    "invalid credentials",
	StatusCode: http.StatusUnauthorized,
}

type adminClaims struct {
	Role constants.Role `json:"role"`
	jwt.RegisteredClaims
}

// AuthService checks the fixed admin credentials and issues short-lived
// bearer tokens for the admin endpoints.
type AuthService struct {
	username string
	password string
	secret   []byte
}

func NewAuthService(username, password, secret string) *AuthService {
	return &AuthService{
		username: username,
		password: password,
		secret:   []byte(secret),
	}
}

func (s *AuthService) Login(username, password string) (string, error) {
	if username != s.username || password != s.password {
		return "", ErrInvalidCredentials
	}

	claims := &adminClaims{
		Role: constants.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// IsAdmin reports whether the bearer token is a valid admin token.
func (s *AuthService) IsAdmin(tokenString string) bool {
	if tokenString == "" {
		return false
	}

	token, err := jwt.ParseWithClaims(tokenString, &adminClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return false
	}

	claims, ok := token.Claims.(*adminClaims)
	return ok && token.Valid && claims.Role == constants.RoleAdmin
}
