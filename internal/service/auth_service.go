package service

import (
	"crypto/subtle"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dos-platform/tutor-api/pkg/config"
	appErrors "github.com/dos-platform/tutor-api/pkg/errors"
)

// AuthService validates bearer tokens issued by the identity provider and the
// static API key used by trusted internal callers. Tokens carry the profile id
// in the subject claim.
type AuthService struct {
	secret         []byte
	internalAPIKey string
}

// NewAuthService constructs an AuthService.
func NewAuthService(cfg config.AuthConfig) *AuthService {
	return &AuthService{
		secret:         []byte(cfg.JWTSecret),
		internalAPIKey: cfg.InternalAPIKey,
	}
}

// ValidateToken parses and validates an access token, returning the profile id
// from the subject claim.
func (s *AuthService) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if claims.Subject == "" {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "token missing subject")
	}

	return claims.Subject, nil
}

// ValidInternalKey reports whether the presented key matches the configured
// internal API key. An unset key disables internal access entirely.
func (s *AuthService) ValidInternalKey(key string) bool {
	if s.internalAPIKey == "" || key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.internalAPIKey), []byte(key)) == 1
}
