package service

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/teacher-stats-api/internal/models"
	appErrors "github.com/noah-isme/teacher-stats-api/pkg/errors"
)

// TokenIdentity is the teacher identity carried in a schedule platform token.
type TokenIdentity struct {
	Email string
	Phone string
}

// ValidateTokenFormat rejects values that are not three dot-separated JWT segments.
func ValidateTokenFormat(token string) error {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return appErrors.ErrInvalidTokenFormat
	}
	for _, part := range parts {
		if part == "" {
			return appErrors.ErrInvalidTokenFormat
		}
	}
	return nil
}

// ParseTokenIdentity reads the email and phone claims without verifying the signature;
// the token belongs to the schedule platform and is only used as a label here.
func ParseTokenIdentity(token string) TokenIdentity {
	identity := TokenIdentity{Email: models.UnknownIdentity, Phone: models.UnknownIdentity}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return identity
	}
	if email, ok := claims["email"].(string); ok && strings.TrimSpace(email) != "" {
		identity.Email = strings.TrimSpace(email)
	}
	if phone, ok := claims["phone"].(string); ok && strings.TrimSpace(phone) != "" {
		identity.Phone = strings.TrimSpace(phone)
	}
	return identity
}
