package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/teacher-stats-api/internal/models"
	appErrors "github.com/noah-isme/teacher-stats-api/pkg/errors"
)

type mockAdminRepo struct {
	user             *models.AdminUser
	findErr          error
	lastLoginUpdated bool
}

func (m *mockAdminRepo) FindByEmail(context.Context, string) (*models.AdminUser, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.user, nil
}

func (m *mockAdminRepo) UpdateLastLogin(context.Context, string, time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func newAdmin(t *testing.T, password string, active bool) *models.AdminUser {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.AdminUser{ID: "admin-1", Email: "admin@example.com", PasswordHash: string(hash), FullName: "Ops", Role: models.RoleAdmin, Active: active}
}

func newTestAuthService(repo adminUserRepository) *AuthService {
	return NewAuthService(repo, nil, zap.NewNop(), AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, Issuer: "teacher-stats-api"})
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	repo := &mockAdminRepo{user: newAdmin(t, "password123", true)}
	svc := newTestAuthService(repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.True(t, repo.lastLoginUpdated)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestLoginFailures(t *testing.T) {
	tests := []struct {
		name string
		repo *mockAdminRepo
		req  models.LoginRequest
		want *appErrors.Error
	}{
		{name: "invalid payload", repo: &mockAdminRepo{}, req: models.LoginRequest{Email: "nope"}, want: appErrors.ErrValidation},
		{name: "unknown email", repo: &mockAdminRepo{findErr: sql.ErrNoRows}, req: models.LoginRequest{Email: "x@example.com", Password: "p"}, want: appErrors.ErrInvalidCredentials},
		{name: "wrong password", repo: &mockAdminRepo{user: newAdmin(t, "right", true)}, req: models.LoginRequest{Email: "admin@example.com", Password: "wrong"}, want: appErrors.ErrInvalidCredentials},
		{name: "inactive", repo: &mockAdminRepo{user: newAdmin(t, "right", false)}, req: models.LoginRequest{Email: "admin@example.com", Password: "right"}, want: appErrors.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestAuthService(tt.repo).Login(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidateTokenRejectsForeignTokens(t *testing.T) {
	svc := newTestAuthService(&mockAdminRepo{})

	other := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "teacher-stats-api",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	signed, err := other.SignedString([]byte("different-secret"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(signed)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
