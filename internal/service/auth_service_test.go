package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sma-assignments-api/internal/models"
	appErrors "github.com/noah-isme/sma-assignments-api/pkg/errors"
)

type mockAuthRepo struct {
	userByEmail    *models.User
	findByEmailErr error
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	if m.userByEmail == nil {
		return nil, models.ErrRecordNotFound
	}
	return m.userByEmail, nil
}

func newTestAuthService(repo *mockAuthRepo) *AuthService {
	return NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "school-dashboard",
	})
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: &models.User{ID: "123", Email: "user@example.com", PasswordHash: hashPassword(t, "password"), Active: true, Role: models.RoleTeacher}}
	svc := newTestAuthService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Equal(t, models.RoleTeacher, res.User.Role)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "123", claims.UserID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
	assert.Equal(t, "school-dashboard", claims.Issuer)
}

func TestAuthServiceLoginFailures(t *testing.T) {
	active := &models.User{ID: "1", Email: "user@example.com", PasswordHash: hashPassword(t, "password"), Active: true, Role: models.RoleStudent}
	inactive := &models.User{ID: "2", Email: "off@example.com", PasswordHash: hashPassword(t, "password"), Active: false, Role: models.RoleStudent}

	cases := []struct {
		name   string
		repo   *mockAuthRepo
		req    models.LoginRequest
		status int
	}{
		{"invalid payload", &mockAuthRepo{}, models.LoginRequest{Email: "nope"}, 400},
		{"unknown email", &mockAuthRepo{}, models.LoginRequest{Email: "ghost@example.com", Password: "x"}, 401},
		{"wrong password", &mockAuthRepo{userByEmail: active}, models.LoginRequest{Email: "user@example.com", Password: "wrong"}, 401},
		{"inactive account", &mockAuthRepo{userByEmail: inactive}, models.LoginRequest{Email: "off@example.com", Password: "password"}, 403},
		{"store failure", &mockAuthRepo{findByEmailErr: errors.New("db down")}, models.LoginRequest{Email: "user@example.com", Password: "password"}, 500},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newTestAuthService(tc.repo).Login(context.Background(), tc.req)
			require.Error(t, err)
			assert.Equal(t, tc.status, appErrors.FromError(err).Status)
		})
	}
}

func TestAuthServiceValidateTokenRejectsTampering(t *testing.T) {
	svc := newTestAuthService(&mockAuthRepo{})

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)

	other := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{
		UserID: "1",
		Role:   models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := other.SignedString([]byte("another-secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	require.Error(t, err)
	assert.Equal(t, 401, appErrors.FromError(err).Status)
}

func TestAuthServiceValidateTokenRejectsExpiredAndUnknownRoles(t *testing.T) {
	svc := newTestAuthService(&mockAuthRepo{})

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{
		UserID: "1",
		Role:   models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	require.Error(t, err)

	unknownRole := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{
		UserID: "1",
		Role:   "SUPERADMIN",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err = unknownRole.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	require.Error(t, err)
}
