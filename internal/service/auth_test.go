package service

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lalamig/storefront/internal/models"
	"github.com/lalamig/storefront/internal/repo"
)

func initTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Order{}, &models.OrderItem{}, &models.Product{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	return db
}

func newTestAuthService(t *testing.T) *AuthService {
	t.Helper()
	return &AuthService{
		Repo:      repo.New(initTestDB(t)),
		JWTSecret: []byte("test-jwt-secret"),
	}
}

func TestAuthService_Register_IssuesVerifiableToken(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, "Maria", "maria@example.com", "secret123")
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)
	assert.Equal(t, "Maria", res.User.Name)
	assert.Equal(t, "maria@example.com", res.User.Email)

	user, err := svc.Verify(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, "maria@example.com", user.Email)
	assert.Equal(t, res.User.ID, user.ID)
}

func TestAuthService_Register_MissingFields(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		userName string
		email    string
		password string
	}{
		{name: "empty name", email: "a@example.com", password: "secret"},
		{name: "empty email", userName: "A", password: "secret"},
		{name: "empty password", userName: "A", email: "a@example.com"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Register(ctx, tt.userName, tt.email, tt.password)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Maria", "maria@example.com", "secret123")
	require.NoError(t, err)

	res, err := svc.Register(ctx, "Other Maria", "maria@example.com", "different")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrConflict)

	// Identical fields under a different email are fine.
	res, err = svc.Register(ctx, "Maria", "maria2@example.com", "secret123")
	require.NoError(t, err)
	require.NotNil(t, res)
}

func TestAuthService_Login_Success(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Maria", "maria@example.com", "secret123")
	require.NoError(t, err)

	res, err := svc.Login(ctx, "maria@example.com", "secret123")
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)
	assert.Equal(t, "Maria", res.User.Name)
	assert.Equal(t, "maria@example.com", res.User.Email)

	user, err := svc.Verify(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, "maria@example.com", user.Email)
}

func TestAuthService_Login_FailuresAreIndistinguishable(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Maria", "maria@example.com", "secret123")
	require.NoError(t, err)

	_, wrongPassword := svc.Login(ctx, "maria@example.com", "not-the-password")
	require.Error(t, wrongPassword)

	_, unknownEmail := svc.Login(ctx, "nobody@example.com", "whatever")
	require.Error(t, unknownEmail)

	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, ErrInvalidCredentials)
}

func TestAuthService_Verify_RejectsBadTokens(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, "Maria", "maria@example.com", "secret123")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-jwt"},
		{name: "empty", token: ""},
		{name: "tampered signature", token: res.Token[:len(res.Token)-2] + "xx"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			user, err := svc.Verify(ctx, tt.token)
			require.Error(t, err)
			assert.Nil(t, user)
			assert.ErrorIs(t, err, ErrUnauthorized)
		})
	}
}

func TestAuthService_StorageFailureIsNotACredentialFailure(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, "Maria", "maria@example.com", "secret123")
	require.NoError(t, err)

	sqlDB, err := svc.Repo.DB.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	// With the store down, a correct password must surface a server
	// error, not "invalid email or password".
	_, err = svc.Login(ctx, "maria@example.com", "secret123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Verify(ctx, res.Token)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestAuthService_Verify_UnknownUser(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	other := newTestAuthService(t)
	ctx := context.Background()

	// Token signed with the same secret but whose user lives in a
	// different database.
	other.JWTSecret = svc.JWTSecret
	res, err := other.Register(ctx, "Maria", "maria@example.com", "secret123")
	require.NoError(t, err)

	user, err := svc.Verify(ctx, res.Token)
	require.Error(t, err)
	assert.Nil(t, user)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
