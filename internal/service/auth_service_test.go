package service

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursehub/internal/db"
	"coursehub/internal/models"
	"coursehub/internal/testutil"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	return NewAuthService(testutil.OpenInMemoryDB(t), zerolog.Nop())
}

func TestRegister(t *testing.T) {
	auth := newAuthService(t)

	user, err := auth.Register(context.Background(), RegisterInput{
		Username: " alice ",
		Email:    "Alice@Example.COM",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotEqual(t, "password123", user.PasswordHash)
	assert.True(t, strings.HasPrefix(user.PasswordHash, "$2"))
}

func TestRegisterDuplicate(t *testing.T) {
	auth := newAuthService(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = auth.Register(ctx, RegisterInput{Username: "alice2", Email: "ALICE@example.com", Password: "password123"})
	assert.ErrorIs(t, err, db.ErrDuplicateKey)

	_, err = auth.Register(ctx, RegisterInput{Username: "alice", Email: "new@example.com", Password: "password123"})
	assert.ErrorIs(t, err, db.ErrDuplicateKey)
}

func TestRegisterValidation(t *testing.T) {
	auth := newAuthService(t)

	tests := []struct {
		name  string
		input RegisterInput
		field string
	}{
		{"missing username", RegisterInput{Email: "a@example.com", Password: "password123"}, "Username"},
		{"short username", RegisterInput{Username: "ab", Email: "a@example.com", Password: "password123"}, "Username"},
		{"symbols in username", RegisterInput{Username: "bad name!", Email: "a@example.com", Password: "password123"}, "Username"},
		{"bad email", RegisterInput{Username: "alice", Email: "not-an-email", Password: "password123"}, "Email"},
		{"short password", RegisterInput{Username: "alice", Email: "a@example.com", Password: "short"}, "Password"},
		{"long password", RegisterInput{Username: "alice", Email: "a@example.com", Password: strings.Repeat("p", 73)}, "Password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.Register(context.Background(), tt.input)
			require.ErrorIs(t, err, ErrValidation)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
			assert.NotEmpty(t, vErr.Message)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	auth := newAuthService(t)
	ctx := context.Background()

	registered, err := auth.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)

	user, err := auth.Authenticate(ctx, " ALICE@example.com ", "password123")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	for _, tc := range []struct{ email, password string }{
		{"alice@example.com", "password124"},
		{"alice@example.com", "PASSWORD123"},
		{"alice@example.com", ""},
		{"bob@example.com", "password123"},
		{"", ""},
	} {
		_, err := auth.Authenticate(ctx, tc.email, tc.password)
		assert.ErrorIs(t, err, ErrInvalidCredentials, "%s/%s", tc.email, tc.password)
	}
}

func TestSetRole(t *testing.T) {
	auth := newAuthService(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)

	require.NoError(t, auth.SetRole(ctx, "Alice@example.com", models.RoleAdmin))
	assert.ErrorIs(t, auth.SetRole(ctx, "alice@example.com", "root"), ErrValidation)
	assert.ErrorIs(t, auth.SetRole(ctx, "ghost@example.com", models.RoleAdmin), db.ErrNotFound)

	users, err := auth.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.True(t, users[0].IsAdmin())

	n, err := auth.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCreateUserWithRole(t *testing.T) {
	auth := newAuthService(t)

	user, err := auth.CreateUser(context.Background(), RegisterInput{
		Username: "root", Email: "root@example.com", Password: "password123",
	}, models.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, user.IsAdmin())
}

func TestAuthenticateRejectsPasswordWithSuffix(t *testing.T) {
	auth := newAuthService(t)
	ctx := context.Background()

	password := "Aa1" + strings.Repeat("x", 69)
	_, err := auth.Register(ctx, RegisterInput{Username: "carol", Email: "carol@example.com", Password: password})
	require.NoError(t, err)

	_, err = auth.Authenticate(ctx, "carol@example.com", password+"EXTRA")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	user, err := auth.Authenticate(ctx, "carol@example.com", password)
	require.NoError(t, err)
	assert.Equal(t, "carol", user.Username)
}
