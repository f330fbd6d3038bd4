package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"coursehub/internal/db"
	"coursehub/internal/models"
	"coursehub/internal/security"

	"github.com/rs/zerolog"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type AuthService struct {
	db  *db.DB
	log zerolog.Logger
}

func NewAuthService(database *db.DB, log zerolog.Logger) *AuthService {
	return &AuthService{db: database, log: log}
}

type RegisterInput struct {
	Username string `validate:"required,alphanum,min=3,max=32"`
	Email    string `validate:"required,email,max=255"`
	Password string `validate:"required,min=8,max=72"`
}

func (in *RegisterInput) normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
}

// Register creates a user with the default role. It fails with
// db.ErrDuplicateKey when the username or email is taken.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	return s.CreateUser(ctx, input, models.RoleUser)
}

func (s *AuthService) CreateUser(ctx context.Context, input RegisterInput, role string) (*models.User, error) {
	input.normalize()
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	exists, err := s.db.UserExists(ctx, input.Username, input.Email)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if exists {
		return nil, db.ErrDuplicateKey
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: passwordHash,
		Role:         role,
	}
	if err := s.db.CreateUser(ctx, user); err != nil {
		if errors.Is(err, db.ErrDuplicateKey) {
			return nil, db.ErrDuplicateKey
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info().Uint("user_id", user.ID).Str("role", role).Msg("user registered")
	return user, nil
}

func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !security.ComparePasswords(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (s *AuthService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.db.GetAllUsers(ctx)
}

func (s *AuthService) CountUsers(ctx context.Context) (int64, error) {
	return s.db.CountUsers(ctx)
}

type roleInput struct {
	Role string `validate:"oneof=user admin"`
}

func (s *AuthService) SetRole(ctx context.Context, email, role string) error {
	if err := validateStruct(roleInput{Role: role}); err != nil {
		return err
	}
	return s.db.UpdateUserRole(ctx, strings.ToLower(strings.TrimSpace(email)), role)
}
