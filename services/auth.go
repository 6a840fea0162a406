package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/CUknot/chatflow_backend/database"
	"github.com/CUknot/chatflow_backend/models"
	"github.com/CUknot/chatflow_backend/utils"
)

const minPasswordLength = 6

// AuthService registers users, checks credentials and resolves bearer tokens.
type AuthService struct {
	users  UserStore
	tokens *utils.TokenManager
	log    *slog.Logger
}

func NewAuthService(users UserStore, tokens *utils.TokenManager, log *slog.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, log: log}
}

func (s *AuthService) Register(ctx context.Context, username, email, password string) (*models.User, string, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" {
		return nil, "", validationf("username is required")
	}
	if err := utils.Validator().Var(email, "required,email"); err != nil {
		return nil, "", validationf("invalid email address")
	}
	if len(password) < minPasswordLength {
		return nil, "", validationf("password must be at least %d characters", minPasswordLength)
	}

	user := &models.User{Username: username, Email: email}
	if err := user.SetPassword(password); err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, "", fmt.Errorf("username or email %w", ErrAlreadyExists)
		}
		return nil, "", fromStore(err, "user")
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Username)
	if err != nil {
		return nil, "", err
	}
	s.log.Info("User registered", "user_id", user.ID)
	return user, token, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.users.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, "", fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
		}
		return nil, "", fromStore(err, "user")
	}
	if err := user.ValidatePassword(password); err != nil {
		return nil, "", fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Username)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Authenticate resolves a bearer token to the identity of a user that still exists.
func (s *AuthService) Authenticate(ctx context.Context, token string) (Identity, error) {
	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	user, err := s.users.FindUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return Identity{}, fmt.Errorf("%w: user no longer exists", ErrUnauthorized)
		}
		return Identity{}, fromStore(err, "user")
	}
	return Identity{UserID: user.ID, Username: user.Username}, nil
}
