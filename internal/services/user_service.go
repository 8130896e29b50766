package services

import (
	"context"
	"errors"
	"strings"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// UserService handles registration and login, issuing JWTs on success.
type UserService struct {
	repo   *storage.Repository
	tokens *auth.TokenIssuer
	logger *log.Logger
}

func NewUserService(repo *storage.Repository, tokens *auth.TokenIssuer, logger *log.Logger) *UserService {
	return &UserService{
		repo:   repo,
		tokens: tokens,
		logger: logger.WithComponent(log.ComponentAuth),
	}
}

func (s *UserService) Register(ctx context.Context, name, email, password string) (core.User, string, error) {
	if err := core.ValidateName(name); err != nil {
		return core.User{}, "", err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if err := core.ValidateEmail(email); err != nil {
		return core.User{}, "", err
	}
	if len(password) < 8 {
		return core.User{}, "", ErrWeakPassword
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return core.User{}, "", err
	}

	user, err := s.repo.Queries().CreateUser(ctx, storage.CreateUserParams{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		return core.User{}, "", err
	}

	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return core.User{}, "", err
	}

	s.logger.InfoContext(ctx, "user registered", log.FieldUserID, user.ID)
	return user, token, nil
}

func (s *UserService) Login(ctx context.Context, email, password string) (core.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repo.Queries().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return core.User{}, "", auth.ErrInvalidCredentials
		}
		return core.User{}, "", err
	}
	if !user.IsActive {
		return core.User{}, "", auth.ErrInvalidCredentials
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return core.User{}, "", err
	}

	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return core.User{}, "", err
	}

	s.logger.InfoContext(ctx, "user logged in", log.FieldUserID, user.ID)
	return user, token, nil
}

// GetUser returns the user's own profile.
func (s *UserService) GetUser(ctx context.Context, id int64) (core.User, error) {
	return s.repo.Queries().GetUser(ctx, id)
}
