package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	errs "booklog/internal/errors"
	"booklog/internal/model"
	"booklog/internal/repository"
)

const bcryptCost = 10

// AuthService handles registration and both authentication strategies.
// Expected negative outcomes (unknown email, wrong password, duplicate
// registration) come back as domain errors; anything else is a storage
// failure.
type AuthService interface {
	Register(ctx context.Context, email, password string) (*model.User, error)
	AuthenticateLocal(ctx context.Context, email, password string) (*model.User, error)
	AuthenticateFederated(ctx context.Context, email string) (*model.User, error)
}

type authService struct {
	users repository.UserRepository
}

// NewAuthService creates a new authentication service.
func NewAuthService(users repository.UserRepository) AuthService {
	return &authService{users: users}
}

// Register creates a new user with a hashed password. Uniqueness is
// enforced by the users.email index, so two concurrent registrations
// with the same email produce exactly one row and one ErrEmailTaken.
func (s *authService) Register(ctx context.Context, email, password string) (*model.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: string(hashed),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errs.ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// AuthenticateLocal verifies an email/password pair. Unknown email,
// wrong password and federated-only accounts are indistinguishable to
// the caller.
func (s *authService) AuthenticateLocal(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	// Accounts created through Google sign-in carry the sentinel
	// instead of a bcrypt hash and have no local password at all.
	if user.IsFederated() {
		return nil, errs.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errs.ErrInvalidCredentials
	}
	return user, nil
}

// AuthenticateFederated resolves a provider-asserted email to a
// store-backed user, creating one with the sentinel password on first
// login. Repeated logins return the same row; an existing local
// password is never overwritten.
func (s *authService) AuthenticateFederated(ctx context.Context, email string) (*model.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}

	user = &model.User{
		Email:        email,
		PasswordHash: model.FederatedSentinel,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// lost a race with a concurrent first login for this email
			return s.users.FindByEmail(ctx, email)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}
