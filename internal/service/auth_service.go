package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/abszero/smartledger/internal/auth"
	"github.com/abszero/smartledger/internal/models"
	"github.com/abszero/smartledger/internal/storage"
)

// AuthService handles registration, login, and profile lookup.
type AuthService struct {
	store         storage.Store
	authenticator auth.Authenticator
	jwt           *auth.JWTManager
	logger        *slog.Logger
}

// NewAuthService creates an AuthService.
func NewAuthService(store storage.Store, authenticator auth.Authenticator, jwt *auth.JWTManager, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:         store,
		authenticator: authenticator,
		jwt:           jwt,
		logger:        logger,
	}
}

// Register creates a new account and returns the person with a session token.
func (s *AuthService) Register(ctx context.Context, email, firstName, lastName, password string) (*models.Person, string, error) {
	if email == "" {
		return nil, "", fmt.Errorf("email is required: %w", models.ErrValidation)
	}

	person, err := s.authenticator.Register(ctx, email, firstName, lastName, password)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) || errors.Is(err, auth.ErrEmailExists) {
			return nil, "", fmt.Errorf("%v: %w", err, models.ErrValidation)
		}
		return nil, "", err
	}

	token, err := s.jwt.Generate(person)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	s.logger.Info("person registered", "sub", person.Sub)
	return person, token, nil
}

// Login verifies credentials and returns the person with a session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.Person, string, error) {
	person, err := s.authenticator.Authenticate(ctx, email, password)
	if err != nil {
		return nil, "", fmt.Errorf("%v: %w", err, models.ErrUnauthorized)
	}

	token, err := s.jwt.Generate(person)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	s.logger.Info("person logged in", "sub", person.Sub)
	return person, token, nil
}

// Profile returns the person for the given sub.
func (s *AuthService) Profile(ctx context.Context, sub string) (*models.Person, error) {
	person, err := s.store.GetPerson(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("failed to load person: %w", err)
	}
	return person, nil
}
