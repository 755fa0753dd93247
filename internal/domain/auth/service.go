package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/crypto/bcrypt"

	"github.com/vendo-app/vendo-api/internal/types"
)

// UserStore is the slice of the user domain the auth flow needs.
type UserStore interface {
	Create(ctx context.Context, data types.CreateUserData) (*types.User, error)
	GetByEmail(ctx context.Context, email string) (*types.User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (*types.User, error)
}

// Service handles registration and login.
type Service struct {
	logger *slog.Logger
	users  UserStore
	tokens *TokenManager
}

func NewService(users UserStore, tokens *TokenManager, logger *slog.Logger) *Service {
	return &Service{
		logger: logger,
		users:  users,
		tokens: tokens,
	}
}

// AuthResponse returns the signed token alongside the account it represents.
type AuthResponse struct {
	Token string      `json:"token"`
	User  *types.User `json:"user"`
}

// Register creates an account with the Cliente role and signs it in.
func (s *Service) Register(ctx context.Context, data types.CreateUserData) (*AuthResponse, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Register")
	defer span.End()

	l := s.logger.With(slog.String("method", "Register"))

	if err := validateRegistration(data); err != nil {
		span.SetStatus(codes.Error, "Validation failed")
		return nil, err
	}

	user, err := s.users.Create(ctx, data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Account creation failed")
		return nil, err
	}

	token, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Token generation failed")
		return nil, err
	}

	l.InfoContext(ctx, "User registered", slog.String("userID", user.ID.String()))
	span.SetStatus(codes.Ok, "User registered")
	return &AuthResponse{Token: token, User: user}, nil
}

func validateRegistration(data types.CreateUserData) error {
	if strings.TrimSpace(data.Name) == "" {
		return fmt.Errorf("name is required: %w", types.ErrBadRequest)
	}
	if !strings.Contains(data.Email, "@") {
		return fmt.Errorf("a valid email is required: %w", types.ErrBadRequest)
	}
	if len(data.Password) < 8 {
		return fmt.Errorf("password must be at least 8 characters: %w", types.ErrBadRequest)
	}
	return nil
}

// Login verifies credentials and issues a token. Bad email and bad password
// report the same error.
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Login")
	defer span.End()

	l := s.logger.With(slog.String("method", "Login"))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		l.InfoContext(ctx, "Login attempt for unknown email")
		span.SetStatus(codes.Error, "Unknown email")
		return nil, fmt.Errorf("invalid credentials: %w", types.ErrUnauthenticated)
	}
	if !user.IsActive {
		span.SetStatus(codes.Error, "Account disabled")
		return nil, fmt.Errorf("account is disabled: %w", types.ErrForbidden)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		l.InfoContext(ctx, "Login attempt with wrong password", slog.String("userID", user.ID.String()))
		span.SetStatus(codes.Error, "Wrong password")
		return nil, fmt.Errorf("invalid credentials: %w", types.ErrUnauthenticated)
	}

	token, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Token generation failed")
		return nil, err
	}

	l.InfoContext(ctx, "User logged in", slog.String("userID", user.ID.String()))
	span.SetStatus(codes.Ok, "Logged in")
	return &AuthResponse{Token: token, User: user}, nil
}
