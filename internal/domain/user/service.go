package user

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vendo-app/vendo-api/internal/types"
)

// Service wraps the user directory. It also serves the subscription
// lifecycle's role projection.
type Service struct {
	logger *slog.Logger
	repo   Repository
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		logger: logger,
		repo:   repo,
	}
}

func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "GetProfile", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Profile lookup failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "Profile fetched")
	return user, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, params types.UpdateUserParams) error {
	ctx, span := otel.Tracer("UserService").Start(ctx, "UpdateProfile", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	if err := s.repo.UpdateProfile(ctx, userID, params); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Profile update failed")
		return err
	}

	span.SetStatus(codes.Ok, "Profile updated")
	return nil
}

// UpdateRole applies the subscription lifecycle's role projection.
func (s *Service) UpdateRole(ctx context.Context, userID uuid.UUID, role types.UserRole) error {
	ctx, span := otel.Tracer("UserService").Start(ctx, "UpdateRole", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("user.role", string(role)),
	))
	defer span.End()

	if err := s.repo.UpdateRole(ctx, userID, role); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Role update failed")
		return err
	}

	span.SetStatus(codes.Ok, "Role updated")
	return nil
}

func (s *Service) ChangePassword(ctx context.Context, email, oldPassword, newPassword string) error {
	ctx, span := otel.Tracer("UserService").Start(ctx, "ChangePassword")
	defer span.End()

	if err := s.repo.ChangePassword(ctx, email, oldPassword, newPassword); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Password change failed")
		return err
	}

	span.SetStatus(codes.Ok, "Password changed")
	return nil
}

func (s *Service) Deactivate(ctx context.Context, userID uuid.UUID) error {
	ctx, span := otel.Tracer("UserService").Start(ctx, "Deactivate", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	if err := s.repo.Deactivate(ctx, userID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Deactivation failed")
		return err
	}

	s.logger.InfoContext(ctx, "User account deactivated", slog.String("userID", userID.String()))
	span.SetStatus(codes.Ok, "User deactivated")
	return nil
}
