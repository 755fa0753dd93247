package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/vendo-app/vendo-api/internal/types"
)

var _ Repository = (*PostgresRepo)(nil)

// Repository defines the contract for user persistence.
type Repository interface {
	// GetByID retrieves a user by their unique ID. Returns types.ErrNotFound
	// if the user doesn't exist.
	GetByID(ctx context.Context, userID uuid.UUID) (*types.User, error)

	// GetByEmail retrieves a user by email, including inactive accounts so
	// login can distinguish bad credentials from a disabled account.
	GetByEmail(ctx context.Context, email string) (*types.User, error)

	// Create inserts a new account with the Cliente role.
	Create(ctx context.Context, data types.CreateUserData) (*types.User, error)

	// UpdateProfile updates mutable profile fields. Pointers mark the fields
	// to change.
	UpdateProfile(ctx context.Context, userID uuid.UUID, params types.UpdateUserParams) error

	// UpdateRole writes the role projection maintained by the subscription
	// lifecycle.
	UpdateRole(ctx context.Context, userID uuid.UUID, role types.UserRole) error

	ChangePassword(ctx context.Context, email, oldPassword, newPassword string) error

	// Deactivate marks a user as inactive (soft delete).
	Deactivate(ctx context.Context, userID uuid.UUID) error
}

type PostgresRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresRepo(pgpool *pgxpool.Pool, logger *slog.Logger) *PostgresRepo {
	return &PostgresRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

const userColumns = `id, name, last_name, email, password_hash, phone, role, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	err := row.Scan(
		&u.ID, &u.Name, &u.LastName, &u.Email, &u.PasswordHash,
		&u.Phone, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PostgresRepo) GetByID(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "GetByID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND is_active = TRUE`

	user, err := scanUser(r.pgpool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "User not found")
			return nil, fmt.Errorf("user %s: %w", userID, types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching user: %w", err)
	}

	span.SetStatus(codes.Ok, "User fetched")
	return user, nil
}

func (r *PostgresRepo) GetByEmail(ctx context.Context, email string) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "GetByEmail", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.pgpool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "User not found")
			return nil, fmt.Errorf("user with email: %w", types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching user by email: %w", err)
	}

	span.SetStatus(codes.Ok, "User fetched")
	return user, nil
}

// Create inserts a new account. The password is hashed here so callers never
// hold a hash.
func (r *PostgresRepo) Create(ctx context.Context, data types.CreateUserData) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "Create", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "Create"))

	hash, err := bcrypt.GenerateFromPassword([]byte(data.Password), bcrypt.DefaultCost)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Password hashing failed")
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	query := `
        INSERT INTO users (name, last_name, email, password_hash, phone, role)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING ` + userColumns

	user, err := scanUser(r.pgpool.QueryRow(ctx, query,
		data.Name, data.LastName, data.Email, string(hash), data.Phone, types.RoleCliente,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			l.WarnContext(ctx, "Duplicate email on registration")
			span.SetStatus(codes.Error, "Email already registered")
			return nil, fmt.Errorf("email already registered: %w", types.ErrConflict)
		}
		l.ErrorContext(ctx, "Failed to insert user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return nil, fmt.Errorf("database error creating user: %w", err)
	}

	l.InfoContext(ctx, "User created", slog.String("userID", user.ID.String()))
	span.SetStatus(codes.Ok, "User created")
	return user, nil
}

func (r *PostgresRepo) UpdateProfile(ctx context.Context, userID uuid.UUID, params types.UpdateUserParams) error {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "UpdateProfile", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "users"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	builder := squirrel.Update("users").
		PlaceholderFormat(squirrel.Dollar).
		Where(squirrel.Eq{"id": userID})

	touched := false
	if params.Name != nil {
		builder = builder.Set("name", *params.Name)
		touched = true
	}
	if params.LastName != nil {
		builder = builder.Set("last_name", *params.LastName)
		touched = true
	}
	if params.Phone != nil {
		builder = builder.Set("phone", params.Phone)
		touched = true
	}
	if !touched {
		return fmt.Errorf("no fields provided for profile update: %w", types.ErrBadRequest)
	}

	builder = builder.Set("updated_at", time.Now())

	query, args, err := builder.ToSql()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to build profile update query: %w", err)
	}

	tag, err := r.pgpool.Exec(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return fmt.Errorf("database error updating profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "User not found")
		return fmt.Errorf("user %s: %w", userID, types.ErrNotFound)
	}

	span.SetStatus(codes.Ok, "Profile updated")
	return nil
}

func (r *PostgresRepo) UpdateRole(ctx context.Context, userID uuid.UUID, role types.UserRole) error {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "UpdateRole", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "users"),
		attribute.String("db.user.id", userID.String()),
		attribute.String("user.role", string(role)),
	))
	defer span.End()

	l := r.logger.With(
		slog.String("method", "UpdateRole"),
		slog.String("userID", userID.String()),
		slog.String("role", string(role)),
	)

	tag, err := r.pgpool.Exec(ctx,
		`UPDATE users SET role = $1, updated_at = Now() WHERE id = $2`, role, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to update role", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return fmt.Errorf("database error updating role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "User not found")
		return fmt.Errorf("user %s: %w", userID, types.ErrNotFound)
	}

	l.InfoContext(ctx, "Role updated")
	span.SetStatus(codes.Ok, "Role updated")
	return nil
}

func (r *PostgresRepo) ChangePassword(ctx context.Context, email, oldPassword, newPassword string) error {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "ChangePassword", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	user, err := r.GetByEmail(ctx, email)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		span.SetStatus(codes.Error, "Old password mismatch")
		return fmt.Errorf("current password is incorrect: %w", types.ErrUnauthenticated)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	_, err = r.pgpool.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = Now() WHERE id = $2`, string(hash), user.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return fmt.Errorf("database error changing password: %w", err)
	}

	span.SetStatus(codes.Ok, "Password changed")
	return nil
}

func (r *PostgresRepo) Deactivate(ctx context.Context, userID uuid.UUID) error {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "Deactivate", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "users"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx,
		`UPDATE users SET is_active = FALSE, updated_at = Now() WHERE id = $1`, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return fmt.Errorf("database error deactivating user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "User not found")
		return fmt.Errorf("user %s: %w", userID, types.ErrNotFound)
	}

	span.SetStatus(codes.Ok, "User deactivated")
	return nil
}
