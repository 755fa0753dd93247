package subscription

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
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/vendo-app/vendo-api/internal/types"
)

// PGXPool is the subset of pgxpool.Pool the repository needs. pgxmock
// satisfies it in tests.
type PGXPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var _ Repository = (*RepositoryImpl)(nil)

// Repository is the persistence contract for plans and subscriptions.
type Repository interface {
	// Plans
	ListActivePlans(ctx context.Context) ([]*types.SubscriptionPlan, error)
	GetPlanByUUID(ctx context.Context, planUUID uuid.UUID) (*types.SubscriptionPlan, error)
	GetPlanByID(ctx context.Context, id int64) (*types.SubscriptionPlan, error)
	CreatePlan(ctx context.Context, data types.CreatePlanData) (*types.SubscriptionPlan, error)
	UpdatePlan(ctx context.Context, planUUID uuid.UUID, data types.UpdatePlanData) (*types.SubscriptionPlan, error)
	DeactivatePlan(ctx context.Context, planUUID uuid.UUID) error

	// Subscriptions
	FindActiveByUserID(ctx context.Context, userID uuid.UUID) (*types.Subscription, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*types.Subscription, error)
	FindByUUID(ctx context.Context, subUUID uuid.UUID) (*types.Subscription, error)
	HasActive(ctx context.Context, userID uuid.UUID) (bool, error)
	ExpireLapsed(ctx context.Context, userID uuid.UUID) (int64, error)
	Create(ctx context.Context, data types.CreateSubscriptionData) (*types.Subscription, error)
	Update(ctx context.Context, subUUID uuid.UUID, data types.UpdateSubscriptionData) (*types.Subscription, error)
	RecordCancellation(ctx context.Context, subUUID uuid.UUID, reason string) error
	GetWithPlan(ctx context.Context, subUUID uuid.UUID) (*types.SubscriptionWithPlan, error)
	FindExpired(ctx context.Context) ([]*types.Subscription, error)
	FindExpiringSoon(ctx context.Context, days int) ([]*types.Subscription, error)
	Stats(ctx context.Context) (*types.SubscriptionStats, error)
}

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool PGXPool
}

func NewRepositoryImpl(pgpool PGXPool, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pgpool,
	}
}

const planColumns = `id, uuid, name, description, price, duration_days, max_products,
       max_images_per_product, features, is_active, created_at, updated_at`

const subscriptionColumns = `id, uuid, user_id, subscription_plan_id, status, started_at, expires_at,
       payment_method, payment_reference, payment_amount, auto_renew,
       cancelled_at, cancellation_reason, created_at, updated_at`

func scanPlan(row pgx.Row) (*types.SubscriptionPlan, error) {
	var p types.SubscriptionPlan
	err := row.Scan(
		&p.ID, &p.UUID, &p.Name, &p.Description, &p.Price, &p.DurationDays,
		&p.MaxProducts, &p.MaxImagesPerProduct, &p.Features, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanSubscription(row pgx.Row) (*types.Subscription, error) {
	var s types.Subscription
	err := row.Scan(
		&s.ID, &s.UUID, &s.UserID, &s.PlanID, &s.Status, &s.StartedAt, &s.ExpiresAt,
		&s.PaymentMethod, &s.PaymentReference, &s.PaymentAmount, &s.AutoRenew,
		&s.CancelledAt, &s.CancellationReason, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListActivePlans returns active plans ascending by price.
func (r *RepositoryImpl) ListActivePlans(ctx context.Context) ([]*types.SubscriptionPlan, error) {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "ListActivePlans", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "subscription_plans"),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "ListActivePlans"))
	l.DebugContext(ctx, "Fetching active subscription plans")

	query := `
        SELECT ` + planColumns + `
        FROM subscription_plans
        WHERE is_active = TRUE
        ORDER BY price ASC`

	rows, err := r.pgpool.Query(ctx, query)
	if err != nil {
		l.ErrorContext(ctx, "Failed to query subscription plans", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching subscription plans: %w", err)
	}
	defer rows.Close()

	var plans []*types.SubscriptionPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning subscription plan: %w", err)
		}
		plans = append(plans, p)
	}
	if err = rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error reading subscription plans: %w", err)
	}

	l.DebugContext(ctx, "Fetched subscription plans", slog.Int("count", len(plans)))
	span.SetStatus(codes.Ok, "Plans fetched")
	return plans, nil
}

func (r *RepositoryImpl) GetPlanByUUID(ctx context.Context, planUUID uuid.UUID) (*types.SubscriptionPlan, error) {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "GetPlanByUUID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "subscription_plans"),
		attribute.String("db.plan.uuid", planUUID.String()),
	))
	defer span.End()

	query := `SELECT ` + planColumns + ` FROM subscription_plans WHERE uuid = $1`

	plan, err := scanPlan(r.pgpool.QueryRow(ctx, query, planUUID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Plan not found")
			return nil, fmt.Errorf("subscription plan %s: %w", planUUID, types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching subscription plan: %w", err)
	}

	span.SetStatus(codes.Ok, "Plan fetched")
	return plan, nil
}

func (r *RepositoryImpl) GetPlanByID(ctx context.Context, id int64) (*types.SubscriptionPlan, error) {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "GetPlanByID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "subscription_plans"),
		attribute.Int64("db.plan.id", id),
	))
	defer span.End()

	query := `SELECT ` + planColumns + ` FROM subscription_plans WHERE id = $1`

	plan, err := scanPlan(r.pgpool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Plan not found")
			return nil, fmt.Errorf("subscription plan %d: %w", id, types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching subscription plan: %w", err)
	}

	span.SetStatus(codes.Ok, "Plan fetched")
	return plan, nil
}

// CreatePlan inserts a new plan. Administrative operation.
func (r *RepositoryImpl) CreatePlan(ctx context.Context, data types.CreatePlanData) (*types.SubscriptionPlan, error) {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "CreatePlan", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "subscription_plans"),
		attribute.String("plan.name", data.Name),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "CreatePlan"), slog.String("name", data.Name))

	if data.Name == "" {
		span.SetStatus(codes.Error, "Plan name cannot be empty")
		return nil, fmt.Errorf("plan name cannot be empty: %w", types.ErrBadRequest)
	}

	query := `
        INSERT INTO subscription_plans (name, description, price, duration_days, max_products,
                                        max_images_per_product, features, is_active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, Now(), Now())
        RETURNING ` + planColumns

	plan, err := scanPlan(r.pgpool.QueryRow(ctx, query,
		data.Name, data.Description, data.Price, data.DurationDays,
		data.MaxProducts, data.MaxImagesPerProduct, data.Features, data.IsActive,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			l.WarnContext(ctx, "Duplicate plan name", slog.Any("error", err))
			span.SetStatus(codes.Error, "Duplicate plan name")
			return nil, fmt.Errorf("plan with name '%s' already exists: %w", data.Name, types.ErrConflict)
		}
		l.ErrorContext(ctx, "Failed to insert plan", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return nil, fmt.Errorf("database error creating plan: %w", err)
	}

	l.InfoContext(ctx, "Subscription plan created", slog.String("planUUID", plan.UUID.String()))
	span.SetStatus(codes.Ok, "Plan created")
	return plan, nil
}

// UpdatePlan applies a partial update; only supplied fields change.
func (r *RepositoryImpl) UpdatePlan(ctx context.Context, planUUID uuid.UUID, data types.UpdatePlanData) (*types.SubscriptionPlan, error) {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "UpdatePlan", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "subscription_plans"),
		attribute.String("db.plan.uuid", planUUID.String()),
	))
	defer span.End()

	builder := squirrel.Update("subscription_plans").
		PlaceholderFormat(squirrel.Dollar).
		Where(squirrel.Eq{"uuid": planUUID})

	touched := false
	if data.Name != nil {
		builder = builder.Set("name", *data.Name)
		touched = true
	}
	if data.Description != nil {
		builder = builder.Set("description", data.Description)
		touched = true
	}
	if data.Price != nil {
		builder = builder.Set("price", *data.Price)
		touched = true
	}
	if data.DurationDays != nil {
		builder = builder.Set("duration_days", *data.DurationDays)
		touched = true
	}
	if data.MaxProducts != nil {
		builder = builder.Set("max_products", *data.MaxProducts)
		touched = true
	}
	if data.MaxImagesPerProduct != nil {
		builder = builder.Set("max_images_per_product", *data.MaxImagesPerProduct)
		touched = true
	}
	if data.Features != nil {
		builder = builder.Set("features", *data.Features)
		touched = true
	}
	if data.IsActive != nil {
		builder = builder.Set("is_active", *data.IsActive)
		touched = true
	}

	if !touched {
		return nil, fmt.Errorf("no fields provided for plan update: %w", types.ErrBadRequest)
	}

	builder = builder.Set("updated_at", time.Now()).Suffix("RETURNING " + planColumns)

	query, args, err := builder.ToSql()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to build plan update query: %w", err)
	}

	plan, err := scanPlan(r.pgpool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Plan not found")
			return nil, fmt.Errorf("subscription plan %s: %w", planUUID, types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return nil, fmt.Errorf("database error updating plan: %w", err)
	}

	span.SetStatus(codes.Ok, "Plan updated")
	return plan, nil
}

// DeactivatePlan soft-disables a plan. Plans are never deleted.
func (r *RepositoryImpl) DeactivatePlan(ctx context.Context, planUUID uuid.UUID) error {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "DeactivatePlan", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "subscription_plans"),
		attribute.String("db.plan.uuid", planUUID.String()),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx,
		`UPDATE subscription_plans SET is_active = FALSE, updated_at = Now() WHERE uuid = $1`, planUUID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return fmt.Errorf("database error deactivating plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Plan not found")
		return fmt.Errorf("subscription plan %s: %w", planUUID, types.ErrNotFound)
	}

	span.SetStatus(codes.Ok, "Plan deactivated")
	return nil
}

// FindActiveByUserID returns the user's current active, unexpired
// subscription. types.ErrNotFound when there is none.
func (r *RepositoryImpl) FindActiveByUserID(ctx context.Context, userID uuid.UUID) (*types.Subscription, error) {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "FindActiveByUserID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "user_subscriptions"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	query := `
        SELECT ` + subscriptionColumns + `
        FROM user_subscriptions
        WHERE user_id = $1 AND status = 'active' AND expires_at > Now()
        ORDER BY created_at DESC
        LIMIT 1`

	sub, err := scanSubscription(r.pgpool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "No active subscription")
			return nil, fmt.Errorf("active subscription for user %s: %w", userID, types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching active subscription: %w", err)
	}

	span.SetStatus(codes.Ok, "Active subscription fetched")
	return sub, nil
}

// ListByUserID returns the user's full subscription history, newest first.
func (r *RepositoryImpl) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*types.Subscription, error) {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "ListByUserID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "user_subscriptions"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	query := `
        SELECT ` + subscriptionColumns + `
        FROM user_subscriptions
        WHERE user_id = $1
        ORDER BY created_at DESC`

	rows, err := r.pgpool.Query(ctx, query, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching subscription history: %w", err)
	}
	defer rows.Close()

	var subs []*types.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning subscription: %w", err)
		}
		subs = append(subs, s)
	}
	if err = rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error reading subscriptions: %w", err)
	}

	span.SetStatus(codes.Ok, "History fetched")
	return subs, nil
}

func (r *RepositoryImpl) FindByUUID(ctx context.Context, subUUID uuid.UUID) (*types.Subscription, error) {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "FindByUUID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "user_subscriptions"),
		attribute.String("db.subscription.uuid", subUUID.String()),
	))
	defer span.End()

	query := `SELECT ` + subscriptionColumns + ` FROM user_subscriptions WHERE uuid = $1`

	sub, err := scanSubscription(r.pgpool.QueryRow(ctx, query, subUUID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Subscription not found")
			return nil, fmt.Errorf("subscription %s: %w", subUUID, types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching subscription: %w", err)
	}

	span.SetStatus(codes.Ok, "Subscription fetched")
	return sub, nil
}

func (r *RepositoryImpl) HasActive(ctx context.Context, userID uuid.UUID) (bool, error) {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "HasActive", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "user_subscriptions"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	var count int
	err := r.pgpool.QueryRow(ctx, `
        SELECT COUNT(*)
        FROM user_subscriptions
        WHERE user_id = $1 AND status = 'active' AND expires_at > Now()`, userID).Scan(&count)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return false, fmt.Errorf("database error checking active subscription: %w", err)
	}

	span.SetAttributes(attribute.Bool("subscription.has_active", count > 0))
	span.SetStatus(codes.Ok, "Checked")
	return count > 0, nil
}

// ExpireLapsed marks the user's active-but-lapsed rows as expired. The
// one-active-row index only looks at status, so a lapsed row the sweep has
// not reached yet would otherwise block a new activation.
func (r *RepositoryImpl) ExpireLapsed(ctx context.Context, userID uuid.UUID) (int64, error) {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "ExpireLapsed", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "user_subscriptions"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx, `
        UPDATE user_subscriptions
        SET status = 'expired', updated_at = Now()
        WHERE user_id = $1 AND status = 'active' AND expires_at <= Now()`, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB update failed")
		return 0, fmt.Errorf("database error expiring lapsed subscriptions: %w", err)
	}

	span.SetAttributes(attribute.Int64("subscription.expired_count", tag.RowsAffected()))
	span.SetStatus(codes.Ok, "Lapsed rows expired")
	return tag.RowsAffected(), nil
}

// Create inserts a subscription in status pending. Activation happens through
// Update once payment is accepted.
func (r *RepositoryImpl) Create(ctx context.Context, data types.CreateSubscriptionData) (*types.Subscription, error) {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "Create", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "user_subscriptions"),
		attribute.String("db.user.id", data.UserID.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "Create"), slog.String("userID", data.UserID.String()))
	l.DebugContext(ctx, "Inserting pending subscription")

	query := `
        INSERT INTO user_subscriptions (user_id, subscription_plan_id, status,
                                        payment_method, payment_reference, payment_amount, auto_renew)
        VALUES ($1, $2, 'pending', $3, $4, $5, $6)
        RETURNING ` + subscriptionColumns

	sub, err := scanSubscription(r.pgpool.QueryRow(ctx, query,
		data.UserID, data.PlanID, data.PaymentMethod, data.PaymentReference,
		data.PaymentAmount, data.AutoRenew,
	))
	if err != nil {
		l.ErrorContext(ctx, "Failed to insert subscription", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return nil, fmt.Errorf("database error creating subscription: %w", err)
	}

	l.InfoContext(ctx, "Subscription created", slog.String("subscriptionUUID", sub.UUID.String()))
	span.SetAttributes(attribute.String("db.subscription.uuid", sub.UUID.String()))
	span.SetStatus(codes.Ok, "Subscription created")
	return sub, nil
}

// Update applies a partial update and always bumps updated_at. Transitioning
// to active also stamps started_at. A unique-violation on the one-active-row
// index surfaces as ErrActiveSubscriptionExists.
func (r *RepositoryImpl) Update(ctx context.Context, subUUID uuid.UUID, data types.UpdateSubscriptionData) (*types.Subscription, error) {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "Update", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "user_subscriptions"),
		attribute.String("db.subscription.uuid", subUUID.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "Update"), slog.String("subscriptionUUID", subUUID.String()))

	builder := squirrel.Update("user_subscriptions").
		PlaceholderFormat(squirrel.Dollar).
		Where(squirrel.Eq{"uuid": subUUID})

	touched := false
	if data.Status != nil {
		builder = builder.Set("status", *data.Status)
		if *data.Status == types.SubscriptionActive && data.StartedAt == nil {
			builder = builder.Set("started_at", time.Now())
		}
		touched = true
		span.SetAttributes(attribute.String("subscription.status", string(*data.Status)))
	}
	if data.StartedAt != nil {
		builder = builder.Set("started_at", *data.StartedAt)
		touched = true
	}
	if data.ExpiresAt != nil {
		builder = builder.Set("expires_at", *data.ExpiresAt)
		touched = true
	}
	if data.AutoRenew != nil {
		builder = builder.Set("auto_renew", *data.AutoRenew)
		touched = true
	}
	if data.CancellationReason != nil {
		builder = builder.Set("cancellation_reason", *data.CancellationReason)
		touched = true
	}

	if !touched {
		l.InfoContext(ctx, "No fields provided to update subscription")
		return nil, fmt.Errorf("no fields provided for subscription update: %w", types.ErrBadRequest)
	}

	builder = builder.Set("updated_at", time.Now()).Suffix("RETURNING " + subscriptionColumns)

	query, args, err := builder.ToSql()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to build subscription update query: %w", err)
	}

	sub, err := scanSubscription(r.pgpool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Subscription not found")
			return nil, fmt.Errorf("subscription %s: %w", subUUID, types.ErrNotFound)
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			l.WarnContext(ctx, "Activation raced with an existing active subscription", slog.Any("error", err))
			span.SetStatus(codes.Error, "Active subscription exists")
			return nil, fmt.Errorf("activation rejected: %w", types.ErrActiveSubscriptionExists)
		}
		l.ErrorContext(ctx, "Failed to update subscription", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return nil, fmt.Errorf("database error updating subscription: %w", err)
	}

	span.SetStatus(codes.Ok, "Subscription updated")
	return sub, nil
}

// RecordCancellation stamps the cancellation metadata without touching status.
func (r *RepositoryImpl) RecordCancellation(ctx context.Context, subUUID uuid.UUID, reason string) error {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "RecordCancellation", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "user_subscriptions"),
		attribute.String("db.subscription.uuid", subUUID.String()),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx, `
        UPDATE user_subscriptions
        SET cancelled_at = Now(), cancellation_reason = $1, updated_at = Now()
        WHERE uuid = $2`, reason, subUUID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return fmt.Errorf("database error recording cancellation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Subscription not found")
		return fmt.Errorf("subscription %s: %w", subUUID, types.ErrNotFound)
	}

	span.SetStatus(codes.Ok, "Cancellation recorded")
	return nil
}

// GetWithPlan joins the subscription with its plan in one round trip.
func (r *RepositoryImpl) GetWithPlan(ctx context.Context, subUUID uuid.UUID) (*types.SubscriptionWithPlan, error) {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "GetWithPlan", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "user_subscriptions, subscription_plans"),
		attribute.String("db.subscription.uuid", subUUID.String()),
	))
	defer span.End()

	query := `
        SELECT us.id, us.uuid, us.user_id, us.subscription_plan_id, us.status, us.started_at, us.expires_at,
               us.payment_method, us.payment_reference, us.payment_amount, us.auto_renew,
               us.cancelled_at, us.cancellation_reason, us.created_at, us.updated_at,
               sp.id, sp.uuid, sp.name, sp.description, sp.price, sp.duration_days, sp.max_products,
               sp.max_images_per_product, sp.features, sp.is_active, sp.created_at, sp.updated_at
        FROM user_subscriptions us
        JOIN subscription_plans sp ON us.subscription_plan_id = sp.id
        WHERE us.uuid = $1`

	var s types.Subscription
	var p types.SubscriptionPlan
	err := r.pgpool.QueryRow(ctx, query, subUUID).Scan(
		&s.ID, &s.UUID, &s.UserID, &s.PlanID, &s.Status, &s.StartedAt, &s.ExpiresAt,
		&s.PaymentMethod, &s.PaymentReference, &s.PaymentAmount, &s.AutoRenew,
		&s.CancelledAt, &s.CancellationReason, &s.CreatedAt, &s.UpdatedAt,
		&p.ID, &p.UUID, &p.Name, &p.Description, &p.Price, &p.DurationDays, &p.MaxProducts,
		&p.MaxImagesPerProduct, &p.Features, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Subscription not found")
			return nil, fmt.Errorf("subscription %s: %w", subUUID, types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching subscription with plan: %w", err)
	}

	span.SetStatus(codes.Ok, "Subscription with plan fetched")
	return &types.SubscriptionWithPlan{Subscription: &s, Plan: &p}, nil
}

// FindExpired lists active subscriptions whose expiry has passed, for the
// sweep.
func (r *RepositoryImpl) FindExpired(ctx context.Context) ([]*types.Subscription, error) {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "FindExpired", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "user_subscriptions"),
	))
	defer span.End()

	query := `
        SELECT ` + subscriptionColumns + `
        FROM user_subscriptions
        WHERE status = 'active' AND expires_at <= Now()`

	rows, err := r.pgpool.Query(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching expired subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*types.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning expired subscription: %w", err)
		}
		subs = append(subs, s)
	}
	if err = rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error reading expired subscriptions: %w", err)
	}

	span.SetAttributes(attribute.Int("subscription.expired_count", len(subs)))
	span.SetStatus(codes.Ok, "Expired subscriptions fetched")
	return subs, nil
}

// FindExpiringSoon lists active subscriptions expiring within the given days,
// soonest first.
func (r *RepositoryImpl) FindExpiringSoon(ctx context.Context, days int) ([]*types.Subscription, error) {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "FindExpiringSoon", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "user_subscriptions"),
		attribute.Int("subscription.warning_days", days),
	))
	defer span.End()

	query := `
        SELECT ` + subscriptionColumns + `
        FROM user_subscriptions
        WHERE status = 'active'
          AND expires_at > Now()
          AND expires_at <= Now() + make_interval(days => $1)
        ORDER BY expires_at ASC`

	rows, err := r.pgpool.Query(ctx, query, days)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching expiring subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*types.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning expiring subscription: %w", err)
		}
		subs = append(subs, s)
	}
	if err = rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error reading expiring subscriptions: %w", err)
	}

	span.SetStatus(codes.Ok, "Expiring subscriptions fetched")
	return subs, nil
}

// Stats aggregates counts and revenue across all subscriptions.
func (r *RepositoryImpl) Stats(ctx context.Context) (*types.SubscriptionStats, error) {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "Stats", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "user_subscriptions"),
	))
	defer span.End()

	query := `
        SELECT
            COUNT(*),
            COUNT(*) FILTER (WHERE status = 'active' AND expires_at > Now()),
            COUNT(*) FILTER (WHERE status = 'expired' OR (status = 'active' AND expires_at <= Now())),
            COUNT(*) FILTER (WHERE status = 'cancelled'),
            COALESCE(SUM(payment_amount), 0),
            COALESCE(SUM(payment_amount) FILTER (WHERE created_at >= Now() - INTERVAL '30 days'), 0)
        FROM user_subscriptions`

	var stats types.SubscriptionStats
	err := r.pgpool.QueryRow(ctx, query).Scan(
		&stats.TotalSubscriptions, &stats.ActiveSubscriptions,
		&stats.ExpiredSubscriptions, &stats.CancelledSubscriptions,
		&stats.TotalRevenue, &stats.MonthlyRevenue,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching subscription stats: %w", err)
	}

	span.SetStatus(codes.Ok, "Stats fetched")
	return &stats, nil
}
