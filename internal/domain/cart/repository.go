package cart

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/vendo-app/vendo-api/internal/types"
)

var _ Repository = (*RepositoryImpl)(nil)

// Repository is the persistence contract for carts.
type Repository interface {
	// GetOrCreate returns the user's cart with its items, creating an empty
	// cart on first use.
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*types.Cart, error)

	// UpsertItem adds quantity to an existing line or inserts a new one at
	// the given unit price.
	UpsertItem(ctx context.Context, cartID, productID int64, quantity int, unitPrice decimal.Decimal) error

	// SetItemQuantity overwrites a line's quantity. types.ErrNotFound when
	// the line doesn't exist.
	SetItemQuantity(ctx context.Context, cartID, productID int64, quantity int) error

	// RemoveItem deletes a line. types.ErrNotFound when the line doesn't
	// exist.
	RemoveItem(ctx context.Context, cartID, productID int64) error

	// Clear deletes every line.
	Clear(ctx context.Context, cartID int64) error
}

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewRepositoryImpl(pgpool *pgxpool.Pool, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *RepositoryImpl) GetOrCreate(ctx context.Context, userID uuid.UUID) (*types.Cart, error) {
	ctx, span := otel.Tracer("CartRepo").Start(ctx, "GetOrCreate", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "carts"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	var cart types.Cart
	err := r.pgpool.QueryRow(ctx, `
        INSERT INTO carts (user_id)
        VALUES ($1)
        ON CONFLICT (user_id) DO UPDATE SET updated_at = Now()
        RETURNING id, uuid, user_id, created_at, updated_at`, userID).
		Scan(&cart.ID, &cart.UUID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB upsert failed")
		return nil, fmt.Errorf("database error fetching cart: %w", err)
	}

	rows, err := r.pgpool.Query(ctx, `
        SELECT ci.id, ci.uuid, ci.product_id, ci.quantity, ci.unit_price,
               ci.quantity * ci.unit_price,
               ci.added_at, ci.updated_at,
               p.id, p.uuid, p.seller_id, p.name, p.description, p.price, p.stock_quantity,
               p.category, p.images, p.status, p.views_count, p.created_at, p.updated_at
        FROM cart_items ci
        JOIN products p ON ci.product_id = p.id
        WHERE ci.cart_id = $1
        ORDER BY ci.added_at ASC`, cart.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item types.CartItem
		var product types.Product
		err := rows.Scan(
			&item.ID, &item.UUID, &item.ProductID, &item.Quantity, &item.UnitPrice,
			&item.TotalPrice, &item.AddedAt, &item.UpdatedAt,
			&product.ID, &product.UUID, &product.SellerID, &product.Name, &product.Description,
			&product.Price, &product.StockQuantity, &product.Category, &product.Images,
			&product.Status, &product.ViewsCount, &product.CreatedAt, &product.UpdatedAt,
		)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning cart item: %w", err)
		}
		item.Product = &product
		cart.Items = append(cart.Items, &item)
	}
	if err = rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error reading cart items: %w", err)
	}

	span.SetAttributes(attribute.Int("cart.item_count", len(cart.Items)))
	span.SetStatus(codes.Ok, "Cart fetched")
	return &cart, nil
}

func (r *RepositoryImpl) UpsertItem(ctx context.Context, cartID, productID int64, quantity int, unitPrice decimal.Decimal) error {
	ctx, span := otel.Tracer("CartRepo").Start(ctx, "UpsertItem", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "cart_items"),
		attribute.Int64("db.cart.id", cartID),
		attribute.Int64("db.product.id", productID),
	))
	defer span.End()

	_, err := r.pgpool.Exec(ctx, `
        INSERT INTO cart_items (cart_id, product_id, quantity, unit_price)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (cart_id, product_id)
        DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = Now()`,
		cartID, productID, quantity, unitPrice)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB upsert failed")
		return fmt.Errorf("database error adding cart item: %w", err)
	}

	span.SetStatus(codes.Ok, "Item upserted")
	return nil
}

func (r *RepositoryImpl) SetItemQuantity(ctx context.Context, cartID, productID int64, quantity int) error {
	ctx, span := otel.Tracer("CartRepo").Start(ctx, "SetItemQuantity", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "cart_items"),
		attribute.Int64("db.cart.id", cartID),
		attribute.Int64("db.product.id", productID),
		attribute.Int("cart.quantity", quantity),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx, `
        UPDATE cart_items
        SET quantity = $1, updated_at = Now()
        WHERE cart_id = $2 AND product_id = $3`, quantity, cartID, productID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return fmt.Errorf("database error updating cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Item not found")
		return fmt.Errorf("cart item for product %d: %w", productID, types.ErrNotFound)
	}

	span.SetStatus(codes.Ok, "Quantity set")
	return nil
}

func (r *RepositoryImpl) RemoveItem(ctx context.Context, cartID, productID int64) error {
	ctx, span := otel.Tracer("CartRepo").Start(ctx, "RemoveItem", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "cart_items"),
		attribute.Int64("db.cart.id", cartID),
		attribute.Int64("db.product.id", productID),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx,
		`DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`, cartID, productID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB DELETE failed")
		return fmt.Errorf("database error removing cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Item not found")
		return fmt.Errorf("cart item for product %d: %w", productID, types.ErrNotFound)
	}

	span.SetStatus(codes.Ok, "Item removed")
	return nil
}

func (r *RepositoryImpl) Clear(ctx context.Context, cartID int64) error {
	ctx, span := otel.Tracer("CartRepo").Start(ctx, "Clear", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "cart_items"),
		attribute.Int64("db.cart.id", cartID),
	))
	defer span.End()

	_, err := r.pgpool.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB DELETE failed")
		return fmt.Errorf("database error clearing cart: %w", err)
	}

	span.SetStatus(codes.Ok, "Cart cleared")
	return nil
}
