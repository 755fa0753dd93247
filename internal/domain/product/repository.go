package product

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/vendo-app/vendo-api/internal/types"
)

var _ Repository = (*RepositoryImpl)(nil)

// Repository is the persistence contract for marketplace listings.
type Repository interface {
	Create(ctx context.Context, data types.CreateProductData) (*types.Product, error)
	GetByUUID(ctx context.Context, productUUID uuid.UUID) (*types.Product, error)
	GetByID(ctx context.Context, id int64) (*types.Product, error)
	ListActive(ctx context.Context, category string, limit, offset int) ([]*types.Product, error)
	Search(ctx context.Context, query, category string, limit, offset int) ([]*types.Product, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]*types.Product, error)
	CountBySeller(ctx context.Context, sellerID uuid.UUID) (int, error)
	Update(ctx context.Context, productUUID uuid.UUID, params types.UpdateProductParams) (*types.Product, error)
	Delete(ctx context.Context, productUUID uuid.UUID) error
	IncrementViews(ctx context.Context, productUUID uuid.UUID) error
	AdjustStock(ctx context.Context, productID int64, delta int) error
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

const productColumns = `id, uuid, seller_id, name, description, price, stock_quantity,
       category, images, status, views_count, created_at, updated_at`

func scanProduct(row pgx.Row) (*types.Product, error) {
	var p types.Product
	err := row.Scan(
		&p.ID, &p.UUID, &p.SellerID, &p.Name, &p.Description, &p.Price, &p.StockQuantity,
		&p.Category, &p.Images, &p.Status, &p.ViewsCount, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *RepositoryImpl) Create(ctx context.Context, data types.CreateProductData) (*types.Product, error) {
	ctx, span := otel.Tracer("ProductRepo").Start(ctx, "Create", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "products"),
		attribute.String("db.seller.id", data.SellerID.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "Create"), slog.String("sellerID", data.SellerID.String()))

	query := `
        INSERT INTO products (seller_id, name, description, price, stock_quantity, category, images, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, 'active')
        RETURNING ` + productColumns

	product, err := scanProduct(r.pgpool.QueryRow(ctx, query,
		data.SellerID, data.Name, data.Description, data.Price,
		data.StockQuantity, data.Category, data.Images,
	))
	if err != nil {
		l.ErrorContext(ctx, "Failed to insert product", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return nil, fmt.Errorf("database error creating product: %w", err)
	}

	l.InfoContext(ctx, "Product created", slog.String("productUUID", product.UUID.String()))
	span.SetStatus(codes.Ok, "Product created")
	return product, nil
}

func (r *RepositoryImpl) GetByUUID(ctx context.Context, productUUID uuid.UUID) (*types.Product, error) {
	ctx, span := otel.Tracer("ProductRepo").Start(ctx, "GetByUUID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "products"),
		attribute.String("db.product.uuid", productUUID.String()),
	))
	defer span.End()

	query := `SELECT ` + productColumns + ` FROM products WHERE uuid = $1`

	product, err := scanProduct(r.pgpool.QueryRow(ctx, query, productUUID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Product not found")
			return nil, fmt.Errorf("product %s: %w", productUUID, types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching product: %w", err)
	}

	span.SetStatus(codes.Ok, "Product fetched")
	return product, nil
}

func (r *RepositoryImpl) GetByID(ctx context.Context, id int64) (*types.Product, error) {
	ctx, span := otel.Tracer("ProductRepo").Start(ctx, "GetByID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "products"),
		attribute.Int64("db.product.id", id),
	))
	defer span.End()

	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(r.pgpool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Product not found")
			return nil, fmt.Errorf("product %d: %w", id, types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching product: %w", err)
	}

	span.SetStatus(codes.Ok, "Product fetched")
	return product, nil
}

// ListActive returns the storefront listing, optionally filtered by category.
func (r *RepositoryImpl) ListActive(ctx context.Context, category string, limit, offset int) ([]*types.Product, error) {
	ctx, span := otel.Tracer("ProductRepo").Start(ctx, "ListActive", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "products"),
	))
	defer span.End()

	if limit <= 0 || limit > 100 {
		limit = 20
	}

	builder := squirrel.Select(productColumns).
		From("products").
		PlaceholderFormat(squirrel.Dollar).
		Where(squirrel.Eq{"status": types.ProductActive}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))
	if category != "" {
		builder = builder.Where(squirrel.Eq{"category": category})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to build product listing query: %w", err)
	}

	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error listing products: %w", err)
	}
	defer rows.Close()

	var products []*types.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning product: %w", err)
		}
		products = append(products, p)
	}
	if err = rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error reading products: %w", err)
	}

	span.SetStatus(codes.Ok, "Products listed")
	return products, nil
}

// Search matches active products whose name or description contains the query,
// case-insensitively, with the same category filter and paging as ListActive.
func (r *RepositoryImpl) Search(ctx context.Context, search, category string, limit, offset int) ([]*types.Product, error) {
	ctx, span := otel.Tracer("ProductRepo").Start(ctx, "Search", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "products"),
		attribute.String("product.search", search),
	))
	defer span.End()

	if limit <= 0 || limit > 100 {
		limit = 20
	}

	pattern := "%" + search + "%"
	builder := squirrel.Select(productColumns).
		From("products").
		PlaceholderFormat(squirrel.Dollar).
		Where(squirrel.Eq{"status": types.ProductActive}).
		Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"description": pattern},
		}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))
	if category != "" {
		builder = builder.Where(squirrel.Eq{"category": category})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to build product search query: %w", err)
	}

	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error searching products: %w", err)
	}
	defer rows.Close()

	var products []*types.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning product: %w", err)
		}
		products = append(products, p)
	}
	if err = rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error reading products: %w", err)
	}

	span.SetStatus(codes.Ok, "Products searched")
	return products, nil
}

func (r *RepositoryImpl) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]*types.Product, error) {
	ctx, span := otel.Tracer("ProductRepo").Start(ctx, "ListBySeller", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "products"),
		attribute.String("db.seller.id", sellerID.String()),
	))
	defer span.End()

	query := `
        SELECT ` + productColumns + `
        FROM products
        WHERE seller_id = $1
        ORDER BY created_at DESC`

	rows, err := r.pgpool.Query(ctx, query, sellerID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error listing seller products: %w", err)
	}
	defer rows.Close()

	var products []*types.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning product: %w", err)
		}
		products = append(products, p)
	}
	if err = rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error reading seller products: %w", err)
	}

	span.SetStatus(codes.Ok, "Seller products listed")
	return products, nil
}

// CountBySeller counts listings that count against the plan limit.
func (r *RepositoryImpl) CountBySeller(ctx context.Context, sellerID uuid.UUID) (int, error) {
	ctx, span := otel.Tracer("ProductRepo").Start(ctx, "CountBySeller", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "products"),
		attribute.String("db.seller.id", sellerID.String()),
	))
	defer span.End()

	var count int
	err := r.pgpool.QueryRow(ctx,
		`SELECT COUNT(*) FROM products WHERE seller_id = $1 AND status <> 'inactive'`, sellerID).Scan(&count)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return 0, fmt.Errorf("database error counting seller products: %w", err)
	}

	span.SetStatus(codes.Ok, "Counted")
	return count, nil
}

func (r *RepositoryImpl) Update(ctx context.Context, productUUID uuid.UUID, params types.UpdateProductParams) (*types.Product, error) {
	ctx, span := otel.Tracer("ProductRepo").Start(ctx, "Update", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "products"),
		attribute.String("db.product.uuid", productUUID.String()),
	))
	defer span.End()

	builder := squirrel.Update("products").
		PlaceholderFormat(squirrel.Dollar).
		Where(squirrel.Eq{"uuid": productUUID})

	touched := false
	if params.Name != nil {
		builder = builder.Set("name", *params.Name)
		touched = true
	}
	if params.Description != nil {
		builder = builder.Set("description", *params.Description)
		touched = true
	}
	if params.Price != nil {
		builder = builder.Set("price", *params.Price)
		touched = true
	}
	if params.StockQuantity != nil {
		builder = builder.Set("stock_quantity", *params.StockQuantity)
		touched = true
	}
	if params.Category != nil {
		builder = builder.Set("category", *params.Category)
		touched = true
	}
	if params.Images != nil {
		builder = builder.Set("images", *params.Images)
		touched = true
	}
	if params.Status != nil {
		builder = builder.Set("status", *params.Status)
		touched = true
	}
	if !touched {
		return nil, fmt.Errorf("no fields provided for product update: %w", types.ErrBadRequest)
	}

	builder = builder.Set("updated_at", time.Now()).Suffix("RETURNING " + productColumns)

	query, args, err := builder.ToSql()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to build product update query: %w", err)
	}

	product, err := scanProduct(r.pgpool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Product not found")
			return nil, fmt.Errorf("product %s: %w", productUUID, types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return nil, fmt.Errorf("database error updating product: %w", err)
	}

	span.SetStatus(codes.Ok, "Product updated")
	return product, nil
}

func (r *RepositoryImpl) Delete(ctx context.Context, productUUID uuid.UUID) error {
	ctx, span := otel.Tracer("ProductRepo").Start(ctx, "Delete", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "DELETE"),
		attribute.String("db.sql.table", "products"),
		attribute.String("db.product.uuid", productUUID.String()),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx, `DELETE FROM products WHERE uuid = $1`, productUUID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB DELETE failed")
		return fmt.Errorf("database error deleting product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Product not found")
		return fmt.Errorf("product %s: %w", productUUID, types.ErrNotFound)
	}

	span.SetStatus(codes.Ok, "Product deleted")
	return nil
}

func (r *RepositoryImpl) IncrementViews(ctx context.Context, productUUID uuid.UUID) error {
	ctx, span := otel.Tracer("ProductRepo").Start(ctx, "IncrementViews", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "products"),
	))
	defer span.End()

	_, err := r.pgpool.Exec(ctx,
		`UPDATE products SET views_count = views_count + 1 WHERE uuid = $1`, productUUID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return fmt.Errorf("database error incrementing views: %w", err)
	}

	span.SetStatus(codes.Ok, "Views incremented")
	return nil
}

// AdjustStock applies a signed delta guarded against going negative.
func (r *RepositoryImpl) AdjustStock(ctx context.Context, productID int64, delta int) error {
	ctx, span := otel.Tracer("ProductRepo").Start(ctx, "AdjustStock", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "products"),
		attribute.Int64("db.product.id", productID),
		attribute.Int("stock.delta", delta),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx, `
        UPDATE products
        SET stock_quantity = stock_quantity + $1, updated_at = Now()
        WHERE id = $2 AND stock_quantity + $1 >= 0`, delta, productID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return fmt.Errorf("database error adjusting stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Insufficient stock")
		return fmt.Errorf("insufficient stock for product %d: %w", productID, types.ErrConflict)
	}

	span.SetStatus(codes.Ok, "Stock adjusted")
	return nil
}
