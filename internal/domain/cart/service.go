package cart

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vendo-app/vendo-api/internal/types"
)

// ProductReader is the slice of the product domain the cart needs.
type ProductReader interface {
	GetByUUID(ctx context.Context, productUUID uuid.UUID) (*types.Product, error)
}

// Service owns the shopping cart flows.
type Service struct {
	logger   *slog.Logger
	repo     Repository
	products ProductReader
}

func NewService(repo Repository, products ProductReader, logger *slog.Logger) *Service {
	return &Service{
		logger:   logger,
		repo:     repo,
		products: products,
	}
}

func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*types.Cart, error) {
	ctx, span := otel.Tracer("CartService").Start(ctx, "Get", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	cart, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Cart lookup failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "Cart fetched")
	return cart, nil
}

// AddItem puts a product in the cart after checking availability and stock.
// Adding an already-present product increases its quantity.
func (s *Service) AddItem(ctx context.Context, userID uuid.UUID, productUUID uuid.UUID, quantity int) (*types.Cart, error) {
	ctx, span := otel.Tracer("CartService").Start(ctx, "AddItem", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("product.uuid", productUUID.String()),
		attribute.Int("cart.quantity", quantity),
	))
	defer span.End()

	if quantity <= 0 {
		span.SetStatus(codes.Error, "Invalid quantity")
		return nil, fmt.Errorf("quantity must be positive: %w", types.ErrBadRequest)
	}

	product, err := s.products.GetByUUID(ctx, productUUID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Product lookup failed")
		return nil, err
	}
	if !product.IsAvailable() {
		span.SetStatus(codes.Error, "Product unavailable")
		return nil, fmt.Errorf("product '%s' is not available: %w", product.Name, types.ErrConflict)
	}

	cart, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Cart lookup failed")
		return nil, err
	}

	existing := 0
	if line := cart.Item(product.ID); line != nil {
		existing = line.Quantity
	}
	if existing+quantity > product.StockQuantity {
		span.SetStatus(codes.Error, "Insufficient stock")
		return nil, fmt.Errorf("only %d units of '%s' in stock: %w",
			product.StockQuantity, product.Name, types.ErrConflict)
	}

	if err := s.repo.UpsertItem(ctx, cart.ID, product.ID, quantity, product.Price); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Cart write failed")
		return nil, err
	}

	updated, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetStatus(codes.Ok, "Item added")
	return updated, nil
}

// SetItemQuantity overwrites a line's quantity, still bounded by stock.
func (s *Service) SetItemQuantity(ctx context.Context, userID uuid.UUID, productUUID uuid.UUID, quantity int) (*types.Cart, error) {
	ctx, span := otel.Tracer("CartService").Start(ctx, "SetItemQuantity", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.Int("cart.quantity", quantity),
	))
	defer span.End()

	if quantity <= 0 {
		span.SetStatus(codes.Error, "Invalid quantity")
		return nil, fmt.Errorf("quantity must be positive: %w", types.ErrBadRequest)
	}

	product, err := s.products.GetByUUID(ctx, productUUID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Product lookup failed")
		return nil, err
	}
	if quantity > product.StockQuantity {
		span.SetStatus(codes.Error, "Insufficient stock")
		return nil, fmt.Errorf("only %d units of '%s' in stock: %w",
			product.StockQuantity, product.Name, types.ErrConflict)
	}

	cart, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := s.repo.SetItemQuantity(ctx, cart.ID, product.ID, quantity); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Cart write failed")
		return nil, err
	}

	updated, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetStatus(codes.Ok, "Quantity set")
	return updated, nil
}

func (s *Service) RemoveItem(ctx context.Context, userID uuid.UUID, productUUID uuid.UUID) (*types.Cart, error) {
	ctx, span := otel.Tracer("CartService").Start(ctx, "RemoveItem", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	product, err := s.products.GetByUUID(ctx, productUUID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Product lookup failed")
		return nil, err
	}

	cart, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := s.repo.RemoveItem(ctx, cart.ID, product.ID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Cart write failed")
		return nil, err
	}

	updated, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetStatus(codes.Ok, "Item removed")
	return updated, nil
}

func (s *Service) Clear(ctx context.Context, userID uuid.UUID) error {
	ctx, span := otel.Tracer("CartService").Start(ctx, "Clear", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	cart, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if err := s.repo.Clear(ctx, cart.ID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Cart write failed")
		return err
	}

	span.SetStatus(codes.Ok, "Cart cleared")
	return nil
}

// Summary condenses the cart for the checkout header.
func (s *Service) Summary(ctx context.Context, userID uuid.UUID) (*types.CartSummary, error) {
	ctx, span := otel.Tracer("CartService").Start(ctx, "Summary", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	cart, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetStatus(codes.Ok, "Summary built")
	return &types.CartSummary{
		TotalItems:  cart.TotalItems(),
		TotalAmount: cart.TotalAmount(),
		Currency:    "EUR",
	}, nil
}
