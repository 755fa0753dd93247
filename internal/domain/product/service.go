package product

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vendo-app/vendo-api/internal/types"
)

// PlanLimits resolves the plan whose product quotas apply to a seller.
type PlanLimits interface {
	ActivePlanFor(ctx context.Context, userID uuid.UUID) (*types.SubscriptionPlan, error)
}

// Service owns marketplace listings. Creation enforces the seller's plan
// quotas.
type Service struct {
	logger *slog.Logger
	repo   Repository
	limits PlanLimits
}

func NewService(repo Repository, limits PlanLimits, logger *slog.Logger) *Service {
	return &Service{
		logger: logger,
		repo:   repo,
		limits: limits,
	}
}

// Create validates the listing against the seller's plan quotas and inserts
// it. Membership accounts skip the quota checks.
func (s *Service) Create(ctx context.Context, role types.UserRole, data types.CreateProductData) (*types.Product, error) {
	ctx, span := otel.Tracer("ProductService").Start(ctx, "Create", trace.WithAttributes(
		attribute.String("seller.id", data.SellerID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Create"), slog.String("sellerID", data.SellerID.String()))

	if strings.TrimSpace(data.Name) == "" {
		span.SetStatus(codes.Error, "Name required")
		return nil, fmt.Errorf("product name is required: %w", types.ErrBadRequest)
	}
	if data.Price.IsNegative() {
		span.SetStatus(codes.Error, "Negative price")
		return nil, fmt.Errorf("product price cannot be negative: %w", types.ErrBadRequest)
	}

	if role != types.RoleMemberships {
		if err := s.checkQuotas(ctx, data); err != nil {
			span.SetStatus(codes.Error, "Quota check failed")
			return nil, err
		}
	}

	product, err := s.repo.Create(ctx, data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Product insert failed")
		return nil, err
	}

	l.InfoContext(ctx, "Listing created", slog.String("productUUID", product.UUID.String()))
	span.SetStatus(codes.Ok, "Product created")
	return product, nil
}

func (s *Service) checkQuotas(ctx context.Context, data types.CreateProductData) error {
	plan, err := s.limits.ActivePlanFor(ctx, data.SellerID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return fmt.Errorf("an active subscription is required to sell: %w", types.ErrForbidden)
		}
		return err
	}

	if len(data.Images) > plan.MaxImagesPerProduct {
		return fmt.Errorf("plan '%s' allows at most %d images per product: %w",
			plan.Name, plan.MaxImagesPerProduct, types.ErrBadRequest)
	}

	if plan.HasUnlimitedProducts() {
		return nil
	}

	count, err := s.repo.CountBySeller(ctx, data.SellerID)
	if err != nil {
		return err
	}
	if count >= plan.MaxProducts {
		return fmt.Errorf("plan '%s' allows at most %d products: %w",
			plan.Name, plan.MaxProducts, types.ErrForbidden)
	}
	return nil
}

// Get fetches a listing and counts the view.
func (s *Service) Get(ctx context.Context, productUUID uuid.UUID) (*types.Product, error) {
	ctx, span := otel.Tracer("ProductService").Start(ctx, "Get", trace.WithAttributes(
		attribute.String("product.uuid", productUUID.String()),
	))
	defer span.End()

	product, err := s.repo.GetByUUID(ctx, productUUID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Product lookup failed")
		return nil, err
	}

	if err := s.repo.IncrementViews(ctx, productUUID); err != nil {
		// view counting must not break reads
		s.logger.WarnContext(ctx, "Failed to count product view", slog.Any("error", err))
	}

	span.SetStatus(codes.Ok, "Product fetched")
	return product, nil
}

func (s *Service) List(ctx context.Context, category string, limit, offset int) ([]*types.Product, error) {
	ctx, span := otel.Tracer("ProductService").Start(ctx, "List")
	defer span.End()

	products, err := s.repo.ListActive(ctx, category, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Listing failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "Products listed")
	return products, nil
}

// Search finds active products matching the query text. A blank query falls
// back to the plain listing, keeping category and paging.
func (s *Service) Search(ctx context.Context, query, category string, limit, offset int) ([]*types.Product, error) {
	ctx, span := otel.Tracer("ProductService").Start(ctx, "Search", trace.WithAttributes(
		attribute.String("product.search", query),
	))
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return s.List(ctx, category, limit, offset)
	}

	products, err := s.repo.Search(ctx, query, category, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Search failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "Products searched")
	return products, nil
}

func (s *Service) ListMine(ctx context.Context, sellerID uuid.UUID) ([]*types.Product, error) {
	ctx, span := otel.Tracer("ProductService").Start(ctx, "ListMine", trace.WithAttributes(
		attribute.String("seller.id", sellerID.String()),
	))
	defer span.End()

	products, err := s.repo.ListBySeller(ctx, sellerID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Seller listing failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "Seller products listed")
	return products, nil
}

// Update edits a listing. Only the owner may edit; a mismatch reports not
// found.
func (s *Service) Update(ctx context.Context, sellerID uuid.UUID, productUUID uuid.UUID, params types.UpdateProductParams) (*types.Product, error) {
	ctx, span := otel.Tracer("ProductService").Start(ctx, "Update", trace.WithAttributes(
		attribute.String("product.uuid", productUUID.String()),
	))
	defer span.End()

	product, err := s.repo.GetByUUID(ctx, productUUID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Product lookup failed")
		return nil, err
	}
	if !product.BelongsTo(sellerID) {
		span.SetStatus(codes.Error, "Ownership mismatch")
		return nil, fmt.Errorf("product %s: %w", productUUID, types.ErrNotFound)
	}

	updated, err := s.repo.Update(ctx, productUUID, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Product update failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "Product updated")
	return updated, nil
}

// Delete removes a listing. Only the owner may delete; a mismatch reports
// not found.
func (s *Service) Delete(ctx context.Context, sellerID uuid.UUID, productUUID uuid.UUID) error {
	ctx, span := otel.Tracer("ProductService").Start(ctx, "Delete", trace.WithAttributes(
		attribute.String("product.uuid", productUUID.String()),
	))
	defer span.End()

	product, err := s.repo.GetByUUID(ctx, productUUID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Product lookup failed")
		return err
	}
	if !product.BelongsTo(sellerID) {
		span.SetStatus(codes.Error, "Ownership mismatch")
		return fmt.Errorf("product %s: %w", productUUID, types.ErrNotFound)
	}

	if err := s.repo.Delete(ctx, productUUID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Product delete failed")
		return err
	}

	span.SetStatus(codes.Ok, "Product deleted")
	return nil
}
