package product

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vendo-app/vendo-api/internal/types"
)

// MockRepo is a mock implementation of Repository
type MockRepo struct {
	mock.Mock
}

func (m *MockRepo) Create(ctx context.Context, data types.CreateProductData) (*types.Product, error) {
	args := m.Called(ctx, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Product), args.Error(1)
}

func (m *MockRepo) GetByUUID(ctx context.Context, productUUID uuid.UUID) (*types.Product, error) {
	args := m.Called(ctx, productUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Product), args.Error(1)
}

func (m *MockRepo) GetByID(ctx context.Context, id int64) (*types.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Product), args.Error(1)
}

func (m *MockRepo) ListActive(ctx context.Context, category string, limit, offset int) ([]*types.Product, error) {
	args := m.Called(ctx, category, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Product), args.Error(1)
}

func (m *MockRepo) Search(ctx context.Context, query, category string, limit, offset int) ([]*types.Product, error) {
	args := m.Called(ctx, query, category, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Product), args.Error(1)
}

func (m *MockRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]*types.Product, error) {
	args := m.Called(ctx, sellerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Product), args.Error(1)
}

func (m *MockRepo) CountBySeller(ctx context.Context, sellerID uuid.UUID) (int, error) {
	args := m.Called(ctx, sellerID)
	return args.Int(0), args.Error(1)
}

func (m *MockRepo) Update(ctx context.Context, productUUID uuid.UUID, params types.UpdateProductParams) (*types.Product, error) {
	args := m.Called(ctx, productUUID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Product), args.Error(1)
}

func (m *MockRepo) Delete(ctx context.Context, productUUID uuid.UUID) error {
	args := m.Called(ctx, productUUID)
	return args.Error(0)
}

func (m *MockRepo) IncrementViews(ctx context.Context, productUUID uuid.UUID) error {
	args := m.Called(ctx, productUUID)
	return args.Error(0)
}

func (m *MockRepo) AdjustStock(ctx context.Context, productID int64, delta int) error {
	args := m.Called(ctx, productID, delta)
	return args.Error(0)
}

// MockPlanLimits is a mock implementation of PlanLimits
type MockPlanLimits struct {
	mock.Mock
}

func (m *MockPlanLimits) ActivePlanFor(ctx context.Context, userID uuid.UUID) (*types.SubscriptionPlan, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.SubscriptionPlan), args.Error(1)
}

func limitedPlan(maxProducts, maxImages int) *types.SubscriptionPlan {
	return &types.SubscriptionPlan{
		ID:                  2,
		UUID:                uuid.New(),
		Name:                "Premium Monthly",
		Price:               decimal.NewFromFloat(9.99),
		DurationDays:        30,
		MaxProducts:         maxProducts,
		MaxImagesPerProduct: maxImages,
		IsActive:            true,
	}
}

func TestCreateEnforcesProductQuota(t *testing.T) {
	mockRepo := new(MockRepo)
	mockLimits := new(MockPlanLimits)
	service := NewService(mockRepo, mockLimits, slog.Default())
	ctx := context.Background()

	sellerID := uuid.New()
	mockLimits.On("ActivePlanFor", mock.Anything, sellerID).Return(limitedPlan(50, 5), nil)
	mockRepo.On("CountBySeller", mock.Anything, sellerID).Return(50, nil)

	_, err := service.Create(ctx, types.RoleCliente, types.CreateProductData{
		SellerID: sellerID,
		Name:     "Handmade mug",
		Price:    decimal.NewFromFloat(12.50),
	})

	assert.ErrorIs(t, err, types.ErrForbidden)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateEnforcesImageQuota(t *testing.T) {
	mockRepo := new(MockRepo)
	mockLimits := new(MockPlanLimits)
	service := NewService(mockRepo, mockLimits, slog.Default())
	ctx := context.Background()

	sellerID := uuid.New()
	mockLimits.On("ActivePlanFor", mock.Anything, sellerID).Return(limitedPlan(50, 2), nil)

	_, err := service.Create(ctx, types.RoleCliente, types.CreateProductData{
		SellerID: sellerID,
		Name:     "Handmade mug",
		Price:    decimal.NewFromFloat(12.50),
		Images:   []string{"a.jpg", "b.jpg", "c.jpg"},
	})

	assert.ErrorIs(t, err, types.ErrBadRequest)
}

func TestCreateWithoutSubscriptionForbidden(t *testing.T) {
	mockRepo := new(MockRepo)
	mockLimits := new(MockPlanLimits)
	service := NewService(mockRepo, mockLimits, slog.Default())
	ctx := context.Background()

	sellerID := uuid.New()
	mockLimits.On("ActivePlanFor", mock.Anything, sellerID).Return(nil, types.ErrNotFound)

	_, err := service.Create(ctx, types.RoleCliente, types.CreateProductData{
		SellerID: sellerID,
		Name:     "Handmade mug",
		Price:    decimal.NewFromFloat(12.50),
	})

	assert.ErrorIs(t, err, types.ErrForbidden)
}

func TestCreateUnlimitedPlanSkipsCounting(t *testing.T) {
	mockRepo := new(MockRepo)
	mockLimits := new(MockPlanLimits)
	service := NewService(mockRepo, mockLimits, slog.Default())
	ctx := context.Background()

	sellerID := uuid.New()
	data := types.CreateProductData{
		SellerID: sellerID,
		Name:     "Handmade mug",
		Price:    decimal.NewFromFloat(12.50),
	}
	created := &types.Product{UUID: uuid.New(), SellerID: sellerID, Name: "Handmade mug"}

	mockLimits.On("ActivePlanFor", mock.Anything, sellerID).Return(limitedPlan(-1, 10), nil)
	mockRepo.On("Create", mock.Anything, data).Return(created, nil)

	product, err := service.Create(ctx, types.RoleCliente, data)

	require.NoError(t, err)
	assert.Equal(t, created, product)
	mockRepo.AssertNotCalled(t, "CountBySeller", mock.Anything, mock.Anything)
}

func TestCreateMembershipBypassesQuotas(t *testing.T) {
	mockRepo := new(MockRepo)
	mockLimits := new(MockPlanLimits)
	service := NewService(mockRepo, mockLimits, slog.Default())
	ctx := context.Background()

	sellerID := uuid.New()
	data := types.CreateProductData{
		SellerID: sellerID,
		Name:     "Handmade mug",
		Price:    decimal.NewFromFloat(12.50),
	}
	created := &types.Product{UUID: uuid.New(), SellerID: sellerID}
	mockRepo.On("Create", mock.Anything, data).Return(created, nil)

	_, err := service.Create(ctx, types.RoleMemberships, data)

	require.NoError(t, err)
	mockLimits.AssertNotCalled(t, "ActivePlanFor", mock.Anything, mock.Anything)
}

func TestUpdateOwnershipMismatchReportsNotFound(t *testing.T) {
	mockRepo := new(MockRepo)
	mockLimits := new(MockPlanLimits)
	service := NewService(mockRepo, mockLimits, slog.Default())
	ctx := context.Background()

	productUUID := uuid.New()
	owner := uuid.New()
	other := uuid.New()
	product := &types.Product{UUID: productUUID, SellerID: owner}

	mockRepo.On("GetByUUID", mock.Anything, productUUID).Return(product, nil)

	name := "New name"
	_, err := service.Update(ctx, other, productUUID, types.UpdateProductParams{Name: &name})

	assert.ErrorIs(t, err, types.ErrNotFound)
	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestSearchTrimsQuery(t *testing.T) {
	mockRepo := new(MockRepo)
	mockLimits := new(MockPlanLimits)
	service := NewService(mockRepo, mockLimits, slog.Default())
	ctx := context.Background()

	matches := []*types.Product{{UUID: uuid.New(), Name: "Ceramic mug"}}
	mockRepo.On("Search", mock.Anything, "mug", "home", 20, 0).Return(matches, nil)

	got, err := service.Search(ctx, "  mug  ", "home", 20, 0)

	require.NoError(t, err)
	assert.Equal(t, matches, got)
	mockRepo.AssertExpectations(t)
}

func TestSearchBlankQueryFallsBackToListing(t *testing.T) {
	mockRepo := new(MockRepo)
	mockLimits := new(MockPlanLimits)
	service := NewService(mockRepo, mockLimits, slog.Default())
	ctx := context.Background()

	listed := []*types.Product{{UUID: uuid.New(), Name: "Ceramic mug"}}
	mockRepo.On("ListActive", mock.Anything, "home", 10, 5).Return(listed, nil)

	got, err := service.Search(ctx, "   ", "home", 10, 5)

	require.NoError(t, err)
	assert.Equal(t, listed, got)
	mockRepo.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mockRepo.AssertExpectations(t)
}

func TestGetCountsView(t *testing.T) {
	mockRepo := new(MockRepo)
	mockLimits := new(MockPlanLimits)
	service := NewService(mockRepo, mockLimits, slog.Default())
	ctx := context.Background()

	productUUID := uuid.New()
	product := &types.Product{UUID: productUUID, Name: "Handmade mug"}
	mockRepo.On("GetByUUID", mock.Anything, productUUID).Return(product, nil)
	mockRepo.On("IncrementViews", mock.Anything, productUUID).Return(nil)

	got, err := service.Get(ctx, productUUID)

	require.NoError(t, err)
	assert.Equal(t, product, got)
	mockRepo.AssertExpectations(t)
}
