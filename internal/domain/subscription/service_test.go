package subscription

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vendo-app/vendo-api/internal/types"
)

// MockRepository is a mock implementation of Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) ListActivePlans(ctx context.Context) ([]*types.SubscriptionPlan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.SubscriptionPlan), args.Error(1)
}

func (m *MockRepository) GetPlanByUUID(ctx context.Context, planUUID uuid.UUID) (*types.SubscriptionPlan, error) {
	args := m.Called(ctx, planUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.SubscriptionPlan), args.Error(1)
}

func (m *MockRepository) GetPlanByID(ctx context.Context, id int64) (*types.SubscriptionPlan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.SubscriptionPlan), args.Error(1)
}

func (m *MockRepository) CreatePlan(ctx context.Context, data types.CreatePlanData) (*types.SubscriptionPlan, error) {
	args := m.Called(ctx, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.SubscriptionPlan), args.Error(1)
}

func (m *MockRepository) UpdatePlan(ctx context.Context, planUUID uuid.UUID, data types.UpdatePlanData) (*types.SubscriptionPlan, error) {
	args := m.Called(ctx, planUUID, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.SubscriptionPlan), args.Error(1)
}

func (m *MockRepository) DeactivatePlan(ctx context.Context, planUUID uuid.UUID) error {
	args := m.Called(ctx, planUUID)
	return args.Error(0)
}

func (m *MockRepository) FindActiveByUserID(ctx context.Context, userID uuid.UUID) (*types.Subscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Subscription), args.Error(1)
}

func (m *MockRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*types.Subscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Subscription), args.Error(1)
}

func (m *MockRepository) FindByUUID(ctx context.Context, subUUID uuid.UUID) (*types.Subscription, error) {
	args := m.Called(ctx, subUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Subscription), args.Error(1)
}

func (m *MockRepository) HasActive(ctx context.Context, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) ExpireLapsed(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) Create(ctx context.Context, data types.CreateSubscriptionData) (*types.Subscription, error) {
	args := m.Called(ctx, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Subscription), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, subUUID uuid.UUID, data types.UpdateSubscriptionData) (*types.Subscription, error) {
	args := m.Called(ctx, subUUID, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Subscription), args.Error(1)
}

func (m *MockRepository) RecordCancellation(ctx context.Context, subUUID uuid.UUID, reason string) error {
	args := m.Called(ctx, subUUID, reason)
	return args.Error(0)
}

func (m *MockRepository) GetWithPlan(ctx context.Context, subUUID uuid.UUID) (*types.SubscriptionWithPlan, error) {
	args := m.Called(ctx, subUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.SubscriptionWithPlan), args.Error(1)
}

func (m *MockRepository) FindExpired(ctx context.Context) ([]*types.Subscription, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Subscription), args.Error(1)
}

func (m *MockRepository) FindExpiringSoon(ctx context.Context, days int) ([]*types.Subscription, error) {
	args := m.Called(ctx, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Subscription), args.Error(1)
}

func (m *MockRepository) Stats(ctx context.Context) (*types.SubscriptionStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.SubscriptionStats), args.Error(1)
}

// MockUserDirectory is a mock implementation of UserDirectory
type MockUserDirectory struct {
	mock.Mock
}

func (m *MockUserDirectory) UpdateRole(ctx context.Context, userID uuid.UUID, role types.UserRole) error {
	args := m.Called(ctx, userID, role)
	return args.Error(0)
}

func newTestService(repo *MockRepository, users *MockUserDirectory) *Service {
	logger := slog.Default()
	catalog := NewPlanCatalog(repo, time.Minute, logger)
	return NewService(repo, catalog, users, LiveSubscriptionPolicy{}, 7, logger)
}

func freePlan() *types.SubscriptionPlan {
	return &types.SubscriptionPlan{
		ID:           1,
		UUID:         uuid.New(),
		Name:         "Free",
		Price:        decimal.Zero,
		DurationDays: 30,
		IsActive:     true,
	}
}

func monthlyPlan() *types.SubscriptionPlan {
	return &types.SubscriptionPlan{
		ID:           2,
		UUID:         uuid.New(),
		Name:         "Premium Monthly",
		Price:        decimal.NewFromFloat(9.99),
		DurationDays: 30,
		MaxProducts:  50,
		IsActive:     true,
	}
}

func strPtr(s string) *string { return &s }

func TestSubscribeFreePlanIgnoresPayment(t *testing.T) {
	mockRepo := new(MockRepository)
	mockUsers := new(MockUserDirectory)
	service := newTestService(mockRepo, mockUsers)
	ctx := context.Background()

	plan := freePlan()
	userID := uuid.New()
	subUUID := uuid.New()
	pending := &types.Subscription{UUID: subUUID, UserID: userID, PlanID: plan.ID, Status: types.SubscriptionPending}
	active := &types.Subscription{UUID: subUUID, UserID: userID, PlanID: plan.ID, Status: types.SubscriptionActive}

	mockRepo.On("GetPlanByUUID", mock.Anything, plan.UUID).Return(plan, nil)
	mockRepo.On("ExpireLapsed", mock.Anything, userID).Return(int64(0), nil)
	mockRepo.On("HasActive", mock.Anything, userID).Return(false, nil)
	mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(data types.CreateSubscriptionData) bool {
		return data.PaymentMethod == nil && data.PaymentReference == nil && data.PaymentAmount == nil
	})).Return(pending, nil)
	mockRepo.On("Update", mock.Anything, subUUID, mock.AnythingOfType("types.UpdateSubscriptionData")).Return(active, nil)
	mockUsers.On("UpdateRole", mock.Anything, userID, types.RoleMemberships).Return(nil)

	result, err := service.Subscribe(ctx, SubscribeRequest{
		UserID:        userID,
		PlanUUID:      plan.UUID,
		PaymentMethod: strPtr("stripe"),
	})

	require.NoError(t, err)
	assert.True(t, result.RoleUpdated)
	assert.Equal(t, types.SubscriptionActive, result.Subscription.Status)
	mockRepo.AssertExpectations(t)
	mockUsers.AssertExpectations(t)
}

func TestSubscribePaidPlanRequiresMethod(t *testing.T) {
	mockRepo := new(MockRepository)
	mockUsers := new(MockUserDirectory)
	service := newTestService(mockRepo, mockUsers)
	ctx := context.Background()

	plan := monthlyPlan()
	userID := uuid.New()

	mockRepo.On("GetPlanByUUID", mock.Anything, plan.UUID).Return(plan, nil)
	mockRepo.On("ExpireLapsed", mock.Anything, userID).Return(int64(0), nil)
	mockRepo.On("HasActive", mock.Anything, userID).Return(false, nil)

	_, err := service.Subscribe(ctx, SubscribeRequest{UserID: userID, PlanUUID: plan.UUID})

	assert.ErrorIs(t, err, types.ErrInvalidPaymentData)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSubscribeStripeRequiresReference(t *testing.T) {
	mockRepo := new(MockRepository)
	mockUsers := new(MockUserDirectory)
	service := newTestService(mockRepo, mockUsers)
	ctx := context.Background()

	plan := monthlyPlan()
	userID := uuid.New()

	mockRepo.On("GetPlanByUUID", mock.Anything, plan.UUID).Return(plan, nil)
	mockRepo.On("ExpireLapsed", mock.Anything, userID).Return(int64(0), nil)
	mockRepo.On("HasActive", mock.Anything, userID).Return(false, nil)

	_, err := service.Subscribe(ctx, SubscribeRequest{
		UserID:        userID,
		PlanUUID:      plan.UUID,
		PaymentMethod: strPtr("stripe"),
	})

	assert.ErrorIs(t, err, types.ErrInvalidPaymentData)
}

func TestSubscribeManualNeedsNoReference(t *testing.T) {
	mockRepo := new(MockRepository)
	mockUsers := new(MockUserDirectory)
	service := newTestService(mockRepo, mockUsers)
	ctx := context.Background()

	plan := monthlyPlan()
	userID := uuid.New()
	subUUID := uuid.New()
	pending := &types.Subscription{UUID: subUUID, UserID: userID, PlanID: plan.ID, Status: types.SubscriptionPending}
	active := &types.Subscription{UUID: subUUID, UserID: userID, PlanID: plan.ID, Status: types.SubscriptionActive}

	mockRepo.On("GetPlanByUUID", mock.Anything, plan.UUID).Return(plan, nil)
	mockRepo.On("ExpireLapsed", mock.Anything, userID).Return(int64(0), nil)
	mockRepo.On("HasActive", mock.Anything, userID).Return(false, nil)
	mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(data types.CreateSubscriptionData) bool {
		return data.PaymentMethod != nil && *data.PaymentMethod == "manual" &&
			data.PaymentAmount != nil && data.PaymentAmount.Equal(plan.Price)
	})).Return(pending, nil)
	mockRepo.On("Update", mock.Anything, subUUID, mock.AnythingOfType("types.UpdateSubscriptionData")).Return(active, nil)
	mockUsers.On("UpdateRole", mock.Anything, userID, types.RoleMemberships).Return(nil)

	_, err := service.Subscribe(ctx, SubscribeRequest{
		UserID:        userID,
		PlanUUID:      plan.UUID,
		PaymentMethod: strPtr("manual"),
	})

	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestSubscribeUnknownMethodRejected(t *testing.T) {
	mockRepo := new(MockRepository)
	mockUsers := new(MockUserDirectory)
	service := newTestService(mockRepo, mockUsers)
	ctx := context.Background()

	plan := monthlyPlan()
	userID := uuid.New()

	mockRepo.On("GetPlanByUUID", mock.Anything, plan.UUID).Return(plan, nil)
	mockRepo.On("ExpireLapsed", mock.Anything, userID).Return(int64(0), nil)
	mockRepo.On("HasActive", mock.Anything, userID).Return(false, nil)

	_, err := service.Subscribe(ctx, SubscribeRequest{
		UserID:        userID,
		PlanUUID:      plan.UUID,
		PaymentMethod: strPtr("bitcoin"),
	})

	assert.ErrorIs(t, err, types.ErrInvalidPaymentData)
}

func TestSubscribeRejectsSecondActiveSubscription(t *testing.T) {
	mockRepo := new(MockRepository)
	mockUsers := new(MockUserDirectory)
	service := newTestService(mockRepo, mockUsers)
	ctx := context.Background()

	plan := monthlyPlan()
	userID := uuid.New()

	mockRepo.On("GetPlanByUUID", mock.Anything, plan.UUID).Return(plan, nil)
	mockRepo.On("ExpireLapsed", mock.Anything, userID).Return(int64(0), nil)
	mockRepo.On("HasActive", mock.Anything, userID).Return(true, nil)

	_, err := service.Subscribe(ctx, SubscribeRequest{
		UserID:           userID,
		PlanUUID:         plan.UUID,
		PaymentMethod:    strPtr("stripe"),
		PaymentReference: strPtr("pi_123"),
	})

	assert.ErrorIs(t, err, types.ErrActiveSubscriptionExists)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSubscribeInactivePlanRejected(t *testing.T) {
	mockRepo := new(MockRepository)
	mockUsers := new(MockUserDirectory)
	service := newTestService(mockRepo, mockUsers)
	ctx := context.Background()

	plan := monthlyPlan()
	plan.IsActive = false
	userID := uuid.New()

	mockRepo.On("GetPlanByUUID", mock.Anything, plan.UUID).Return(plan, nil)

	_, err := service.Subscribe(ctx, SubscribeRequest{UserID: userID, PlanUUID: plan.UUID})

	assert.ErrorIs(t, err, types.ErrInactivePlan)
	mockRepo.AssertNotCalled(t, "HasActive", mock.Anything, mock.Anything)
}

func TestSubscribeRoleFailureDoesNotFailCheckout(t *testing.T) {
	mockRepo := new(MockRepository)
	mockUsers := new(MockUserDirectory)
	service := newTestService(mockRepo, mockUsers)
	ctx := context.Background()

	plan := freePlan()
	userID := uuid.New()
	subUUID := uuid.New()
	pending := &types.Subscription{UUID: subUUID, UserID: userID, PlanID: plan.ID, Status: types.SubscriptionPending}
	active := &types.Subscription{UUID: subUUID, UserID: userID, PlanID: plan.ID, Status: types.SubscriptionActive}

	mockRepo.On("GetPlanByUUID", mock.Anything, plan.UUID).Return(plan, nil)
	mockRepo.On("ExpireLapsed", mock.Anything, userID).Return(int64(0), nil)
	mockRepo.On("HasActive", mock.Anything, userID).Return(false, nil)
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("types.CreateSubscriptionData")).Return(pending, nil)
	mockRepo.On("Update", mock.Anything, subUUID, mock.AnythingOfType("types.UpdateSubscriptionData")).Return(active, nil)
	mockUsers.On("UpdateRole", mock.Anything, userID, types.RoleMemberships).Return(errors.New("directory down"))

	result, err := service.Subscribe(ctx, SubscribeRequest{UserID: userID, PlanUUID: plan.UUID})

	require.NoError(t, err)
	assert.False(t, result.RoleUpdated)
	assert.Equal(t, types.SubscriptionActive, result.Subscription.Status)
}

func TestSubscribeExpiresLapsedRowFirst(t *testing.T) {
	mockRepo := new(MockRepository)
	mockUsers := new(MockUserDirectory)
	service := newTestService(mockRepo, mockUsers)
	ctx := context.Background()

	plan := monthlyPlan()
	userID := uuid.New()
	subUUID := uuid.New()
	pending := &types.Subscription{UUID: subUUID, UserID: userID, PlanID: plan.ID, Status: types.SubscriptionPending}
	active := &types.Subscription{UUID: subUUID, UserID: userID, PlanID: plan.ID, Status: types.SubscriptionActive}

	// A previous subscription lapsed but the sweep has not run yet. The
	// checkout retires it inline so the one-active-row index accepts the
	// new activation.
	mockRepo.On("GetPlanByUUID", mock.Anything, plan.UUID).Return(plan, nil)
	mockRepo.On("ExpireLapsed", mock.Anything, userID).Return(int64(1), nil)
	mockRepo.On("HasActive", mock.Anything, userID).Return(false, nil)
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("types.CreateSubscriptionData")).Return(pending, nil)
	mockRepo.On("Update", mock.Anything, subUUID, mock.AnythingOfType("types.UpdateSubscriptionData")).Return(active, nil)
	mockUsers.On("UpdateRole", mock.Anything, userID, types.RoleMemberships).Return(nil)

	result, err := service.Subscribe(ctx, SubscribeRequest{
		UserID:           userID,
		PlanUUID:         plan.UUID,
		PaymentMethod:    strPtr("stripe"),
		PaymentReference: strPtr("pi_456"),
	})

	require.NoError(t, err)
	assert.Equal(t, types.SubscriptionActive, result.Subscription.Status)
	mockRepo.AssertExpectations(t)
}

func TestSubscribeActivationConflictAbandonsPending(t *testing.T) {
	mockRepo := new(MockRepository)
	mockUsers := new(MockUserDirectory)
	service := newTestService(mockRepo, mockUsers)
	ctx := context.Background()

	plan := monthlyPlan()
	userID := uuid.New()
	subUUID := uuid.New()
	pending := &types.Subscription{UUID: subUUID, UserID: userID, PlanID: plan.ID, Status: types.SubscriptionPending}
	abandoned := &types.Subscription{UUID: subUUID, UserID: userID, PlanID: plan.ID, Status: types.SubscriptionCancelled}

	mockRepo.On("GetPlanByUUID", mock.Anything, plan.UUID).Return(plan, nil)
	mockRepo.On("ExpireLapsed", mock.Anything, userID).Return(int64(0), nil)
	mockRepo.On("HasActive", mock.Anything, userID).Return(false, nil)
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("types.CreateSubscriptionData")).Return(pending, nil)
	mockRepo.On("Update", mock.Anything, subUUID, mock.MatchedBy(func(data types.UpdateSubscriptionData) bool {
		return data.Status != nil && *data.Status == types.SubscriptionActive
	})).Return(nil, types.ErrActiveSubscriptionExists)
	mockRepo.On("Update", mock.Anything, subUUID, mock.MatchedBy(func(data types.UpdateSubscriptionData) bool {
		return data.Status != nil && *data.Status == types.SubscriptionCancelled
	})).Return(abandoned, nil)

	_, err := service.Subscribe(ctx, SubscribeRequest{
		UserID:           userID,
		PlanUUID:         plan.UUID,
		PaymentMethod:    strPtr("stripe"),
		PaymentReference: strPtr("pi_789"),
	})

	assert.ErrorIs(t, err, types.ErrActiveSubscriptionExists)
	mockRepo.AssertExpectations(t)
	mockUsers.AssertNotCalled(t, "UpdateRole", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelOwnershipMismatchReportsNotFound(t *testing.T) {
	mockRepo := new(MockRepository)
	mockUsers := new(MockUserDirectory)
	service := newTestService(mockRepo, mockUsers)
	ctx := context.Background()

	subUUID := uuid.New()
	owner := uuid.New()
	attacker := uuid.New()
	sub := &types.Subscription{UUID: subUUID, UserID: owner, Status: types.SubscriptionActive}

	mockRepo.On("FindByUUID", mock.Anything, subUUID).Return(sub, nil)

	_, err := service.Cancel(ctx, CancelRequest{UserID: attacker, SubscriptionUUID: subUUID})

	assert.ErrorIs(t, err, types.ErrNotFound)
	mockRepo.AssertNotCalled(t, "RecordCancellation", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelAlreadyCancelledRejected(t *testing.T) {
	mockRepo := new(MockRepository)
	mockUsers := new(MockUserDirectory)
	service := newTestService(mockRepo, mockUsers)
	ctx := context.Background()

	subUUID := uuid.New()
	userID := uuid.New()
	sub := &types.Subscription{UUID: subUUID, UserID: userID, Status: types.SubscriptionCancelled}

	mockRepo.On("FindByUUID", mock.Anything, subUUID).Return(sub, nil)

	_, err := service.Cancel(ctx, CancelRequest{UserID: userID, SubscriptionUUID: subUUID})

	assert.ErrorIs(t, err, types.ErrCancellation)
}

func TestCancelExpiredRejected(t *testing.T) {
	mockRepo := new(MockRepository)
	mockUsers := new(MockUserDirectory)
	service := newTestService(mockRepo, mockUsers)
	ctx := context.Background()

	subUUID := uuid.New()
	userID := uuid.New()
	sub := &types.Subscription{UUID: subUUID, UserID: userID, Status: types.SubscriptionExpired}

	mockRepo.On("FindByUUID", mock.Anything, subUUID).Return(sub, nil)

	_, err := service.Cancel(ctx, CancelRequest{UserID: userID, SubscriptionUUID: subUUID})

	assert.ErrorIs(t, err, types.ErrCancellation)
}

func TestCancelImmediateRefundsAndRevertsRole(t *testing.T) {
	mockRepo := new(MockRepository)
	mockUsers := new(MockUserDirectory)
	service := newTestService(mockRepo, mockUsers)
	ctx := context.Background()

	subUUID := uuid.New()
	userID := uuid.New()
	base := time.Now()
	started := base.Add(-20 * 24 * time.Hour)
	expires := base.Add(10 * 24 * time.Hour)
	paid := decimal.NewFromInt(100)
	sub := &types.Subscription{
		UUID:          subUUID,
		UserID:        userID,
		Status:        types.SubscriptionActive,
		StartedAt:     &started,
		ExpiresAt:     &expires,
		PaymentAmount: &paid,
		AutoRenew:     true,
	}
	cancelled := &types.Subscription{UUID: subUUID, UserID: userID, Status: types.SubscriptionCancelled}

	mockRepo.On("FindByUUID", mock.Anything, subUUID).Return(sub, nil)
	mockRepo.On("RecordCancellation", mock.Anything, subUUID, "too expensive").Return(nil)
	mockRepo.On("Update", mock.Anything, subUUID, mock.MatchedBy(func(data types.UpdateSubscriptionData) bool {
		return data.Status != nil && *data.Status == types.SubscriptionCancelled &&
			data.AutoRenew != nil && !*data.AutoRenew
	})).Return(cancelled, nil)
	mockUsers.On("UpdateRole", mock.Anything, userID, types.RoleCliente).Return(nil)

	result, err := service.Cancel(ctx, CancelRequest{
		UserID:           userID,
		SubscriptionUUID: subUUID,
		Reason:           "too expensive",
		Immediate:        true,
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "Subscription cancelled immediately. Premium access removed.", result.Message)
	assert.True(t, result.RoleReverted)
	require.NotNil(t, result.RefundAmount)
	// 10 of 30 days remain on a 100 payment
	assert.True(t, result.RefundAmount.Equal(decimal.NewFromFloat(33.33)),
		"expected 33.33, got %s", result.RefundAmount)
	mockRepo.AssertExpectations(t)
	mockUsers.AssertExpectations(t)
}

func TestCancelAtTermKeepsAccess(t *testing.T) {
	mockRepo := new(MockRepository)
	mockUsers := new(MockUserDirectory)
	service := newTestService(mockRepo, mockUsers)
	ctx := context.Background()

	subUUID := uuid.New()
	userID := uuid.New()
	expires := time.Now().Add(15 * 24 * time.Hour)
	sub := &types.Subscription{
		UUID:      subUUID,
		UserID:    userID,
		Status:    types.SubscriptionActive,
		ExpiresAt: &expires,
		AutoRenew: true,
	}
	updated := &types.Subscription{
		UUID:      subUUID,
		UserID:    userID,
		Status:    types.SubscriptionActive,
		ExpiresAt: &expires,
		AutoRenew: false,
	}

	mockRepo.On("FindByUUID", mock.Anything, subUUID).Return(sub, nil)
	mockRepo.On("RecordCancellation", mock.Anything, subUUID, "").Return(nil)
	mockRepo.On("Update", mock.Anything, subUUID, mock.MatchedBy(func(data types.UpdateSubscriptionData) bool {
		return data.Status == nil && data.AutoRenew != nil && !*data.AutoRenew
	})).Return(updated, nil)

	result, err := service.Cancel(ctx, CancelRequest{
		UserID:           userID,
		SubscriptionUUID: subUUID,
		Immediate:        false,
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, result.Message, "keep premium access")
	assert.Equal(t, types.SubscriptionActive, result.Subscription.Status)
	assert.Nil(t, result.RefundAmount)
	require.NotNil(t, result.EffectiveDate)
	assert.True(t, result.EffectiveDate.Equal(expires))
	mockUsers.AssertNotCalled(t, "UpdateRole", mock.Anything, mock.Anything, mock.Anything)
}

func TestProratedRefund(t *testing.T) {
	now := time.Now()
	paid := decimal.NewFromInt(100)

	tests := []struct {
		name      string
		sub       *types.Subscription
		expected  *decimal.Decimal
		expectNil bool
	}{
		{
			name: "a third of the period remains",
			sub: func() *types.Subscription {
				started := now.Add(-20 * 24 * time.Hour)
				expires := now.Add(10 * 24 * time.Hour)
				return &types.Subscription{StartedAt: &started, ExpiresAt: &expires, PaymentAmount: &paid}
			}(),
			expected: decimalPtr(decimal.NewFromFloat(33.33)),
		},
		{
			name: "already past expiry refunds nothing",
			sub: func() *types.Subscription {
				started := now.Add(-31 * 24 * time.Hour)
				expires := now.Add(-24 * time.Hour)
				return &types.Subscription{StartedAt: &started, ExpiresAt: &expires, PaymentAmount: &paid}
			}(),
			expected: decimalPtr(decimal.Zero),
		},
		{
			name:      "nothing paid",
			sub:       &types.Subscription{},
			expectNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := proratedRefund(tt.sub, now)
			if tt.expectNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, got.Equal(*tt.expected), "expected %s, got %s", tt.expected, got)
		})
	}
}

func decimalPtr(d decimal.Decimal) *decimal.Decimal { return &d }

func TestProcessExpiredSweep(t *testing.T) {
	mockRepo := new(MockRepository)
	mockUsers := new(MockUserDirectory)
	service := newTestService(mockRepo, mockUsers)
	ctx := context.Background()

	userA := uuid.New()
	userB := uuid.New()
	subA := &types.Subscription{UUID: uuid.New(), UserID: userA, Status: types.SubscriptionActive}
	subB := &types.Subscription{UUID: uuid.New(), UserID: userB, Status: types.SubscriptionActive}

	mockRepo.On("FindExpired", mock.Anything).Return([]*types.Subscription{subA, subB}, nil)
	mockRepo.On("Update", mock.Anything, subA.UUID, mock.AnythingOfType("types.UpdateSubscriptionData")).Return(subA, nil)
	mockRepo.On("Update", mock.Anything, subB.UUID, mock.AnythingOfType("types.UpdateSubscriptionData")).Return(subB, nil)
	mockUsers.On("UpdateRole", mock.Anything, userA, types.RoleCliente).Return(nil)
	mockUsers.On("UpdateRole", mock.Anything, userB, types.RoleCliente).Return(nil)

	processed, err := service.ProcessExpired(ctx)

	require.NoError(t, err)
	assert.Equal(t, 2, processed)
	mockUsers.AssertExpectations(t)
}

func TestProcessExpiredSurvivesRecordFailure(t *testing.T) {
	mockRepo := new(MockRepository)
	mockUsers := new(MockUserDirectory)
	service := newTestService(mockRepo, mockUsers)
	ctx := context.Background()

	userA := uuid.New()
	userB := uuid.New()
	subA := &types.Subscription{UUID: uuid.New(), UserID: userA, Status: types.SubscriptionActive}
	subB := &types.Subscription{UUID: uuid.New(), UserID: userB, Status: types.SubscriptionActive}

	mockRepo.On("FindExpired", mock.Anything).Return([]*types.Subscription{subA, subB}, nil)
	mockRepo.On("Update", mock.Anything, subA.UUID, mock.AnythingOfType("types.UpdateSubscriptionData")).
		Return(nil, errors.New("deadlock"))
	mockRepo.On("Update", mock.Anything, subB.UUID, mock.AnythingOfType("types.UpdateSubscriptionData")).Return(subB, nil)
	mockUsers.On("UpdateRole", mock.Anything, userB, types.RoleCliente).Return(nil)

	processed, err := service.ProcessExpired(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	mockUsers.AssertNotCalled(t, "UpdateRole", mock.Anything, userA, types.RoleCliente)
}

func TestProcessExpiredNothingToDo(t *testing.T) {
	mockRepo := new(MockRepository)
	mockUsers := new(MockUserDirectory)
	service := newTestService(mockRepo, mockUsers)
	ctx := context.Background()

	mockRepo.On("FindExpired", mock.Anything).Return([]*types.Subscription{}, nil)

	processed, err := service.ProcessExpired(ctx)

	require.NoError(t, err)
	assert.Equal(t, 0, processed)
	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetMySubscriptionWithoutActive(t *testing.T) {
	mockRepo := new(MockRepository)
	mockUsers := new(MockUserDirectory)
	service := newTestService(mockRepo, mockUsers)
	ctx := context.Background()

	userID := uuid.New()
	mockRepo.On("ListByUserID", mock.Anything, userID).
		Return([]*types.Subscription{}, nil)
	mockRepo.On("FindActiveByUserID", mock.Anything, userID).
		Return(nil, types.ErrNotFound)

	view, err := service.GetMySubscription(ctx, userID)

	require.NoError(t, err)
	assert.False(t, view.HasActiveSubscription)
	assert.Nil(t, view.Subscription)
	assert.Empty(t, view.History)
	assert.Equal(t, []string{"subscribe", "view_plans"}, view.AvailableActions)
}

func TestGetMySubscriptionLapsedOffersReactivation(t *testing.T) {
	mockRepo := new(MockRepository)
	mockUsers := new(MockUserDirectory)
	service := newTestService(mockRepo, mockUsers)
	ctx := context.Background()

	userID := uuid.New()
	expired := time.Now().Add(-24 * time.Hour)
	lapsed := &types.Subscription{
		UUID:      uuid.New(),
		UserID:    userID,
		Status:    types.SubscriptionActive,
		ExpiresAt: &expired,
	}

	mockRepo.On("ListByUserID", mock.Anything, userID).
		Return([]*types.Subscription{lapsed}, nil)
	mockRepo.On("FindActiveByUserID", mock.Anything, userID).
		Return(nil, types.ErrNotFound)

	view, err := service.GetMySubscription(ctx, userID)

	require.NoError(t, err)
	assert.False(t, view.HasActiveSubscription)
	assert.Equal(t, lapsed, view.Subscription)
	assert.Contains(t, view.AvailableActions, "reactivate_subscription")
	assert.Contains(t, view.AvailableActions, "subscribe_new_plan")
	assert.Contains(t, view.AvailableActions, "view_subscription_history")
	assert.Contains(t, view.AvailableActions, "download_invoices")
	assert.NotContains(t, view.AvailableActions, "subscribe")
}

func TestGetMySubscriptionCancelledHistoryOffersSubscribe(t *testing.T) {
	mockRepo := new(MockRepository)
	mockUsers := new(MockUserDirectory)
	service := newTestService(mockRepo, mockUsers)
	ctx := context.Background()

	userID := uuid.New()
	old := &types.Subscription{
		UUID:   uuid.New(),
		UserID: userID,
		Status: types.SubscriptionCancelled,
	}

	mockRepo.On("ListByUserID", mock.Anything, userID).
		Return([]*types.Subscription{old}, nil)
	mockRepo.On("FindActiveByUserID", mock.Anything, userID).
		Return(nil, types.ErrNotFound)

	view, err := service.GetMySubscription(ctx, userID)

	require.NoError(t, err)
	assert.Equal(t, []string{"subscribe", "view_plans"}, view.AvailableActions)
	assert.Equal(t, []*types.Subscription{old}, view.History)
}

func TestGetMySubscriptionDerivesActions(t *testing.T) {
	mockRepo := new(MockRepository)
	mockUsers := new(MockUserDirectory)
	service := newTestService(mockRepo, mockUsers)
	ctx := context.Background()

	plan := monthlyPlan()
	userID := uuid.New()
	expires := time.Now().Add(3 * 24 * time.Hour)
	sub := &types.Subscription{
		UUID:      uuid.New(),
		UserID:    userID,
		PlanID:    plan.ID,
		Status:    types.SubscriptionActive,
		ExpiresAt: &expires,
		AutoRenew: true,
	}

	mockRepo.On("ListByUserID", mock.Anything, userID).Return([]*types.Subscription{sub}, nil)
	mockRepo.On("FindActiveByUserID", mock.Anything, userID).Return(sub, nil)
	mockRepo.On("GetWithPlan", mock.Anything, sub.UUID).
		Return(&types.SubscriptionWithPlan{Subscription: sub, Plan: plan}, nil)

	view, err := service.GetMySubscription(ctx, userID)

	require.NoError(t, err)
	assert.True(t, view.HasActiveSubscription)
	assert.True(t, view.ExpiringSoon)
	assert.Equal(t, []*types.Subscription{sub}, view.History)
	assert.Contains(t, view.AvailableActions, "cancel_subscription")
	assert.Contains(t, view.AvailableActions, "update_payment_method")
	assert.Contains(t, view.AvailableActions, "download_invoices")
	assert.Contains(t, view.AvailableActions, "disable_auto_renew")
	assert.NotContains(t, view.AvailableActions, "enable_auto_renew")
	assert.Contains(t, view.AvailableActions, "renew_subscription")
	assert.Contains(t, view.AvailableActions, "view_subscription_history")
	assert.Equal(t, plan, view.Plan)
}
