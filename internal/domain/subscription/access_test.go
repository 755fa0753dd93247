package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vendo-app/vendo-api/internal/types"
)

func TestCheckPremiumAccessMembershipRoleSkipsLookup(t *testing.T) {
	mockRepo := new(MockRepository)
	mockUsers := new(MockUserDirectory)
	service := newTestService(mockRepo, mockUsers)
	ctx := context.Background()

	decision, err := service.CheckPremiumAccess(ctx, uuid.New(), types.RoleMemberships)

	require.NoError(t, err)
	assert.Equal(t, AccessUnrestricted, decision.Kind)
	assert.True(t, decision.Allowed())
	assert.Nil(t, decision.Subscription)
	mockRepo.AssertNotCalled(t, "FindActiveByUserID", mock.Anything, mock.Anything)
}

func TestCheckPremiumAccessLiveSubscription(t *testing.T) {
	mockRepo := new(MockRepository)
	mockUsers := new(MockUserDirectory)
	service := newTestService(mockRepo, mockUsers)
	ctx := context.Background()

	userID := uuid.New()
	expires := time.Now().Add(24 * time.Hour)
	sub := &types.Subscription{
		UUID:      uuid.New(),
		UserID:    userID,
		Status:    types.SubscriptionActive,
		ExpiresAt: &expires,
	}
	mockRepo.On("FindActiveByUserID", mock.Anything, userID).Return(sub, nil)

	decision, err := service.CheckPremiumAccess(ctx, userID, types.RoleCliente)

	require.NoError(t, err)
	assert.Equal(t, AccessSubscribed, decision.Kind)
	assert.True(t, decision.Allowed())
	assert.Equal(t, sub, decision.Subscription)
}

func TestCheckPremiumAccessDeniedWithoutSubscription(t *testing.T) {
	mockRepo := new(MockRepository)
	mockUsers := new(MockUserDirectory)
	service := newTestService(mockRepo, mockUsers)
	ctx := context.Background()

	userID := uuid.New()
	mockRepo.On("FindActiveByUserID", mock.Anything, userID).Return(nil, types.ErrNotFound)

	decision, err := service.CheckPremiumAccess(ctx, userID, types.RoleCliente)

	require.NoError(t, err)
	assert.Equal(t, AccessDenied, decision.Kind)
	assert.False(t, decision.Allowed())
}

func TestCheckPremiumAccessDeniedWhenSubscriptionStale(t *testing.T) {
	mockRepo := new(MockRepository)
	mockUsers := new(MockUserDirectory)
	service := newTestService(mockRepo, mockUsers)
	ctx := context.Background()

	userID := uuid.New()
	expires := time.Now().Add(-time.Hour)
	sub := &types.Subscription{
		UUID:      uuid.New(),
		UserID:    userID,
		Status:    types.SubscriptionActive,
		ExpiresAt: &expires,
	}
	mockRepo.On("FindActiveByUserID", mock.Anything, userID).Return(sub, nil)

	decision, err := service.CheckPremiumAccess(ctx, userID, types.RoleCliente)

	require.NoError(t, err)
	assert.Equal(t, AccessDenied, decision.Kind)
}

func TestLiveSubscriptionPolicy(t *testing.T) {
	ctx := context.Background()
	policy := LiveSubscriptionPolicy{}
	expires := time.Now().Add(24 * time.Hour)
	live := &types.Subscription{Status: types.SubscriptionActive, ExpiresAt: &expires}

	assert.True(t, policy.CanSell(ctx, types.RoleMemberships, nil))
	assert.True(t, policy.CanSell(ctx, types.RoleCliente, live))
	assert.False(t, policy.CanSell(ctx, types.RoleCliente, nil))
	assert.False(t, policy.CanSell(ctx, types.RoleCliente, &types.Subscription{Status: types.SubscriptionCancelled}))
}

func TestDenyAllPolicyIsAKillSwitch(t *testing.T) {
	ctx := context.Background()
	policy := DenyAllPolicy{}
	expires := time.Now().Add(24 * time.Hour)
	live := &types.Subscription{Status: types.SubscriptionActive, ExpiresAt: &expires}

	assert.False(t, policy.CanSell(ctx, types.RoleMemberships, live))
	assert.False(t, policy.CanSell(ctx, types.RoleCliente, live))
}
