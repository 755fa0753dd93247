package subscription

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vendo-app/vendo-api/internal/types"
)

// AccessKind discriminates the premium access decision.
type AccessKind string

const (
	// AccessUnrestricted means the role alone grants access, no
	// subscription lookup happened.
	AccessUnrestricted AccessKind = "unrestricted"
	// AccessSubscribed means a live subscription grants access.
	AccessSubscribed AccessKind = "subscribed"
	// AccessDenied means neither role nor subscription grants access.
	AccessDenied AccessKind = "denied"
)

// AccessDecision is the outcome of a premium access check. Subscription is
// populated only for AccessSubscribed.
type AccessDecision struct {
	Kind         AccessKind          `json:"kind"`
	Subscription *types.Subscription `json:"subscription,omitempty"`
}

// Allowed reports whether the decision grants access.
func (d AccessDecision) Allowed() bool {
	return d.Kind != AccessDenied
}

// SellerPolicy decides whether a user may list products for sale. The default
// requires a live subscription; deployments can swap in a stricter rule.
type SellerPolicy interface {
	CanSell(ctx context.Context, role types.UserRole, sub *types.Subscription) bool
}

// LiveSubscriptionPolicy allows selling while the subscription is active and
// unexpired. Membership accounts always pass.
type LiveSubscriptionPolicy struct{}

func (LiveSubscriptionPolicy) CanSell(_ context.Context, role types.UserRole, sub *types.Subscription) bool {
	if role == types.RoleMemberships {
		return true
	}
	return sub != nil && sub.IsLive()
}

// DenyAllPolicy is the kill switch for marketplace selling.
type DenyAllPolicy struct{}

func (DenyAllPolicy) CanSell(context.Context, types.UserRole, *types.Subscription) bool {
	return false
}

// CheckPremiumAccess evaluates premium access for a user. Admins and users
// already projected into the memberships role skip the subscription lookup.
func (s *Service) CheckPremiumAccess(ctx context.Context, userID uuid.UUID, role types.UserRole) (AccessDecision, error) {
	ctx, span := otel.Tracer("SubscriptionService").Start(ctx, "CheckPremiumAccess", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("user.role", string(role)),
	))
	defer span.End()

	if role == types.RoleMemberships {
		span.SetStatus(codes.Ok, "Access granted by role")
		return AccessDecision{Kind: AccessUnrestricted}, nil
	}

	sub, err := s.repo.FindActiveByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			span.SetStatus(codes.Ok, "Access denied, no active subscription")
			return AccessDecision{Kind: AccessDenied}, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Subscription lookup failed")
		return AccessDecision{}, fmt.Errorf("failed to check premium access: %w", err)
	}

	if !sub.IsLive() {
		span.SetStatus(codes.Ok, "Access denied, subscription not live")
		return AccessDecision{Kind: AccessDenied}, nil
	}

	span.SetStatus(codes.Ok, "Access granted by subscription")
	return AccessDecision{Kind: AccessSubscribed, Subscription: sub}, nil
}

// CanSell applies the configured seller policy to the user's current state.
func (s *Service) CanSell(ctx context.Context, userID uuid.UUID, role types.UserRole) (bool, error) {
	ctx, span := otel.Tracer("SubscriptionService").Start(ctx, "CanSell", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	sub, err := s.repo.FindActiveByUserID(ctx, userID)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Subscription lookup failed")
		return false, fmt.Errorf("failed to evaluate seller policy: %w", err)
	}

	allowed := s.sellerPolicy.CanSell(ctx, role, sub)
	span.SetAttributes(attribute.Bool("seller.allowed", allowed))
	span.SetStatus(codes.Ok, "Seller policy evaluated")
	return allowed, nil
}
