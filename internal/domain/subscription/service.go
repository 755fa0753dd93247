package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vendo-app/vendo-api/internal/types"
	"github.com/vendo-app/vendo-api/pkg/observability"
)

// UserDirectory is the slice of the user domain the subscription lifecycle
// needs. Role projection is best effort; failures are reported, not fatal.
type UserDirectory interface {
	UpdateRole(ctx context.Context, userID uuid.UUID, role types.UserRole) error
}

// Service owns the subscription lifecycle: creation, activation, cancellation
// and expiry, plus the role projection that mirrors it.
type Service struct {
	logger         *slog.Logger
	repo           Repository
	catalog        *PlanCatalog
	users          UserDirectory
	sellerPolicy   SellerPolicy
	expiryWarnDays int
}

func NewService(repo Repository, catalog *PlanCatalog, users UserDirectory, policy SellerPolicy, expiryWarnDays int, logger *slog.Logger) *Service {
	if policy == nil {
		policy = LiveSubscriptionPolicy{}
	}
	if expiryWarnDays <= 0 {
		expiryWarnDays = 7
	}
	return &Service{
		logger:         logger,
		repo:           repo,
		catalog:        catalog,
		users:          users,
		sellerPolicy:   policy,
		expiryWarnDays: expiryWarnDays,
	}
}

// SubscribeRequest carries a checkout attempt.
type SubscribeRequest struct {
	UserID           uuid.UUID
	PlanUUID         uuid.UUID
	PaymentMethod    *string
	PaymentReference *string
	AutoRenew        bool
}

// SubscribeResult reports the activated subscription and whether the role
// projection succeeded alongside it.
type SubscribeResult struct {
	Subscription *types.Subscription     `json:"subscription"`
	Plan         *types.SubscriptionPlan `json:"plan"`
	RoleUpdated  bool                    `json:"role_updated"`
}

// CancelRequest carries a cancellation attempt. Immediate ends the
// subscription now with a prorated refund; otherwise it runs to term with
// auto-renew off.
type CancelRequest struct {
	UserID           uuid.UUID
	SubscriptionUUID uuid.UUID
	Reason           string
	Immediate        bool
}

// CancelResult reports the outcome. RefundAmount and RoleReverted are only
// meaningful for immediate cancellations; EffectiveDate is when access ends.
type CancelResult struct {
	Success       bool                `json:"success"`
	Message       string              `json:"message"`
	Subscription  *types.Subscription `json:"subscription"`
	RoleReverted  bool                `json:"role_reverted"`
	RefundAmount  *decimal.Decimal    `json:"refund_amount,omitempty"`
	EffectiveDate *time.Time          `json:"effective_date,omitempty"`
}

// MySubscription is the composite view for the account page.
type MySubscription struct {
	HasActiveSubscription bool                    `json:"has_active_subscription"`
	Subscription          *types.Subscription     `json:"subscription,omitempty"`
	Plan                  *types.SubscriptionPlan `json:"plan,omitempty"`
	DaysRemaining         int                     `json:"days_remaining"`
	ExpiringSoon          bool                    `json:"expiring_soon"`
	History               []*types.Subscription   `json:"subscription_history"`
	AvailableActions      []string                `json:"available_actions"`
}

// PlanListing pairs the purchasable plans with recommendation hints.
type PlanListing struct {
	Plans           []*types.SubscriptionPlan  `json:"plans"`
	Recommendations *types.PlanRecommendations `json:"recommendations"`
}

// ListPlans returns the purchasable plans with recommendation hints.
func (s *Service) ListPlans(ctx context.Context) (*PlanListing, error) {
	ctx, span := otel.Tracer("SubscriptionService").Start(ctx, "ListPlans")
	defer span.End()

	plans, err := s.catalog.ActivePlans(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list plans")
		return nil, err
	}

	rec, err := s.catalog.Recommendations(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to derive recommendations")
		return nil, err
	}

	span.SetStatus(codes.Ok, "Plans listed")
	return &PlanListing{Plans: plans, Recommendations: rec}, nil
}

// Subscribe runs the checkout flow: validate the plan and payment, insert the
// subscription as pending, activate it, then project the memberships role.
// The role projection is best effort; a failure leaves RoleUpdated false.
func (s *Service) Subscribe(ctx context.Context, req SubscribeRequest) (*SubscribeResult, error) {
	ctx, span := otel.Tracer("SubscriptionService").Start(ctx, "Subscribe", trace.WithAttributes(
		attribute.String("user.id", req.UserID.String()),
		attribute.String("plan.uuid", req.PlanUUID.String()),
	))
	defer span.End()

	l := s.logger.With(
		slog.String("method", "Subscribe"),
		slog.String("userID", req.UserID.String()),
		slog.String("planUUID", req.PlanUUID.String()),
	)
	l.DebugContext(ctx, "Starting subscription checkout")

	plan, err := s.repo.GetPlanByUUID(ctx, req.PlanUUID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Plan lookup failed")
		return nil, err
	}
	if !plan.IsActive {
		span.SetStatus(codes.Error, "Plan is not purchasable")
		return nil, fmt.Errorf("plan '%s' is not available: %w", plan.Name, types.ErrInactivePlan)
	}

	expired, err := s.repo.ExpireLapsed(ctx, req.UserID)
	if err != nil {
		l.WarnContext(ctx, "Failed to expire lapsed subscriptions before checkout", slog.Any("error", err))
	} else if expired > 0 {
		l.InfoContext(ctx, "Expired lapsed subscriptions before checkout", slog.Int64("count", expired))
	}

	hasActive, err := s.repo.HasActive(ctx, req.UserID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Active subscription check failed")
		return nil, err
	}
	if hasActive {
		l.InfoContext(ctx, "Checkout rejected, user already has an active subscription")
		span.SetStatus(codes.Error, "Active subscription exists")
		return nil, fmt.Errorf("user already has an active subscription: %w", types.ErrActiveSubscriptionExists)
	}

	data, err := buildSubscriptionData(plan, req)
	if err != nil {
		span.SetStatus(codes.Error, "Payment validation failed")
		return nil, err
	}

	sub, err := s.repo.Create(ctx, data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Subscription insert failed")
		return nil, err
	}

	now := time.Now()
	expiresAt := now.Add(time.Duration(plan.DurationDays) * 24 * time.Hour)
	active := types.SubscriptionActive
	pendingUUID := sub.UUID
	sub, err = s.repo.Update(ctx, pendingUUID, types.UpdateSubscriptionData{
		Status:    &active,
		StartedAt: &now,
		ExpiresAt: &expiresAt,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Activation failed")
		if errors.Is(err, types.ErrActiveSubscriptionExists) {
			s.abandonPending(ctx, l, pendingUUID)
		}
		return nil, err
	}

	roleUpdated := true
	if err := s.users.UpdateRole(ctx, req.UserID, types.RoleMemberships); err != nil {
		roleUpdated = false
		observability.RecordRoleUpdateFailure()
		l.ErrorContext(ctx, "Subscription active but role projection failed",
			slog.String("subscriptionUUID", sub.UUID.String()),
			slog.Any("error", err))
	}

	l.InfoContext(ctx, "Subscription activated",
		slog.String("subscriptionUUID", sub.UUID.String()),
		slog.String("plan", plan.Name),
		slog.Bool("roleUpdated", roleUpdated))
	span.SetStatus(codes.Ok, "Subscription activated")
	return &SubscribeResult{Subscription: sub, Plan: plan, RoleUpdated: roleUpdated}, nil
}

// abandonPending cancels a pending row whose activation lost the race for
// the single active slot, so it is not stranded in pending forever.
func (s *Service) abandonPending(ctx context.Context, l *slog.Logger, subUUID uuid.UUID) {
	cancelled := types.SubscriptionCancelled
	reason := "activation rejected: another subscription is already active"
	if _, err := s.repo.Update(ctx, subUUID, types.UpdateSubscriptionData{
		Status:             &cancelled,
		CancellationReason: &reason,
	}); err != nil {
		l.ErrorContext(ctx, "Failed to abandon pending subscription",
			slog.String("subscriptionUUID", subUUID.String()),
			slog.Any("error", err))
	}
}

// buildSubscriptionData validates the payment attempt against the plan. Free
// plans ignore payment fields entirely. Paid plans require a known method,
// and the automated gateways additionally require a reference.
func buildSubscriptionData(plan *types.SubscriptionPlan, req SubscribeRequest) (types.CreateSubscriptionData, error) {
	data := types.CreateSubscriptionData{
		UserID:    req.UserID,
		PlanID:    plan.ID,
		AutoRenew: req.AutoRenew,
	}

	if plan.IsFree() {
		return data, nil
	}

	if req.PaymentMethod == nil || *req.PaymentMethod == "" {
		return data, fmt.Errorf("payment method is required for plan '%s': %w", plan.Name, types.ErrInvalidPaymentData)
	}
	if !slices.Contains(types.AllowedPaymentMethods, *req.PaymentMethod) {
		return data, fmt.Errorf("unknown payment method '%s': %w", *req.PaymentMethod, types.ErrInvalidPaymentData)
	}
	if slices.Contains(types.AutomatedPaymentMethods, *req.PaymentMethod) {
		if req.PaymentReference == nil || *req.PaymentReference == "" {
			return data, fmt.Errorf("payment reference is required for method '%s': %w", *req.PaymentMethod, types.ErrInvalidPaymentData)
		}
	}

	amount := plan.Price
	data.PaymentMethod = req.PaymentMethod
	data.PaymentReference = req.PaymentReference
	data.PaymentAmount = &amount
	return data, nil
}

// Cancel processes a cancellation. Ownership mismatches report not found
// rather than leaking the subscription's existence. Immediate cancellation
// ends access now, reverts the role and computes a prorated refund;
// otherwise the subscription runs to term with auto-renew disabled.
func (s *Service) Cancel(ctx context.Context, req CancelRequest) (*CancelResult, error) {
	ctx, span := otel.Tracer("SubscriptionService").Start(ctx, "Cancel", trace.WithAttributes(
		attribute.String("user.id", req.UserID.String()),
		attribute.String("subscription.uuid", req.SubscriptionUUID.String()),
		attribute.Bool("cancel.immediate", req.Immediate),
	))
	defer span.End()

	l := s.logger.With(
		slog.String("method", "Cancel"),
		slog.String("subscriptionUUID", req.SubscriptionUUID.String()),
	)

	sub, err := s.repo.FindByUUID(ctx, req.SubscriptionUUID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Subscription lookup failed")
		return nil, err
	}
	if sub.UserID != req.UserID {
		l.WarnContext(ctx, "Cancellation attempt on another user's subscription",
			slog.String("requestUserID", req.UserID.String()))
		span.SetStatus(codes.Error, "Ownership mismatch")
		return nil, fmt.Errorf("subscription %s: %w", req.SubscriptionUUID, types.ErrNotFound)
	}
	if sub.Status == types.SubscriptionCancelled || sub.Status == types.SubscriptionExpired {
		span.SetStatus(codes.Error, "Subscription already ended")
		return nil, fmt.Errorf("subscription is already %s: %w", sub.Status, types.ErrCancellation)
	}

	if err := s.repo.RecordCancellation(ctx, sub.UUID, req.Reason); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to record cancellation")
		return nil, err
	}

	autoRenewOff := false

	if !req.Immediate {
		updated, err := s.repo.Update(ctx, sub.UUID, types.UpdateSubscriptionData{
			AutoRenew: &autoRenewOff,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to disable auto renew")
			return nil, err
		}
		l.InfoContext(ctx, "Subscription will end at term", slog.Any("effectiveDate", updated.ExpiresAt))
		span.SetStatus(codes.Ok, "Cancellation scheduled")
		message := "Subscription will not renew. You will keep premium access until the end of the period."
		if updated.ExpiresAt != nil {
			message = fmt.Sprintf("Subscription will be cancelled on %s. You will keep premium access until then.",
				updated.ExpiresAt.Format("Jan 2, 2006"))
		}
		return &CancelResult{
			Success:       true,
			Message:       message,
			Subscription:  updated,
			EffectiveDate: updated.ExpiresAt,
		}, nil
	}

	cancelled := types.SubscriptionCancelled
	updated, err := s.repo.Update(ctx, sub.UUID, types.UpdateSubscriptionData{
		Status:    &cancelled,
		AutoRenew: &autoRenewOff,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to cancel subscription")
		return nil, err
	}

	roleReverted := true
	if err := s.users.UpdateRole(ctx, req.UserID, types.RoleCliente); err != nil {
		roleReverted = false
		observability.RecordRoleUpdateFailure()
		l.ErrorContext(ctx, "Subscription cancelled but role revert failed", slog.Any("error", err))
	}

	refund := proratedRefund(sub, time.Now())
	now := time.Now()

	l.InfoContext(ctx, "Subscription cancelled immediately",
		slog.Bool("roleReverted", roleReverted),
		slog.Any("refund", refund))
	span.SetStatus(codes.Ok, "Subscription cancelled")
	return &CancelResult{
		Success:       true,
		Message:       "Subscription cancelled immediately. Premium access removed.",
		Subscription:  updated,
		RoleReverted:  roleReverted,
		RefundAmount:  refund,
		EffectiveDate: &now,
	}, nil
}

// proratedRefund computes payment * remainingDays / totalDays rounded to
// cents, with both day counts rounded up. Nil when nothing was paid or
// nothing remains.
func proratedRefund(sub *types.Subscription, now time.Time) *decimal.Decimal {
	if sub.PaymentAmount == nil || sub.StartedAt == nil || sub.ExpiresAt == nil {
		return nil
	}

	remaining := ceilDays(sub.ExpiresAt.Sub(now))
	total := ceilDays(sub.ExpiresAt.Sub(*sub.StartedAt))
	if remaining <= 0 || total <= 0 {
		zero := decimal.Zero
		return &zero
	}

	refund := sub.PaymentAmount.
		Mul(decimal.NewFromInt(int64(remaining))).
		Div(decimal.NewFromInt(int64(total))).
		Round(2)
	if refund.IsNegative() {
		refund = decimal.Zero
	}
	return &refund
}

func ceilDays(d time.Duration) int {
	return int(math.Ceil(d.Hours() / 24))
}

// GetMySubscription builds the account-page view. A user with no live
// subscription gets an empty view offering the subscribe action.
func (s *Service) GetMySubscription(ctx context.Context, userID uuid.UUID) (*MySubscription, error) {
	ctx, span := otel.Tracer("SubscriptionService").Start(ctx, "GetMySubscription", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	history, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "History lookup failed")
		return nil, err
	}

	sub, err := s.repo.FindActiveByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Subscription lookup failed")
			return nil, err
		}

		view := &MySubscription{History: history}
		// A row still marked active but past its expiry has not been swept
		// yet; the account can reactivate it instead of starting over.
		if latest := latestSubscription(history); latest != nil &&
			latest.Status == types.SubscriptionActive && !latest.IsLive() {
			view.Subscription = latest
			view.AvailableActions = []string{
				"reactivate_subscription", "subscribe_new_plan",
				"view_subscription_history", "download_invoices",
			}
		} else {
			view.AvailableActions = []string{"subscribe", "view_plans"}
		}
		span.SetStatus(codes.Ok, "No active subscription")
		return view, nil
	}

	withPlan, err := s.repo.GetWithPlan(ctx, sub.UUID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Plan lookup failed")
		return nil, err
	}

	view := &MySubscription{
		HasActiveSubscription: true,
		Subscription:          withPlan.Subscription,
		Plan:                  withPlan.Plan,
		DaysRemaining:         withPlan.Subscription.DaysRemaining(),
		ExpiringSoon:          withPlan.Subscription.IsExpiringSoon(s.expiryWarnDays),
		History:               history,
	}
	view.AvailableActions = append(view.AvailableActions, "cancel_subscription", "update_payment_method")
	if withPlan.Subscription.AutoRenew {
		view.AvailableActions = append(view.AvailableActions, "disable_auto_renew")
	} else {
		view.AvailableActions = append(view.AvailableActions, "enable_auto_renew")
	}
	if view.ExpiringSoon {
		view.AvailableActions = append(view.AvailableActions, "renew_subscription")
	}
	view.AvailableActions = append(view.AvailableActions, "view_subscription_history", "download_invoices")

	span.SetStatus(codes.Ok, "Subscription view built")
	return view, nil
}

// latestSubscription picks the newest record from a history listing, which
// the store returns newest first.
func latestSubscription(history []*types.Subscription) *types.Subscription {
	if len(history) == 0 {
		return nil
	}
	return history[0]
}

// ActivePlanFor returns the plan backing the user's live subscription.
// types.ErrNotFound when the user has none.
func (s *Service) ActivePlanFor(ctx context.Context, userID uuid.UUID) (*types.SubscriptionPlan, error) {
	ctx, span := otel.Tracer("SubscriptionService").Start(ctx, "ActivePlanFor", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	sub, err := s.repo.FindActiveByUserID(ctx, userID)
	if err != nil {
		span.SetStatus(codes.Error, "No active subscription")
		return nil, err
	}
	if !sub.IsLive() {
		span.SetStatus(codes.Error, "Subscription not live")
		return nil, fmt.Errorf("active subscription for user %s: %w", userID, types.ErrNotFound)
	}

	plan, err := s.repo.GetPlanByID(ctx, sub.PlanID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Plan lookup failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "Plan resolved")
	return plan, nil
}

// History returns the user's subscription records, newest first.
func (s *Service) History(ctx context.Context, userID uuid.UUID) ([]*types.Subscription, error) {
	ctx, span := otel.Tracer("SubscriptionService").Start(ctx, "History", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	subs, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "History lookup failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "History fetched")
	return subs, nil
}

// ProcessExpired sweeps active subscriptions past their expiry: each is
// marked expired and its user's role reverted. Failures on one record are
// logged and do not stop the sweep. Returns the number of records expired.
func (s *Service) ProcessExpired(ctx context.Context) (int, error) {
	ctx, span := otel.Tracer("SubscriptionService").Start(ctx, "ProcessExpired")
	defer span.End()

	l := s.logger.With(slog.String("method", "ProcessExpired"))

	expired, err := s.repo.FindExpired(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list expired subscriptions")
		return 0, err
	}
	if len(expired) == 0 {
		span.SetStatus(codes.Ok, "Nothing to expire")
		return 0, nil
	}

	processed := 0
	status := types.SubscriptionExpired
	for _, sub := range expired {
		if _, err := s.repo.Update(ctx, sub.UUID, types.UpdateSubscriptionData{Status: &status}); err != nil {
			l.ErrorContext(ctx, "Failed to expire subscription",
				slog.String("subscriptionUUID", sub.UUID.String()),
				slog.Any("error", err))
			continue
		}
		processed++
		observability.RecordExpiredSubscription()

		if err := s.users.UpdateRole(ctx, sub.UserID, types.RoleCliente); err != nil {
			observability.RecordRoleUpdateFailure()
			l.ErrorContext(ctx, "Subscription expired but role revert failed",
				slog.String("userID", sub.UserID.String()),
				slog.Any("error", err))
		}
	}

	l.InfoContext(ctx, "Expiry sweep finished",
		slog.Int("found", len(expired)),
		slog.Int("expired", processed))
	span.SetAttributes(attribute.Int("subscription.processed", processed))
	span.SetStatus(codes.Ok, "Sweep finished")
	return processed, nil
}

// NotifyExpiringSoon surfaces subscriptions approaching expiry. Delivery is a
// log line for now; the return value feeds the admin endpoint.
func (s *Service) NotifyExpiringSoon(ctx context.Context) ([]*types.Subscription, error) {
	ctx, span := otel.Tracer("SubscriptionService").Start(ctx, "NotifyExpiringSoon")
	defer span.End()

	subs, err := s.repo.FindExpiringSoon(ctx, s.expiryWarnDays)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list expiring subscriptions")
		return nil, err
	}

	for _, sub := range subs {
		s.logger.InfoContext(ctx, "Subscription expiring soon",
			slog.String("userID", sub.UserID.String()),
			slog.String("subscriptionUUID", sub.UUID.String()),
			slog.Int("daysRemaining", sub.DaysRemaining()))
	}

	span.SetAttributes(attribute.Int("subscription.expiring_count", len(subs)))
	span.SetStatus(codes.Ok, "Expiring subscriptions listed")
	return subs, nil
}

// CreatePlan adds a plan and drops the catalog cache. Administrative.
func (s *Service) CreatePlan(ctx context.Context, data types.CreatePlanData) (*types.SubscriptionPlan, error) {
	ctx, span := otel.Tracer("SubscriptionService").Start(ctx, "CreatePlan")
	defer span.End()

	plan, err := s.repo.CreatePlan(ctx, data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Plan creation failed")
		return nil, err
	}

	s.catalog.Invalidate()
	span.SetStatus(codes.Ok, "Plan created")
	return plan, nil
}

// UpdatePlan edits a plan and drops the catalog cache. Administrative.
func (s *Service) UpdatePlan(ctx context.Context, planUUID uuid.UUID, data types.UpdatePlanData) (*types.SubscriptionPlan, error) {
	ctx, span := otel.Tracer("SubscriptionService").Start(ctx, "UpdatePlan", trace.WithAttributes(
		attribute.String("plan.uuid", planUUID.String()),
	))
	defer span.End()

	plan, err := s.repo.UpdatePlan(ctx, planUUID, data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Plan update failed")
		return nil, err
	}

	s.catalog.Invalidate()
	span.SetStatus(codes.Ok, "Plan updated")
	return plan, nil
}

// DeactivatePlan retires a plan from sale. Existing subscriptions run to
// term. Administrative.
func (s *Service) DeactivatePlan(ctx context.Context, planUUID uuid.UUID) error {
	ctx, span := otel.Tracer("SubscriptionService").Start(ctx, "DeactivatePlan", trace.WithAttributes(
		attribute.String("plan.uuid", planUUID.String()),
	))
	defer span.End()

	if err := s.repo.DeactivatePlan(ctx, planUUID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Plan deactivation failed")
		return err
	}

	s.catalog.Invalidate()
	span.SetStatus(codes.Ok, "Plan deactivated")
	return nil
}

// Stats returns the aggregate subscription counts and revenue. Administrative.
func (s *Service) Stats(ctx context.Context) (*types.SubscriptionStats, error) {
	ctx, span := otel.Tracer("SubscriptionService").Start(ctx, "Stats")
	defer span.End()

	stats, err := s.repo.Stats(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Stats lookup failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "Stats fetched")
	return stats, nil
}
