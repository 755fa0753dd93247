package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubscriptionStatus represents the lifecycle state of a user subscription.
type SubscriptionStatus string

const (
	SubscriptionPending   SubscriptionStatus = "pending"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// AllowedPaymentMethods is the fixed set accepted for paid plans.
var AllowedPaymentMethods = []string{"stripe", "paypal", "credit_card", "manual"}

// AutomatedPaymentMethods require a payment reference at subscribe time.
var AutomatedPaymentMethods = []string{"stripe", "paypal"}

// SubscriptionPlan is a purchasable tier defining price, duration and feature
// limits. Plans are soft-disabled via IsActive, never deleted.
type SubscriptionPlan struct {
	ID                  int64           `json:"id"`
	UUID                uuid.UUID       `json:"uuid"`
	Name                string          `json:"name"`
	Description         *string         `json:"description,omitempty"`
	Price               decimal.Decimal `json:"price"`
	DurationDays        int             `json:"duration_days"`
	MaxProducts         int             `json:"max_products"` // -1 = unlimited
	MaxImagesPerProduct int             `json:"max_images_per_product"`
	Features            []string        `json:"features"`
	IsActive            bool            `json:"is_active"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// IsFree reports whether the plan costs nothing.
func (p *SubscriptionPlan) IsFree() bool {
	return p.Price.IsZero()
}

// HasUnlimitedProducts reports whether the plan caps product listings.
func (p *SubscriptionPlan) HasUnlimitedProducts() bool {
	return p.MaxProducts == -1
}

// MonthlyPrice normalizes the price to a 30-day month. Plans of a month or
// less cost their full price per month.
func (p *SubscriptionPlan) MonthlyPrice() decimal.Decimal {
	if p.DurationDays <= 30 {
		return p.Price
	}
	months := decimal.NewFromInt(int64(p.DurationDays)).Div(decimal.NewFromInt(30))
	return p.Price.Div(months)
}

// Savings returns how much this plan saves against paying the given monthly
// plan for the same span. Zero for monthly-or-shorter plans.
func (p *SubscriptionPlan) Savings(monthly *SubscriptionPlan) decimal.Decimal {
	if p.DurationDays <= 30 {
		return decimal.Zero
	}
	months := decimal.NewFromInt(int64(p.DurationDays)).Div(decimal.NewFromInt(30))
	return monthly.Price.Mul(months).Sub(p.Price)
}

// DurationInMonths rounds the plan duration to whole months.
func (p *SubscriptionPlan) DurationInMonths() int {
	return int(float64(p.DurationDays)/30 + 0.5)
}

// Subscription is a user's time-bounded enrollment in a plan. StartedAt and
// ExpiresAt stay nil until activation.
type Subscription struct {
	ID                 int64              `json:"id"`
	UUID               uuid.UUID          `json:"uuid"`
	UserID             uuid.UUID          `json:"user_id"`
	PlanID             int64              `json:"subscription_plan_id"`
	Status             SubscriptionStatus `json:"status"`
	StartedAt          *time.Time         `json:"started_at,omitempty"`
	ExpiresAt          *time.Time         `json:"expires_at,omitempty"`
	PaymentMethod      *string            `json:"payment_method,omitempty"`
	PaymentReference   *string            `json:"-"`
	PaymentAmount      *decimal.Decimal   `json:"payment_amount,omitempty"`
	AutoRenew          bool               `json:"auto_renew"`
	CancelledAt        *time.Time         `json:"cancelled_at,omitempty"`
	CancellationReason *string            `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// IsLive reports whether the subscription currently grants access: status
// active and not yet past its expiry.
func (s *Subscription) IsLive() bool {
	if s.Status != SubscriptionActive || s.ExpiresAt == nil {
		return false
	}
	return time.Now().Before(*s.ExpiresAt)
}

// IsExpiringSoon reports whether the subscription expires within the given
// number of days.
func (s *Subscription) IsExpiringSoon(days int) bool {
	if !s.IsLive() {
		return false
	}
	warning := time.Now().AddDate(0, 0, days)
	return !s.ExpiresAt.After(warning)
}

// DaysRemaining returns the whole days left until expiry, zero when the
// subscription is not live.
func (s *Subscription) DaysRemaining() int {
	if !s.IsLive() {
		return 0
	}
	remaining := time.Until(*s.ExpiresAt)
	return int((remaining + 24*time.Hour - time.Nanosecond) / (24 * time.Hour))
}

// CreateSubscriptionData carries the fields needed to insert a pending
// subscription row.
type CreateSubscriptionData struct {
	UserID           uuid.UUID
	PlanID           int64
	PaymentMethod    *string
	PaymentReference *string
	PaymentAmount    *decimal.Decimal
	AutoRenew        bool
}

// UpdateSubscriptionData defines the mutable subscription fields. Pointers
// allow partial updates; only supplied fields change.
type UpdateSubscriptionData struct {
	Status             *SubscriptionStatus
	StartedAt          *time.Time
	ExpiresAt          *time.Time
	AutoRenew          *bool
	CancellationReason *string
}

// CreatePlanData carries the fields for administrative plan creation.
type CreatePlanData struct {
	Name                string          `json:"name"`
	Description         *string         `json:"description,omitempty"`
	Price               decimal.Decimal `json:"price"`
	DurationDays        int             `json:"duration_days"`
	MaxProducts         int             `json:"max_products"`
	MaxImagesPerProduct int             `json:"max_images_per_product"`
	Features            []string        `json:"features,omitempty"`
	IsActive            bool            `json:"is_active"`
}

// UpdatePlanData defines the mutable plan fields for partial updates.
type UpdatePlanData struct {
	Name                *string          `json:"name,omitempty"`
	Description         *string          `json:"description,omitempty"`
	Price               *decimal.Decimal `json:"price,omitempty"`
	DurationDays        *int             `json:"duration_days,omitempty"`
	MaxProducts         *int             `json:"max_products,omitempty"`
	MaxImagesPerProduct *int             `json:"max_images_per_product,omitempty"`
	Features            *[]string        `json:"features,omitempty"`
	IsActive            *bool            `json:"is_active,omitempty"`
}

// SubscriptionWithPlan pairs a subscription with its plan for composite reads.
type SubscriptionWithPlan struct {
	Subscription *Subscription     `json:"subscription"`
	Plan         *SubscriptionPlan `json:"plan"`
}

// SubscriptionStats aggregates subscription counts and revenue for admins.
type SubscriptionStats struct {
	TotalSubscriptions     int             `json:"total_subscriptions"`
	ActiveSubscriptions    int             `json:"active_subscriptions"`
	ExpiredSubscriptions   int             `json:"expired_subscriptions"`
	CancelledSubscriptions int             `json:"cancelled_subscriptions"`
	TotalRevenue           decimal.Decimal `json:"total_revenue"`
	MonthlyRevenue         decimal.Decimal `json:"monthly_revenue"`
}

// PlanRecommendations annotates the plan listing with suggestion hints.
type PlanRecommendations struct {
	Free        *uuid.UUID `json:"free,omitempty"`
	BestValue   *uuid.UUID `json:"best_value,omitempty"`
	MostPopular *uuid.UUID `json:"most_popular,omitempty"`
}
