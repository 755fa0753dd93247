package types

import "errors"

// Domain specific errors shared across features. Handlers map these to HTTP
// status codes with errors.Is.
var (
	ErrNotFound        = errors.New("requested item not found")
	ErrConflict        = errors.New("item already exists or conflict")
	ErrUnauthenticated = errors.New("authentication required or invalid credentials")
	ErrForbidden       = errors.New("action forbidden")
	ErrBadRequest      = errors.New("bad request")
)

// Subscription lifecycle errors.
var (
	// ErrActiveSubscriptionExists is returned when a user tries to subscribe
	// while an active, unexpired subscription already exists.
	ErrActiveSubscriptionExists = errors.New("user already has an active subscription")
	// ErrInactivePlan is returned when subscribing to a deactivated plan.
	ErrInactivePlan = errors.New("subscription plan is not available")
	// ErrInvalidPaymentData covers missing/unknown payment methods and missing
	// references for automated methods.
	ErrInvalidPaymentData = errors.New("invalid payment data")
	// ErrCancellation is returned when the subscription is already in a
	// terminal state and cannot be cancelled again.
	ErrCancellation = errors.New("subscription cannot be cancelled")
)
