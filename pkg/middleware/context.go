package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/vendo-app/vendo-api/internal/types"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	userIDKey    contextKey = "user_id"
	userRoleKey  contextKey = "user_role"
)

// RequestIDFromContext returns the request id set by RequestID.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok
}

// UserIDFromContext returns the authenticated user's id.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok
}

// UserRoleFromContext returns the authenticated user's role claim.
func UserRoleFromContext(ctx context.Context) (types.UserRole, bool) {
	role, ok := ctx.Value(userRoleKey).(types.UserRole)
	return role, ok
}

// WithUser stores the authenticated identity on the context. Exposed for
// handler tests.
func WithUser(ctx context.Context, userID uuid.UUID, role types.UserRole) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, userRoleKey, role)
}
