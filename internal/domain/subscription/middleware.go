package subscription

import (
	"context"
	"net/http"

	"github.com/vendo-app/vendo-api/internal/types"
	"github.com/vendo-app/vendo-api/pkg/httputil"
	"github.com/vendo-app/vendo-api/pkg/middleware"
)

type decisionKey struct{}

// DecisionFromContext returns the access decision attached by
// RequirePremium, when present.
func DecisionFromContext(ctx context.Context) (AccessDecision, bool) {
	d, ok := ctx.Value(decisionKey{}).(AccessDecision)
	return d, ok
}

// RequirePremium gates a route on premium access. The decision is attached
// to the request context so downstream handlers can tell a role grant from a
// subscription grant.
func RequirePremium(s *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := middleware.UserIDFromContext(r.Context())
			if !ok {
				httputil.RespondWithError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			role, _ := middleware.UserRoleFromContext(r.Context())

			decision, err := s.CheckPremiumAccess(r.Context(), userID, role)
			if err != nil {
				httputil.RespondServiceError(w, err)
				return
			}
			if !decision.Allowed() {
				httputil.RespondWithError(w, http.StatusForbidden, "an active subscription is required")
				return
			}

			ctx := context.WithValue(r.Context(), decisionKey{}, decision)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSeller gates a route on the configured seller policy.
func RequireSeller(s *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := middleware.UserIDFromContext(r.Context())
			if !ok {
				httputil.RespondWithError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			role, _ := middleware.UserRoleFromContext(r.Context())

			allowed, err := s.CanSell(r.Context(), userID, role)
			if err != nil {
				httputil.RespondServiceError(w, err)
				return
			}
			if !allowed {
				httputil.RespondWithError(w, http.StatusForbidden, "selling is not enabled for this account")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireMemberships gates a route on the memberships role alone, without a
// subscription lookup. Used for the administrative surface.
func RequireMemberships(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := middleware.UserRoleFromContext(r.Context())
		if !ok || role != types.RoleMemberships {
			httputil.RespondWithError(w, http.StatusForbidden, "membership role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
