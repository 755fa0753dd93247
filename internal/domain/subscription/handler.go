package subscription

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vendo-app/vendo-api/internal/types"
	"github.com/vendo-app/vendo-api/pkg/httputil"
	"github.com/vendo-app/vendo-api/pkg/middleware"
)

// Handler exposes the subscription lifecycle over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
	}
}

// PublicRoutes are mounted without authentication.
func (h *Handler) PublicRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListPlans)
	return r
}

// Routes are mounted behind the authentication middleware.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/subscribe", h.Subscribe)
	r.Get("/my-subscription", h.GetMySubscription)
	r.Get("/history", h.History)
	r.Post("/{uuid}/cancel", h.Cancel)
	return r
}

// AdminRoutes are mounted behind authentication plus the memberships role
// check.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/plans", h.CreatePlan)
	r.Put("/plans/{uuid}", h.UpdatePlan)
	r.Delete("/plans/{uuid}", h.DeactivatePlan)
	r.Get("/stats", h.Stats)
	r.Get("/expiring", h.ListExpiring)
	r.Post("/process-expired", h.ProcessExpired)
	return r
}

func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	listing, err := h.service.ListPlans(r.Context())
	if err != nil {
		httputil.RespondServiceError(w, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, listing)
}

type subscribeBody struct {
	PlanUUID         string  `json:"plan_uuid"`
	PaymentMethod    *string `json:"payment_method,omitempty"`
	PaymentReference *string `json:"payment_reference,omitempty"`
	AutoRenew        bool    `json:"auto_renew"`
}

func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var body subscribeBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	planUUID, err := uuid.Parse(body.PlanUUID)
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid plan uuid")
		return
	}

	result, err := h.service.Subscribe(r.Context(), SubscribeRequest{
		UserID:           userID,
		PlanUUID:         planUUID,
		PaymentMethod:    body.PaymentMethod,
		PaymentReference: body.PaymentReference,
		AutoRenew:        body.AutoRenew,
	})
	if err != nil {
		httputil.RespondServiceError(w, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusCreated, result)
}

func (h *Handler) GetMySubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	view, err := h.service.GetMySubscription(r.Context(), userID)
	if err != nil {
		httputil.RespondServiceError(w, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, view)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	subs, err := h.service.History(r.Context(), userID)
	if err != nil {
		httputil.RespondServiceError(w, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, subs)
}

type cancelBody struct {
	Reason    string `json:"reason"`
	Immediate bool   `json:"immediate"`
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	subUUID, err := uuid.Parse(chi.URLParam(r, "uuid"))
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid subscription uuid")
		return
	}

	var body cancelBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.service.Cancel(r.Context(), CancelRequest{
		UserID:           userID,
		SubscriptionUUID: subUUID,
		Reason:           body.Reason,
		Immediate:        body.Immediate,
	})
	if err != nil {
		httputil.RespondServiceError(w, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, result)
}

func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var data types.CreatePlanData
	if err := httputil.DecodeJSON(r, &data); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	plan, err := h.service.CreatePlan(r.Context(), data)
	if err != nil {
		httputil.RespondServiceError(w, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusCreated, plan)
}

func (h *Handler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	planUUID, err := uuid.Parse(chi.URLParam(r, "uuid"))
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid plan uuid")
		return
	}

	var data types.UpdatePlanData
	if err := httputil.DecodeJSON(r, &data); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	plan, err := h.service.UpdatePlan(r.Context(), planUUID, data)
	if err != nil {
		httputil.RespondServiceError(w, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, plan)
}

func (h *Handler) DeactivatePlan(w http.ResponseWriter, r *http.Request) {
	planUUID, err := uuid.Parse(chi.URLParam(r, "uuid"))
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid plan uuid")
		return
	}

	if err := h.service.DeactivatePlan(r.Context(), planUUID); err != nil {
		httputil.RespondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		httputil.RespondServiceError(w, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, stats)
}

func (h *Handler) ListExpiring(w http.ResponseWriter, r *http.Request) {
	subs, err := h.service.NotifyExpiringSoon(r.Context())
	if err != nil {
		httputil.RespondServiceError(w, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, subs)
}

func (h *Handler) ProcessExpired(w http.ResponseWriter, r *http.Request) {
	processed, err := h.service.ProcessExpired(r.Context())
	if err != nil {
		httputil.RespondServiceError(w, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, map[string]int{"processed": processed})
}
