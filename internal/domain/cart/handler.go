package cart

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vendo-app/vendo-api/pkg/httputil"
	"github.com/vendo-app/vendo-api/pkg/middleware"
)

// Handler exposes the cart endpoints. Mounted behind authentication.
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

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Get)
	r.Get("/summary", h.Summary)
	r.Post("/items", h.AddItem)
	r.Put("/items/{productUUID}", h.SetItemQuantity)
	r.Delete("/items/{productUUID}", h.RemoveItem)
	r.Delete("/", h.Clear)
	return r
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	cart, err := h.service.Get(r.Context(), userID)
	if err != nil {
		httputil.RespondServiceError(w, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, cart)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	summary, err := h.service.Summary(r.Context(), userID)
	if err != nil {
		httputil.RespondServiceError(w, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, summary)
}

type addItemBody struct {
	ProductUUID string `json:"product_uuid"`
	Quantity    int    `json:"quantity"`
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var body addItemBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	productUUID, err := uuid.Parse(body.ProductUUID)
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid product uuid")
		return
	}

	cart, err := h.service.AddItem(r.Context(), userID, productUUID, body.Quantity)
	if err != nil {
		httputil.RespondServiceError(w, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, cart)
}

type setQuantityBody struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) SetItemQuantity(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	productUUID, err := uuid.Parse(chi.URLParam(r, "productUUID"))
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid product uuid")
		return
	}

	var body setQuantityBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cart, err := h.service.SetItemQuantity(r.Context(), userID, productUUID, body.Quantity)
	if err != nil {
		httputil.RespondServiceError(w, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, cart)
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	productUUID, err := uuid.Parse(chi.URLParam(r, "productUUID"))
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid product uuid")
		return
	}

	cart, err := h.service.RemoveItem(r.Context(), userID, productUUID)
	if err != nil {
		httputil.RespondServiceError(w, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, cart)
}

func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.service.Clear(r.Context(), userID); err != nil {
		httputil.RespondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
