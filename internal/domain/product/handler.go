package product

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vendo-app/vendo-api/internal/types"
	"github.com/vendo-app/vendo-api/pkg/httputil"
	"github.com/vendo-app/vendo-api/pkg/middleware"
)

// Handler exposes the marketplace listing endpoints.
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

// PublicRoutes serve the storefront without authentication.
func (h *Handler) PublicRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/search", h.Search)
	r.Get("/{uuid}", h.Get)
	return r
}

// SellerRoutes are mounted behind authentication plus the seller policy.
func (h *Handler) SellerRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/mine", h.ListMine)
	r.Put("/{uuid}", h.Update)
	r.Delete("/{uuid}", h.Delete)
	return r
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	products, err := h.service.List(r.Context(), q.Get("category"), limit, offset)
	if err != nil {
		httputil.RespondServiceError(w, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, products)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	products, err := h.service.Search(r.Context(), q.Get("q"), q.Get("category"), limit, offset)
	if err != nil {
		httputil.RespondServiceError(w, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, products)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	productUUID, err := uuid.Parse(chi.URLParam(r, "uuid"))
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid product uuid")
		return
	}

	product, err := h.service.Get(r.Context(), productUUID)
	if err != nil {
		httputil.RespondServiceError(w, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, product)
}

type createProductBody struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	Category      string          `json:"category"`
	Images        []string        `json:"images,omitempty"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	role, _ := middleware.UserRoleFromContext(r.Context())

	var body createProductBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.service.Create(r.Context(), role, types.CreateProductData{
		SellerID:      userID,
		Name:          body.Name,
		Description:   body.Description,
		Price:         body.Price,
		StockQuantity: body.StockQuantity,
		Category:      body.Category,
		Images:        body.Images,
	})
	if err != nil {
		httputil.RespondServiceError(w, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusCreated, product)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	products, err := h.service.ListMine(r.Context(), userID)
	if err != nil {
		httputil.RespondServiceError(w, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, products)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	productUUID, err := uuid.Parse(chi.URLParam(r, "uuid"))
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid product uuid")
		return
	}

	var params types.UpdateProductParams
	if err := httputil.DecodeJSON(r, &params); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.service.Update(r.Context(), userID, productUUID, params)
	if err != nil {
		httputil.RespondServiceError(w, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, product)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	productUUID, err := uuid.Parse(chi.URLParam(r, "uuid"))
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid product uuid")
		return
	}

	if err := h.service.Delete(r.Context(), userID, productUUID); err != nil {
		httputil.RespondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
