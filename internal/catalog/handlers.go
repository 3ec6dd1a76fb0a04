package catalog

import (
	"errors"
	"net/http"

	"github.com/noah-isme/tokobaju-api/internal/common"
)

// Handler exposes catalog endpoints. Reads are public; writes are mounted behind admin auth.
type Handler struct {
	service *Service
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service}
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "CATALOG_NOT_CONFIGURED", "catalog service not configured", nil)
		return false
	}
	return true
}

// Products handles GET /api/products with ?q, ?category and pagination.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	params, err := h.service.ParseListParams(r.URL.Query())
	if err != nil {
		h.writeError(w, err)
		return
	}
	result, err := h.service.ListProducts(r.Context(), params)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.SetTotalCount(w, result.Total)
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       result.Items,
		"pagination": common.Pagination{Page: result.Page, PerPage: result.Limit, TotalItems: int(result.Total)},
	})
}

// Product handles GET /api/products/{id}.
func (h *Handler) Product(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, err := common.UUIDParam(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}
	p, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, p)
}

// CreateProduct handles POST /api/products.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var in ProductInput
	if err := common.DecodeJSON(r, &in); err != nil {
		h.writeError(w, err)
		return
	}
	p, err := h.service.CreateProduct(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, p)
}

// UpdateProduct handles PUT /api/products/{id}.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, err := common.UUIDParam(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}
	var in ProductInput
	if err := common.DecodeJSON(r, &in); err != nil {
		h.writeError(w, err)
		return
	}
	p, err := h.service.UpdateProduct(r.Context(), id, in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, p)
}

// DeleteProduct handles DELETE /api/products/{id}.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, err := common.UUIDParam(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Categories handles GET /api/categories.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	rows, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.List(w, rows, int64(len(rows)))
}

// Category handles GET /api/categories/{id}.
func (h *Handler) Category(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, err := common.UUIDParam(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}
	c, err := h.service.GetCategory(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, c)
}

// CreateCategory handles POST /api/categories.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var in CategoryInput
	if err := common.DecodeJSON(r, &in); err != nil {
		h.writeError(w, err)
		return
	}
	c, err := h.service.CreateCategory(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, c)
}

// UpdateCategory handles PUT /api/categories/{id}.
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, err := common.UUIDParam(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}
	var in CategoryInput
	if err := common.DecodeJSON(r, &in); err != nil {
		h.writeError(w, err)
		return
	}
	c, err := h.service.UpdateCategory(r.Context(), id, in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, c)
}

// DeleteCategory handles DELETE /api/categories/{id}.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, err := common.UUIDParam(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.service.DeleteCategory(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrProductNotFound):
		common.JSONError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found", nil)
	case errors.Is(err, ErrCategoryNotFound):
		common.JSONError(w, http.StatusNotFound, "CATEGORY_NOT_FOUND", "category not found", nil)
	case errors.Is(err, ErrDuplicateCategory):
		common.JSONError(w, http.StatusConflict, "CONFLICT", "category already exists", nil)
	case common.IsAppError(err):
		common.WriteError(w, err)
	default:
		h.service.logger.Error().Err(err).Msg("catalog request failed")
		common.WriteError(w, err)
	}
}
