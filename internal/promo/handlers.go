package promo

import (
	"errors"
	"net/http"

	"github.com/noah-isme/tokobaju-api/internal/common"
	"github.com/noah-isme/tokobaju-api/internal/money"
)

// Handler exposes promo administration and the public validate endpoint.
type Handler struct {
	Svc *Service
}

type validateRequest struct {
	Code       string       `json:"code" validate:"required"`
	OrderTotal money.Amount `json:"orderTotal" validate:"gte=0"`
}

// AppError converts promo failures into API errors. It returns nil for errors
// that do not belong to this package.
func AppError(err error) *common.AppError {
	var fieldErr *FieldError
	switch {
	case errors.As(err, &fieldErr):
		return common.NewAppError("VALIDATION_FAILED", fieldErr.Error(), http.StatusUnprocessableEntity, err).
			WithDetails([]map[string]string{{"field": fieldErr.Field, "message": fieldErr.Message}})
	case errors.Is(err, ErrNotFound):
		return common.NewAppError("PROMO_NOT_FOUND", "promo not found", http.StatusNotFound, err)
	case errors.Is(err, ErrDuplicateCode):
		return common.NewAppError("CONFLICT", "promo code already exists", http.StatusConflict, err)
	case errors.Is(err, ErrConsumeRejected):
		return common.NewAppError("PROMO_LIMIT_REACHED", "promo usage limit reached", http.StatusConflict, err)
	case errors.Is(err, ErrNotEligible):
		return common.NewAppError("PROMO_NOT_ELIGIBLE", "promo is not valid for this order", http.StatusBadRequest, err).
			WithDetails(map[string]string{"reason": Reason(err)})
	}
	return nil
}

func (h Handler) fail(w http.ResponseWriter, err error) {
	if appErr := AppError(err); appErr != nil {
		common.WriteError(w, appErr)
		return
	}
	h.Svc.Logger.Error().Err(err).Msg("promo request failed")
	common.WriteError(w, err)
}

func (h Handler) ready(w http.ResponseWriter) bool {
	if h.Svc == nil || h.Svc.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "PROMO_NOT_CONFIGURED", "promo service not configured", nil)
		return false
	}
	return true
}

// List returns promos newest first.
func (h Handler) List(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	perPage = common.ClampPerPage(perPage, 100)
	items, total, err := h.Svc.List(r.Context(), perPage, common.Offset(page, perPage))
	if err != nil {
		h.fail(w, err)
		return
	}
	common.List(w, items, total)
}

// Get returns a single promo.
func (h Handler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, err := common.UUIDParam(r, "id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	p, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	common.Data(w, http.StatusOK, p)
}

// Create stores a new promo.
func (h Handler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	p, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		h.fail(w, err)
		return
	}
	common.Data(w, http.StatusCreated, p)
}

// Update replaces a promo's writable fields.
func (h Handler) Update(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, err := common.UUIDParam(r, "id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	p, err := h.Svc.Update(r.Context(), id, in)
	if err != nil {
		h.fail(w, err)
		return
	}
	common.Data(w, http.StatusOK, p)
}

// Delete removes a promo.
func (h Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, err := common.UUIDParam(r, "id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Validate previews the discount a code grants on orderTotal.
func (h Handler) Validate(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var req validateRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	quote, err := h.Svc.Validate(r.Context(), req.Code, req.OrderTotal)
	if err != nil {
		h.fail(w, err)
		return
	}
	common.Data(w, http.StatusOK, quote)
}
