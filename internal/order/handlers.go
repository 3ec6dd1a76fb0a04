package order

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/noah-isme/tokobaju-api/internal/common"
	"github.com/noah-isme/tokobaju-api/internal/lock"
	"github.com/noah-isme/tokobaju-api/internal/pricing"
	"github.com/noah-isme/tokobaju-api/internal/promo"
)

// Handler exposes checkout and order management endpoints.
type Handler struct {
	Svc *Service
}

// AppError converts order failures into API errors.
func AppError(err error) error {
	if appErr := promo.AppError(err); appErr != nil {
		return appErr
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return common.NewAppError("ORDER_NOT_FOUND", "order not found", http.StatusNotFound, err)
	case errors.Is(err, ErrInvalidStatus):
		return common.NewAppError("INVALID_STATUS", "status must be a non-empty label of at most 32 characters", http.StatusBadRequest, err)
	case errors.Is(err, pricing.ErrNoItems), errors.Is(err, pricing.ErrInvalidQuantity),
		errors.Is(err, pricing.ErrNegativePrice), errors.Is(err, pricing.ErrNegativeInput),
		errors.Is(err, pricing.ErrAmountOverflow):
		return common.NewAppError("INVALID_ORDER", err.Error(), http.StatusBadRequest, err)
	case errors.Is(err, lock.ErrNotAcquired):
		return common.NewAppError("CHECKOUT_IN_PROGRESS", "another checkout is in progress", http.StatusConflict, err)
	}
	return err
}

func (h Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	mapped := AppError(err)
	if !common.IsAppError(mapped) {
		h.Svc.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("order request failed")
	}
	common.WriteError(w, mapped)
}

func (h Handler) ready(w http.ResponseWriter) bool {
	if h.Svc == nil || h.Svc.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "ORDER_NOT_CONFIGURED", "order service not configured", nil)
		return false
	}
	return true
}

// Create places an order. An authenticated caller always orders as themselves.
func (h Handler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var in CreateInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	if uid, ok := common.UserID(r.Context()); ok && uid != "" {
		in.UserID = uid
	}
	o, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.Data(w, http.StatusCreated, o)
}

// Get returns one order. Orders tied to a user are visible to that user and admins.
func (h Handler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, err := common.UUIDParam(r, "id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	o, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if o.UserID != nil && !common.CanAccessUser(r.Context(), *o.UserID) {
		common.JSONError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found", nil)
		return
	}
	common.Data(w, http.StatusOK, o)
}

// List returns all orders for administrators, optionally filtered by ?status=.
func (h Handler) List(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	perPage = common.ClampPerPage(perPage, 100)
	orders, total, err := h.Svc.List(r.Context(), r.URL.Query().Get("status"), perPage, common.Offset(page, perPage))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.List(w, orders, total)
}

// ListByUser returns a user's order history.
func (h Handler) ListByUser(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	userID, err := common.UUIDParam(r, "userId")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if !common.CanAccessUser(r.Context(), userID.String()) {
		common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "forbidden", nil)
		return
	}
	orders, err := h.Svc.ListByUser(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.List(w, orders, int64(len(orders)))
}

// UpdateStatus accepts either a bare JSON string or {"status": "..."}.
func (h Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, err := common.UUIDParam(r, "id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	status, err := decodeStatus(r.Body)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "body must be a status string or {\"status\": string}", nil)
		return
	}
	actor, _ := common.UserID(r.Context())
	o, err := h.Svc.UpdateStatus(r.Context(), id, status, actor)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.Data(w, http.StatusOK, o)
}

func decodeStatus(body io.Reader) (string, error) {
	if body == nil {
		return "", errors.New("empty body")
	}
	var raw json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return "", err
	}
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}
	var obj struct {
		Status string `json:"status"`
	}
	err := json.Unmarshal(raw, &obj)
	return obj.Status, err
}
