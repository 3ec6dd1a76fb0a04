package user

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/tokobaju-api/internal/common"
	"github.com/noah-isme/tokobaju-api/internal/money"
)

// Handler exposes account, wallet and address book endpoints.
type Handler struct {
	Service *Service
}

// AppError converts user failures into API errors.
func AppError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return common.NewAppError("USER_NOT_FOUND", "user not found", http.StatusNotFound, err)
	case errors.Is(err, ErrAddressNotFound):
		return common.NewAppError("ADDRESS_NOT_FOUND", "address not found", http.StatusNotFound, err)
	case errors.Is(err, ErrEmailTaken):
		return common.NewAppError("CONFLICT", "email already registered", http.StatusConflict, err)
	case errors.Is(err, ErrInvalidAmount):
		return common.NewAppError("INVALID_AMOUNT", err.Error(), http.StatusBadRequest, err)
	}
	return err
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h.Service == nil || h.Service.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "USER_NOT_CONFIGURED", "user service not configured", nil)
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	mapped := AppError(err)
	if !common.IsAppError(mapped) {
		h.Service.Logger.Error().Err(err).Msg("user request failed")
	}
	common.WriteError(w, mapped)
}

// ownUser resolves {id} and enforces self-or-admin access.
func (h *Handler) ownUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := common.UUIDParam(r, "id")
	if err != nil {
		common.WriteError(w, err)
		return uuid.Nil, false
	}
	if !common.CanAccessUser(r.Context(), id.String()) {
		common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "forbidden", nil)
		return uuid.Nil, false
	}
	return id, true
}

// List handles GET /api/users.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	page, limit := common.ParsePagination(r, 20)
	limit = common.ClampPerPage(limit, 100)
	users, total, err := h.Service.List(r.Context(), limit, common.Offset(page, limit))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.List(w, users, total)
}

// Get handles GET /api/users/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, ok := h.ownUser(w, r)
	if !ok {
		return
	}
	u, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, u)
}

// Update handles PUT /api/users/{id}. Only admins may change roles.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, ok := h.ownUser(w, r)
	if !ok {
		return
	}
	var in UpdateInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	u, err := h.Service.Update(r.Context(), id, in, common.IsAdmin(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, u)
}

// TopUp handles POST /api/users/{id}/wallet/topup. The body is a bare number or {"amount": n}.
func (h *Handler) TopUp(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, ok := h.ownUser(w, r)
	if !ok {
		return
	}
	amount, err := decodeAmount(r.Body)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "body must be an amount or {\"amount\": number}", nil)
		return
	}
	balance, err := h.Service.TopUp(r.Context(), id, amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, map[string]money.Amount{"balance": balance})
}

// Addresses handles GET /api/users/{id}/addresses.
func (h *Handler) Addresses(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, ok := h.ownUser(w, r)
	if !ok {
		return
	}
	addresses, err := h.Service.Addresses(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.List(w, addresses, int64(len(addresses)))
}

// AddAddress handles POST /api/users/{id}/addresses.
func (h *Handler) AddAddress(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, ok := h.ownUser(w, r)
	if !ok {
		return
	}
	var in AddressInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	address, err := h.Service.AddAddress(r.Context(), id, in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, address)
}

// DeleteAddress handles DELETE /api/users/{id}/addresses/{addressId}.
func (h *Handler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, ok := h.ownUser(w, r)
	if !ok {
		return
	}
	addressID, err := common.UUIDParam(r, "addressId")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if err := h.Service.DeleteAddress(r.Context(), id, addressID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeAmount(body io.Reader) (money.Amount, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return 0, err
	}
	var amount money.Amount
	if strings.HasPrefix(strings.TrimSpace(string(raw)), "{") {
		var obj struct {
			Amount money.Amount `json:"amount"`
		}
		err := json.Unmarshal(raw, &obj)
		return obj.Amount, err
	}
	err := json.Unmarshal(raw, &amount)
	return amount, err
}
