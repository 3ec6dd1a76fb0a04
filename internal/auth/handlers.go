package auth

import (
	"errors"
	"net/http"

	"github.com/noah-isme/tokobaju-api/internal/common"
)

// Handler exposes HTTP handlers for authentication endpoints.
type Handler struct {
	Service *Service
}

type registerRequest struct {
	FullName string `json:"fullName" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "AUTH_NOT_CONFIGURED", "auth service not configured", nil)
		return false
	}
	return true
}

// Register handles POST /api/auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var req registerRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	user, err := h.Service.Register(r.Context(), req.FullName, req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, user)
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var req loginRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	result, err := h.Service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, result)
}

// Me handles GET /api/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	userID, _ := common.UserID(r.Context())
	user, err := h.Service.Me(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, user)
}

// SeedAdmin handles POST /api/auth/seed-admin.
func (h *Handler) SeedAdmin(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	user, err := h.Service.SeedAdmin(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, user)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmailTaken):
		common.JSONError(w, http.StatusBadRequest, "EMAIL_ALREADY_REGISTERED", "Email already registered", nil)
	case errors.Is(err, ErrInvalidCredentials):
		common.JSONError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	case errors.Is(err, ErrAdminExists):
		common.JSONError(w, http.StatusBadRequest, "ADMIN_EXISTS", "Admin already exists", nil)
	case errors.Is(err, ErrUnauthorized):
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized", nil)
	default:
		h.Service.logger.Error().Err(err).Msg("auth request failed")
		common.WriteError(w, err)
	}
}
