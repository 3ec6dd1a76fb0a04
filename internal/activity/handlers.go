package activity

import (
	"net/http"

	"github.com/noah-isme/tokobaju-api/internal/common"
)

// Handler exposes the activity log over HTTP.
type Handler struct {
	Svc *Service
}

// List returns all activity for administrators.
func (h Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "ACTIVITY_NOT_CONFIGURED", "activity service not configured", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 50)
	perPage = common.ClampPerPage(perPage, 200)
	logs, total, err := h.Svc.List(r.Context(), nil, perPage, common.Offset(page, perPage))
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "ACTIVITY_QUERY_FAILED", "unable to fetch activity logs", nil)
		return
	}
	common.List(w, logs, total)
}

// ListByUser returns activity for one user. Callers other than the user need the Admin role.
func (h Handler) ListByUser(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "ACTIVITY_NOT_CONFIGURED", "activity service not configured", nil)
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
	page, perPage := common.ParsePagination(r, 50)
	perPage = common.ClampPerPage(perPage, 200)
	logs, total, err := h.Svc.List(r.Context(), &userID, perPage, common.Offset(page, perPage))
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "ACTIVITY_QUERY_FAILED", "unable to fetch activity logs", nil)
		return
	}
	common.List(w, logs, total)
}
