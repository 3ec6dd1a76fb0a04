package analytics

import (
	"net/http"

	"github.com/noah-isme/tokobaju-api/internal/common"
)

// Handler exposes analytics read endpoints.
type Handler struct {
	Svc *Service
}

// Sales returns aggregated sales statistics for the admin dashboard.
func (h *Handler) Sales(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil || h.Svc.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "ANALYTICS_NOT_CONFIGURED", "analytics service not configured", nil)
		return
	}
	stats, err := h.Svc.Stats(r.Context())
	if err != nil {
		h.Svc.Logger.Error().Err(err).Msg("sales stats failed")
		common.JSONError(w, http.StatusInternalServerError, "ANALYTICS_ERROR", "could not compute sales statistics", nil)
		return
	}
	common.Data(w, http.StatusOK, stats)
}
