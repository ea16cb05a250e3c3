package dashboard

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/edupal/backend/internal/model/dashboard"
	"github.com/zhouzirui/edupal/backend/internal/model/role"
	"github.com/zhouzirui/edupal/backend/pkg/utils"
)

// Handler serves the role dashboards.
type Handler struct {
	views dashboard.Store
}

// New creates the dashboard handler.
func New(views dashboard.Store) *Handler {
	return &Handler{views: views}
}

// RegisterRoutes mounts GET /dashboard/{role}.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard/{role}", h.handleView)
}

// handleView renders the dashboard for a known role; userName is optional.
func (h *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	requested := role.Parse(chi.URLParam(r, "role"))
	view, ok := h.views.View(requested, r.URL.Query().Get("userName"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "unknown role: "+requested.String())
		return
	}
	utils.RespondJSON(w, http.StatusOK, view)
}
