package role

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/edupal/backend/internal/model/role"
	"github.com/zhouzirui/edupal/backend/pkg/utils"
)

// Handler 角色目录的HTTP处理器
type Handler struct {
	roles role.Store
}

// New 创建角色处理器
func New(roles role.Store) *Handler {
	return &Handler{
		roles: roles,
	}
}

// RegisterRoutes 注册角色相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/roles", h.handleListRoles)
	r.Get("/roles/{role}/suggestions", h.handleSuggestions)
}

type suggestionsResponse struct {
	Role        role.Role `json:"role"`
	Suggestions []string  `json:"suggestions"`
	Fallback    bool      `json:"fallback"`
}

// handleListRoles 列出所有已知角色
func (h *Handler) handleListRoles(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.roles.List())
}

// handleSuggestions 返回角色的快捷问题；未知角色返回通用建议
func (h *Handler) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	requested := role.Parse(chi.URLParam(r, "role"))
	_, known := h.roles.Find(requested)
	profile := h.roles.Resolve(requested)

	utils.RespondJSON(w, http.StatusOK, suggestionsResponse{
		Role:        requested,
		Suggestions: profile.Suggestions,
		Fallback:    !known,
	})
}
