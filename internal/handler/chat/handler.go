package chat

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/edupal/backend/internal/model/role"
	chatService "github.com/zhouzirui/edupal/backend/internal/service/chat"
	"github.com/zhouzirui/edupal/backend/internal/service/conversation"
	"github.com/zhouzirui/edupal/backend/internal/validation"
	"github.com/zhouzirui/edupal/backend/pkg/utils"
)

// Handler 聊天会话的HTTP处理器
type Handler struct {
	chatSvc      *chatService.Service
	maxMsgLength int
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service, maxMsgLength int) *Handler {
	if maxMsgLength <= 0 {
		maxMsgLength = 2000
	}
	return &Handler{
		chatSvc:      chatSvc,
		maxMsgLength: maxMsgLength,
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreateSession)
	r.Get("/sessions", h.handleListSessions)
	r.Get("/sessions/{sessionID}", h.handleGetSession)
	r.Delete("/sessions/{sessionID}", h.handleCloseSession)
	r.Post("/sessions/{sessionID}/messages", h.handleSubmit)
	r.Put("/sessions/{sessionID}/role", h.handleSetRole)
}

type createSessionRequest struct {
	Role     string `json:"role" validate:"required,max=32"`
	UserName string `json:"userName" validate:"max=120"`
}

type submitRequest struct {
	Text string `json:"text"`
	Role string `json:"role" validate:"omitempty,max=32"`
}

type setRoleRequest struct {
	Role string `json:"role" validate:"required,max=32"`
}

// handleCreateSession 创建会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload createSessionRequest
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validation.Struct(payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.chatSvc.CreateSession(r.Context(), role.Parse(payload.Role), payload.UserName)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, session.Snapshot())
}

// handleListSessions 列出所有存活会话
func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.chatSvc.List(r.Context()))
}

// handleGetSession 获取会话快照
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.chatSvc.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, session.Snapshot())
}

// handleCloseSession 关闭会话并取消未完成的回复
func (h *Handler) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.CloseSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSubmit 提交用户消息；空消息不记录，返回 accepted=false
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload submitRequest
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validation.Struct(payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.MaxLength("text", payload.Text, h.maxMsgLength); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	submission, err := h.chatSvc.Submit(r.Context(), chi.URLParam(r, "sessionID"), payload.Text, role.Parse(payload.Role))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	status := http.StatusAccepted
	if !submission.Accepted {
		status = http.StatusOK
	}
	utils.RespondJSON(w, status, submission)
}

// handleSetRole 切换会话当前角色
func (h *Handler) handleSetRole(w http.ResponseWriter, r *http.Request) {
	var payload setRoleRequest
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validation.Struct(payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	snapshot, err := h.chatSvc.SetRole(r.Context(), chi.URLParam(r, "sessionID"), role.Parse(payload.Role))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, snapshot)
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, chatService.ErrRoleRequired):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, conversation.ErrSessionClosed):
		utils.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, conversation.ErrTooManyPending):
		utils.RespondError(w, http.StatusTooManyRequests, err.Error())
	default:
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
