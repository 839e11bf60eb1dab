package chat

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/hcp-logger/backend/internal/model/hcp"
	chatService "github.com/zhouzirui/hcp-logger/backend/internal/service/chat"
	"github.com/zhouzirui/hcp-logger/backend/pkg/utils"
)

// Handler 会话服务的HTTP处理器
type Handler struct {
	chatSvc   *chatService.Service
	directory hcp.Store
}

// New 创建会话处理器
func New(chatSvc *chatService.Service, directory hcp.Store) *Handler {
	return &Handler{
		chatSvc:   chatSvc,
		directory: directory,
	}
}

// RegisterRoutes 注册会话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Get("/session/{sessionID}/messages", h.handleTranscript)
}

// handleCreateSession 创建会话，hcpId 可选
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		HCPID string `json:"hcpId"`
	}

	if r.ContentLength != 0 {
		if err := utils.DecodeJSON(r, &payload); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	hcpID := strings.TrimSpace(payload.HCPID)
	if hcpID != "" {
		if _, ok := h.directory.FindByID(hcpID); !ok {
			utils.RespondError(w, http.StatusBadRequest, "hcp not found")
			return
		}
	}

	session, err := h.chatSvc.CreateSession(r.Context(), hcpID)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, session)
}

// handleTranscript 返回会话的历史消息
func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	messages, err := h.chatSvc.LoadTranscript(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, chatService.ErrSessionNotFound) {
			status = http.StatusNotFound
		}
		utils.RespondError(w, status, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, messages)
}
