package interaction

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/hcp-logger/backend/internal/agent"
	"github.com/zhouzirui/hcp-logger/backend/internal/model/chat"
	model "github.com/zhouzirui/hcp-logger/backend/internal/model/interaction"
	aiService "github.com/zhouzirui/hcp-logger/backend/internal/service/ai"
	interactionService "github.com/zhouzirui/hcp-logger/backend/internal/service/interaction"
	"github.com/zhouzirui/hcp-logger/backend/pkg/utils"
)

// TurnRunner answers one chat message.
type TurnRunner interface {
	RunTurn(ctx context.Context, req aiService.TurnRequest, opts ...agent.RunOption) (*aiService.Reply, error)
}

// Recorder stores and lists interaction logs.
type Recorder interface {
	LogForm(ctx context.Context, form model.Form) (*interactionService.Confirmation, error)
	ConfirmDraft(ctx context.Context, req interactionService.ConfirmRequest) (*interactionService.Confirmation, error)
	List(ctx context.Context) ([]interactionService.Log, error)
}

// Handler 互动记录的HTTP处理器
type Handler struct {
	turns  TurnRunner
	logs   Recorder
	logger *slog.Logger
}

// New 创建互动记录处理器。turns 为 nil 时聊天接口返回 503。
func New(turns TurnRunner, logs Recorder, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{turns: turns, logs: logs, logger: logger.With("component", "handler.interaction")}
}

// RegisterRoutes 注册互动记录相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/log_interaction", func(r chi.Router) {
		r.Post("/form", h.handleLogForm)
		r.Post("/chat", h.handleChat)
		r.Post("/chat_confirm", h.handleConfirm)
	})
	r.Get("/logs", h.handleListLogs)
}

// HistoryEntry is a prior chat bubble as the web client keeps it.
type HistoryEntry struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Sender string `json:"sender"`
	Type   string `json:"type"`
}

type chatRequest struct {
	Message string         `json:"message"`
	History []HistoryEntry `json:"history"`
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	if h.turns == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "ai chat unavailable")
		return
	}

	var payload chatRequest
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	history := make([]chat.Message, 0, len(payload.History))
	for _, entry := range payload.History {
		history = append(history, chat.Message{ID: entry.ID, Sender: entry.Sender, Content: entry.Text, Kind: entry.Type})
	}

	reply, err := h.turns.RunTurn(r.Context(), aiService.TurnRequest{History: history, Message: payload.Message})
	if err != nil {
		if errors.Is(err, aiService.ErrEmptyMessage) {
			utils.RespondError(w, http.StatusBadRequest, "Message cannot be empty.")
			return
		}
		h.logger.Error("chat turn failed", "err", err)
		utils.RespondError(w, http.StatusInternalServerError, "Error processing chat: "+err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, reply)
}

func (h *Handler) handleLogForm(w http.ResponseWriter, r *http.Request) {
	var form model.Form
	if err := utils.DecodeJSON(r, &form); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	conf, err := h.logs.LogForm(r.Context(), form)
	if err != nil {
		h.respondServiceError(w, "Failed to log interaction: ", err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, conf)
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req interactionService.ConfirmRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	conf, err := h.logs.ConfirmDraft(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, "Failed to save log to database: ", err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, conf)
}

func (h *Handler) handleListLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.logs.List(r.Context())
	if err != nil {
		h.logger.Error("list logs failed", "err", err)
		utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch logs: "+err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, logs)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, prefix string, err error) {
	if errors.Is(err, model.ErrValidation) {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.Error("interaction request failed", "err", err)
	utils.RespondError(w, http.StatusInternalServerError, prefix+err.Error())
}
