package stream

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/hcp-logger/backend/internal/agent"
	aiService "github.com/zhouzirui/hcp-logger/backend/internal/service/ai"
	chatService "github.com/zhouzirui/hcp-logger/backend/internal/service/chat"
	"github.com/zhouzirui/hcp-logger/backend/pkg/utils"
)

// Replier runs one turn of a stored session.
type Replier interface {
	Reply(ctx context.Context, sessionID, text string, opts ...agent.RunOption) (*aiService.Reply, error)
}

// Handler streams agent progress over Server-Sent Events
type Handler struct {
	conversations Replier
	logger        *slog.Logger
}

// New creates a new stream handler
func New(conversations Replier, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{conversations: conversations, logger: logger.With("component", "handler.stream")}
}

// StreamResponse is the payload of start, end and error events.
type StreamResponse struct {
	SessionID string `json:"sessionId,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
}

// RegisterRoutes 注册流式接口
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream/{sessionID}", h.handleStream)
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	message := r.URL.Query().Get("message")

	if h.conversations == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "ai streaming unavailable")
		return
	}
	if strings.TrimSpace(message) == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	if err := h.HandleStreamRequest(r.Context(), w, sessionID, message); err != nil {
		switch {
		case errors.Is(err, chatService.ErrSessionNotFound):
			utils.RespondError(w, http.StatusNotFound, "session not found")
		default:
			utils.RespondError(w, http.StatusInternalServerError, "streaming failed")
		}
	}
}

// HandleStreamRequest runs a turn for the session and reports every decision
// and tool call as it happens. Errors are returned only when nothing has been
// streamed yet; later failures are sent as an error event.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID, userMessage string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return errors.New("streaming unsupported")
	}

	started := false
	start := func() {
		if started {
			return
		}
		started = true
		utils.SetupSSEHeaders(w)
		w.WriteHeader(http.StatusOK)
		utils.SendSSEEvent(w, flusher, "start", StreamResponse{SessionID: sessionID})
	}

	observer := func(_ context.Context, ev agent.Event) {
		start()
		utils.SendSSEEvent(w, flusher, string(ev.Type), ev)
	}

	reply, err := h.conversations.Reply(ctx, sessionID, userMessage, agent.WithObserver(observer))
	if err != nil {
		if !started {
			h.logger.Warn("stream turn rejected", "session_id", sessionID, "err", err)
			return err
		}
		h.logger.Error("stream turn failed", "session_id", sessionID, "err", err)
		utils.SendSSEEvent(w, flusher, "error", StreamResponse{SessionID: sessionID, Error: err.Error()})
		return nil
	}

	start()
	utils.SendSSEEvent(w, flusher, "reply", reply)
	utils.SendSSEEvent(w, flusher, "end", StreamResponse{SessionID: sessionID, Finished: true})

	h.logger.Info("stream completed", "session_id", sessionID, "reply_id", reply.ID, "kind", reply.Kind)
	return nil
}
