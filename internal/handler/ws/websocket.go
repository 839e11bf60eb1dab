package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/hcp-logger/backend/internal/agent"
	aiService "github.com/zhouzirui/hcp-logger/backend/internal/service/ai"
	chatService "github.com/zhouzirui/hcp-logger/backend/internal/service/chat"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// Replier runs one turn of a stored session.
type Replier interface {
	Reply(ctx context.Context, sessionID, text string, opts ...agent.RunOption) (*aiService.Reply, error)
}

// Handler WebSocket聊天处理器
type Handler struct {
	conversations Replier
	chatSvc       *chatService.Service
	upgrader      websocket.Upgrader
	readTimeout   time.Duration
	logger        *slog.Logger
}

// New 创建WebSocket处理器。allowOrigin 为 nil 时接受所有来源。
func New(conversations Replier, chatSvc *chatService.Service, allowOrigin func(origin string) bool, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		conversations: conversations,
		chatSvc:       chatSvc,
		readTimeout:   readTimeout,
		logger:        logger.With("component", "handler.ws"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowOrigin == nil || origin == "" || allowOrigin(origin)
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

// TextMessage 文本消息
type TextMessage struct {
	Text string `json:"text"`
}

// ConfigMessage 配置消息
type ConfigMessage struct {
	Progress *bool `json:"progress,omitempty"` // 是否推送工具调用进度
}

type outgoingMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// connection serialises writes; the read loop and the ping loop share it.
type connection struct {
	conn      *websocket.Conn
	sessionID string
	progress  bool
	mu        sync.Mutex
}

func (c *connection) write(msg outgoingMessage) error {
	msg.Timestamp = time.Now().Unix()
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(msg)
}

func (c *connection) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if h.conversations == nil {
		http.Error(w, "ai chat unavailable", http.StatusServiceUnavailable)
		return
	}
	if _, err := h.chatSvc.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", "session_id", sessionID, "err", err)
		return
	}
	defer conn.Close()

	c := &connection{conn: conn, sessionID: sessionID, progress: true}
	h.logger.Info("connection opened", "session_id", sessionID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	})

	go h.pingLoop(ctx, c)

	h.sendResult(c, map[string]any{"type": "connected"})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("read failed", "session_id", sessionID, "err", err)
			}
			return
		}
		if msg.SessionID != "" && msg.SessionID != sessionID {
			h.sendError(c, "session mismatch")
		} else {
			h.handleMessage(ctx, c, &msg)
		}
		// no pongs are read while a turn runs
		_ = conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	}
}

func (h *Handler) handleMessage(ctx context.Context, c *connection, msg *inboundMessage) {
	switch msg.Type {
	case "text":
		h.handleTextMessage(ctx, c, msg.Data)
	case "config":
		h.handleConfigMessage(c, msg.Data)
	default:
		h.sendError(c, "unsupported message type: "+msg.Type)
	}
}

func (h *Handler) handleTextMessage(ctx context.Context, c *connection, raw json.RawMessage) {
	var text TextMessage
	if err := json.Unmarshal(raw, &text); err != nil {
		h.sendError(c, "invalid text payload")
		return
	}
	if strings.TrimSpace(text.Text) == "" {
		h.sendError(c, "Message cannot be empty.")
		return
	}

	h.sendResult(c, map[string]any{"type": "user", "text": text.Text})

	var opts []agent.RunOption
	if c.progress {
		opts = append(opts, agent.WithObserver(func(_ context.Context, ev agent.Event) {
			if ev.Type == agent.EventToolStart || ev.Type == agent.EventToolResult {
				h.send(c, outgoingMessage{Type: "progress", SessionID: c.sessionID, Data: ev})
			}
		}))
	}

	reply, err := h.conversations.Reply(ctx, c.sessionID, text.Text, opts...)
	if err != nil {
		if errors.Is(err, aiService.ErrEmptyMessage) {
			h.sendError(c, "Message cannot be empty.")
			return
		}
		h.logger.Error("turn failed", "session_id", c.sessionID, "err", err)
		h.sendError(c, "Error processing chat: "+err.Error())
		return
	}

	h.sendResult(c, map[string]any{
		"type":  "reply",
		"id":    reply.ID,
		"reply": reply.Text,
		"kind":  reply.Kind,
		"draft": reply.Draft,
	})
}

func (h *Handler) handleConfigMessage(c *connection, raw json.RawMessage) {
	var cfg ConfigMessage
	if err := json.Unmarshal(raw, &cfg); err != nil {
		h.sendError(c, "invalid config payload")
		return
	}
	if cfg.Progress != nil {
		c.progress = *cfg.Progress
	}
	h.sendResult(c, map[string]any{"type": "config", "progress": c.progress})
}

func (h *Handler) sendResult(c *connection, data map[string]any) {
	h.send(c, outgoingMessage{Type: "result", SessionID: c.sessionID, Data: data})
}

func (h *Handler) sendError(c *connection, message string) {
	h.send(c, outgoingMessage{Type: "error", SessionID: c.sessionID, Data: map[string]string{"message": message}})
}

func (h *Handler) send(c *connection, msg outgoingMessage) {
	if err := c.write(msg); err != nil {
		h.logger.Debug("write failed", "session_id", c.sessionID, "type", msg.Type, "err", err)
	}
}

// pingLoop 定期发送ping消息
func (h *Handler) pingLoop(ctx context.Context, c *connection) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}
