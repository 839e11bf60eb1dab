package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/hcp-logger/backend/internal/agent"
	"github.com/zhouzirui/hcp-logger/backend/internal/agent/agenttest"
	"github.com/zhouzirui/hcp-logger/backend/internal/agent/tools"
	"github.com/zhouzirui/hcp-logger/backend/internal/model/hcp"
	aiService "github.com/zhouzirui/hcp-logger/backend/internal/service/ai"
	chatService "github.com/zhouzirui/hcp-logger/backend/internal/service/chat"
	"github.com/zhouzirui/hcp-logger/backend/internal/service/conversation"
)

type frame struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

func startServer(t *testing.T, steps ...agenttest.Step) (*httptest.Server, *chatService.Service) {
	t.Helper()
	directory := hcp.NewMemoryStore(hcp.Seed())
	registry, err := tools.NewDefaultRegistry(context.Background(), nil, directory)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	ai, err := aiService.NewService(context.Background(), agenttest.NewScriptedModel(steps...), registry)
	if err != nil {
		t.Fatalf("ai service: %v", err)
	}
	chats := chatService.NewService()

	r := chi.NewRouter()
	New(conversation.NewService(chats, ai, directory, nil, nil), chats, nil, nil).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, chats
}

func dial(t *testing.T, srv *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read: %v", err)
	}
	return f
}

func TestWebSocketTextTurn(t *testing.T) {
	srv, chats := startServer(t, agenttest.CallTools(agenttest.ToolCall("call_1", tools.DraftToolName,
		`{"hcpName":"Dr. Lee","interactionDate":"01-06-2024","topicsDiscussed":"Drug X"}`)))
	session, _ := chats.CreateSession(context.Background(), "dr-lee")
	conn := dial(t, srv, session.ID)

	if f := readFrame(t, conn); f.Data["type"] != "connected" {
		t.Fatalf("expected connected frame, got %+v", f)
	}

	if err := conn.WriteJSON(map[string]any{"type": "text", "data": map[string]string{"text": "Log my meeting"}}); err != nil {
		t.Fatalf("write: %v", err)
	}

	if f := readFrame(t, conn); f.Type != "result" || f.Data["type"] != "user" {
		t.Fatalf("expected user echo, got %+v", f)
	}
	if f := readFrame(t, conn); f.Type != "progress" || f.Data["type"] != "tool_start" {
		t.Fatalf("expected tool_start progress, got %+v", f)
	}
	if f := readFrame(t, conn); f.Type != "progress" || f.Data["type"] != "tool_result" {
		t.Fatalf("expected tool_result progress, got %+v", f)
	}
	reply := readFrame(t, conn)
	if reply.Data["type"] != "reply" || reply.Data["kind"] != "draft" {
		t.Fatalf("expected draft reply, got %+v", reply)
	}
	draft, ok := reply.Data["draft"].(map[string]any)
	if !ok || draft["hcpName"] != "Dr. Lee" {
		t.Fatalf("unexpected draft %+v", reply.Data["draft"])
	}

	transcript, _ := chats.LoadTranscript(context.Background(), session.ID)
	if len(transcript) != 2 {
		t.Fatalf("expected 2 stored messages, got %d", len(transcript))
	}
}

func TestWebSocketConfigDisablesProgress(t *testing.T) {
	srv, chats := startServer(t, agenttest.CallTools(agenttest.ToolCall("call_1", tools.SummarizeToolName, `{"text":"notes"}`)))
	session, _ := chats.CreateSession(context.Background(), "")
	conn := dial(t, srv, session.ID)
	readFrame(t, conn)

	_ = conn.WriteJSON(map[string]any{"type": "config", "data": map[string]bool{"progress": false}})
	if f := readFrame(t, conn); f.Data["type"] != "config" || f.Data["progress"] != false {
		t.Fatalf("unexpected config ack %+v", f)
	}

	_ = conn.WriteJSON(map[string]any{"type": "text", "data": map[string]string{"text": "summarize"}})
	readFrame(t, conn)
	if f := readFrame(t, conn); f.Data["type"] != "reply" {
		t.Fatalf("expected reply without progress, got %+v", f)
	}
}

func TestWebSocketRejectsBadMessages(t *testing.T) {
	srv, chats := startServer(t, agenttest.Reply("unused"))
	session, _ := chats.CreateSession(context.Background(), "")
	conn := dial(t, srv, session.ID)
	readFrame(t, conn)

	_ = conn.WriteJSON(map[string]any{"type": "audio"})
	if f := readFrame(t, conn); f.Type != "error" {
		t.Fatalf("expected error for unsupported type, got %+v", f)
	}

	_ = conn.WriteJSON(map[string]any{"type": "text", "sessionId": "other", "data": map[string]string{"text": "hi"}})
	if f := readFrame(t, conn); f.Type != "error" || f.Data["message"] != "session mismatch" {
		t.Fatalf("expected session mismatch, got %+v", f)
	}

	_ = conn.WriteJSON(map[string]any{"type": "text", "data": map[string]string{"text": "  "}})
	if f := readFrame(t, conn); f.Type != "error" {
		t.Fatalf("expected error for blank text, got %+v", f)
	}
}

func TestWebSocketUnknownSession(t *testing.T) {
	srv, _ := startServer(t, agenttest.Reply("unused"))
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/missing"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 response, got %+v", resp)
	}
}

type slowReplier struct {
	delay time.Duration
}

func (r slowReplier) Reply(_ context.Context, _, text string, _ ...agent.RunOption) (*aiService.Reply, error) {
	time.Sleep(r.delay)
	return &aiService.Reply{ID: "reply-" + text, Text: "ok", Kind: agent.KindText}, nil
}

func TestWebSocketSurvivesTurnLongerThanReadTimeout(t *testing.T) {
	chats := chatService.NewService()
	session, _ := chats.CreateSession(context.Background(), "")

	h := New(slowReplier{delay: 500 * time.Millisecond}, chats, nil, nil)
	h.readTimeout = 200 * time.Millisecond
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	conn := dial(t, srv, session.ID)
	if f := readFrame(t, conn); f.Data["type"] != "connected" {
		t.Fatalf("expected connected frame, got %+v", f)
	}

	for _, text := range []string{"first", "second"} {
		if err := conn.WriteJSON(map[string]any{"type": "text", "data": map[string]string{"text": text}}); err != nil {
			t.Fatalf("write %s: %v", text, err)
		}
		if f := readFrame(t, conn); f.Data["type"] != "user" {
			t.Fatalf("expected user echo for %s, got %+v", text, f)
		}
		f := readFrame(t, conn)
		if f.Type != "result" || f.Data["type"] != "reply" || f.Data["id"] != "reply-"+text {
			t.Fatalf("expected reply for %s, got %+v", text, f)
		}
	}
}
