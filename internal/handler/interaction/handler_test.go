package interaction

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/hcp-logger/backend/internal/agent/agenttest"
	"github.com/zhouzirui/hcp-logger/backend/internal/agent/tools"
	"github.com/zhouzirui/hcp-logger/backend/internal/model/hcp"
	aiService "github.com/zhouzirui/hcp-logger/backend/internal/service/ai"
	interactionService "github.com/zhouzirui/hcp-logger/backend/internal/service/interaction"
	"github.com/zhouzirui/hcp-logger/backend/internal/store"
	"github.com/zhouzirui/hcp-logger/backend/internal/store/db"
)

func setupRouter(t *testing.T, steps ...agenttest.Step) (*chi.Mux, *agenttest.ScriptedModel) {
	t.Helper()

	s, err := db.Open(context.Background(), &store.Profile{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "hcp.db")})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	var runner TurnRunner
	var m *agenttest.ScriptedModel
	if steps != nil {
		m = agenttest.NewScriptedModel(steps...)
		registry, err := tools.NewDefaultRegistry(context.Background(), nil, hcp.NewMemoryStore(hcp.Seed()))
		if err != nil {
			t.Fatalf("registry: %v", err)
		}
		svc, err := aiService.NewService(context.Background(), m, registry)
		if err != nil {
			t.Fatalf("ai service: %v", err)
		}
		runner = svc
	}

	h := New(runner, interactionService.NewService(s, nil), nil)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r, m
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func decode(t *testing.T, resp *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(resp.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", resp.Body.String(), err)
	}
}

func TestLogFormThenList(t *testing.T) {
	r, _ := setupRouter(t)

	resp := do(r, http.MethodPost, "/log_interaction/form", `{
		"hcpName": "Dr. Lee",
		"interactionDate": "2024-06-01",
		"interactionTime": "14:30",
		"interactionType": "Meeting",
		"attendees": ["Dr. Lee"],
		"topicsDiscussed": "Drug X efficacy"
	}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var conf interactionService.Confirmation
	decode(t, resp, &conf)
	if conf.LogID == 0 || !strings.Contains(conf.Message, "Dr. Lee on 2024-06-01") {
		t.Fatalf("unexpected confirmation %+v", conf)
	}

	resp = do(r, http.MethodGet, "/logs", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var logs []interactionService.Log
	decode(t, resp, &logs)
	if len(logs) != 1 || logs[0].HCPName != "Dr. Lee" || logs[0].InteractionDate != "01-06-2024" {
		t.Fatalf("unexpected logs %+v", logs)
	}
}

func TestLogFormValidation(t *testing.T) {
	r, _ := setupRouter(t)

	resp := do(r, http.MethodPost, "/log_interaction/form", `{"interactionDate":"2024-06-01"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}

	resp = do(r, http.MethodPost, "/log_interaction/form", `{"hcpName":"Dr. Lee","topicsDiscussed":"x","interactionDate":"June 1st"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d", resp.Code)
	}

	resp = do(r, http.MethodPost, "/log_interaction/form", `not json`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", resp.Code)
	}
}

func TestChatReturnsDraft(t *testing.T) {
	r, m := setupRouter(t, agenttest.CallTools(agenttest.ToolCall("call_1", tools.DraftToolName,
		`{"hcpName":"Dr. Lee","interactionDate":"01-06-2024","topicsDiscussed":"Drug X efficacy"}`)))

	resp := do(r, http.MethodPost, "/log_interaction/chat", `{
		"message": "Yesterday",
		"history": [
			{"id":"1","text":"I met Dr. Lee","sender":"user","type":"text"},
			{"id":"2","text":"When?","sender":"ai","type":"question"}
		]
	}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body struct {
		ID    string         `json:"id"`
		Reply string         `json:"reply"`
		Type  string         `json:"type"`
		Draft map[string]any `json:"draft"`
	}
	decode(t, resp, &body)
	if body.Type != "draft" || body.ID == "" {
		t.Fatalf("unexpected reply %+v", body)
	}
	if !strings.Contains(body.Reply, "**HCP:** Dr. Lee") {
		t.Fatalf("reply missing draft text: %q", body.Reply)
	}
	if body.Draft["hcpName"] != "Dr. Lee" {
		t.Fatalf("unexpected draft %+v", body.Draft)
	}

	inputs := m.Inputs()
	if len(inputs) != 1 || len(inputs[0]) != 4 {
		t.Fatalf("expected system + 2 history + user, got %d calls", len(inputs))
	}
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	r, m := setupRouter(t, agenttest.Reply("unused"))

	resp := do(r, http.MethodPost, "/log_interaction/chat", `{"message":"  ","history":[]}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if m.Calls() != 0 {
		t.Fatalf("model should not be consulted")
	}
}

func TestChatModelFailure(t *testing.T) {
	r, _ := setupRouter(t, agenttest.Fail(context.DeadlineExceeded))

	resp := do(r, http.MethodPost, "/log_interaction/chat", `{"message":"hello"}`)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	var body map[string]string
	decode(t, resp, &body)
	if !strings.HasPrefix(body["error"], "Error processing chat: ") {
		t.Fatalf("unexpected error body %+v", body)
	}
}

func TestChatUnavailableWithoutModel(t *testing.T) {
	r, _ := setupRouter(t)

	resp := do(r, http.MethodPost, "/log_interaction/chat", `{"message":"hello"}`)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}

func TestChatConfirmIsIdempotent(t *testing.T) {
	r, _ := setupRouter(t)

	payload := map[string]any{
		"draftId":         "reply-123",
		"hcpName":         "Dr. Patel",
		"interactionDate": "01-06-2024",
		"interactionTime": "N/A",
		"topicsDiscussed": "Dosing",
		"hcpSentiment":    "neutral",
	}
	raw, _ := json.Marshal(payload)

	var first, second interactionService.Confirmation
	resp := do(r, http.MethodPost, "/log_interaction/chat_confirm", string(raw))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	decode(t, resp, &first)

	resp = do(r, http.MethodPost, "/log_interaction/chat_confirm", string(raw))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 on replay, got %d", resp.Code)
	}
	decode(t, resp, &second)

	if first.LogID != second.LogID {
		t.Fatalf("replayed confirm created a new log: %d vs %d", first.LogID, second.LogID)
	}
	if first.Message != "Log confirmed and saved successfully!" {
		t.Fatalf("unexpected message %q", first.Message)
	}
}

func TestChatConfirmRejectsBadDate(t *testing.T) {
	r, _ := setupRouter(t)

	resp := do(r, http.MethodPost, "/log_interaction/chat_confirm", `{"hcpName":"Dr. Lee","interactionDate":"someday","topicsDiscussed":"x"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.Code, resp.Body.String())
	}
}
