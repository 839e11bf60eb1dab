package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	chatmodel "github.com/zhouzirui/hcp-logger/backend/internal/model/chat"
	"github.com/zhouzirui/hcp-logger/backend/internal/model/hcp"
	chatservice "github.com/zhouzirui/hcp-logger/backend/internal/service/chat"
)

func setupRouter() (*chi.Mux, *chatservice.Service) {
	chatSvc := chatservice.NewService()
	handler := New(chatSvc, hcp.NewMemoryStore(hcp.Seed()))

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, chatSvc
}

func postSession(r http.Handler, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/session", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestCreateSessionWithKnownHCP(t *testing.T) {
	r, _ := setupRouter()
	resp := postSession(r, []byte(`{"hcpId":"dr-lee"}`))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	var session chatmodel.Session
	if err := json.Unmarshal(resp.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if session.ID == "" || session.HCPID != "dr-lee" {
		t.Fatalf("unexpected session %+v", session)
	}
}

func TestCreateSessionWithoutBody(t *testing.T) {
	r, _ := setupRouter()
	resp := postSession(r, nil)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
}

func TestCreateSessionUnknownHCP(t *testing.T) {
	r, _ := setupRouter()
	resp := postSession(r, []byte(`{"hcpId":"dr-house"}`))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestCreateSessionInvalidBody(t *testing.T) {
	r, _ := setupRouter()
	resp := postSession(r, []byte(`{"hcpId":`))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestTranscript(t *testing.T) {
	r, chatSvc := setupRouter()
	ctx := context.Background()
	session, _ := chatSvc.CreateSession(ctx, "")
	if _, err := chatSvc.SaveMessage(ctx, chatmodel.Message{SessionID: session.ID, Sender: chatmodel.SenderUser, Content: "hi"}); err != nil {
		t.Fatalf("SaveMessage: %v", err)
	}

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/session/"+session.ID+"/messages", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var messages []chatmodel.Message
	if err := json.Unmarshal(resp.Body.Bytes(), &messages); err != nil || len(messages) != 1 {
		t.Fatalf("unexpected transcript %s (%v)", resp.Body.String(), err)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/session/missing/messages", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
