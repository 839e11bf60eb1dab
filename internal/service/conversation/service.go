// Package conversation runs agent turns against server-side session
// transcripts, for clients that do not resend their history.
package conversation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zhouzirui/hcp-logger/backend/internal/agent"
	"github.com/zhouzirui/hcp-logger/backend/internal/model/chat"
	"github.com/zhouzirui/hcp-logger/backend/internal/model/hcp"
	aiService "github.com/zhouzirui/hcp-logger/backend/internal/service/ai"
	chatService "github.com/zhouzirui/hcp-logger/backend/internal/service/chat"
)

// TurnRunner answers one message given its history.
type TurnRunner interface {
	RunTurn(ctx context.Context, req aiService.TurnRequest, opts ...agent.RunOption) (*aiService.Reply, error)
}

type Service struct {
	chats     *chatService.Service
	turns     TurnRunner
	directory hcp.Store
	prompts   *aiService.PromptBuilder
	logger    *slog.Logger
}

func NewService(chats *chatService.Service, turns TurnRunner, directory hcp.Store, prompts *aiService.PromptBuilder, logger *slog.Logger) *Service {
	if prompts == nil {
		prompts = aiService.NewPromptBuilder("")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		chats:     chats,
		turns:     turns,
		directory: directory,
		prompts:   prompts,
		logger:    logger.With("component", "conversation"),
	}
}

// Reply records text as the user's next message in the session, runs a turn
// over the stored transcript and records the answer. A session bound to a
// directory HCP gets that HCP's profile in its system prompt.
func (s *Service) Reply(ctx context.Context, sessionID, text string, opts ...agent.RunOption) (*aiService.Reply, error) {
	session, err := s.chats.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	history, err := s.chats.LoadTranscript(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	reply, err := s.turns.RunTurn(ctx, aiService.TurnRequest{
		SystemPrompt: s.systemPrompt(session),
		History:      history,
		Message:      text,
	}, opts...)
	if err != nil {
		return nil, err
	}

	if _, err := s.chats.SaveMessages(ctx,
		chat.Message{SessionID: session.ID, Sender: chat.SenderUser, Content: text, Kind: string(agent.KindText)},
		chat.Message{ID: reply.ID, SessionID: session.ID, Sender: chat.SenderAI, Content: reply.Text, Kind: string(reply.Kind)},
	); err != nil {
		return nil, fmt.Errorf("failed to save turn: %w", err)
	}

	s.logger.Debug("session turn stored", "session_id", session.ID, "reply_id", reply.ID, "kind", reply.Kind)
	return reply, nil
}

func (s *Service) systemPrompt(session chat.Session) string {
	if session.HCPID == "" || s.directory == nil {
		return s.prompts.BuildSystemPrompt(nil)
	}
	profile, ok := s.directory.FindByID(session.HCPID)
	if !ok {
		s.logger.Warn("session hcp missing from directory", "session_id", session.ID, "hcp_id", session.HCPID)
		return s.prompts.BuildSystemPrompt(nil)
	}
	return s.prompts.BuildSystemPrompt(&profile)
}
