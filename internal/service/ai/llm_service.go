package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/zhouzirui/hcp-logger/backend/internal/agent"
	"github.com/zhouzirui/hcp-logger/backend/internal/agent/tools"
	"github.com/zhouzirui/hcp-logger/backend/internal/model/chat"
	"github.com/zhouzirui/hcp-logger/backend/internal/model/interaction"
)

// ErrEmptyMessage rejects a turn whose user text is blank.
var ErrEmptyMessage = errors.New("message must not be empty")

// TurnRequest is the input of one conversational turn.
type TurnRequest struct {
	SystemPrompt string // empty uses DefaultSystemPrompt
	History      []chat.Message
	Message      string
}

// Reply is the classified outcome of a turn.
type Reply struct {
	ID       string             `json:"id"`
	Text     string             `json:"reply"`
	Kind     agent.Kind         `json:"type"`
	Draft    *interaction.Draft `json:"draft,omitempty"`
	Messages int                `json:"-"`
}

// Service runs conversational turns against the tool-calling agent.
type Service struct {
	engine   *agent.Engine
	tools    agent.ToolSet
	template prompt.ChatTemplate
	logger   *slog.Logger
}

type options struct {
	maxCycles int
	logger    *slog.Logger
}

type Option func(*options)

// WithMaxCycles caps model decisions per turn; zero keeps the engine default.
func WithMaxCycles(n int) Option {
	return func(o *options) { o.maxCycles = n }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// NewService binds the registry's tools to chatModel and prepares the prompt
// template shared by every turn.
func NewService(ctx context.Context, chatModel model.ToolCallingChatModel, tools agent.ToolSet, opts ...Option) (*Service, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	engine, err := agent.NewEngine(chatModel, tools,
		agent.WithMaxCycles(o.maxCycles),
		agent.WithLogger(o.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create turn engine: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	return &Service{
		engine:   engine,
		tools:    tools,
		template: promptTemplate,
		logger:   o.logger.With("component", "ai"),
	}, nil
}

// RunTurn answers one user message. Blank messages fail with ErrEmptyMessage
// before the model is consulted; model failures are returned wrapped.
func (s *Service) RunTurn(ctx context.Context, req TurnRequest, runOpts ...agent.RunOption) (*Reply, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}

	initial, err := s.buildInitialMessages(ctx, req)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.Run(ctx, initial, runOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to run agent turn: %w", err)
	}

	text := s.replyText(ctx, result.Terminal)
	reply := &Reply{
		ID:       uuid.NewString(),
		Text:     text,
		Kind:     classifyReply(result.TerminalTool, text),
		Messages: len(result.Messages),
	}
	if reply.Kind == agent.KindDraft {
		reply.Draft = s.replyDraft(result, text, reply.ID)
	}

	s.logger.Info("turn replied", "reply_id", reply.ID, "kind", reply.Kind, "cycles", result.Cycles, "tool_calls", result.ToolCalls)
	return reply, nil
}

// classifyReply trusts the tool that produced the reply before falling back
// to the content markers. A clarifying question without the marker words
// never loops back, so it only reaches here through its tool name.
func classifyReply(tool, text string) agent.Kind {
	if tool == tools.ClarifyToolName && !agent.IsDraft(text) {
		return agent.KindQuestion
	}
	return agent.Classify(text)
}

// replyDraft prefers the arguments of the draft tool call that ended the turn,
// which keep multi-line values and list items containing commas intact. A
// draft the model wrote as plain text is parsed from the reply.
func (s *Service) replyDraft(result *agent.Result, text, replyID string) *interaction.Draft {
	if result.TerminalTool == tools.DraftToolName {
		var args tools.DraftArgs
		if err := json.Unmarshal([]byte(result.TerminalArguments), &args); err == nil {
			draft := args.Draft().Normalize()
			return &draft
		}
		s.logger.Warn("draft tool arguments did not decode", "reply_id", replyID)
	}

	draft, err := interaction.ParseDraft(text)
	if err != nil {
		s.logger.Warn("draft reply did not parse", "reply_id", replyID, "err", err)
		return nil
	}
	return &draft
}

func (s *Service) buildInitialMessages(ctx context.Context, req TurnRequest) ([]*schema.Message, error) {
	system := req.SystemPrompt
	if strings.TrimSpace(system) == "" {
		system = DefaultSystemPrompt
	}

	messages, err := s.template.Format(ctx, map[string]any{
		"system":  system,
		"history": buildHistoryMessages(req.History),
		"query":   req.Message,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to format prompt: %w", err)
	}
	return messages, nil
}

// buildHistoryMessages replays prior entries in order. Senders other than
// user and ai are not part of the model's view.
func buildHistoryMessages(history []chat.Message) []*schema.Message {
	messages := make([]*schema.Message, 0, len(history))
	for _, msg := range history {
		switch msg.Sender {
		case chat.SenderUser:
			messages = append(messages, schema.UserMessage(msg.Content))
		case chat.SenderAI, "assistant":
			messages = append(messages, schema.AssistantMessage(msg.Content, nil))
		}
	}
	return messages
}

// replyText extracts the reply from the terminal message. A terminal request
// for tools that never ran is answered by running its first tool directly.
func (s *Service) replyText(ctx context.Context, terminal *schema.Message) string {
	if terminal == nil {
		return ""
	}
	if terminal.Role != schema.Assistant || len(terminal.ToolCalls) == 0 {
		return terminal.Content
	}

	call := terminal.ToolCalls[0]
	s.logger.Warn("terminal message still requests tools, invoking directly", "tool", call.Function.Name)
	out, err := s.tools.Invoke(ctx, call.Function.Name, call.Function.Arguments)
	if err != nil {
		return agent.RenderToolError(call.Function.Name, err)
	}
	return out
}
