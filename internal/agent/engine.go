// Package agent drives a single conversational turn: the model decides, the
// requested tools run, and the engine either loops back to the model or ends
// the turn.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/zhouzirui/hcp-logger/backend/internal/config"
)

// DefaultMaxCycles bounds how many times one turn may consult the model.
const DefaultMaxCycles = 6

// ErrCycleLimit aborts a turn whose model keeps asking for tools past the
// configured number of decision cycles.
var ErrCycleLimit = errors.New("agent: decision cycle limit reached")

var errEmptyResponse = errors.New("model returned no message")

// LLMError wraps any failure of the model capability. It is fatal to the turn.
type LLMError struct {
	Err error
}

func (e *LLMError) Error() string { return "llm invocation failed: " + e.Err.Error() }

func (e *LLMError) Unwrap() error { return e.Err }

// ToolSet is what the engine needs from a tool registry.
type ToolSet interface {
	Infos() []*schema.ToolInfo
	Invoke(ctx context.Context, name, arguments string) (string, error)
}

type phase int

const (
	phaseDeciding phase = iota
	phaseExecuting
	phaseDone
)

func (p phase) String() string {
	switch p {
	case phaseDeciding:
		return "deciding"
	case phaseExecuting:
		return "executing_tools"
	case phaseDone:
		return "done"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Result is the outcome of a completed turn. TerminalTool and
// TerminalArguments describe the call whose output ended the turn; both are
// empty when the model answered directly.
type Result struct {
	Messages          []*schema.Message
	Terminal          *schema.Message
	TerminalTool      string
	TerminalArguments string
	Cycles            int
	ToolCalls         int
}

// Engine runs turns against a tool-bound chat model. It holds no per-turn
// state and may be shared by concurrent requests.
type Engine struct {
	model     model.BaseChatModel
	tools     ToolSet
	maxCycles int
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxCycles overrides DefaultMaxCycles. Values below one are ignored.
func WithMaxCycles(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxCycles = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine binds the tool schemas to the chat model.
func NewEngine(chatModel model.ToolCallingChatModel, tools ToolSet, opts ...Option) (*Engine, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}
	if tools == nil {
		return nil, errors.New("tool set is required")
	}

	bound, err := chatModel.WithTools(tools.Infos())
	if err != nil {
		return nil, fmt.Errorf("bind tools: %w", err)
	}

	e := &Engine{
		model:     bound,
		tools:     tools,
		maxCycles: DefaultMaxCycles,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "agent")
	return e, nil
}

// Run drives one turn from the initial messages to a terminal message.
// Model failures end the turn with an *LLMError; tool failures are written
// into the conversation and the turn continues.
func (e *Engine) Run(ctx context.Context, initial []*schema.Message, opts ...RunOption) (*Result, error) {
	var ro runOptions
	for _, opt := range opts {
		opt(&ro)
	}

	state := NewState(initial)
	result := &Result{}
	current := phaseDeciding

	for current != phaseDone {
		e.logger.Debug("turn phase", "phase", current, "cycle", result.Cycles, "messages", state.Len())

		switch current {
		case phaseDeciding:
			if result.Cycles >= e.maxCycles {
				return nil, fmt.Errorf("%w (%d)", ErrCycleLimit, e.maxCycles)
			}
			result.Cycles++

			msg, err := e.decide(ctx, state)
			if err != nil {
				e.logger.Warn("model decision failed", "cycle", result.Cycles, "err", err)
				return nil, err
			}
			state.Append(msg)
			ro.emit(ctx, Event{Type: EventDecision, Cycle: result.Cycles, Content: msg.Content, ToolCalls: len(msg.ToolCalls)})

			if len(msg.ToolCalls) == 0 {
				current = phaseDone
			} else {
				current = phaseExecuting
			}

		case phaseExecuting:
			last, call := e.execute(ctx, state, result, &ro)
			if IsClarification(last.Content) {
				current = phaseDeciding
			} else {
				result.TerminalTool = call.Function.Name
				result.TerminalArguments = call.Function.Arguments
				current = phaseDone
			}
		}
	}

	result.Messages = state.Messages()
	result.Terminal = state.Last()
	ro.emit(ctx, Event{Type: EventDone, Cycle: result.Cycles, Content: result.Terminal.Content})
	e.logger.Info("turn finished", "cycles", result.Cycles, "tool_calls", result.ToolCalls, "messages", len(result.Messages))
	return result, nil
}

func (e *Engine) decide(ctx context.Context, state *State) (*schema.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, &LLMError{Err: err}
	}

	msg, err := e.model.Generate(ctx, state.Messages())
	if err != nil {
		return nil, &LLMError{Err: err}
	}
	if msg == nil {
		return nil, &LLMError{Err: errEmptyResponse}
	}

	e.logger.Log(ctx, config.LevelTrace, "model response", "content", msg.Content, "tool_calls", len(msg.ToolCalls))

	out := *msg
	if out.Role == "" {
		out.Role = schema.Assistant
	}
	if len(msg.ToolCalls) > 0 {
		out.ToolCalls = make([]schema.ToolCall, len(msg.ToolCalls))
		copy(out.ToolCalls, msg.ToolCalls)
		for i := range out.ToolCalls {
			if out.ToolCalls[i].ID == "" {
				out.ToolCalls[i].ID = "call_" + uuid.NewString()
			}
		}
	}
	return &out, nil
}

// execute answers every call of the last assistant message, in order, and
// returns the last tool message appended with the call it answers.
func (e *Engine) execute(ctx context.Context, state *State, result *Result, ro *runOptions) (*schema.Message, schema.ToolCall) {
	calls := state.Last().ToolCalls

	var last *schema.Message
	for _, call := range calls {
		name := call.Function.Name
		ro.emit(ctx, Event{Type: EventToolStart, Cycle: result.Cycles, ToolName: name, ToolCallID: call.ID, Content: call.Function.Arguments})

		content, failed := e.invoke(ctx, name, call.Function.Arguments)
		last = schema.ToolMessage(content, call.ID)
		state.Append(last)
		result.ToolCalls++

		ro.emit(ctx, Event{Type: EventToolResult, Cycle: result.Cycles, ToolName: name, ToolCallID: call.ID, Content: content, Failed: failed})
	}
	return last, calls[len(calls)-1]
}

func (e *Engine) invoke(ctx context.Context, name, arguments string) (string, bool) {
	out, err := e.tools.Invoke(ctx, name, arguments)
	if err == nil {
		e.logger.Debug("tool result", "tool", name, "length", len(out))
		return out, false
	}

	e.logger.Warn("tool call failed", "tool", name, "err", err)
	return RenderToolError(name, err), true
}
