package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/zhouzirui/hcp-logger/backend/internal/agent/tools"
)

type EventType string

const (
	EventDecision   EventType = "decision"
	EventToolStart  EventType = "tool_start"
	EventToolResult EventType = "tool_result"
	EventDone       EventType = "done"
)

// Event reports progress of a running turn. Content carries the assistant
// text, the tool arguments or the tool result depending on Type.
type Event struct {
	Type       EventType `json:"type"`
	Cycle      int       `json:"cycle"`
	ToolName   string    `json:"toolName,omitempty"`
	ToolCallID string    `json:"toolCallId,omitempty"`
	ToolCalls  int       `json:"toolCalls,omitempty"`
	Content    string    `json:"content,omitempty"`
	Failed     bool      `json:"failed,omitempty"`
}

// Observer receives events synchronously from the turn's goroutine.
type Observer func(ctx context.Context, ev Event)

type RunOption func(*runOptions)

type runOptions struct {
	observer Observer
}

func WithObserver(observer Observer) RunOption {
	return func(o *runOptions) {
		o.observer = observer
	}
}

func (o *runOptions) emit(ctx context.Context, ev Event) {
	if o.observer != nil {
		o.observer(ctx, ev)
	}
}

// RenderToolError turns a tool failure into the text recorded as the tool's
// answer.
func RenderToolError(name string, err error) string {
	var unknown *tools.UnknownToolError
	var exec *tools.ExecutionError
	if errors.As(err, &unknown) || errors.As(err, &exec) {
		return err.Error()
	}
	return fmt.Sprintf("Error executing tool %s: %v", name, err)
}
