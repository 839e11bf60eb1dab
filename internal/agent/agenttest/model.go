// Package agenttest provides a scripted chat model for exercising the turn
// engine without a network.
package agenttest

import (
	"context"
	"errors"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ErrScriptExhausted is returned once every scripted step has been consumed.
var ErrScriptExhausted = errors.New("agenttest: script exhausted")

// Step is one scripted model answer.
type Step struct {
	Message *schema.Message
	Err     error
}

// Reply answers with plain assistant text.
func Reply(content string) Step {
	return Step{Message: schema.AssistantMessage(content, nil)}
}

// CallTools answers with an assistant message requesting the given calls.
func CallTools(calls ...schema.ToolCall) Step {
	return Step{Message: schema.AssistantMessage("", calls)}
}

func Fail(err error) Step {
	return Step{Err: err}
}

// ToolCall builds a function call as the model would emit it.
func ToolCall(id, name, arguments string) schema.ToolCall {
	return schema.ToolCall{
		ID:       id,
		Type:     "function",
		Function: schema.FunctionCall{Name: name, Arguments: arguments},
	}
}

// ScriptedModel replays steps in order and records every input it sees.
// With Repeat set, the final step is replayed forever.
type ScriptedModel struct {
	Repeat bool

	mu     sync.Mutex
	steps  []Step
	next   int
	inputs [][]*schema.Message
	tools  []*schema.ToolInfo
}

var _ model.ToolCallingChatModel = (*ScriptedModel)(nil)

func NewScriptedModel(steps ...Step) *ScriptedModel {
	return &ScriptedModel{steps: steps}
}

func (m *ScriptedModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.inputs = append(m.inputs, append([]*schema.Message(nil), input...))

	if m.next >= len(m.steps) {
		if !m.Repeat || len(m.steps) == 0 {
			return nil, ErrScriptExhausted
		}
		m.next = len(m.steps) - 1
	}
	step := m.steps[m.next]
	m.next++
	if step.Err != nil {
		return nil, step.Err
	}
	if step.Message == nil {
		return nil, nil
	}
	out := *step.Message
	return &out, nil
}

func (m *ScriptedModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// WithTools records the bound schemas and returns the same model so tests
// can inspect both.
func (m *ScriptedModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tools = append([]*schema.ToolInfo(nil), tools...)
	return m, nil
}

// Inputs returns the message sequences passed to Generate, one per call.
func (m *ScriptedModel) Inputs() [][]*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]*schema.Message(nil), m.inputs...)
}

func (m *ScriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inputs)
}

// BoundTools lists the names of the tools bound through WithTools.
func (m *ScriptedModel) BoundTools() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.tools))
	for _, t := range m.tools {
		names = append(names, t.Name)
	}
	return names
}
