package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/hcp-logger/backend/internal/agent"
	"github.com/zhouzirui/hcp-logger/backend/internal/agent/agenttest"
	"github.com/zhouzirui/hcp-logger/backend/internal/agent/tools"
	"github.com/zhouzirui/hcp-logger/backend/internal/model/chat"
	"github.com/zhouzirui/hcp-logger/backend/internal/model/hcp"
	"github.com/zhouzirui/hcp-logger/backend/internal/model/interaction"
)

func newTestService(t *testing.T, m *agenttest.ScriptedModel, opts ...Option) *Service {
	t.Helper()
	registry, err := tools.NewDefaultRegistry(context.Background(), nil, hcp.NewMemoryStore(hcp.Seed()))
	require.NoError(t, err)
	svc, err := NewService(context.Background(), m, registry, opts...)
	require.NoError(t, err)
	return svc
}

func TestRunTurnRejectsBlankMessage(t *testing.T) {
	m := agenttest.NewScriptedModel(agenttest.Reply("unused"))
	svc := newTestService(t, m)

	for _, msg := range []string{"", "   ", "\n\t"} {
		_, err := svc.RunTurn(context.Background(), TurnRequest{Message: msg})
		assert.ErrorIs(t, err, ErrEmptyMessage)
	}
	assert.Equal(t, 0, m.Calls())
}

func TestRunTurnBuildsInitialMessages(t *testing.T) {
	m := agenttest.NewScriptedModel(agenttest.Reply("Hello!"))
	svc := newTestService(t, m)

	reply, err := svc.RunTurn(context.Background(), TurnRequest{
		History: []chat.Message{
			{Sender: chat.SenderUser, Content: "I met Dr. Lee"},
			{Sender: chat.SenderAI, Content: "When?"},
			{Sender: "system", Content: "ignored"},
			{Sender: "assistant", Content: "Anything else?"},
		},
		Message: "Yesterday",
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello!", reply.Text)
	assert.Equal(t, agent.KindText, reply.Kind)
	assert.NotEmpty(t, reply.ID)
	assert.Nil(t, reply.Draft)
	assert.Equal(t, 6, reply.Messages)

	inputs := m.Inputs()
	require.Len(t, inputs, 1)
	got := inputs[0]
	require.Len(t, got, 5)

	assert.Equal(t, schema.System, got[0].Role)
	assert.Equal(t, DefaultSystemPrompt, got[0].Content)
	assert.Equal(t, schema.User, got[1].Role)
	assert.Equal(t, "I met Dr. Lee", got[1].Content)
	assert.Equal(t, schema.Assistant, got[2].Role)
	assert.Equal(t, "When?", got[2].Content)
	assert.Equal(t, schema.Assistant, got[3].Role)
	assert.Equal(t, "Anything else?", got[3].Content)
	assert.Equal(t, schema.User, got[4].Role)
	assert.Equal(t, "Yesterday", got[4].Content)
}

func TestRunTurnUsesCustomSystemPrompt(t *testing.T) {
	m := agenttest.NewScriptedModel(agenttest.Reply("ok"))
	svc := newTestService(t, m)

	_, err := svc.RunTurn(context.Background(), TurnRequest{SystemPrompt: "Be brief.", Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Be brief.", m.Inputs()[0][0].Content)
}

func TestRunTurnReturnsParsedDraft(t *testing.T) {
	m := agenttest.NewScriptedModel(agenttest.CallTools(agenttest.ToolCall("call_1", tools.DraftToolName,
		`{"hcpName":"Dr. Lee","interactionDate":"01-06-2024","interactionTime":"14:30","topicsDiscussed":"Drug X efficacy","attendees":["Dr. Lee","Nurse Kim"],"hcpSentiment":"Positive"}`)))
	svc := newTestService(t, m)

	reply, err := svc.RunTurn(context.Background(), TurnRequest{Message: "Log my meeting with Dr. Lee"})
	require.NoError(t, err)

	assert.Equal(t, agent.KindDraft, reply.Kind)
	require.NotNil(t, reply.Draft)
	assert.Equal(t, "Dr. Lee", reply.Draft.HCPName)
	assert.Equal(t, "01-06-2024", reply.Draft.InteractionDate)
	assert.Equal(t, "14:30", reply.Draft.InteractionTime)
	assert.Equal(t, []string{"Dr. Lee", "Nurse Kim"}, reply.Draft.Attendees)
	assert.Equal(t, "Positive", reply.Draft.HCPSentiment)
	assert.Empty(t, reply.Draft.Outcomes)
}

func TestRunTurnDraftComesFromToolArguments(t *testing.T) {
	m := agenttest.NewScriptedModel(agenttest.CallTools(agenttest.ToolCall("call_1", tools.DraftToolName,
		`{"hcpName":"Dr. Lee","interactionDate":"01-06-2024","topicsDiscussed":"Drug X efficacy\nand dosing","attendees":["Smith, John","Nurse Kim"],"hcpSentiment":"N/A"}`)))
	svc := newTestService(t, m)

	reply, err := svc.RunTurn(context.Background(), TurnRequest{Message: "Log my meeting with Dr. Lee"})
	require.NoError(t, err)

	assert.Equal(t, agent.KindDraft, reply.Kind)
	assert.Contains(t, reply.Text, "**Attendees:** Smith, John, Nurse Kim")
	require.NotNil(t, reply.Draft)
	assert.Equal(t, interaction.Draft{
		HCPName:         "Dr. Lee",
		InteractionDate: "01-06-2024",
		TopicsDiscussed: "Drug X efficacy\nand dosing",
		Attendees:       []string{"Smith, John", "Nurse Kim"},
	}, *reply.Draft)
}

func TestRunTurnParsesPlainTextDraft(t *testing.T) {
	text := "**HCP:** Dr. Lee\n**Date:** 01-06-2024\n**Topics:** Drug X efficacy\nand dosing"
	m := agenttest.NewScriptedModel(agenttest.Reply(text))
	svc := newTestService(t, m)

	reply, err := svc.RunTurn(context.Background(), TurnRequest{Message: "Log it"})
	require.NoError(t, err)
	assert.Equal(t, agent.KindDraft, reply.Kind)
	require.NotNil(t, reply.Draft)
	assert.Equal(t, "Drug X efficacy\nand dosing", reply.Draft.TopicsDiscussed)
}

func TestRunTurnClarifyingQuestion(t *testing.T) {
	m := agenttest.NewScriptedModel(
		agenttest.CallTools(agenttest.ToolCall("call_1", tools.ClarifyToolName, `{"question":"Could you clarify the meeting date?"}`)),
		agenttest.Reply("Could you clarify the meeting date?"),
	)
	svc := newTestService(t, m)

	reply, err := svc.RunTurn(context.Background(), TurnRequest{Message: "I met Dr. Lee"})
	require.NoError(t, err)
	assert.Equal(t, agent.KindQuestion, reply.Kind)
	assert.Equal(t, "Could you clarify the meeting date?", reply.Text)
}

func TestRunTurnTagsClarifyToolOutputAsQuestion(t *testing.T) {
	m := agenttest.NewScriptedModel(agenttest.CallTools(agenttest.ToolCall("call_1", tools.ClarifyToolName, `{"question":"What date did the meeting occur?"}`)))
	svc := newTestService(t, m)

	reply, err := svc.RunTurn(context.Background(), TurnRequest{Message: "I met Dr. Lee"})
	require.NoError(t, err)
	assert.Equal(t, 1, m.Calls())
	assert.Equal(t, "What date did the meeting occur?", reply.Text)
	assert.Equal(t, agent.KindQuestion, reply.Kind)
}

func TestClassifyReply(t *testing.T) {
	draft := "**HCP:** Dr. Lee\n**Date:** N/A\n**Topics:** dosing"
	assert.Equal(t, agent.KindQuestion, classifyReply(tools.ClarifyToolName, "Which date?"))
	assert.Equal(t, agent.KindDraft, classifyReply(tools.ClarifyToolName, draft))
	assert.Equal(t, agent.KindDraft, classifyReply(tools.DraftToolName, draft))
	assert.Equal(t, agent.KindText, classifyReply("", "Which date?"))
	assert.Equal(t, agent.KindText, classifyReply("fly_to_moon", "Unknown tool: fly_to_moon"))
}

func TestRunTurnPropagatesModelFailure(t *testing.T) {
	cause := errors.New("connection reset")
	m := agenttest.NewScriptedModel(agenttest.Fail(cause))
	svc := newTestService(t, m)

	reply, err := svc.RunTurn(context.Background(), TurnRequest{Message: "hello"})
	assert.Nil(t, reply)
	var llmErr *agent.LLMError
	assert.True(t, errors.As(err, &llmErr))
	assert.ErrorIs(t, err, cause)
}

func TestRunTurnHonoursCycleLimit(t *testing.T) {
	m := agenttest.NewScriptedModel(agenttest.CallTools(agenttest.ToolCall("", tools.ClarifyToolName, `{"question":"Another question?"}`)))
	m.Repeat = true
	svc := newTestService(t, m, WithMaxCycles(2))

	_, err := svc.RunTurn(context.Background(), TurnRequest{Message: "hello"})
	assert.ErrorIs(t, err, agent.ErrCycleLimit)
	assert.Equal(t, 2, m.Calls())
}

func TestReplyTextInvokesPendingToolCall(t *testing.T) {
	svc := newTestService(t, agenttest.NewScriptedModel())

	terminal := schema.AssistantMessage("", []schema.ToolCall{
		agenttest.ToolCall("call_1", tools.ClarifyToolName, `{"question":"Which product?"}`),
		agenttest.ToolCall("call_2", tools.SummarizeToolName, `{"text":"x"}`),
	})
	assert.Equal(t, "Which product?", svc.replyText(context.Background(), terminal))

	unknown := schema.AssistantMessage("", []schema.ToolCall{agenttest.ToolCall("call_3", "nope", "")})
	assert.Equal(t, "Unknown tool: nope", svc.replyText(context.Background(), unknown))

	assert.Equal(t, "plain", svc.replyText(context.Background(), schema.AssistantMessage("plain", nil)))
	assert.Equal(t, "", svc.replyText(context.Background(), nil))
}

func TestPromptBuilderAddsDirectoryContext(t *testing.T) {
	pb := NewPromptBuilder("")
	assert.Equal(t, DefaultSystemPrompt, pb.BuildSystemPrompt(nil))

	profiles := hcp.Seed()
	out := pb.BuildSystemPrompt(&profiles[1])
	assert.Contains(t, out, DefaultSystemPrompt)
	assert.Contains(t, out, "- Name: Dr. Patel")
	assert.Contains(t, out, "- Specialty: Endocrinology")
	assert.Contains(t, out, "type 2 diabetes, obesity")
}
