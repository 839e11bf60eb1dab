// Package sentiment classifies how an HCP reacted to an interaction, using the
// chat model when enabled and keyword heuristics otherwise.
package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	analysis "github.com/zhouzirui/hcp-logger/backend/internal/analysis/sentiment"
)

// Config 控制情感分析服务的行为。
type Config struct {
	Enabled bool
}

// Result is a sentiment decision with the classifier's confidence.
type Result struct {
	Decision   analysis.Decision
	Confidence float32
	Reason     string
}

// Service 使用大模型对互动记录的情感进行分类，并在必要时回退到关键词规则。
type Service struct {
	enabled    bool
	classifier compose.Runnable[map[string]any, *schema.Message]
	fallback   func(text string) analysis.Decision
	logger     *slog.Logger
}

// NewService 创建情感分析服务。chatModel 可重用对话使用的模型实例，为 nil 时只使用规则。
func NewService(ctx context.Context, chatModel model.BaseChatModel, cfg Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	svc := &Service{
		enabled:  cfg.Enabled && chatModel != nil,
		fallback: analysis.Analyze,
		logger:   logger.With("component", "sentiment"),
	}
	if !svc.enabled {
		return svc, nil
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(classifierSystemPrompt),
		schema.UserMessage(classifierUserPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile sentiment classifier chain: %w", err)
	}
	svc.classifier = runnable
	return svc, nil
}

// Enabled 返回是否启用了模型分类。
func (s *Service) Enabled() bool {
	return s != nil && s.enabled && s.classifier != nil
}

// Infer classifies the notes. It never fails: classifier errors and
// unparseable answers fall back to the keyword analyzer.
func (s *Service) Infer(ctx context.Context, text string) (Result, error) {
	if !s.Enabled() || strings.TrimSpace(text) == "" {
		return s.fallbackResult(text), nil
	}

	msg, err := s.classifier.Invoke(ctx, map[string]any{"notes": strings.TrimSpace(text)})
	if err != nil {
		s.logger.Warn("classifier invoke failed, using fallback", "err", err)
		return s.fallbackResult(text), nil
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return s.fallbackResult(text), nil
	}

	payload, err := parseClassifierOutput(msg.Content)
	if err != nil {
		s.logger.Warn("classifier output parse failed, using fallback", "err", err)
		return s.fallbackResult(text), nil
	}

	label, ok := parseLabel(payload.Sentiment)
	if !ok {
		s.logger.Debug("classifier returned unknown label", "label", payload.Sentiment)
		return s.fallbackResult(text), nil
	}

	confidence := payload.Confidence
	if confidence <= 0 {
		confidence = 0.6
	}
	if confidence > 1 {
		confidence = 1
	}

	return Result{
		Decision:   analysis.Decision{Label: label},
		Confidence: confidence,
		Reason:     strings.TrimSpace(payload.Reason),
	}, nil
}

func (s *Service) fallbackResult(text string) Result {
	decision := s.fallback(text)
	confidence := float32(0.3)
	if decision.Score > 0 {
		confidence = 0.55
	}
	return Result{Decision: decision, Confidence: confidence, Reason: "fallback"}
}

// parseClassifierOutput 解析大模型返回的 JSON，允许前后夹带多余文本。
func parseClassifierOutput(content string) (*classifierPayload, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("missing json object")
	}

	payload := &classifierPayload{}
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func parseLabel(raw string) (analysis.Label, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "positive":
		return analysis.Positive, true
	case "neutral":
		return analysis.Neutral, true
	case "negative":
		return analysis.Negative, true
	default:
		return "", false
	}
}

type classifierPayload struct {
	Sentiment  string  `json:"sentiment"`
	Confidence float32 `json:"confidence"`
	Reason     string  `json:"reason"`
}

const classifierSystemPrompt = "You classify how a Healthcare Professional reacted during a meeting with a pharmaceutical field representative. " +
	"Read the representative's notes and answer with a single JSON object and nothing else. " +
	"Fields: sentiment (one of Positive, Neutral, Negative), confidence (a number between 0 and 1), reason (one short sentence)."

const classifierUserPrompt = "Notes:\n{notes}\n\nReturn the JSON object."
