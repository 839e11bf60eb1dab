package agent

import (
	"strings"

	"github.com/zhouzirui/hcp-logger/backend/internal/model/interaction"
)

// Kind is how a turn's reply is presented to the user.
type Kind string

const (
	KindText     Kind = "text"
	KindQuestion Kind = "question"
	KindDraft    Kind = "draft"
)

// Classify inspects reply text for the fixed draft markers first and then
// for clarification wording. Anything else is plain text.
func Classify(content string) Kind {
	if IsDraft(content) {
		return KindDraft
	}
	if IsClarification(content) {
		return KindQuestion
	}
	return KindText
}

// IsDraft reports whether content carries every marker of the draft template.
func IsDraft(content string) bool {
	return strings.Contains(content, interaction.LabelHCP) &&
		strings.Contains(content, interaction.LabelDate) &&
		strings.Contains(content, interaction.LabelTopics)
}

// IsClarification reports whether content mentions a question or asks to
// clarify. The engine uses it to decide whether to hand a tool result back to
// the model. It matches on wording only, so a summary that happens to contain
// "question" also qualifies.
func IsClarification(content string) bool {
	lower := strings.ToLower(content)
	return strings.Contains(lower, "question") || strings.Contains(lower, "clarify")
}
