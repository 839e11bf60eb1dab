package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/hcp-logger/backend/internal/model/hcp"
)

// DefaultSystemPrompt steers the model toward extracting interaction details
// and calling the draft tool with display-format dates and times.
const DefaultSystemPrompt = "You are a helpful AI assistant for logging interactions with Healthcare Professionals (HCPs). " +
	"Your primary goal is to extract key details from the user's conversation (HCP name, date, time, attendees, " +
	"topics discussed, materials/samples, sentiment, outcomes, follow-up actions). " +
	"Once you have sufficient information for a complete log, offer to draft a summary in a structured format by calling the `log_interaction_tool`. " +
	"If you don't have enough information, ask clarifying questions using `ask_clarifying_question_tool`. " +
	"When drafting a log, ensure all parameters for `log_interaction_tool` are provided. " +
	"Always respond concisely and directly address the user's query. " +
	"**IMPORTANT: When extracting dates for `log_interaction_tool`, always use the DD-MM-YYYY format.** " +
	"**IMPORTANT: When extracting times for `log_interaction_tool`, always use the HH:MM format.**"

// PromptBuilder renders the system prompt of a turn, optionally grounded in
// the directory entry of the HCP the session is about.
type PromptBuilder struct {
	base  string
	rules []string
}

func NewPromptBuilder(base string) *PromptBuilder {
	if strings.TrimSpace(base) == "" {
		base = DefaultSystemPrompt
	}
	return &PromptBuilder{
		base: base,
		rules: []string{
			"Prefer the HCP's full name as listed in the directory when filling hcpName.",
			"Use `infer_sentiment_tool` when the user describes the HCP's reaction but not a sentiment.",
			"Never invent a date; ask for it instead.",
		},
	}
}

// BuildSystemPrompt returns the base prompt, extended with directory context
// when profile is known.
func (pb *PromptBuilder) BuildSystemPrompt(profile *hcp.Profile) string {
	if profile == nil {
		return pb.base
	}

	var b strings.Builder
	b.WriteString(pb.base)
	b.WriteString("\n\nThe user is logging an interaction with a known HCP:\n")
	fmt.Fprintf(&b, "- Name: %s\n", profile.Name)
	fmt.Fprintf(&b, "- Specialty: %s\n", profile.Specialty)
	fmt.Fprintf(&b, "- Institution: %s (%s)\n", profile.Institution, profile.Location)
	if len(profile.Interests) > 0 {
		fmt.Fprintf(&b, "- Interests: %s\n", strings.Join(profile.Interests, ", "))
	}
	if profile.Preferences != "" {
		fmt.Fprintf(&b, "- Preferences: %s\n", profile.Preferences)
	}
	b.WriteString("\nRules:\n- ")
	b.WriteString(strings.Join(pb.rules, "\n- "))
	return b.String()
}
