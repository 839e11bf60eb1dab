package interaction

import (
	"errors"
	"strings"
)

// NotAvailable is rendered for every empty draft field.
const NotAvailable = "N/A"

// Draft labels in template order.
const (
	LabelHCP       = "**HCP:**"
	LabelDate      = "**Date:**"
	LabelTime      = "**Time:**"
	LabelType      = "**Type:**"
	LabelAttendees = "**Attendees:**"
	LabelTopics    = "**Topics:**"
	LabelMaterials = "**Materials Shared:**"
	LabelSamples   = "**Samples Distributed:**"
	LabelSentiment = "**Sentiment:**"
	LabelOutcomes  = "**Outcomes:**"
	LabelFollowUp  = "**Follow-up:**"
)

// ErrNotDraft is returned by ParseDraft when the text lacks the draft markers.
var ErrNotDraft = errors.New("text is not a structured draft")

// Draft carries interaction fields in their display form: dates are
// DD-MM-YYYY and times HH:MM. It is what the chat agent proposes and what the
// user confirms.
type Draft struct {
	HCPName            string   `json:"hcpName"`
	InteractionDate    string   `json:"interactionDate"`
	InteractionTime    string   `json:"interactionTime,omitempty"`
	InteractionType    string   `json:"interactionType,omitempty"`
	Attendees          []string `json:"attendees,omitempty"`
	TopicsDiscussed    string   `json:"topicsDiscussed"`
	MaterialsShared    []string `json:"materialsShared,omitempty"`
	SamplesDistributed []string `json:"samplesDistributed,omitempty"`
	HCPSentiment       string   `json:"hcpSentiment,omitempty"`
	Outcomes           string   `json:"outcomes,omitempty"`
	FollowUpActions    string   `json:"followUpActions,omitempty"`
}

// Format renders the draft with one labelled field per line.
func (d Draft) Format() string {
	lines := []string{
		LabelHCP + " " + orNotAvailable(d.HCPName),
		LabelDate + " " + orNotAvailable(d.InteractionDate),
		LabelTime + " " + orNotAvailable(d.InteractionTime),
		LabelType + " " + orNotAvailable(d.InteractionType),
		LabelAttendees + " " + joinOrNotAvailable(d.Attendees),
		LabelTopics + " " + orNotAvailable(d.TopicsDiscussed),
		LabelMaterials + " " + joinOrNotAvailable(d.MaterialsShared),
		LabelSamples + " " + joinOrNotAvailable(d.SamplesDistributed),
		LabelSentiment + " " + orNotAvailable(d.HCPSentiment),
		LabelOutcomes + " " + orNotAvailable(d.Outcomes),
		LabelFollowUp + " " + orNotAvailable(d.FollowUpActions),
	}
	return strings.Join(lines, "\n")
}

// ParseDraft reads a formatted draft back into its fields. N/A values become
// empty and list fields are split on ", ". A line without a label continues
// the previous field, and a blank line ends it, so the draft may be
// surrounded by prose. List items that themselves contain ", " cannot be told
// apart in text; callers holding the tool arguments should use those instead.
func ParseDraft(text string) (Draft, error) {
	if !strings.Contains(text, LabelHCP) || !strings.Contains(text, LabelDate) || !strings.Contains(text, LabelTopics) {
		return Draft{}, ErrNotDraft
	}

	values := make(map[string]string, len(labels))
	current := ""
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			current = ""
			continue
		}
		label, value, ok := splitLabel(line)
		if !ok {
			if current != "" {
				if values[current] == "" {
					values[current] = line
				} else {
					values[current] += "\n" + line
				}
			}
			continue
		}
		values[label] = value
		current = label
	}

	return Draft{
		HCPName:            values[LabelHCP],
		InteractionDate:    values[LabelDate],
		InteractionTime:    values[LabelTime],
		InteractionType:    values[LabelType],
		Attendees:          splitList(values[LabelAttendees]),
		TopicsDiscussed:    values[LabelTopics],
		MaterialsShared:    splitList(values[LabelMaterials]),
		SamplesDistributed: splitList(values[LabelSamples]),
		HCPSentiment:       values[LabelSentiment],
		Outcomes:           values[LabelOutcomes],
		FollowUpActions:    values[LabelFollowUp],
	}, nil
}

// Normalize trims every field, maps N/A to empty and drops blank list items,
// matching what ParseDraft returns for the same draft.
func (d Draft) Normalize() Draft {
	return Draft{
		HCPName:            normalizeValue(d.HCPName),
		InteractionDate:    normalizeValue(d.InteractionDate),
		InteractionTime:    normalizeValue(d.InteractionTime),
		InteractionType:    normalizeValue(d.InteractionType),
		Attendees:          normalizeList(d.Attendees),
		TopicsDiscussed:    normalizeValue(d.TopicsDiscussed),
		MaterialsShared:    normalizeList(d.MaterialsShared),
		SamplesDistributed: normalizeList(d.SamplesDistributed),
		HCPSentiment:       normalizeValue(d.HCPSentiment),
		Outcomes:           normalizeValue(d.Outcomes),
		FollowUpActions:    normalizeValue(d.FollowUpActions),
	}
}

func normalizeValue(value string) string {
	value = strings.TrimSpace(value)
	if value == NotAvailable {
		return ""
	}
	return value
}

func normalizeList(items []string) []string {
	var kept []string
	for _, item := range items {
		if item = normalizeValue(item); item != "" {
			kept = append(kept, item)
		}
	}
	return kept
}

var labels = []string{
	LabelHCP, LabelDate, LabelTime, LabelType, LabelAttendees, LabelTopics,
	LabelMaterials, LabelSamples, LabelSentiment, LabelOutcomes, LabelFollowUp,
}

func splitLabel(line string) (string, string, bool) {
	for _, label := range labels {
		if !strings.HasPrefix(line, label) {
			continue
		}
		value := strings.TrimSpace(strings.TrimPrefix(line, label))
		if value == NotAvailable {
			value = ""
		}
		return label, value, true
	}
	return "", "", false
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ", ")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	return items
}

func orNotAvailable(value string) string {
	value = strings.TrimSpace(value)
	if value == "" || value == NotAvailable {
		return NotAvailable
	}
	return value
}

func joinOrNotAvailable(items []string) string {
	kept := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			kept = append(kept, item)
		}
	}
	if len(kept) == 0 {
		return NotAvailable
	}
	return strings.Join(kept, ", ")
}
