package sentiment

import "strings"

// Label is one of the sentiments an interaction log accepts.
type Label string

const (
	Positive Label = "Positive"
	Neutral  Label = "Neutral"
	Negative Label = "Negative"
)

// Decision gives the inferred sentiment and the evidence behind it.
type Decision struct {
	Label   Label
	Score   int
	Matches []string
}

var keywordBuckets = map[Label][]string{
	Positive: {
		"interested", "enthusiastic", "receptive", "agreed", "keen", "impressed", "supportive",
		"positive", "happy", "pleased", "will prescribe", "willing", "open to", "requested more",
		"asked for samples", "liked", "appreciated", "excited", "convinced", "great",
	},
	Negative: {
		"not interested", "skeptical", "sceptical", "concerned", "concerns", "declined", "refused",
		"unhappy", "negative", "dismissive", "frustrated", "rushed", "complained", "side effects",
		"too expensive", "no time", "annoyed", "rejected", "unconvinced", "hesitant",
	},
}

// phrases that contain a positive keyword but mean the opposite
var negatedPositives = []string{"not interested", "not keen", "not willing", "not convinced", "not impressed"}

// Analyze infers the HCP sentiment from free text such as topics, outcomes or
// the representative's notes. Text without clear evidence is Neutral.
func Analyze(text string) Decision {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return Decision{Label: Neutral}
	}

	// strip negated phrases before counting positives so they only score once
	positiveText := normalized
	for _, phrase := range negatedPositives {
		positiveText = strings.ReplaceAll(positiveText, phrase, " ")
	}

	scores := map[Label]int{}
	var matches []string
	for _, word := range keywordBuckets[Positive] {
		if strings.Contains(positiveText, word) {
			scores[Positive] += 2
			matches = append(matches, word)
		}
	}
	for _, word := range keywordBuckets[Negative] {
		if strings.Contains(normalized, word) {
			scores[Negative] += 2
			matches = append(matches, word)
		}
	}
	for _, phrase := range negatedPositives {
		if strings.Contains(normalized, phrase) && !contains(keywordBuckets[Negative], phrase) {
			scores[Negative] += 2
			matches = append(matches, phrase)
		}
	}

	exclamations := strings.Count(text, "!")
	if exclamations > 0 && scores[Positive] > 0 {
		scores[Positive] += exclamations
	}

	switch {
	case scores[Positive] > scores[Negative]:
		return Decision{Label: Positive, Score: scores[Positive] - scores[Negative], Matches: matches}
	case scores[Negative] > scores[Positive]:
		return Decision{Label: Negative, Score: scores[Negative] - scores[Positive], Matches: matches}
	default:
		return Decision{Label: Neutral, Matches: matches}
	}
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
