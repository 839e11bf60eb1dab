package interaction

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Date and time layouts. Display formats are what drafts and listings show;
// canonical formats are what the store keeps.
const (
	DisplayDateLayout   = "02-01-2006"
	CanonicalDateLayout = "2006-01-02"
	TimeLayout          = "15:04"

	// lenientDateLayout also reads single-digit days and months.
	lenientDateLayout = "2-1-2006"
)

const (
	maxNameLength = 100
	maxNoteLength = 500
	defaultType   = "Meeting"
)

// ErrValidation is matched by every FieldError.
var ErrValidation = errors.New("validation failed")

var (
	interactionTypes = []string{"Meeting", "Call", "Email", "Conference", "Other"}
	sentiments       = []string{"Positive", "Neutral", "Negative"}
	titleCaser       = cases.Title(language.English)
)

// FieldError reports a single invalid field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *FieldError) Unwrap() error { return ErrValidation }

// Form is an interaction in canonical form, as submitted by the structured
// form or produced from a confirmed draft.
type Form struct {
	HCPName            string   `json:"hcpName"`
	InteractionDate    string   `json:"interactionDate"`
	InteractionTime    string   `json:"interactionTime,omitempty"`
	InteractionType    string   `json:"interactionType"`
	Attendees          []string `json:"attendees"`
	TopicsDiscussed    string   `json:"topicsDiscussed"`
	MaterialsShared    []string `json:"materialsShared"`
	SamplesDistributed []string `json:"samplesDistributed"`
	HCPSentiment       string   `json:"hcpSentiment"`
	Outcomes           string   `json:"outcomes"`
	FollowUpActions    string   `json:"followUpActions"`
}

// Normalize trims text fields, fills defaults and canonicalises the casing of
// enumerated values. Unknown enumerated values are left for Validate to reject.
func (f *Form) Normalize() {
	f.HCPName = strings.TrimSpace(f.HCPName)
	f.InteractionDate = strings.TrimSpace(f.InteractionDate)
	f.InteractionTime = strings.TrimSpace(f.InteractionTime)
	f.TopicsDiscussed = strings.TrimSpace(f.TopicsDiscussed)
	f.Outcomes = strings.TrimSpace(f.Outcomes)
	f.FollowUpActions = strings.TrimSpace(f.FollowUpActions)
	f.Attendees = compact(f.Attendees)
	f.MaterialsShared = compact(f.MaterialsShared)
	f.SamplesDistributed = compact(f.SamplesDistributed)

	f.InteractionType = strings.TrimSpace(f.InteractionType)
	if f.InteractionType == "" || f.InteractionType == NotAvailable {
		f.InteractionType = defaultType
	} else if v, ok := matchFold(interactionTypes, f.InteractionType); ok {
		f.InteractionType = v
	}

	if v, err := NormalizeSentiment(f.HCPSentiment); err == nil {
		f.HCPSentiment = v
	}
}

// Validate checks the form and returns every problem found, joined.
func (f Form) Validate() error {
	var errs []error

	switch n := utf8.RuneCountInString(f.HCPName); {
	case n == 0:
		errs = append(errs, &FieldError{Field: "hcpName", Message: "is required"})
	case n > maxNameLength:
		errs = append(errs, &FieldError{Field: "hcpName", Message: fmt.Sprintf("must be at most %d characters", maxNameLength)})
	}

	if f.InteractionDate == "" {
		errs = append(errs, &FieldError{Field: "interactionDate", Message: "is required"})
	} else if _, err := time.Parse(CanonicalDateLayout, f.InteractionDate); err != nil {
		errs = append(errs, &FieldError{Field: "interactionDate", Message: fmt.Sprintf("%q is not a YYYY-MM-DD date", f.InteractionDate)})
	}

	if f.InteractionTime != "" {
		if _, err := time.Parse(TimeLayout, f.InteractionTime); err != nil {
			errs = append(errs, &FieldError{Field: "interactionTime", Message: fmt.Sprintf("%q is not an HH:MM time", f.InteractionTime)})
		}
	}

	if f.InteractionType != "" && !contains(interactionTypes, f.InteractionType) {
		errs = append(errs, &FieldError{Field: "interactionType", Message: fmt.Sprintf("must be one of %s", strings.Join(interactionTypes, ", "))})
	}

	if f.TopicsDiscussed == "" {
		errs = append(errs, &FieldError{Field: "topicsDiscussed", Message: "is required"})
	}

	if f.HCPSentiment != "" && !contains(sentiments, f.HCPSentiment) {
		errs = append(errs, &FieldError{Field: "hcpSentiment", Message: "must be Positive, Neutral, Negative, or empty"})
	}

	if utf8.RuneCountInString(f.Outcomes) > maxNoteLength {
		errs = append(errs, &FieldError{Field: "outcomes", Message: fmt.Sprintf("must be at most %d characters", maxNoteLength)})
	}
	if utf8.RuneCountInString(f.FollowUpActions) > maxNoteLength {
		errs = append(errs, &FieldError{Field: "followUpActions", Message: fmt.Sprintf("must be at most %d characters", maxNoteLength)})
	}

	return errors.Join(errs...)
}

// NormalizeSentiment maps empty and N/A to the empty string and fixes the
// casing of a known sentiment.
func NormalizeSentiment(raw string) (string, error) {
	v := strings.TrimSpace(raw)
	if v == "" || strings.EqualFold(v, NotAvailable) {
		return "", nil
	}
	titled := titleCaser.String(v)
	if !contains(sentiments, titled) {
		return "", &FieldError{Field: "hcpSentiment", Message: fmt.Sprintf("%q must be Positive, Neutral, Negative, or empty/N/A", v)}
	}
	return titled, nil
}

// ToCanonicalDate converts DD-MM-YYYY to YYYY-MM-DD. Day and month may be
// written without the leading zero.
func ToCanonicalDate(display string) (string, error) {
	t, err := time.Parse(lenientDateLayout, strings.TrimSpace(display))
	if err != nil {
		return "", &FieldError{Field: "interactionDate", Message: fmt.Sprintf("%q does not match DD-MM-YYYY", display)}
	}
	return t.Format(CanonicalDateLayout), nil
}

// ToDisplayDate converts YYYY-MM-DD to DD-MM-YYYY.
func ToDisplayDate(canonical string) (string, error) {
	t, err := time.Parse(CanonicalDateLayout, strings.TrimSpace(canonical))
	if err != nil {
		return "", &FieldError{Field: "interactionDate", Message: fmt.Sprintf("%q does not match YYYY-MM-DD", canonical)}
	}
	return t.Format(DisplayDateLayout), nil
}

// ToCanonicalTime validates an HH:MM display time and returns it zero-padded.
func ToCanonicalTime(display string) (string, error) {
	t, err := time.Parse(TimeLayout, strings.TrimSpace(display))
	if err != nil {
		return "", &FieldError{Field: "interactionTime", Message: fmt.Sprintf("%q does not match HH:MM", display)}
	}
	return t.Format(TimeLayout), nil
}

// ToDisplayTime accepts HH:MM or HH:MM:SS and returns HH:MM.
func ToDisplayTime(canonical string) (string, error) {
	v := strings.TrimSpace(canonical)
	if len(v) == len("15:04:05") {
		v = v[:len(TimeLayout)]
	}
	t, err := time.Parse(TimeLayout, v)
	if err != nil {
		return "", &FieldError{Field: "interactionTime", Message: fmt.Sprintf("%q does not match HH:MM", canonical)}
	}
	return t.Format(TimeLayout), nil
}

// DraftFromForm renders a canonical form in display format.
func DraftFromForm(f Form) (Draft, error) {
	date, err := ToDisplayDate(f.InteractionDate)
	if err != nil {
		return Draft{}, err
	}
	var clock string
	if f.InteractionTime != "" {
		if clock, err = ToDisplayTime(f.InteractionTime); err != nil {
			return Draft{}, err
		}
	}
	return Draft{
		HCPName:            f.HCPName,
		InteractionDate:    date,
		InteractionTime:    clock,
		InteractionType:    f.InteractionType,
		Attendees:          f.Attendees,
		TopicsDiscussed:    f.TopicsDiscussed,
		MaterialsShared:    f.MaterialsShared,
		SamplesDistributed: f.SamplesDistributed,
		HCPSentiment:       f.HCPSentiment,
		Outcomes:           f.Outcomes,
		FollowUpActions:    f.FollowUpActions,
	}, nil
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func matchFold(values []string, v string) (string, bool) {
	for _, candidate := range values {
		if strings.EqualFold(candidate, v) {
			return candidate, true
		}
	}
	return "", false
}
