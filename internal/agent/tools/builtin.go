package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"

	"github.com/zhouzirui/hcp-logger/backend/internal/analysis/sentiment"
	"github.com/zhouzirui/hcp-logger/backend/internal/model/hcp"
	"github.com/zhouzirui/hcp-logger/backend/internal/model/interaction"
)

// Tool names exposed to the model.
const (
	DraftToolName     = "log_interaction_tool"
	ClarifyToolName   = "ask_clarifying_question_tool"
	SummarizeToolName = "summarize_interaction_tool"
	EditToolName      = "edit_interaction_tool"
	HCPInfoToolName   = "retrieve_hcp_info_tool"
	SentimentToolName = "infer_sentiment_tool"
)

const summaryPreviewRunes = 100

type validator interface {
	Validate() error
}

// DraftArgs are the arguments of the draft-formatting tool. Dates are
// DD-MM-YYYY and times HH:MM.
type DraftArgs struct {
	HCPName            string   `json:"hcpName" jsonschema_description:"Full name of the healthcare professional"`
	InteractionDate    string   `json:"interactionDate" jsonschema_description:"Date of the interaction in DD-MM-YYYY format"`
	TopicsDiscussed    string   `json:"topicsDiscussed" jsonschema_description:"Key discussion points of the interaction"`
	InteractionTime    string   `json:"interactionTime,omitempty" jsonschema_description:"Time of the interaction in HH:MM format"`
	InteractionType    string   `json:"interactionType,omitempty" jsonschema_description:"Meeting, Call, Email, Conference or Other"`
	Attendees          []string `json:"attendees,omitempty" jsonschema_description:"People present at the interaction"`
	MaterialsShared    []string `json:"materialsShared,omitempty" jsonschema_description:"Materials shared with the HCP"`
	SamplesDistributed []string `json:"samplesDistributed,omitempty" jsonschema_description:"Product samples handed out"`
	HCPSentiment       string   `json:"hcpSentiment,omitempty" jsonschema_description:"Positive, Neutral or Negative"`
	Outcomes           string   `json:"outcomes,omitempty" jsonschema_description:"Key outcomes or agreements"`
	FollowUpActions    string   `json:"followUpActions,omitempty" jsonschema_description:"Planned follow-up actions"`
}

// Draft converts the arguments into an interaction draft.
func (a DraftArgs) Draft() interaction.Draft {
	return interaction.Draft{
		HCPName:            a.HCPName,
		InteractionDate:    a.InteractionDate,
		InteractionTime:    a.InteractionTime,
		InteractionType:    a.InteractionType,
		Attendees:          a.Attendees,
		TopicsDiscussed:    a.TopicsDiscussed,
		MaterialsShared:    a.MaterialsShared,
		SamplesDistributed: a.SamplesDistributed,
		HCPSentiment:       a.HCPSentiment,
		Outcomes:           a.Outcomes,
		FollowUpActions:    a.FollowUpActions,
	}
}

type ClarifyArgs struct {
	Question string `json:"question" jsonschema_description:"The clarifying question to ask the user"`
}

func (a ClarifyArgs) Validate() error {
	if strings.TrimSpace(a.Question) == "" {
		return errors.New("question is required")
	}
	return nil
}

type SummarizeArgs struct {
	Text string `json:"text" jsonschema_description:"Unstructured text to condense"`
}

type EditArgs struct {
	InteractionID string `json:"interaction_id" jsonschema_description:"Identifier of the logged interaction"`
	FieldToEdit   string `json:"field_to_edit" jsonschema_description:"Name of the field to change"`
	NewValue      string `json:"new_value" jsonschema_description:"Replacement value"`
}

func (a EditArgs) Validate() error {
	if strings.TrimSpace(a.InteractionID) == "" || strings.TrimSpace(a.FieldToEdit) == "" {
		return errors.New("interaction_id and field_to_edit are required")
	}
	return nil
}

type HCPInfoArgs struct {
	HCPName string `json:"hcp_name" jsonschema_description:"Name of the healthcare professional"`
}

func (a HCPInfoArgs) Validate() error {
	if strings.TrimSpace(a.HCPName) == "" {
		return errors.New("hcp_name is required")
	}
	return nil
}

type SentimentArgs struct {
	Text string `json:"text" jsonschema_description:"Notes describing how the HCP reacted"`
}

// SentimentInferrer suggests a sentiment label from free-text notes.
type SentimentInferrer interface {
	Infer(ctx context.Context, text string) (sentiment.Decision, error)
}

// SentimentFunc adapts a function to SentimentInferrer.
type SentimentFunc func(ctx context.Context, text string) (sentiment.Decision, error)

func (f SentimentFunc) Infer(ctx context.Context, text string) (sentiment.Decision, error) {
	return f(ctx, text)
}

type defaultsOptions struct {
	sentiment SentimentInferrer
}

type DefaultsOption func(*defaultsOptions)

// WithSentimentInferrer replaces the keyword analyzer behind the sentiment tool.
func WithSentimentInferrer(inferrer SentimentInferrer) DefaultsOption {
	return func(o *defaultsOptions) {
		if inferrer != nil {
			o.sentiment = inferrer
		}
	}
}

// Defaults builds the tool set of the interaction logging agent.
func Defaults(directory hcp.Store, opts ...DefaultsOption) ([]tool.InvokableTool, error) {
	o := defaultsOptions{sentiment: SentimentFunc(func(_ context.Context, text string) (sentiment.Decision, error) {
		return sentiment.Analyze(text), nil
	})}
	for _, opt := range opts {
		opt(&o)
	}

	builders := []func() (tool.InvokableTool, error){
		func() (tool.InvokableTool, error) {
			return newTool(DraftToolName,
				"Formats structured HCP interaction data into a human-readable draft for the user to confirm. "+
					"Provide interactionDate in DD-MM-YYYY format and interactionTime in HH:MM.",
				FormatDraft)
		},
		func() (tool.InvokableTool, error) {
			return newTool(ClarifyToolName,
				"Asks the user a clarifying question when more details are needed to complete an interaction log.",
				AskClarifyingQuestion)
		},
		func() (tool.InvokableTool, error) {
			return newTool(SummarizeToolName,
				"Summarizes a given text input, useful for condensing long user inputs.",
				Summarize)
		},
		func() (tool.InvokableTool, error) {
			return newTool(EditToolName,
				"Modifies a field of an existing logged interaction. Placeholder for future functionality.",
				EditInteraction)
		},
		func() (tool.InvokableTool, error) {
			return newTool(HCPInfoToolName,
				"Retrieves detailed information about a Healthcare Professional (HCP).",
				hcpInfo(directory))
		},
		func() (tool.InvokableTool, error) {
			return newTool(SentimentToolName,
				"Suggests the HCP sentiment (Positive, Neutral or Negative) from notes about the interaction.",
				inferSentiment(o.sentiment))
		},
	}

	items := make([]tool.InvokableTool, 0, len(builders))
	for _, build := range builders {
		t, err := build()
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, nil
}

// NewDefaultRegistry is NewRegistry over Defaults.
func NewDefaultRegistry(ctx context.Context, logger *slog.Logger, directory hcp.Store, opts ...DefaultsOption) (*Registry, error) {
	items, err := Defaults(directory, opts...)
	if err != nil {
		return nil, err
	}
	return NewRegistry(ctx, logger, items...)
}

// newTool infers the schema from T and validates decoded arguments before fn
// runs.
func newTool[T any](name, desc string, fn func(ctx context.Context, args T) (string, error)) (tool.InvokableTool, error) {
	t, err := utils.InferTool[T, string](name, desc, func(ctx context.Context, args T) (string, error) {
		if v, ok := any(args).(validator); ok {
			if err := v.Validate(); err != nil {
				return "", err
			}
		}
		return fn(ctx, args)
	})
	if err != nil {
		return nil, fmt.Errorf("build tool %s: %w", name, err)
	}
	return t, nil
}

// FormatDraft renders the interaction draft shown to the user for confirmation.
func FormatDraft(_ context.Context, args DraftArgs) (string, error) {
	return args.Draft().Format(), nil
}

// AskClarifyingQuestion echoes the question verbatim.
func AskClarifyingQuestion(_ context.Context, args ClarifyArgs) (string, error) {
	return args.Question, nil
}

func Summarize(_ context.Context, args SummarizeArgs) (string, error) {
	preview := []rune(args.Text)
	if len(preview) > summaryPreviewRunes {
		preview = preview[:summaryPreviewRunes]
	}
	return fmt.Sprintf("Summary of provided text: '%s...' (mock summary)", string(preview)), nil
}

func EditInteraction(_ context.Context, args EditArgs) (string, error) {
	return fmt.Sprintf("Mock: Interaction %s field '%s' updated to '%s'.", args.InteractionID, args.FieldToEdit, args.NewValue), nil
}

// InferSentiment answers with the keyword analyzer's label.
func InferSentiment(_ context.Context, args SentimentArgs) (string, error) {
	decision := sentiment.Analyze(args.Text)
	return fmt.Sprintf("Suggested sentiment: %s", decision.Label), nil
}

func inferSentiment(inferrer SentimentInferrer) func(context.Context, SentimentArgs) (string, error) {
	return func(ctx context.Context, args SentimentArgs) (string, error) {
		decision, err := inferrer.Infer(ctx, args.Text)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Suggested sentiment: %s", decision.Label), nil
	}
}

func hcpInfo(directory hcp.Store) func(context.Context, HCPInfoArgs) (string, error) {
	return func(_ context.Context, args HCPInfoArgs) (string, error) {
		if directory != nil {
			if p, ok := directory.FindByName(args.HCPName); ok {
				var b strings.Builder
				fmt.Fprintf(&b, "Retrieved info for %s: Speciality: %s, Institution: %s, Location: %s.", p.Name, p.Specialty, p.Institution, p.Location)
				if len(p.Interests) > 0 {
					fmt.Fprintf(&b, " Interests: %s.", strings.Join(p.Interests, ", "))
				}
				if p.Preferences != "" {
					fmt.Fprintf(&b, " Preferences: %s", p.Preferences)
				}
				return b.String(), nil
			}
		}
		return fmt.Sprintf("Mock: Retrieved info for %s: Speciality: Cardiology, Location: City Hospital.", args.HCPName), nil
	}
}
