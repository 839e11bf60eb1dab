// Package interaction records HCP interactions submitted through the form or
// confirmed from a chat draft, and lists them back for display.
package interaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/hcp-logger/backend/internal/model/interaction"
	"github.com/zhouzirui/hcp-logger/backend/internal/store"
)

const confirmedMessage = "Log confirmed and saved successfully!"

// Repository is the persistence capability the service needs.
type Repository interface {
	CreateInteraction(ctx context.Context, create *store.Interaction) (*store.Interaction, error)
	ListInteractions(ctx context.Context, find *store.FindInteraction) ([]*store.Interaction, error)
	GetInteraction(ctx context.Context, find *store.FindInteraction) (*store.Interaction, error)
}

// Confirmation acknowledges a stored log.
type Confirmation struct {
	Message string `json:"message"`
	LogID   int32  `json:"log_id"`
}

// ConfirmRequest is a draft the user approved. DraftID, when set, makes the
// confirmation safe to retry.
type ConfirmRequest struct {
	DraftID string `json:"draftId,omitempty"`
	interaction.Draft
}

// Log is a stored interaction in display format.
type Log struct {
	ID                 int32    `json:"id"`
	HCPName            string   `json:"hcpName"`
	InteractionDate    string   `json:"interactionDate"`
	InteractionTime    *string  `json:"interactionTime"`
	InteractionType    string   `json:"interactionType"`
	Attendees          []string `json:"attendees"`
	TopicsDiscussed    string   `json:"topicsDiscussed"`
	MaterialsShared    []string `json:"materialsShared"`
	SamplesDistributed []string `json:"samplesDistributed"`
	HCPSentiment       *string  `json:"hcpSentiment"`
	Outcomes           *string  `json:"outcomes"`
	FollowUpActions    *string  `json:"followUpActions"`
	Timestamp          string   `json:"timestamp"`
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger.With("component", "interaction")}
}

// LogForm stores an interaction submitted in canonical form.
func (s *Service) LogForm(ctx context.Context, form interaction.Form) (*Confirmation, error) {
	if strings.TrimSpace(form.HCPName) == "" && strings.TrimSpace(form.TopicsDiscussed) == "" {
		return nil, &interaction.FieldError{Field: "hcpName", Message: "either HCP name or topics discussed must be provided"}
	}

	form.Normalize()
	if err := form.Validate(); err != nil {
		return nil, err
	}

	created, err := s.repo.CreateInteraction(ctx, recordFromForm(uuid.NewString(), form))
	if err != nil {
		return nil, fmt.Errorf("failed to log interaction: %w", err)
	}

	s.logger.Info("interaction logged via form", "log_id", created.ID, "hcp", form.HCPName)
	return &Confirmation{
		Message: fmt.Sprintf("Interaction with %s on %s logged successfully via form.", form.HCPName, form.InteractionDate),
		LogID:   created.ID,
	}, nil
}

// ConfirmDraft converts an approved draft to canonical form, validates it and
// stores it once per DraftID.
func (s *Service) ConfirmDraft(ctx context.Context, req ConfirmRequest) (*Confirmation, error) {
	form, err := formFromDraft(req.Draft)
	if err != nil {
		return nil, err
	}

	uid := strings.TrimSpace(req.DraftID)
	if uid != "" {
		if existing, err := s.findByUID(ctx, uid); err != nil {
			return nil, err
		} else if existing != nil {
			s.logger.Info("draft already confirmed", "draft_id", uid, "log_id", existing.ID)
			return &Confirmation{Message: confirmedMessage, LogID: existing.ID}, nil
		}
	} else {
		uid = uuid.NewString()
	}

	created, err := s.repo.CreateInteraction(ctx, recordFromForm(uid, form))
	if errors.Is(err, store.ErrDuplicateUID) {
		// a concurrent retry won the insert
		existing, findErr := s.findByUID(ctx, uid)
		if findErr != nil {
			return nil, findErr
		}
		if existing != nil {
			return &Confirmation{Message: confirmedMessage, LogID: existing.ID}, nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save log to database: %w", err)
	}

	s.logger.Info("chat draft confirmed", "log_id", created.ID, "draft_id", req.DraftID, "hcp", form.HCPName)
	return &Confirmation{Message: confirmedMessage, LogID: created.ID}, nil
}

// List returns every stored log, newest first. Rows that cannot be shown are
// logged and skipped.
func (s *Service) List(ctx context.Context) ([]Log, error) {
	records, err := s.repo.ListInteractions(ctx, &store.FindInteraction{})
	if err != nil {
		return nil, fmt.Errorf("failed to list logs: %w", err)
	}

	logs := make([]Log, 0, len(records))
	for _, record := range records {
		entry, err := toLog(record)
		if err != nil {
			s.logger.Warn("skipping unreadable log", "log_id", record.ID, "err", err)
			continue
		}
		logs = append(logs, entry)
	}
	return logs, nil
}

func (s *Service) findByUID(ctx context.Context, uid string) (*store.Interaction, error) {
	existing, err := s.repo.GetInteraction(ctx, &store.FindInteraction{UID: &uid})
	if err != nil {
		return nil, fmt.Errorf("failed to look up draft %s: %w", uid, err)
	}
	return existing, nil
}

// formFromDraft reparses display dates and times. N/A counts as empty.
func formFromDraft(d interaction.Draft) (interaction.Form, error) {
	sentiment, err := interaction.NormalizeSentiment(d.HCPSentiment)
	if err != nil {
		return interaction.Form{}, err
	}

	var date, clock string
	if v := notAvailableToEmpty(d.InteractionDate); v != "" {
		if date, err = interaction.ToCanonicalDate(v); err != nil {
			return interaction.Form{}, err
		}
	}
	if v := notAvailableToEmpty(d.InteractionTime); v != "" {
		if clock, err = interaction.ToCanonicalTime(v); err != nil {
			return interaction.Form{}, err
		}
	}

	form := interaction.Form{
		HCPName:            notAvailableToEmpty(d.HCPName),
		InteractionDate:    date,
		InteractionTime:    clock,
		InteractionType:    d.InteractionType,
		Attendees:          d.Attendees,
		TopicsDiscussed:    notAvailableToEmpty(d.TopicsDiscussed),
		MaterialsShared:    d.MaterialsShared,
		SamplesDistributed: d.SamplesDistributed,
		HCPSentiment:       sentiment,
		Outcomes:           notAvailableToEmpty(d.Outcomes),
		FollowUpActions:    notAvailableToEmpty(d.FollowUpActions),
	}
	form.Normalize()
	if err := form.Validate(); err != nil {
		return interaction.Form{}, err
	}
	return form, nil
}

func recordFromForm(uid string, f interaction.Form) *store.Interaction {
	return &store.Interaction{
		UID:                uid,
		HCPName:            f.HCPName,
		InteractionDate:    f.InteractionDate,
		InteractionTime:    f.InteractionTime,
		InteractionType:    f.InteractionType,
		Attendees:          f.Attendees,
		TopicsDiscussed:    f.TopicsDiscussed,
		MaterialsShared:    f.MaterialsShared,
		SamplesDistributed: f.SamplesDistributed,
		HCPSentiment:       f.HCPSentiment,
		Outcomes:           f.Outcomes,
		FollowUpActions:    f.FollowUpActions,
	}
}

func toLog(r *store.Interaction) (Log, error) {
	date, err := interaction.ToDisplayDate(r.InteractionDate)
	if err != nil {
		return Log{}, err
	}
	var clock *string
	if r.InteractionTime != "" {
		v, err := interaction.ToDisplayTime(r.InteractionTime)
		if err != nil {
			return Log{}, err
		}
		clock = &v
	}

	return Log{
		ID:                 r.ID,
		HCPName:            r.HCPName,
		InteractionDate:    date,
		InteractionTime:    clock,
		InteractionType:    r.InteractionType,
		Attendees:          nonNil(r.Attendees),
		TopicsDiscussed:    r.TopicsDiscussed,
		MaterialsShared:    nonNil(r.MaterialsShared),
		SamplesDistributed: nonNil(r.SamplesDistributed),
		HCPSentiment:       optional(r.HCPSentiment),
		Outcomes:           optional(r.Outcomes),
		FollowUpActions:    optional(r.FollowUpActions),
		Timestamp:          time.Unix(r.CreatedTs, 0).UTC().Format(time.RFC3339),
	}, nil
}

func notAvailableToEmpty(v string) string {
	v = strings.TrimSpace(v)
	if v == interaction.NotAvailable {
		return ""
	}
	return v
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
