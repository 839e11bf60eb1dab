package store

import (
	"context"

	"github.com/pkg/errors"
)

// Interaction is a confirmed interaction log in canonical form: dates are
// YYYY-MM-DD and times HH:MM (empty when unknown).
type Interaction struct {
	ID                 int32
	UID                string
	HCPName            string
	InteractionDate    string
	InteractionTime    string
	InteractionType    string
	Attendees          []string
	TopicsDiscussed    string
	MaterialsShared    []string
	SamplesDistributed []string
	HCPSentiment       string
	Outcomes           string
	FollowUpActions    string
	CreatedTs          int64
}

// FindInteraction filters ListInteractions. Results are ordered newest first.
type FindInteraction struct {
	UID     *string
	HCPName *string
	Limit   *int
}

// CreateInteraction inserts a log. A uid collision surfaces as
// ErrDuplicateUID.
func (s *Store) CreateInteraction(ctx context.Context, create *Interaction) (*Interaction, error) {
	interaction, err := s.driver.CreateInteraction(ctx, create)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create interaction")
	}
	return interaction, nil
}

func (s *Store) ListInteractions(ctx context.Context, find *FindInteraction) ([]*Interaction, error) {
	if find == nil {
		find = &FindInteraction{}
	}
	list, err := s.driver.ListInteractions(ctx, find)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list interactions")
	}
	return list, nil
}

// GetInteraction returns the first match, or nil when nothing matches.
func (s *Store) GetInteraction(ctx context.Context, find *FindInteraction) (*Interaction, error) {
	limit := 1
	scoped := FindInteraction{Limit: &limit}
	if find != nil {
		scoped.UID, scoped.HCPName = find.UID, find.HCPName
	}
	list, err := s.ListInteractions(ctx, &scoped)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}
