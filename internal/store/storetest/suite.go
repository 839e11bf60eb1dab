// Package storetest holds behaviour checks shared by every store driver.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/hcp-logger/backend/internal/store"
)

// RunInteractionSuite exercises a migrated, empty store.
func RunInteractionSuite(t *testing.T, s *store.Store) {
	t.Helper()
	ctx := context.Background()

	full := &store.Interaction{
		UID:             "draft-1",
		HCPName:         "Dr. Lee",
		InteractionDate: "2024-06-01",
		InteractionTime: "14:30",
		InteractionType: "Meeting",
		Attendees:       []string{"Dr. Lee", "Nurse Kim"},
		TopicsDiscussed: "Drug X efficacy",
		MaterialsShared: []string{"Brochure"},
		HCPSentiment:    "Positive",
		Outcomes:        "Agreed to trial",
		FollowUpActions: "Send samples",
		CreatedTs:       1717250000,
	}
	created, err := s.CreateInteraction(ctx, full)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	minimal := &store.Interaction{
		UID:             "draft-2",
		HCPName:         "Dr. Patel",
		InteractionDate: "2023-12-31",
		InteractionType: "Call",
		TopicsDiscussed: "Dosing",
		CreatedTs:       1717260000,
	}
	_, err = s.CreateInteraction(ctx, minimal)
	require.NoError(t, err)

	list, err := s.ListInteractions(ctx, nil)
	require.NoError(t, err)
	require.Len(t, list, 2)

	// newest first
	assert.Equal(t, "draft-2", list[0].UID)
	assert.Equal(t, "", list[0].InteractionTime)
	assert.Nil(t, list[0].Attendees)
	assert.Equal(t, "", list[0].HCPSentiment)

	got := list[1]
	assert.Equal(t, "Dr. Lee", got.HCPName)
	assert.Equal(t, "2024-06-01", got.InteractionDate)
	assert.Equal(t, "14:30", got.InteractionTime)
	assert.Equal(t, []string{"Dr. Lee", "Nurse Kim"}, got.Attendees)
	assert.Equal(t, []string{"Brochure"}, got.MaterialsShared)
	assert.Nil(t, got.SamplesDistributed)
	assert.Equal(t, "Positive", got.HCPSentiment)
	assert.Equal(t, int64(1717250000), got.CreatedTs)

	uid := "draft-1"
	one, err := s.GetInteraction(ctx, &store.FindInteraction{UID: &uid})
	require.NoError(t, err)
	require.NotNil(t, one)
	assert.Equal(t, created.ID, one.ID)

	missing := "nope"
	none, err := s.GetInteraction(ctx, &store.FindInteraction{UID: &missing})
	require.NoError(t, err)
	assert.Nil(t, none)

	name := "Dr. Patel"
	byName, err := s.ListInteractions(ctx, &store.FindInteraction{HCPName: &name})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "draft-2", byName[0].UID)

	dup := *minimal
	dup.ID = 0
	_, err = s.CreateInteraction(ctx, &dup)
	assert.ErrorIs(t, err, store.ErrDuplicateUID)

	require.NoError(t, s.Migrate(ctx), "migration must be repeatable")
}
