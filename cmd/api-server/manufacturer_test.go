package main

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfqmarket/db"
	"rfqmarket/models"
)

type recordingStatusSetter struct {
	statuses map[uuid.UUID]models.ManufacturerStatus
}

func (s *recordingStatusSetter) SetManufacturerStatus(ctx context.Context, id uuid.UUID, status models.ManufacturerStatus) error {
	if _, ok := s.statuses[id]; !ok {
		return db.ErrNotFound
	}
	s.statuses[id] = status
	return nil
}

func TestSetManufacturerStatus(t *testing.T) {
	id := uuid.New()
	s := &recordingStatusSetter{statuses: map[uuid.UUID]models.ManufacturerStatus{id: models.ManufacturerPendingReview}}

	require.NoError(t, setManufacturerStatus(context.Background(), s, id.String(), models.ManufacturerActive))
	assert.Equal(t, models.ManufacturerActive, s.statuses[id])

	err := setManufacturerStatus(context.Background(), s, uuid.NewString(), models.ManufacturerActive)
	require.ErrorIs(t, err, db.ErrNotFound)

	require.Error(t, setManufacturerStatus(context.Background(), s, "not-a-uuid", models.ManufacturerSuspended))
	assert.Equal(t, models.ManufacturerActive, s.statuses[id])
}

func TestManufacturerCommandRequiresID(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"manufacturer", "activate"})
	require.Error(t, cmd.Execute())
}
