package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamhuddle/backend/internal/models"
	"github.com/teamhuddle/backend/pkg/queue"
)

type recordingEnqueuer struct {
	jobType queue.JobType
	payload interface{}
	err     error
}

func (r *recordingEnqueuer) Enqueue(_ context.Context, t queue.JobType, p interface{}) error {
	r.jobType, r.payload = t, p
	return r.err
}

type recordingWriter struct{ rows []models.Notification }

func (w *recordingWriter) InsertMany(_ context.Context, ns []models.Notification) (int64, error) {
	w.rows = append(w.rows, ns...)
	return int64(len(ns)), nil
}

func TestActivityCreatedSkipsCreator(t *testing.T) {
	creator, a, b := uuid.New(), uuid.New(), uuid.New()
	act := &models.Activity{ID: uuid.New(), Title: "Team Lunch", CreatedBy: &creator}

	ns := ActivityCreated(act, []uuid.UUID{creator, a, b})
	require.Len(t, ns, 2)
	for _, n := range ns {
		assert.NotEqual(t, creator, n.UserID)
		assert.Equal(t, "Team Lunch has been scheduled!", n.Message)
		assert.Equal(t, models.NotificationActivityCreated, n.Type)
		assert.Equal(t, act.ID, *n.ReferenceID)
	}
}

func TestLeaderboardMarkedMessage(t *testing.T) {
	act := &models.Activity{ID: uuid.New(), Title: "Bowling"}
	ns := LeaderboardMarked(act, uuid.New(), 2)
	require.Len(t, ns, 1)
	assert.Equal(t, "You ranked #2 in Bowling!", ns[0].Message)
}

func TestParticipationResponseWithoutCreator(t *testing.T) {
	assert.Empty(t, ParticipationResponse(&models.Activity{Title: "x"}, "Ann", models.ParticipationAccepted))

	creator := uuid.New()
	ns := ParticipationResponse(&models.Activity{Title: "Hike", CreatedBy: &creator}, "Ann", models.ParticipationRejected)
	require.Len(t, ns, 1)
	assert.Equal(t, creator, ns[0].UserID)
	assert.Equal(t, "Ann rejected Hike", ns[0].Message)
}

func TestQueueDispatcher(t *testing.T) {
	enq := &recordingEnqueuer{}
	d := NewQueueDispatcher(enq, nil)

	require.NoError(t, d.Dispatch(context.Background(), nil))
	assert.Empty(t, enq.jobType)

	ns := []models.Notification{{UserID: uuid.New(), Title: "t", Message: "m", Type: "x"}}
	require.NoError(t, d.Dispatch(context.Background(), ns))
	assert.Equal(t, queue.JobTypeNotification, enq.jobType)
	assert.Equal(t, Batch{Notifications: ns}, enq.payload)

	enq.err = errors.New("redis down")
	assert.Error(t, d.Dispatch(context.Background(), ns))
}

func TestDirectDispatcher(t *testing.T) {
	w := &recordingWriter{}
	ns := []models.Notification{{UserID: uuid.New()}, {UserID: uuid.New()}}
	require.NoError(t, NewDirectDispatcher(w).Dispatch(context.Background(), ns))
	assert.Len(t, w.rows, 2)
}
