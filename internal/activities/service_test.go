package activities

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamhuddle/backend/internal/models"
	"github.com/teamhuddle/backend/internal/notifications"
	"github.com/teamhuddle/backend/internal/realtime"
)

type memStore struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]*models.Activity
	polls   map[uuid.UUID]models.PollStatus
	options map[uuid.UUID]uuid.UUID // option id -> poll id
}

func newMemStore() *memStore {
	return &memStore{
		rows:    map[uuid.UUID]*models.Activity{},
		polls:   map[uuid.UUID]models.PollStatus{},
		options: map[uuid.UUID]uuid.UUID{},
	}
}

// addPoll registers an active poll with the given option ids.
func (m *memStore) addPoll(optionIDs ...uuid.UUID) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.polls[id] = models.PollActive
	for _, o := range optionIDs {
		m.options[o] = id
	}
	return id
}

func (m *memStore) pollStatus(id uuid.UUID) models.PollStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.polls[id]
}

func (m *memStore) Create(_ context.Context, a *models.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.PollID != nil {
		if _, ok := m.polls[*a.PollID]; !ok {
			return ErrInvalidReference
		}
		if a.PollOptionID != nil {
			if owner, ok := m.options[*a.PollOptionID]; !ok || owner != *a.PollID {
				return ErrInvalidReference
			}
		}
		for _, existing := range m.rows {
			if existing.PollID != nil && *existing.PollID == *a.PollID {
				return ErrPollAlreadyPromoted
			}
		}
	}
	a.ID = uuid.New()
	cp := *a
	m.rows[a.ID] = &cp
	if a.PollID != nil && m.polls[*a.PollID] == models.PollActive {
		m.polls[*a.PollID] = models.PollResolved
	}
	return nil
}

func (m *memStore) Get(_ context.Context, id uuid.UUID) (*models.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.rows[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) List(context.Context) ([]models.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Activity
	for _, a := range m.rows {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (m *memStore) ListByStatus(ctx context.Context, status models.ActivityStatus) ([]models.Activity, error) {
	all, _ := m.List(ctx)
	var out []models.Activity
	for _, a := range all {
		if a.Status == status {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) Update(_ context.Context, id uuid.UUID, in UpdateInput) (*models.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	if in.Title != nil {
		a.Title = *in.Title
	}
	if in.Location != nil {
		a.Location = *in.Location
	}
	if in.ScheduledAt != nil {
		a.ScheduledAt = in.ScheduledAt
	}
	if in.Status != nil {
		a.Status = *in.Status
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) SetStatus(_ context.Context, id uuid.UUID, status models.ActivityStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if ok {
		a.Status = status
	}
	return ok, nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[id]
	delete(m.rows, id)
	return ok, nil
}

type staticRecipients []uuid.UUID

func (s staticRecipients) ListIDs(context.Context) ([]uuid.UUID, error) { return s, nil }

type captureDispatcher struct{ sent []models.Notification }

func (c *captureDispatcher) Dispatch(_ context.Context, ns []models.Notification) error {
	c.sent = append(c.sent, ns...)
	return nil
}

type capturePublisher struct{ changes []realtime.Change }

func (c *capturePublisher) Publish(_ context.Context, ch ...realtime.Change) {
	c.changes = append(c.changes, ch...)
}

var _ notifications.Dispatcher = (*captureDispatcher)(nil)

func TestCreateAnnouncesToOthers(t *testing.T) {
	admin, a, b := uuid.New(), uuid.New(), uuid.New()
	disp := &captureDispatcher{}
	pub := &capturePublisher{}
	svc := NewService(newMemStore(), staticRecipients{admin, a, b}, disp, pub, nil)

	_, err := svc.Create(context.Background(), admin, CreateInput{Title: "  "})
	assert.ErrorIs(t, err, ErrTitleRequired)

	v, err := svc.Create(context.Background(), admin, CreateInput{Title: "Board Games", Location: "Room 4"})
	require.NoError(t, err)
	assert.Equal(t, models.ActivityUpcoming, v.Status)
	assert.Equal(t, models.ActivityUpcoming, v.DisplayStatus)

	require.Len(t, disp.sent, 2)
	for _, n := range disp.sent {
		assert.NotEqual(t, admin, n.UserID)
		assert.Equal(t, "Board Games has been scheduled!", n.Message)
	}
	require.Len(t, pub.changes, 1)
	assert.Equal(t, realtime.TableActivities, pub.changes[0].Table)
}

func TestCreateRejectsSecondActivityForPoll(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, nil, nil, nil, nil)
	pollID := store.addPoll()
	_, err := svc.Create(context.Background(), uuid.New(), CreateInput{Title: "A", PollID: &pollID})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), uuid.New(), CreateInput{Title: "B", PollID: &pollID})
	assert.ErrorIs(t, err, ErrPollAlreadyPromoted)
}

func TestCreateFromPollResolvesPoll(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	pub := &capturePublisher{}
	svc := NewService(store, nil, nil, pub, nil)
	yes := uuid.New()
	pollID := store.addPoll(yes, uuid.New())

	v, err := svc.Create(ctx, uuid.New(), CreateInput{Title: "Team Lunch", PollID: &pollID, PollOptionID: &yes})
	require.NoError(t, err)
	assert.Equal(t, pollID, *v.PollID)
	assert.Equal(t, yes, *v.PollOptionID)
	assert.Equal(t, models.PollResolved, store.pollStatus(pollID))

	require.Len(t, pub.changes, 2)
	assert.Equal(t, realtime.TablePolls, pub.changes[1].Table)
	assert.Equal(t, pollID.String(), pub.changes[1].ID)
}

func TestCreateRejectsOptionFromAnotherPoll(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewService(store, nil, nil, nil, nil)
	pollA := store.addPoll(uuid.New())
	otherOption := uuid.New()
	store.addPoll(otherOption)

	_, err := svc.Create(ctx, uuid.New(), CreateInput{Title: "A", PollID: &pollA, PollOptionID: &otherOption})
	assert.ErrorIs(t, err, ErrInvalidReference)
	assert.Equal(t, models.PollActive, store.pollStatus(pollA))

	_, err = svc.Create(ctx, uuid.New(), CreateInput{Title: "A", PollOptionID: &otherOption})
	assert.ErrorIs(t, err, ErrInvalidReference)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCompleteRequiresStart(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewService(store, nil, nil, nil, nil)
	now := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)
	upcoming, err := svc.Create(ctx, uuid.New(), CreateInput{Title: "Later", ScheduledAt: &future})
	require.NoError(t, err)
	unscheduled, err := svc.Create(ctx, uuid.New(), CreateInput{Title: "Someday"})
	require.NoError(t, err)
	started, err := svc.Create(ctx, uuid.New(), CreateInput{Title: "Now", ScheduledAt: &past})
	require.NoError(t, err)
	assert.Equal(t, models.ActivityOngoing, started.DisplayStatus)

	assert.ErrorIs(t, svc.Complete(ctx, upcoming.ID), ErrNotStarted)
	assert.ErrorIs(t, svc.Complete(ctx, unscheduled.ID), ErrNotStarted)
	require.NoError(t, svc.Complete(ctx, started.ID))

	done, err := svc.Get(ctx, started.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ActivityCompleted, done.DisplayStatus)

	require.NoError(t, svc.Cancel(ctx, unscheduled.ID))
	assert.ErrorIs(t, svc.Complete(ctx, unscheduled.ID), ErrCancelled)

	completed, err := svc.Completed(ctx)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, started.ID, completed[0].ID)

	assert.ErrorIs(t, svc.Complete(ctx, uuid.New()), ErrNotFound)
	require.NoError(t, svc.Delete(ctx, upcoming.ID))
	assert.ErrorIs(t, svc.Delete(ctx, upcoming.ID), ErrNotFound)
}

func TestUpdateValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemStore(), nil, nil, nil, nil)
	v, err := svc.Create(ctx, uuid.New(), CreateInput{Title: "Quiz"})
	require.NoError(t, err)

	blank := " "
	_, err = svc.Update(ctx, v.ID, UpdateInput{Title: &blank})
	assert.ErrorIs(t, err, ErrTitleRequired)

	bad := models.ActivityStatus("paused")
	_, err = svc.Update(ctx, v.ID, UpdateInput{Status: &bad})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	loc := "Rooftop"
	updated, err := svc.Update(ctx, v.ID, UpdateInput{Location: &loc})
	require.NoError(t, err)
	assert.Equal(t, "Rooftop", updated.Location)
	assert.Equal(t, "Quiz", updated.Title)

	_, err = svc.Update(ctx, uuid.New(), UpdateInput{Location: &loc})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompleteHandlerStatusCodes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewService(newMemStore(), nil, nil, nil, nil)
	future := time.Now().Add(time.Hour)
	v, err := svc.Create(context.Background(), uuid.New(), CreateInput{Title: "Later", ScheduledAt: &future})
	require.NoError(t, err)

	r := gin.New()
	r.POST("/activities/:id/complete", NewHandler(svc, nil, nil).Complete)

	tests := []struct {
		id   string
		want int
	}{
		{"nope", http.StatusBadRequest},
		{uuid.New().String(), http.StatusNotFound},
		{v.ID.String(), http.StatusConflict},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/activities/"+tt.id+"/complete", nil))
		assert.Equal(t, tt.want, w.Code, tt.id)
	}
}
