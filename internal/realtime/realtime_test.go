package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncerCoalesces(t *testing.T) {
	flushed := make(chan []string, 4)
	d := NewDebouncer(20*time.Millisecond, func(tables []string) { flushed <- tables })
	defer d.Stop()

	d.Add(TableVotes)
	d.Add(TablePolls)
	d.Add(TableVotes)
	d.Add(TableVotes)

	select {
	case got := <-flushed:
		assert.Equal(t, []string{TablePolls, TableVotes}, got)
	case <-time.After(time.Second):
		t.Fatal("no flush")
	}
	select {
	case got := <-flushed:
		t.Fatalf("unexpected second flush %v", got)
	case <-time.After(60 * time.Millisecond):
	}

	d.Add(TableActivities)
	select {
	case got := <-flushed:
		assert.Equal(t, []string{TableActivities}, got)
	case <-time.After(time.Second):
		t.Fatal("no flush for second window")
	}
}

func TestDebouncerStop(t *testing.T) {
	flushed := make(chan []string, 1)
	d := NewDebouncer(10*time.Millisecond, func(tables []string) { flushed <- tables })
	d.Add(TablePolls)
	d.Stop()
	select {
	case got := <-flushed:
		t.Fatalf("flush after stop: %v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

type chanSubscriber struct{ handler func(Change) }

func (s *chanSubscriber) Subscribe(_ context.Context, h func(Change)) (func(), error) {
	s.handler = h
	return func() {}, nil
}

func TestHubBroadcastsOneBatch(t *testing.T) {
	hub := NewHub(20*time.Millisecond, nil)
	sub := &chanSubscriber{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, hub.Run(ctx, sub))

	client := &Client{ID: "c1", send: make(chan WSMessage, 4)}
	hub.Register(client)
	assert.Equal(t, 1, hub.ClientCount())

	for i := 0; i < 5; i++ {
		sub.handler(NewChange(TableVotes, uuid.New(), OpInsert))
	}
	sub.handler(NewChange(TablePolls, uuid.New(), OpUpdate))

	select {
	case msg := <-client.send:
		assert.Equal(t, EventChanges, msg.Event)
		var p ChangesPayload
		require.NoError(t, json.Unmarshal(msg.Data, &p))
		assert.Equal(t, []string{TablePolls, TableVotes}, p.Tables)
	case <-time.After(time.Second):
		t.Fatal("no broadcast")
	}
	assert.Len(t, client.send, 0)

	hub.Unregister(client)
	assert.Equal(t, 0, hub.ClientCount())
}
