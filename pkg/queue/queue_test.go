package queue

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type samplePayload struct {
	PollID uuid.UUID `json:"poll_id"`
	Note   string    `json:"note"`
}

func TestNewJobRoundTripsPayload(t *testing.T) {
	in := samplePayload{PollID: uuid.New(), Note: "sweep"}
	job, err := NewJob(JobTypePromotionSweep, in)
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, JobTypePromotionSweep, job.Type)
	assert.Zero(t, job.Attempt)

	raw, err := json.Marshal(job)
	require.NoError(t, err)
	var decoded Job
	require.NoError(t, json.Unmarshal(raw, &decoded))

	var out samplePayload
	require.NoError(t, decoded.Decode(&out))
	assert.Equal(t, in, out)
}

func TestDecodeRejectsMismatchedPayload(t *testing.T) {
	job := &Job{Type: JobTypeNotification, Payload: json.RawMessage(`"not an object"`)}
	var out samplePayload
	require.Error(t, job.Decode(&out))
}

func TestNewJobRejectsUnmarshalable(t *testing.T) {
	_, err := NewJob(JobTypeNotification, make(chan int))
	require.Error(t, err)
}
