package events

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_LocalDelivery(t *testing.T) {
	bus := New(nil)
	defer func() { _ = bus.Close() }()

	received := make(chan Event, 1)
	require.NoError(t, bus.Subscribe(JOBS_CHANNEL, func(event Event) error {
		received <- event
		return nil
	}))

	landlord := uuid.New()
	jobID := uuid.New()
	require.NoError(t, bus.Publish(JOBS_CHANNEL, NewJobEvent(JobAccepted, jobID, "confirmed", landlord)))

	select {
	case event := <-received:
		assert.NotEmpty(t, event.ID)
		assert.False(t, event.Timestamp.IsZero())
		assert.Equal(t, JOB_UPDATED, event.Type)
		assert.Equal(t, JOBS_CHANNEL, event.Channel)
		assert.Equal(t, []uuid.UUID{landlord}, event.Recipients)
		assert.Equal(t, jobID.String(), event.Data["jobId"])
		assert.Equal(t, JobAccepted, event.Data["action"])
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestEventBus_OtherChannelsNotNotified(t *testing.T) {
	bus := New(nil)
	defer func() { _ = bus.Close() }()

	received := make(chan Event, 1)
	require.NoError(t, bus.Subscribe(BROADCAST_CHANNEL, func(event Event) error {
		received <- event
		return nil
	}))

	require.NoError(t, bus.Publish(JOBS_CHANNEL, NewJobEvent(JobCreated, uuid.New(), "pending")))

	select {
	case <-received:
		t.Fatal("broadcast handler received a jobs event")
	case <-time.After(50 * time.Millisecond):
	}
}
