package events_test

import (
	"testing"
	"time"

	"github.com/cuemby/distsched/pkg/events"
	"github.com/cuemby/distsched/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroker_PublishReachesSubscriber(t *testing.T) {
	b := events.NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.Publish(&events.JobStateEvent{Kind: events.JobUpdated, JobID: "job-1", Status: types.JobStatusRunning})

	select {
	case evt := <-sub:
		assert.Equal(t, events.JobUpdated, evt.Kind)
		assert.Equal(t, "job-1", evt.JobID)
		assert.False(t, evt.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBroker_FansOutToMultipleSubscribers(t *testing.T) {
	b := events.NewBroker()
	b.Start()
	defer b.Stop()

	sub1 := b.Subscribe()
	sub2 := b.Subscribe()
	defer b.Unsubscribe(sub1)
	defer b.Unsubscribe(sub2)

	require.Equal(t, 2, b.SubscriberCount())

	b.Publish(&events.JobStateEvent{Kind: events.JobAcquired, JobID: "job-1", Owner: "scheduler-1"})

	for _, sub := range []events.Subscriber{sub1, sub2} {
		select {
		case evt := <-sub:
			assert.Equal(t, "scheduler-1", evt.Owner)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for fan-out event")
		}
	}
}

func TestBroker_UnsubscribeStopsDelivery(t *testing.T) {
	b := events.NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	b.Unsubscribe(sub)
	assert.Equal(t, 0, b.SubscriberCount())

	_, ok := <-sub
	assert.False(t, ok, "channel should be closed on unsubscribe")
}
