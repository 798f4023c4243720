// Package events implements the JobStateEvent stream: a broker a caller
// subscribes to in order to observe job ownership and status changes
// without polling the job-state store directly.
package events

import (
	"sync"
	"time"

	"github.com/cuemby/distsched/pkg/types"
)

// JobStateEventKind is the variant tag of a JobStateEvent.
type JobStateEventKind string

const (
	JobUpdated     JobStateEventKind = "job_updated"
	JobAcquired    JobStateEventKind = "job_acquired"
	JobReleased    JobStateEventKind = "job_released"
	SessionCreated JobStateEventKind = "session_created"
	SessionUpdated JobStateEventKind = "session_updated"
)

// JobStateEvent is one change notification from the job-state store. Only
// the fields relevant to Kind are populated; the rest are zero.
type JobStateEvent struct {
	Kind      JobStateEventKind
	Timestamp time.Time

	// JobUpdated, JobAcquired, JobReleased
	JobID  string
	Status types.JobStatus // JobUpdated only
	Owner  string          // JobAcquired only

	// SessionCreated, SessionUpdated
	SessionID     string
	SessionConfig map[string]string
}

// Subscriber is a channel that receives job-state events.
type Subscriber chan *JobStateEvent

// Broker fans JobStateEvents out to every active subscriber. A slow
// subscriber drops events rather than blocking the publisher.
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan *JobStateEvent
	stopCh      chan struct{}
}

// NewBroker creates a new event broker.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *JobStateEvent, 100), // Buffer up to 100 events
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's event distribution loop.
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the broker.
func (b *Broker) Stop() {
	close(b.stopCh)
}

// Subscribe creates a new subscription and returns a channel.
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50) // Buffer per subscriber
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes a subscription.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, sub)
	close(sub)
}

// Publish publishes an event to all subscribers.
func (b *Broker) Publish(event *JobStateEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(event *JobStateEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber buffer full, skip
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
