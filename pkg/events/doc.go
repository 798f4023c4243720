/*
Package events implements the JobStateEvent stream: an in-memory broker
that fans job ownership and status changes out to subscribers without
requiring them to poll the job-state store.

# Architecture

	┌─────────────────────────────────────────────────────────────┐
	│  Job-state store (pkg/jobstate) calls Broker.Publish on job    │
	│  submit/save/fail/acquire/release and session create/update    │
	└───────────────────────────┬───────────────────────────────────┘
	                            ▼
	┌─────────────────────────────────────────────────────────────┐
	│  Broker.run(): buffered eventCh → broadcast to subscribers     │
	└───────────────────────────┬───────────────────────────────────┘
	                            ▼
	┌─────────────────────────────────────────────────────────────┐
	│  Subscriber channels (buffered, drop-on-full)                  │
	└─────────────────────────────────────────────────────────────┘

# Event kinds

  - JobUpdated: a job's JobStatus changed
  - JobAcquired: a scheduler instance claimed ownership of a job
  - JobReleased: a scheduler instance released ownership of a job
  - SessionCreated: a new session configuration was registered
  - SessionUpdated: an existing session's configuration changed

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	broker.Publish(&events.JobStateEvent{
		Kind:   events.JobUpdated,
		JobID:  "job-123",
		Status: types.JobStatusRunning,
	})

	for evt := range sub {
		log.WithJobID(evt.JobID).Info().Str("kind", string(evt.Kind)).Msg("job state event")
	}

A full subscriber buffer drops the event rather than blocking Publish;
callers that need guaranteed delivery should drain their subscription
promptly.
*/
package events
