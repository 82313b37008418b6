package testsupport

import "sync"

// EventRecorder keeps published events in memory so tests can assert on
// what a handler announced. It is safe for concurrent use.
type EventRecorder struct {
	mu     sync.Mutex
	events []RecordedEvent
}

type RecordedEvent struct {
	Subject string
	Payload any
}

func (r *EventRecorder) Publish(subject string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, RecordedEvent{Subject: subject, Payload: payload})
	return nil
}

// Events returns a copy of everything published so far.
func (r *EventRecorder) Events() []RecordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RecordedEvent(nil), r.events...)
}

// Subjects lists the recorded subjects in publish order.
func (r *EventRecorder) Subjects() []string {
	events := r.Events()
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Subject)
	}
	return out
}
