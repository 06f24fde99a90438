// Package events publishes domain events after the change they describe has
// been committed. Publishing is best effort: a failure is logged and never
// undoes the operation.
package events

import (
	"context"
	"medbook/pkg/logger"
	"sync"
	"time"
)

type Type string

const (
	AppointmentBooked        Type = "appointment.booked"
	AppointmentCancelled     Type = "appointment.cancelled"
	AppointmentDeleted       Type = "appointment.deleted"
	AppointmentStatusChanged Type = "appointment.status_changed"
	SlotsGenerated           Type = "slots.generated"
	ScheduleDeleted          Type = "schedule.deleted"
)

const (
	SchemaVersion = "1"

	publishTimeout = 5 * time.Second
)

// Event is keyed by the aggregate it concerns so that events of one slot,
// schedule or appointment stay ordered on one partition.
type Event struct {
	Type    Type
	Key     string
	Payload any
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Emit publishes event detached from the caller's cancellation and logs a failure.
func Emit(ctx context.Context, p Publisher, log *logger.Logger, event Event) {
	if p == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.Publish(ctx, event); err != nil {
		log.Warn("Failed to publish event",
			"event_type", event.Type,
			"key", event.Key,
			"error", err,
		)
	}
}

type nopPublisher struct{}

// Nop drops every event.
func Nop() Publisher {
	return nopPublisher{}
}

func (nopPublisher) Publish(ctx context.Context, event Event) error { return nil }

func (nopPublisher) Close() error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// FailWith makes subsequent publishes return err.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *Recorder) Publish(ctx context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *Recorder) Types() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]Type, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}
