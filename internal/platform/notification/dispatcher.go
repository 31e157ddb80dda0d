package notification

import (
	"context"

	"github.com/rs/zerolog"
)

// Dispatcher decouples the appointment lifecycle from notification delivery.
// Emit never blocks: when the buffer is full the event is dropped and logged.
type Dispatcher struct {
	ch     chan Event
	sinks  []Sink
	logger zerolog.Logger
}

func NewDispatcher(buffer int, logger zerolog.Logger, sinks ...Sink) *Dispatcher {
	return &Dispatcher{
		ch:     make(chan Event, buffer),
		sinks:  sinks,
		logger: logger.With().Str("component", "notification").Logger(),
	}
}

// Emit queues an event for delivery without blocking the caller.
func (d *Dispatcher) Emit(ev Event) {
	select {
	case d.ch <- ev:
	default:
		d.logger.Error().
			Str("action", string(ev.Action)).
			Str("appointment_id", ev.AppointmentID.String()).
			Msg("notification buffer full, event dropped")
	}
}

// Start consumes events until ctx is cancelled. It is run by main in its own
// goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-d.ch:
			d.deliver(ctx, ev)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev Event) {
	for _, sink := range d.sinks {
		if err := sink.Deliver(ctx, ev); err != nil {
			d.logger.Error().Err(err).
				Str("action", string(ev.Action)).
				Str("appointment_id", ev.AppointmentID.String()).
				Msg("notification delivery failed")
		}
	}
}
