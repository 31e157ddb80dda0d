package notification

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
	err    error
	done   chan struct{}
}

func newCaptureSink(expect int) *captureSink {
	return &captureSink{done: make(chan struct{}, expect)}
}

func (s *captureSink) Deliver(_ context.Context, ev Event) error {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
	s.done <- struct{}{}
	return s.err
}

func (s *captureSink) wait(t *testing.T) Event {
	t.Helper()
	select {
	case <-s.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[len(s.events)-1]
}

func testEvent(action Action) Event {
	return Event{
		Action:        action,
		AppointmentID: uuid.New(),
		PatientName:   "Jane Roe",
		PatientEmail:  "jane@example.com",
		DoctorName:    "Patel",
		Date:          "2026-09-14",
		TimeSlot:      "10:30",
		OccurredAt:    time.Now(),
	}
}

func TestDispatcherDelivers(t *testing.T) {
	sink := newCaptureSink(1)
	d := NewDispatcher(8, zerolog.Nop(), sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Start(ctx)

	want := testEvent(ActionBooked)
	d.Emit(want)

	got := sink.wait(t)
	if got.AppointmentID != want.AppointmentID {
		t.Errorf("AppointmentID = %v, want %v", got.AppointmentID, want.AppointmentID)
	}
	if got.Action != ActionBooked {
		t.Errorf("Action = %v, want booked", got.Action)
	}
}

func TestDispatcherSinkErrorDoesNotStopOthers(t *testing.T) {
	failing := newCaptureSink(1)
	failing.err = errors.New("smtp down")
	ok := newCaptureSink(1)
	d := NewDispatcher(8, zerolog.Nop(), failing, ok)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Start(ctx)

	d.Emit(testEvent(ActionCancelled))

	failing.wait(t)
	got := ok.wait(t)
	if got.Action != ActionCancelled {
		t.Errorf("second sink Action = %v, want cancelled", got.Action)
	}
}

func TestEmitFullBufferDoesNotBlock(t *testing.T) {
	// No consumer running: buffer of 1 fills after the first Emit.
	d := NewDispatcher(1, zerolog.Nop())
	done := make(chan struct{})
	go func() {
		d.Emit(testEvent(ActionBooked))
		d.Emit(testEvent(ActionBooked))
		d.Emit(testEvent(ActionBooked))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on full buffer")
	}
}

func TestEmailSinkRendering(t *testing.T) {
	tests := []struct {
		action      Action
		wantSubject string
		wantInBody  string
	}{
		{ActionBooked, "Appointment Confirmed: Dr. Patel", "successfully booked"},
		{ActionRescheduled, "Appointment Update: Dr. Patel", "rescheduled"},
		{ActionCancelled, "Appointment Cancelled", "cancelled"},
	}
	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			sender := &MockEmailSender{}
			sink := NewEmailSink(sender)
			if err := sink.Deliver(context.Background(), testEvent(tt.action)); err != nil {
				t.Fatalf("Deliver: %v", err)
			}
			calls := sender.Calls()
			if len(calls) != 1 {
				t.Fatalf("calls = %d, want 1", len(calls))
			}
			if calls[0].To != "jane@example.com" {
				t.Errorf("To = %q", calls[0].To)
			}
			if calls[0].Subject != tt.wantSubject {
				t.Errorf("Subject = %q, want %q", calls[0].Subject, tt.wantSubject)
			}
			if !strings.Contains(calls[0].Body, tt.wantInBody) {
				t.Errorf("Body %q does not contain %q", calls[0].Body, tt.wantInBody)
			}
			if !strings.Contains(calls[0].Body, "Jane Roe") {
				t.Errorf("Body missing patient name: %q", calls[0].Body)
			}
		})
	}
}

func TestEmailSinkMissingAddress(t *testing.T) {
	sender := &MockEmailSender{}
	sink := NewEmailSink(sender)
	ev := testEvent(ActionBooked)
	ev.PatientEmail = ""
	if err := sink.Deliver(context.Background(), ev); err == nil {
		t.Error("expected error for missing patient email")
	}
	if len(sender.Calls()) != 0 {
		t.Error("no email should be sent without an address")
	}
}
