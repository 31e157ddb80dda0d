package notification

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"sync"
)

// EmailSender sends a single email message.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// EmailSink renders an appointment event into a patient-facing email.
type EmailSink struct {
	sender EmailSender
}

func NewEmailSink(sender EmailSender) *EmailSink {
	return &EmailSink{sender: sender}
}

func (s *EmailSink) Deliver(ctx context.Context, ev Event) error {
	if ev.PatientEmail == "" {
		return fmt.Errorf("event %s has no patient email", ev.AppointmentID)
	}
	subject, body := renderEmail(ev)
	return s.sender.SendEmail(ctx, ev.PatientEmail, subject, body)
}

func renderEmail(ev Event) (subject, body string) {
	switch ev.Action {
	case ActionBooked:
		subject = fmt.Sprintf("Appointment Confirmed: Dr. %s", ev.DoctorName)
		body = fmt.Sprintf(
			"Dear %s,\n\nYour appointment has been successfully booked.\n\nDoctor: Dr. %s\nDate: %s\nTime: %s\n\nThank you for choosing our clinic.",
			ev.PatientName, ev.DoctorName, ev.Date, ev.TimeSlot)
	case ActionRescheduled:
		subject = fmt.Sprintf("Appointment Update: Dr. %s", ev.DoctorName)
		body = fmt.Sprintf(
			"Dear %s,\n\nYour appointment has been rescheduled.\n\nNew Date: %s\nNew Time: %s\n\nPlease arrive 10 minutes early.",
			ev.PatientName, ev.Date, ev.TimeSlot)
	case ActionCancelled:
		subject = "Appointment Cancelled"
		body = fmt.Sprintf(
			"Dear %s,\n\nYour appointment with Dr. %s on %s has been cancelled.",
			ev.PatientName, ev.DoctorName, ev.Date)
	default:
		subject = "Appointment Notification"
		body = fmt.Sprintf("Dear %s,\n\nYour appointment on %s at %s has been updated.",
			ev.PatientName, ev.Date, ev.TimeSlot)
	}
	return subject, body
}

// SMTPSender delivers mail through a plain SMTP relay.
type SMTPSender struct {
	addr string // host:port
	from string
}

func NewSMTPSender(host string, port int, from string) *SMTPSender {
	return &SMTPSender{addr: fmt.Sprintf("%s:%d", host, port), from: from}
}

func (s *SMTPSender) SendEmail(_ context.Context, to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", s.from, to, subject, body)
	if err := smtp.SendMail(s.addr, nil, s.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// EmailCall records a single call to SendEmail.
type EmailCall struct {
	To      string
	Subject string
	Body    string
}

// MockEmailSender is a test double for EmailSender.
type MockEmailSender struct {
	mu         sync.Mutex
	calls      []EmailCall
	ShouldFail bool
	FailError  string
}

// SendEmail records the call and optionally returns an error.
func (m *MockEmailSender) SendEmail(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, EmailCall{To: to, Subject: subject, Body: body})
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

// Calls returns a copy of recorded email calls.
func (m *MockEmailSender) Calls() []EmailCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EmailCall, len(m.calls))
	copy(out, m.calls)
	return out
}
