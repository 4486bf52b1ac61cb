package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/clinic-scheduler/internal/events"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// AppointmentNotifier emails clinic staff about bookings, cancellations and
// doctor removals as they drain from the outbox.
type AppointmentNotifier struct {
	sender     EmailSender
	recipients []string
	logger     *logging.Logger
}

// NewAppointmentNotifier parses a comma-separated recipient list. It returns
// nil when there is nobody to notify or no sender.
func NewAppointmentNotifier(sender EmailSender, to string, logger *logging.Logger) *AppointmentNotifier {
	if sender == nil {
		return nil
	}
	var recipients []string
	for _, addr := range strings.Split(to, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			recipients = append(recipients, addr)
		}
	}
	if len(recipients) == 0 {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentNotifier{sender: sender, recipients: recipients, logger: logger}
}

// Handle formats the entry and sends it. Event types with no staff email are
// acknowledged without sending.
func (n *AppointmentNotifier) Handle(ctx context.Context, entry events.OutboxEntry) error {
	if n == nil {
		return nil
	}
	msg, ok, err := format(entry)
	if err != nil {
		// A payload that cannot be decoded will never succeed; log and move on.
		n.logger.Error("notify: undecodable outbox payload", "error", err, "type", entry.Type, "event_id", entry.ID)
		return nil
	}
	if !ok {
		return nil
	}
	for _, to := range n.recipients {
		msg.To = to
		if err := n.sender.Send(ctx, msg); err != nil {
			return fmt.Errorf("notify: %s to %s: %w", entry.Type, to, err)
		}
	}
	return nil
}

func format(entry events.OutboxEntry) (EmailMessage, bool, error) {
	switch entry.Type {
	case events.TypeAppointmentBooked:
		var ev events.AppointmentBookedV1
		if err := json.Unmarshal(entry.Payload, &ev); err != nil {
			return EmailMessage{}, false, err
		}
		return bookedEmail(ev), true, nil
	case events.TypeAppointmentCancelled:
		var ev events.AppointmentCancelledV1
		if err := json.Unmarshal(entry.Payload, &ev); err != nil {
			return EmailMessage{}, false, err
		}
		return cancelledEmail(ev), true, nil
	case events.TypeDoctorDeleted:
		var ev events.DoctorDeletedV1
		if err := json.Unmarshal(entry.Payload, &ev); err != nil {
			return EmailMessage{}, false, err
		}
		return doctorDeletedEmail(ev), true, nil
	default:
		return EmailMessage{}, false, nil
	}
}

func bookedEmail(ev events.AppointmentBookedV1) EmailMessage {
	doctor := ev.DoctorName
	if doctor == "" {
		doctor = ev.DoctorID
	}
	patient := ev.PatientName
	if patient == "" {
		patient = "Unknown patient"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "A new appointment was booked.\n\n")
	fmt.Fprintf(&b, "Doctor: %s\n", doctor)
	fmt.Fprintf(&b, "Patient: %s (%s)\n", patient, ev.PatientPhone)
	fmt.Fprintf(&b, "When: %s %s (%s)\n", ev.Date, ev.Time, ev.Timezone)
	fmt.Fprintf(&b, "Duration: %d minutes\n", ev.DurationMinutes)
	fmt.Fprintf(&b, "Source: %s\n", ev.Source)
	fmt.Fprintf(&b, "Appointment ID: %s\n", ev.AppointmentID)
	return EmailMessage{
		Subject: fmt.Sprintf("New appointment: %s on %s at %s", doctor, ev.Date, ev.Time),
		Body:    b.String(),
	}
}

func cancelledEmail(ev events.AppointmentCancelledV1) EmailMessage {
	when := localTime(ev.ScheduledAt, ev.Timezone)
	var b strings.Builder
	fmt.Fprintf(&b, "An appointment was cancelled.\n\n")
	fmt.Fprintf(&b, "Appointment ID: %s\n", ev.AppointmentID)
	fmt.Fprintf(&b, "Doctor ID: %s\n", ev.DoctorID)
	fmt.Fprintf(&b, "Was scheduled for: %s\n", when)
	fmt.Fprintf(&b, "Previous status: %s\n", ev.PreviousStatus)
	if ev.Reason != "" {
		fmt.Fprintf(&b, "Reason: %s\n", ev.Reason)
	}
	return EmailMessage{
		Subject: fmt.Sprintf("Appointment cancelled: %s", when),
		Body:    b.String(),
	}
}

func doctorDeletedEmail(ev events.DoctorDeletedV1) EmailMessage {
	return EmailMessage{
		Subject: fmt.Sprintf("Doctor %s removed", ev.DoctorID),
		Body: fmt.Sprintf(
			"Doctor %s was deleted.\n\nAvailability rules removed: %d\nAvailability exceptions removed: %d\nAppointments cancelled: %d\n",
			ev.DoctorID, ev.RulesDeleted, ev.ExceptionsDeleted, ev.AppointmentsCancelled,
		),
	}
}

func localTime(at time.Time, tz string) string {
	loc, err := time.LoadLocation(tz)
	if err != nil || tz == "" {
		loc = time.UTC
	}
	return at.In(loc).Format("2006-01-02 15:04 MST")
}

var _ events.DeliveryHandler = (*AppointmentNotifier)(nil)
