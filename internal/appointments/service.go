package appointments

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/clinic-scheduler/internal/changefeed"
	"github.com/wolfman30/clinic-scheduler/internal/doctors"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

var appointmentsTracer = otel.Tracer("clinic.internal.appointments")

// DoctorLookup resolves doctors for validation and timezone handling.
type DoctorLookup interface {
	Get(ctx context.Context, id string) (*doctors.Doctor, error)
}

// Options tune the booking rules. Zero values fall back to defaults.
type Options struct {
	Window          Window
	WebhookDuration int
	ManualDuration  int
	DefaultLocation *time.Location
	Now             func() time.Time
}

// Service validates and books appointments.
type Service struct {
	repo    Repository
	doctors DoctorLookup
	feed    changefeed.Publisher
	logger  *logging.Logger
	opts    Options
}

// NewService constructs an appointments service. feed may be nil.
func NewService(repo Repository, lookup DoctorLookup, feed changefeed.Publisher, logger *logging.Logger, opts Options) *Service {
	if repo == nil || lookup == nil {
		panic("appointments: repository and doctor lookup required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if opts.Window == (Window{}) {
		opts.Window = DefaultWindow
	}
	if opts.WebhookDuration <= 0 {
		opts.WebhookDuration = 15
	}
	if opts.ManualDuration <= 0 {
		opts.ManualDuration = 30
	}
	if opts.DefaultLocation == nil {
		opts.DefaultLocation = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{repo: repo, doctors: lookup, feed: feed, logger: logger, opts: opts}
}

// Slot is a validated booking target.
type Slot struct {
	Doctor *doctors.Doctor
	At     time.Time
}

// Validate runs the booking checks in order and stops at the first failure:
// doctor exists, date/time parse in the doctor's timezone, lead time, horizon,
// and finally that no live appointment already holds the slot. The final
// check is advisory; Book closes the race.
func (s *Service) Validate(ctx context.Context, doctorID, date, clock string) (*Slot, error) {
	return s.validate(ctx, doctorID, date, clock, true)
}

func (s *Service) validate(ctx context.Context, doctorID, date, clock string, enforceWindow bool) (*Slot, error) {
	doc, err := s.doctors.Get(ctx, doctorID)
	if err != nil {
		if errors.Is(err, doctors.ErrDoctorNotFound) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	if !doc.Active {
		return nil, ErrDoctorInactive
	}
	at, err := ParseSlot(date, clock, doc.Location(s.opts.DefaultLocation))
	if err != nil {
		return nil, err
	}
	if enforceWindow {
		if err := s.opts.Window.Check(s.opts.Now(), at); err != nil {
			return nil, err
		}
	}
	taken, err := s.repo.HasActive(ctx, doc.ID, at)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrSlotTaken
	}
	return &Slot{Doctor: doc, At: at}, nil
}

// Book normalizes the phone, validates the slot and reserves it.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	return s.book(ctx, req, true)
}

// BookManual books a staff-entered appointment. The slot must still be free
// but the lead time and horizon limits do not apply.
func (s *Service) BookManual(ctx context.Context, in ManualBookingRequest) (*Appointment, error) {
	duration := in.DurationMinutes
	if duration <= 0 {
		duration = s.opts.ManualDuration
	}
	return s.book(ctx, BookingRequest{
		DoctorID:         in.DoctorID,
		Phone:            in.PatientPhone,
		Date:             in.AppointmentDate,
		Time:             in.AppointmentTime,
		PatientFirstName: in.PatientFirstName,
		PatientLastName:  in.PatientLastName,
		PatientTCNumber:  in.PatientTCNumber,
		DurationMinutes:  duration,
		Source:           SourceManual,
	}, false)
}

func (s *Service) book(ctx context.Context, req BookingRequest, enforceWindow bool) (*Appointment, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.book", trace.WithAttributes(
		attribute.String("clinic.doctor_id", req.DoctorID),
		attribute.String("clinic.source", string(req.Source)),
	))
	defer span.End()

	a, err := s.reserve(ctx, req, enforceWindow)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("clinic.appointment_id", a.ID))
	s.logger.Info("appointment booked",
		"appointment_id", a.ID,
		"doctor_id", a.DoctorID,
		"scheduled_at", a.ScheduledAt,
		"source", a.Source,
	)
	s.notify(ctx, a.ID, a.DoctorID, changefeed.OpCreated)
	return a, nil
}

func (s *Service) reserve(ctx context.Context, req BookingRequest, enforceWindow bool) (*Appointment, error) {
	if strings.TrimSpace(req.DoctorID) == "" || strings.TrimSpace(req.Phone) == "" ||
		strings.TrimSpace(req.Date) == "" || strings.TrimSpace(req.Time) == "" {
		return nil, ErrMissingFields
	}
	phone, err := NormalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}
	slot, err := s.validate(ctx, req.DoctorID, req.Date, req.Time, enforceWindow)
	if err != nil {
		return nil, err
	}

	source := req.Source
	if source == "" {
		source = SourceWebhook
	}
	duration := req.DurationMinutes
	if duration <= 0 {
		duration = s.opts.WebhookDuration
	}
	a := &Appointment{
		ID:               uuid.NewString(),
		DoctorID:         slot.Doctor.ID,
		DoctorName:       slot.Doctor.FullName(),
		PatientPhone:     phone,
		PatientFirstName: strings.TrimSpace(req.PatientFirstName),
		PatientLastName:  strings.TrimSpace(req.PatientLastName),
		PatientTCNumber:  strings.TrimSpace(req.PatientTCNumber),
		ScheduledAt:      slot.At,
		Timezone:         slot.At.Location().String(),
		DurationMinutes:  duration,
		Status:           StatusScheduled,
		Source:           source,
		RawPayload:       req.RawPayload,
	}
	a.localize()
	if err := s.repo.Book(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Cancel marks an appointment cancelled whatever its current status.
func (s *Service) Cancel(ctx context.Context, id, reason string) (*Appointment, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.cancel",
		trace.WithAttributes(attribute.String("clinic.appointment_id", id)))
	defer span.End()

	if strings.TrimSpace(id) == "" {
		return nil, ErrAppointmentNotFound
	}
	a, prev, err := s.repo.Cancel(ctx, id, reason)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.logger.Info("appointment cancelled", "appointment_id", id, "previous_status", prev, "reason", reason)
	s.notify(ctx, id, a.DoctorID, changefeed.OpUpdated)
	return a, nil
}

// SetStatus applies an admin status change.
func (s *Service) SetStatus(ctx context.Context, id string, status Status) (*Appointment, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	a, prev, err := s.repo.SetStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.logger.Info("appointment status changed", "appointment_id", id, "from", prev, "to", status)
	s.notify(ctx, id, a.DoctorID, changefeed.OpUpdated)
	return a, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	a, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.notify(ctx, id, a.DoctorID, changefeed.OpDeleted)
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*Appointment, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]*Appointment, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.repo.List(ctx, f)
}

func (s *Service) Recent(ctx context.Context, limit int) ([]*Appointment, error) {
	return s.repo.Recent(ctx, limit)
}

// Upcoming lists a doctor's appointments from today onwards in the doctor's timezone.
func (s *Service) Upcoming(ctx context.Context, doctorID string) ([]*Appointment, error) {
	doc, err := s.doctors.Get(ctx, doctorID)
	if err != nil {
		if errors.Is(err, doctors.ErrDoctorNotFound) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	today := s.opts.Now().In(doc.Location(s.opts.DefaultLocation)).Format(dateLayout)
	return s.repo.Upcoming(ctx, doctorID, today)
}

func (s *Service) notify(ctx context.Context, id, doctorID string, op changefeed.Op) {
	if err := changefeed.Notify(ctx, s.feed, changefeed.Appointments, id, doctorID, op); err != nil {
		s.logger.Warn("changefeed publish failed", "error", err, "appointment_id", id)
	}
}
