package doctors

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/clinic-scheduler/internal/changefeed"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

var doctorsTracer = otel.Tracer("clinic.internal.doctors")

// Service owns doctor lifecycle changes and announces them on the changefeed.
type Service struct {
	repo   Repository
	feed   changefeed.Publisher
	logger *logging.Logger
}

// NewService constructs a doctors service. feed may be nil.
func NewService(repo Repository, feed changefeed.Publisher, logger *logging.Logger) *Service {
	if repo == nil {
		panic("doctors: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, feed: feed, logger: logger}
}

func (s *Service) Get(ctx context.Context, id string) (*Doctor, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*Doctor, error) {
	return s.repo.List(ctx)
}

func (s *Service) Create(ctx context.Context, in Input) (*Doctor, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	d := &Doctor{ID: uuid.NewString()}
	in.Apply(d)
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	s.logger.Info("doctor created", "doctor_id", d.ID)
	s.notify(ctx, d.ID, changefeed.OpCreated)
	return d, nil
}

func (s *Service) Update(ctx context.Context, id string, in Input) (*Doctor, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	d := &Doctor{ID: id}
	in.Apply(d)
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, err
	}
	s.notify(ctx, id, changefeed.OpUpdated)
	return d, nil
}

// ToggleActive flips the active flag and returns the updated doctor.
func (s *Service) ToggleActive(ctx context.Context, id string) (*Doctor, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	d, err := s.repo.SetActive(ctx, id, !current.Active)
	if err != nil {
		return nil, err
	}
	s.logger.Info("doctor active flag changed", "doctor_id", id, "active", d.Active)
	s.notify(ctx, id, changefeed.OpUpdated)
	return d, nil
}

// Delete removes a doctor together with the rules, exceptions and live
// appointments that belong to it.
func (s *Service) Delete(ctx context.Context, id string) (*CascadeResult, error) {
	ctx, span := doctorsTracer.Start(ctx, "doctors.delete_cascade",
		trace.WithAttributes(attribute.String("clinic.doctor_id", id)))
	defer span.End()

	res, err := s.repo.DeleteCascade(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int64("clinic.rules_deleted", res.RulesDeleted),
		attribute.Int64("clinic.exceptions_deleted", res.ExceptionsDeleted),
		attribute.Int64("clinic.appointments_cancelled", res.AppointmentsCancelled),
	)
	s.logger.Info("doctor deleted",
		"doctor_id", id,
		"rules_deleted", res.RulesDeleted,
		"exceptions_deleted", res.ExceptionsDeleted,
		"appointments_cancelled", res.AppointmentsCancelled,
	)
	s.notify(ctx, id, changefeed.OpDeleted)
	if res.AppointmentsCancelled > 0 {
		if err := changefeed.Notify(ctx, s.feed, changefeed.Appointments, "", id, changefeed.OpUpdated); err != nil {
			s.logger.Warn("changefeed publish failed", "error", err, "doctor_id", id)
		}
	}
	return res, nil
}

func (s *Service) notify(ctx context.Context, id string, op changefeed.Op) {
	if err := changefeed.Notify(ctx, s.feed, changefeed.Doctors, id, id, op); err != nil {
		s.logger.Warn("changefeed publish failed", "error", err, "doctor_id", id)
	}
}
