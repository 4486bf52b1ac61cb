package availability

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/wolfman30/clinic-scheduler/internal/changefeed"
	"github.com/wolfman30/clinic-scheduler/internal/doctors"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// DoctorLookup confirms a doctor exists before rules are attached to it.
type DoctorLookup interface {
	Get(ctx context.Context, id string) (*doctors.Doctor, error)
}

// Service manages rules and exceptions.
type Service struct {
	repo    Repository
	doctors DoctorLookup
	feed    changefeed.Publisher
	logger  *logging.Logger
}

func NewService(repo Repository, lookup DoctorLookup, feed changefeed.Publisher, logger *logging.Logger) *Service {
	if repo == nil || lookup == nil {
		panic("availability: repository and doctor lookup required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, doctors: lookup, feed: feed, logger: logger}
}

func (s *Service) requireDoctor(ctx context.Context, doctorID string) error {
	if _, err := s.doctors.Get(ctx, doctorID); err != nil {
		if errors.Is(err, doctors.ErrDoctorNotFound) {
			return ErrDoctorNotFound
		}
		return err
	}
	return nil
}

func (s *Service) ListRules(ctx context.Context, doctorID string) ([]*Rule, error) {
	if err := s.requireDoctor(ctx, doctorID); err != nil {
		return nil, err
	}
	return s.repo.ListRules(ctx, doctorID)
}

func (s *Service) CreateRule(ctx context.Context, doctorID string, in RuleInput) (*Rule, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireDoctor(ctx, doctorID); err != nil {
		return nil, err
	}
	r := &Rule{ID: uuid.NewString(), DoctorID: doctorID}
	in.apply(r)
	if err := s.repo.CreateRule(ctx, r); err != nil {
		return nil, err
	}
	s.notify(ctx, changefeed.AvailabilityRules, r.ID, doctorID, changefeed.OpCreated)
	return r, nil
}

func (s *Service) UpdateRule(ctx context.Context, id string, in RuleInput) (*Rule, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	r := &Rule{ID: id}
	in.apply(r)
	if err := s.repo.UpdateRule(ctx, r); err != nil {
		return nil, err
	}
	s.notify(ctx, changefeed.AvailabilityRules, r.ID, r.DoctorID, changefeed.OpUpdated)
	return r, nil
}

func (s *Service) DeleteRule(ctx context.Context, id string) error {
	existing, err := s.repo.GetRule(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteRule(ctx, id); err != nil {
		return err
	}
	s.notify(ctx, changefeed.AvailabilityRules, id, existing.DoctorID, changefeed.OpDeleted)
	return nil
}

func (s *Service) ListExceptions(ctx context.Context, doctorID string) ([]*Exception, error) {
	if err := s.requireDoctor(ctx, doctorID); err != nil {
		return nil, err
	}
	return s.repo.ListExceptions(ctx, doctorID)
}

func (s *Service) CreateException(ctx context.Context, doctorID string, in ExceptionInput) (*Exception, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireDoctor(ctx, doctorID); err != nil {
		return nil, err
	}
	e := &Exception{ID: uuid.NewString(), DoctorID: doctorID}
	in.apply(e)
	if err := s.repo.CreateException(ctx, e); err != nil {
		return nil, err
	}
	s.notify(ctx, changefeed.AvailabilityExceptions, e.ID, doctorID, changefeed.OpCreated)
	return e, nil
}

func (s *Service) UpdateException(ctx context.Context, id string, in ExceptionInput) (*Exception, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	e := &Exception{ID: id}
	in.apply(e)
	if err := s.repo.UpdateException(ctx, e); err != nil {
		return nil, err
	}
	s.notify(ctx, changefeed.AvailabilityExceptions, e.ID, e.DoctorID, changefeed.OpUpdated)
	return e, nil
}

func (s *Service) DeleteException(ctx context.Context, id string) error {
	existing, err := s.repo.GetException(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteException(ctx, id); err != nil {
		return err
	}
	s.notify(ctx, changefeed.AvailabilityExceptions, id, existing.DoctorID, changefeed.OpDeleted)
	return nil
}

// WeeklyGrid renders the doctor's weekly and daily rules onto the schedule grid.
func (s *Service) WeeklyGrid(ctx context.Context, doctorID string) (WeeklyGrid, error) {
	rules, err := s.ListRules(ctx, doctorID)
	if err != nil {
		return WeeklyGrid{}, err
	}
	return BuildWeeklyGrid(doctorID, rules), nil
}

func (s *Service) notify(ctx context.Context, c changefeed.Collection, id, doctorID string, op changefeed.Op) {
	if err := changefeed.Notify(ctx, s.feed, c, id, doctorID, op); err != nil {
		s.logger.Warn("changefeed publish failed", "error", err, "collection", c, "id", id)
	}
}
