package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/wolfman30/clinic-scheduler/internal/appointments"
	"github.com/wolfman30/clinic-scheduler/internal/availability"
	"github.com/wolfman30/clinic-scheduler/internal/database"
	"github.com/wolfman30/clinic-scheduler/internal/doctors"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Pediatrics",
	"Ophthalmology",
	"ENT",
}

type seeder struct {
	doctors      *doctors.Service
	availability *availability.Service
	appointments *appointments.Service
	faker        *gofakeit.Faker
	timezone     string
	now          func() time.Time
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	doctorCount := flag.Int("doctors", 5, "doctors to create")
	perDoctor := flag.Int("appointments", 10, "manual appointments per doctor")
	tz := flag.String("timezone", "Europe/Istanbul", "doctor timezone")
	seed := flag.Uint64("seed", 0, "random seed (0 picks one)")
	flag.Parse()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := database.Connect(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	logger := logging.New("warn")
	doctorSvc := doctors.NewService(doctors.NewPostgresRepository(pool), nil, logger)
	s := &seeder{
		doctors:      doctorSvc,
		availability: availability.NewService(availability.NewPostgresRepository(pool), doctorSvc, nil, logger),
		appointments: appointments.NewService(appointments.NewPostgresRepository(pool, 3), doctorSvc, nil, logger, appointments.Options{}),
		faker:        gofakeit.New(*seed),
		timezone:     *tz,
		now:          time.Now,
	}

	log.Println("seed starting")
	booked, err := s.run(ctx, *doctorCount, *perDoctor)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	log.Printf("seed complete: %d doctors, %d appointments", *doctorCount, booked)
}

// run creates doctors with a weekday 09:00-17:00 schedule and books manual
// appointments on the coming weekdays. Slot collisions are skipped.
func (s *seeder) run(ctx context.Context, doctorCount, perDoctor int) (int, error) {
	loc, err := time.LoadLocation(s.timezone)
	if err != nil {
		return 0, err
	}
	booked := 0
	for i := 0; i < doctorCount; i++ {
		d, err := s.doctors.Create(ctx, doctors.Input{
			FirstName: s.faker.FirstName(),
			LastName:  s.faker.LastName(),
			Specialty: specialties[s.faker.Number(0, len(specialties)-1)],
			Timezone:  s.timezone,
		})
		if err != nil {
			return booked, fmt.Errorf("create doctor: %w", err)
		}
		for day := 1; day <= 5; day++ {
			weekday := day
			if _, err := s.availability.CreateRule(ctx, d.ID, availability.RuleInput{
				RecurrenceType: availability.RecurrenceWeekly,
				DayOfWeek:      &weekday,
				StartTime:      "09:00",
				EndTime:        "17:00",
			}); err != nil {
				return booked, fmt.Errorf("create rule: %w", err)
			}
		}

		for j := 0; j < perDoctor; j++ {
			at := s.nextWeekday(loc, s.faker.Number(1, 14))
			at = at.Add(time.Duration(s.faker.Number(0, 31)) * 15 * time.Minute)
			_, err := s.appointments.BookManual(ctx, appointments.ManualBookingRequest{
				DoctorID:         d.ID,
				PatientPhone:     s.faker.Phone(),
				PatientFirstName: s.faker.FirstName(),
				PatientLastName:  s.faker.LastName(),
				AppointmentDate:  at.Format("2006-01-02"),
				AppointmentTime:  at.Format("15:04"),
			})
			if errors.Is(err, appointments.ErrSlotTaken) {
				continue
			}
			if err != nil {
				return booked, fmt.Errorf("book appointment: %w", err)
			}
			booked++
		}
	}
	return booked, nil
}

// nextWeekday returns 09:00 local on the first weekday at least days ahead.
func (s *seeder) nextWeekday(loc *time.Location, days int) time.Time {
	t := s.now().In(loc).AddDate(0, 0, days)
	for t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		t = t.AddDate(0, 0, 1)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 9, 0, 0, 0, loc)
}
