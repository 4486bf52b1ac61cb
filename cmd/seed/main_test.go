package main

import (
	"context"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-scheduler/internal/appointments"
	"github.com/wolfman30/clinic-scheduler/internal/availability"
	"github.com/wolfman30/clinic-scheduler/internal/doctors"
)

func TestSeederRun(t *testing.T) {
	appts := appointments.NewInMemoryRepository()
	avail := availability.NewInMemoryRepository()
	docRepo := doctors.NewInMemoryRepository(doctors.InMemoryCascade{})
	doctorSvc := doctors.NewService(docRepo, nil, nil)

	s := &seeder{
		doctors:      doctorSvc,
		availability: availability.NewService(avail, doctorSvc, nil, nil),
		appointments: appointments.NewService(appts, doctorSvc, nil, nil, appointments.Options{}),
		faker:        gofakeit.New(42),
		timezone:     "Europe/Istanbul",
		now:          func() time.Time { return time.Date(2030, 3, 1, 8, 0, 0, 0, time.UTC) },
	}

	booked, err := s.run(context.Background(), 3, 4)
	require.NoError(t, err)
	assert.LessOrEqual(t, booked, 12)
	assert.Positive(t, booked)

	list, err := doctorSvc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 3)
	for _, d := range list {
		rules, err := avail.ListRules(context.Background(), d.ID)
		require.NoError(t, err)
		assert.Len(t, rules, 5)
	}

	all, err := appts.List(context.Background(), appointments.ListFilter{Limit: 100})
	require.NoError(t, err)
	assert.Len(t, all, booked)
	for _, a := range all {
		assert.Equal(t, appointments.SourceManual, a.Source)
		day := a.ScheduledAt.In(mustLoad(t, "Europe/Istanbul")).Weekday()
		assert.NotEqual(t, time.Saturday, day)
		assert.NotEqual(t, time.Sunday, day)
	}
}

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}
