package doctors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-scheduler/internal/changefeed"
)

func TestCreateAppliesDefaults(t *testing.T) {
	svc := NewService(NewInMemoryRepository(InMemoryCascade{}), nil, nil)

	d, err := svc.Create(context.Background(), Input{FirstName: " Mehmet ", LastName: "Kaya"})
	require.NoError(t, err)
	assert.NotEmpty(t, d.ID)
	assert.Equal(t, "Mehmet", d.FirstName)
	assert.Equal(t, DefaultTimezone, d.Timezone)
	assert.Equal(t, DefaultSlotLength, d.SlotLength)
	assert.True(t, d.Active)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(NewInMemoryRepository(InMemoryCascade{}), nil, nil)
	zero := 0

	_, err := svc.Create(context.Background(), Input{FirstName: "A"})
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = svc.Create(context.Background(), Input{FirstName: "A", LastName: "B", Timezone: "Mars/Olympus"})
	assert.ErrorIs(t, err, ErrInvalidTimezone)

	_, err = svc.Create(context.Background(), Input{FirstName: "A", LastName: "B", SlotLength: &zero})
	assert.ErrorIs(t, err, ErrInvalidSlotLength)
}

func TestToggleActiveFlipsFlag(t *testing.T) {
	svc := NewService(NewInMemoryRepository(InMemoryCascade{}), nil, nil)
	d, err := svc.Create(context.Background(), Input{FirstName: "A", LastName: "B"})
	require.NoError(t, err)

	toggled, err := svc.ToggleActive(context.Background(), d.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Active)

	toggled, err = svc.ToggleActive(context.Background(), d.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Active)

	_, err = svc.ToggleActive(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}

func TestDeleteRunsCascadeAndPublishes(t *testing.T) {
	var calls []string
	step := func(name string, n int64) DependentFunc {
		return func(_ context.Context, doctorID string) (int64, error) {
			calls = append(calls, name+":"+doctorID)
			return n, nil
		}
	}
	repo := NewInMemoryRepository(InMemoryCascade{
		DeleteRules:        step("rules", 2),
		DeleteExceptions:   step("exceptions", 1),
		CancelAppointments: step("appointments", 4),
	})
	feed := changefeed.NewMemoryFeed()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes, err := feed.Subscribe(ctx)
	require.NoError(t, err)

	svc := NewService(repo, feed, nil)
	d, err := svc.Create(context.Background(), Input{FirstName: "A", LastName: "B"})
	require.NoError(t, err)

	res, err := svc.Delete(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.RulesDeleted)
	assert.Equal(t, int64(1), res.ExceptionsDeleted)
	assert.Equal(t, int64(4), res.AppointmentsCancelled)
	assert.Equal(t, []string{"rules:" + d.ID, "exceptions:" + d.ID, "appointments:" + d.ID}, calls)

	_, err = svc.Get(context.Background(), d.ID)
	assert.ErrorIs(t, err, ErrDoctorNotFound)

	var ops []changefeed.Op
	timeout := time.After(time.Second)
	for len(ops) < 3 {
		select {
		case c := <-changes:
			ops = append(ops, c.Op)
		case <-timeout:
			t.Fatalf("expected three changes, got %v", ops)
		}
	}
	assert.Equal(t, []changefeed.Op{changefeed.OpCreated, changefeed.OpDeleted, changefeed.OpUpdated}, ops)

	_, err = svc.Delete(context.Background(), d.ID)
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}
