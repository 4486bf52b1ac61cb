package availability

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresListRulesScansNullables(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{"id", "doctor_id", "recurrence_type", "day_of_week", "date", "start_time", "end_time", "start_date", "end_date", "created_at", "updated_at"}).
		AddRow("r-1", "doc-1", "weekly", int32(1), nil, "09:00", "17:00", nil, "2030-12-31", now, now).
		AddRow("r-2", "doc-1", "single", nil, "2030-01-05", "10:00", "12:00", nil, nil, now, now)
	mock.ExpectQuery("FROM availability_rules WHERE doctor_id").WithArgs("doc-1").WillReturnRows(rows)

	repo := NewPostgresRepository(mock)
	rules, err := repo.ListRules(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Len(t, rules, 2)
	require.NotNil(t, rules[0].DayOfWeek)
	assert.Equal(t, 1, *rules[0].DayOfWeek)
	assert.Equal(t, "2030-12-31", rules[0].EndDate)
	assert.Nil(t, rules[1].DayOfWeek)
	assert.Equal(t, "2030-01-05", rules[1].Date)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeleteExceptionNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM availability_exceptions").WithArgs("e-1").WillReturnResult(pgxmock.NewResult("DELETE", 0))
	repo := NewPostgresRepository(mock)
	assert.ErrorIs(t, repo.DeleteException(context.Background(), "e-1"), ErrExceptionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
