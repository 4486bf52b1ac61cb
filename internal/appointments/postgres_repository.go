package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wolfman30/clinic-scheduler/internal/database"
	"github.com/wolfman30/clinic-scheduler/internal/events"
)

// activeSlotConstraint is the partial unique index over non-cancelled slots.
const activeSlotConstraint = "appointments_active_slot_key"

// PostgresRepository stores appointments in Postgres.
type PostgresRepository struct {
	db          database.Pool
	maxAttempts int
}

// NewPostgresRepository initializes a repo backed by a pgx pool. maxAttempts
// bounds retries of a booking transaction that hit a serialization failure.
func NewPostgresRepository(db database.Pool, maxAttempts int) *PostgresRepository {
	if db == nil {
		panic("appointments: pgx pool required")
	}
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	return &PostgresRepository{db: db, maxAttempts: maxAttempts}
}

const appointmentColumns = `id, doctor_id, patient_phone, patient_first_name, patient_last_name, patient_tc_number,
	scheduled_at, timezone, duration_minutes, status, source, raw_payload, requested_at, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a       Appointment
		status  string
		source  string
		payload []byte
	)
	if err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.PatientPhone,
		&a.PatientFirstName,
		&a.PatientLastName,
		&a.PatientTCNumber,
		&a.ScheduledAt,
		&a.Timezone,
		&a.DurationMinutes,
		&status,
		&source,
		&payload,
		&a.RequestedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.Status = Status(status)
	a.Source = Source(source)
	if len(payload) > 0 {
		a.RawPayload = append([]byte(nil), payload...)
	}
	a.localize()
	return &a, nil
}

func collect(rows pgx.Rows) ([]*Appointment, error) {
	defer rows.Close()
	out := []*Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan failed: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const activeSlotQuery = `
	SELECT EXISTS (
		SELECT 1 FROM appointments
		WHERE doctor_id = $1 AND scheduled_at = $2 AND status <> 'cancelled'
	)
`

func (r *PostgresRepository) HasActive(ctx context.Context, doctorID string, at time.Time) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, activeSlotQuery, doctorID, at).Scan(&exists); err != nil {
		return false, fmt.Errorf("appointments: conflict check failed: %w", err)
	}
	return exists, nil
}

const doctorShareQuery = `SELECT active FROM doctors WHERE id = $1 FOR SHARE`

// Book re-checks the doctor and the slot and inserts inside one serializable
// transaction, writing the booked event to the outbox alongside. The doctor
// row is held FOR SHARE so a concurrent deletion cascade either waits for the
// commit or leaves nothing to book against. The unique index closes any slot
// race the re-check misses.
func (r *PostgresRepository) Book(ctx context.Context, a *Appointment) error {
	var payload any
	if len(a.RawPayload) > 0 {
		payload = []byte(a.RawPayload)
	}
	var err error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err = database.WithTx(ctx, r.db, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
			var active bool
			if err := tx.QueryRow(ctx, doctorShareQuery, a.DoctorID).Scan(&active); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return ErrDoctorNotFound
				}
				return fmt.Errorf("appointments: doctor check failed: %w", err)
			}
			if !active {
				return ErrDoctorInactive
			}
			var exists bool
			if err := tx.QueryRow(ctx, activeSlotQuery, a.DoctorID, a.ScheduledAt).Scan(&exists); err != nil {
				return fmt.Errorf("appointments: conflict check failed: %w", err)
			}
			if exists {
				return ErrSlotTaken
			}
			query := `
				INSERT INTO appointments (id, doctor_id, patient_phone, patient_first_name, patient_last_name,
					patient_tc_number, scheduled_at, timezone, duration_minutes, status, source, raw_payload)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
				RETURNING requested_at, created_at, updated_at
			`
			if err := tx.QueryRow(ctx, query,
				a.ID,
				a.DoctorID,
				a.PatientPhone,
				a.PatientFirstName,
				a.PatientLastName,
				a.PatientTCNumber,
				a.ScheduledAt,
				a.Timezone,
				a.DurationMinutes,
				string(a.Status),
				string(a.Source),
				payload,
			).Scan(&a.RequestedAt, &a.CreatedAt, &a.UpdatedAt); err != nil {
				return fmt.Errorf("appointments: insert failed: %w", err)
			}
			a.localize()
			_, err := events.Append(ctx, tx, a.ID, events.TypeAppointmentBooked, bookedEvent(a))
			return err
		})
		switch {
		case err == nil:
			return nil
		case database.IsUniqueViolation(err, activeSlotConstraint):
			return ErrSlotTaken
		case database.IsRetryable(err) && attempt < r.maxAttempts:
			continue
		default:
			return err
		}
	}
	return err
}

func bookedEvent(a *Appointment) events.AppointmentBookedV1 {
	return events.AppointmentBookedV1{
		AppointmentID:   a.ID,
		DoctorID:        a.DoctorID,
		DoctorName:      a.DoctorName,
		PatientPhone:    a.PatientPhone,
		PatientName:     a.PatientName(),
		ScheduledAt:     a.ScheduledAt,
		Timezone:        a.Timezone,
		Date:            a.AppointmentDate,
		Time:            a.AppointmentTime,
		DurationMinutes: a.DurationMinutes,
		Source:          string(a.Source),
	}
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Appointment, error) {
	a, err := scanAppointment(r.db.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("appointments: select failed: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) Cancel(ctx context.Context, id, reason string) (*Appointment, Status, error) {
	return r.transition(ctx, id, StatusCancelled, reason)
}

func (r *PostgresRepository) SetStatus(ctx context.Context, id string, status Status) (*Appointment, Status, error) {
	return r.transition(ctx, id, status, "")
}

// transition locks the row, applies the new status and records the matching
// outbox event in the same transaction.
func (r *PostgresRepository) transition(ctx context.Context, id string, status Status, reason string) (*Appointment, Status, error) {
	var (
		updated *Appointment
		prev    Status
	)
	err := database.WithTx(ctx, r.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		current, err := scanAppointment(tx.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrAppointmentNotFound
			}
			return fmt.Errorf("appointments: lock failed: %w", err)
		}
		prev = current.Status

		if err := tx.QueryRow(ctx, `
			UPDATE appointments
			SET status = $2, updated_at = now()
			WHERE id = $1
			RETURNING updated_at
		`, id, string(status)).Scan(&current.UpdatedAt); err != nil {
			return fmt.Errorf("appointments: update status failed: %w", err)
		}
		current.Status = status
		updated = current

		if status == StatusCancelled {
			_, err = events.Append(ctx, tx, id, events.TypeAppointmentCancelled, events.AppointmentCancelledV1{
				AppointmentID:  id,
				DoctorID:       current.DoctorID,
				PreviousStatus: string(prev),
				Reason:         reason,
				ScheduledAt:    current.ScheduledAt,
				Timezone:       current.Timezone,
			})
		} else {
			_, err = events.Append(ctx, tx, id, events.TypeAppointmentStatusChanged, events.AppointmentStatusChangedV1{
				AppointmentID:  id,
				DoctorID:       current.DoctorID,
				PreviousStatus: string(prev),
				Status:         string(status),
			})
		}
		return err
	})
	if err != nil {
		if database.IsUniqueViolation(err, activeSlotConstraint) {
			return nil, "", ErrSlotTaken
		}
		return nil, "", err
	}
	return updated, prev, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) (*Appointment, error) {
	a, err := scanAppointment(r.db.QueryRow(ctx, `DELETE FROM appointments WHERE id = $1 RETURNING `+appointmentColumns, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("appointments: delete failed: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) List(ctx context.Context, f ListFilter) ([]*Appointment, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.DoctorID != "" {
		add("doctor_id = $%d", f.DoctorID)
	}
	if f.Date != "" {
		add("(scheduled_at AT TIME ZONE timezone)::date = $%d::date", f.Date)
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY scheduled_at DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: list failed: %w", err)
	}
	return collect(rows)
}

func (r *PostgresRepository) Recent(ctx context.Context, limit int) ([]*Appointment, error) {
	rows, err := r.db.Query(ctx, `SELECT `+appointmentColumns+` FROM appointments ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("appointments: recent failed: %w", err)
	}
	return collect(rows)
}

func (r *PostgresRepository) Upcoming(ctx context.Context, doctorID, fromDate string) ([]*Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1 AND (scheduled_at AT TIME ZONE timezone)::date >= $2::date
		ORDER BY scheduled_at
	`, doctorID, fromDate)
	if err != nil {
		return nil, fmt.Errorf("appointments: upcoming failed: %w", err)
	}
	return collect(rows)
}

var _ Repository = (*PostgresRepository)(nil)
