package doctors

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wolfman30/clinic-scheduler/internal/database"
	"github.com/wolfman30/clinic-scheduler/internal/events"
)

// PostgresRepository stores doctors in the relational database.
type PostgresRepository struct {
	db database.Pool
}

// NewPostgresRepository initializes a repo backed by a pgx pool.
func NewPostgresRepository(db database.Pool) *PostgresRepository {
	if db == nil {
		panic("doctors: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

const doctorColumns = `id, first_name, last_name, specialty, timezone, slot_length, active, created_at, updated_at`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	if err := row.Scan(
		&d.ID,
		&d.FirstName,
		&d.LastName,
		&d.Specialty,
		&d.Timezone,
		&d.SlotLength,
		&d.Active,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *PostgresRepository) Create(ctx context.Context, d *Doctor) error {
	query := `
		INSERT INTO doctors (id, first_name, last_name, specialty, timezone, slot_length, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	if err := r.db.QueryRow(ctx, query,
		d.ID,
		d.FirstName,
		d.LastName,
		d.Specialty,
		d.Timezone,
		d.SlotLength,
		d.Active,
	).Scan(&d.CreatedAt, &d.UpdatedAt); err != nil {
		return fmt.Errorf("doctors: insert failed: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Doctor, error) {
	query := `SELECT ` + doctorColumns + ` FROM doctors WHERE id = $1`
	d, err := scanDoctor(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, fmt.Errorf("doctors: select failed: %w", err)
	}
	return d, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*Doctor, error) {
	query := `SELECT ` + doctorColumns + ` FROM doctors ORDER BY last_name, first_name`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("doctors: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, fmt.Errorf("doctors: scan failed: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Update(ctx context.Context, d *Doctor) error {
	query := `
		UPDATE doctors
		SET first_name = $2, last_name = $3, specialty = $4, timezone = $5,
		    slot_length = $6, active = $7, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		d.ID,
		d.FirstName,
		d.LastName,
		d.Specialty,
		d.Timezone,
		d.SlotLength,
		d.Active,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrDoctorNotFound
		}
		return fmt.Errorf("doctors: update failed: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetActive(ctx context.Context, id string, active bool) (*Doctor, error) {
	query := `UPDATE doctors SET active = $2, updated_at = now() WHERE id = $1 RETURNING ` + doctorColumns
	d, err := scanDoctor(r.db.QueryRow(ctx, query, id, active))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, fmt.Errorf("doctors: set active failed: %w", err)
	}
	return d, nil
}

// DeleteCascade runs the whole deletion in one transaction. The doctor row is
// locked FOR UPDATE first; booking transactions take it FOR SHARE, so a
// booking either commits before the cascade cancels it or finds no doctor.
func (r *PostgresRepository) DeleteCascade(ctx context.Context, id string) (*CascadeResult, error) {
	res := &CascadeResult{DoctorID: id}
	err := database.WithTx(ctx, r.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var locked string
		if err := tx.QueryRow(ctx, `SELECT id FROM doctors WHERE id = $1 FOR UPDATE`, id).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrDoctorNotFound
			}
			return fmt.Errorf("doctors: lock doctor: %w", err)
		}

		var err error
		if res.RulesDeleted, err = execRowsAffected(ctx, tx, `
			DELETE FROM availability_rules
			WHERE doctor_id = $1
		`, id); err != nil {
			return fmt.Errorf("doctors: delete availability rules: %w", err)
		}
		if res.ExceptionsDeleted, err = execRowsAffected(ctx, tx, `
			DELETE FROM availability_exceptions
			WHERE doctor_id = $1
		`, id); err != nil {
			return fmt.Errorf("doctors: delete availability exceptions: %w", err)
		}
		if res.AppointmentsCancelled, err = execRowsAffected(ctx, tx, `
			UPDATE appointments
			SET status = 'cancelled', updated_at = now()
			WHERE doctor_id = $1 AND status <> 'cancelled'
		`, id); err != nil {
			return fmt.Errorf("doctors: cancel appointments: %w", err)
		}
		if _, err := execRowsAffected(ctx, tx, `DELETE FROM doctors WHERE id = $1`, id); err != nil {
			return fmt.Errorf("doctors: delete doctor: %w", err)
		}

		_, err = events.Append(ctx, tx, id, events.TypeDoctorDeleted, events.DoctorDeletedV1{
			DoctorID:              id,
			RulesDeleted:          res.RulesDeleted,
			ExceptionsDeleted:     res.ExceptionsDeleted,
			AppointmentsCancelled: res.AppointmentsCancelled,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func execRowsAffected(ctx context.Context, tx pgx.Tx, query string, args ...any) (int64, error) {
	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ Repository = (*PostgresRepository)(nil)
