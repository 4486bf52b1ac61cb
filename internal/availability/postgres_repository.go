package availability

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wolfman30/clinic-scheduler/internal/database"
)

// PostgresRepository stores rules and exceptions in Postgres.
type PostgresRepository struct {
	db database.Querier
}

func NewPostgresRepository(db database.Querier) *PostgresRepository {
	if db == nil {
		panic("availability: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

const ruleColumns = `id, doctor_id, recurrence_type, day_of_week, date, start_time, end_time, start_date, end_date, created_at, updated_at`

func scanRule(row pgx.Row) (*Rule, error) {
	var (
		r                        Rule
		dow                      sql.NullInt32
		date, startDate, endDate sql.NullString
		recurrence               string
	)
	if err := row.Scan(&r.ID, &r.DoctorID, &recurrence, &dow, &date, &r.StartTime, &r.EndTime, &startDate, &endDate, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.RecurrenceType = RecurrenceType(recurrence)
	if dow.Valid {
		v := int(dow.Int32)
		r.DayOfWeek = &v
	}
	r.Date, r.StartDate, r.EndDate = date.String, startDate.String, endDate.String
	return &r, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return int32(*v)
}

func (p *PostgresRepository) ListRules(ctx context.Context, doctorID string) ([]*Rule, error) {
	rows, err := p.db.Query(ctx, `SELECT `+ruleColumns+` FROM availability_rules WHERE doctor_id = $1 ORDER BY created_at`, doctorID)
	if err != nil {
		return nil, fmt.Errorf("availability: list rules: %w", err)
	}
	defer rows.Close()
	out := []*Rule{}
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("availability: scan rule: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *PostgresRepository) GetRule(ctx context.Context, id string) (*Rule, error) {
	r, err := scanRule(p.db.QueryRow(ctx, `SELECT `+ruleColumns+` FROM availability_rules WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("availability: get rule: %w", err)
	}
	return r, nil
}

func (p *PostgresRepository) CreateRule(ctx context.Context, r *Rule) error {
	query := `
		INSERT INTO availability_rules (id, doctor_id, recurrence_type, day_of_week, date, start_time, end_time, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	if err := p.db.QueryRow(ctx, query,
		r.ID, r.DoctorID, string(r.RecurrenceType), nullableInt(r.DayOfWeek), nullable(r.Date),
		r.StartTime, r.EndTime, nullable(r.StartDate), nullable(r.EndDate),
	).Scan(&r.CreatedAt, &r.UpdatedAt); err != nil {
		return fmt.Errorf("availability: insert rule: %w", err)
	}
	return nil
}

func (p *PostgresRepository) UpdateRule(ctx context.Context, r *Rule) error {
	query := `
		UPDATE availability_rules
		SET recurrence_type = $2, day_of_week = $3, date = $4, start_time = $5, end_time = $6,
		    start_date = $7, end_date = $8, updated_at = now()
		WHERE id = $1
		RETURNING doctor_id, created_at, updated_at
	`
	err := p.db.QueryRow(ctx, query,
		r.ID, string(r.RecurrenceType), nullableInt(r.DayOfWeek), nullable(r.Date),
		r.StartTime, r.EndTime, nullable(r.StartDate), nullable(r.EndDate),
	).Scan(&r.DoctorID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrRuleNotFound
		}
		return fmt.Errorf("availability: update rule: %w", err)
	}
	return nil
}

func (p *PostgresRepository) DeleteRule(ctx context.Context, id string) error {
	tag, err := p.db.Exec(ctx, `DELETE FROM availability_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("availability: delete rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}

const exceptionColumns = `id, doctor_id, date, start_time, end_time, reason, created_at, updated_at`

func scanException(row pgx.Row) (*Exception, error) {
	var e Exception
	if err := row.Scan(&e.ID, &e.DoctorID, &e.Date, &e.StartTime, &e.EndTime, &e.Reason, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func (p *PostgresRepository) ListExceptions(ctx context.Context, doctorID string) ([]*Exception, error) {
	rows, err := p.db.Query(ctx, `SELECT `+exceptionColumns+` FROM availability_exceptions WHERE doctor_id = $1 ORDER BY date, start_time`, doctorID)
	if err != nil {
		return nil, fmt.Errorf("availability: list exceptions: %w", err)
	}
	defer rows.Close()
	out := []*Exception{}
	for rows.Next() {
		e, err := scanException(rows)
		if err != nil {
			return nil, fmt.Errorf("availability: scan exception: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (p *PostgresRepository) GetException(ctx context.Context, id string) (*Exception, error) {
	e, err := scanException(p.db.QueryRow(ctx, `SELECT `+exceptionColumns+` FROM availability_exceptions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExceptionNotFound
		}
		return nil, fmt.Errorf("availability: get exception: %w", err)
	}
	return e, nil
}

func (p *PostgresRepository) CreateException(ctx context.Context, e *Exception) error {
	query := `
		INSERT INTO availability_exceptions (id, doctor_id, date, start_time, end_time, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	if err := p.db.QueryRow(ctx, query, e.ID, e.DoctorID, e.Date, e.StartTime, e.EndTime, e.Reason).
		Scan(&e.CreatedAt, &e.UpdatedAt); err != nil {
		return fmt.Errorf("availability: insert exception: %w", err)
	}
	return nil
}

func (p *PostgresRepository) UpdateException(ctx context.Context, e *Exception) error {
	query := `
		UPDATE availability_exceptions
		SET date = $2, start_time = $3, end_time = $4, reason = $5, updated_at = now()
		WHERE id = $1
		RETURNING doctor_id, created_at, updated_at
	`
	err := p.db.QueryRow(ctx, query, e.ID, e.Date, e.StartTime, e.EndTime, e.Reason).
		Scan(&e.DoctorID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrExceptionNotFound
		}
		return fmt.Errorf("availability: update exception: %w", err)
	}
	return nil
}

func (p *PostgresRepository) DeleteException(ctx context.Context, id string) error {
	tag, err := p.db.Exec(ctx, `DELETE FROM availability_exceptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("availability: delete exception: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrExceptionNotFound
	}
	return nil
}

var _ Repository = (*PostgresRepository)(nil)
