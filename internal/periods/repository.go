package periods

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sekolah-admin/backend/internal/models"
	"github.com/sekolah-admin/backend/pkg/apperr"
)

const periodCols = `id, academic_year, semester, start_date, end_date, is_active,
	COALESCE(description,''), created_by, updated_by, created_at, updated_at`

// Repository handles period persistence. It implements Store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a period repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanPeriod(row pgx.Row) (*models.Period, error) {
	var p models.Period
	err := row.Scan(&p.ID, &p.AcademicYear, &p.Semester, &p.StartDate, &p.EndDate,
		&p.IsActive, &p.Description, &p.CreatedBy, &p.UpdatedBy, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a new period, always inactive. The (academic_year, semester)
// pair is unique; a duplicate surfaces as a conflict.
func (r *Repository) Create(ctx context.Context, p *models.Period, createdBy *int64) error {
	const q = `INSERT INTO periods (academic_year, semester, start_date, end_date, is_active, description, created_by)
		VALUES ($1, $2, $3, $4, FALSE, NULLIF($5,''), $6)
		RETURNING id, is_active, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, p.AcademicYear, p.Semester, p.StartDate, p.EndDate, p.Description, createdBy).
		Scan(&p.ID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return apperr.Conflict("period %s - %s already exists", p.AcademicYear, p.Semester)
	}
	return err
}

// GetByID returns a period by ID.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Period, error) {
	return scanPeriod(r.pool.QueryRow(ctx, `SELECT `+periodCols+` FROM periods WHERE id = $1`, id))
}

// GetActive returns the single active period, or nil when none is active.
func (r *Repository) GetActive(ctx context.Context) (*models.Period, error) {
	p, err := scanPeriod(r.pool.QueryRow(ctx, `SELECT `+periodCols+` FROM periods WHERE is_active`))
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	return p, err
}

// SetActive activates the period with a single conditional UPDATE. The
// NOT EXISTS guard rejects activation while another period is active, but at
// READ COMMITTED two activations of different rows can each miss the other's
// uncommitted write; the partial unique index periods_single_active catches
// that overlap, so a 23505 here is a lost race, not a duplicate key bug.
func (r *Repository) SetActive(ctx context.Context, id int64, updatedBy *int64) (*models.Period, error) {
	const q = `UPDATE periods SET is_active = TRUE, updated_by = COALESCE($2, updated_by), updated_at = NOW()
		WHERE id = $1
		AND NOT EXISTS (SELECT 1 FROM periods other WHERE other.is_active AND other.id <> $1)
		RETURNING ` + periodCols
	p, err := scanPeriod(r.pool.QueryRow(ctx, q, id, updatedBy))
	err = activationRace(err)
	if errors.Is(err, apperr.ErrRaceLost) {
		return nil, err
	}
	if errors.Is(err, apperr.ErrNotFound) {
		// either the period vanished or a concurrent activation won
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, apperr.ErrRaceLost
	}
	return p, err
}

// activationRace maps a periods_single_active unique violation to ErrRaceLost;
// anything else passes through unchanged.
func activationRace(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return apperr.ErrRaceLost
	}
	return err
}

// SetInactive deactivates the period unconditionally.
func (r *Repository) SetInactive(ctx context.Context, id int64, updatedBy *int64) (*models.Period, error) {
	const q = `UPDATE periods SET is_active = FALSE, updated_by = COALESCE($2, updated_by), updated_at = NOW()
		WHERE id = $1 RETURNING ` + periodCols
	return scanPeriod(r.pool.QueryRow(ctx, q, id, updatedBy))
}

// CountDependents returns the number of evaluations and submissions that
// reference the period.
func (r *Repository) CountDependents(ctx context.Context, id int64) (int, int, error) {
	const q = `SELECT
		(SELECT COUNT(*) FROM teacher_evaluations WHERE period_id = $1),
		(SELECT COUNT(*) FROM rpp_submissions WHERE period_id = $1)`
	var evals, subs int
	if err := r.pool.QueryRow(ctx, q, id).Scan(&evals, &subs); err != nil {
		return 0, 0, err
	}
	return evals, subs, nil
}

// Filter narrows List results.
type Filter struct {
	AcademicYear string
	Semester     string
	IsActive     *bool
	StartFrom    *time.Time
	StartTo      *time.Time
}

// List returns filtered periods, newest first, with the total count.
func (r *Repository) List(ctx context.Context, f Filter, offset, limit int) ([]models.Period, int, error) {
	cond := ` WHERE TRUE`
	var args []interface{}
	add := func(clause string, v interface{}) {
		args = append(args, v)
		cond += ` AND ` + clause
	}
	if f.AcademicYear != "" {
		add(`academic_year = $`+strconv.Itoa(len(args)+1), f.AcademicYear)
	}
	if f.Semester != "" {
		add(`semester = $`+strconv.Itoa(len(args)+1), f.Semester)
	}
	if f.IsActive != nil {
		add(`is_active = $`+strconv.Itoa(len(args)+1), *f.IsActive)
	}
	if f.StartFrom != nil {
		add(`start_date >= $`+strconv.Itoa(len(args)+1), *f.StartFrom)
	}
	if f.StartTo != nil {
		add(`start_date <= $`+strconv.Itoa(len(args)+1), *f.StartTo)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM periods`+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + periodCols + ` FROM periods` + cond +
		` ORDER BY created_at DESC OFFSET $` + strconv.Itoa(len(args)+1) + ` LIMIT $` + strconv.Itoa(len(args)+2)
	rows, err := r.pool.Query(ctx, q, append(args, offset, limit)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []models.Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *p)
	}
	return list, total, rows.Err()
}

// Update changes period fields. Activation state is not updatable here; use
// the activation controller.
func (r *Repository) Update(ctx context.Context, id int64, p *models.Period, updatedBy *int64) (*models.Period, error) {
	const q = `UPDATE periods SET academic_year = $2, semester = $3, start_date = $4, end_date = $5,
		description = NULLIF($6,''), updated_by = COALESCE($7, updated_by), updated_at = NOW()
		WHERE id = $1 RETURNING ` + periodCols
	out, err := scanPeriod(r.pool.QueryRow(ctx, q, id, p.AcademicYear, p.Semester, p.StartDate, p.EndDate, p.Description, updatedBy))
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return nil, apperr.Conflict("period %s - %s already exists", p.AcademicYear, p.Semester)
	}
	return out, err
}

// Delete removes a period after the deletion guard passes.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	if err := CanDelete(ctx, r, id); err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM periods WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// Stats returns evaluation, submission, and distinct-teacher counts for the period.
func (r *Repository) Stats(ctx context.Context, id int64) (*models.PeriodStats, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	const q = `SELECT
		(SELECT COUNT(*) FROM teacher_evaluations WHERE period_id = $1),
		(SELECT COUNT(*) FROM rpp_submissions WHERE period_id = $1),
		(SELECT COUNT(DISTINCT teacher_id) FROM teacher_evaluations WHERE period_id = $1)`
	var s models.PeriodStats
	if err := r.pool.QueryRow(ctx, q, id).Scan(&s.TotalEvaluations, &s.TotalRPPSubmissions, &s.TotalTeachers); err != nil {
		return nil, err
	}
	return &s, nil
}

