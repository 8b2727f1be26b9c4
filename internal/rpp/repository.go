package rpp

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sekolah-admin/backend/internal/models"
	"github.com/sekolah-admin/backend/pkg/apperr"
)

const subCols = `id, teacher_id, period_id, rpp_type, file_id, status, reviewer_id,
	COALESCE(review_notes, ''), revision_count, submitted_at, reviewed_at, created_at, updated_at`

// Repository handles lesson-plan submission persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an RPP repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanSubmission(row pgx.Row) (*models.RPPSubmission, error) {
	var s models.RPPSubmission
	err := row.Scan(&s.ID, &s.TeacherID, &s.PeriodID, &s.RPPType, &s.FileID, &s.Status, &s.ReviewerID,
		&s.ReviewNotes, &s.RevisionCount, &s.SubmittedAt, &s.ReviewedAt, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a pending submission. One submission per teacher, period,
// and RPP type.
func (r *Repository) Create(ctx context.Context, s *models.RPPSubmission) error {
	const q = `INSERT INTO rpp_submissions (teacher_id, period_id, rpp_type, file_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, status, submitted_at, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, s.TeacherID, s.PeriodID, s.RPPType, s.FileID).
		Scan(&s.ID, &s.Status, &s.SubmittedAt, &s.CreatedAt, &s.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return apperr.Conflict("RPP %s already submitted for this period", s.RPPType)
		case "23503":
			return apperr.ErrInvalidReference
		}
	}
	return err
}

// GetByID returns one submission.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.RPPSubmission, error) {
	return scanSubmission(r.pool.QueryRow(ctx,
		`SELECT `+subCols+` FROM rpp_submissions WHERE id = $1`, id))
}

// Filter narrows List results.
type Filter struct {
	TeacherID *int64
	PeriodID  *int64
	Status    string
	RPPType   string
}

// List returns filtered submissions newest first with the total count.
func (r *Repository) List(ctx context.Context, f Filter, offset, limit int) ([]models.RPPSubmission, int, error) {
	cond := ` WHERE TRUE`
	var args []interface{}
	add := func(clause string, v interface{}) {
		args = append(args, v)
		cond += ` AND ` + clause + `$` + strconv.Itoa(len(args))
	}
	if f.TeacherID != nil {
		add(`teacher_id = `, *f.TeacherID)
	}
	if f.PeriodID != nil {
		add(`period_id = `, *f.PeriodID)
	}
	if f.Status != "" {
		add(`status = `, f.Status)
	}
	if f.RPPType != "" {
		add(`rpp_type = `, f.RPPType)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM rpp_submissions`+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + subCols + ` FROM rpp_submissions` + cond +
		` ORDER BY submitted_at DESC OFFSET $` + strconv.Itoa(len(args)+1) + ` LIMIT $` + strconv.Itoa(len(args)+2)
	rows, err := r.pool.Query(ctx, q, append(args, offset, limit)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []models.RPPSubmission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *s)
	}
	return list, total, rows.Err()
}

// Review records a reviewer decision on a pending submission. The WHERE
// clause only matches pending rows, so a decision never overwrites another.
func (r *Repository) Review(ctx context.Context, id, reviewerID int64, decision models.RPPStatus, notes string) (*models.RPPSubmission, error) {
	const q = `UPDATE rpp_submissions
		SET status = $3, reviewer_id = $2, review_notes = NULLIF($4, ''), reviewed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + subCols
	s, err := scanSubmission(r.pool.QueryRow(ctx, q, id, reviewerID, decision, notes))
	if errors.Is(err, apperr.ErrNotFound) {
		// pending row gone: distinguish missing from already reviewed
		cur, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return nil, apperr.Conflict("submission already reviewed (status %s)", cur.Status)
	}
	return s, err
}

// Resubmit replaces the file on a rejected or revision_needed submission,
// returns it to pending, and bumps the revision count.
func (r *Repository) Resubmit(ctx context.Context, id, teacherID, fileID int64) (*models.RPPSubmission, error) {
	const q = `UPDATE rpp_submissions
		SET file_id = $3, status = 'pending', reviewer_id = NULL, review_notes = NULL, reviewed_at = NULL,
			revision_count = revision_count + 1, submitted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND teacher_id = $2 AND status IN ('rejected', 'revision_needed')
		RETURNING ` + subCols
	s, err := scanSubmission(r.pool.QueryRow(ctx, q, id, teacherID, fileID))
	if errors.Is(err, apperr.ErrNotFound) {
		cur, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if cur.TeacherID != teacherID {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.Conflict("submission is %s, not awaiting revision", cur.Status)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return nil, apperr.ErrInvalidReference
	}
	return s, err
}

// Delete removes a submission (admin cleanup).
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM rpp_submissions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// TeacherEmail returns a submission teacher's email and display name.
func (r *Repository) TeacherEmail(ctx context.Context, teacherID int64) (email, name string, err error) {
	const q = `SELECT email, COALESCE(profile->>'name', username) FROM users WHERE id = $1`
	err = r.pool.QueryRow(ctx, q, teacherID).Scan(&email, &name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", apperr.ErrNotFound
	}
	return email, name, err
}
