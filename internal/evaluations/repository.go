package evaluations

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sekolah-admin/backend/internal/models"
	"github.com/sekolah-admin/backend/internal/ordering"
	"github.com/sekolah-admin/backend/pkg/apperr"
)

func categoryScope(tx pgx.Tx) *ordering.Engine {
	return ordering.NewEngine(ordering.NewTxStore(tx, ordering.Rows{
		Table:  "evaluation_categories",
		PosCol: "display_order",
	}))
}

func aspectScope(tx pgx.Tx, categoryID int64) *ordering.Engine {
	return ordering.NewEngine(ordering.NewTxStore(tx, ordering.Rows{
		Table:    "evaluation_aspects",
		PosCol:   "display_order",
		ScopeCol: "category_id",
		ScopeVal: categoryID,
	}))
}

// Repository handles evaluation master data (categories, aspects) and
// teacher evaluations with their graded items.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an evaluations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const categoryCols = `id, name, COALESCE(description, ''), display_order, is_active, created_at, updated_at`

func scanCategory(row pgx.Row) (*models.EvaluationCategory, error) {
	var c models.EvaluationCategory
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.DisplayOrder, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const aspectCols = `id, category_id, name, COALESCE(description, ''), display_order, is_active, created_at, updated_at`

func scanAspect(row pgx.Row) (*models.EvaluationAspect, error) {
	var a models.EvaluationAspect
	err := row.Scan(&a.ID, &a.CategoryID, &a.Name, &a.Description, &a.DisplayOrder, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateCategory inserts a category at the requested display order (0 appends).
func (r *Repository) CreateCategory(ctx context.Context, c *models.EvaluationCategory, targetOrder int) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		pos, err := categoryScope(tx).InsertAt(ctx, targetOrder)
		if err != nil {
			return err
		}
		const q = `INSERT INTO evaluation_categories (name, description, display_order, is_active)
			VALUES ($1, NULLIF($2, ''), $3, $4)
			RETURNING id, created_at, updated_at`
		c.DisplayOrder = pos
		return tx.QueryRow(ctx, q, c.Name, c.Description, pos, c.IsActive).
			Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	})
}

// ListCategories returns categories by display order, optionally only active ones.
func (r *Repository) ListCategories(ctx context.Context, activeOnly bool) ([]models.EvaluationCategory, error) {
	q := `SELECT ` + categoryCols + ` FROM evaluation_categories`
	if activeOnly {
		q += ` WHERE is_active`
	}
	q += ` ORDER BY display_order`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.EvaluationCategory
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *c)
	}
	return list, rows.Err()
}

// GetCategory returns one category.
func (r *Repository) GetCategory(ctx context.Context, id int64) (*models.EvaluationCategory, error) {
	return scanCategory(r.pool.QueryRow(ctx,
		`SELECT `+categoryCols+` FROM evaluation_categories WHERE id = $1`, id))
}

// UpdateCategory changes name, description, and active flag.
func (r *Repository) UpdateCategory(ctx context.Context, id int64, name, description string, isActive bool) (*models.EvaluationCategory, error) {
	const q = `UPDATE evaluation_categories SET name = $2, description = NULLIF($3, ''), is_active = $4, updated_at = NOW()
		WHERE id = $1 RETURNING ` + categoryCols
	return scanCategory(r.pool.QueryRow(ctx, q, id, name, description, isActive))
}

// MoveCategory moves a category to a new display order.
func (r *Repository) MoveCategory(ctx context.Context, id int64, newOrder int) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		return categoryScope(tx).MoveTo(ctx, id, newOrder)
	})
}

// DeleteCategory removes a category with no aspects and closes the order gap.
func (r *Repository) DeleteCategory(ctx context.Context, id int64) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		var aspects int
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM evaluation_aspects WHERE category_id = $1`, id).Scan(&aspects); err != nil {
			return err
		}
		if aspects > 0 {
			return &apperr.HasDependentsError{Dependent: "evaluation aspects", Count: aspects}
		}
		var pos int
		err := tx.QueryRow(ctx,
			`DELETE FROM evaluation_categories WHERE id = $1 RETURNING display_order`, id).Scan(&pos)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.ErrNotFound
		}
		if err != nil {
			return err
		}
		return categoryScope(tx).CloseGap(ctx, pos)
	})
}

// CreateAspect inserts an aspect into a category at the requested order (0 appends).
func (r *Repository) CreateAspect(ctx context.Context, a *models.EvaluationAspect, targetOrder int) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM evaluation_categories WHERE id = $1)`, a.CategoryID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return apperr.ErrInvalidReference
		}
		pos, err := aspectScope(tx, a.CategoryID).InsertAt(ctx, targetOrder)
		if err != nil {
			return err
		}
		const q = `INSERT INTO evaluation_aspects (category_id, name, description, display_order, is_active)
			VALUES ($1, $2, NULLIF($3, ''), $4, $5)
			RETURNING id, created_at, updated_at`
		a.DisplayOrder = pos
		return tx.QueryRow(ctx, q, a.CategoryID, a.Name, a.Description, pos, a.IsActive).
			Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	})
}

// ListAspects returns a category's aspects by display order.
func (r *Repository) ListAspects(ctx context.Context, categoryID int64, activeOnly bool) ([]models.EvaluationAspect, error) {
	q := `SELECT ` + aspectCols + ` FROM evaluation_aspects WHERE category_id = $1`
	if activeOnly {
		q += ` AND is_active`
	}
	q += ` ORDER BY display_order`
	rows, err := r.pool.Query(ctx, q, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.EvaluationAspect
	for rows.Next() {
		a, err := scanAspect(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}

// GetAspect returns one aspect.
func (r *Repository) GetAspect(ctx context.Context, id int64) (*models.EvaluationAspect, error) {
	return scanAspect(r.pool.QueryRow(ctx,
		`SELECT `+aspectCols+` FROM evaluation_aspects WHERE id = $1`, id))
}

// UpdateAspect changes name, description, and active flag.
func (r *Repository) UpdateAspect(ctx context.Context, id int64, name, description string, isActive bool) (*models.EvaluationAspect, error) {
	const q = `UPDATE evaluation_aspects SET name = $2, description = NULLIF($3, ''), is_active = $4, updated_at = NOW()
		WHERE id = $1 RETURNING ` + aspectCols
	return scanAspect(r.pool.QueryRow(ctx, q, id, name, description, isActive))
}

// MoveAspect moves an aspect within its category.
func (r *Repository) MoveAspect(ctx context.Context, id int64, newOrder int) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		var categoryID int64
		err := tx.QueryRow(ctx,
			`SELECT category_id FROM evaluation_aspects WHERE id = $1`, id).Scan(&categoryID)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.ErrNotFound
		}
		if err != nil {
			return err
		}
		return aspectScope(tx, categoryID).MoveTo(ctx, id, newOrder)
	})
}

// DeleteAspect removes an ungraded aspect and closes the order gap in its
// category. Aspects referenced by evaluation items are protected.
func (r *Repository) DeleteAspect(ctx context.Context, id int64) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		var items int
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM teacher_evaluation_items WHERE aspect_id = $1`, id).Scan(&items); err != nil {
			return err
		}
		if items > 0 {
			return &apperr.HasDependentsError{Dependent: "evaluation items", Count: items}
		}
		var categoryID int64
		var pos int
		err := tx.QueryRow(ctx,
			`DELETE FROM evaluation_aspects WHERE id = $1 RETURNING category_id, display_order`, id).
			Scan(&categoryID, &pos)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.ErrNotFound
		}
		if err != nil {
			return err
		}
		return aspectScope(tx, categoryID).CloseGap(ctx, pos)
	})
}

const evalCols = `id, teacher_id, evaluator_id, period_id, total_score, average_score,
	final_grade, COALESCE(final_notes, ''), created_at, updated_at`

func scanEvaluation(row pgx.Row) (*models.TeacherEvaluation, error) {
	var e models.TeacherEvaluation
	var grade *string
	err := row.Scan(&e.ID, &e.TeacherID, &e.EvaluatorID, &e.PeriodID, &e.TotalScore, &e.AverageScore,
		&grade, &e.FinalNotes, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if grade != nil {
		g := models.Grade(*grade)
		e.FinalGrade = &g
	}
	return &e, nil
}

// CreateEvaluation starts an evaluation for one teacher in one period.
func (r *Repository) CreateEvaluation(ctx context.Context, e *models.TeacherEvaluation) error {
	const q = `INSERT INTO teacher_evaluations (teacher_id, evaluator_id, period_id, final_notes)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, e.TeacherID, e.EvaluatorID, e.PeriodID, e.FinalNotes).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return apperr.Conflict("teacher already evaluated by this evaluator in this period")
		case "23503":
			return apperr.ErrInvalidReference
		}
	}
	return err
}

// GetEvaluation returns an evaluation with its items.
func (r *Repository) GetEvaluation(ctx context.Context, id int64) (*models.TeacherEvaluation, error) {
	e, err := scanEvaluation(r.pool.QueryRow(ctx,
		`SELECT `+evalCols+` FROM teacher_evaluations WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	const itemsQ = `SELECT id, evaluation_id, aspect_id, grade, COALESCE(notes, ''), created_at, updated_at
		FROM teacher_evaluation_items WHERE evaluation_id = $1 ORDER BY id`
	rows, err := r.pool.Query(ctx, itemsQ, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it models.TeacherEvaluationItem
		if err := rows.Scan(&it.ID, &it.EvaluationID, &it.AspectID, &it.Grade, &it.Notes,
			&it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		e.Items = append(e.Items, it)
	}
	return e, rows.Err()
}

// EvalFilter narrows ListEvaluations results.
type EvalFilter struct {
	TeacherID   *int64
	EvaluatorID *int64
	PeriodID    *int64
	FinalGrade  string
}

// ListEvaluations returns filtered evaluations with the total count.
func (r *Repository) ListEvaluations(ctx context.Context, f EvalFilter, offset, limit int) ([]models.TeacherEvaluation, int, error) {
	cond := ` WHERE TRUE`
	var args []interface{}
	add := func(clause string, v interface{}) {
		args = append(args, v)
		cond += ` AND ` + clause + `$` + strconv.Itoa(len(args))
	}
	if f.TeacherID != nil {
		add(`teacher_id = `, *f.TeacherID)
	}
	if f.EvaluatorID != nil {
		add(`evaluator_id = `, *f.EvaluatorID)
	}
	if f.PeriodID != nil {
		add(`period_id = `, *f.PeriodID)
	}
	if f.FinalGrade != "" {
		add(`final_grade = `, f.FinalGrade)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM teacher_evaluations`+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + evalCols + ` FROM teacher_evaluations` + cond +
		` ORDER BY updated_at DESC OFFSET $` + strconv.Itoa(len(args)+1) + ` LIMIT $` + strconv.Itoa(len(args)+2)
	rows, err := r.pool.Query(ctx, q, append(args, offset, limit)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []models.TeacherEvaluation
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *e)
	}
	return list, total, rows.Err()
}

// UpsertItem writes one aspect's grade and recomputes the evaluation
// aggregates in the same transaction.
func (r *Repository) UpsertItem(ctx context.Context, evaluationID, aspectID int64, grade models.Grade, notes string) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		const q = `INSERT INTO teacher_evaluation_items (evaluation_id, aspect_id, grade, notes)
			VALUES ($1, $2, $3, NULLIF($4, ''))
			ON CONFLICT (evaluation_id, aspect_id)
			DO UPDATE SET grade = EXCLUDED.grade, notes = EXCLUDED.notes, updated_at = NOW()`
		_, err := tx.Exec(ctx, q, evaluationID, aspectID, grade, notes)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return apperr.ErrInvalidReference
		}
		if err != nil {
			return err
		}
		return r.recompute(ctx, tx, evaluationID)
	})
}

// DeleteItem removes one graded aspect and recomputes the aggregates.
func (r *Repository) DeleteItem(ctx context.Context, evaluationID, itemID int64) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`DELETE FROM teacher_evaluation_items WHERE id = $1 AND evaluation_id = $2`, itemID, evaluationID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return apperr.ErrNotFound
		}
		return r.recompute(ctx, tx, evaluationID)
	})
}

func (r *Repository) recompute(ctx context.Context, tx pgx.Tx, evaluationID int64) error {
	rows, err := tx.Query(ctx,
		`SELECT grade FROM teacher_evaluation_items WHERE evaluation_id = $1`, evaluationID)
	if err != nil {
		return err
	}
	defer rows.Close()
	var grades []models.Grade
	for rows.Next() {
		var g models.Grade
		if err := rows.Scan(&g); err != nil {
			return err
		}
		grades = append(grades, g)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	agg := ComputeAggregates(grades)
	var grade *string
	if agg.FinalGrade != nil {
		s := string(*agg.FinalGrade)
		grade = &s
	}
	const q = `UPDATE teacher_evaluations
		SET total_score = $2, average_score = $3, final_grade = $4, updated_at = NOW()
		WHERE id = $1`
	tag, err := tx.Exec(ctx, q, evaluationID, agg.TotalScore, agg.AverageScore, grade)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// UpdateNotes changes the evaluation's final notes.
func (r *Repository) UpdateNotes(ctx context.Context, id int64, notes string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE teacher_evaluations SET final_notes = NULLIF($2, ''), updated_at = NOW() WHERE id = $1`, id, notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// DeleteEvaluation removes an evaluation and its items (cascade).
func (r *Repository) DeleteEvaluation(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM teacher_evaluations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// ExportRow is one line of the period report export.
type ExportRow struct {
	TeacherName  string
	Email        string
	Organization string
	TotalScore   int
	AverageScore float64
	FinalGrade   string
}

// ExportRows returns the evaluation report rows for one period.
func (r *Repository) ExportRows(ctx context.Context, periodID int64) ([]ExportRow, error) {
	const q = `SELECT COALESCE(u.profile->>'name', u.username), u.email, COALESCE(o.name, ''),
			e.total_score, e.average_score, COALESCE(e.final_grade, '')
		FROM teacher_evaluations e
		JOIN users u ON u.id = e.teacher_id
		LEFT JOIN organizations o ON o.id = u.organization_id
		WHERE e.period_id = $1
		ORDER BY u.username`
	rows, err := r.pool.Query(ctx, q, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ExportRow
	for rows.Next() {
		var row ExportRow
		if err := rows.Scan(&row.TeacherName, &row.Email, &row.Organization,
			&row.TotalScore, &row.AverageScore, &row.FinalGrade); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
