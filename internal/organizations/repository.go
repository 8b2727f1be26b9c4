package organizations

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sekolah-admin/backend/internal/models"
	"github.com/sekolah-admin/backend/pkg/apperr"
)

// Repository handles school organization persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an organizations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanOrg(row pgx.Row) (*models.Organization, error) {
	var o models.Organization
	err := row.Scan(&o.ID, &o.Name, &o.Description, &o.HeadID, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Create inserts an organization.
func (r *Repository) Create(ctx context.Context, o *models.Organization) error {
	const q = `INSERT INTO organizations (name, description, head_id)
		VALUES ($1, NULLIF($2, ''), $3)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, o.Name, o.Description, o.HeadID).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return apperr.Conflict("organization %q already exists", o.Name)
	}
	return err
}

// GetByID returns an organization by ID.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Organization, error) {
	const q = `SELECT id, name, COALESCE(description, ''), head_id, created_at, updated_at
		FROM organizations WHERE id = $1`
	return scanOrg(r.pool.QueryRow(ctx, q, id))
}

// List returns all organizations ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.Organization, error) {
	const q = `SELECT id, name, COALESCE(description, ''), head_id, created_at, updated_at
		FROM organizations ORDER BY name`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Organization
	for rows.Next() {
		o, err := scanOrg(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *o)
	}
	return list, rows.Err()
}

// Update changes name, description, and head.
func (r *Repository) Update(ctx context.Context, o *models.Organization) error {
	const q = `UPDATE organizations SET name = $2, description = NULLIF($3, ''), head_id = $4, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, o.ID, o.Name, o.Description, o.HeadID).Scan(&o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return apperr.Conflict("organization %q already exists", o.Name)
	}
	return err
}

// Delete removes an organization unless users still belong to it.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	var users int
	const countQ = `SELECT COUNT(*) FROM users WHERE organization_id = $1 AND deleted_at IS NULL`
	if err := r.pool.QueryRow(ctx, countQ, id).Scan(&users); err != nil {
		return err
	}
	if users > 0 {
		return &apperr.HasDependentsError{Dependent: "users", Count: users}
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
