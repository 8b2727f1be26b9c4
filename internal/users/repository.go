package users

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

const userCols = `u.id, u.email, u.username, u.password, u.profile, u.organization_id,
	u.status, COALESCE(r.role_name,''), u.last_login_at, u.created_at, u.updated_at`

const userFrom = ` FROM users u LEFT JOIN user_roles r ON r.user_id = u.id WHERE u.deleted_at IS NULL`

// Repository handles user and role persistence. Soft-deleted users are
// invisible to every query here.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a user repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var role string
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.Password, &u.Profile, &u.OrganizationID,
		&u.Status, &role, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	return &u, nil
}

// Create inserts a user and their role assignment in one transaction.
func (r *Repository) Create(ctx context.Context, u *models.User) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const q = `INSERT INTO users (email, username, password, profile, organization_id, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	err = tx.QueryRow(ctx, q, u.Email, u.Username, u.Password, u.Profile, u.OrganizationID, u.Status).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return apperr.Conflict("email or username already registered")
		case "23503":
			return apperr.ErrInvalidReference
		}
	}
	if err != nil {
		return err
	}

	const roleQ = `INSERT INTO user_roles (user_id, role_name, organization_id) VALUES ($1, $2, $3)`
	if _, err := tx.Exec(ctx, roleQ, u.ID, string(u.Role), u.OrganizationID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userCols+userFrom+` AND u.id = $1`, id))
}

// GetByIdentifier returns a user by email or username (login accepts both).
func (r *Repository) GetByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	const q = `SELECT ` + userCols + userFrom + ` AND (u.email = $1 OR u.username = $1)`
	return scanUser(r.pool.QueryRow(ctx, q, identifier))
}

// UsernameExists reports whether a username is taken, including by
// soft-deleted users (usernames are never reissued).
func (r *Repository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	return exists, err
}

// Filter narrows List results.
type Filter struct {
	Search         string // matches email, username, or profile name
	Role           string
	Status         string
	OrganizationID *int64
}

// List returns filtered users with the total count.
func (r *Repository) List(ctx context.Context, f Filter, offset, limit int) ([]models.UserPublic, int, error) {
	cond := ""
	var args []interface{}
	add := func(clause string, v interface{}) {
		args = append(args, v)
		cond += ` AND ` + clause + `$` + strconv.Itoa(len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := strconv.Itoa(len(args))
		cond += ` AND (u.email ILIKE $` + n + ` OR u.username ILIKE $` + n + ` OR u.profile->>'name' ILIKE $` + n + `)`
	}
	if f.Role != "" {
		add(`r.role_name = `, f.Role)
	}
	if f.Status != "" {
		add(`u.status = `, f.Status)
	}
	if f.OrganizationID != nil {
		add(`u.organization_id = `, *f.OrganizationID)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+userFrom+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + userCols + userFrom + cond +
		` ORDER BY u.username OFFSET $` + strconv.Itoa(len(args)+1) + ` LIMIT $` + strconv.Itoa(len(args)+2)
	rows, err := r.pool.Query(ctx, q, append(args, offset, limit)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []models.UserPublic
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, u.ToPublic())
	}
	return list, total, rows.Err()
}

// Update changes profile, email, organization, and status.
func (r *Repository) Update(ctx context.Context, id int64, email string, profile map[string]interface{}, orgID *int64, status models.UserStatus) (*models.User, error) {
	const q = `UPDATE users SET email = $2, profile = $3, organization_id = $4, status = $5, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL RETURNING id`
	var updated int64
	err := r.pool.QueryRow(ctx, q, id, email, profile, orgID, status).Scan(&updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return nil, apperr.Conflict("email already registered")
		case "23503":
			return nil, apperr.ErrInvalidReference
		}
	}
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// SetRole replaces the user's single role assignment.
func (r *Repository) SetRole(ctx context.Context, id int64, role models.Role) (*models.User, error) {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	const q = `UPDATE user_roles SET role_name = $2, updated_at = NOW() WHERE user_id = $1`
	if _, err := r.pool.Exec(ctx, q, id, string(role)); err != nil {
		return nil, err
	}
	u.Role = role
	return u, nil
}

// UpdatePassword stores a new password hash.
func (r *Repository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// RecordLogin stamps last_login_at.
func (r *Repository) RecordLogin(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, id)
	return err
}

// SoftDelete hides the user from all queries while preserving the row for the
// audit trail (their evaluations and submissions keep pointing at it).
func (r *Repository) SoftDelete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// CountByRole returns user counts grouped by role, for the admin dashboard.
func (r *Repository) CountByRole(ctx context.Context) (map[string]int, error) {
	const q = `SELECT r.role_name, COUNT(*)` + userFrom + ` GROUP BY r.role_name`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := map[string]int{}
	for rows.Next() {
		var role string
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			return nil, err
		}
		counts[role] = n
	}
	return counts, rows.Err()
}
