package messages

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sekolah-admin/backend/internal/models"
	"github.com/sekolah-admin/backend/pkg/apperr"
)

const msgCols = `id, email, name, title, message, status, COALESCE(ip_address, ''),
	COALESCE(user_agent, ''), read_at, created_at, updated_at`

// Repository handles contact message persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a messages repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanMessage(row pgx.Row) (*models.Message, error) {
	var m models.Message
	err := row.Scan(&m.ID, &m.Email, &m.Name, &m.Title, &m.Message, &m.Status,
		&m.IPAddress, &m.UserAgent, &m.ReadAt, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts an unread message.
func (r *Repository) Create(ctx context.Context, m *models.Message) error {
	const q = `INSERT INTO messages (email, name, title, message, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''))
		RETURNING id, status, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, m.Email, m.Name, m.Title, m.Message, m.IPAddress, m.UserAgent).
		Scan(&m.ID, &m.Status, &m.CreatedAt, &m.UpdatedAt)
}

// GetByID returns one message.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Message, error) {
	return scanMessage(r.pool.QueryRow(ctx, `SELECT `+msgCols+` FROM messages WHERE id = $1`, id))
}

// List returns messages newest first, optionally filtered by status.
func (r *Repository) List(ctx context.Context, status string, offset, limit int) ([]models.Message, int, error) {
	cond := ` WHERE TRUE`
	var args []interface{}
	if status != "" {
		args = append(args, status)
		cond += ` AND status = $1`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages`+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + msgCols + ` FROM messages` + cond +
		` ORDER BY created_at DESC OFFSET $` + strconv.Itoa(len(args)+1) + ` LIMIT $` + strconv.Itoa(len(args)+2)
	rows, err := r.pool.Query(ctx, q, append(args, offset, limit)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *m)
	}
	return list, total, rows.Err()
}

// SetStatus moves a message between UNREAD, READ, and ARCHIVED. read_at is
// stamped on the first transition away from UNREAD.
func (r *Repository) SetStatus(ctx context.Context, id int64, status models.MessageStatus) (*models.Message, error) {
	const q = `UPDATE messages
		SET status = $2, read_at = COALESCE(read_at, CASE WHEN $2 <> 'UNREAD' THEN NOW() END), updated_at = NOW()
		WHERE id = $1 RETURNING ` + msgCols
	return scanMessage(r.pool.QueryRow(ctx, q, id, status))
}

// CountUnread returns the unread message count for the dashboard.
func (r *Repository) CountUnread(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages WHERE status = 'UNREAD'`).Scan(&n)
	return n, err
}

// Delete removes a message.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
