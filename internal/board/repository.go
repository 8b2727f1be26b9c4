package board

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sekolah-admin/backend/internal/models"
	"github.com/sekolah-admin/backend/internal/ordering"
	"github.com/sekolah-admin/backend/pkg/apperr"
)

func groupScope(tx pgx.Tx) *ordering.Engine {
	return ordering.NewEngine(ordering.NewTxStore(tx, ordering.Rows{
		Table:  "board_groups",
		PosCol: "display_order",
	}))
}

func memberScope(tx pgx.Tx, groupID int64) *ordering.Engine {
	return ordering.NewEngine(ordering.NewTxStore(tx, ordering.Rows{
		Table:    "board_members",
		PosCol:   "member_order",
		ScopeCol: "group_id",
		ScopeVal: groupID,
	}))
}

// Repository handles board group and member persistence. Every write that
// touches display order runs inside a transaction with the scope locked.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a board repository.
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

const groupCols = `id, title, COALESCE(description, ''), display_order, created_at, updated_at`

func scanGroup(row pgx.Row) (*models.BoardGroup, error) {
	var g models.BoardGroup
	err := row.Scan(&g.ID, &g.Title, &g.Description, &g.DisplayOrder, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

const memberCols = `id, group_id, name, position, COALESCE(img_url, ''), COALESCE(description, ''),
	member_order, created_at, updated_at`

func scanMember(row pgx.Row) (*models.BoardMember, error) {
	var m models.BoardMember
	err := row.Scan(&m.ID, &m.GroupID, &m.Name, &m.Position, &m.ImgURL, &m.Description,
		&m.MemberOrder, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateGroup inserts a group at the requested display order (0 appends).
func (r *Repository) CreateGroup(ctx context.Context, g *models.BoardGroup, targetOrder int) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		pos, err := groupScope(tx).InsertAt(ctx, targetOrder)
		if err != nil {
			return err
		}
		const q = `INSERT INTO board_groups (title, description, display_order)
			VALUES ($1, NULLIF($2, ''), $3)
			RETURNING id, created_at, updated_at`
		g.DisplayOrder = pos
		return tx.QueryRow(ctx, q, g.Title, g.Description, pos).
			Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
	})
}

// GetGroup returns one group with its members.
func (r *Repository) GetGroup(ctx context.Context, id int64) (*models.BoardGroup, error) {
	g, err := scanGroup(r.pool.QueryRow(ctx,
		`SELECT `+groupCols+` FROM board_groups WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	members, err := r.listMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	g.Members = members
	return g, nil
}

// ListGroups returns all groups by display order, members included.
func (r *Repository) ListGroups(ctx context.Context) ([]models.BoardGroup, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+groupCols+` FROM board_groups ORDER BY display_order`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var groups []models.BoardGroup
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range groups {
		members, err := r.listMembers(ctx, groups[i].ID)
		if err != nil {
			return nil, err
		}
		groups[i].Members = members
	}
	return groups, nil
}

func (r *Repository) listMembers(ctx context.Context, groupID int64) ([]models.BoardMember, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+memberCols+` FROM board_members WHERE group_id = $1 ORDER BY member_order`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var members []models.BoardMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// UpdateGroup changes title and description. Display order changes go
// through MoveGroup.
func (r *Repository) UpdateGroup(ctx context.Context, id int64, title, description string) (*models.BoardGroup, error) {
	const q = `UPDATE board_groups SET title = $2, description = NULLIF($3, ''), updated_at = NOW()
		WHERE id = $1 RETURNING ` + groupCols
	return scanGroup(r.pool.QueryRow(ctx, q, id, title, description))
}

// MoveGroup moves a group to a new display order, renumbering siblings.
func (r *Repository) MoveGroup(ctx context.Context, id int64, newOrder int) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		return groupScope(tx).MoveTo(ctx, id, newOrder)
	})
}

// DeleteGroup removes an empty group and closes the display order gap.
// Groups that still have members are protected.
func (r *Repository) DeleteGroup(ctx context.Context, id int64) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		var members int
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM board_members WHERE group_id = $1`, id).Scan(&members); err != nil {
			return err
		}
		if members > 0 {
			return &apperr.HasDependentsError{Dependent: "board members", Count: members}
		}
		var pos int
		err := tx.QueryRow(ctx,
			`DELETE FROM board_groups WHERE id = $1 RETURNING display_order`, id).Scan(&pos)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.ErrNotFound
		}
		if err != nil {
			return err
		}
		return groupScope(tx).CloseGap(ctx, pos)
	})
}

// CreateMember inserts a member into a group at the requested order (0 appends).
func (r *Repository) CreateMember(ctx context.Context, m *models.BoardMember, targetOrder int) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM board_groups WHERE id = $1)`, m.GroupID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return apperr.ErrInvalidReference
		}
		pos, err := memberScope(tx, m.GroupID).InsertAt(ctx, targetOrder)
		if err != nil {
			return err
		}
		const q = `INSERT INTO board_members (group_id, name, position, img_url, description, member_order)
			VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6)
			RETURNING id, created_at, updated_at`
		m.MemberOrder = pos
		return tx.QueryRow(ctx, q, m.GroupID, m.Name, m.Position, m.ImgURL, m.Description, pos).
			Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	})
}

// GetMember returns one member.
func (r *Repository) GetMember(ctx context.Context, id int64) (*models.BoardMember, error) {
	return scanMember(r.pool.QueryRow(ctx,
		`SELECT `+memberCols+` FROM board_members WHERE id = $1`, id))
}

// UpdateMember changes member fields. Order changes go through MoveMember.
func (r *Repository) UpdateMember(ctx context.Context, id int64, name, position, imgURL, description string) (*models.BoardMember, error) {
	const q = `UPDATE board_members SET name = $2, position = $3, img_url = NULLIF($4, ''),
		description = NULLIF($5, ''), updated_at = NOW()
		WHERE id = $1 RETURNING ` + memberCols
	return scanMember(r.pool.QueryRow(ctx, q, id, name, position, imgURL, description))
}

// MoveMember moves a member within its group, or across groups. A cross-group
// move closes the gap in the source group and makes room in the target, both
// inside one transaction so neither sequence is ever observed with a hole.
func (r *Repository) MoveMember(ctx context.Context, id int64, targetGroupID int64, newOrder int) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		var groupID int64
		var pos int
		err := tx.QueryRow(ctx,
			`SELECT group_id, member_order FROM board_members WHERE id = $1`, id).Scan(&groupID, &pos)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.ErrNotFound
		}
		if err != nil {
			return err
		}
		if targetGroupID == 0 || targetGroupID == groupID {
			return memberScope(tx, groupID).MoveTo(ctx, id, newOrder)
		}

		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM board_groups WHERE id = $1)`, targetGroupID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return apperr.ErrInvalidReference
		}
		if err := memberScope(tx, groupID).CloseGap(ctx, pos); err != nil {
			return err
		}
		newPos, err := memberScope(tx, targetGroupID).InsertAt(ctx, newOrder)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`UPDATE board_members SET group_id = $2, member_order = $3, updated_at = NOW() WHERE id = $1`,
			id, targetGroupID, newPos)
		return err
	})
}

// DeleteMember removes a member and closes the order gap in its group.
func (r *Repository) DeleteMember(ctx context.Context, id int64) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		var groupID int64
		var pos int
		err := tx.QueryRow(ctx,
			`DELETE FROM board_members WHERE id = $1 RETURNING group_id, member_order`, id).
			Scan(&groupID, &pos)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.ErrNotFound
		}
		if err != nil {
			return err
		}
		return memberScope(tx, groupID).CloseGap(ctx, pos)
	})
}
