package ordering

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sekolah-admin/backend/pkg/apperr"
)

// Rows describes the ordered row set one TxStore operates on. Table and
// column names come from compile-time constants in the feature repositories,
// never from user input.
type Rows struct {
	Table    string
	PosCol   string
	ScopeCol string // empty for a global scope
	ScopeVal int64
}

// TxStore is the Postgres Store implementation. It runs inside a caller-owned
// pgx.Tx; LockScope takes FOR UPDATE row locks that the transaction releases
// on commit or rollback.
type TxStore struct {
	tx   pgx.Tx
	rows Rows
}

// NewTxStore creates a store over one scope inside tx.
func NewTxStore(tx pgx.Tx, rows Rows) *TxStore {
	return &TxStore{tx: tx, rows: rows}
}

func (s *TxStore) scopeClause(argOffset int) (string, []interface{}) {
	if s.rows.ScopeCol == "" {
		return "TRUE", nil
	}
	return fmt.Sprintf("%s = $%d", s.rows.ScopeCol, argOffset), []interface{}{s.rows.ScopeVal}
}

// LockScope locks every sibling row FOR UPDATE. The lock lives until the
// enclosing transaction ends, so the release func is a no-op.
func (s *TxStore) LockScope(ctx context.Context) (func(), error) {
	clause, args := s.scopeClause(1)
	q := fmt.Sprintf(`SELECT id FROM %s WHERE %s FOR UPDATE`, s.rows.Table, clause)
	rows, err := s.tx.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("lock scope: %w", err)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lock scope: %w", err)
	}
	return func() {}, nil
}

// Count returns the number of rows in the scope.
func (s *TxStore) Count(ctx context.Context) (int, error) {
	clause, args := s.scopeClause(1)
	q := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, s.rows.Table, clause)
	var n int
	if err := s.tx.QueryRow(ctx, q, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// GetPosition returns one row's position.
func (s *TxStore) GetPosition(ctx context.Context, id int64) (int, error) {
	clause, args := s.scopeClause(2)
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 AND %s`, s.rows.PosCol, s.rows.Table, clause)
	var pos int
	err := s.tx.QueryRow(ctx, q, append([]interface{}{id}, args...)...).Scan(&pos)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, apperr.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return pos, nil
}

// ListScope returns the scope's rows ascending by position.
func (s *TxStore) ListScope(ctx context.Context) ([]Entry, error) {
	clause, args := s.scopeClause(1)
	q := fmt.Sprintf(`SELECT id, %s FROM %s WHERE %s ORDER BY %s ASC`,
		s.rows.PosCol, s.rows.Table, clause, s.rows.PosCol)
	rows, err := s.tx.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Position); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// Shift adds delta to every position in [from, to] (to = 0 means unbounded)
// as a single bulk UPDATE. The unique index on the position column is
// deferrable, so the transient duplicates inside the statement are fine.
func (s *TxStore) Shift(ctx context.Context, from, to, delta int) error {
	args := []interface{}{delta, from}
	cond := fmt.Sprintf("%s >= $2", s.rows.PosCol)
	if to > 0 {
		args = append(args, to)
		cond += fmt.Sprintf(" AND %s <= $%d", s.rows.PosCol, len(args))
	}
	if s.rows.ScopeCol != "" {
		args = append(args, s.rows.ScopeVal)
		cond += fmt.Sprintf(" AND %s = $%d", s.rows.ScopeCol, len(args))
	}
	q := fmt.Sprintf(`UPDATE %s SET %s = %s + $1 WHERE %s`,
		s.rows.Table, s.rows.PosCol, s.rows.PosCol, cond)
	_, err := s.tx.Exec(ctx, q, args...)
	return err
}

// WritePosition overwrites one row's position.
func (s *TxStore) WritePosition(ctx context.Context, id int64, pos int) error {
	q := fmt.Sprintf(`UPDATE %s SET %s = $1 WHERE id = $2`, s.rows.Table, s.rows.PosCol)
	tag, err := s.tx.Exec(ctx, q, pos, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
