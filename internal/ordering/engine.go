// Package ordering maintains dense display-order sequences: within one scope
// (all board groups, the members of one group, the aspects of one category)
// the position values of the sibling rows always form a gapless 1..N sequence
// with no duplicates.
//
// The engine never commits; every operation runs inside a transaction owned by
// the calling repository, and each operation starts by locking the scope so
// concurrent reorders of the same sibling set serialize instead of racing.
package ordering

import (
	"context"
)

// Entry is one row of an ordered scope.
type Entry struct {
	ID       int64
	Position int
}

// Store is the persistence surface of one ordered scope. Implementations do
// no invariant checking; the Engine owns the sequence invariant.
type Store interface {
	// LockScope acquires a scope-level lock for the duration of the current
	// operation and returns a release func. A transactional implementation may
	// return a no-op release and let the lock expire with the transaction.
	LockScope(ctx context.Context) (release func(), err error)
	// Count returns the number of rows in the scope.
	Count(ctx context.Context) (int, error)
	// GetPosition returns the position of one row, or apperr.ErrNotFound.
	GetPosition(ctx context.Context, id int64) (int, error)
	// ListScope returns the scope's rows ascending by position.
	ListScope(ctx context.Context) ([]Entry, error)
	// Shift adds delta to every position in [from, to]. A to of 0 means
	// unbounded. Single bulk write, no per-row ordering assumptions.
	Shift(ctx context.Context, from, to, delta int) error
	// WritePosition overwrites one row's position unconditionally.
	WritePosition(ctx context.Context, id int64, pos int) error
}

// Engine performs insert/move/delete renumbering against a Store.
type Engine struct {
	store Store
}

// NewEngine creates an engine over one scope's store.
func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// InsertAt makes room at target and returns the position the new row must be
// assigned. A target of 0 (or any value past the end) appends. Targets below 1
// clamp to 1.
func (e *Engine) InsertAt(ctx context.Context, target int) (int, error) {
	release, err := e.store.LockScope(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	count, err := e.store.Count(ctx)
	if err != nil {
		return 0, err
	}
	if target <= 0 || target > count+1 {
		target = count + 1
	}
	if target <= count {
		if err := e.store.Shift(ctx, target, 0, +1); err != nil {
			return 0, err
		}
	}
	return target, nil
}

// MoveTo moves one row to newPos, shifting the rows between its old and new
// positions by one. newPos clamps to [1, N].
func (e *Engine) MoveTo(ctx context.Context, id int64, newPos int) error {
	release, err := e.store.LockScope(ctx)
	if err != nil {
		return err
	}
	defer release()

	count, err := e.store.Count(ctx)
	if err != nil {
		return err
	}
	oldPos, err := e.store.GetPosition(ctx, id)
	if err != nil {
		return err
	}
	if newPos < 1 {
		newPos = 1
	}
	if newPos > count {
		newPos = count
	}
	if newPos == oldPos {
		return nil
	}
	if newPos < oldPos {
		// moving earlier: everything in [newPos, oldPos-1] slides down the list
		if err := e.store.Shift(ctx, newPos, oldPos-1, +1); err != nil {
			return err
		}
	} else {
		// moving later: everything in [oldPos+1, newPos] slides up the list
		if err := e.store.Shift(ctx, oldPos+1, newPos, -1); err != nil {
			return err
		}
	}
	return e.store.WritePosition(ctx, id, newPos)
}

// CloseGap shifts every row past removedPos down by one. Call after deleting
// the row that held removedPos, inside the same transaction.
func (e *Engine) CloseGap(ctx context.Context, removedPos int) error {
	release, err := e.store.LockScope(ctx)
	if err != nil {
		return err
	}
	defer release()

	return e.store.Shift(ctx, removedPos+1, 0, -1)
}

// CheckDense verifies the scope's positions are exactly 1..N.
func CheckDense(ctx context.Context, store Store) (bool, error) {
	entries, err := store.ListScope(ctx)
	if err != nil {
		return false, err
	}
	for i, e := range entries {
		if e.Position != i+1 {
			return false, nil
		}
	}
	return true, nil
}
