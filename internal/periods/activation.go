// Package periods manages academic periods. The activation rules live here,
// separate from the Postgres repository, so the single-active invariant is
// enforced (and tested) against any Store implementation.
package periods

import (
	"context"

	"github.com/sekolah-admin/backend/internal/models"
	"github.com/sekolah-admin/backend/pkg/apperr"
)

// Store is the persistence surface the activation controller needs. The
// Postgres Repository implements it; tests use an in-memory one.
type Store interface {
	// GetByID returns a period or apperr.ErrNotFound.
	GetByID(ctx context.Context, id int64) (*models.Period, error)
	// GetActive returns the single active period, or nil when none is active.
	GetActive(ctx context.Context) (*models.Period, error)
	// SetActive marks the period active, but only while no other period is
	// active: the check and the write must be one atomic step. Returns
	// apperr.ErrRaceLost when a concurrent activation won in between.
	SetActive(ctx context.Context, id int64, updatedBy *int64) (*models.Period, error)
	// SetInactive marks the period inactive unconditionally.
	SetInactive(ctx context.Context, id int64, updatedBy *int64) (*models.Period, error)
	// CountDependents returns the number of evaluations and RPP submissions
	// referencing the period.
	CountDependents(ctx context.Context, id int64) (evaluations, submissions int, err error)
}

// CanActivate reports whether the period may be activated and a human-readable
// reason. Activating an already-active period is allowed (idempotent); a
// different active period blocks activation and is named in the reason.
func CanActivate(ctx context.Context, s Store, id int64) (bool, string, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return false, "", err
	}
	if p.IsActive {
		return true, "period is already active", nil
	}
	active, err := s.GetActive(ctx)
	if err != nil {
		return false, "", err
	}
	if active != nil {
		return false, "another period is already active: " + active.Name(), nil
	}
	return true, "can activate", nil
}

// Activate activates the period. A different active period is a conflict, not
// an auto-swap: the caller must deactivate it first. Re-activating the active
// period succeeds without touching anything else.
func Activate(ctx context.Context, s Store, id int64, updatedBy *int64) (*models.Period, error) {
	allowed, reason, err := CanActivate(ctx, s, id)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperr.Conflict("%s", reason)
	}
	return s.SetActive(ctx, id, updatedBy)
}

// Deactivate deactivates the period. There is no invariant to protect on the
// way down, so this never conflicts.
func Deactivate(ctx context.Context, s Store, id int64, updatedBy *int64) (*models.Period, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.SetInactive(ctx, id, updatedBy)
}

// CanDelete guards period deletion: periods with evaluations or submissions
// are part of the audit trail and must never cascade away.
func CanDelete(ctx context.Context, s Store, id int64) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	evals, subs, err := s.CountDependents(ctx, id)
	if err != nil {
		return err
	}
	if evals > 0 {
		return &apperr.HasDependentsError{Dependent: "teacher evaluations", Count: evals}
	}
	if subs > 0 {
		return &apperr.HasDependentsError{Dependent: "RPP submissions", Count: subs}
	}
	return nil
}
