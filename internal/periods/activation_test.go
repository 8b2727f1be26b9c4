package periods

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sekolah-admin/backend/internal/models"
	"github.com/sekolah-admin/backend/pkg/apperr"
)

// memPeriods is an in-memory Store whose SetActive performs the
// check-and-write atomically, like the repository's conditional UPDATE.
type memPeriods struct {
	mu         sync.Mutex
	periods    map[int64]*models.Period
	dependents map[int64][2]int // period id -> {evaluations, submissions}
}

func newMemPeriods() *memPeriods {
	return &memPeriods{periods: map[int64]*models.Period{}, dependents: map[int64][2]int{}}
}

func (s *memPeriods) add(id int64, year, semester string) *models.Period {
	p := &models.Period{ID: id, AcademicYear: year, Semester: semester,
		StartDate: time.Now(), EndDate: time.Now().AddDate(0, 6, 0)}
	s.periods[id] = p
	return p
}

func (s *memPeriods) GetByID(ctx context.Context, id int64) (*models.Period, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.periods[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memPeriods) GetActive(ctx context.Context) (*models.Period, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.periods {
		if p.IsActive {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memPeriods) SetActive(ctx context.Context, id int64, updatedBy *int64) (*models.Period, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.periods[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	for otherID, other := range s.periods {
		if otherID != id && other.IsActive {
			return nil, apperr.ErrRaceLost
		}
	}
	p.IsActive = true
	cp := *p
	return &cp, nil
}

func (s *memPeriods) SetInactive(ctx context.Context, id int64, updatedBy *int64) (*models.Period, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.periods[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	p.IsActive = false
	cp := *p
	return &cp, nil
}

func (s *memPeriods) CountDependents(ctx context.Context, id int64) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.dependents[id]
	return d[0], d[1], nil
}

func TestActivateFirstPeriod(t *testing.T) {
	s := newMemPeriods()
	s.add(1, "2025/2026", "Ganjil")

	p, err := Activate(context.Background(), s, 1, nil)
	require.NoError(t, err)
	assert.True(t, p.IsActive)
}

func TestActivateConflictsWhileAnotherActive(t *testing.T) {
	s := newMemPeriods()
	s.add(1, "2025/2026", "Ganjil")
	s.add(2, "2025/2026", "Genap")
	_, err := Activate(context.Background(), s, 1, nil)
	require.NoError(t, err)

	_, err = Activate(context.Background(), s, 2, nil)
	var conflict *apperr.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Contains(t, conflict.Reason, "2025/2026 - Ganjil")

	// the first period stays active, the second stays inactive
	p1, _ := s.GetByID(context.Background(), 1)
	p2, _ := s.GetByID(context.Background(), 2)
	assert.True(t, p1.IsActive)
	assert.False(t, p2.IsActive)
}

func TestActivateIsIdempotent(t *testing.T) {
	s := newMemPeriods()
	s.add(1, "2025/2026", "Ganjil")
	_, err := Activate(context.Background(), s, 1, nil)
	require.NoError(t, err)

	p, err := Activate(context.Background(), s, 1, nil)
	require.NoError(t, err)
	assert.True(t, p.IsActive)
}

func TestDeactivateThenActivateOther(t *testing.T) {
	s := newMemPeriods()
	s.add(1, "2025/2026", "Ganjil")
	s.add(2, "2025/2026", "Genap")
	_, err := Activate(context.Background(), s, 1, nil)
	require.NoError(t, err)

	p, err := Deactivate(context.Background(), s, 1, nil)
	require.NoError(t, err)
	assert.False(t, p.IsActive)

	// no active period is a valid transient state
	active, err := s.GetActive(context.Background())
	require.NoError(t, err)
	assert.Nil(t, active)

	p, err = Activate(context.Background(), s, 2, nil)
	require.NoError(t, err)
	assert.True(t, p.IsActive)
}

func TestCanActivateReasons(t *testing.T) {
	s := newMemPeriods()
	s.add(1, "2025/2026", "Ganjil")
	s.add(2, "2025/2026", "Genap")

	allowed, reason, err := CanActivate(context.Background(), s, 1)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, "can activate", reason)

	_, err = Activate(context.Background(), s, 1, nil)
	require.NoError(t, err)

	allowed, reason, err = CanActivate(context.Background(), s, 1)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, "period is already active", reason)

	allowed, reason, err = CanActivate(context.Background(), s, 2)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Contains(t, reason, "another period is already active")

	_, _, err = CanActivate(context.Background(), s, 99)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestActivateUnknownPeriod(t *testing.T) {
	s := newMemPeriods()
	_, err := Activate(context.Background(), s, 7, nil)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// TestConcurrentActivationSingleWinner: many goroutines race to activate
// different periods; the atomic SetActive admits exactly one.
func TestConcurrentActivationSingleWinner(t *testing.T) {
	s := newMemPeriods()
	for i := int64(1); i <= 8; i++ {
		s.add(i, "2025/2026", "S"+string(rune('0'+i)))
	}

	var wg sync.WaitGroup
	for i := int64(1); i <= 8; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, _ = Activate(context.Background(), s, id, nil)
		}(i)
	}
	wg.Wait()

	active := 0
	for i := int64(1); i <= 8; i++ {
		p, err := s.GetByID(context.Background(), i)
		require.NoError(t, err)
		if p.IsActive {
			active++
		}
	}
	assert.Equal(t, 1, active, "exactly one activation must win")
}

func TestCanDeleteGuard(t *testing.T) {
	s := newMemPeriods()
	s.add(1, "2025/2026", "Ganjil")
	s.add(2, "2025/2026", "Genap")
	s.dependents[1] = [2]int{3, 0}
	s.dependents[2] = [2]int{0, 2}

	var dep *apperr.HasDependentsError
	err := CanDelete(context.Background(), s, 1)
	require.ErrorAs(t, err, &dep)
	assert.Equal(t, 3, dep.Count)
	assert.Equal(t, "teacher evaluations", dep.Dependent)

	err = CanDelete(context.Background(), s, 2)
	require.ErrorAs(t, err, &dep)
	assert.Equal(t, 2, dep.Count)

	s.add(3, "2026/2027", "Ganjil")
	assert.NoError(t, CanDelete(context.Background(), s, 3))
	assert.ErrorIs(t, CanDelete(context.Background(), s, 99), apperr.ErrNotFound)
}
