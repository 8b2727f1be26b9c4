package ordering

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sekolah-admin/backend/pkg/apperr"
)

// memStore is an in-memory Store. scopeLock serializes whole operations when
// locking is enabled; mu only protects the map. readDelay is injected after
// position reads and afterShift after bulk shifts, both to force the
// read-compute-write interleaving the scope lock exists to prevent.
type memStore struct {
	mu         sync.Mutex
	scopeLock  sync.Mutex
	positions  map[int64]int
	locking    bool
	readDelay  time.Duration
	afterShift func()
}

func newMemStore(locking bool) *memStore {
	return &memStore{positions: map[int64]int{}, locking: locking}
}

func (s *memStore) LockScope(ctx context.Context) (func(), error) {
	if !s.locking {
		return func() {}, nil
	}
	s.scopeLock.Lock()
	return s.scopeLock.Unlock, nil
}

func (s *memStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	n := len(s.positions)
	s.mu.Unlock()
	return n, nil
}

func (s *memStore) GetPosition(ctx context.Context, id int64) (int, error) {
	s.mu.Lock()
	pos, ok := s.positions[id]
	s.mu.Unlock()
	if !ok {
		return 0, apperr.ErrNotFound
	}
	if s.readDelay > 0 {
		time.Sleep(s.readDelay)
	}
	return pos, nil
}

func (s *memStore) ListScope(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]Entry, 0, len(s.positions))
	for id, pos := range s.positions {
		list = append(list, Entry{ID: id, Position: pos})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Position < list[j].Position })
	return list, nil
}

func (s *memStore) Shift(ctx context.Context, from, to, delta int) error {
	s.mu.Lock()
	for id, pos := range s.positions {
		if pos >= from && (to <= 0 || pos <= to) {
			s.positions[id] = pos + delta
		}
	}
	s.mu.Unlock()
	if s.afterShift != nil {
		s.afterShift()
	}
	return nil
}

func (s *memStore) WritePosition(ctx context.Context, id int64, pos int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.positions[id]; !ok {
		return apperr.ErrNotFound
	}
	s.positions[id] = pos
	return nil
}

// insert runs InsertAt and records the new row, like a repository would.
func (s *memStore) insert(t *testing.T, eng *Engine, id int64, target int) int {
	t.Helper()
	pos, err := eng.InsertAt(context.Background(), target)
	require.NoError(t, err)
	s.mu.Lock()
	s.positions[id] = pos
	s.mu.Unlock()
	return pos
}

// remove deletes the row and closes the gap, like a repository would.
func (s *memStore) remove(t *testing.T, eng *Engine, id int64) {
	t.Helper()
	s.mu.Lock()
	pos := s.positions[id]
	delete(s.positions, id)
	s.mu.Unlock()
	require.NoError(t, eng.CloseGap(context.Background(), pos))
}

func requireDense(t *testing.T, s Store) {
	t.Helper()
	ok, err := CheckDense(context.Background(), s)
	require.NoError(t, err)
	require.True(t, ok, "positions must be a gapless 1..N sequence")
}

func TestInsertAppend(t *testing.T) {
	store := newMemStore(true)
	eng := NewEngine(store)
	for i := int64(1); i <= 3; i++ {
		store.insert(t, eng, i, 0)
	}

	pos := store.insert(t, eng, 4, 0)
	assert.Equal(t, 4, pos)
	// the first three stay put
	for id, want := range map[int64]int{1: 1, 2: 2, 3: 3} {
		got, err := store.GetPosition(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	requireDense(t, store)
}

func TestInsertAtShiftsSiblings(t *testing.T) {
	store := newMemStore(true)
	eng := NewEngine(store)
	for i := int64(1); i <= 3; i++ {
		store.insert(t, eng, i, 0)
	}

	pos := store.insert(t, eng, 9, 2)
	assert.Equal(t, 2, pos)
	got, _ := store.ListScope(context.Background())
	ids := make([]int64, len(got))
	for i, e := range got {
		ids[i] = e.ID
	}
	assert.Equal(t, []int64{1, 9, 2, 3}, ids)
	requireDense(t, store)
}

func TestInsertClampsTarget(t *testing.T) {
	store := newMemStore(true)
	eng := NewEngine(store)
	store.insert(t, eng, 1, 0)

	assert.Equal(t, 2, store.insert(t, eng, 2, 99), "past-the-end target appends")
	assert.Equal(t, 3, store.insert(t, eng, 3, -5), "negative target appends")
	requireDense(t, store)
}

func TestMoveToEarlier(t *testing.T) {
	// scope [A,B,C,D]; move C to 1 yields [C,A,B,D]
	store := newMemStore(true)
	eng := NewEngine(store)
	a, b, c, d := int64(1), int64(2), int64(3), int64(4)
	for _, id := range []int64{a, b, c, d} {
		store.insert(t, eng, id, 0)
	}

	require.NoError(t, eng.MoveTo(context.Background(), c, 1))
	want := map[int64]int{c: 1, a: 2, b: 3, d: 4}
	for id, pos := range want {
		got, err := store.GetPosition(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, pos, got, "id %d", id)
	}
	requireDense(t, store)
}

func TestMoveToLater(t *testing.T) {
	store := newMemStore(true)
	eng := NewEngine(store)
	for i := int64(1); i <= 4; i++ {
		store.insert(t, eng, i, 0)
	}

	require.NoError(t, eng.MoveTo(context.Background(), 1, 3))
	got, _ := store.ListScope(context.Background())
	ids := make([]int64, len(got))
	for i, e := range got {
		ids[i] = e.ID
	}
	assert.Equal(t, []int64{2, 3, 1, 4}, ids)
	requireDense(t, store)
}

func TestMoveToSamePositionIsNoop(t *testing.T) {
	store := newMemStore(true)
	eng := NewEngine(store)
	for i := int64(1); i <= 3; i++ {
		store.insert(t, eng, i, 0)
	}

	require.NoError(t, eng.MoveTo(context.Background(), 2, 2))
	got, _ := store.ListScope(context.Background())
	ids := make([]int64, len(got))
	for i, e := range got {
		ids[i] = e.ID
	}
	assert.Equal(t, []int64{1, 2, 3}, ids)
}

func TestMoveToClampsOutOfRange(t *testing.T) {
	store := newMemStore(true)
	eng := NewEngine(store)
	for i := int64(1); i <= 3; i++ {
		store.insert(t, eng, i, 0)
	}

	require.NoError(t, eng.MoveTo(context.Background(), 1, 99))
	pos, err := store.GetPosition(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, pos)

	require.NoError(t, eng.MoveTo(context.Background(), 1, -7))
	pos, err = store.GetPosition(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, pos)
	requireDense(t, store)
}

func TestMoveUnknownID(t *testing.T) {
	store := newMemStore(true)
	eng := NewEngine(store)
	store.insert(t, eng, 1, 0)

	err := eng.MoveTo(context.Background(), 42, 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCloseGap(t *testing.T) {
	store := newMemStore(true)
	eng := NewEngine(store)
	for i := int64(1); i <= 4; i++ {
		store.insert(t, eng, i, 0)
	}

	store.remove(t, eng, 2)
	got, _ := store.ListScope(context.Background())
	ids := make([]int64, len(got))
	for i, e := range got {
		ids[i] = e.ID
	}
	assert.Equal(t, []int64{1, 3, 4}, ids)
	requireDense(t, store)
}

// A random 50-operation sequence: the density invariant must hold after
// every single step.
func TestDensityUnderRandomOperations(t *testing.T) {
	store := newMemStore(true)
	eng := NewEngine(store)
	rng := rand.New(rand.NewSource(1))

	var ids []int64
	nextID := int64(1)
	for step := 0; step < 50; step++ {
		switch op := rng.Intn(3); {
		case op == 0 || len(ids) == 0: // insert
			target := rng.Intn(len(ids)+3) - 1 // may be 0 (append) or past the end
			store.insert(t, eng, nextID, target)
			ids = append(ids, nextID)
			nextID++
		case op == 1: // move
			id := ids[rng.Intn(len(ids))]
			newPos := rng.Intn(len(ids)+2) - 1 // may be out of range, engine clamps
			require.NoError(t, eng.MoveTo(context.Background(), id, newPos))
		default: // delete
			i := rng.Intn(len(ids))
			store.remove(t, eng, ids[i])
			ids = append(ids[:i], ids[i+1:]...)
		}
		requireDense(t, store)
		n, err := store.Count(context.Background())
		require.NoError(t, err)
		require.Equal(t, len(ids), n)
	}
}

// TestConcurrentMovesRaceWithoutLock interleaves two MoveTo calls on the same
// scope with a rendezvous after each one's shift, so both shift before either
// assigns its final position. Without the scope lock, both rows land on
// position 1.
func TestConcurrentMovesRaceWithoutLock(t *testing.T) {
	store := newMemStore(false)
	eng := NewEngine(store)
	for i := int64(1); i <= 4; i++ {
		store.insert(t, eng, i, 0)
	}

	var rendezvous sync.WaitGroup
	rendezvous.Add(2)
	store.afterShift = func() {
		rendezvous.Done()
		rendezvous.Wait()
	}

	var wg sync.WaitGroup
	for _, id := range []int64{4, 3} {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_ = eng.MoveTo(context.Background(), id, 1)
		}(id)
	}
	wg.Wait()

	ok, err := CheckDense(context.Background(), store)
	require.NoError(t, err)
	assert.False(t, ok, "unlocked concurrent reorders lose updates and break density")
}

// TestConcurrentMovesSerializeWithLock runs the same pair of moves with the
// scope lock and wide read delays; the lock serializes them and density holds.
func TestConcurrentMovesSerializeWithLock(t *testing.T) {
	store := newMemStore(true)
	eng := NewEngine(store)
	for i := int64(1); i <= 4; i++ {
		store.insert(t, eng, i, 0)
	}
	store.readDelay = 20 * time.Millisecond

	var wg sync.WaitGroup
	for _, id := range []int64{4, 3} {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			assert.NoError(t, eng.MoveTo(context.Background(), id, 1))
		}(id)
	}
	wg.Wait()
	requireDense(t, store)
}
