package timer

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperworkchat/hyperwork/internal/models"
	"github.com/hyperworkchat/hyperwork/internal/scoring"
)

var errUnavailable = errors.New("store unavailable")

type fakeStore struct {
	sessions  map[string]*models.WorkSession
	updates   map[string][]models.SessionUpdate
	points    map[string]int
	createErr error
	updateErr error
	pointsErr error
	// failUpdates is the number of upcoming updates that fail
	failUpdates int
	nextID      int
	mu        sync.Mutex
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: make(map[string]*models.WorkSession),
		updates:  make(map[string][]models.SessionUpdate),
		points:   make(map[string]int),
	}
}

func (f *fakeStore) CreateSession(
	_ context.Context,
	userID string,
	phase models.Phase,
	planned int,
) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return "", f.createErr
	}

	f.nextID++
	id := string(rune('a' + f.nextID - 1))

	f.sessions[id] = &models.WorkSession{
		ID:              id,
		UserID:          userID,
		Phase:           phase,
		PlannedDuration: planned,
	}

	return id, nil
}

func (f *fakeStore) UpdateSession(_ context.Context, id string, upd models.SessionUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updateErr != nil {
		return f.updateErr
	}

	if f.failUpdates > 0 {
		f.failUpdates--
		return errUnavailable
	}

	f.updates[id] = append(f.updates[id], upd)
	upd.Apply(f.sessions[id])

	return nil
}

func (f *fakeStore) IncrementProfilePoints(_ context.Context, userID string, delta int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pointsErr != nil {
		return 0, f.pointsErr
	}

	f.points[userID] += delta

	return f.points[userID], nil
}

func (f *fakeStore) session(id string) models.WorkSession {
	f.mu.Lock()
	defer f.mu.Unlock()

	return *f.sessions[id]
}

var student = models.User{ID: "student-1", Role: models.RoleStudent}

func newTestEngine(t *testing.T, store Store, opts ...Option) *Engine {
	t.Helper()

	opts = append([]Option{WithDurations(10*time.Second, 5*time.Second)}, opts...)

	e, err := New(store, student, opts...)
	require.NoError(t, err)

	return e
}

func tickN(ctx context.Context, e *Engine, n int) (last Transition, changed bool) {
	for range n {
		tr, ok := e.Tick(ctx)
		if ok {
			last, changed = tr, true
		}
	}

	return last, changed
}

func TestNewRequiresUser(t *testing.T) {
	_, err := New(newFakeStore(), models.User{})
	assert.ErrorIs(t, err, errNoUser)
}

func TestDefaultOptions(t *testing.T) {
	e, err := New(newFakeStore(), student)
	require.NoError(t, err)

	want := Options{
		WorkDuration:   1200,
		BreakDuration:  300,
		AutoBreak:      true,
		AutoBreakDelay: 2 * time.Second,
		Policy:         scoring.Default,
	}

	if diff := cmp.Diff(want, e.Options()); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}

	snap := e.Snapshot()
	assert.Equal(t, Idle, snap.State)
	assert.Equal(t, models.PhaseWork, snap.Next)
	assert.Equal(t, 1200, snap.Remaining)
}

func TestCompleteWorkWithoutPause(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	e := newTestEngine(t, store, WithAutoBreak(false, 0))

	tr, err := e.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, Running, tr.To)
	require.Len(t, tr.Writes, 1)
	assert.True(t, tr.Writes[0].OK())

	id := tr.Session.ID

	tr, changed := tickN(ctx, e, 10)
	require.True(t, changed)

	assert.Equal(t, Idle, tr.To)
	assert.Equal(t, 100, tr.Points)
	assert.Empty(t, tr.Failed())

	got := store.session(id)
	assert.True(t, got.IsCompleted)
	assert.False(t, got.WasPaused)
	assert.Equal(t, 100, got.PointsEarned)
	assert.Equal(t, 10, got.ActualDuration)
	assert.False(t, got.EndTime.IsZero())
	assert.Equal(t, 100, store.points[student.ID])

	snap := e.Snapshot()
	assert.Equal(t, Idle, snap.State)
	assert.Equal(t, models.PhaseBreak, snap.Next, "break is next when auto break is off")
}

func TestCompleteWorkWithPause(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	e := newTestEngine(t, store, WithAutoBreak(false, 0))

	tr, err := e.Start(ctx)
	require.NoError(t, err)

	id := tr.Session.ID

	tickN(ctx, e, 3)

	tr, err = e.Pause(ctx)
	require.NoError(t, err)
	require.Len(t, tr.Writes, 1)
	assert.Equal(t, OpPause, tr.Writes[0].Op)

	// paused ticks do not count down
	tickN(ctx, e, 5)
	assert.Equal(t, 7, e.Snapshot().Remaining)

	_, err = e.Resume(ctx)
	require.NoError(t, err)

	tr, changed := tickN(ctx, e, 7)
	require.True(t, changed)

	assert.Equal(t, 50, tr.Points)
	assert.Equal(t, 50, store.session(id).PointsEarned)
	assert.True(t, store.session(id).WasPaused)
	assert.Equal(t, 50, store.points[student.ID])
}

func TestLostPauseWriteIsRepaired(t *testing.T) {
	ctx := context.Background()

	t.Run("completed", func(t *testing.T) {
		store := newFakeStore()
		e := newTestEngine(t, store, WithAutoBreak(false, 0))

		tr, err := e.Start(ctx)
		require.NoError(t, err)

		id := tr.Session.ID

		store.failUpdates = 1

		tr, err = e.Pause(ctx)
		require.NoError(t, err)
		require.Len(t, tr.Failed(), 1)
		assert.False(t, store.session(id).WasPaused)

		_, err = e.Resume(ctx)
		require.NoError(t, err)

		tr, _ = tickN(ctx, e, 10)
		assert.Empty(t, tr.Failed())

		got := store.session(id)
		assert.True(t, got.IsCompleted)
		assert.True(t, got.WasPaused)
		assert.Equal(t, 50, got.PointsEarned)
		assert.Equal(t, scoring.Score(got.Phase, got.WasPaused, got.IsCompleted), got.PointsEarned)
	})

	t.Run("stopped", func(t *testing.T) {
		store := newFakeStore()
		e := newTestEngine(t, store)

		tr, err := e.Start(ctx)
		require.NoError(t, err)

		id := tr.Session.ID

		store.failUpdates = 1

		_, err = e.Pause(ctx)
		require.NoError(t, err)

		_, err = e.Stop(ctx)
		require.NoError(t, err)

		assert.True(t, store.session(id).WasPaused)
	})

	t.Run("create retried after pause", func(t *testing.T) {
		store := newFakeStore()
		store.createErr = errUnavailable

		e := newTestEngine(t, store, WithAutoBreak(false, 0))

		tr, err := e.Start(ctx)
		require.NoError(t, err)

		_, err = e.Pause(ctx)
		require.NoError(t, err)

		store.createErr = nil

		res := tr.Writes[0].Retry(ctx)
		require.True(t, res.OK())

		_, err = e.Resume(ctx)
		require.NoError(t, err)

		tickN(ctx, e, 10)

		got := store.session(res.SessionID)
		assert.True(t, got.IsCompleted)
		assert.True(t, got.WasPaused)
		assert.Equal(t, 50, got.PointsEarned)
	})
}

func TestPauseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	e := newTestEngine(t, store)

	tr, err := e.Start(ctx)
	require.NoError(t, err)

	id := tr.Session.ID

	_, err = e.Pause(ctx)
	require.NoError(t, err)

	tr, err = e.Pause(ctx)
	require.NoError(t, err)
	assert.Equal(t, Paused, tr.From)
	assert.Equal(t, Paused, tr.To)
	assert.Empty(t, tr.Writes)

	_, err = e.Resume(ctx)
	require.NoError(t, err)

	tr, err = e.Pause(ctx)
	require.NoError(t, err)
	assert.Empty(t, tr.Writes, "was_paused is only persisted once")

	assert.Len(t, store.updates[id], 1)
}

func TestStop(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	e := newTestEngine(t, store, WithDurations(1200*time.Second, 300*time.Second))

	tr, err := e.Start(ctx)
	require.NoError(t, err)

	id := tr.Session.ID

	tickN(ctx, e, 600)

	tr, err = e.Stop(ctx)
	require.NoError(t, err)

	assert.Equal(t, Idle, tr.To)
	assert.Zero(t, tr.Points)

	got := store.session(id)
	assert.Equal(t, 600, got.ActualDuration)
	assert.Zero(t, got.PointsEarned)
	assert.False(t, got.IsCompleted)
	assert.False(t, got.EndTime.IsZero())
	assert.Zero(t, store.points[student.ID])

	assert.Equal(t, models.PhaseWork, e.Snapshot().Next)

	_, err = e.Stop(ctx)
	assert.ErrorIs(t, err, ErrInvalidTransition, "a session ends only once")

	_, err = e.Pause(ctx)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestStopWhilePaused(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	e := newTestEngine(t, store)

	tr, err := e.Start(ctx)
	require.NoError(t, err)

	id := tr.Session.ID

	tickN(ctx, e, 4)

	_, err = e.Pause(ctx)
	require.NoError(t, err)

	_, err = e.Stop(ctx)
	require.NoError(t, err)

	got := store.session(id)
	assert.Equal(t, 4, got.ActualDuration)
	assert.True(t, got.WasPaused)
	assert.Zero(t, got.PointsEarned)
}

func TestAutoBreakChaining(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	e := newTestEngine(t, store, WithAutoBreak(true, 2*time.Second))

	var (
		mu          sync.Mutex
		transitions []Transition
	)

	e.OnTransition(func(tr Transition) {
		mu.Lock()
		transitions = append(transitions, tr)
		mu.Unlock()
	})

	_, err := e.Start(ctx)
	require.NoError(t, err)

	tr, _ := tickN(ctx, e, 10)
	assert.Equal(t, Chaining, tr.To)

	snap := e.Snapshot()
	assert.Equal(t, Chaining, snap.State)
	assert.Equal(t, 2, snap.ChainRemaining)

	_, changed := e.Tick(ctx)
	assert.False(t, changed)

	tr, changed = e.Tick(ctx)
	require.True(t, changed)
	assert.Equal(t, Chaining, tr.From)
	assert.Equal(t, Running, tr.To)
	assert.Equal(t, models.PhaseBreak, tr.Phase)
	assert.Equal(t, 5, tr.Session.PlannedDuration)

	breakID := tr.Session.ID

	// break completion earns nothing and returns to idle
	tr, changed = tickN(ctx, e, 5)
	require.True(t, changed)
	assert.Equal(t, Idle, tr.To)
	assert.Zero(t, tr.Points)
	assert.True(t, store.session(breakID).IsCompleted)
	assert.Zero(t, store.session(breakID).PointsEarned)
	assert.Equal(t, models.PhaseWork, e.Snapshot().Next)
	assert.Equal(t, 100, store.points[student.ID])

	mu.Lock()
	defer mu.Unlock()

	var states []State
	for _, tr := range transitions {
		states = append(states, tr.To)
	}

	assert.Equal(t, []State{Running, Chaining, Running, Idle}, states)
}

func TestStartSkipsChainingDelay(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, newFakeStore(), WithAutoBreak(true, time.Minute))

	_, err := e.Start(ctx)
	require.NoError(t, err)

	tickN(ctx, e, 10)
	require.Equal(t, Chaining, e.Snapshot().State)

	tr, err := e.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseBreak, tr.Phase)
}

func TestZeroAutoBreakDelay(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, newFakeStore(), WithAutoBreak(true, 0))

	var states []State

	e.OnTransition(func(tr Transition) {
		states = append(states, tr.To)
	})

	_, err := e.Start(ctx)
	require.NoError(t, err)

	tr, changed := tickN(ctx, e, 10)
	require.True(t, changed)
	assert.Equal(t, 100, tr.Points)

	snap := e.Snapshot()
	assert.Equal(t, Running, snap.State, "the break starts on the completing tick")
	assert.Equal(t, models.PhaseBreak, snap.Phase)
	assert.Equal(t, []State{Running, Chaining, Running}, states)
}

func TestStopWhileChaining(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, newFakeStore(), WithAutoBreak(true, time.Minute))

	_, err := e.Start(ctx)
	require.NoError(t, err)

	tickN(ctx, e, 10)

	tr, err := e.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, Idle, tr.To)
	assert.Empty(t, tr.Writes)
	assert.Equal(t, models.PhaseWork, e.Snapshot().Next)
}

func TestCreateFailure(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.createErr = errUnavailable

	e := newTestEngine(t, store, WithAutoBreak(false, 0))

	tr, err := e.Start(ctx)
	require.NoError(t, err, "the timer runs even when the session is not saved")
	assert.Equal(t, Running, tr.To)

	require.Len(t, tr.Failed(), 1)
	assert.ErrorIs(t, tr.Writes[0].Err, errUnavailable)

	tr, err = e.Pause(ctx)
	require.NoError(t, err)
	require.Len(t, tr.Writes, 1)
	assert.ErrorIs(t, tr.Writes[0].Err, ErrSessionNotPersisted)

	_, err = e.Resume(ctx)
	require.NoError(t, err)

	tr, _ = tickN(ctx, e, 10)

	var ops []Op
	for _, w := range tr.Writes {
		ops = append(ops, w.Op)
	}

	assert.Equal(t, []Op{OpPoints, OpComplete}, ops)
	assert.True(t, tr.Writes[0].OK(), "points are still awarded")
	assert.ErrorIs(t, tr.Writes[1].Err, ErrSessionNotPersisted)
	assert.Equal(t, 50, store.points[student.ID])
}

func TestRetryCreate(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.createErr = errUnavailable

	e := newTestEngine(t, store)

	tr, err := e.Start(ctx)
	require.NoError(t, err)

	store.createErr = nil

	res := tr.Writes[0].Retry(ctx)
	require.True(t, res.OK())
	assert.NotEmpty(t, res.SessionID)
	assert.Equal(t, res.SessionID, e.Snapshot().Session.ID)

	tr, err = e.Pause(ctx)
	require.NoError(t, err)
	assert.True(t, tr.Writes[0].OK())
}

func TestRetryPoints(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.pointsErr = errUnavailable

	e := newTestEngine(t, store, WithAutoBreak(false, 0))

	_, err := e.Start(ctx)
	require.NoError(t, err)

	tr, _ := tickN(ctx, e, 10)

	failed := tr.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, OpPoints, failed[0].Op)

	res := failed[0].Retry(ctx)
	assert.False(t, res.OK())

	store.pointsErr = nil

	res = res.Retry(ctx)
	assert.True(t, res.OK())
	assert.Equal(t, 100, store.points[student.ID])

	// retrying a successful write does nothing
	res.Retry(ctx)
	assert.Equal(t, 100, store.points[student.ID])
}

func TestPointsAccumulate(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	e := newTestEngine(t, store, WithAutoBreak(false, 0))

	const rounds = 3

	for i := range rounds {
		_, err := e.Start(ctx)
		require.NoError(t, err)

		if i == 1 {
			_, err = e.Pause(ctx)
			require.NoError(t, err)

			_, err = e.Resume(ctx)
			require.NoError(t, err)
		}

		tickN(ctx, e, 10)

		// the break that follows
		_, err = e.Start(ctx)
		require.NoError(t, err)

		tickN(ctx, e, 5)
	}

	assert.Equal(t, 250, store.points[student.ID])
}

// TestPointsMatchSessions runs random pause, stop and complete sequences and
// checks that the profile total is the sum of the points of every session.
func TestPointsMatchSessions(t *testing.T) {
	ctx := context.Background()

	for seed := range uint64(20) {
		t.Run(fmt.Sprintf("seed %d", seed), func(t *testing.T) {
			r := rand.New(rand.NewPCG(seed, 7))
			store := newFakeStore()
			e := newTestEngine(t, store, WithAutoBreak(false, 0))

			for range 8 {
				_, err := e.Start(ctx)
				require.NoError(t, err)

				// at most 4 ticks so the 10s session cannot finish here
				for range r.IntN(3) {
					tickN(ctx, e, r.IntN(3))

					_, err = e.Pause(ctx)
					require.NoError(t, err)

					_, err = e.Resume(ctx)
					require.NoError(t, err)
				}

				if r.IntN(2) == 0 {
					_, err = e.Stop(ctx)
					require.NoError(t, err)

					continue
				}

				tickN(ctx, e, 10)

				// skip the break
				_, err = e.Start(ctx)
				require.NoError(t, err)

				_, err = e.Stop(ctx)
				require.NoError(t, err)
			}

			var want int

			for _, sess := range store.sessions {
				want += sess.PointsEarned

				if sess.PointsEarned > 0 {
					assert.True(t, sess.IsCompleted)
				}

				assert.LessOrEqual(t, sess.ActualDuration, sess.PlannedDuration)
			}

			assert.Equal(t, want, store.points[student.ID])
		})
	}
}

func TestCustomPolicy(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	e := newTestEngine(
		t,
		store,
		WithAutoBreak(false, 0),
		WithPolicy(scoring.Policy{Full: 10, Paused: 5}),
	)

	_, err := e.Start(ctx)
	require.NoError(t, err)

	tr, _ := tickN(ctx, e, 10)
	assert.Equal(t, 10, tr.Points)
}

func TestInvalidTransitions(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, newFakeStore())

	_, err := e.Pause(ctx)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = e.Resume(ctx)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = e.Stop(ctx)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = e.Start(ctx)
	require.NoError(t, err)

	_, err = e.Start(ctx)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = e.Resume(ctx)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, changed := e.Tick(ctx)
	assert.False(t, changed)
}

func TestActualNeverExceedsPlanned(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	e := newTestEngine(t, store, WithAutoBreak(false, 0))

	tr, err := e.Start(ctx)
	require.NoError(t, err)

	id := tr.Session.ID

	// extra ticks after completion are ignored
	tickN(ctx, e, 25)

	got := store.session(id)
	assert.Equal(t, got.PlannedDuration, got.ActualDuration)
	assert.Equal(t, Idle, e.Snapshot().State)
}

func TestRun(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(t, store, WithDurations(3*time.Second, time.Second), WithAutoBreak(false, 0))
	e.tick = time.Millisecond

	done := make(chan Transition, 1)

	e.OnTransition(func(tr Transition) {
		if completed(tr) {
			done <- tr
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := e.Start(ctx)
	require.NoError(t, err)

	errc := make(chan error, 1)

	go func() {
		errc <- e.Run(ctx)
	}()

	select {
	case tr := <-done:
		assert.Equal(t, 100, tr.Points)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not complete")
	}

	cancel()

	assert.ErrorIs(t, <-errc, context.Canceled)
}
