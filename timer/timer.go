// Package timer operates the HyperWork session timer: a work/break countdown
// state machine that persists every session and awards points on completion
package timer

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/hyperworkchat/hyperwork/internal/config"
	"github.com/hyperworkchat/hyperwork/internal/models"
	"github.com/hyperworkchat/hyperwork/internal/scoring"
)

// State is the engine's position in the session lifecycle.
type State int

const (
	Idle State = iota
	Running
	Paused
	// Chaining waits out the auto-break delay between a completed work
	// session and the break that follows it
	Chaining
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Chaining:
		return "chaining"
	}

	return fmt.Sprintf("state(%d)", int(s))
}

const (
	DefaultWorkDuration   = 1200
	DefaultBreakDuration  = 300
	DefaultAutoBreakDelay = 2 * time.Second
)

// Store is the persistence used by the engine.
type Store interface {
	CreateSession(
		ctx context.Context,
		userID string,
		phase models.Phase,
		plannedDuration int,
	) (string, error)
	UpdateSession(ctx context.Context, id string, upd models.SessionUpdate) error
	IncrementProfilePoints(ctx context.Context, userID string, delta int) (int, error)
}

// Options configures an Engine. Durations are in seconds.
type Options struct {
	Policy         scoring.Policy
	WorkDuration   int
	BreakDuration  int
	AutoBreakDelay time.Duration
	AutoBreak      bool
}

// Option modifies the engine options.
type Option func(*Options)

// DefaultOptions returns a 20 minute work / 5 minute break cycle with
// automatic breaks.
func DefaultOptions() Options {
	return Options{
		WorkDuration:   DefaultWorkDuration,
		BreakDuration:  DefaultBreakDuration,
		AutoBreak:      true,
		AutoBreakDelay: DefaultAutoBreakDelay,
		Policy:         scoring.Default,
	}
}

func WithDurations(work, brk time.Duration) Option {
	return func(o *Options) {
		o.WorkDuration = int(work / time.Second)
		o.BreakDuration = int(brk / time.Second)
	}
}

func WithAutoBreak(enabled bool, delay time.Duration) Option {
	return func(o *Options) {
		o.AutoBreak = enabled
		o.AutoBreakDelay = delay
	}
}

func WithPolicy(p scoring.Policy) Option {
	return func(o *Options) {
		o.Policy = p
	}
}

// FromConfig applies the timer and scoring sections of cfg.
func FromConfig(cfg *config.Config) Option {
	return func(o *Options) {
		WithDurations(cfg.Timer.WorkDuration, cfg.Timer.BreakDuration)(o)
		WithAutoBreak(cfg.Timer.AutoBreak, cfg.Timer.AutoBreakDelay)(o)
		WithPolicy(cfg.Scoring)(o)
	}
}

// Snapshot is a point-in-time view of the engine.
type Snapshot struct {
	Session   *models.WorkSession
	State     State
	Phase     models.Phase
	Next      models.Phase
	Remaining int
	Planned   int
	// ChainRemaining is the number of seconds left before the break starts
	ChainRemaining int
}

// Transition describes what an operation did.
type Transition struct {
	Session *models.WorkSession
	Phase   models.Phase
	Writes  []WriteResult
	From    State
	To      State
	Points  int
}

// Failed returns the writes that did not succeed.
func (t Transition) Failed() []WriteResult {
	var failed []WriteResult

	for _, w := range t.Writes {
		if !w.OK() {
			failed = append(failed, w)
		}
	}

	return failed
}

// Engine is the session timer. It is safe for concurrent use. Operations
// hold the engine's lock for the duration of their store writes, so writes
// for a session reach the store in the order they were made. Callers that
// must not block, such as the terminal UI, run operations off their event
// loop.
type Engine struct {
	store     Store
	now       func() time.Time
	session   *models.WorkSession
	observers []func(Transition)
	user      models.User
	next      models.Phase
	opts      Options
	tick      time.Duration
	state     State
	remaining int
	chainLeft int
	mu        sync.Mutex
}

// New returns an idle engine for the given user.
func New(store Store, user models.User, opts ...Option) (*Engine, error) {
	if user.ID == "" {
		return nil, errNoUser
	}

	o := DefaultOptions()

	for _, opt := range opts {
		opt(&o)
	}

	return &Engine{
		store: store,
		user:  user,
		opts:  o,
		now:   time.Now,
		tick:  time.Second,
		next:  models.PhaseWork,
		state: Idle,
	}, nil
}

// Options returns the engine's options.
func (e *Engine) Options() Options {
	return e.opts
}

// OnTransition registers fn to be called after every state change. fn is
// called without the engine's lock held.
func (e *Engine) OnTransition(fn func(Transition)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.observers = append(e.observers, fn)
}

func (e *Engine) emit(tr Transition) {
	e.mu.Lock()
	observers := slices.Clone(e.observers)
	e.mu.Unlock()

	for _, fn := range observers {
		fn(tr)
	}
}

func (e *Engine) invalid(op string) error {
	return ErrInvalidTransition.Wrap(
		fmt.Errorf("cannot %s while %s", op, e.state),
	)
}

func (e *Engine) plannedFor(phase models.Phase) int {
	if phase == models.PhaseBreak {
		return e.opts.BreakDuration
	}

	return e.opts.WorkDuration
}

func (e *Engine) snapshotLocked() Snapshot {
	s := Snapshot{
		State:          e.state,
		Next:           e.next,
		Remaining:      e.remaining,
		ChainRemaining: e.chainLeft,
	}

	if e.session != nil {
		sess := *e.session
		s.Session = &sess
		s.Phase = sess.Phase
		s.Planned = sess.PlannedDuration
	} else {
		s.Phase = e.next
		s.Planned = e.plannedFor(e.next)
		s.Remaining = s.Planned
	}

	return s
}

// Snapshot returns the engine's current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.snapshotLocked()
}

func (e *Engine) sessionCopy() *models.WorkSession {
	if e.session == nil {
		return nil
	}

	sess := *e.session

	return &sess
}

// Start begins the next session. From Chaining it skips the remaining delay
// and starts the break immediately.
func (e *Engine) Start(ctx context.Context) (Transition, error) {
	e.mu.Lock()

	if e.state != Idle && e.state != Chaining {
		err := e.invalid("start")
		e.mu.Unlock()

		return Transition{}, err
	}

	tr := e.startLocked(ctx)
	e.mu.Unlock()

	e.emit(tr)

	return tr, nil
}

func (e *Engine) startLocked(ctx context.Context) Transition {
	from := e.state
	phase := e.next
	planned := e.plannedFor(phase)

	sess := &models.WorkSession{
		UserID:          e.user.ID,
		Phase:           phase,
		StartTime:       e.now(),
		PlannedDuration: planned,
	}

	id, err := e.store.CreateSession(ctx, e.user.ID, phase, planned)
	if err != nil {
		slog.WarnContext(ctx, "session create failed, timer continues unsaved",
			slog.String("phase", string(phase)),
			slog.Any("error", err),
		)
	}

	sess.ID = id

	e.session = sess
	e.remaining = planned
	e.chainLeft = 0
	e.state = Running

	return Transition{
		From:    from,
		To:      Running,
		Phase:   phase,
		Session: e.sessionCopy(),
		Writes: []WriteResult{
			{
				Op:        OpCreate,
				SessionID: id,
				Err:       err,
				retry:     e.retryCreate(sess),
			},
		},
	}
}

// retryCreate re-issues a failed create and adopts the new id if the
// session is still the active one.
func (e *Engine) retryCreate(sess *models.WorkSession) func(context.Context) WriteResult {
	return func(ctx context.Context) WriteResult {
		id, err := e.store.CreateSession(ctx, sess.UserID, sess.Phase, sess.PlannedDuration)
		if err == nil {
			e.mu.Lock()
			if e.session == sess && sess.ID == "" {
				sess.ID = id
			}
			e.mu.Unlock()
		}

		return WriteResult{
			Op:        OpCreate,
			SessionID: id,
			Err:       err,
			retry:     e.retryCreate(sess),
		}
	}
}

// Pause freezes the countdown. The session is marked as paused for good, but
// only the first pause is persisted. Pausing a paused timer does nothing.
func (e *Engine) Pause(ctx context.Context) (Transition, error) {
	e.mu.Lock()

	if e.state == Paused {
		tr := Transition{
			From:    Paused,
			To:      Paused,
			Phase:   e.session.Phase,
			Session: e.sessionCopy(),
		}
		e.mu.Unlock()

		return tr, nil
	}

	if e.state != Running {
		err := e.invalid("pause")
		e.mu.Unlock()

		return Transition{}, err
	}

	e.state = Paused

	tr := Transition{
		From:  Running,
		To:    Paused,
		Phase: e.session.Phase,
	}

	if !e.session.WasPaused {
		e.session.WasPaused = true

		tr.Writes = append(tr.Writes, e.update(ctx, OpPause, models.SessionUpdate{
			WasPaused: ptr(true),
		}))
	}

	tr.Session = e.sessionCopy()
	e.mu.Unlock()

	e.emit(tr)

	return tr, nil
}

// Resume continues a paused countdown from where it stopped.
func (e *Engine) Resume(_ context.Context) (Transition, error) {
	e.mu.Lock()

	if e.state != Paused {
		err := e.invalid("resume")
		e.mu.Unlock()

		return Transition{}, err
	}

	e.state = Running

	tr := Transition{
		From:    Paused,
		To:      Running,
		Phase:   e.session.Phase,
		Session: e.sessionCopy(),
	}
	e.mu.Unlock()

	e.emit(tr)

	return tr, nil
}

// Toggle pauses a running timer and resumes a paused one.
func (e *Engine) Toggle(ctx context.Context) (Transition, error) {
	if e.Snapshot().State == Paused {
		return e.Resume(ctx)
	}

	return e.Pause(ctx)
}

// Tick advances the timer by one second. It reports whether a transition
// happened.
func (e *Engine) Tick(ctx context.Context) (Transition, bool) {
	e.mu.Lock()

	var tr Transition

	switch e.state {
	case Running:
		if e.remaining > 0 {
			e.remaining--
		}

		if e.remaining > 0 {
			e.mu.Unlock()
			return Transition{}, false
		}

		tr = e.completeLocked(ctx)

		if e.state == Chaining && e.chainLeft == 0 {
			next := e.startLocked(ctx)
			e.mu.Unlock()

			e.emit(tr)
			e.emit(next)

			return tr, true
		}
	case Chaining:
		if e.chainLeft > 0 {
			e.chainLeft--
		}

		if e.chainLeft > 0 {
			e.mu.Unlock()
			return Transition{}, false
		}

		tr = e.startLocked(ctx)
	default:
		e.mu.Unlock()
		return Transition{}, false
	}

	e.mu.Unlock()

	e.emit(tr)

	return tr, true
}

func (e *Engine) completeLocked(ctx context.Context) Transition {
	sess := e.session
	points := e.opts.Policy.Score(sess.Phase, sess.WasPaused, true)

	tr := Transition{
		From:   e.state,
		Phase:  sess.Phase,
		Points: points,
	}

	if points > 0 {
		tr.Writes = append(tr.Writes, e.awardPoints(ctx, points))
	}

	endTime := e.now()
	actual := sess.PlannedDuration

	sess.EndTime = endTime
	sess.ActualDuration = actual
	sess.PointsEarned = points
	sess.IsCompleted = true

	// was_paused is repeated so that the final row agrees with its points
	// even if the pause write was lost
	tr.Writes = append(tr.Writes, e.update(ctx, OpComplete, models.SessionUpdate{
		EndTime:        &endTime,
		ActualDuration: &actual,
		PointsEarned:   &points,
		IsCompleted:    ptr(true),
		WasPaused:      ptr(sess.WasPaused),
	}))

	tr.Session = e.sessionCopy()

	e.session = nil
	e.remaining = 0

	if sess.Phase == models.PhaseWork {
		e.next = models.PhaseBreak

		if e.opts.AutoBreak {
			e.state = Chaining
			e.chainLeft = int(math.Ceil(e.opts.AutoBreakDelay.Seconds()))
		} else {
			e.state = Idle
		}
	} else {
		e.next = models.PhaseWork
		e.state = Idle
	}

	tr.To = e.state

	return tr
}

// Stop ends the active session early. Stopped sessions earn no points and
// the next session is always a work session.
func (e *Engine) Stop(ctx context.Context) (Transition, error) {
	e.mu.Lock()

	from := e.state

	switch from {
	case Running, Paused:
	case Chaining:
		e.state = Idle
		e.next = models.PhaseWork
		e.chainLeft = 0

		tr := Transition{From: Chaining, To: Idle, Phase: models.PhaseBreak}
		e.mu.Unlock()

		e.emit(tr)

		return tr, nil
	default:
		err := e.invalid("stop")
		e.mu.Unlock()

		return Transition{}, err
	}

	sess := e.session
	endTime := e.now()
	actual := sess.PlannedDuration - e.remaining
	zero := 0

	sess.EndTime = endTime
	sess.ActualDuration = actual
	sess.PointsEarned = 0
	sess.IsCompleted = false

	tr := Transition{
		From:  from,
		To:    Idle,
		Phase: sess.Phase,
	}

	tr.Writes = append(tr.Writes, e.update(ctx, OpStop, models.SessionUpdate{
		EndTime:        &endTime,
		ActualDuration: &actual,
		PointsEarned:   &zero,
		IsCompleted:    ptr(false),
		WasPaused:      ptr(sess.WasPaused),
	}))

	tr.Session = e.sessionCopy()

	e.session = nil
	e.remaining = 0
	e.state = Idle
	e.next = models.PhaseWork
	e.mu.Unlock()

	e.emit(tr)

	return tr, nil
}

// Run ticks the engine once per second until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.Tick(ctx)
		}
	}
}

func ptr[T any](v T) *T {
	return &v
}
