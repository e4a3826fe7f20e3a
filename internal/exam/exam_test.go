package exam

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperworkchat/hyperwork/internal/models"
	"github.com/hyperworkchat/hyperwork/internal/realtime"
	"github.com/hyperworkchat/hyperwork/internal/testutil"
)

var (
	teacher = models.User{ID: "grace", Role: models.RoleTeacher}
	student = models.User{ID: "ada", Role: models.RoleStudent}
	start   = time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC)
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	db := testutil.NewBoltStore(t)
	broker := realtime.NewMemory()

	t.Cleanup(func() {
		_ = broker.Close()
	})

	testutil.SeedProfile(t, db, models.Profile{
		ID:        student.ID,
		FirstName: "Ada",
		LastName:  "Lovelace",
	})

	svc := NewService(db, broker)
	svc.now = func() time.Time { return start }

	return svc
}

func next(t *testing.T, events <-chan Event) Event {
	t.Helper()

	select {
	case e, ok := <-events:
		require.True(t, ok, "stream closed")
		return e
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	return Event{}
}

func TestStart(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Start(ctx, student, time.Hour)
	assert.ErrorIs(t, err, ErrNotTeacher)

	for _, d := range []time.Duration{0, 30 * time.Second, MaxDuration + time.Minute} {
		_, err = svc.Start(ctx, teacher, d)
		assert.ErrorIs(t, err, ErrDuration, d)
	}

	events, stop, err := svc.Watch(ctx)
	require.NoError(t, err)

	defer stop()

	ex, err := svc.Start(ctx, teacher, 45*time.Minute)
	require.NoError(t, err)

	assert.NotEmpty(t, ex.ID)
	assert.Equal(t, teacher.ID, ex.TeacherID)
	assert.Equal(t, start.Add(45*time.Minute), ex.EndsAt())
	assert.Equal(t, 15*time.Minute, ex.Remaining(start.Add(30*time.Minute)))
	assert.Zero(t, ex.Remaining(start.Add(time.Hour)))

	e := next(t, events)
	assert.Equal(t, KindStarted, e.Kind)
	require.NotNil(t, e.Exam)

	if diff := cmp.Diff(ex, *e.Exam); diff != "" {
		t.Fatalf("announced exam mismatch (-want +got):\n%s", diff)
	}
}

func TestFinish(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	ex, err := svc.Start(ctx, teacher, 10*time.Minute)
	require.NoError(t, err)

	_, err = svc.Finish(ctx, teacher, ex)
	assert.ErrorIs(t, err, ErrNotStudent)

	events, stop, err := svc.Watch(ctx)
	require.NoError(t, err)

	defer stop()

	svc.now = func() time.Time { return start.Add(7*time.Minute + 1500*time.Millisecond) }

	r, err := svc.Finish(ctx, student, ex)
	require.NoError(t, err)

	assert.Equal(t, ex.ID, r.ExamID)
	assert.Equal(t, "Ada Lovelace", r.StudentName)
	assert.Equal(t, 7*time.Minute+time.Second, r.CompletedIn)

	e := next(t, events)
	assert.Equal(t, KindFinished, e.Kind)
	require.NotNil(t, e.Result)
	assert.Equal(t, r.StudentID, e.Result.StudentID)

	svc.now = func() time.Time { return ex.EndsAt() }

	_, err = svc.Finish(ctx, student, ex)
	assert.ErrorIs(t, err, ErrExamOver)
}

func TestFinishUnknownStudent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	ex, err := svc.Start(ctx, teacher, 10*time.Minute)
	require.NoError(t, err)

	r, err := svc.Finish(ctx, models.User{ID: "ghost", Role: models.RoleStudent}, ex)
	require.NoError(t, err)
	assert.Equal(t, "Anonymous", r.StudentName)
}

func TestBoard(t *testing.T) {
	ex := Exam{ID: "e1", StartedAt: start, Duration: time.Hour}
	b := NewBoard(ex)

	result := func(exam, id string, in time.Duration) Event {
		return Event{
			Kind: KindFinished,
			Result: &Result{
				ExamID:      exam,
				StudentID:   id,
				CompletedIn: in,
				FinishedAt:  start.Add(in),
			},
		}
	}

	assert.True(t, b.Add(result("e1", "ada", 40*time.Minute)))
	assert.True(t, b.Add(result("e1", "alan", 25*time.Minute)))
	assert.False(t, b.Add(result("e1", "ada", 10*time.Minute)), "duplicate student")
	assert.False(t, b.Add(result("e2", "linus", 5*time.Minute)), "other exam")
	assert.False(t, b.Add(Event{Kind: KindStarted, Exam: &ex}))

	var order []string
	for _, r := range b.Results() {
		order = append(order, r.StudentID)
	}

	assert.Equal(t, []string{"alan", "ada"}, order)
}
