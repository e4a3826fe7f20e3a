// Package exam runs class exam countdowns. A teacher announces an exam,
// students report when they finish and the teacher collects the results.
// Nothing is stored: every announcement travels over the realtime broker.
package exam

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/hyperworkchat/hyperwork/internal/apperr"
	"github.com/hyperworkchat/hyperwork/internal/models"
	"github.com/hyperworkchat/hyperwork/internal/realtime"
)

const (
	DefaultDuration = 60 * time.Minute
	MaxDuration     = 5 * time.Hour

	anonymous = "Anonymous"
)

var (
	ErrNotTeacher = &apperr.Error{
		Message: "only teachers can start an exam",
	}

	ErrNotStudent = &apperr.Error{
		Message: "only students can finish an exam",
	}

	ErrDuration = &apperr.Error{
		Message: "an exam lasts between 1 minute and 5 hours",
	}

	ErrExamOver = &apperr.Error{
		Message: "the exam is already over",
	}
)

// Kind names an exam announcement.
type Kind string

const (
	KindStarted  Kind = "exam-started"
	KindFinished Kind = "exam-finished"
)

// Exam is a running countdown.
type Exam struct {
	StartedAt time.Time     `json:"started_at"`
	ID        string        `json:"id"`
	TeacherID string        `json:"teacher_id"`
	Duration  time.Duration `json:"duration"`
}

// EndsAt returns when the countdown reaches zero.
func (e Exam) EndsAt() time.Time {
	return e.StartedAt.Add(e.Duration)
}

// Remaining returns the time left at now, never below zero.
func (e Exam) Remaining(now time.Time) time.Duration {
	return max(e.EndsAt().Sub(now), 0)
}

// Result is a student's completion of an exam.
type Result struct {
	FinishedAt  time.Time     `json:"finished_at"`
	ExamID      string        `json:"exam_id"`
	StudentID   string        `json:"student_id"`
	StudentName string        `json:"student_name"`
	CompletedIn time.Duration `json:"completion_time"`
}

// Event is published on realtime.TopicExam. Exactly one of Exam and Result
// is set, depending on Kind.
type Event struct {
	Exam   *Exam   `json:"exam,omitempty"`
	Result *Result `json:"result,omitempty"`
	Kind   Kind    `json:"kind"`
}

// Profiles reads the display names of students.
type Profiles interface {
	GetProfile(ctx context.Context, id string) (models.Profile, error)
}

// Service announces exams and results.
type Service struct {
	db     Profiles
	broker realtime.Broker
	now    func() time.Time
}

func NewService(db Profiles, broker realtime.Broker) *Service {
	return &Service{
		db:     db,
		broker: broker,
		now:    time.Now,
	}
}

// Start announces a new exam lasting d. Only teachers may start one.
func (s *Service) Start(ctx context.Context, u models.User, d time.Duration) (Exam, error) {
	if !u.IsTeacher() {
		return Exam{}, ErrNotTeacher
	}

	if d < time.Minute || d > MaxDuration {
		return Exam{}, ErrDuration
	}

	ex := Exam{
		ID:        ksuid.New().String(),
		TeacherID: u.ID,
		StartedAt: s.now(),
		Duration:  d,
	}

	err := s.broker.Publish(ctx, realtime.TopicExam, Event{Kind: KindStarted, Exam: &ex})
	if err != nil {
		return Exam{}, err
	}

	return ex, nil
}

func (s *Service) name(ctx context.Context, userID string) string {
	p, err := s.db.GetProfile(ctx, userID)
	if err != nil {
		slog.WarnContext(ctx, "reading student name failed",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)

		return anonymous
	}

	if name := p.DisplayName(); name != "" {
		return name
	}

	return anonymous
}

// Finish reports that u completed ex. The completion time never exceeds the
// exam's duration.
func (s *Service) Finish(ctx context.Context, u models.User, ex Exam) (Result, error) {
	if u.IsTeacher() {
		return Result{}, ErrNotStudent
	}

	now := s.now()
	if !now.Before(ex.EndsAt()) {
		return Result{}, ErrExamOver
	}

	r := Result{
		ExamID:      ex.ID,
		StudentID:   u.ID,
		StudentName: s.name(ctx, u.ID),
		CompletedIn: min(max(now.Sub(ex.StartedAt), 0), ex.Duration).Truncate(time.Second),
		FinishedAt:  now,
	}

	err := s.broker.Publish(ctx, realtime.TopicExam, Event{Kind: KindFinished, Result: &r})
	if err != nil {
		return Result{}, err
	}

	return r, nil
}

// Watch streams exam announcements until ctx is cancelled or the returned
// function is called. The channel is closed when the stream ends.
func (s *Service) Watch(ctx context.Context) (<-chan Event, func(), error) {
	sub, err := s.broker.Subscribe(ctx, realtime.TopicExam)
	if err != nil {
		return nil, nil, err
	}

	var (
		out  = make(chan Event)
		done = make(chan struct{})
		once sync.Once
	)

	stop := func() {
		once.Do(func() {
			close(done)
			sub.Close()
		})
	}

	go func() {
		defer close(out)

		for evt := range sub.C {
			var e Event

			if err := evt.Decode(&e); err != nil {
				slog.Warn("decoding exam event failed", slog.Any("error", err))
				continue
			}

			select {
			case out <- e:
			case <-done:
				return
			case <-ctx.Done():
				stop()
				return
			}
		}
	}()

	return out, stop, nil
}

// Board collects the results of one exam, fastest first.
type Board struct {
	seen    map[string]bool
	results []Result
	exam    Exam
}

func NewBoard(ex Exam) *Board {
	return &Board{
		exam: ex,
		seen: make(map[string]bool),
	}
}

// Add records the result carried by e. It reports false for events of
// other exams and for students already on the board.
func (b *Board) Add(e Event) bool {
	if e.Kind != KindFinished || e.Result == nil || e.Result.ExamID != b.exam.ID {
		return false
	}

	if b.seen[e.Result.StudentID] {
		return false
	}

	b.seen[e.Result.StudentID] = true
	b.results = append(b.results, *e.Result)

	return true
}

// Results returns the recorded results ordered by completion time.
func (b *Board) Results() []Result {
	results := slices.Clone(b.results)

	slices.SortStableFunc(results, func(x, y Result) int {
		if x.CompletedIn != y.CompletedIn {
			if x.CompletedIn < y.CompletedIn {
				return -1
			}

			return 1
		}

		return x.FinishedAt.Compare(y.FinishedAt)
	})

	return results
}
