// Package classroom implements the leaderboard, class roster and random
// student picker
package classroom

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/maruel/natural"

	"github.com/hyperworkchat/hyperwork/internal/apperr"
	"github.com/hyperworkchat/hyperwork/internal/models"
	"github.com/hyperworkchat/hyperwork/store"
)

const DefaultLeaderboardSize = 50

var (
	ErrNotTeacher = &apperr.Error{
		Message: "only teachers can use this feature",
	}

	ErrEveryonePicked = &apperr.Error{
		Message: "every student in this class has been picked: reset the picker to start over",
	}

	ErrEmptyClass = &apperr.Error{
		Message: "this class has no students",
	}

	ErrNoClass = &apperr.Error{
		Message: "a class section is required",
	}
)

// Store is the persistence used by the classroom features.
type Store interface {
	ListProfiles(ctx context.Context, filter store.ProfileFilter) ([]models.Profile, error)
	AddSelection(ctx context.Context, sel models.Selection) (models.Selection, error)
	ListSelections(
		ctx context.Context,
		teacherID, classSection string,
	) ([]models.Selection, error)
	ClearSelections(ctx context.Context, teacherID, classSection string) error
}

// Summary aggregates a class roster.
type Summary struct {
	Leader       *models.Profile `json:"leader,omitempty"`
	ClassSection string          `json:"class_section"`
	Students     int             `json:"students"`
	TotalPoints  int             `json:"total_points"`
	Average      float64         `json:"average_points"`
}

// Roster lists the students of a class, highest points first.
type Roster struct {
	Students []models.Profile `json:"students"`
	Summary  Summary          `json:"summary"`
}

// Pick is the result of a random selection.
type Pick struct {
	Student   models.Profile   `json:"student"`
	Selection models.Selection `json:"selection"`
	// Remaining is the number of students that can still be picked
	Remaining int `json:"remaining"`
}

// Service serves the classroom features.
type Service struct {
	db   Store
	now  func() time.Time
	rand *rand.Rand
	// mu serialises picks so that two concurrent picks cannot choose the
	// same student
	mu sync.Mutex
}

func NewService(db Store) *Service {
	return &Service{
		db:   db,
		now:  time.Now,
		rand: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

func requireTeacher(u models.User) error {
	if !u.IsTeacher() {
		return ErrNotTeacher
	}

	return nil
}

// Leaderboard returns the top profiles of a role, highest points first.
func (s *Service) Leaderboard(
	ctx context.Context,
	role models.Role,
	limit int,
) ([]models.Profile, error) {
	if role == "" {
		role = models.RoleStudent
	}

	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}

	profiles, err := s.db.ListProfiles(ctx, store.ProfileFilter{
		Role:  role,
		Limit: limit,
	})
	if err != nil {
		readFailed(ctx, "leaderboard", err)
		return []models.Profile{}, nil
	}

	if profiles == nil {
		profiles = []models.Profile{}
	}

	return profiles, nil
}

// readFailed logs a failed read that is answered with an empty result.
func readFailed(ctx context.Context, what string, err error) {
	slog.WarnContext(ctx, "reading "+what+" failed, showing an empty list",
		slog.Any("error", err),
	)
}

// Classes returns the distinct class sections of all students in natural
// order ("9A" before "10A").
func (s *Service) Classes(ctx context.Context, u models.User) ([]string, error) {
	if err := requireTeacher(u); err != nil {
		return nil, err
	}

	students, err := s.db.ListProfiles(ctx, store.ProfileFilter{
		Role: models.RoleStudent,
	})
	if err != nil {
		readFailed(ctx, "classes", err)
		return []string{}, nil
	}

	seen := make(map[string]bool)

	var classes []string

	for i := range students {
		class := students[i].ClassSection
		if class == "" || seen[class] {
			continue
		}

		seen[class] = true
		classes = append(classes, class)
	}

	slices.SortFunc(classes, func(a, b string) int {
		switch {
		case natural.Less(a, b):
			return -1
		case natural.Less(b, a):
			return 1
		}

		return 0
	})

	return classes, nil
}

// Roster returns the students of class with a summary.
func (s *Service) Roster(ctx context.Context, u models.User, class string) (Roster, error) {
	if err := requireTeacher(u); err != nil {
		return Roster{}, err
	}

	class = strings.TrimSpace(class)
	if class == "" {
		return Roster{}, ErrNoClass
	}

	students, err := s.db.ListProfiles(ctx, store.ProfileFilter{
		Role:         models.RoleStudent,
		ClassSection: class,
	})
	if err != nil {
		readFailed(ctx, "roster", err)
		students = nil
	}

	if students == nil {
		students = []models.Profile{}
	}

	return Roster{
		Students: students,
		Summary:  summarize(class, students),
	}, nil
}

func summarize(class string, students []models.Profile) Summary {
	sum := Summary{
		ClassSection: class,
		Students:     len(students),
	}

	for i := range students {
		sum.TotalPoints += students[i].TotalPoints
	}

	if len(students) > 0 {
		leader := students[0]
		sum.Leader = &leader
		sum.Average = float64(sum.TotalPoints) / float64(len(students))
	}

	return sum
}

// Pick selects a random student of class that the teacher has not picked
// yet and records the selection.
func (s *Service) Pick(ctx context.Context, u models.User, class string) (Pick, error) {
	if err := requireTeacher(u); err != nil {
		return Pick{}, err
	}

	class = strings.TrimSpace(class)
	if class == "" {
		return Pick{}, ErrNoClass
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	available, err := s.available(ctx, u.ID, class)
	if err != nil {
		return Pick{}, err
	}

	student := available[s.rand.IntN(len(available))]

	sel, err := s.db.AddSelection(ctx, models.Selection{
		TeacherID:    u.ID,
		StudentID:    student.ID,
		ClassSection: class,
		SelectedAt:   s.now(),
	})
	if err != nil {
		return Pick{}, err
	}

	return Pick{
		Student:   student,
		Selection: sel,
		Remaining: len(available) - 1,
	}, nil
}

// available returns the students of class not yet picked by teacherID.
func (s *Service) available(ctx context.Context, teacherID, class string) ([]models.Profile, error) {
	students, err := s.db.ListProfiles(ctx, store.ProfileFilter{
		Role:         models.RoleStudent,
		ClassSection: class,
	})
	if err != nil {
		return nil, err
	}

	if len(students) == 0 {
		return nil, ErrEmptyClass
	}

	picked, err := s.db.ListSelections(ctx, teacherID, class)
	if err != nil {
		return nil, err
	}

	done := make(map[string]bool, len(picked))
	for i := range picked {
		done[picked[i].StudentID] = true
	}

	available := slices.DeleteFunc(students, func(p models.Profile) bool {
		return done[p.ID]
	})

	if len(available) == 0 {
		return nil, ErrEveryonePicked
	}

	return available, nil
}

// Picked returns the teacher's selections for class.
func (s *Service) Picked(ctx context.Context, u models.User, class string) ([]models.Selection, error) {
	if err := requireTeacher(u); err != nil {
		return nil, err
	}

	return s.db.ListSelections(ctx, u.ID, strings.TrimSpace(class))
}

// Reset clears the teacher's selections for class so that every student can
// be picked again.
func (s *Service) Reset(ctx context.Context, u models.User, class string) error {
	if err := requireTeacher(u); err != nil {
		return err
	}

	class = strings.TrimSpace(class)
	if class == "" {
		return ErrNoClass
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.ClearSelections(ctx, u.ID, class)
}
