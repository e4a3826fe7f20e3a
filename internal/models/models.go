// Package models defines the records shared by the timer, store and API
package models

import (
	"strings"
	"time"
)

// Phase identifies the timer mode a session represents.
type Phase string

const (
	PhaseWork  Phase = "work"
	PhaseBreak Phase = "break"
)

// Role gates which actions a profile may perform.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleTeacher
}

// WorkSession is one attempt at a work or break interval. Durations are in
// seconds.
type WorkSession struct {
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Phase           Phase     `json:"phase"`
	PlannedDuration int       `json:"planned_duration"`
	ActualDuration  int       `json:"actual_duration"`
	PointsEarned    int       `json:"points_earned"`
	WasPaused       bool      `json:"was_paused"`
	IsCompleted     bool      `json:"is_completed"`
}

// Ended reports whether the session has reached a terminal transition.
// Ended sessions are immutable.
func (s *WorkSession) Ended() bool {
	return !s.EndTime.IsZero()
}

// SessionUpdate holds the optional fields of a session update. Nil fields are
// left untouched.
type SessionUpdate struct {
	EndTime        *time.Time `json:"end_time,omitempty"`
	ActualDuration *int       `json:"actual_duration,omitempty"`
	PointsEarned   *int       `json:"points_earned,omitempty"`
	IsCompleted    *bool      `json:"is_completed,omitempty"`
	WasPaused      *bool      `json:"was_paused,omitempty"`
}

// Apply copies the set fields of u into s.
func (u SessionUpdate) Apply(s *WorkSession) {
	if u.EndTime != nil {
		s.EndTime = *u.EndTime
	}

	if u.ActualDuration != nil {
		s.ActualDuration = *u.ActualDuration
	}

	if u.PointsEarned != nil {
		s.PointsEarned = *u.PointsEarned
	}

	if u.IsCompleted != nil {
		s.IsCompleted = *u.IsCompleted
	}

	if u.WasPaused != nil {
		// was_paused is never reset once set
		s.WasPaused = s.WasPaused || *u.WasPaused
	}
}

// Profile is the persistent record of a user.
type Profile struct {
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Role             Role      `json:"role"`
	ClassSection     string    `json:"class_section,omitempty"`
	WorkDays         []string  `json:"work_days"`
	DailyWorkMinutes int       `json:"daily_work_minutes"`
	TotalPoints      int       `json:"total_points"`
}

// DisplayName returns the profile's full name, or its email when no name is
// set.
func (p *Profile) DisplayName() string {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name == "" {
		return p.Email
	}

	return name
}

// User returns the identity associated with the profile.
func (p *Profile) User() User {
	return User{ID: p.ID, Role: p.Role}
}

// Account holds sign-in credentials. It is never sent to clients.
type Account struct {
	CreatedAt    time.Time `json:"created_at"`
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"password_hash"`
}

// User is the identity of the signed-in user.
type User struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// IsTeacher reports whether the user holds the teacher role.
func (u User) IsTeacher() bool {
	return u.Role == RoleTeacher
}

// Message is a chat message. GroupID is empty for the class chat.
type Message struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
	GroupID   string    `json:"group_id,omitempty"`
	UserID    string    `json:"user_id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
}

// Group is a chat group within a class.
type Group struct {
	CreatedAt    time.Time `json:"created_at"`
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	ClassSection string    `json:"class_section"`
	CreatedBy    string    `json:"created_by"`
}

// GroupMember records a user's membership of a group.
type GroupMember struct {
	JoinedAt time.Time `json:"joined_at"`
	GroupID  string    `json:"group_id"`
	UserID   string    `json:"user_id"`
}

// Selection records a student picked by a teacher's random picker.
type Selection struct {
	SelectedAt   time.Time `json:"selected_at"`
	ID           string    `json:"id"`
	TeacherID    string    `json:"teacher_id"`
	StudentID    string    `json:"student_id"`
	ClassSection string    `json:"class_section"`
}
