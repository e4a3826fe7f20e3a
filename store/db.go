package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperworkchat/hyperwork/internal/config"
	"github.com/hyperworkchat/hyperwork/internal/models"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrEmailExists    = errors.New("an account with this email already exists")
	ErrSessionEnded   = errors.New("session has already ended")
	ErrNegativePoints = errors.New("points can only be added to a profile")
	ErrNoGroup        = errors.New("a message must belong to a group")
)

const defaultListLimit = 100

// ProfileFilter narrows the profiles returned by ListProfiles. Zero values
// match everything.
type ProfileFilter struct {
	Role         models.Role
	ClassSection string
	Limit        int
}

// SessionStore persists work sessions.
type SessionStore interface {
	// CreateSession records the start of a session and returns its id
	CreateSession(
		ctx context.Context,
		userID string,
		phase models.Phase,
		plannedDuration int,
	) (string, error)
	// UpdateSession applies the set fields of upd to an open session
	UpdateSession(ctx context.Context, id string, upd models.SessionUpdate) error
	GetSession(ctx context.Context, id string) (models.WorkSession, error)
	// ListSessions returns a user's sessions started before the given time
	// (or any time if zero), newest first
	ListSessions(
		ctx context.Context,
		userID string,
		limit int,
		before time.Time,
	) ([]models.WorkSession, error)
	// ListOpenSessions returns sessions without an end time that started
	// before the given time
	ListOpenSessions(
		ctx context.Context,
		startedBefore time.Time,
	) ([]models.WorkSession, error)
}

// ProfileStore persists accounts and profiles.
type ProfileStore interface {
	CreateAccount(ctx context.Context, acct models.Account, p models.Profile) error
	GetAccountByEmail(ctx context.Context, email string) (models.Account, error)
	GetProfile(ctx context.Context, id string) (models.Profile, error)
	// UpdateProfile overwrites the editable fields of a profile. Email, role,
	// points and creation time are preserved.
	UpdateProfile(ctx context.Context, p models.Profile) (models.Profile, error)
	// IncrementProfilePoints atomically adds delta to a profile's total and
	// returns the new total
	IncrementProfilePoints(ctx context.Context, userID string, delta int) (int, error)
	// ListProfiles returns matching profiles ordered by points, highest first
	ListProfiles(ctx context.Context, filter ProfileFilter) ([]models.Profile, error)
}

// ChatStore persists class chat messages.
type ChatStore interface {
	AddMessage(ctx context.Context, m models.Message) (models.Message, error)
	// ListMessages returns the most recent messages, oldest first
	ListMessages(ctx context.Context, limit int) ([]models.Message, error)
}

// GroupStore persists chat groups, their members and their messages.
type GroupStore interface {
	// CreateGroup stores g and adds memberIDs to it in one transaction
	CreateGroup(ctx context.Context, g models.Group, memberIDs []string) (models.Group, error)
	GetGroup(ctx context.Context, id string) (models.Group, error)
	// ListGroups returns the groups of a class (or every group if empty),
	// newest first
	ListGroups(ctx context.Context, classSection string) ([]models.Group, error)
	// AddGroupMember adds a user to a group. Adding a member twice is a no-op.
	AddGroupMember(ctx context.Context, groupID, userID string) error
	// ListGroupMembers returns the members of a group in the order they joined
	ListGroupMembers(ctx context.Context, groupID string) ([]models.GroupMember, error)
	IsGroupMember(ctx context.Context, groupID, userID string) (bool, error)
	AddGroupMessage(ctx context.Context, m models.Message) (models.Message, error)
	// ListGroupMessages returns the most recent messages of a group, oldest
	// first
	ListGroupMessages(ctx context.Context, groupID string, limit int) ([]models.Message, error)
}

// SelectionStore persists random picker selections.
type SelectionStore interface {
	AddSelection(ctx context.Context, sel models.Selection) (models.Selection, error)
	ListSelections(
		ctx context.Context,
		teacherID, classSection string,
	) ([]models.Selection, error)
	ClearSelections(ctx context.Context, teacherID, classSection string) error
}

// DB is the database storage interface.
type DB interface {
	SessionStore
	ProfileStore
	ChatStore
	GroupStore
	SelectionStore
	// Ping checks that the database is reachable
	Ping(ctx context.Context) error
	// Close ends the database connection
	Close() error
}

// Open connects to the database selected by the configuration.
func Open(ctx context.Context, cfg config.DatabaseConfig) (DB, error) {
	switch cfg.Driver {
	case config.DriverBolt, "":
		return NewClient(cfg.Path)
	case config.DriverPostgres:
		return NewPostgres(ctx, cfg)
	}

	return nil, fmt.Errorf("unknown database driver: %s", cfg.Driver)
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}

	return limit
}
