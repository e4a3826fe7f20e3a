package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hyperworkchat/hyperwork/internal/apperr"
	"github.com/hyperworkchat/hyperwork/internal/models"
	"github.com/hyperworkchat/hyperwork/internal/realtime"
	"github.com/hyperworkchat/hyperwork/store"
)

const (
	MaxGroupName        = 100
	MaxGroupDescription = 500
)

var (
	ErrGroupName = &apperr.Error{
		Message: "a group name of at most 100 characters is required",
	}

	ErrGroupDescription = &apperr.Error{
		Message: "a group description cannot be longer than 500 characters",
	}

	ErrNoSuchGroup = &apperr.Error{
		Message: "group not found",
	}

	ErrOtherClass = &apperr.Error{
		Message: "this group belongs to another class",
	}

	ErrNotMember = &apperr.Error{
		Message: "you are not a member of this group: join it first",
	}
)

type newGroup struct {
	Name        string `validate:"required,max=100"`
	Description string `validate:"max=500"`
}

func checkGroup(name, description string) error {
	err := validate.Struct(newGroup{Name: name, Description: description})
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Field() == "Description" {
		return ErrGroupDescription
	}

	return ErrGroupName
}

func groupErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNoSuchGroup
	}

	return err
}

// visible reports whether a user with profile p may see and join g. Students
// with a class only see the groups of their class.
func visible(p models.Profile, g models.Group) bool {
	if p.Role == models.RoleTeacher || p.ClassSection == "" || g.ClassSection == "" {
		return true
	}

	return p.ClassSection == g.ClassSection
}

// CreateGroup creates a group in the creator's class. The creator is its
// first member. A teacher's group also starts with every student of the
// teacher's class.
func (s *Service) CreateGroup(
	ctx context.Context,
	u models.User,
	name, description string,
) (models.Group, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)

	if err := checkGroup(name, description); err != nil {
		return models.Group{}, err
	}

	creator, err := s.db.GetProfile(ctx, u.ID)
	if err != nil {
		return models.Group{}, err
	}

	members := []string{u.ID}

	if u.IsTeacher() && creator.ClassSection != "" {
		students, err := s.db.ListProfiles(ctx, store.ProfileFilter{
			Role:         models.RoleStudent,
			ClassSection: creator.ClassSection,
		})
		if err != nil {
			return models.Group{}, err
		}

		for i := range students {
			members = append(members, students[i].ID)
		}
	}

	return s.db.CreateGroup(ctx, models.Group{
		Name:         name,
		Description:  description,
		ClassSection: creator.ClassSection,
		CreatedBy:    u.ID,
		CreatedAt:    s.now(),
	}, members)
}

// Groups returns the groups u can see, newest first. A failed read yields no
// groups.
func (s *Service) Groups(ctx context.Context, u models.User) ([]models.Group, error) {
	p, err := s.db.GetProfile(ctx, u.ID)
	if err != nil {
		slog.WarnContext(ctx, "reading profile failed, listing every group",
			slog.String("user_id", u.ID),
			slog.Any("error", err),
		)
	}

	class := ""
	if p.Role == models.RoleStudent {
		class = p.ClassSection
	}

	groups, err := s.db.ListGroups(ctx, class)
	if err != nil {
		slog.WarnContext(ctx, "reading groups failed, showing none",
			slog.Any("error", err),
		)

		return []models.Group{}, nil
	}

	if groups == nil {
		groups = []models.Group{}
	}

	return groups, nil
}

// Join adds u to a group of their class.
func (s *Service) Join(ctx context.Context, u models.User, groupID string) (models.Group, error) {
	g, err := s.db.GetGroup(ctx, groupID)
	if err != nil {
		return g, groupErr(err)
	}

	p, err := s.db.GetProfile(ctx, u.ID)
	if err != nil {
		return g, err
	}

	if !visible(p, g) {
		return g, ErrOtherClass
	}

	return g, groupErr(s.db.AddGroupMember(ctx, groupID, u.ID))
}

func (s *Service) requireMember(ctx context.Context, u models.User, groupID string) error {
	if _, err := s.db.GetGroup(ctx, groupID); err != nil {
		return groupErr(err)
	}

	ok, err := s.db.IsGroupMember(ctx, groupID, u.ID)
	if err != nil {
		return err
	}

	if !ok {
		return ErrNotMember
	}

	return nil
}

// Members returns the members of a group u belongs to.
func (s *Service) Members(
	ctx context.Context,
	u models.User,
	groupID string,
) ([]models.GroupMember, error) {
	if err := s.requireMember(ctx, u, groupID); err != nil {
		return nil, err
	}

	members, err := s.db.ListGroupMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if members == nil {
		members = []models.GroupMember{}
	}

	return members, nil
}

// SendGroup posts a message from u to a group they belong to.
func (s *Service) SendGroup(
	ctx context.Context,
	u models.User,
	groupID, content string,
) (models.Message, error) {
	content = strings.TrimSpace(content)

	if err := checkContent(content); err != nil {
		return models.Message{}, err
	}

	if err := s.requireMember(ctx, u, groupID); err != nil {
		return models.Message{}, err
	}

	m, err := s.db.AddGroupMessage(ctx, models.Message{
		GroupID:   groupID,
		UserID:    u.ID,
		Author:    s.author(ctx, u.ID),
		Content:   content,
		CreatedAt: s.now(),
	})
	if err != nil {
		return models.Message{}, groupErr(err)
	}

	err = s.broker.Publish(ctx, realtime.GroupTopic(groupID), m)
	if err != nil {
		slog.WarnContext(ctx, "publishing group message failed",
			slog.String("group_id", groupID),
			slog.String("message_id", m.ID),
			slog.Any("error", err),
		)
	}

	return m, nil
}

// GroupHistory returns the most recent messages of a group u belongs to,
// oldest first. A failed read yields no messages.
func (s *Service) GroupHistory(
	ctx context.Context,
	u models.User,
	groupID string,
	limit int,
) ([]models.Message, error) {
	if err := s.requireMember(ctx, u, groupID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = DefaultHistory
	}

	msgs, err := s.db.ListGroupMessages(ctx, groupID, limit)
	if err != nil {
		slog.WarnContext(ctx, "reading group messages failed, showing none",
			slog.String("group_id", groupID),
			slog.Any("error", err),
		)

		return []models.Message{}, nil
	}

	if msgs == nil {
		msgs = []models.Message{}
	}

	return msgs, nil
}

// SubscribeGroup streams new messages of a group u belongs to, like
// Subscribe.
func (s *Service) SubscribeGroup(
	ctx context.Context,
	u models.User,
	groupID string,
) (<-chan models.Message, func(), error) {
	if err := s.requireMember(ctx, u, groupID); err != nil {
		return nil, nil, err
	}

	return s.subscribe(ctx, realtime.GroupTopic(groupID))
}
