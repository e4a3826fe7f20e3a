// Package chat implements the class chat room and class chat groups
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hyperworkchat/hyperwork/internal/apperr"
	"github.com/hyperworkchat/hyperwork/internal/models"
	"github.com/hyperworkchat/hyperwork/internal/realtime"
	"github.com/hyperworkchat/hyperwork/store"
)

const (
	DefaultHistory = 50
	MaxLength      = 500

	anonymous = "Anonymous"
)

var (
	ErrEmptyMessage = &apperr.Error{
		Message: "message cannot be empty",
	}

	ErrMessageTooLong = &apperr.Error{
		Message: "message cannot be longer than 500 characters",
	}
)

var validate = validator.New()

type outgoing struct {
	Content string `validate:"required,max=500"`
}

// Store persists chat messages and groups and reads profiles.
type Store interface {
	store.ChatStore
	store.GroupStore
	GetProfile(ctx context.Context, id string) (models.Profile, error)
	ListProfiles(ctx context.Context, filter store.ProfileFilter) ([]models.Profile, error)
}

// Service sends, lists and streams chat messages.
type Service struct {
	db     Store
	broker realtime.Broker
	now    func() time.Time
}

func NewService(db Store, broker realtime.Broker) *Service {
	return &Service{
		db:     db,
		broker: broker,
		now:    time.Now,
	}
}

func checkContent(content string) error {
	err := validate.Struct(outgoing{Content: content})
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Tag() == "max" {
		return ErrMessageTooLong
	}

	return ErrEmptyMessage
}

func (s *Service) author(ctx context.Context, userID string) string {
	p, err := s.db.GetProfile(ctx, userID)
	if err != nil {
		slog.WarnContext(ctx, "reading message author failed",
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

// Send posts a message from u to the class chat.
func (s *Service) Send(ctx context.Context, u models.User, content string) (models.Message, error) {
	content = strings.TrimSpace(content)

	if err := checkContent(content); err != nil {
		return models.Message{}, err
	}

	m, err := s.db.AddMessage(ctx, models.Message{
		UserID:    u.ID,
		Author:    s.author(ctx, u.ID),
		Content:   content,
		CreatedAt: s.now(),
	})
	if err != nil {
		return models.Message{}, err
	}

	err = s.broker.Publish(ctx, realtime.TopicChat, m)
	if err != nil {
		slog.WarnContext(ctx, "publishing chat message failed",
			slog.String("message_id", m.ID),
			slog.Any("error", err),
		)
	}

	return m, nil
}

// History returns the most recent messages, oldest first. A failed read
// yields no messages.
func (s *Service) History(ctx context.Context, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = DefaultHistory
	}

	msgs, err := s.db.ListMessages(ctx, limit)
	if err != nil {
		slog.WarnContext(ctx, "reading chat history failed, showing no messages",
			slog.Any("error", err),
		)

		return []models.Message{}, nil
	}

	if msgs == nil {
		msgs = []models.Message{}
	}

	return msgs, nil
}

// Subscribe streams new messages until ctx is cancelled or the returned
// function is called. The channel is closed when the stream ends.
func (s *Service) Subscribe(ctx context.Context) (<-chan models.Message, func(), error) {
	return s.subscribe(ctx, realtime.TopicChat)
}

func (s *Service) subscribe(
	ctx context.Context,
	topic string,
) (<-chan models.Message, func(), error) {
	sub, err := s.broker.Subscribe(ctx, topic)
	if err != nil {
		return nil, nil, err
	}

	var (
		out  = make(chan models.Message)
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
			var m models.Message

			if err := evt.Decode(&m); err != nil {
				slog.Warn("decoding chat message failed", slog.Any("error", err))
				continue
			}

			select {
			case out <- m:
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
