// Package realtime delivers change notifications (profile updates, chat
// messages) to interested subscribers
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hyperworkchat/hyperwork/internal/config"
)

const (
	// TopicChat carries every new chat message
	TopicChat = "chat:messages"
	// TopicExam carries exam countdown announcements and results
	TopicExam = "exam:events"

	topicProfilePrefix = "profiles:"
	topicGroupPrefix   = "chat:group:"

	subscriptionBuffer = 16
)

var errBrokerClosed = errors.New("realtime broker is closed")

// ProfileTopic returns the topic that carries changes to a user's profile.
func ProfileTopic(userID string) string {
	return topicProfilePrefix + userID
}

// GroupTopic returns the topic that carries the messages of a chat group.
func GroupTopic(groupID string) string {
	return topicGroupPrefix + groupID
}

// Event is a message delivered to subscribers.
type Event struct {
	Topic   string
	Payload json.RawMessage
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// Broker publishes values to topics and fans them out to subscribers.
type Broker interface {
	// Publish encodes v as JSON and delivers it to the topic's subscribers
	Publish(ctx context.Context, topic string, v any) error
	// Subscribe returns a subscription that receives events until it is
	// closed or ctx is cancelled
	Subscribe(ctx context.Context, topic string) (*Subscription, error)
	Close() error
}

// Subscription receives the events published to a topic.
type Subscription struct {
	// C is closed once the subscription ends
	C     <-chan Event
	close func()
}

// Close ends the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.close()
}

// Open returns the broker selected by the configuration.
func Open(ctx context.Context, cfg *config.Config) (Broker, error) {
	switch cfg.Realtime.Driver {
	case config.DriverMemory, "":
		return NewMemory(), nil
	case config.DriverRedis:
		return NewRedis(ctx, cfg.Redis)
	}

	return nil, fmt.Errorf("unknown realtime driver: %s", cfg.Realtime.Driver)
}
