package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

type memorySub struct {
	ch   chan Event
	done chan struct{}
	once sync.Once
}

// stop closes the subscriber's channels. The subscriber must already be
// removed from the topic map so that no publisher can still send to it.
func (s *memorySub) stop() {
	s.once.Do(func() {
		close(s.ch)
		close(s.done)
	})
}

// Memory is an in-process broker. Slow subscribers miss events rather than
// block publishers.
type Memory struct {
	subs   map[string]map[*memorySub]struct{}
	mu     sync.RWMutex
	closed bool
}

func NewMemory() *Memory {
	return &Memory{
		subs: make(map[string]map[*memorySub]struct{}),
	}
}

func (m *Memory) Publish(_ context.Context, topic string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	evt := Event{Topic: topic, Payload: b}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for sub := range m.subs[topic] {
		select {
		case sub.ch <- evt:
		default:
			slog.Warn("dropping realtime event for slow subscriber",
				slog.String("topic", topic))
		}
	}

	return nil
}

func (m *Memory) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	sub := &memorySub{
		ch:   make(chan Event, subscriptionBuffer),
		done: make(chan struct{}),
	}

	m.mu.Lock()

	if m.closed {
		m.mu.Unlock()
		return nil, errBrokerClosed
	}

	if m.subs[topic] == nil {
		m.subs[topic] = make(map[*memorySub]struct{})
	}

	m.subs[topic][sub] = struct{}{}

	m.mu.Unlock()

	unsubscribe := func() {
		m.mu.Lock()

		if topicSubs, ok := m.subs[topic]; ok {
			delete(topicSubs, sub)

			if len(topicSubs) == 0 {
				delete(m.subs, topic)
			}
		}

		m.mu.Unlock()

		sub.stop()
	}

	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-sub.done:
		}
	}()

	return &Subscription{C: sub.ch, close: unsubscribe}, nil
}

// Close ends every subscription.
func (m *Memory) Close() error {
	m.mu.Lock()

	m.closed = true

	var subs []*memorySub

	for _, topicSubs := range m.subs {
		for sub := range topicSubs {
			subs = append(subs, sub)
		}
	}

	m.subs = make(map[string]map[*memorySub]struct{})

	m.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}

	return nil
}
