package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profileEvent struct {
	ID          string `json:"id"`
	TotalPoints int    `json:"total_points"`
}

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()

	select {
	case evt, ok := <-sub.C:
		require.True(t, ok, "subscription closed unexpectedly")
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}

	return Event{}
}

func TestMemoryPublishSubscribe(t *testing.T) {
	b := NewMemory()
	defer b.Close()

	ctx := context.Background()

	topic := ProfileTopic("user-1")

	first, err := b.Subscribe(ctx, topic)
	require.NoError(t, err)

	second, err := b.Subscribe(ctx, topic)
	require.NoError(t, err)

	other, err := b.Subscribe(ctx, ProfileTopic("user-2"))
	require.NoError(t, err)

	err = b.Publish(ctx, topic, profileEvent{ID: "user-1", TotalPoints: 150})
	require.NoError(t, err)

	for _, sub := range []*Subscription{first, second} {
		evt := receive(t, sub)

		var got profileEvent

		require.NoError(t, evt.Decode(&got))
		assert.Equal(t, topic, evt.Topic)
		assert.Equal(t, 150, got.TotalPoints)
	}

	select {
	case evt := <-other.C:
		t.Fatalf("unexpected event on unrelated topic: %v", evt)
	default:
	}
}

func TestMemorySubscriptionClose(t *testing.T) {
	b := NewMemory()

	sub, err := b.Subscribe(context.Background(), TopicChat)
	require.NoError(t, err)

	sub.Close()
	sub.Close()

	_, ok := <-sub.C
	assert.False(t, ok)

	assert.NoError(t, b.Publish(context.Background(), TopicChat, "hello"))
	assert.Empty(t, b.subs)
}

func TestMemoryContextCancel(t *testing.T) {
	b := NewMemory()

	ctx, cancel := context.WithCancel(context.Background())

	sub, err := b.Subscribe(ctx, TopicChat)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-sub.C:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription not closed after cancel")
	}
}

func TestMemoryClose(t *testing.T) {
	b := NewMemory()

	sub, err := b.Subscribe(context.Background(), TopicChat)
	require.NoError(t, err)

	require.NoError(t, b.Close())

	_, ok := <-sub.C
	assert.False(t, ok)

	_, err = b.Subscribe(context.Background(), TopicChat)
	assert.ErrorIs(t, err, errBrokerClosed)

	// closing an already ended subscription is harmless
	sub.Close()
}

func TestMemorySlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewMemory()
	defer b.Close()

	sub, err := b.Subscribe(context.Background(), TopicChat)
	require.NoError(t, err)

	done := make(chan struct{})

	go func() {
		for i := 0; i < subscriptionBuffer*2; i++ {
			_ = b.Publish(context.Background(), TopicChat, i)
		}

		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on a full subscriber")
	}

	assert.Len(t, sub.C, subscriptionBuffer)
}
