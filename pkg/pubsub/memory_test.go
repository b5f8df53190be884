package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan *Event) *Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestMemoryPubSubFanOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewMemoryPubSub(8)
	defer bus.Close()

	channel := ChatRelayChannel("")
	a, err := bus.Subscribe(ctx, channel)
	require.NoError(t, err)
	b, err := bus.Subscribe(ctx, channel)
	require.NoError(t, err)

	ev, err := NewEvent(EventChatMessage, "stream-1", map[string]string{"message": "hi"})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, channel, ev))

	for _, ch := range []<-chan *Event{a, b} {
		got := receive(t, ch)
		assert.Equal(t, "stream-1", got.StreamID)

		var payload map[string]string
		require.NoError(t, got.UnmarshalPayload(&payload))
		assert.Equal(t, "hi", payload["message"])
	}
}

func TestMemoryPubSubPreservesOrder(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryPubSub(16)
	defer bus.Close()

	ch, err := bus.Subscribe(ctx, "c")
	require.NoError(t, err)

	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, bus.Publish(ctx, "c", &Event{Type: EventChatMessage, StreamID: id}))
	}
	for _, id := range []string{"1", "2", "3"} {
		assert.Equal(t, id, receive(t, ch).StreamID)
	}
}

func TestMemoryPubSubContextCancelClosesChannel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	bus := NewMemoryPubSub(1)
	defer bus.Close()

	ch, err := bus.Subscribe(ctx, "c")
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestMemoryPubSubUnsubscribe(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryPubSub(1)
	defer bus.Close()

	ch, err := bus.Subscribe(ctx, "c")
	require.NoError(t, err)
	require.NoError(t, bus.Unsubscribe(ctx, "c"))

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after unsubscribe")
	}
}

func TestMemoryPubSubFullSubscriberDoesNotBlock(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryPubSub(1)
	defer bus.Close()

	_, err := bus.Subscribe(ctx, "c")
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, "c", &Event{StreamID: "1"}))
	require.NoError(t, bus.Publish(ctx, "c", &Event{StreamID: "2"}))
}

func TestMemoryPubSubClosed(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryPubSub(1)
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(ctx, "c", &Event{}), ErrClosed)
	_, err := bus.Subscribe(ctx, "c")
	assert.ErrorIs(t, err, ErrClosed)
}
