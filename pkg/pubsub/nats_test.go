package pubsub

import (
	"context"
	"fmt"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startTestNATS starts an embedded NATS server and returns its client URL.
func startTestNATS(t *testing.T) string {
	t.Helper()
	srv, err := natsserver.NewServer(&natsserver.Options{Host: "127.0.0.1", Port: -1})
	require.NoError(t, err)
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}
	return srv.ClientURL()
}

func newNATSPubSub(t *testing.T, url string) *NATSPubSub {
	t.Helper()
	ps, err := NewNATSPubSub(NATSConfig{URL: url, Name: "streamchat-test"}, 16)
	require.NoError(t, err)
	t.Cleanup(func() { ps.Close() })
	return ps
}

func TestNATSPubSubRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	url := startTestNATS(t)
	pub := newNATSPubSub(t, url)
	sub := newNATSPubSub(t, url)
	channel := ChatRelayChannel("test")

	ch, err := sub.Subscribe(ctx, channel)
	require.NoError(t, err)

	ev, err := NewEvent(EventChatMessage, "VJ7", map[string]any{"positive": false})
	require.NoError(t, err)
	ev.Origin = "instance-a"
	require.NoError(t, pub.Publish(ctx, channel, ev))

	got := receive(t, ch)
	assert.Equal(t, EventChatMessage, got.Type)
	assert.Equal(t, "VJ7", got.StreamID)
	assert.Equal(t, "instance-a", got.Origin)
	assert.JSONEq(t, `{"positive":false}`, string(got.Payload))
}

func TestNATSPubSubPreservesPublishOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	url := startTestNATS(t)
	ps := newNATSPubSub(t, url)
	channel := ChatRelayChannel("order")

	ch, err := ps.Subscribe(ctx, channel)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		ev, err := NewEvent(EventChatMessage, fmt.Sprintf("VJ%d", i), i)
		require.NoError(t, err)
		require.NoError(t, ps.Publish(ctx, channel, ev))
	}

	for i := 0; i < 10; i++ {
		got := receive(t, ch)
		assert.Equal(t, fmt.Sprintf("VJ%d", i), got.StreamID)
	}
}

func TestNATSPubSubChannelsAreIsolated(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ps := newNATSPubSub(t, startTestNATS(t))

	ch, err := ps.Subscribe(ctx, ChatRelayChannel("a"))
	require.NoError(t, err)

	other, err := NewEvent(EventChatMessage, "other", nil)
	require.NoError(t, err)
	require.NoError(t, ps.Publish(ctx, ChatRelayChannel("b"), other))

	mine, err := NewEvent(EventChatMessage, "mine", nil)
	require.NoError(t, err)
	require.NoError(t, ps.Publish(ctx, ChatRelayChannel("a"), mine))

	assert.Equal(t, "mine", receive(t, ch).StreamID)
}

func TestNATSPubSubClosesOnContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	ps := newNATSPubSub(t, startTestNATS(t))
	ch, err := ps.Subscribe(ctx, ChatRelayChannel("test"))
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "expected closed channel")
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed after cancel")
	}
}

func TestNATSPubSubConnectFailure(t *testing.T) {
	_, err := NewNATSPubSub(NATSConfig{URL: "nats://127.0.0.1:1"}, 0)
	assert.Error(t, err)
}
