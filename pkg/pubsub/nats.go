package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	applog "github.com/weiawesome/streamchat/pkg/log"
)

// NATSPubSub implements PubSub interface using core NATS subjects.
type NATSPubSub struct {
	conn          *nats.Conn
	subscriptions map[string]*nats.Subscription
	buffer        int
	logger        zerolog.Logger
	mu            sync.Mutex
}

// NewNATSPubSub connects to NATS and returns a PubSub backed by it.
func NewNATSPubSub(cfg NATSConfig, buffer int) (*NATSPubSub, error) {
	logger := applog.Component("pubsub.nats")

	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &NATSPubSub{
		conn:          conn,
		subscriptions: make(map[string]*nats.Subscription),
		buffer:        buffer,
		logger:        logger,
	}, nil
}

// Publish publishes an event to the subject derived from channel.
func (n *NATSPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return n.conn.Publish(channelToSubject(channel), data)
}

// Subscribe subscribes to the subject derived from channel.
func (n *NATSPubSub) Subscribe(ctx context.Context, channel string) (<-chan *Event, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if existing, ok := n.subscriptions[channel]; ok {
		existing.Unsubscribe()
		delete(n.subscriptions, channel)
	}

	msgCh := make(chan *nats.Msg, n.buffer)
	sub, err := n.conn.ChanSubscribe(channelToSubject(channel), msgCh)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}
	// Make sure the server has registered interest before returning.
	if err := n.conn.Flush(); err != nil {
		sub.Unsubscribe()
		return nil, fmt.Errorf("failed to flush subscription: %w", err)
	}
	n.subscriptions[channel] = sub

	eventCh := make(chan *Event, n.buffer)
	go n.processMessages(ctx, sub, msgCh, eventCh)

	return eventCh, nil
}

func (n *NATSPubSub) processMessages(ctx context.Context, sub *nats.Subscription, msgCh <-chan *nats.Msg, eventCh chan<- *Event) {
	defer close(eventCh)
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			var event Event
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				n.logger.Warn().Err(err).Msg("dropping malformed event")
				continue
			}

			select {
			case eventCh <- &event:
			case <-ctx.Done():
				return
			default:
				n.logger.Warn().Str(applog.FieldStreamID, event.StreamID).Msg("subscriber buffer full, event dropped")
			}
		}
	}
}

// Unsubscribe removes the subscription for channel.
func (n *NATSPubSub) Unsubscribe(ctx context.Context, channel string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if sub, ok := n.subscriptions[channel]; ok {
		delete(n.subscriptions, channel)
		return sub.Unsubscribe()
	}
	return nil
}

// Close drains subscriptions and closes the connection.
func (n *NATSPubSub) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	for key, sub := range n.subscriptions {
		sub.Unsubscribe()
		delete(n.subscriptions, key)
	}
	n.conn.Close()
	return nil
}
