// Package relay bridges chat messages between the local hub and the
// pub/sub bus so every instance re-broadcasts every message to all of its
// connections.
package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/weiawesome/streamchat/internal/domain"
	"github.com/weiawesome/streamchat/pkg/log"
	"github.com/weiawesome/streamchat/pkg/pubsub"
)

const reconnectDelay = 2 * time.Second

// Broadcaster delivers encoded frames to every local connection.
type Broadcaster interface {
	BroadcastRaw(data []byte)
}

// Relay publishes moderated chat messages to the bus and forwards bus
// events to the local hub.
type Relay struct {
	bus        pubsub.PubSub
	hub        Broadcaster
	channel    string
	instanceID string
	logger     zerolog.Logger

	readyOnce sync.Once
	ready     chan struct{}
	done      chan struct{}
}

// New creates a Relay on channel. instanceID tags published events.
func New(bus pubsub.PubSub, hub Broadcaster, channel, instanceID string) *Relay {
	if channel == "" {
		channel = pubsub.ChatRelayChannel("")
	}
	return &Relay{
		bus:        bus,
		hub:        hub,
		channel:    channel,
		instanceID: instanceID,
		logger:     log.Component("relay").With().Str(log.FieldChannel, channel).Logger(),
		ready:      make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Publish puts msg on the bus. There is no acknowledgement and nothing is
// stored: subscribers that connect later never see it.
func (r *Relay) Publish(ctx context.Context, msg *domain.ChatMessage) error {
	event, err := pubsub.NewEvent(pubsub.EventChatMessage, msg.StreamID, domain.NewUpdateAllChatsMessage(msg))
	if err != nil {
		return fmt.Errorf("failed to encode chat event: %w", err)
	}
	event.Origin = r.instanceID

	if err := r.bus.Publish(ctx, r.channel, event); err != nil {
		return fmt.Errorf("failed to publish chat event: %w", err)
	}
	return nil
}

// Ready is closed once the first subscription is active.
func (r *Relay) Ready() <-chan struct{} { return r.ready }

// Done is closed when Run returns.
func (r *Relay) Done() <-chan struct{} { return r.done }

// Run forwards bus events to the hub until ctx is done, resubscribing when
// the subscription fails or closes.
func (r *Relay) Run(ctx context.Context) {
	defer close(r.done)

	for {
		err := r.runSubscription(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			r.logger.Warn().Err(err).Msg("relay subscription error, reconnecting")
		} else {
			r.logger.Warn().Msg("relay subscription closed, reconnecting")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (r *Relay) runSubscription(ctx context.Context) error {
	events, err := r.bus.Subscribe(ctx, r.channel)
	if err != nil {
		return err
	}
	r.readyOnce.Do(func() { close(r.ready) })
	r.logger.Info().Msg("relay subscribed")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			r.handleEvent(ev)
		}
	}
}

func (r *Relay) handleEvent(ev *pubsub.Event) {
	if ev.Type != pubsub.EventChatMessage {
		r.logger.Debug().Str("event_type", ev.Type).Msg("ignoring event")
		return
	}
	if len(ev.Payload) == 0 {
		r.logger.Warn().Str(log.FieldStreamID, ev.StreamID).Msg("chat event without payload")
		return
	}
	r.hub.BroadcastRaw(ev.Payload)
}
