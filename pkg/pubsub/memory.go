package pubsub

import (
	"context"
	"errors"
	"sync"

	applog "github.com/weiawesome/streamchat/pkg/log"
)

// ErrClosed is returned when publishing or subscribing on a closed bus.
var ErrClosed = errors.New("pubsub: closed")

type memorySubscription struct {
	ch   chan *Event
	done chan struct{}
	once sync.Once
}

func (s *memorySubscription) stop() {
	s.once.Do(func() { close(s.done) })
}

// MemoryPubSub is an in-process PubSub for single instance deployments
// and tests. Delivery to a full subscriber is dropped, never blocked.
type MemoryPubSub struct {
	mu     sync.RWMutex
	subs   map[string][]*memorySubscription
	buffer int
	closed bool
}

// NewMemoryPubSub creates an in-process PubSub.
func NewMemoryPubSub(buffer int) *MemoryPubSub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &MemoryPubSub{
		subs:   make(map[string][]*memorySubscription),
		buffer: buffer,
	}
}

// Publish delivers event to every current subscriber of channel.
func (m *MemoryPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}

	for _, sub := range m.subs[channel] {
		select {
		case sub.ch <- event:
		case <-ctx.Done():
			return ctx.Err()
		default:
			l := applog.Component("pubsub.memory")
			l.Warn().
				Str(applog.FieldChannel, channel).
				Str(applog.FieldStreamID, event.StreamID).
				Msg("subscriber buffer full, event dropped")
		}
	}
	return nil
}

// Subscribe registers a subscriber on channel. The returned channel is
// closed when ctx is done, on Unsubscribe, or on Close.
func (m *MemoryPubSub) Subscribe(ctx context.Context, channel string) (<-chan *Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	sub := &memorySubscription{
		ch:   make(chan *Event, m.buffer),
		done: make(chan struct{}),
	}
	m.subs[channel] = append(m.subs[channel], sub)

	go func() {
		select {
		case <-ctx.Done():
		case <-sub.done:
		}
		m.remove(channel, sub)
	}()

	return sub.ch, nil
}

func (m *MemoryPubSub) remove(channel string, target *memorySubscription) {
	m.mu.Lock()
	defer m.mu.Unlock()

	subs := m.subs[channel]
	for i, sub := range subs {
		if sub == target {
			m.subs[channel] = append(subs[:i:i], subs[i+1:]...)
			close(sub.ch)
			break
		}
	}
	if len(m.subs[channel]) == 0 {
		delete(m.subs, channel)
	}
}

// Unsubscribe removes every subscriber of channel.
func (m *MemoryPubSub) Unsubscribe(ctx context.Context, channel string) error {
	m.mu.RLock()
	subs := append([]*memorySubscription(nil), m.subs[channel]...)
	m.mu.RUnlock()

	for _, sub := range subs {
		sub.stop()
	}
	return nil
}

// Close removes all subscribers. Further Publish and Subscribe calls fail.
func (m *MemoryPubSub) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	var all []*memorySubscription
	for _, subs := range m.subs {
		all = append(all, subs...)
	}
	m.mu.Unlock()

	for _, sub := range all {
		sub.stop()
	}
	return nil
}
