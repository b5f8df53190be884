// Package registry keeps the set of sessions that are currently live.
//
// Mutation is reserved to the lifecycle service. Every read hands out
// copies, never the backing map.
package registry

import (
	"context"
	"iter"
	"sort"
	"sync"

	"github.com/weiawesome/streamchat/internal/domain"
	"github.com/weiawesome/streamchat/internal/platform"
)

// LiveLister lists player streamers by status on the media platform.
type LiveLister interface {
	ListPlayerStreamers(ctx context.Context, status string) ([]platform.PlayerStreamer, error)
}

// Registry is an in-memory index of live sessions keyed by name.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	order    []string // registration order of names
	lister   LiveLister
}

// New creates an empty registry. lister may be nil when no platform
// listing is needed.
func New(lister LiveLister) *Registry {
	return &Registry{
		sessions: make(map[string]*domain.Session),
		lister:   lister,
	}
}

// Register adds session. It fails with domain.ErrDuplicateSession if a
// session with the same name is already registered.
func (r *Registry) Register(session domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[session.Name]; ok {
		return domain.ErrDuplicateSession
	}
	s := session
	r.sessions[session.Name] = &s
	r.order = append(r.order, session.Name)
	return nil
}

// Deregister removes the session named name and reports whether one was
// removed. Absent names are a no-op.
func (r *Registry) Deregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[name]; !ok {
		return false
	}
	delete(r.sessions, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Get returns a copy of the session named name.
func (r *Registry) Get(name string) (domain.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[name]
	if !ok {
		return domain.Session{}, false
	}
	return *s, true
}

// Contains reports whether a session named name is registered.
func (r *Registry) Contains(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[name]
	return ok
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// List returns the sessions registered at call time, in registration
// order. The sequence can be ranged over any number of times and is not
// affected by later mutation.
func (r *Registry) List() iter.Seq[domain.Session] {
	snapshot := r.snapshot()
	return func(yield func(domain.Session) bool) {
		for _, s := range snapshot {
			if !yield(s) {
				return
			}
		}
	}
}

func (r *Registry) snapshot() []domain.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Session, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, *r.sessions[name])
	}
	return out
}

// Tally counts one chat message against the session whose player streamer
// is streamerID. It reports false when no such session is registered.
func (r *Registry) Tally(streamerID string, positive bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		if s.StreamerID != streamerID {
			continue
		}
		if positive {
			s.PositiveCount++
		} else {
			s.NegativeCount++
		}
		return true
	}
	return false
}

// ListActiveFromPlatform returns the SIDs of player streamers the platform
// reports as started, sorted.
func (r *Registry) ListActiveFromPlatform(ctx context.Context) ([]string, error) {
	if r.lister == nil {
		return nil, nil
	}
	streamers, err := r.lister.ListPlayerStreamers(ctx, platform.StatusStarted)
	if err != nil {
		return nil, err
	}

	sids := make([]string, 0, len(streamers))
	for _, ps := range streamers {
		sids = append(sids, ps.SID)
	}
	sort.Strings(sids)
	return sids, nil
}
