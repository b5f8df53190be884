package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/weiawesome/streamchat/internal/domain"
	"github.com/weiawesome/streamchat/internal/platform"
	"github.com/weiawesome/streamchat/internal/repository"
)

// fakePlatform records calls and fails the operation named in failOn.
type fakePlatform struct {
	mu      sync.Mutex
	calls   []string
	failOn  string
	live    []platform.PlayerStreamer
	seq     int
	started chan struct{} // if set, CreateRoom signals and waits on proceed
	proceed chan struct{}

	listDelay   time.Duration
	listStarted chan struct{}
	listOnce    sync.Once
}

func (f *fakePlatform) call(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	if f.failOn == op {
		return &domain.PlatformError{Op: op, Status: 400, Err: errors.New("rejected")}
	}
	return nil
}

func (f *fakePlatform) nextSID(prefix string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	return fmt.Sprintf("%s%d", prefix, f.seq)
}

func (f *fakePlatform) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakePlatform) CreateRoom(ctx context.Context, uniqueName string) (*platform.Room, error) {
	if f.started != nil {
		f.started <- struct{}{}
		<-f.proceed
	}
	if err := f.call("create room"); err != nil {
		return nil, err
	}
	return &platform.Room{SID: f.nextSID("RM"), UniqueName: uniqueName}, nil
}

func (f *fakePlatform) CompleteRoom(ctx context.Context, roomSID string) error {
	return f.call("complete room")
}

func (f *fakePlatform) CreatePlayerStreamer(ctx context.Context) (*platform.PlayerStreamer, error) {
	if err := f.call("create player streamer"); err != nil {
		return nil, err
	}
	return &platform.PlayerStreamer{SID: f.nextSID("VJ")}, nil
}

func (f *fakePlatform) EndPlayerStreamer(ctx context.Context, sid string) error {
	return f.call("end player streamer")
}

func (f *fakePlatform) ListPlayerStreamers(ctx context.Context, status string) ([]platform.PlayerStreamer, error) {
	if err := f.call("list player streamers"); err != nil {
		return nil, err
	}
	if f.listStarted != nil {
		f.listOnce.Do(func() { close(f.listStarted) })
	}
	if f.listDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.listDelay):
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]platform.PlayerStreamer(nil), f.live...), nil
}

func (f *fakePlatform) CreateMediaProcessor(ctx context.Context, roomSID, streamerSID string) (*platform.MediaProcessor, error) {
	if err := f.call("create media processor"); err != nil {
		return nil, err
	}
	return &platform.MediaProcessor{SID: f.nextSID("ZX")}, nil
}

func (f *fakePlatform) EndMediaProcessor(ctx context.Context, sid string) error {
	return f.call("end media processor")
}

func (f *fakePlatform) CreatePlaybackGrant(ctx context.Context, sid string, ttl time.Duration) (json.RawMessage, error) {
	if err := f.call("create playback grant"); err != nil {
		return nil, err
	}
	return json.RawMessage(`{"playbackUrl":"https://example/p"}`), nil
}

// memoryHistory keeps records in a slice.
type memoryHistory struct {
	mu      sync.Mutex
	records []domain.HistoryRecord
}

func (m *memoryHistory) Record(ctx context.Context, rec *domain.HistoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, *rec)
	return nil
}

func (m *memoryHistory) List(ctx context.Context, filter repository.HistoryFilter) ([]domain.HistoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.HistoryRecord
	for _, r := range m.records {
		if filter.Status == "" || r.Status == filter.Status {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryHistory) last() domain.HistoryRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[len(m.records)-1]
}
