package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/weiawesome/streamchat/internal/audit"
	"github.com/weiawesome/streamchat/internal/domain"
	"github.com/weiawesome/streamchat/internal/platform"
	"github.com/weiawesome/streamchat/internal/registry"
	"github.com/weiawesome/streamchat/internal/repository"
	"github.com/weiawesome/streamchat/pkg/log"
)

// lifecycleServiceImpl implements LifecycleService interface.
type lifecycleServiceImpl struct {
	platform platform.Client
	registry *registry.Registry
	history  repository.HistoryRepository
	now      func() time.Time

	mu       sync.Mutex
	starting map[string]struct{} // names with a start in flight

	live singleflight.Group
}

// NewLifecycleService creates a new lifecycle service. history may be nil.
func NewLifecycleService(client platform.Client, reg *registry.Registry, history repository.HistoryRepository) LifecycleService {
	if history == nil {
		history = repository.NopHistoryRepository{}
	}
	return &lifecycleServiceImpl{
		platform: client,
		registry: reg,
		history:  history,
		now:      time.Now,
		starting: make(map[string]struct{}),
	}
}

// Start provisions a room, a player streamer and a media processor, in
// that order, then registers the session. Resources created before a
// failing step are left in place and recorded as start_failed.
func (s *lifecycleServiceImpl) Start(ctx context.Context, streamName string) (*domain.StreamDetails, error) {
	if streamName == "" {
		return nil, domain.ErrMissingParameters
	}
	if err := s.reserve(streamName); err != nil {
		return nil, err
	}
	defer s.release(streamName)

	ctx = log.WithStr(ctx, log.FieldStreamName, streamName)
	l := log.Ctx(ctx)
	details := &domain.StreamDetails{StreamName: streamName}

	room, err := s.platform.CreateRoom(ctx, streamName)
	if err != nil {
		return nil, s.startFailed(ctx, details, "create room", err)
	}
	details.RoomID = room.SID

	streamer, err := s.platform.CreatePlayerStreamer(ctx)
	if err != nil {
		return nil, s.startFailed(ctx, details, "create player streamer", err)
	}
	details.PlayerStreamerID = streamer.SID

	processor, err := s.platform.CreateMediaProcessor(ctx, room.SID, streamer.SID)
	if err != nil {
		return nil, s.startFailed(ctx, details, "create media processor", err)
	}
	details.MediaProcessorID = processor.SID

	session := domain.Session{
		Name:        streamName,
		RoomID:      room.SID,
		StreamerID:  streamer.SID,
		ProcessorID: processor.SID,
		StartedAt:   s.now(),
	}
	if err := s.registry.Register(session); err != nil {
		return nil, s.startFailed(ctx, details, "register session", err)
	}

	s.record(ctx, details, domain.HistoryStatusLive, "", nil)
	l.Info().
		Str(log.FieldRoomID, details.RoomID).
		Str(log.FieldStreamerID, details.PlayerStreamerID).
		Str(log.FieldProcessorID, details.MediaProcessorID).
		Msg("stream started")
	audit.LogWithDetail(ctx, audit.ActionStreamStart, streamName, details.RoomID, "stream started")

	return details, nil
}

func (s *lifecycleServiceImpl) reserve(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, inFlight := s.starting[name]; inFlight || s.registry.Contains(name) {
		return domain.ErrDuplicateSession
	}
	s.starting[name] = struct{}{}
	return nil
}

func (s *lifecycleServiceImpl) release(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.starting, name)
}

func (s *lifecycleServiceImpl) startFailed(ctx context.Context, details *domain.StreamDetails, step string, err error) error {
	l := log.Ctx(ctx)
	l.Error().Err(err).
		Str("step", step).
		Str(log.FieldRoomID, details.RoomID).
		Str(log.FieldStreamerID, details.PlayerStreamerID).
		Msg("stream start failed, partial resources left in place")
	audit.LogWithDetail(ctx, audit.ActionStreamStartFailed, details.StreamName, step, "stream start failed")

	s.record(ctx, details, domain.HistoryStatusStartFailed, step, err)
	return err
}

// End releases the media processor, the player streamer and the room, in
// that order, and only then deregisters the session. The first failing
// step aborts the rest and the session stays registered.
func (s *lifecycleServiceImpl) End(ctx context.Context, details *domain.StreamDetails) (*domain.EndResponse, error) {
	if details == nil {
		return nil, domain.ErrMissingParameters
	}
	if err := details.Validate(); err != nil {
		return nil, err
	}

	ctx = log.WithStr(ctx, log.FieldStreamName, details.StreamName)
	l := log.Ctx(ctx)

	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"end media processor", func(ctx context.Context) error {
			return s.platform.EndMediaProcessor(ctx, details.MediaProcessorID)
		}},
		{"end player streamer", func(ctx context.Context) error {
			return s.platform.EndPlayerStreamer(ctx, details.PlayerStreamerID)
		}},
		{"complete room", func(ctx context.Context) error {
			return s.platform.CompleteRoom(ctx, details.RoomID)
		}},
	}

	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			l.Error().Err(err).Str("step", step.name).Msg("stream end failed")
			audit.LogWithDetail(ctx, audit.ActionStreamEndFailed, details.StreamName, step.name, "stream end failed")
			s.record(ctx, details, domain.HistoryStatusEndFailed, step.name, err)
			return nil, err
		}
	}

	if !s.registry.Deregister(details.StreamName) {
		l.Warn().Msg("ended stream was not registered")
	}

	s.record(ctx, details, domain.HistoryStatusEnded, "", nil)
	l.Info().Msg("stream ended")
	audit.Log(ctx, audit.ActionStreamEnd, details.StreamName, "stream ended")

	return &domain.EndResponse{
		Message: fmt.Sprintf("Successfully ended stream %s", details.StreamName),
	}, nil
}

// CurrentLive cross-references the platform's started player streamers
// with the registry. Concurrent callers share one platform listing, which
// outlives any single caller's cancellation.
func (s *lifecycleServiceImpl) CurrentLive(ctx context.Context) (*domain.CurrentLive, error) {
	shared := context.WithoutCancel(ctx)
	ch := s.live.DoChan("current-live", func() (interface{}, error) {
		return s.registry.ListActiveFromPlatform(shared)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}

	sids := res.Val.([]string)
	if len(sids) == 0 {
		return &domain.CurrentLive{Message: domain.MsgNoneLive}, nil
	}

	live := make(map[string]bool, len(sids))
	for _, sid := range sids {
		live[sid] = true
	}

	streams := []domain.StreamSummary{}
	for session := range s.registry.List() {
		streams = append(streams, domain.StreamSummary{
			StreamName:       session.Name,
			PositiveNum:      session.PositiveCount,
			NegativeNum:      session.NegativeCount,
			PlayerStreamerID: session.StreamerID,
			Live:             live[session.StreamerID],
		})
	}

	return &domain.CurrentLive{
		LiveSIDs:       sids,
		CurrentStreams: streams,
	}, nil
}

func (s *lifecycleServiceImpl) History(ctx context.Context, filter repository.HistoryFilter) ([]domain.HistoryRecord, error) {
	return s.history.List(ctx, filter)
}

func (s *lifecycleServiceImpl) Tally(ctx context.Context, streamID string, positive bool) {
	if !s.registry.Tally(streamID, positive) {
		l := log.Ctx(ctx)
		l.Debug().Str(log.FieldStreamID, streamID).Msg("chat for unregistered stream, not tallied")
	}
}

// record writes a history entry. Failures are logged and never fail the
// lifecycle operation.
func (s *lifecycleServiceImpl) record(ctx context.Context, details *domain.StreamDetails, status domain.HistoryStatus, step string, cause error) {
	rec := &domain.HistoryRecord{
		StreamName:  details.StreamName,
		Status:      status,
		RoomID:      details.RoomID,
		StreamerID:  details.PlayerStreamerID,
		ProcessorID: details.MediaProcessorID,
		FailedStep:  step,
	}
	if cause != nil {
		rec.Error = cause.Error()
	}
	if err := s.history.Record(ctx, rec); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str("status", string(status)).Msg("failed to record session history")
	}
}
