package service

import (
	"context"

	"github.com/weiawesome/streamchat/internal/domain"
	"github.com/weiawesome/streamchat/internal/repository"
)

// LifecycleService starts and ends broadcast sessions. It is the only
// writer of the session registry.
type LifecycleService interface {
	Start(ctx context.Context, streamName string) (*domain.StreamDetails, error)
	End(ctx context.Context, details *domain.StreamDetails) (*domain.EndResponse, error)
	CurrentLive(ctx context.Context) (*domain.CurrentLive, error)
	History(ctx context.Context, filter repository.HistoryFilter) ([]domain.HistoryRecord, error)
	Tally(ctx context.Context, streamID string, positive bool)
}

// ChatService classifies chat text and relays the moderated result.
type ChatService interface {
	Classify(ctx context.Context, text string) (*domain.Classification, error)
	SendChat(ctx context.Context, streamID, text string) (*domain.ChatMessage, error)
}

// ChatPublisher puts a moderated message on the relay.
type ChatPublisher interface {
	Publish(ctx context.Context, msg *domain.ChatMessage) error
}

// SentimentTally counts a relayed message against its session.
type SentimentTally interface {
	Tally(ctx context.Context, streamID string, positive bool)
}
