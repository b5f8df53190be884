// Package platform talks to the media platform that hosts rooms, player
// streamers and media processors.
package platform

import (
	"context"
	"encoding/json"
	"time"
)

// Resource statuses used by the service.
const (
	RoomTypeGo = "go"

	StatusStarted   = "started"
	StatusEnded     = "ended"
	StatusCompleted = "completed"

	ExtensionVideoComposer = "video-composer-v1"
)

// Room is a video room.
type Room struct {
	SID        string `json:"sid"`
	UniqueName string `json:"unique_name"`
	Status     string `json:"status"`
	Type       string `json:"type"`
}

// PlayerStreamer is a distribution endpoint viewers play from.
type PlayerStreamer struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// MediaProcessor composes a room into one or more player streamers.
type MediaProcessor struct {
	SID       string `json:"sid"`
	Status    string `json:"status"`
	Extension string `json:"extension"`
}

// Client is the media platform boundary. All failures are *domain.PlatformError.
type Client interface {
	CreateRoom(ctx context.Context, uniqueName string) (*Room, error)
	CompleteRoom(ctx context.Context, roomSID string) error

	CreatePlayerStreamer(ctx context.Context) (*PlayerStreamer, error)
	EndPlayerStreamer(ctx context.Context, playerStreamerSID string) error
	ListPlayerStreamers(ctx context.Context, status string) ([]PlayerStreamer, error)

	CreateMediaProcessor(ctx context.Context, roomSID, playerStreamerSID string) (*MediaProcessor, error)
	EndMediaProcessor(ctx context.Context, mediaProcessorSID string) error

	// CreatePlaybackGrant returns the opaque grant for a player streamer.
	CreatePlaybackGrant(ctx context.Context, playerStreamerSID string, ttl time.Duration) (json.RawMessage, error)
}
