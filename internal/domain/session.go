package domain

import (
	"encoding/json"
	"time"
)

// Session is one active broadcast. Its platform handles are needed to
// release the broadcast on end.
type Session struct {
	Name          string    `json:"streamName"`
	PositiveCount int       `json:"positiveNum"`
	NegativeCount int       `json:"negativeNum"`
	RoomID        string    `json:"roomId"`
	StreamerID    string    `json:"playerStreamerId"`
	ProcessorID   string    `json:"mediaProcessorId"`
	StartedAt     time.Time `json:"startedAt"`
}

// StartRequest is the body of POST /start.
type StartRequest struct {
	StreamName string `json:"streamName"`
}

// StreamDetails identifies every platform resource of one session.
type StreamDetails struct {
	StreamName       string `json:"streamName"`
	RoomID           string `json:"roomId"`
	PlayerStreamerID string `json:"playerStreamerId"`
	MediaProcessorID string `json:"mediaProcessorId"`
}

// Validate reports ErrMissingParameters when any handle is empty.
func (d StreamDetails) Validate() error {
	if d.StreamName == "" || d.RoomID == "" || d.PlayerStreamerID == "" || d.MediaProcessorID == "" {
		return ErrMissingParameters
	}
	return nil
}

// EndRequest is the body of POST /end.
type EndRequest struct {
	StreamDetails *StreamDetails `json:"streamDetails"`
}

// EndResponse is returned by a successful end.
type EndResponse struct {
	Message string `json:"message"`
}

// StreamSummary is one entry of the current live listing.
type StreamSummary struct {
	StreamName       string `json:"streamName"`
	PositiveNum      int    `json:"positiveNum"`
	NegativeNum      int    `json:"negativeNum"`
	PlayerStreamerID string `json:"playerStreamerId"`
	Live             bool   `json:"live"`
}

// CurrentLive is the body returned by POST /currentlive. When nobody is
// live only Message is set and only message is encoded.
type CurrentLive struct {
	Message        string
	LiveSIDs       []string
	CurrentStreams []StreamSummary
}

func (c CurrentLive) MarshalJSON() ([]byte, error) {
	if c.Message != "" {
		return json.Marshal(struct {
			Message string `json:"message"`
		}{c.Message})
	}

	live := struct {
		LiveSIDs       []string        `json:"liveSIDs"`
		CurrentStreams []StreamSummary `json:"currentStreams"`
	}{c.LiveSIDs, c.CurrentStreams}
	if live.LiveSIDs == nil {
		live.LiveSIDs = []string{}
	}
	if live.CurrentStreams == nil {
		live.CurrentStreams = []StreamSummary{}
	}
	return json.Marshal(live)
}

// MsgNoneLive is returned when the platform reports no started streamer.
const MsgNoneLive = "No one is streaming right now"
