package domain

import "time"

// HistoryStatus is the outcome recorded for a lifecycle step.
type HistoryStatus string

const (
	HistoryStatusLive        HistoryStatus = "live"
	HistoryStatusStartFailed HistoryStatus = "start_failed"
	HistoryStatusEndFailed   HistoryStatus = "end_failed"
	HistoryStatusEnded       HistoryStatus = "ended"
)

// HistoryRecord is one lifecycle event of a session, kept so operators can
// reconcile platform resources left behind by a partial start or end.
type HistoryRecord struct {
	ID          string        `json:"id"`
	StreamName  string        `json:"streamName"`
	Status      HistoryStatus `json:"status"`
	RoomID      string        `json:"roomId,omitempty"`
	StreamerID  string        `json:"playerStreamerId,omitempty"`
	ProcessorID string        `json:"mediaProcessorId,omitempty"`
	FailedStep  string        `json:"failedStep,omitempty"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// ListHistoryRequest is the query of GET /sessions/history.
type ListHistoryRequest struct {
	Status     string `form:"status"`
	StreamName string `form:"stream_name"`
	Limit      int    `form:"limit"`
}
