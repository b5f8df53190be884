package domain

import (
	"encoding/json"
	"time"
)

// Role of a grant holder.
type Role string

const (
	RolePublisher Role = "publisher"
	RoleViewer    Role = "viewer"
)

// Grant is a scoped, time-limited authorization for one identity to
// publish or view one session. It is never persisted.
type Grant struct {
	Identity   string
	Role       Role
	SessionRef string // room name for publishers, player streamer SID for viewers
	TTL        time.Duration
	Playback   json.RawMessage // viewer only, opaque platform payload
	Token      string
}

// PublisherTokenRequest is the body of POST /streamerToken.
type PublisherTokenRequest struct {
	Identity string `json:"identity"`
	Room     string `json:"room"`
}

// ViewerTokenRequest is the body of POST /audienceToken.
type ViewerTokenRequest struct {
	StreamID string `json:"streamId"`
}

// TokenResponse carries a serialized access token.
type TokenResponse struct {
	Token string `json:"token"`
}
