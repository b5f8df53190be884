// Package credential issues the access tokens streamers publish with and
// viewers play back with.
package credential

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/weiawesome/streamchat/internal/audit"
	"github.com/weiawesome/streamchat/internal/domain"
	"github.com/weiawesome/streamchat/internal/identity"
	"github.com/weiawesome/streamchat/pkg/jwt"
	"github.com/weiawesome/streamchat/pkg/log"
)

// DefaultPlaybackTTL is the lifetime requested for viewer playback grants.
const DefaultPlaybackTTL = 60 * time.Second

// PlaybackGranter requests playback grants from the media platform.
type PlaybackGranter interface {
	CreatePlaybackGrant(ctx context.Context, playerStreamerSID string, ttl time.Duration) (json.RawMessage, error)
}

// TokenSigner serializes grants into an access token.
type TokenSigner interface {
	Sign(identity string, grants jwt.Grants) (string, error)
	TTL() time.Duration
}

// Issuer mints publisher and viewer grants.
type Issuer struct {
	platform    PlaybackGranter
	signer      TokenSigner
	identities  identity.Generator
	playbackTTL time.Duration
}

// NewIssuer creates an Issuer. Viewer identities are 40 hex characters.
func NewIssuer(platform PlaybackGranter, signer TokenSigner, playbackTTL time.Duration) *Issuer {
	if playbackTTL <= 0 {
		playbackTTL = DefaultPlaybackTTL
	}
	return &Issuer{
		platform:    platform,
		signer:      signer,
		identities:  identity.NewViewerIdentityGenerator(),
		playbackTTL: playbackTTL,
	}
}

// IssuePublisherGrant returns a token allowing identity to publish into
// room. The room is not checked against the registry.
func (i *Issuer) IssuePublisherGrant(ctx context.Context, ident, room string) (*domain.Grant, error) {
	if ident == "" || room == "" {
		return nil, domain.ErrMissingParameters
	}

	token, err := i.signer.Sign(ident, jwt.Grants{Video: &jwt.VideoGrant{Room: room}})
	if err != nil {
		return nil, err
	}

	audit.LogWithDetail(ctx, audit.ActionPublisherToken, room, ident, "publisher token issued")
	return &domain.Grant{
		Identity:   ident,
		Role:       domain.RolePublisher,
		SessionRef: room,
		TTL:        i.signer.TTL(),
		Token:      token,
	}, nil
}

// IssueViewerGrant returns a token allowing a fresh anonymous identity to
// play back the player streamer streamRef. It does not check that the
// streamer is still live; the platform rejects released ones.
func (i *Issuer) IssueViewerGrant(ctx context.Context, streamRef string) (*domain.Grant, error) {
	ident, err := i.identities.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate viewer identity: %w", err)
	}
	if streamRef == "" {
		return nil, domain.ErrNoActiveSession
	}

	playback, err := i.platform.CreatePlaybackGrant(ctx, streamRef, i.playbackTTL)
	if err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldStreamID, streamRef).Msg("playback grant rejected")
		return nil, err
	}

	token, err := i.signer.Sign(ident, jwt.Grants{Player: playback})
	if err != nil {
		return nil, err
	}

	audit.LogWithDetail(ctx, audit.ActionViewerToken, streamRef, ident, "viewer token issued")
	return &domain.Grant{
		Identity:   ident,
		Role:       domain.RoleViewer,
		SessionRef: streamRef,
		TTL:        i.playbackTTL,
		Playback:   playback,
		Token:      token,
	}, nil
}
