package platform

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	media "github.com/twilio/twilio-go/rest/media/v1"
	video "github.com/twilio/twilio-go/rest/video/v1"

	"github.com/weiawesome/streamchat/internal/domain"
	"github.com/weiawesome/streamchat/pkg/log"
)

const (
	defaultVideoHost = "video.twilio.com"
	defaultMediaHost = "media.twilio.com"
)

// Config for TwilioClient. VideoBaseURL and MediaBaseURL redirect the
// Video and Media API hosts, e.g. to a proxy.
type Config struct {
	AccountSID   string
	APIKeySID    string
	APIKeySecret string
	VideoBaseURL string
	MediaBaseURL string
	Timeout      time.Duration
}

// TwilioClient implements Client with the Twilio Video and Media APIs.
type TwilioClient struct {
	rest *twilio.RestClient
}

// NewTwilioClient creates a new platform client.
func NewTwilioClient(cfg Config) *TwilioClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	httpClient := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &hostRewriter{
			base: http.DefaultTransport,
			hosts: map[string]*url.URL{
				defaultVideoHost: parseOverride(cfg.VideoBaseURL, defaultVideoHost),
				defaultMediaHost: parseOverride(cfg.MediaBaseURL, defaultMediaHost),
			},
		},
	}

	c := &twilioclient.Client{
		Credentials: twilioclient.NewCredentials(cfg.APIKeySID, cfg.APIKeySecret),
		HTTPClient:  httpClient,
	}
	c.SetAccountSid(cfg.AccountSID)

	return &TwilioClient{
		rest: twilio.NewRestClientWithParams(twilio.ClientParams{Client: c}),
	}
}

func (c *TwilioClient) CreateRoom(ctx context.Context, uniqueName string) (*Room, error) {
	params := &video.CreateRoomParams{}
	params.SetUniqueName(uniqueName)
	params.SetType(RoomTypeGo)

	resp, err := call(ctx, "create room", func() (*video.VideoV1Room, error) {
		return c.rest.VideoV1.CreateRoom(params)
	})
	if err != nil {
		return nil, err
	}
	return &Room{
		SID:        deref(resp.Sid),
		UniqueName: deref(resp.UniqueName),
		Type:       RoomTypeGo,
	}, nil
}

func (c *TwilioClient) CompleteRoom(ctx context.Context, roomSID string) error {
	params := &video.UpdateRoomParams{}
	params.SetStatus(StatusCompleted)

	_, err := call(ctx, "complete room", func() (*video.VideoV1Room, error) {
		return c.rest.VideoV1.UpdateRoom(roomSID, params)
	})
	return err
}

func (c *TwilioClient) CreatePlayerStreamer(ctx context.Context) (*PlayerStreamer, error) {
	resp, err := call(ctx, "create player streamer", func() (*media.MediaV1PlayerStreamer, error) {
		return c.rest.MediaV1.CreatePlayerStreamer(&media.CreatePlayerStreamerParams{})
	})
	if err != nil {
		return nil, err
	}
	return &PlayerStreamer{SID: deref(resp.Sid), Status: StatusStarted}, nil
}

func (c *TwilioClient) EndPlayerStreamer(ctx context.Context, playerStreamerSID string) error {
	params := &media.UpdatePlayerStreamerParams{}
	params.SetStatus(StatusEnded)

	_, err := call(ctx, "end player streamer", func() (*media.MediaV1PlayerStreamer, error) {
		return c.rest.MediaV1.UpdatePlayerStreamer(playerStreamerSID, params)
	})
	return err
}

// ListPlayerStreamers returns every player streamer with status, across
// all pages.
func (c *TwilioClient) ListPlayerStreamers(ctx context.Context, status string) ([]PlayerStreamer, error) {
	params := &media.ListPlayerStreamerParams{}
	if status != "" {
		params.SetStatus(status)
	}
	params.SetPageSize(50)

	records, err := call(ctx, "list player streamers", func() ([]media.MediaV1PlayerStreamer, error) {
		return c.rest.MediaV1.ListPlayerStreamer(params)
	})
	if err != nil {
		return nil, err
	}

	out := make([]PlayerStreamer, 0, len(records))
	for _, r := range records {
		out = append(out, PlayerStreamer{SID: deref(r.Sid), Status: status})
	}
	return out, nil
}

func (c *TwilioClient) CreateMediaProcessor(ctx context.Context, roomSID, playerStreamerSID string) (*MediaProcessor, error) {
	extCtx, err := json.Marshal(map[string]any{
		"identity": ExtensionVideoComposer,
		"room": map[string]string{
			"name": roomSID,
		},
		"outputs": []string{playerStreamerSID},
	})
	if err != nil {
		return nil, &domain.PlatformError{Op: "create media processor", Err: err}
	}

	params := &media.CreateMediaProcessorParams{}
	params.SetExtension(ExtensionVideoComposer)
	params.SetExtensionContext(string(extCtx))

	resp, err := call(ctx, "create media processor", func() (*media.MediaV1MediaProcessor, error) {
		return c.rest.MediaV1.CreateMediaProcessor(params)
	})
	if err != nil {
		return nil, err
	}
	return &MediaProcessor{
		SID:       deref(resp.Sid),
		Status:    StatusStarted,
		Extension: ExtensionVideoComposer,
	}, nil
}

func (c *TwilioClient) EndMediaProcessor(ctx context.Context, mediaProcessorSID string) error {
	params := &media.UpdateMediaProcessorParams{}
	params.SetStatus(StatusEnded)

	_, err := call(ctx, "end media processor", func() (*media.MediaV1MediaProcessor, error) {
		return c.rest.MediaV1.UpdateMediaProcessor(mediaProcessorSID, params)
	})
	return err
}

func (c *TwilioClient) CreatePlaybackGrant(ctx context.Context, playerStreamerSID string, ttl time.Duration) (json.RawMessage, error) {
	const op = "create playback grant"

	params := &media.CreatePlayerStreamerPlaybackGrantParams{}
	params.SetTtl(int(ttl / time.Second))

	resp, err := call(ctx, op, func() (*media.MediaV1PlayerStreamerPlaybackGrant, error) {
		return c.rest.MediaV1.CreatePlayerStreamerPlaybackGrant(playerStreamerSID, params)
	})
	if err != nil {
		return nil, err
	}
	if resp.Grant == nil {
		return nil, &domain.PlatformError{Op: op, Status: http.StatusOK, Err: errors.New("empty grant")}
	}

	grant, err := json.Marshal(resp.Grant)
	if err != nil {
		return nil, &domain.PlatformError{Op: op, Err: err}
	}
	return grant, nil
}

// call runs one SDK request. The SDK takes no context, so the caller
// stops waiting when ctx is done and the request is bounded by the HTTP
// client timeout.
func call[T any](ctx context.Context, op string, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, &domain.PlatformError{Op: op, Err: err}
	}

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	start := time.Now()
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()

	l := log.Ctx(ctx)
	select {
	case <-ctx.Done():
		return zero, &domain.PlatformError{Op: op, Err: ctx.Err()}
	case r := <-done:
		l.Debug().
			Str("op", op).
			Bool("ok", r.err == nil).
			Int64(log.FieldLatency, time.Since(start).Milliseconds()).
			Msg("platform call")
		if r.err != nil {
			return zero, wrapError(op, r.err)
		}
		return r.v, nil
	}
}

// wrapError turns an SDK error into a *domain.PlatformError, keeping the
// HTTP status and platform error code when the API returned them.
func wrapError(op string, err error) error {
	var restErr *twilioclient.TwilioRestError
	if errors.As(err, &restErr) {
		return &domain.PlatformError{
			Op:     op,
			Status: restErr.Status,
			Code:   restErr.Code,
			Err:    errors.New(restErr.Message),
		}
	}
	return &domain.PlatformError{Op: op, Err: err}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// hostRewriter sends requests for the default API hosts to their
// configured overrides.
type hostRewriter struct {
	base  http.RoundTripper
	hosts map[string]*url.URL
}

func (h *hostRewriter) RoundTrip(req *http.Request) (*http.Response, error) {
	target, ok := h.hosts[req.URL.Host]
	if !ok || target == nil {
		return h.base.RoundTrip(req)
	}

	out := req.Clone(req.Context())
	out.URL.Scheme = target.Scheme
	out.URL.Host = target.Host
	out.Host = target.Host
	return h.base.RoundTrip(out)
}

// parseOverride returns nil when raw is empty or names the default host.
func parseOverride(raw, defaultHost string) *url.URL {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || u.Host == defaultHost {
		return nil
	}
	return u
}
