package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/streamchat/internal/domain"
	"github.com/weiawesome/streamchat/internal/repository"
)

type fakeLifecycle struct {
	startErr  error
	endErr    error
	live      *domain.CurrentLive
	liveErr   error
	history   []domain.HistoryRecord
	filter    repository.HistoryFilter
	ended     *domain.StreamDetails
	startName string
}

func (f *fakeLifecycle) Start(ctx context.Context, streamName string) (*domain.StreamDetails, error) {
	f.startName = streamName
	if f.startErr != nil {
		return nil, f.startErr
	}
	if streamName == "" {
		return nil, domain.ErrMissingParameters
	}
	return &domain.StreamDetails{
		StreamName:       streamName,
		RoomID:           "RM1",
		PlayerStreamerID: "VJ1",
		MediaProcessorID: "ZX1",
	}, nil
}

func (f *fakeLifecycle) End(ctx context.Context, details *domain.StreamDetails) (*domain.EndResponse, error) {
	if details == nil {
		return nil, domain.ErrMissingParameters
	}
	if f.endErr != nil {
		return nil, f.endErr
	}
	f.ended = details
	return &domain.EndResponse{Message: "Successfully ended stream " + details.StreamName}, nil
}

func (f *fakeLifecycle) CurrentLive(ctx context.Context) (*domain.CurrentLive, error) {
	return f.live, f.liveErr
}

func (f *fakeLifecycle) History(ctx context.Context, filter repository.HistoryFilter) ([]domain.HistoryRecord, error) {
	f.filter = filter
	return f.history, nil
}

func (f *fakeLifecycle) Tally(ctx context.Context, streamID string, positive bool) {}

type fakeChat struct {
	result *domain.Classification
	err    error
	sent   []domain.NewChatMessage
}

func (f *fakeChat) Classify(ctx context.Context, text string) (*domain.Classification, error) {
	if text == "" {
		return nil, domain.ErrMissingParameters
	}
	return f.result, f.err
}

func (f *fakeChat) SendChat(ctx context.Context, streamID, text string) (*domain.ChatMessage, error) {
	if streamID == "" || text == "" {
		return nil, domain.ErrMissingParameters
	}
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, domain.NewChatMessage{StreamID: streamID, Text: text})
	return &domain.ChatMessage{StreamID: streamID, Body: text, Positive: true}, nil
}

type fakeIssuer struct {
	viewerErr error
}

func (f *fakeIssuer) IssuePublisherGrant(ctx context.Context, identity, room string) (*domain.Grant, error) {
	return &domain.Grant{Identity: identity, Role: domain.RolePublisher, SessionRef: room, Token: "pub-token"}, nil
}

func (f *fakeIssuer) IssueViewerGrant(ctx context.Context, streamRef string) (*domain.Grant, error) {
	if f.viewerErr != nil {
		return nil, f.viewerErr
	}
	return &domain.Grant{Role: domain.RoleViewer, SessionRef: streamRef, Token: "view-token"}, nil
}

func newTestRouter(lc *fakeLifecycle, chat *fakeChat, issuer *fakeIssuer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"*"}))
	NewHandler(lc, chat, issuer).RegisterRoutes(r)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestStart(t *testing.T) {
	lc := &fakeLifecycle{}
	r := newTestRouter(lc, &fakeChat{}, &fakeIssuer{})

	w, body := do(t, r, http.MethodPost, "/start", gin.H{"streamName": "demo"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "demo", body["streamName"])
	assert.Equal(t, "RM1", body["roomId"])
	assert.Equal(t, "VJ1", body["playerStreamerId"])
	assert.Equal(t, "ZX1", body["mediaProcessorId"])
}

func TestStartMissingName(t *testing.T) {
	r := newTestRouter(&fakeLifecycle{}, &fakeChat{}, &fakeIssuer{})

	w, body := do(t, r, http.MethodPost, "/start", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Unable to create livestream", body["message"])
}

func TestStartDuplicateIsConflict(t *testing.T) {
	r := newTestRouter(&fakeLifecycle{startErr: domain.ErrDuplicateSession}, &fakeChat{}, &fakeIssuer{})

	w, body := do(t, r, http.MethodPost, "/start", gin.H{"streamName": "demo"})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Unable to create livestream", body["message"])
	assert.Equal(t, domain.ErrDuplicateSession.Error(), body["error"])
}

func TestStartPlatformFailure(t *testing.T) {
	err := &domain.PlatformError{Op: "create room", Status: 500}
	r := newTestRouter(&fakeLifecycle{startErr: err}, &fakeChat{}, &fakeIssuer{})

	w, body := do(t, r, http.MethodPost, "/start", gin.H{"streamName": "demo"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Unable to create livestream", body["message"])
	assert.NotEmpty(t, body["error"])
}

func TestEnd(t *testing.T) {
	lc := &fakeLifecycle{}
	r := newTestRouter(lc, &fakeChat{}, &fakeIssuer{})

	w, body := do(t, r, http.MethodPost, "/end", gin.H{"streamDetails": gin.H{
		"streamName":       "demo",
		"roomId":           "RM1",
		"playerStreamerId": "VJ1",
		"mediaProcessorId": "ZX1",
	}})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Successfully ended stream demo", body["message"])
	require.NotNil(t, lc.ended)
	assert.Equal(t, "ZX1", lc.ended.MediaProcessorID)
}

func TestEndWithoutDetails(t *testing.T) {
	r := newTestRouter(&fakeLifecycle{}, &fakeChat{}, &fakeIssuer{})

	w, body := do(t, r, http.MethodPost, "/end", gin.H{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Unable to end stream", body["message"])
}

func TestStreamerToken(t *testing.T) {
	r := newTestRouter(&fakeLifecycle{}, &fakeChat{}, &fakeIssuer{})

	w, body := do(t, r, http.MethodPost, "/streamerToken", gin.H{"identity": "alice", "room": "demo"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pub-token", body["token"])

	w, body = do(t, r, http.MethodPost, "/streamerToken", gin.H{"identity": "alice"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing identity or stream name", body["message"])
}

func TestAudienceToken(t *testing.T) {
	r := newTestRouter(&fakeLifecycle{}, &fakeChat{}, &fakeIssuer{})

	w, body := do(t, r, http.MethodPost, "/audienceToken", gin.H{"streamId": "VJ1"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "view-token", body["token"])
}

func TestAudienceTokenNoOneLive(t *testing.T) {
	r := newTestRouter(&fakeLifecycle{}, &fakeChat{}, &fakeIssuer{viewerErr: domain.ErrNoActiveSession})

	w, body := do(t, r, http.MethodPost, "/audienceToken", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.MsgNoneLive, body["message"])
	assert.NotContains(t, body, "token")
}

func TestAudienceTokenPlatformFailure(t *testing.T) {
	r := newTestRouter(&fakeLifecycle{}, &fakeChat{}, &fakeIssuer{viewerErr: &domain.PlatformError{Op: "playback grant"}})

	w, body := do(t, r, http.MethodPost, "/audienceToken", gin.H{"streamId": "VJ1"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Unable to view livestream", body["message"])
}

func TestCurrentLive(t *testing.T) {
	lc := &fakeLifecycle{live: &domain.CurrentLive{
		LiveSIDs: []string{"VJ1"},
		CurrentStreams: []domain.StreamSummary{
			{StreamName: "demo", PositiveNum: 2, NegativeNum: 1, PlayerStreamerID: "VJ1", Live: true},
		},
	}}
	r := newTestRouter(lc, &fakeChat{}, &fakeIssuer{})

	w, body := do(t, r, http.MethodPost, "/currentlive", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"VJ1"}, body["liveSIDs"])
	streams := body["currentStreams"].([]interface{})
	require.Len(t, streams, 1)
	assert.Equal(t, float64(2), streams[0].(map[string]interface{})["positiveNum"])
}

func TestCurrentLiveNoneLive(t *testing.T) {
	r := newTestRouter(&fakeLifecycle{live: &domain.CurrentLive{Message: domain.MsgNoneLive}}, &fakeChat{}, &fakeIssuer{})

	w, body := do(t, r, http.MethodPost, "/currentlive", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{"message": domain.MsgNoneLive}, body)
}

func TestCurrentLivePlatformFailure(t *testing.T) {
	r := newTestRouter(&fakeLifecycle{liveErr: &domain.PlatformError{Op: "list player streamers"}}, &fakeChat{}, &fakeIssuer{})

	w, _ := do(t, r, http.MethodPost, "/currentlive", nil)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestClassify(t *testing.T) {
	chat := &fakeChat{result: &domain.Classification{
		Input:      "you are great",
		Prediction: domain.LabelNonToxic,
		Confidence: 0.97,
	}}
	r := newTestRouter(&fakeLifecycle{}, chat, &fakeIssuer{})

	w, body := do(t, r, http.MethodPost, "/classify", gin.H{"text": "you are great"})
	assert.Equal(t, http.StatusOK, w.Code)
	results := body["classification"].([]interface{})
	require.Len(t, results, 1)

	w, _ = do(t, r, http.MethodPost, "/classify", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClassifyUnavailable(t *testing.T) {
	r := newTestRouter(&fakeLifecycle{}, &fakeChat{err: domain.ErrClassificationUnavailable}, &fakeIssuer{})

	w, body := do(t, r, http.MethodPost, "/classify", gin.H{"text": "hello"})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "Unable to classify message", body["message"])
}

func TestHistory(t *testing.T) {
	lc := &fakeLifecycle{history: []domain.HistoryRecord{{ID: "01H", StreamName: "demo", Status: domain.HistoryStatusEndFailed}}}
	r := newTestRouter(lc, &fakeChat{}, &fakeIssuer{})

	w, body := do(t, r, http.MethodGet, "/sessions/history?status=end_failed&stream_name=demo&limit=5", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["records"], 1)
	assert.Equal(t, domain.HistoryStatusEndFailed, lc.filter.Status)
	assert.Equal(t, "demo", lc.filter.StreamName)
	assert.Equal(t, 5, lc.filter.Limit)

	w, _ = do(t, r, http.MethodGet, "/sessions/history?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndPreflight(t *testing.T) {
	r := newTestRouter(&fakeLifecycle{}, &fakeChat{}, &fakeIssuer{})

	w, body := do(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])

	req := httptest.NewRequest(http.MethodOptions, "/start", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSAllowList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"https://app.example.com"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
