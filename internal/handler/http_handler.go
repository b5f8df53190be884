package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/streamchat/internal/domain"
	"github.com/weiawesome/streamchat/internal/repository"
	"github.com/weiawesome/streamchat/internal/service"
	"github.com/weiawesome/streamchat/pkg/log"
	"github.com/weiawesome/streamchat/pkg/response"
)

// CredentialIssuer mints publisher and viewer grants.
type CredentialIssuer interface {
	IssuePublisherGrant(ctx context.Context, identity, room string) (*domain.Grant, error)
	IssueViewerGrant(ctx context.Context, streamRef string) (*domain.Grant, error)
}

// Handler handles HTTP requests for the broadcast API.
type Handler struct {
	lifecycle service.LifecycleService
	chat      service.ChatService
	issuer    CredentialIssuer
}

// NewHandler creates a new HTTP handler.
func NewHandler(lifecycle service.LifecycleService, chat service.ChatService, issuer CredentialIssuer) *Handler {
	return &Handler{
		lifecycle: lifecycle,
		chat:      chat,
		issuer:    issuer,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	r.POST("/start", h.Start)
	r.POST("/end", h.End)
	r.POST("/streamerToken", h.StreamerToken)
	r.POST("/audienceToken", h.AudienceToken)
	r.POST("/currentlive", h.CurrentLive)
	r.POST("/classify", h.Classify)

	r.GET("/sessions/history", h.History)
}

func (h *Handler) Health(c *gin.Context) {
	response.OK(c, gin.H{"status": "ok"})
}

// Start provisions a new live stream.
func (h *Handler) Start(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.StartRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		l.Warn().Err(err).Msg("failed to bind start request")
		response.Failure(c, http.StatusBadRequest, "Unable to create livestream", err)
		return
	}

	details, err := h.lifecycle.Start(ctx, req.StreamName)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, domain.ErrDuplicateSession) {
			status = http.StatusConflict
		}
		response.Failure(c, status, "Unable to create livestream", err)
		return
	}

	response.OK(c, details)
}

// End releases a live stream.
func (h *Handler) End(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.EndRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.Failure(c, http.StatusBadRequest, "Unable to end stream", err)
		return
	}

	resp, err := h.lifecycle.End(ctx, req.StreamDetails)
	if err != nil {
		response.Failure(c, http.StatusBadRequest, "Unable to end stream", err)
		return
	}

	response.OK(c, resp)
}

// StreamerToken issues a publisher token for a room.
func (h *Handler) StreamerToken(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.PublisherTokenRequest
	if err := bindOptionalJSON(c, &req); err != nil || req.Identity == "" || req.Room == "" {
		response.BadRequest(c, "Missing identity or stream name")
		return
	}

	grant, err := h.issuer.IssuePublisherGrant(ctx, req.Identity, req.Room)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err)
		return
	}

	response.OK(c, domain.TokenResponse{Token: grant.Token})
}

// AudienceToken issues a viewer token for a player streamer.
func (h *Handler) AudienceToken(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.ViewerTokenRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.Failure(c, http.StatusBadRequest, "Unable to view livestream", err)
		return
	}

	grant, err := h.issuer.IssueViewerGrant(ctx, req.StreamID)
	if err != nil {
		if errors.Is(err, domain.ErrNoActiveSession) {
			response.Message(c, http.StatusOK, domain.MsgNoneLive)
			return
		}
		response.Failure(c, http.StatusBadRequest, "Unable to view livestream", err)
		return
	}

	response.OK(c, domain.TokenResponse{Token: grant.Token})
}

// CurrentLive lists live player streamers and the registered sessions.
func (h *Handler) CurrentLive(c *gin.Context) {
	ctx := c.Request.Context()

	live, err := h.lifecycle.CurrentLive(ctx)
	if err != nil {
		response.Failure(c, http.StatusBadGateway, "Unable to list live streams", err)
		return
	}

	response.OK(c, live)
}

// Classify scores one chat text.
func (h *Handler) Classify(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.ClassifyRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.Failure(c, http.StatusBadRequest, "Unable to classify message", err)
		return
	}

	result, err := h.chat.Classify(ctx, req.Text)
	if err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, domain.ErrMissingParameters) {
			status = http.StatusBadRequest
		}
		response.Failure(c, status, "Unable to classify message", err)
		return
	}

	response.OK(c, domain.ClassifyResponse{Classification: []domain.Classification{*result}})
}

// History lists recorded lifecycle events, newest first.
func (h *Handler) History(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.ListHistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Failure(c, http.StatusBadRequest, "Invalid history query", err)
		return
	}

	status := domain.HistoryStatus(req.Status)
	switch status {
	case "", domain.HistoryStatusLive, domain.HistoryStatusStartFailed, domain.HistoryStatusEndFailed, domain.HistoryStatusEnded:
	default:
		response.BadRequest(c, "Unknown history status")
		return
	}

	records, err := h.lifecycle.History(ctx, repository.HistoryFilter{
		Status:     status,
		StreamName: req.StreamName,
		Limit:      req.Limit,
	})
	if err != nil {
		l.Error().Err(err).Msg("failed to list session history")
		response.Failure(c, http.StatusInternalServerError, "Unable to list session history", err)
		return
	}

	response.OK(c, gin.H{"records": records})
}

// bindOptionalJSON decodes the body when there is one. An empty body
// leaves dst zeroed so required-field checks report the missing fields.
func bindOptionalJSON(c *gin.Context, dst interface{}) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(dst)
}
