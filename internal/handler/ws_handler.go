package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/weiawesome/streamchat/internal/config"
	"github.com/weiawesome/streamchat/internal/domain"
	"github.com/weiawesome/streamchat/internal/hub"
	"github.com/weiawesome/streamchat/internal/service"
	"github.com/weiawesome/streamchat/pkg/log"
)

// WSHandler handles WebSocket connections for chat.
type WSHandler struct {
	hub      *hub.Hub
	chat     service.ChatService
	config   config.WebSocketConfig
	upgrader websocket.Upgrader
}

func NewWSHandler(h *hub.Hub, chat service.ChatService, wsCfg config.WebSocketConfig, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		hub:    h,
		chat:   chat,
		config: wsCfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(allowedOrigins, r.Header.Get("Origin"))
			},
		},
	}
}

// RegisterRoutes mounts the WebSocket endpoint.
func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", h.HandleWebSocket)
}

// HandleWebSocket upgrades the connection and joins it to the chat hub.
// Every connection receives every relayed message; clients filter by
// streamId themselves.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg("failed to upgrade connection")
		return
	}

	clientID := uuid.New().String()
	client := hub.NewClient(clientID, h.hub, conn, h.config)

	// The request context ends when this handler returns.
	logger := log.Ctx(c.Request.Context()).With().Str(log.FieldClientID, clientID).Logger()
	ctx := log.WithLogger(context.WithoutCancel(c.Request.Context()), logger)

	h.hub.Register(client)
	logger.Debug().Msg("client connected")

	go client.WritePump()
	go client.ReadPump(func(cl *hub.Client, message []byte) {
		h.handleMessage(ctx, cl, message)
	})
}

func (h *WSHandler) handleMessage(ctx context.Context, client *hub.Client, message []byte) {
	var base domain.BaseMessage
	if err := json.Unmarshal(message, &base); err != nil {
		h.sendError(ctx, client, domain.ErrCodeBadRequest, "invalid message format")
		return
	}

	switch base.Type {
	case domain.MsgTypeNewChat:
		h.handleNewChat(ctx, client, message)
	case domain.MsgTypePing:
		h.send(ctx, client, domain.PongMessage{Type: domain.MsgTypePong})
	default:
		h.sendError(ctx, client, domain.ErrCodeUnsupportedMessageType, "unsupported message type: "+base.Type)
	}
}

func (h *WSHandler) handleNewChat(ctx context.Context, client *hub.Client, message []byte) {
	var msg domain.NewChatMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		h.sendError(ctx, client, domain.ErrCodeBadRequest, "invalid new_chat message")
		return
	}

	if _, err := h.chat.SendChat(ctx, msg.StreamID, msg.Text); err != nil {
		switch {
		case errors.Is(err, domain.ErrMissingParameters):
			h.sendError(ctx, client, domain.ErrCodeBadRequest, "text is required")
		case errors.Is(err, domain.ErrClassificationUnavailable):
			h.sendError(ctx, client, domain.ErrCodeClassificationFailed, "message could not be classified")
		default:
			l := log.Ctx(ctx)
			l.Error().Err(err).Str(log.FieldStreamID, msg.StreamID).Msg("failed to relay chat message")
			h.sendError(ctx, client, domain.ErrCodeInternalError, "message could not be delivered")
		}
	}
}

func (h *WSHandler) sendError(ctx context.Context, client *hub.Client, code, message string) {
	h.send(ctx, client, domain.NewErrorMessage(code, message))
}

func (h *WSHandler) send(ctx context.Context, client *hub.Client, message interface{}) {
	if err := client.SendMessage(message); err != nil {
		l := log.Ctx(ctx)
		l.Debug().Err(err).Msg("failed to send message to client")
	}
}
