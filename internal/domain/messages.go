package domain

// WebSocket message types from client.
const (
	MsgTypeNewChat = "new_chat"
	MsgTypePing    = "ping"
)

// WebSocket message types to client.
const (
	MsgTypeUpdateAllChats = "update_all_chats"
	MsgTypeError          = "error"
	MsgTypePong           = "pong"
)

// Error codes
const (
	ErrCodeBadRequest             = "BAD_REQUEST"
	ErrCodeClassificationFailed   = "CLASSIFICATION_UNAVAILABLE"
	ErrCodeInternalError          = "INTERNAL_ERROR"
	ErrCodeUnsupportedMessageType = "UNSUPPORTED_MESSAGE_TYPE"
)

// BaseMessage is the base structure for all WebSocket messages.
type BaseMessage struct {
	Type string `json:"type"`
}

// Client -> Server messages

type NewChatMessage struct {
	Type     string `json:"type"`
	StreamID string `json:"streamId"`
	Text     string `json:"text"`
}

// Server -> Client messages

// MessageObj is the rendered chat payload clients filter on.
type MessageObj struct {
	Positive  bool   `json:"positive"`
	Message   string `json:"message"`
	Certainty string `json:"certainty,omitempty"`
}

type UpdateAllChatsMessage struct {
	Type       string     `json:"type"`
	MessageObj MessageObj `json:"messageObj"`
	StreamID   string     `json:"streamId"`
}

// NewUpdateAllChatsMessage builds the broadcast frame for a chat message.
func NewUpdateAllChatsMessage(msg *ChatMessage) *UpdateAllChatsMessage {
	return &UpdateAllChatsMessage{
		Type: MsgTypeUpdateAllChats,
		MessageObj: MessageObj{
			Positive:  msg.Positive,
			Message:   msg.Body,
			Certainty: msg.Certainty,
		},
		StreamID: msg.StreamID,
	}
}

type PongMessage struct {
	Type string `json:"type"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		Type:    MsgTypeError,
		Code:    code,
		Message: message,
	}
}
