package service

import (
	"context"
	"html"
	"strings"

	"github.com/weiawesome/streamchat/internal/audit"
	"github.com/weiawesome/streamchat/internal/domain"
	"github.com/weiawesome/streamchat/internal/moderation"
	"github.com/weiawesome/streamchat/pkg/log"
)

type chatServiceImpl struct {
	classifier moderation.Classifier
	relay      ChatPublisher
	tally      SentimentTally
}

// NewChatService creates a new chat service. tally may be nil.
func NewChatService(classifier moderation.Classifier, relay ChatPublisher, tally SentimentTally) ChatService {
	return &chatServiceImpl{
		classifier: classifier,
		relay:      relay,
		tally:      tally,
	}
}

func (s *chatServiceImpl) Classify(ctx context.Context, text string) (*domain.Classification, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrMissingParameters
	}
	return s.classifier.Classify(ctx, text)
}

// SendChat classifies text and relays it. Nothing reaches the relay
// unless classification succeeded.
func (s *chatServiceImpl) SendChat(ctx context.Context, streamID, text string) (*domain.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrMissingParameters
	}

	result, err := s.classifier.Classify(ctx, text)
	if err != nil {
		return nil, err
	}
	_, confidence := result.Top()

	body := html.EscapeString(text)
	if result.Toxic() {
		body += domain.ToxicMarker
	}
	msg := &domain.ChatMessage{
		StreamID:  streamID,
		Body:      body,
		Positive:  !result.Toxic(),
		Certainty: domain.FormatCertainty(confidence),
	}

	if err := s.relay.Publish(ctx, msg); err != nil {
		return nil, err
	}
	if s.tally != nil {
		s.tally.Tally(ctx, streamID, msg.Positive)
	}

	l := log.Ctx(ctx)
	l.Debug().
		Str(log.FieldStreamID, streamID).
		Bool("positive", msg.Positive).
		Str("certainty", msg.Certainty).
		Msg("chat relayed")
	audit.LogWithDetail(ctx, audit.ActionChatPublish, streamID, result.Prediction, "chat relayed")

	return msg, nil
}
