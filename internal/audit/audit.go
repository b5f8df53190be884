package audit

import (
	"context"

	"github.com/weiawesome/streamchat/pkg/log"
)

// Audit actions.
const (
	ActionStreamStart       = "stream.start"
	ActionStreamStartFailed = "stream.start_failed"
	ActionStreamEnd         = "stream.end"
	ActionStreamEndFailed   = "stream.end_failed"
	ActionPublisherToken    = "token.publisher"
	ActionViewerToken       = "token.viewer"
	ActionChatPublish       = "chat.publish"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action, streamName, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldStreamName, streamName).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action, streamName, detail, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldStreamName, streamName).
		Str(FieldDetail, detail).
		Msg(msg)
}
