package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Service
	FieldService   = "service"
	FieldComponent = "component"

	// Broadcast
	FieldStreamName  = "stream_name"
	FieldStreamID    = "stream_id"
	FieldRoomID      = "room_id"
	FieldStreamerID  = "player_streamer_id"
	FieldProcessorID = "media_processor_id"
	FieldIdentity    = "identity"
	FieldRole        = "role"

	// Chat relay
	FieldClientID = "client_id"
	FieldChannel  = "channel"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
