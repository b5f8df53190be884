package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/streamchat/pkg/log"
)

func TestLogWithDetail(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithWriter(log.Config{Level: "info"}, &buf)
	ctx := log.WithLogger(context.Background(), logger)

	LogWithDetail(ctx, ActionStreamStart, "alice-show", "RM1", "stream started")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, log.LogTypeAudit, entry[log.FieldLogType])
	assert.Equal(t, ActionStreamStart, entry[FieldAction])
	assert.Equal(t, "alice-show", entry[log.FieldStreamName])
	assert.Equal(t, "RM1", entry[FieldDetail])
	assert.Equal(t, "stream started", entry["message"])
}
