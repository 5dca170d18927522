package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext_CarriesIDs(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("production", &buf)
	t.Cleanup(func() { Init("test") })

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithUserID(ctx, "user-1")
	ctx = WithConnID(ctx, "conn-1")
	ctx = WithCorrelationID(ctx, "c-1")
	CtxInfo(ctx, "hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "mchat", line["service"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "user-1", line["user_id"])
	assert.Equal(t, "conn-1", line["conn_id"])
	assert.Equal(t, "c-1", line["correlation_id"])
}

func TestInit_TestLevelHidesInfo(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("test", &buf)
	t.Cleanup(func() { Init("test") })

	Info("quiet")
	WorkerLog("presence", "tick", nil)
	assert.Empty(t, buf.String())

	Warn("loud")
	assert.Contains(t, buf.String(), "loud")
}
