package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func records(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestLoggers_NilSafe(t *testing.T) {
	assert.Nil(t, EnrichLogger(nil, "f", "m"))
	assert.NotPanics(t, func() {
		LogConversionStart(nil, 1, 1)
		LogConversionComplete(nil, 1, 1, 1, 0)
		LogConversionError(nil, errors.New("x"), 1)
		LogNodeConverted(nil, "a", "b", "c")
		LogNodeSkipped(nil, "a", "orphan")
		LogEdgeDropped(nil, "a", "b", "r")
		LogWarning(nil, errors.New("w"))
		LogRoutingCompiled(nil, "a", 2, 1)
		LogBranchPassThrough(nil, "a", 2)
	})
}

func TestLoggers_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := EnrichLogger(jsonLogger(&buf), "Support", "multinode")

	LogConversionStart(logger, 3, 2)
	LogNodeConverted(logger, "billing", "OpenAIModel-1", "OpenAIModel")
	LogNodeSkipped(logger, "lonely", "orphan")
	LogRoutingCompiled(logger, "start", 2, 1)
	LogConversionError(logger, errors.New("boom"), 1.5)

	recs := records(t, &buf)
	require.Len(t, recs, 5)
	for _, r := range recs {
		assert.Equal(t, "Support", r[KeyFlow])
		assert.Equal(t, "multinode", r[KeyMode])
	}
	assert.Equal(t, "conversion starting", recs[0]["msg"])
	assert.Equal(t, 3.0, recs[0]["source_nodes"])
	assert.Equal(t, "OpenAIModel-1", recs[1][KeyNodeID])
	assert.Equal(t, "WARN", recs[2]["level"])
	assert.Equal(t, "orphan", recs[2]["reason"])
	assert.Equal(t, 2.0, recs[3][KeyWidth])
	assert.Equal(t, "ERROR", recs[4]["level"])
	assert.Equal(t, "boom", recs[4]["error"])
}

func TestTimedOperation(t *testing.T) {
	done := TimedOperation()
	time.Sleep(2 * time.Millisecond)
	assert.GreaterOrEqual(t, done(), 2.0)
}
