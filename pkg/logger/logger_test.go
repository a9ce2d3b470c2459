package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var out []map[string]any
	dec := json.NewDecoder(buf)
	for dec.More() {
		var m map[string]any
		require.NoError(t, dec.Decode(&m))
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		" INFO ":  LevelInfo,
		"warning": LevelWarn,
		"Error":   LevelError,
		"fatal":   LevelFatal,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Output: &buf, Level: LevelInfo, Format: "json"})

	log.Debug("hidden")
	log.With(Component("engine")).Info("xp granted",
		UserID("u1"),
		XPAmount(50),
		Duration("took", 1500*time.Millisecond),
		Err(errors.New("boom")),
	)
	require.NoError(t, log.Sync())

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)

	entry := lines[0]
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "xp granted", entry["message"])
	assert.Equal(t, "engine", entry["component"])
	assert.Equal(t, "u1", entry["user_id"])
	assert.EqualValues(t, 50, entry["xp_amount"])
	assert.Equal(t, "1.5s", entry["took"])
	assert.Equal(t, "boom", entry["error"])
	assert.Contains(t, entry, "timestamp")
}

func TestEnabled(t *testing.T) {
	log := New(Options{Output: &bytes.Buffer{}, Level: LevelWarn})

	assert.False(t, log.Enabled(LevelInfo))
	assert.True(t, log.Enabled(LevelWarn))
	assert.False(t, NewNop().Enabled(LevelError))
}

func TestContextPropagation(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Output: &buf, Level: LevelDebug}).WithRequestID("req-1")

	ctx := WithContext(context.Background(), log)
	assert.Same(t, log, FromContext(ctx))

	FromContext(ctx).Info("handled", Tool("create_room"))
	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "req-1", lines[0][RequestIDKey])
	assert.Equal(t, "create_room", lines[0]["tool"])

	assert.NotNil(t, FromContext(context.Background()))
}
