package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/closeio/authalligator/internal/shared/config"
)

func TestConditionalSourceHandler(t *testing.T) {
	tests := []struct {
		name       string
		level      slog.Level
		levels     []slog.Level
		wantSource bool
	}{
		{name: "info skipped", level: slog.LevelInfo, levels: []slog.Level{slog.LevelWarn, slog.LevelError}},
		{name: "warn annotated", level: slog.LevelWarn, levels: []slog.Level{slog.LevelWarn, slog.LevelError}, wantSource: true},
		{name: "error annotated", level: slog.LevelError, levels: []slog.Level{slog.LevelError}, wantSource: true},
		{name: "debug in debug mode", level: slog.LevelDebug, levels: []slog.Level{slog.LevelDebug}, wantSource: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			base := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
			l := slog.New(NewConditionalSourceHandler(base, tt.levels...))

			l.Log(context.Background(), tt.level, "message", "provider", "GOOGLE")

			out := buf.String()
			assert.Contains(t, out, "provider=GOOGLE")
			assert.Equal(t, tt.wantSource, bytes.Contains(buf.Bytes(), []byte("source=")), out)
		})
	}
}

func TestConditionalSourceHandlerKeepsAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewTextHandler(&buf, nil)
	l := slog.New(NewConditionalSourceHandler(base, slog.LevelError)).
		With("component", "keystore").
		WithGroup("account")

	l.Error("lookup failed", "username", "u1")

	out := buf.String()
	assert.Contains(t, out, "component=keystore")
	assert.Contains(t, out, "account.username=u1")
	assert.Contains(t, out, "source=")
}

func TestConditionalSourceHandlerEnabled(t *testing.T) {
	base := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelInfo})
	h := NewConditionalSourceHandler(base, slog.LevelError)

	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestInitJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	previous := Logger
	t.Cleanup(func() {
		Logger = previous
		SetLevel(slog.LevelInfo)
	})

	require.NoError(t, Init(&config.LoggerConfig{Level: "warn", Format: "json", OutputPath: path}, "release"))

	Info("hidden")
	Warn("shown", "provider", "ZOOM")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "ZOOM", entry["provider"])
	assert.Contains(t, entry, "source")
}
