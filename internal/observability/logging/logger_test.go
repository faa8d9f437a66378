package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		expected slog.Level
	}{
		{name: "default log level (info)", logLevel: "", expected: slog.LevelInfo},
		{name: "debug log level", logLevel: "debug", expected: slog.LevelDebug},
		{name: "upper-case warn", logLevel: "WARN", expected: slog.LevelWarn},
		{name: "error", logLevel: "error", expected: slog.LevelError},
		{name: "invalid log level defaults to info", logLevel: "invalid", expected: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.logLevel)
			assert.Equal(t, tt.expected, levelFromEnv())
		})
	}
}

func TestNew_SelectsHandler(t *testing.T) {
	assert.NotNil(t, New("json"))
	assert.NotNil(t, New("text"))
	assert.NotNil(t, New(""))
}

func TestWithRunID_TagsEveryLine(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	var buf bytes.Buffer
	base := newLogger(&buf, "json")

	ctx, runID := WithRunID(context.Background(), base, "")
	require.NotEmpty(t, runID)
	assert.Equal(t, runID, RunIDFromContext(ctx))

	FromContext(ctx).Info("stage completed", slog.Int("out", 2))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, runID, entry["run_id"])
	assert.Equal(t, "stage completed", entry["msg"])
}

func TestWithRunID_KeepsProvidedID(t *testing.T) {
	ctx, runID := WithRunID(context.Background(), slog.Default(), "fixed-id")
	assert.Equal(t, "fixed-id", runID)
	assert.Equal(t, "fixed-id", RunIDFromContext(ctx))
}

func TestFromContext_FallsBackToDefault(t *testing.T) {
	assert.Equal(t, slog.Default(), FromContext(context.Background()))
	assert.Empty(t, RunIDFromContext(context.Background()))
}

func TestSanitizeError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    string
		notWant string
	}{
		{
			name:    "anthropic key",
			err:     errors.New("auth failed for sk-ant-REDACTED"),
			want:    "sk-ant-****",
			notWant: "abcdefghijklmnop",
		},
		{
			name:    "openai key",
			err:     errors.New("bad key sk-proj1234567890abcdef"),
			want:    "sk-****",
			notWant: "1234567890abcdef",
		},
		{
			name:    "google key in request url",
			err:     errors.New(`Get "https://youtube.googleapis.com/youtube/v3/channels?alt=json&key=AIzaSyA1234567890abcdefghijklmnop": dial tcp`),
			want:    "key=****",
			notWant: "AIzaSyA1234567890",
		},
		{
			name:    "url password",
			err:     errors.New("dial smtp://me@example.com:app-pass@smtp.gmail.com:465"),
			want:    ":****@",
			notWant: "app-pass",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeError(tt.err)
			assert.Contains(t, got, tt.want)
			assert.NotContains(t, got, tt.notWant)
		})
	}

	assert.Equal(t, "", SanitizeError(nil))
	assert.Equal(t, "plain failure", SanitizeError(errors.New("plain failure")))
}

func TestErrorAttr(t *testing.T) {
	attr := ErrorAttr(errors.New("key AIzaSyA1234567890abcdefghijklmnop leaked"))
	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, "key AIza**** leaked", attr.Value.String())
}
