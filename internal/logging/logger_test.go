package logging_test

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/lessonweave/internal/logging"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"loud":    slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, logging.ParseLevel(in), in)
	}
}

func TestNewWithWriter_RenamesErrorKey(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Warn("failed", "error", errors.New("boom"))

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "err=boom")
}
