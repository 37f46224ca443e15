package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

func TestWithRunTagsLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(New(&buf, "info", "json"))
	t.Cleanup(func() { slog.SetDefault(prev) })

	ctx, logger := WithRun(context.Background(), "export")
	logger.Info("started")

	id := RunID(ctx)
	assert.NotEmpty(t, id)
	assert.Contains(t, buf.String(), `"run_id":"`+id+`"`)
	assert.Contains(t, buf.String(), `"run":"export"`)

	assert.Empty(t, RunID(context.Background()))
}
