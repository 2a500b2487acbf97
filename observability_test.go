package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicMetricsCollector(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	tbl := newTable(t, 2, WithMetricsCollector(metrics))
	ctx := context.Background()

	eids := addN(t, tbl, 3)
	_, err := tbl.Add(ctx, step(0), WithPriority(-1))
	require.Error(t, err)

	_, err = tbl.Sample(ctx, 8)
	require.NoError(t, err)
	_, err = tbl.Sample(ctx, 0)
	require.Error(t, err)

	_, err = tbl.UpdatePriorities(ctx, eids, []float64{1, 2, 3})
	require.NoError(t, err)

	require.NoError(t, tbl.Delete(ctx, 0))
	require.Error(t, tbl.Delete(ctx, 0))

	stats := metrics.GetStats()
	assert.Equal(t, int64(4), stats.AddCount)
	assert.Equal(t, int64(1), stats.AddErrors)
	assert.Equal(t, int64(1), stats.EvictionCount)
	assert.Equal(t, int64(2), stats.SampleCount)
	assert.Equal(t, int64(1), stats.SampleErrors)
	assert.Equal(t, int64(8), stats.SampledRecords)
	assert.Equal(t, int64(1), stats.UpdateCount)
	assert.Equal(t, int64(2), stats.UpdatedPriorities)
	assert.Equal(t, int64(1), stats.SkippedPriorities)
	assert.Equal(t, int64(2), stats.DeleteCount)
	assert.Equal(t, int64(1), stats.DeleteErrors)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	tbl := newTable(t, 1, WithLogger(logger.With("table", "test")))
	ctx := context.Background()

	eids := addN(t, tbl, 2)
	_, err := tbl.UpdatePriorities(ctx, eids, []float64{1, 1})
	require.NoError(t, err)

	var msgs []string
	var warn map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		assert.Equal(t, "test", entry["table"])
		msgs = append(msgs, entry["msg"].(string))
		if entry["level"] == "WARN" {
			warn = entry
		}
	}

	assert.Contains(t, msgs, "add completed")
	assert.Contains(t, msgs, "record evicted")
	require.NotNil(t, warn)
	assert.Equal(t, "update priorities skipped stale eids", warn["msg"])
	assert.Equal(t, float64(1), warn["skipped"])
}

func TestLoggerConstructors(t *testing.T) {
	for _, l := range []*Logger{
		NewLogger(nil),
		NewJSONLogger(slog.LevelInfo),
		NewTextLogger(slog.LevelWarn),
		NoopLogger(),
	} {
		require.NotNil(t, l)
		assert.NotNil(t, l.Logger)
	}
	assert.False(t, NoopLogger().Enabled(context.Background(), slog.LevelError))
}
