package prommetrics

import (
	"context"
	"testing"

	"github.com/hupe1980/replay"
	"github.com/hupe1980/replay/model"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg, WithNamespace("test"), WithConstLabels(prometheus.Labels{"table": "t1"}))
	require.NoError(t, err)

	tbl, err := replay.New(2, replay.WithMetricsCollector(c), replay.WithSeed(1))
	require.NoError(t, err)
	defer tbl.Close()
	ctx := context.Background()

	var eids []replay.EID
	for i := range 3 {
		eid, err := tbl.Add(ctx, replay.Step{X: model.Vector{float32(i)}})
		require.NoError(t, err)
		eids = append(eids, eid)
	}
	_, err = tbl.Sample(ctx, 4)
	require.NoError(t, err)
	_, err = tbl.Sample(ctx, 0)
	require.Error(t, err)
	_, err = tbl.UpdatePriorities(ctx, eids, []float64{1, 2, 3})
	require.NoError(t, err)

	c.ObserveStats(tbl.Stats())

	assert.Equal(t, 3.0, promtest.ToFloat64(c.ops.WithLabelValues("add", "success")))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.ops.WithLabelValues("sample", "success")))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.ops.WithLabelValues("sample", "error")))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.evictions))
	assert.Equal(t, 4.0, promtest.ToFloat64(c.sampled))
	assert.Equal(t, 2.0, promtest.ToFloat64(c.priorities.WithLabelValues("applied")))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.priorities.WithLabelValues("stale")))
	assert.Equal(t, 2.0, promtest.ToFloat64(c.size))
	assert.Equal(t, 2.0, promtest.ToFloat64(c.capacity))
	assert.Equal(t, 5.0, promtest.ToFloat64(c.totalPriority))
	assert.Equal(t, 3.0, promtest.ToFloat64(c.maxPriority))
	assert.Positive(t, promtest.ToFloat64(c.memoryBytes))

	n, err := promtest.GatherAndCount(reg, "test_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestCollector_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
}
