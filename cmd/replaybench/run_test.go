package main

import (
	"context"
	"testing"

	"github.com/hupe1980/replay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinks(t *testing.T) {
	ctx := context.Background()
	x := replay.Step{X: []float32{1}}
	term := replay.Step{X: []float32{2}, Terminal: true}

	t.Run("terminal links every queued record", func(t *testing.T) {
		tbl, err := replay.New(8)
		require.NoError(t, err)
		defer tbl.Close()

		l := newLinks(3)
		var eids []replay.EID
		for range 4 {
			eid, err := tbl.Add(ctx, x, l.option(false))
			require.NoError(t, err)
			l.added(eid, false)
			eids = append(eids, eid)
		}
		last, err := tbl.Add(ctx, term, l.option(true))
		require.NoError(t, err)
		l.added(last, true)
		assert.Empty(t, l.queue)

		rec, err := tbl.Get(eids[0])
		require.NoError(t, err)
		require.NotNil(t, rec.NEID)
		assert.Equal(t, eids[3], *rec.NEID)
		for _, eid := range eids[1:] {
			rec, err := tbl.Get(eid)
			require.NoError(t, err)
			require.NotNil(t, rec.NEID, "eid %d", eid)
			assert.Equal(t, last, *rec.NEID)
		}
		assert.Zero(t, tbl.Stats().Pending, "the shared queue is never used")
	})

	t.Run("reset drops the chain", func(t *testing.T) {
		tbl, err := replay.New(8)
		require.NoError(t, err)
		defer tbl.Close()

		l := newLinks(1)
		first, err := tbl.Add(ctx, x, l.option(false))
		require.NoError(t, err)
		l.added(first, false)

		l.reset()
		_, err = tbl.Add(ctx, x, l.option(false))
		require.NoError(t, err)

		rec, err := tbl.Get(first)
		require.NoError(t, err)
		assert.False(t, rec.HasNext())
	})
}
