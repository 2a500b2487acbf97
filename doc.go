// Package replay provides an in-memory prioritized experience replay buffer
// for reinforcement learning.
//
// A Table stores timesteps in a fixed-capacity ring. Each record gets a
// strictly increasing EID that stays valid until the ring overwrites its
// slot; after that every lookup by that EID fails with ErrNotFound instead
// of returning the newer record.
//
// # Quick Start
//
//	ctx := context.Background()
//	t, _ := replay.New(100_000,
//	    replay.WithLag(3),                 // 3-step bootstrapping
//	    replay.WithAlpha(0.6),             // priority sharpening
//	    replay.WithUniformProbability(0.1),
//	)
//	defer t.Close()
//
// The environment loop adds one step per transition:
//
//	eid, err := t.Add(ctx, replay.Step{
//	    X:        obs,
//	    A:        action,
//	    R:        model.Reward(r),
//	    Gamma:    0.99,
//	    Terminal: done,
//	})
//
// The learner samples batches and writes back new priorities:
//
//	s, err := t.Sample(ctx, 256, replay.WithSampleBeta(beta))
//	// ... compute TD errors, weight the loss by s.Weights ...
//	_, err = t.UpdatePriorities(ctx, s.EIDs, priorities)
//
// EIDs evicted between Sample and UpdatePriorities are skipped silently.
//
// # N-step Links
//
// With WithLag(n) every record is linked to the record added n steps after
// it: Record.NEID holds the successor's EID and Record.NX its observation.
// A terminal step links all records still waiting for a successor to
// itself and starts a new trajectory. Producers that interleave several
// trajectories pass LinkFrom(prev) to link explicitly.
//
// # Samplers
//
//   - SamplerPrioritized (default): P(i) proportional to priority^alpha,
//     mixed with a uniform component by WithUniformProbability.
//   - SamplerUniform: every record equally likely.
//   - SamplerSequence: prioritized sampling, plus every Add raises the
//     priorities of the records linking to it, decayed per hop
//     (WithTraceDecay, WithTraceDepth).
//
// New records start at the largest priority seen so far, so fresh data is
// sampled at least once with high probability.
//
// # Concurrency
//
// Every public method takes a single table-wide lock, so one actor adding
// and one learner sampling can share a table safely. All operations are
// in-memory and complete in O(log capacity) time, except Check.
package replay
