// Package testutil provides testing utilities for replay tables.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded, thread-safe RNG and generators for steps,
// trajectories and priorities.
//
// # Random Data
//
//	rng := testutil.NewRNG(seed)
//	obs := make([]float32, 84)
//	rng.FillUniform(obs)
//
// # Trajectories
//
//	steps := rng.Trajectory(200, testutil.StepShape{Obs: 8, Act: 2})
//	for _, s := range steps {
//	    table.Add(ctx, s)
//	}
package testutil
