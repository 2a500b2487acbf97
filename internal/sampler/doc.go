// Package sampler draws batches of slot indices from a replay table and
// computes their importance-sampling weights.
//
// Three strategies are provided:
//
//   - Uniform: every occupied slot has probability 1/N.
//   - Prioritized: slots are drawn proportionally to their sum-tree weight,
//     optionally mixed with a uniform component so every record keeps a
//     floor probability.
//   - Sequence: Prioritized sampling plus backward priority propagation
//     along n-step links at insert time.
//
// Draws are with replacement; a batch may contain the same slot twice.
// Importance weights are (N*P(i))^-beta scaled so the largest weight in a
// batch is 1.
package sampler
