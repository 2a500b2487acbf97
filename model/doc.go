// Package model defines the core data types shared by the replay engine.
//
// # Identity Types
//
//   - EID: experience id, strictly increasing, never reused (uint64)
//
// Physical slot indices are an engine detail and never appear in this
// package; consumers refer to stored steps exclusively by EID.
//
// # Data Types
//
//   - Step: what the environment loop hands to Table.Add
//   - Record: a stored step with its EID and optional successor link
//   - Batch: columnar bundle returned by Table.Sample
package model
