// Package metadata provides the typed side-channel attached to every stored step.
//
// Agents often need to carry small per-step annotations next to the numeric
// fields (episode counters, environment names, raw info blobs). Instead of an
// untyped map[string]any, values are modelled as a tagged union:
//
//   - Null: metadata.Null()
//   - Int: metadata.Int(42)
//   - Float: metadata.Float(0.5)
//   - String: metadata.String("cartpole")
//   - Bool: metadata.Bool(true)
//   - Blob: metadata.Blob([]byte{...})
//
// Example:
//
//	extra := metadata.Document{
//	    "episode": metadata.Int(17),
//	    "env":     metadata.String("cartpole-v1"),
//	    "info":    metadata.Blob(rawInfo),
//	}
//
// Documents are deep-copied on the way into and out of a replay table, so
// callers never alias stored state.
package metadata
