// Package resource accounts for the payload bytes held by a replay table and
// optionally enforces a hard limit on them.
//
// Usage is tracked with an atomic counter. When a limit is configured, a
// weighted semaphore backs the counter so reservations fail fast instead of
// overshooting:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 256 << 20,
//	})
//
//	if err := rc.AcquireMemory(n); err != nil {
//	    // ErrMemoryLimitExceeded, nothing was reserved
//	}
//	defer rc.ReleaseMemory(n)
//
// Adjust swaps one reservation for another in a single step, which is what an
// overwriting insert needs: the bytes of the evicted record are returned and
// the bytes of the new record are reserved, and the call either fully
// succeeds or leaves usage unchanged.
//
// All methods are safe for concurrent use and are no-ops on a nil Controller.
package resource
