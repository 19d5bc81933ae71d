// Package locks provides per-instance mutual exclusion for decision
// processing. Every approve/reject call runs its whole check-then-act
// sequence under a lock keyed by instance id, so two concurrent decisions
// against the same step can never both pass the precondition check.
package locks

import "context"

// Locker serializes access to a keyed resource.
type Locker interface {
	// Acquire blocks until the lock for key is held or ctx is done. The
	// returned function releases the lock and must be called exactly once.
	Acquire(ctx context.Context, key string) (release func(), err error)
}
