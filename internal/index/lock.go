package index

import "sync/atomic"

// buildLock gives non-blocking exclusive access to a build. Cross-process
// exclusion at the index location is the caller's responsibility.
type buildLock struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

// tryAcquire attempts to acquire the lock without blocking.
func (l *buildLock) tryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// release releases the lock. Must only be called after a successful acquire.
func (l *buildLock) release() {
	l.state.Store(0)
}
