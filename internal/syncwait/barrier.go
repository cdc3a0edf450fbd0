package syncwait

import "sync"

// Barrier is a signal-once gate. Signal releases every current and future
// waiter; it is safe to call from multiple goroutines.
type Barrier struct {
	once sync.Once
	ch   chan struct{}
}

// NewBarrier constructs an unsignalled barrier.
func NewBarrier() *Barrier {
	return &Barrier{ch: make(chan struct{})}
}

// Signal marks the barrier complete. Repeated calls are no-ops.
func (b *Barrier) Signal() {
	b.once.Do(func() { close(b.ch) })
}

// Done returns a channel closed once the barrier is signalled.
func (b *Barrier) Done() <-chan struct{} {
	return b.ch
}

// Signalled reports whether the barrier has completed.
func (b *Barrier) Signalled() bool {
	select {
	case <-b.ch:
		return true
	default:
		return false
	}
}
