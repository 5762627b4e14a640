// Package semaphore provides the counting and binary semaphores the
// Parallel Encoder stage uses to bound concurrent decode/encode work:
// a counting semaphore with identified permits (worker_sem, decoder_sem)
// and a binary per-task signal (encoder_sem[i]).
package semaphore

import "context"

// Counting is a counting semaphore whose permits carry an identity in
// [0, n). Acquire returns which permit was taken so a caller can index
// per-permit state (e.g. a progress slot); Release returns it.
type Counting struct {
	permits chan int
}

// New creates a Counting semaphore with n permits, identified 0..n-1. n<=0
// is treated as 1.
func New(n int) *Counting {
	if n <= 0 {
		n = 1
	}
	s := &Counting{permits: make(chan int, n)}
	for i := 0; i < n; i++ {
		s.permits <- i
	}
	return s
}

// Acquire blocks until a permit is available or ctx is done, returning the
// acquired permit's identity.
func (s *Counting) Acquire(ctx context.Context) (int, error) {
	select {
	case id := <-s.permits:
		return id, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Release returns a permit to the pool. id should be the value returned by
// the matching Acquire.
func (s *Counting) Release(id int) {
	s.permits <- id
}

// Len returns the total number of permits the semaphore was created with.
func (s *Counting) Len() int {
	return cap(s.permits)
}

// Binary is a single-slot signal used for the per-task handoff between a
// parallel-encoder worker and the shared decode-dispatch loop: the decoder
// signals once a task's frame stream has started, and the worker waits for
// exactly that signal before it begins consuming frames.
type Binary struct {
	ch chan struct{}
}

// NewBinary creates an unsignaled Binary semaphore.
func NewBinary() *Binary {
	return &Binary{ch: make(chan struct{}, 1)}
}

// Signal marks the semaphore ready. Idempotent: signaling an already
// signaled Binary is a no-op.
func (b *Binary) Signal() {
	select {
	case b.ch <- struct{}{}:
	default:
	}
}

// Wait blocks until Signal has been called or ctx is done.
func (b *Binary) Wait(ctx context.Context) error {
	select {
	case <-b.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
