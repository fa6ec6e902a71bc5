package tclcore

import (
	"sync"
	"sync/atomic"
)

// RecursiveMutex is an owner-comparing reentrant lock plus a depth
// counter (spec §4.F). Lock compares the caller's owner token against
// the current holder, bumping depth if it matches and blocking for
// exclusive access otherwise; built on a condition variable rather
// than a plain sync.Mutex because the same owner must be able to call
// Lock more than once without the second call deadlocking against
// itself.
//
// Go has no portable goroutine-id, so the caller supplies its own
// owner token (typically a pointer unique to the logical "thread" of
// control, e.g. an *Interp); this mirrors the original's use of the
// platform thread id as an opaque comparison key.
type RecursiveMutex struct {
	mu    sync.Mutex
	cond  *sync.Cond
	initO sync.Once
	owner any
	depth int
}

func (m *RecursiveMutex) ensureInit() {
	m.initO.Do(func() { m.cond = sync.NewCond(&m.mu) })
}

// Lock acquires the mutex on behalf of owner, or bumps the recursion
// depth if owner already holds it.
func (m *RecursiveMutex) Lock(owner any) {
	m.ensureInit()
	m.mu.Lock()
	defer m.mu.Unlock()
	for m.depth > 0 && m.owner != owner {
		m.cond.Wait()
	}
	m.owner = owner
	m.depth++
}

// Unlock releases one level of recursion, waking a blocked competitor
// only when depth reaches zero.
func (m *RecursiveMutex) Unlock(owner any) {
	m.ensureInit()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owner != owner {
		panic("tclcore: RecursiveMutex unlocked by non-owner")
	}
	m.depth--
	if m.depth == 0 {
		m.owner = nil
		m.cond.Broadcast()
	}
}

// Depth reports the current recursion depth (0 when unlocked).
func (m *RecursiveMutex) Depth() int {
	m.ensureInit()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.depth
}

// releaseAll fully releases the mutex regardless of recursion depth,
// returning the depth it held so a waiter can restore it later (the
// CondVar.Wait contract of spec §4.D).
func (m *RecursiveMutex) releaseAll(owner any) int {
	m.ensureInit()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owner != owner {
		panic("tclcore: RecursiveMutex released by non-owner")
	}
	d := m.depth
	m.owner = nil
	m.depth = 0
	m.cond.Broadcast()
	return d
}

// reacquireAt blocks for exclusive access on behalf of owner, then
// restores depth to the given value.
func (m *RecursiveMutex) reacquireAt(owner any, depth int) {
	m.ensureInit()
	m.mu.Lock()
	defer m.mu.Unlock()
	for m.depth > 0 && m.owner != owner {
		m.cond.Wait()
	}
	m.owner = owner
	m.depth = depth
}

// Once runs a supplied callback exactly once across however many
// callers invoke Do (spec §4.F "once-init": a pair of (lock,
// done-flag); the supplied callback runs under the lock iff the flag
// is clear").
type Once struct {
	mu   sync.Mutex
	done uint32
}

// Do runs fn iff this is the first call to Do on this Once.
func (o *Once) Do(fn func()) {
	if atomic.LoadUint32(&o.done) == 1 {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.done == 0 {
		fn()
		atomic.StoreUint32(&o.done, 1)
	}
}

// Done reports whether Do has already run its callback.
func (o *Once) Done() bool {
	return atomic.LoadUint32(&o.done) == 1
}

// CondVar pairs a wait/signal queue with the RecursiveMutex it
// operates under. Wait saves the current recursion depth, fully
// releases the mutex, blocks until Signal or Broadcast, then
// reacquires it and restores the saved depth — "a lock held N-deep is
// re-acquired to the same depth" (spec §4.D).
type CondVar struct {
	L     *RecursiveMutex
	owner any

	waitMu sync.Mutex
	cond   *sync.Cond
}

// NewCondVar creates a CondVar bound to m, with owner identifying the
// calling goroutine's logical thread for recursion bookkeeping.
func NewCondVar(m *RecursiveMutex, owner any) *CondVar {
	c := &CondVar{L: m, owner: owner}
	c.cond = sync.NewCond(&c.waitMu)
	return c
}

// Wait releases the mutex (however many levels deep it was held) and
// blocks until Signal or Broadcast, then reacquires it at the same
// recursion depth the caller held before calling Wait.
func (c *CondVar) Wait() {
	c.waitMu.Lock()
	depth := c.L.releaseAll(c.owner)
	c.cond.Wait()
	c.waitMu.Unlock()
	c.L.reacquireAt(c.owner, depth)
}

// Signal wakes one waiter.
func (c *CondVar) Signal() {
	c.waitMu.Lock()
	c.cond.Signal()
	c.waitMu.Unlock()
}

// Broadcast wakes all waiters.
func (c *CondVar) Broadcast() {
	c.waitMu.Lock()
	c.cond.Broadcast()
	c.waitMu.Unlock()
}

// Refcounted is a small embeddable atomic reference counter shared by
// Value and Encoding's bookkeeping (spec §4.F's generic refcount
// contract, factored out once both call sites needed the identical
// three methods).
type Refcounted struct {
	n int32
}

// Incref increments the count and returns the new value.
func (r *Refcounted) Incref() int32 { return atomic.AddInt32(&r.n, 1) }

// Decref decrements the count and returns the new value.
func (r *Refcounted) Decref() int32 { return atomic.AddInt32(&r.n, -1) }

// Count returns the current value.
func (r *Refcounted) Count() int32 { return atomic.LoadInt32(&r.n) }
