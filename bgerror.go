package tclcore

import (
	"fmt"
	"io"
	"sync"
)

// BgErrorEntry is one captured background error: the result value and
// the return-options dict in effect at the point it escaped (spec
// §4.D "report_background_error").
type BgErrorEntry struct {
	Result        Value
	ReturnOptions map[string]Value
}

// BgErrorHandler is the command prefix invoked to process one queued
// background error. It receives the captured result and options and
// returns either nil (handled), the error from ErrBreak() itself
// (compared by identity, not unwrapped) to discard the rest of the
// queue, or any other error to be reported as a handler failure.
type BgErrorHandler func(entry BgErrorEntry) error

// errBreak is a sentinel a BgErrorHandler can return to request that
// the remaining queue be discarded without further processing (spec
// §4.D step 3: "If the handler returns break, discard remaining
// entries in the queue").
var errBreak = NewRuntimeError(ErrCancelled, "break").WithCode("break")

// ErrBreak is returned by a handler to discard the remainder of the
// background-error queue.
func ErrBreak() error { return errBreak }

// BgErrorQueue is the per-interpreter FIFO of background errors
// awaiting idle-time handling (spec §4.D).
type BgErrorQueue struct {
	mu        sync.Mutex
	entries   []BgErrorEntry
	handler   BgErrorHandler
	sandboxed bool
	diag      io.Writer

	drainScheduled bool
	scheduleIdle   func(func())
}

// NewBgErrorQueue creates an empty queue. scheduleIdle, if non-nil, is
// called with the drain callback the first time an entry is enqueued
// into an empty queue (spec §4.D: "if the queue was empty schedule an
// idle-time drain callback"); if nil, the caller is responsible for
// invoking Drain itself (e.g. from its own event loop integration).
func NewBgErrorQueue(handler BgErrorHandler, diag io.Writer, scheduleIdle func(func())) *BgErrorQueue {
	return &BgErrorQueue{handler: handler, diag: diag, scheduleIdle: scheduleIdle}
}

// SetSandboxed marks whether this queue belongs to a sandboxed child
// interpreter; sandboxed queues suppress the diagnostic write on a
// handler failure (spec §4.D step 4).
func (q *BgErrorQueue) SetSandboxed(sandboxed bool) {
	q.mu.Lock()
	q.sandboxed = sandboxed
	q.mu.Unlock()
}

// Report enqueues resultCode's captured (result, options) unless
// resultCode is nil, in which case it is a no-op (spec: "if result_code
// = ok, no-op").
func (q *BgErrorQueue) Report(resultCode error, result Value, options map[string]Value) {
	if resultCode == nil {
		return
	}
	q.mu.Lock()
	wasEmpty := len(q.entries) == 0
	q.entries = append(q.entries, BgErrorEntry{Result: result, ReturnOptions: options})
	shouldSchedule := wasEmpty && !q.drainScheduled && q.scheduleIdle != nil
	if shouldSchedule {
		q.drainScheduled = true
	}
	q.mu.Unlock()

	if shouldSchedule {
		q.scheduleIdle(q.Drain)
	}
}

// Len reports the number of entries currently queued.
func (q *BgErrorQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Drain repeatedly pops the head entry and invokes the handler, per
// spec §4.D steps 1-4, until the queue is empty or a handler requests
// early termination via ErrBreak.
func (q *BgErrorQueue) Drain() {
	for {
		q.mu.Lock()
		q.drainScheduled = false
		if len(q.entries) == 0 {
			q.mu.Unlock()
			return
		}
		entry := q.entries[0]
		q.entries = q.entries[1:]
		handler := q.handler
		sandboxed := q.sandboxed
		diag := q.diag
		q.mu.Unlock()

		if handler == nil {
			continue
		}
		err := handler(entry)
		if err == nil {
			continue
		}
		if err == errBreak {
			q.mu.Lock()
			q.entries = nil
			q.mu.Unlock()
			return
		}
		if !sandboxed && diag != nil {
			fmt.Fprintf(diag, "background error handler failed: %v\n", err)
		}
	}
}
