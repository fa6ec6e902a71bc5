package tclcore

import (
	"io"
	"os"
)

// Interp is the minimal "command interpreter" surface this runtime
// core provides (spec §9): a result cell and return-options dict, a
// Settings object, a background-error queue, and the lifecycle
// teardown sequence. It does not implement a script dispatcher or
// bytecode compiler — those remain out of scope per spec.md §1 — but
// gives Modules C (encoding) and D (background errors, wait,
// lifecycle) something concrete to operate on.
type Interp struct {
	Settings *Settings
	BgErrors *BgErrorQueue
	life     lifecycle

	result  Value
	options map[string]Value
}

// NewInterp creates an Interp with default Settings and an empty
// background-error queue reporting to stderr. scheduleIdle is passed
// through to NewBgErrorQueue; pass nil if the host has no event loop
// of its own and will call BgErrors.Drain() directly.
func NewInterp(handler BgErrorHandler, scheduleIdle func(func())) *Interp {
	it := &Interp{Settings: NewSettings()}
	it.BgErrors = NewBgErrorQueue(handler, os.Stderr, scheduleIdle)
	it.life.MarkInitialized()
	return it
}

// SetResult stores the interpreter's current result value and the
// return-options dict in effect alongside it (spec §9: "the entire
// surface Module D's background-error queue needs").
func (it *Interp) SetResult(v Value, options map[string]Value) {
	it.result = v
	it.options = options
}

// Result returns the interpreter's current result value.
func (it *Interp) Result() Value { return it.result }

// ReturnOptions returns the return-options dict in effect for the
// current result.
func (it *Interp) ReturnOptions() map[string]Value { return it.options }

// ReportBackgroundError enqueues the interpreter's current result and
// options onto its background-error queue, as if resultCode had just
// escaped from a callback (spec §4.D "report_background_error").
func (it *Interp) ReportBackgroundError(resultCode error) {
	it.BgErrors.Report(resultCode, it.result, it.options)
}

// SetDiagnosticWriter redirects where a failing background-error
// handler's diagnostic message is written; defaults to os.Stderr.
func (it *Interp) SetDiagnosticWriter(w io.Writer) {
	it.BgErrors.mu.Lock()
	it.BgErrors.diag = w
	it.BgErrors.mu.Unlock()
}

// RegisterGlobalExitHandler, RegisterThreadExitHandler, and
// RegisterLateExitHandler expose the three exit-handler lists drained
// during Finalize, in the order named (spec §4.D step 3).
func (it *Interp) RegisterGlobalExitHandler(name string, fn func()) {
	it.life.RegisterGlobalExitHandler(name, fn)
}

func (it *Interp) RegisterThreadExitHandler(name string, fn func()) {
	it.life.RegisterThreadExitHandler(name, fn)
}

func (it *Interp) RegisterLateExitHandler(name string, fn func()) {
	it.life.RegisterLateExitHandler(name, fn)
}

// SetAppExitHook installs the application-wide exit hook, overriding
// Exit's normal finalize sequence (spec §4.D step 1).
func (it *Interp) SetAppExitHook(hook func()) {
	it.life.SetAppExitHook(hook)
}

// Exit runs the process-exit sequence: the app exit hook if set,
// otherwise Finalize.
func (it *Interp) Exit() { it.life.Exit() }

// Finalize runs the full §4.D teardown order: global exit handlers,
// thread exit handlers plus notifier teardown, late exit handlers,
// then the process-wide type and encoding registries.
func (it *Interp) Finalize() { it.life.Finalize() }
