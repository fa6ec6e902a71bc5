package tclcore

import "sync"

// exitHandler is one registered LIFO teardown callback.
type exitHandler struct {
	name string
	fn   func()
}

// exitHandlerList is a LIFO stack of callbacks that removes a handler
// from the list *before* running it, so a handler may safely
// unregister itself (spec §4.D: "Handlers are removed from their list
// before their callback runs").
type exitHandlerList struct {
	mu       sync.Mutex
	handlers []exitHandler
	drained  bool
}

// Register adds fn under name; Remove takes the same name.
// Register panics if the list has already been drained (spec §4.D:
// "no handler callback may register a new exit handler after the
// global list has been drained (checked; panic otherwise)").
func (l *exitHandlerList) Register(name string, fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.drained {
		panic("tclcore: exit handler registered after list drained: " + name)
	}
	l.handlers = append(l.handlers, exitHandler{name: name, fn: fn})
}

// Remove deletes the most recently registered handler with the given
// name, if present — used by a handler that wants to unregister
// itself mid-callback.
func (l *exitHandlerList) Remove(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.handlers) - 1; i >= 0; i-- {
		if l.handlers[i].name == name {
			l.handlers = append(l.handlers[:i], l.handlers[i+1:]...)
			return
		}
	}
}

// drainLIFO pops and runs handlers most-recently-registered-first,
// removing each one before invoking it.
func (l *exitHandlerList) drainLIFO() {
	for {
		l.mu.Lock()
		if len(l.handlers) == 0 {
			l.drained = true
			l.mu.Unlock()
			return
		}
		last := len(l.handlers) - 1
		h := l.handlers[last]
		l.handlers = l.handlers[:last]
		l.mu.Unlock()
		h.fn()
	}
}

// Interp's lifecycle state: the global, per-thread, and late exit
// handler lists plus the application-wide exit hook (spec §4.D "Exit
// and finalize").
type lifecycle struct {
	mu sync.Mutex

	appExitHook func()

	globalHandlers exitHandlerList
	threadHandlers exitHandlerList
	lateHandlers   exitHandlerList

	initialized bool
}

// SetAppExitHook installs the application-wide exit hook. When set, it
// is invoked by Exit instead of the normal finalize sequence and is
// expected never to return (spec §4.D step 1).
func (l *lifecycle) SetAppExitHook(hook func()) {
	l.mu.Lock()
	l.appExitHook = hook
	l.mu.Unlock()
}

// RegisterGlobalExitHandler adds a handler drained first during
// Finalize.
func (l *lifecycle) RegisterGlobalExitHandler(name string, fn func()) {
	l.globalHandlers.Register(name, fn)
}

// RegisterThreadExitHandler adds a handler drained as part of
// finalizing the calling thread.
func (l *lifecycle) RegisterThreadExitHandler(name string, fn func()) {
	l.threadHandlers.Register(name, fn)
}

// RegisterLateExitHandler adds a handler drained after thread
// finalization, for cleanup that must observe a fully-torn-down
// thread state.
func (l *lifecycle) RegisterLateExitHandler(name string, fn func()) {
	l.lateHandlers.Register(name, fn)
}

// MarkInitialized records that subsystems have been initialized at
// least once, so Exit knows whether a finalize pass has anything to
// do (spec §4.D step 2: "if subsystems were ever initialized").
func (l *lifecycle) MarkInitialized() {
	l.mu.Lock()
	l.initialized = true
	l.mu.Unlock()
}

// Exit runs the process-exit sequence of spec §4.D step 2: the
// application exit hook if one is set (which must not return), else
// Finalize if subsystems were ever touched.
func (l *lifecycle) Exit() {
	l.mu.Lock()
	hook := l.appExitHook
	initialized := l.initialized
	l.mu.Unlock()

	if hook != nil {
		hook()
		return
	}
	if initialized {
		l.Finalize()
	}
}

// Finalize runs the full teardown order of spec §4.D step 3: drain
// global exit handlers LIFO, finalize the thread (drain thread
// handlers LIFO, tear down the notifier), drain late-exit
// handlers LIFO, then tear down the process-wide type and encoding
// registries.
func (l *lifecycle) Finalize() {
	l.globalHandlers.drainLIFO()

	l.threadHandlers.drainLIFO()
	shutdownNotifier()

	l.lateHandlers.drainLIFO()

	shutdownTypeRegistry()
	shutdownEncodingRegistry()
}
