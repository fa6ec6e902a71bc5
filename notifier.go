package tclcore

import "sync"

// EventSource is a standing, always-on source of events registered
// independently of any one `wait` call — recovered from
// `original_source/generic/tclEvent.c`'s `Tcl_CreateEventSource`,
// which the spec's wait multiplexer prose doesn't name but which the
// original treats as the general mechanism per-call hooks are built
// from (a channel's readable handler, for instance, is a standing
// source that any number of concurrent `wait` calls can observe).
//
// Setup is called once when the source is registered; Check is called
// once per event-loop pass and should queue any events that have
// become ready since the last Check (by whatever delivery mechanism
// the concrete source uses — a trace callback, a channel watch, etc).
type EventSource struct {
	Name  string
	Setup func()
	Check func()
}

type notifierRegistry struct {
	mu      sync.Mutex
	sources map[string]*EventSource
}

var globalNotifier = &notifierRegistry{sources: make(map[string]*EventSource)}

// RegisterEventSource adds a standing event source to the process-wide
// notifier, calling its Setup hook immediately.
func RegisterEventSource(src *EventSource) {
	globalNotifier.mu.Lock()
	globalNotifier.sources[src.Name] = src
	globalNotifier.mu.Unlock()
	if src.Setup != nil {
		src.Setup()
	}
}

// DeleteEventSource removes a standing event source by name.
func DeleteEventSource(name string) {
	globalNotifier.mu.Lock()
	delete(globalNotifier.sources, name)
	globalNotifier.mu.Unlock()
}

// RunChecks invokes every registered source's Check hook once, in an
// unspecified but stable-for-the-call order — the single "event step"
// that wait.go's loop runs per iteration (spec §4.D: "run one event
// step").
func RunChecks() {
	globalNotifier.mu.Lock()
	sources := make([]*EventSource, 0, len(globalNotifier.sources))
	for _, s := range globalNotifier.sources {
		sources = append(sources, s)
	}
	globalNotifier.mu.Unlock()
	for _, s := range sources {
		if s.Check != nil {
			s.Check()
		}
	}
}

// shutdownNotifier removes every standing source, used during
// Finalize's I/O-and-notifier teardown step (spec §4.D step 3).
func shutdownNotifier() {
	globalNotifier.mu.Lock()
	globalNotifier.sources = make(map[string]*EventSource)
	globalNotifier.mu.Unlock()
}
