package tclcore

import (
	"context"
	"time"
)

// WaitSourceKind classifies one source registered with Wait.
type WaitSourceKind int

const (
	SourceVariable WaitSourceKind = iota
	SourceReadable
	SourceWritable
)

func (k WaitSourceKind) String() string {
	switch k {
	case SourceVariable:
		return "variable"
	case SourceReadable:
		return "readable"
	case SourceWritable:
		return "writable"
	default:
		return "unknown"
	}
}

// WaitSource is one of the `-variable`/`-readable`/`-writable` operands
// passed to Wait. Register installs whatever hook the concrete source
// needs (a variable trace, a channel watch) and must call notify
// exactly once, the first time the source becomes ready; it returns
// an unregister func run unconditionally when Wait exits (spec §4.D:
// "on any exit path, deregister all hooks").
type WaitSource struct {
	Kind     WaitSourceKind
	Name     string
	Register func(notify func()) (unregister func())
}

// WaitOptions mirrors the `wait` option set of spec §4.D.
type WaitOptions struct {
	Sources []WaitSource

	HasTimeout bool
	TimeoutMS  int

	All            bool
	Extended       bool
	NoFileEvents   bool
	NoIdleEvents   bool
	NoTimerEvents  bool
	NoWindowEvents bool
}

// WaitFired records one source's firing order, for the `-extended`
// result shape.
type WaitFired struct {
	Kind WaitSourceKind
	Name string
	Seq  int
}

// WaitResult is Wait's return value.
type WaitResult struct {
	Fired          []WaitFired
	TimeLeftMS     int  // meaningful iff TimeLeftValid
	TimeLeftValid  bool
	TimedOut       bool
}

// validateWaitOptions implements spec §4.D's three option-consistency
// checks.
func validateWaitOptions(opts WaitOptions) error {
	allEventClassesDisabled := opts.NoFileEvents && opts.NoIdleEvents && opts.NoTimerEvents && opts.NoWindowEvents
	if allEventClassesDisabled && len(opts.Sources) == 0 {
		return NewRuntimeError(ErrWaitNoSources, "wait: no sources and no event classes enabled")
	}
	if opts.HasTimeout && opts.TimeoutMS > 0 && opts.NoTimerEvents {
		return NewRuntimeError(ErrWaitNoTime, "wait: -timeout given but -notimerevents disables it")
	}
	if opts.NoFileEvents {
		for _, s := range opts.Sources {
			if s.Kind == SourceReadable || s.Kind == SourceWritable {
				return NewRuntimeError(ErrWaitNoFileEvent, "wait: channel source given but -nofileevents disables it")
			}
		}
	}
	if opts.HasTimeout && opts.TimeoutMS < 0 {
		return NewRuntimeError(ErrWaitNegativeTime, "wait: negative -timeout %d", opts.TimeoutMS)
	}
	return nil
}

// Wait is the event multiplexer of spec §4.D. It blocks (respecting
// ctx cancellation) until, per -all, either every source has fired or
// any one has, or until the configured timeout elapses.
func Wait(ctx context.Context, opts WaitOptions) (WaitResult, error) {
	if err := validateWaitOptions(opts); err != nil {
		return WaitResult{}, err
	}

	// Degenerate form: no sources, no timeout — one event-loop pass,
	// return immediately (spec §4.D "Degenerate form").
	if len(opts.Sources) == 0 && !opts.HasTimeout {
		RunChecks()
		return WaitResult{}, nil
	}

	type firing struct {
		idx int
		seq int
	}
	fired := make(chan firing, len(opts.Sources))
	unregs := make([]func(), len(opts.Sources))
	seqCounter := 0

	for i, src := range opts.Sources {
		i, src := i, src
		notify := func() {
			seqCounter++
			select {
			case fired <- firing{idx: i, seq: seqCounter}:
			default:
			}
		}
		if src.Register != nil {
			unregs[i] = src.Register(notify)
		}
	}
	defer func() {
		for _, u := range unregs {
			if u != nil {
				u()
			}
		}
	}()

	var timer *time.Timer
	var timerC <-chan time.Time
	deadline := time.Time{}
	if opts.HasTimeout {
		timer = time.NewTimer(time.Duration(opts.TimeoutMS) * time.Millisecond)
		defer timer.Stop()
		timerC = timer.C
		deadline = time.Now().Add(time.Duration(opts.TimeoutMS) * time.Millisecond)
	}

	seen := make(map[int]bool, len(opts.Sources))
	var result WaitResult

	// ticker drives RunChecks between source/timeout/cancellation
	// events, standing in for the original's "run one event step"
	// poll (spec §4.D).
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return result, NewRuntimeError(ErrCancelled, "wait: cancelled")
		case f := <-fired:
			if !seen[f.idx] {
				seen[f.idx] = true
				src := opts.Sources[f.idx]
				result.Fired = append(result.Fired, WaitFired{Kind: src.Kind, Name: src.Name, Seq: f.seq})
			}
			if opts.All && len(seen) != len(opts.Sources) {
				continue
			}
			return finishWaitResult(opts, result, deadline, false), nil
		case <-timerC:
			result.TimedOut = true
			return finishWaitResult(opts, result, deadline, true), nil
		case <-ticker.C:
			RunChecks()
		}
	}
}

func finishWaitResult(opts WaitOptions, result WaitResult, deadline time.Time, timedOut bool) WaitResult {
	if opts.HasTimeout {
		if timedOut {
			result.TimeLeftMS = -1
			result.TimeLeftValid = true
		} else {
			remaining := time.Until(deadline)
			ms := int(remaining / time.Millisecond)
			if ms < 0 {
				ms = 0
			}
			result.TimeLeftMS = ms
			result.TimeLeftValid = true
		}
	}
	if !opts.Extended {
		// Non-extended callers only ever see the timeout-only shape
		// (spec §4.D: "If only -timeout used, return remaining ms...
		// Otherwise return empty").
		if len(opts.Sources) > 0 {
			result.Fired = nil
		}
	}
	return result
}
