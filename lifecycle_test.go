package tclcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitHandlerList_DrainsLIFO(t *testing.T) {
	var order []string
	l := &exitHandlerList{}
	l.Register("a", func() { order = append(order, "a") })
	l.Register("b", func() { order = append(order, "b") })
	l.Register("c", func() { order = append(order, "c") })

	l.drainLIFO()
	assert.Equal(t, []string{"c", "b", "a"}, order)
}

func TestExitHandlerList_SelfUnregisterDuringCallback(t *testing.T) {
	var order []string
	l := &exitHandlerList{}
	l.Register("self", func() {
		order = append(order, "self")
		l.Remove("self") // no-op: already popped before running
	})
	l.Register("other", func() { order = append(order, "other") })

	l.drainLIFO()
	assert.Equal(t, []string{"other", "self"}, order)
}

func TestExitHandlerList_PanicsOnRegisterAfterDrain(t *testing.T) {
	l := &exitHandlerList{}
	l.drainLIFO()
	assert.Panics(t, func() {
		l.Register("late", func() {})
	})
}

func TestLifecycle_FinalizeRunsHandlersInOrder(t *testing.T) {
	var order []string
	l := &lifecycle{}
	l.RegisterGlobalExitHandler("g1", func() { order = append(order, "global") })
	l.RegisterThreadExitHandler("t1", func() { order = append(order, "thread") })
	l.RegisterLateExitHandler("late1", func() { order = append(order, "late") })

	l.Finalize()
	require.Equal(t, []string{"global", "thread", "late"}, order)
}

func TestLifecycle_ExitPrefersAppHookAndNeverCallsFinalize(t *testing.T) {
	var hookCalled, finalizeHandlerCalled bool
	l := &lifecycle{}
	l.SetAppExitHook(func() { hookCalled = true })
	l.RegisterGlobalExitHandler("g", func() { finalizeHandlerCalled = true })
	l.MarkInitialized()

	l.Exit()
	assert.True(t, hookCalled)
	assert.False(t, finalizeHandlerCalled)
}

func TestLifecycle_ExitRunsFinalizeWhenInitializedAndNoHook(t *testing.T) {
	var ran bool
	l := &lifecycle{}
	l.RegisterGlobalExitHandler("g", func() { ran = true })
	l.MarkInitialized()

	l.Exit()
	assert.True(t, ran)
}

func TestLifecycle_ExitIsNoOpWhenNeverInitialized(t *testing.T) {
	var ran bool
	l := &lifecycle{}
	l.RegisterGlobalExitHandler("g", func() { ran = true })

	l.Exit()
	assert.False(t, ran)
}
