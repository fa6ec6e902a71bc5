package tclcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotifier_RegisterRunsSetupImmediately(t *testing.T) {
	var setupRan bool
	RegisterEventSource(&EventSource{Name: "test-setup-src", Setup: func() { setupRan = true }})
	defer DeleteEventSource("test-setup-src")
	assert.True(t, setupRan)
}

func TestNotifier_RunChecksInvokesEveryRegisteredSource(t *testing.T) {
	var aChecked, bChecked bool
	RegisterEventSource(&EventSource{Name: "test-a", Check: func() { aChecked = true }})
	RegisterEventSource(&EventSource{Name: "test-b", Check: func() { bChecked = true }})
	defer DeleteEventSource("test-a")
	defer DeleteEventSource("test-b")

	RunChecks()
	assert.True(t, aChecked)
	assert.True(t, bChecked)
}

func TestNotifier_DeleteEventSourceStopsFutureChecks(t *testing.T) {
	var checked bool
	RegisterEventSource(&EventSource{Name: "test-del", Check: func() { checked = true }})
	DeleteEventSource("test-del")

	RunChecks()
	assert.False(t, checked)
}

func TestNotifier_ShutdownClearsAllSources(t *testing.T) {
	var checked bool
	RegisterEventSource(&EventSource{Name: "test-shutdown", Check: func() { checked = true }})
	shutdownNotifier()

	RunChecks()
	assert.False(t, checked)
}
