package tclcore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWait_TimeoutOnlyReturnsRemainingMinusOneOnTimeout(t *testing.T) {
	res, err := Wait(context.Background(), WaitOptions{HasTimeout: true, TimeoutMS: 20})
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.True(t, res.TimeLeftValid)
	assert.Equal(t, -1, res.TimeLeftMS)
}

func TestWait_SingleSourceFiresBeforeTimeout(t *testing.T) {
	var notify func()
	src := WaitSource{
		Kind: SourceVariable,
		Name: "x",
		Register: func(n func()) func() {
			notify = n
			return func() {}
		},
	}
	go func() {
		time.Sleep(5 * time.Millisecond)
		notify()
	}()
	res, err := Wait(context.Background(), WaitOptions{
		Sources: []WaitSource{src}, HasTimeout: true, TimeoutMS: 500,
	})
	require.NoError(t, err)
	assert.False(t, res.TimedOut)
}

func TestWait_AllRequiresEverySourceToFire(t *testing.T) {
	var notifyA, notifyB func()
	srcA := WaitSource{Kind: SourceVariable, Name: "a", Register: func(n func()) func() { notifyA = n; return func() {} }}
	srcB := WaitSource{Kind: SourceVariable, Name: "b", Register: func(n func()) func() { notifyB = n; return func() {} }}

	go func() {
		time.Sleep(2 * time.Millisecond)
		notifyA()
		time.Sleep(5 * time.Millisecond)
		notifyB()
	}()

	res, err := Wait(context.Background(), WaitOptions{
		Sources: []WaitSource{srcA, srcB}, All: true, Extended: true,
		HasTimeout: true, TimeoutMS: 1000,
	})
	require.NoError(t, err)
	require.Len(t, res.Fired, 2)
	assert.Equal(t, "a", res.Fired[0].Name)
	assert.Equal(t, "b", res.Fired[1].Name)
}

func TestWait_UnregistersHooksOnExit(t *testing.T) {
	unregistered := false
	src := WaitSource{
		Kind: SourceReadable,
		Name: "chan0",
		Register: func(n func()) func() {
			n()
			return func() { unregistered = true }
		},
	}
	_, err := Wait(context.Background(), WaitOptions{Sources: []WaitSource{src}})
	require.NoError(t, err)
	assert.True(t, unregistered)
}

func TestWait_ValidateNoSourcesAllEventClassesDisabled(t *testing.T) {
	_, err := Wait(context.Background(), WaitOptions{
		NoFileEvents: true, NoIdleEvents: true, NoTimerEvents: true, NoWindowEvents: true,
	})
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrWaitNoSources))
}

func TestWait_ValidateTimeoutWithTimerEventsDisabled(t *testing.T) {
	_, err := Wait(context.Background(), WaitOptions{HasTimeout: true, TimeoutMS: 50, NoTimerEvents: true})
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrWaitNoTime))
}

func TestWait_ValidateChannelSourceWithFileEventsDisabled(t *testing.T) {
	src := WaitSource{Kind: SourceReadable, Name: "c", Register: func(n func()) func() { return func() {} }}
	_, err := Wait(context.Background(), WaitOptions{Sources: []WaitSource{src}, NoFileEvents: true})
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrWaitNoFileEvent))
}

func TestWait_DegenerateFormRunsOnePassAndReturnsEmpty(t *testing.T) {
	res, err := Wait(context.Background(), WaitOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Fired)
	assert.False(t, res.TimeLeftValid)
}

func TestWait_CancellationPropagatesAsError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := WaitSource{Kind: SourceVariable, Name: "x", Register: func(n func()) func() { return func() {} }}
	_, err := Wait(ctx, WaitOptions{Sources: []WaitSource{src}})
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrCancelled))
}
