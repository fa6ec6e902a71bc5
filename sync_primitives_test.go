package tclcore

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecursiveMutex_SameOwnerReentersWithoutDeadlock(t *testing.T) {
	var m RecursiveMutex
	owner := "owner-1"
	m.Lock(owner)
	m.Lock(owner)
	m.Lock(owner)
	assert.Equal(t, 3, m.Depth())
	m.Unlock(owner)
	m.Unlock(owner)
	assert.Equal(t, 1, m.Depth())
	m.Unlock(owner)
	assert.Equal(t, 0, m.Depth())
}

func TestRecursiveMutex_DifferentOwnerBlocksUntilReleased(t *testing.T) {
	var m RecursiveMutex
	m.Lock("owner-a")

	acquired := make(chan struct{})
	go func() {
		m.Lock("owner-b")
		close(acquired)
		m.Unlock("owner-b")
	}()

	select {
	case <-acquired:
		t.Fatal("owner-b should not have acquired while owner-a holds the lock")
	case <-time.After(20 * time.Millisecond):
	}

	m.Unlock("owner-a")
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("owner-b never acquired after owner-a released")
	}
}

func TestRecursiveMutex_UnlockByNonOwnerPanics(t *testing.T) {
	var m RecursiveMutex
	m.Lock("owner-a")
	assert.Panics(t, func() { m.Unlock("owner-b") })
}

func TestOnce_RunsCallbackExactlyOnce(t *testing.T) {
	var o Once
	count := 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.Do(func() { count++ })
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, count)
	assert.True(t, o.Done())
}

func TestCondVar_WaitRestoresRecursionDepthOnWake(t *testing.T) {
	var m RecursiveMutex
	owner := "owner-1"
	cv := NewCondVar(&m, owner)

	m.Lock(owner)
	m.Lock(owner)
	m.Lock(owner)
	assert.Equal(t, 3, m.Depth())

	done := make(chan struct{})
	go func() {
		time.Sleep(10 * time.Millisecond)
		cv.Signal()
	}()
	go func() {
		cv.Wait()
		close(done)
	}()

	<-done
	assert.Equal(t, 3, m.Depth())
	m.Unlock(owner)
	m.Unlock(owner)
	m.Unlock(owner)
}

func TestRefcounted_IncrefDecrefCount(t *testing.T) {
	var r Refcounted
	assert.Equal(t, int32(1), r.Incref())
	assert.Equal(t, int32(2), r.Incref())
	assert.Equal(t, int32(1), r.Decref())
	assert.Equal(t, int32(1), r.Count())
}
