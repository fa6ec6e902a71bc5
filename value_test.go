package tclcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_StringRoundTrip(t *testing.T) {
	v := NewValueString("hello")
	assert.Equal(t, "hello", string(v.GetString()))
	assert.Nil(t, v.GetType())
}

func TestValue_ConvertToSynthesizesInternalAndKeepsString(t *testing.T) {
	v := NewValueString("1 2 3")
	err := v.ConvertTo(listType)
	require.NoError(t, err)
	assert.Equal(t, listType, v.GetType())

	n, err := Length(v)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// String form is unaffected by the conversion.
	assert.Equal(t, "1 2 3", string(v.GetString()))
}

func TestValue_RefcountAndFree(t *testing.T) {
	released := false
	td := &TypeDescriptor{
		Name: "test-release",
		FreeInternal: func(any) {
			released = true
		},
	}
	v := Value{}
	v.SetInternal(td, 42)
	v.Incref()
	assert.EqualValues(t, 1, v.Refcount())
	v.Incref()
	assert.EqualValues(t, 2, v.Refcount())
	v.Decref()
	assert.False(t, released)
	v.Decref()
	assert.True(t, released)
}

func TestMakeUnique_DuplicatesWhenShared(t *testing.T) {
	v := NewValueString("shared")
	v.Incref()
	alias := v
	alias.Incref()

	MakeUnique(&v)
	assert.NotSame(t, v.d, alias.d)
	assert.Equal(t, "shared", string(v.GetString()))
}

func TestMakeUnique_NoOpWhenUnique(t *testing.T) {
	v := NewValueString("solo")
	v.Incref()
	d := v.d
	MakeUnique(&v)
	assert.Same(t, d, v.d)
}

func TestDebugDump_DoesNotPanicOnNilOrTyped(t *testing.T) {
	assert.Contains(t, DebugDump(Value{}), "nil")
	v := NewValueString("x")
	assert.Contains(t, DebugDump(v), "Value{")
}
