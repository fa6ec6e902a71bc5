package tclcore

import (
	"github.com/davecgh/go-spew/spew"
)

// Value is a handle to a shared, reference-counted cell holding a
// value's dual string/internal representation. It is deliberately a
// thin struct wrapping a pointer rather than the pointer itself, so
// that a nil Value (no data at all) is distinguishable from a Value
// wrapping an empty string.
type Value struct {
	d *valueData
}

// valueData is the shared cell. Mutating any field requires the
// caller to either hold the only reference (refcount == 1) or be
// performing a cache-fill that doesn't change the abstract value
// (string synthesis, type-conversion caching) — see GetString and
// ConvertTo.
type valueData struct {
	str    []byte
	hasStr bool

	typ      *TypeDescriptor
	internal any

	Refcounted
}

// NewValue wraps str as a value with no internal representation and
// refcount 0. Callers that intend to keep the value must Incref it
// (or hand it to a container, which does so on their behalf).
func NewValue(str []byte) Value {
	return Value{d: &valueData{str: append([]byte(nil), str...), hasStr: true}}
}

// NewValueString is a convenience wrapper around NewValue for Go
// string literals.
func NewValueString(s string) Value {
	return NewValue([]byte(s))
}

// IsNil reports whether v wraps no data at all (the zero Value).
func (v Value) IsNil() bool { return v.d == nil }

// Incref bumps the reference count and returns v for chaining.
func (v Value) Incref() Value {
	if v.d != nil {
		v.d.Refcounted.Incref()
	}
	return v
}

// Refcount returns the current reference count.
func (v Value) Refcount() int32 {
	if v.d == nil {
		return 0
	}
	return v.d.Refcounted.Count()
}

// Decref drops the reference count. At zero it invokes the type
// descriptor's FreeInternal hook (which may itself Decref child
// values, as with an arithmetic series's materialization cache)
// before the cell becomes unreachable.
func (v Value) Decref() {
	if v.d == nil {
		return
	}
	if v.d.Refcounted.Decref() == 0 {
		if v.d.typ != nil && v.d.typ.FreeInternal != nil {
			v.d.typ.FreeInternal(v.d.internal)
		}
		v.d.internal = nil
		v.d.typ = nil
	}
}

// GetType returns the value's current type descriptor, or nil if the
// value has only ever held a string (the "pure string" case).
func (v Value) GetType() *TypeDescriptor {
	if v.d == nil {
		return nil
	}
	return v.d.typ
}

// GetString returns the canonical string form, synthesizing it from
// the internal representation via UpdateStringFromInternal if it
// isn't already cached. Synthesis is a cache fill: it doesn't change
// the abstract value, so it's safe to perform even when the value is
// shared (refcount > 1).
func (v Value) GetString() []byte {
	if v.d == nil {
		return nil
	}
	if !v.d.hasStr {
		if v.d.typ == nil || v.d.typ.UpdateStringFromInternal == nil {
			return nil
		}
		v.d.str = v.d.typ.UpdateStringFromInternal(v.d.internal)
		v.d.hasStr = true
	}
	return v.d.str
}

// InvalidateString drops the cached string form, forcing the next
// GetString to re-synthesize it from the internal representation.
func (v Value) InvalidateString() {
	if v.d != nil {
		v.d.hasStr = false
		v.d.str = nil
	}
}

// SetInternal installs a new internal representation directly,
// releasing whatever the value previously held and invalidating the
// cached string form. On the zero Value it first allocates a fresh
// cell with refcount 0. The caller must have ensured v is uniquely
// owned (via MakeUnique) before calling this, since it changes the
// abstract value.
func (v *Value) SetInternal(typ *TypeDescriptor, payload any) {
	if v.d == nil {
		v.d = &valueData{}
	}
	if v.d.typ != nil && v.d.typ.FreeInternal != nil {
		v.d.typ.FreeInternal(v.d.internal)
	}
	v.d.typ = typ
	v.d.internal = payload
	v.d.hasStr = false
	v.d.str = nil
}

// Internal returns the raw internal payload, or nil if none is set.
func (v Value) Internal() any {
	if v.d == nil {
		return nil
	}
	return v.d.internal
}

// ConvertTo ensures v's current type descriptor is typ, parsing the
// string form through typ.SetFromAnyString if a conversion is
// required. Like GetString, this is a caching operation — it doesn't
// change the abstract value — so it may be called on a shared value.
func (v Value) ConvertTo(typ *TypeDescriptor) error {
	if v.d == nil {
		return NewRuntimeError(ErrTypeMismatch, "convert_to: nil value")
	}
	if v.d.typ == typ {
		return nil
	}
	str := v.GetString()
	payload, err := typ.SetFromAnyString(str)
	if err != nil {
		return err
	}
	if v.d.typ != nil && v.d.typ.FreeInternal != nil {
		v.d.typ.FreeInternal(v.d.internal)
	}
	v.d.typ = typ
	v.d.internal = payload
	// The string form is unaffected: both representations denote
	// the same abstract value by construction.
	return nil
}

// Duplicate returns a fresh value with refcount 0 holding a deep copy
// of v's representations.
func (v Value) Duplicate() Value {
	if v.d == nil {
		return Value{}
	}
	nd := &valueData{
		str:    append([]byte(nil), v.d.str...),
		hasStr: v.d.hasStr,
		typ:    v.d.typ,
	}
	if v.d.typ != nil && v.d.typ.DuplicateInternal != nil {
		nd.internal = v.d.typ.DuplicateInternal(v.d.internal)
	}
	return Value{d: nd}
}

// MakeUnique ensures *v is exclusively owned (refcount <= 1),
// duplicating and replacing it otherwise. This is the copy-on-write
// gate every in-place mutator must pass through first.
func MakeUnique(v *Value) {
	if v.d == nil || v.Refcount() <= 1 {
		return
	}
	fresh := v.Duplicate()
	fresh.Incref()
	v.Decref()
	*v = fresh
}

// DebugDump recursively renders a value's internal representation for
// troubleshooting, bypassing the type's own string synthesis. It's the
// runtime-value analogue of a parse-tree pretty printer: useful for
// seeing exactly what's cached versus synthesized.
func DebugDump(v Value) string {
	if v.d == nil {
		return "<nil value>"
	}
	typeName := "<none>"
	if v.d.typ != nil {
		typeName = v.d.typ.Name
	}
	return spew.Sprintf(
		"Value{type=%s refcount=%d hasStr=%t str=%q internal=%#v}",
		typeName, v.d.Refcounted.Count(), v.d.hasStr, v.d.str, v.d.internal,
	)
}
