package tclcore

import (
	"sync"
)

// ConvertStatus is the outcome of a single to/from-canonical
// conversion call, per spec §4.C.
type ConvertStatus int

const (
	ConvertOK ConvertStatus = iota
	ConvertNeedSpace
	ConvertMultibyteIncomplete
	ConvertSyntaxError
	ConvertUnknownChar
)

// ConvertFlags modulate a single conversion call.
type ConvertFlags struct {
	Start      bool // reset converter state before converting
	End        bool // this is the final chunk; finalize converter state
	Strict     bool // reject unrepresentable bytes/chars with a syntax/unknown error
	NoComplain bool // substitute the fallback char silently instead of erroring
	StopOnErr  bool // not read by the built-in converters; they stop at the first error only when Strict is set
	FailIndex  bool // report the source byte offset of the first error
}

// ConvertResult carries everything a converter call reports back,
// including the position of the first failure.
type ConvertResult struct {
	Status    ConvertStatus
	SrcRead   int
	DstWrote  int
	Chars     int
	FailedPos int // source offset of the failing input on error results, set whether or not FailIndex was requested
}

// converter is the behavior an Encoding plugs in: bidirectional
// conversion between canonical UTF-8 and the encoding's external byte
// representation, with an opaque per-conversion state.
type converter interface {
	// ToCanonical converts src (external bytes) into UTF-8, written
	// into out. state is mutated across incremental calls.
	ToCanonical(state *ConvertState, src []byte, flags ConvertFlags, out []byte) (ConvertResult, []byte)
	// FromCanonical converts src (UTF-8) into the encoding's
	// external bytes, written into out.
	FromCanonical(state *ConvertState, src []byte, flags ConvertFlags, out []byte) (ConvertResult, []byte)
	// NulWidth is the width, in bytes, of this encoding's
	// terminating NUL (1, 2, or 4).
	NulWidth() int
}

// ConvertState is the opaque incremental-conversion state threaded
// across calls to the same logical stream. Exactly one of the
// payload fields is meaningful, selected by the owning Encoding's
// converter kind — this mirrors the design note in spec §9 ("each
// converter's incremental state is an enum of tagged payloads... no
// function pointers in the public surface").
type ConvertState struct {
	EscapeSubTable int // current sub-table index, for escape encodings
	started        bool
}

// Reset clears per-stream state, as if Start had been passed.
func (s *ConvertState) Reset() {
	*s = ConvertState{}
}

// Encoding is a named, refcounted converter record (spec §3).
type Encoding struct {
	Name     string
	NulWidth int

	conv converter

	Refcounted
	// registrySlot records whether this record is still the one
	// findable by Name in the registry (false once superseded by a
	// newer registration of the same name, per spec §3's "old entry
	// kept alive until its refcount reaches zero").
	registrySlot bool
}

// Incref/Decref follow the same contract as Value (spec §4.F
// Refcounted helper), but an Encoding has no FreeInternal hook of its
// own to run at zero — release is purely bookkeeping for the
// registry's drain-on-finalize loop.
func (e *Encoding) Incref() *Encoding {
	e.Refcounted.Incref()
	return e
}

func (e *Encoding) Decref() {
	e.Refcounted.Decref()
}

func (e *Encoding) Refcount() int32 {
	return e.Refcounted.Count()
}

// ToCanonical converts external bytes to canonical UTF-8.
func (e *Encoding) ToCanonical(state *ConvertState, src []byte, flags ConvertFlags, out []byte) (ConvertResult, []byte) {
	if flags.Start {
		state.Reset()
	}
	return e.conv.ToCanonical(state, src, flags, out)
}

// FromCanonical converts canonical UTF-8 to this encoding's external bytes.
func (e *Encoding) FromCanonical(state *ConvertState, src []byte, flags ConvertFlags, out []byte) (ConvertResult, []byte) {
	if flags.Start {
		state.Reset()
	}
	return e.conv.FromCanonical(state, src, flags, out)
}

// encodingRegistry is the process-wide table of named encodings,
// guarded by one mutex covering both lookup and insertion (spec §5).
type encodingRegistry struct {
	mu       sync.Mutex
	byName   map[string]*Encoding
	draining bool
	system   string
}

var globalEncodingRegistry = &encodingRegistry{
	byName: make(map[string]*Encoding),
	system: "utf-8",
}

func init() {
	registerBuiltinEncoding("utf-8", &utf8Converter{modified: false})
	registerBuiltinEncoding("binary", &identityConverter{})
	registerBuiltinEncoding("ascii", &tableConverter{table: asciiTable()})
	registerBuiltinEncoding("iso8859-1", &tableConverter{table: latin1Table()})
	registerBuiltinEncoding("utf-16le", &utf16Converter{bigEndian: false})
	registerBuiltinEncoding("utf-16be", &utf16Converter{bigEndian: true})
	registerBuiltinEncoding("ucs-2le", &utf16Converter{bigEndian: false, ucs2: true})
	registerBuiltinEncoding("ucs-2be", &utf16Converter{bigEndian: true, ucs2: true})
}

func registerBuiltinEncoding(name string, conv converter) {
	e := &Encoding{Name: name, NulWidth: conv.NulWidth(), conv: conv, registrySlot: true}
	globalEncodingRegistry.byName[name] = e
}

// GetEncoding returns the named encoding, incrementing its refcount.
// The caller must ReleaseEncoding it when done.
func GetEncoding(name string) (*Encoding, error) {
	globalEncodingRegistry.mu.Lock()
	defer globalEncodingRegistry.mu.Unlock()
	if e, ok := globalEncodingRegistry.byName[name]; ok {
		return e.Incref(), nil
	}
	e, err := loadEncodingFromFile(name)
	if err != nil {
		return nil, err
	}
	e.registrySlot = true
	globalEncodingRegistry.byName[name] = e
	return e.Incref(), nil
}

// ReleaseEncoding decrements e's refcount. Encodings with refcount 0
// that are no longer the registry's current slot for their name are
// eligible for reclamation the next time the registry drains.
func ReleaseEncoding(e *Encoding) {
	if e == nil {
		return
	}
	e.Decref()
}

// CreateEncoding registers a fully-constructed Encoding under its own
// Name, superseding any previous registration of that name. The old
// record, if any, stays reachable to holders of an existing *Encoding
// pointer but is no longer findable by GetEncoding (spec §3: "last
// registration wins, old entry kept alive until its refcount reaches
// zero").
func CreateEncoding(e *Encoding) {
	globalEncodingRegistry.mu.Lock()
	defer globalEncodingRegistry.mu.Unlock()
	if globalEncodingRegistry.draining {
		return
	}
	if old, ok := globalEncodingRegistry.byName[e.Name]; ok {
		old.registrySlot = false
	}
	e.registrySlot = true
	globalEncodingRegistry.byName[e.Name] = e
}

// SetSystemEncoding sets the process-wide default encoding name.
func SetSystemEncoding(name string) error {
	if _, err := GetEncoding(name); err != nil {
		return err
	}
	globalEncodingRegistry.mu.Lock()
	globalEncodingRegistry.system = name
	globalEncodingRegistry.mu.Unlock()
	return nil
}

// SystemEncoding returns the process-wide default encoding name.
func SystemEncoding() string {
	globalEncodingRegistry.mu.Lock()
	defer globalEncodingRegistry.mu.Unlock()
	return globalEncodingRegistry.system
}

// GetEncodingNames returns every name currently registered.
func GetEncodingNames() []string {
	globalEncodingRegistry.mu.Lock()
	defer globalEncodingRegistry.mu.Unlock()
	names := make([]string, 0, len(globalEncodingRegistry.byName))
	for n := range globalEncodingRegistry.byName {
		names = append(names, n)
	}
	return names
}

// shutdownEncodingRegistry drains the registry during Finalize (spec
// §4.D). It repeatedly pops the "first" entry because escape
// encodings may release sibling sub-encodings as a side effect of
// their own release, which can remove entries out from under a
// simple range loop.
func shutdownEncodingRegistry() {
	globalEncodingRegistry.mu.Lock()
	defer globalEncodingRegistry.mu.Unlock()
	globalEncodingRegistry.draining = true
	for len(globalEncodingRegistry.byName) > 0 {
		var firstName string
		for n := range globalEncodingRegistry.byName {
			firstName = n
			break
		}
		delete(globalEncodingRegistry.byName, firstName)
	}
}
