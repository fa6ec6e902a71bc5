package tclcore

import (
	"bytes"
	"unicode/utf8"
)

// escapeSubTable names one sub-encoding reachable from an escape
// encoding, plus the escape byte sequence that selects it. The
// referenced sub-encoding is resolved lazily on first use and never
// back-references the escape encoding that names it (spec §9's note
// on breaking the cyclic reference by name-addressing).
type escapeSubTable struct {
	Name     string // sub-encoding name, for lazy GetEncoding
	Sequence []byte // escape bytes that select this sub-table

	resolved *Encoding
}

// escapeConverter implements a composite, multi-charset encoding that
// switches between sub-encodings via in-band escape sequences,
// carrying a small integer state (the active sub-table index) across
// calls (spec §3/§4.C "Escape (multi-set)").
type escapeConverter struct {
	Init, Final []byte
	SubTables   []*escapeSubTable
	// AsciiIndex is the sub-table treated as the implicit start
	// state; Final also emits this sub-table's escape on close if
	// the stream ended in a different state, so a reader that only
	// understands ASCII can resynchronize.
	AsciiIndex int
}

func (c *escapeConverter) NulWidth() int { return 1 }

func (c *escapeConverter) subEncoding(i int) (*Encoding, error) {
	st := c.SubTables[i]
	if st.resolved != nil {
		return st.resolved, nil
	}
	e, err := GetEncoding(st.Name)
	if err != nil {
		return nil, err
	}
	st.resolved = e
	return e, nil
}

func (c *escapeConverter) ToCanonical(state *ConvertState, src []byte, flags ConvertFlags, out []byte) (ConvertResult, []byte) {
	var dst []byte
	read, chars := 0, 0
	for read < len(src) {
		if len(c.Init) > 0 && bytes.HasPrefix(src[read:], c.Init) {
			read += len(c.Init)
			continue
		}
		if len(c.Final) > 0 && bytes.HasPrefix(src[read:], c.Final) {
			read += len(c.Final)
			state.EscapeSubTable = c.AsciiIndex
			continue
		}
		matched := false
		for i, st := range c.SubTables {
			if len(st.Sequence) > 0 && bytes.HasPrefix(src[read:], st.Sequence) {
				state.EscapeSubTable = i
				read += len(st.Sequence)
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		// Route one unit of non-escape input through the active
		// sub-table: one byte, or two when it is a lead byte of a
		// double-byte table, so mid-stream escape sequences stay
		// byte-aligned.
		sub, err := c.subEncoding(state.EscapeSubTable)
		if err != nil {
			return ConvertResult{Status: ConvertSyntaxError, SrcRead: read, DstWrote: len(dst), Chars: chars, FailedPos: read}, dst
		}
		subState := &ConvertState{}
		end := read + 1
		if tc, ok := sub.conv.(*tableConverter); ok && tc.table.IsLead[src[read]] {
			end = read + 2
		}
		if end > len(src) {
			end = len(src)
		}
		res, produced := sub.ToCanonical(subState, src[read:end], ConvertFlags{Start: true, End: true, Strict: flags.Strict}, make([]byte, 8))
		if res.Status != ConvertOK {
			return ConvertResult{Status: res.Status, SrcRead: read, DstWrote: len(dst), Chars: chars, FailedPos: read}, dst
		}
		if len(dst)+len(produced) > cap(out) {
			return ConvertResult{Status: ConvertNeedSpace, SrcRead: read, DstWrote: len(dst), Chars: chars}, dst
		}
		dst = append(dst, produced...)
		read += res.SrcRead
		chars++
	}
	return ConvertResult{Status: ConvertOK, SrcRead: read, DstWrote: len(dst), Chars: chars}, dst
}

func (c *escapeConverter) FromCanonical(state *ConvertState, src []byte, flags ConvertFlags, out []byte) (ConvertResult, []byte) {
	var dst []byte
	if flags.Start {
		dst = append(dst, c.Init...)
	}
	read, chars := 0, 0
	for read < len(src) {
		r := decodeOneRune(src[read:])
		targetIdx, ok := c.subTableFor(r)
		if !ok {
			targetIdx = c.AsciiIndex
		}
		if targetIdx != state.EscapeSubTable {
			seq := c.SubTables[targetIdx].Sequence
			if len(dst)+len(seq) > cap(out) {
				return ConvertResult{Status: ConvertNeedSpace, SrcRead: read, DstWrote: len(dst), Chars: chars}, dst
			}
			dst = append(dst, seq...)
			state.EscapeSubTable = targetIdx
		}
		sub, err := c.subEncoding(state.EscapeSubTable)
		if err != nil {
			return ConvertResult{Status: ConvertUnknownChar, SrcRead: read, DstWrote: len(dst), Chars: chars, FailedPos: read}, dst
		}
		size := runeLen(src[read:])
		subState := &ConvertState{}
		res, produced := sub.FromCanonical(subState, src[read:read+size], ConvertFlags{Start: true, End: true, Strict: flags.Strict}, make([]byte, 8))
		if res.Status != ConvertOK {
			return ConvertResult{Status: res.Status, SrcRead: read, DstWrote: len(dst), Chars: chars, FailedPos: read}, dst
		}
		if len(dst)+len(produced) > cap(out) {
			return ConvertResult{Status: ConvertNeedSpace, SrcRead: read, DstWrote: len(dst), Chars: chars}, dst
		}
		dst = append(dst, produced...)
		read += size
		chars++
	}
	if flags.End {
		if state.EscapeSubTable != c.AsciiIndex {
			dst = append(dst, c.SubTables[c.AsciiIndex].Sequence...)
		}
		dst = append(dst, c.Final...)
	}
	return ConvertResult{Status: ConvertOK, SrcRead: read, DstWrote: len(dst), Chars: chars}, dst
}

// subTableFor reports which sub-table can represent r, trying every
// sub-table in declaration order (resolving each on first use) and
// returning the first that converts it; callers fall back to
// AsciiIndex if none claim it.
func (c *escapeConverter) subTableFor(r rune) (int, bool) {
	for i := range c.SubTables {
		e, err := c.subEncoding(i)
		if err != nil {
			continue
		}
		subState := &ConvertState{}
		res, _ := e.FromCanonical(subState, []byte(string(r)), ConvertFlags{Start: true, End: true, Strict: true}, make([]byte, 8))
		if res.Status == ConvertOK {
			return i, true
		}
	}
	return 0, false
}

func decodeOneRune(b []byte) rune {
	r, _ := utf8.DecodeRune(b)
	return r
}

func runeLen(b []byte) int {
	_, size := utf8.DecodeRune(b)
	return size
}
