package tclcore

import "unicode/utf8"

// table is the payload behind single/double/multibyte table
// converters: a sparse two-level 256x256 map between byte sequences
// and Unicode code points (spec §3's "table encoding payload"). For a
// single-byte encoding only row 0 of ToUCS is used.
type table struct {
	Fallback rune
	IsLead   [256]bool // true for lead bytes of a two-byte sequence (multibyte)
	ToUCS    [256][256]rune
	FromUCS  map[rune]uint16 // encodes as (hi<<8)|lo; hi==0 means single byte lo
	Symbolic bool
}

func (t *table) isMultibyte() bool {
	for _, lead := range t.IsLead {
		if lead {
			return true
		}
	}
	return false
}

// tableConverter implements single-, double- and multi-byte table
// encodings with the same machinery; isMultibyte() on the embedded
// table decides which byte-consumption rule applies.
type tableConverter struct {
	table *table
}

func (tableConverter) NulWidth() int { return 1 }

func (c tableConverter) ToCanonical(_ *ConvertState, src []byte, flags ConvertFlags, out []byte) (ConvertResult, []byte) {
	t := c.table
	var dst []byte
	read, chars := 0, 0
	for read < len(src) {
		b := src[read]
		size := 1
		var r rune
		if t.IsLead[b] {
			if read+1 >= len(src) {
				if flags.End {
					if flags.Strict {
						return ConvertResult{Status: ConvertSyntaxError, SrcRead: read, DstWrote: len(dst), Chars: chars, FailedPos: read}, dst
					}
					r = t.Fallback
				} else {
					return ConvertResult{Status: ConvertMultibyteIncomplete, SrcRead: read, DstWrote: len(dst), Chars: chars}, dst
				}
			} else {
				r = t.ToUCS[b][src[read+1]]
				size = 2
			}
		} else {
			r = t.ToUCS[0][b]
		}
		if r == 0 && b != 0 {
			if flags.Strict {
				return ConvertResult{Status: ConvertUnknownChar, SrcRead: read, DstWrote: len(dst), Chars: chars, FailedPos: read}, dst
			}
			r = t.Fallback
		}
		enc := encodeRune(r, false)
		if len(dst)+len(enc) > cap(out) {
			return ConvertResult{Status: ConvertNeedSpace, SrcRead: read, DstWrote: len(dst), Chars: chars}, dst
		}
		dst = append(dst, enc...)
		read += size
		chars++
	}
	return ConvertResult{Status: ConvertOK, SrcRead: read, DstWrote: len(dst), Chars: chars}, dst
}

func (c tableConverter) FromCanonical(_ *ConvertState, src []byte, flags ConvertFlags, out []byte) (ConvertResult, []byte) {
	t := c.table
	var dst []byte
	read, chars := 0, 0
	for read < len(src) {
		r, size := utf8.DecodeRune(src[read:])
		enc, ok := t.FromUCS[r]
		var bytes []byte
		switch {
		case ok && enc > 0xFF:
			bytes = []byte{byte(enc >> 8), byte(enc)}
		case ok:
			bytes = []byte{byte(enc)}
		case r == 0:
			bytes = []byte{0}
		default:
			if flags.Strict {
				return ConvertResult{Status: ConvertUnknownChar, SrcRead: read, DstWrote: len(dst), Chars: chars, FailedPos: read}, dst
			}
			bytes = []byte{byte(t.Fallback)}
		}
		if len(dst)+len(bytes) > cap(out) {
			return ConvertResult{Status: ConvertNeedSpace, SrcRead: read, DstWrote: len(dst), Chars: chars}, dst
		}
		dst = append(dst, bytes...)
		read += size
		chars++
	}
	return ConvertResult{Status: ConvertOK, SrcRead: read, DstWrote: len(dst), Chars: chars}, dst
}

// ---- built-in single-byte tables ----

func asciiTable() *table {
	t := &table{Fallback: fallbackChar, FromUCS: make(map[rune]uint16, 128)}
	for b := 0; b < 128; b++ {
		t.ToUCS[0][b] = rune(b)
		t.FromUCS[rune(b)] = uint16(b)
	}
	return t
}

func latin1Table() *table {
	t := &table{Fallback: fallbackChar, FromUCS: make(map[rune]uint16, 256)}
	for b := 0; b < 256; b++ {
		t.ToUCS[0][b] = rune(b)
		t.FromUCS[rune(b)] = uint16(b)
	}
	return t
}
