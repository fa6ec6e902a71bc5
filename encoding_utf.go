package tclcore

import (
	"encoding/binary"
	"unicode/utf16"
	"unicode/utf8"
)

const fallbackChar = '?'

// identityConverter is the "binary" encoding: bytes pass through
// unchanged in both directions. It never fails and needs no external
// loading, which is why it's pre-registered instead of coming from
// the on-disk file format (spec §5's "binary encoding" recovery from
// original_source/generic/tclEncoding.c).
type identityConverter struct{}

func (identityConverter) NulWidth() int { return 1 }

func (identityConverter) ToCanonical(_ *ConvertState, src []byte, _ ConvertFlags, out []byte) (ConvertResult, []byte) {
	return passthrough(src, out)
}

func (identityConverter) FromCanonical(_ *ConvertState, src []byte, _ ConvertFlags, out []byte) (ConvertResult, []byte) {
	return passthrough(src, out)
}

func passthrough(src []byte, out []byte) (ConvertResult, []byte) {
	n := len(src)
	if n > cap(out) {
		n = cap(out)
	}
	out = out[:n]
	copy(out, src[:n])
	status := ConvertOK
	if n < len(src) {
		status = ConvertNeedSpace
	}
	return ConvertResult{Status: status, SrcRead: n, DstWrote: n, Chars: n}, out
}

// utf8Converter canonicalizes malformed UTF-8 and surrogate pairs. In
// "modified" mode it additionally encodes an embedded NUL byte as the
// two-byte overlong sequence C0 80 (and decodes it back), matching
// the historical embedded-NUL convention; in strict mode it rejects
// surrogates and overlong sequences outright.
type utf8Converter struct {
	modified bool
}

func (utf8Converter) NulWidth() int { return 1 }

func (u utf8Converter) ToCanonical(_ *ConvertState, src []byte, flags ConvertFlags, out []byte) (ConvertResult, []byte) {
	var dst []byte
	read, chars := 0, 0
	for read < len(src) {
		if u.modified && read+1 < len(src) && src[read] == 0xC0 && src[read+1] == 0x80 {
			if len(dst)+1 > cap(out) {
				break
			}
			dst = append(dst, 0)
			read += 2
			chars++
			continue
		}
		r, size := utf8.DecodeRune(src[read:])
		if r == utf8.RuneError && size <= 1 {
			if flags.End && size == 0 {
				break
			}
			if !flags.End && !utf8.FullRune(src[read:]) {
				// Could be the head of a multibyte sequence that
				// just hasn't arrived yet.
				return ConvertResult{Status: ConvertMultibyteIncomplete, SrcRead: read, DstWrote: len(dst), Chars: chars}, dst
			}
			if flags.Strict {
				return ConvertResult{Status: ConvertSyntaxError, SrcRead: read, DstWrote: len(dst), Chars: chars, FailedPos: read}, dst
			}
			r = utf8.RuneError
			size = 1
		}
		if isSurrogate(r) && flags.Strict {
			return ConvertResult{Status: ConvertSyntaxError, SrcRead: read, DstWrote: len(dst), Chars: chars, FailedPos: read}, dst
		}
		encoded := encodeRune(r, u.modified)
		if len(dst)+len(encoded) > cap(out) {
			return ConvertResult{Status: ConvertNeedSpace, SrcRead: read, DstWrote: len(dst), Chars: chars}, dst
		}
		dst = append(dst, encoded...)
		read += size
		chars++
	}
	return ConvertResult{Status: ConvertOK, SrcRead: read, DstWrote: len(dst), Chars: chars}, dst
}

func (u utf8Converter) FromCanonical(_ *ConvertState, src []byte, flags ConvertFlags, out []byte) (ConvertResult, []byte) {
	var dst []byte
	read, chars := 0, 0
	for read < len(src) {
		if u.modified && src[read] == 0 {
			if len(dst)+2 > cap(out) {
				return ConvertResult{Status: ConvertNeedSpace, SrcRead: read, DstWrote: len(dst), Chars: chars}, dst
			}
			dst = append(dst, 0xC0, 0x80)
			read++
			chars++
			continue
		}
		r, size := utf8.DecodeRune(src[read:])
		if len(dst)+size > cap(out) {
			return ConvertResult{Status: ConvertNeedSpace, SrcRead: read, DstWrote: len(dst), Chars: chars}, dst
		}
		dst = append(dst, src[read:read+size]...)
		read += size
		chars++
	}
	return ConvertResult{Status: ConvertOK, SrcRead: read, DstWrote: len(dst), Chars: chars}, dst
}

func encodeRune(r rune, modified bool) []byte {
	if modified && r == 0 {
		return []byte{0xC0, 0x80}
	}
	buf := make([]byte, utf8.UTFMax)
	n := utf8.EncodeRune(buf, r)
	return buf[:n]
}

func isSurrogate(r rune) bool {
	return r >= 0xD800 && r <= 0xDFFF
}

// utf16Converter implements UTF-16 (with surrogate pairs) and, when
// ucs2 is set, plain UCS-2 (no surrogate combining — each 16-bit unit
// is one character, even if it falls in the surrogate range). In both
// modes a character above U+FFFF is written as two surrogate units.
type utf16Converter struct {
	bigEndian bool
	ucs2      bool
}

func (utf16Converter) NulWidth() int { return 2 }

func (u utf16Converter) order() binary.ByteOrder {
	if u.bigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (u utf16Converter) ToCanonical(_ *ConvertState, src []byte, flags ConvertFlags, out []byte) (ConvertResult, []byte) {
	var dst []byte
	read, chars := 0, 0
	ord := u.order()
	for read+2 <= len(src) {
		unit := rune(ord.Uint16(src[read:]))
		size := 2
		r := unit
		if !u.ucs2 && utf16.IsSurrogate(unit) {
			if read+4 > len(src) {
				if flags.End {
					if flags.Strict {
						return ConvertResult{Status: ConvertSyntaxError, SrcRead: read, DstWrote: len(dst), Chars: chars, FailedPos: read}, dst
					}
					r = rune(fallbackChar)
					size = 2
				} else {
					return ConvertResult{Status: ConvertMultibyteIncomplete, SrcRead: read, DstWrote: len(dst), Chars: chars}, dst
				}
			} else {
				low := rune(ord.Uint16(src[read+2:]))
				combined := utf16.DecodeRune(unit, low)
				if combined == utf8.RuneError && flags.Strict {
					return ConvertResult{Status: ConvertSyntaxError, SrcRead: read, DstWrote: len(dst), Chars: chars, FailedPos: read}, dst
				}
				r = combined
				size = 4
			}
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

func (u utf16Converter) FromCanonical(_ *ConvertState, src []byte, flags ConvertFlags, out []byte) (ConvertResult, []byte) {
	var dst []byte
	read, chars := 0, 0
	ord := u.order()
	for read < len(src) {
		r, size := utf8.DecodeRune(src[read:])
		units := []uint16{uint16(r)}
		if r > 0xFFFF {
			hi, lo := utf16.EncodeRune(r)
			units = []uint16{uint16(hi), uint16(lo)}
		}
		need := len(units) * 2
		if len(dst)+need > cap(out) {
			return ConvertResult{Status: ConvertNeedSpace, SrcRead: read, DstWrote: len(dst), Chars: chars}, dst
		}
		buf := make([]byte, need)
		for i, unit := range units {
			ord.PutUint16(buf[i*2:], unit)
		}
		dst = append(dst, buf...)
		read += size
		chars++
	}
	return ConvertResult{Status: ConvertOK, SrcRead: read, DstWrote: len(dst), Chars: chars}, dst
}

// utf32Converter implements fixed-width UTF-32 in either byte order.
type utf32Converter struct {
	bigEndian bool
}

func (utf32Converter) NulWidth() int { return 4 }

func (u utf32Converter) order() binary.ByteOrder {
	if u.bigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (u utf32Converter) ToCanonical(_ *ConvertState, src []byte, flags ConvertFlags, out []byte) (ConvertResult, []byte) {
	var dst []byte
	read, chars := 0, 0
	ord := u.order()
	for read+4 <= len(src) {
		r := rune(ord.Uint32(src[read:]))
		enc := encodeRune(r, false)
		if len(dst)+len(enc) > cap(out) {
			return ConvertResult{Status: ConvertNeedSpace, SrcRead: read, DstWrote: len(dst), Chars: chars}, dst
		}
		dst = append(dst, enc...)
		read += 4
		chars++
	}
	if len(src)-read > 0 && flags.End {
		return ConvertResult{Status: ConvertSyntaxError, SrcRead: read, DstWrote: len(dst), Chars: chars, FailedPos: read}, dst
	}
	if len(src)-read > 0 {
		return ConvertResult{Status: ConvertMultibyteIncomplete, SrcRead: read, DstWrote: len(dst), Chars: chars}, dst
	}
	return ConvertResult{Status: ConvertOK, SrcRead: read, DstWrote: len(dst), Chars: chars}, dst
}

func (u utf32Converter) FromCanonical(_ *ConvertState, src []byte, _ ConvertFlags, out []byte) (ConvertResult, []byte) {
	var dst []byte
	read, chars := 0, 0
	ord := u.order()
	for read < len(src) {
		r, size := utf8.DecodeRune(src[read:])
		if len(dst)+4 > cap(out) {
			return ConvertResult{Status: ConvertNeedSpace, SrcRead: read, DstWrote: len(dst), Chars: chars}, dst
		}
		buf := make([]byte, 4)
		ord.PutUint32(buf, uint32(r))
		dst = append(dst, buf...)
		read += size
		chars++
	}
	return ConvertResult{Status: ConvertOK, SrcRead: read, DstWrote: len(dst), Chars: chars}, dst
}
