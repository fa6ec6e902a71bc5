package tclcore

import (
	"math"
	"strconv"
	"strings"
)

// ArithSeries is the internal representation of the arithmetic-series
// "virtual list": a lazy start/end/step sequence that implements the
// full list interface table without materializing its elements unless
// asked to. See spec §3/§4.B.
type ArithSeries struct {
	Start, End, Step float64
	Length           int
	IsDouble         bool
	Precision        int

	// cache holds the materialized elements once AllElements has
	// been called. Each element carries a +1 refcount owned by the
	// series; FreeInternal releases them.
	cache []Value
}

var arithSeriesType *TypeDescriptor

func init() {
	arithSeriesType = &TypeDescriptor{
		Name:    "arithseries",
		Version: 1,
		FreeInternal: func(payload any) {
			as := payload.(*ArithSeries)
			for _, v := range as.cache {
				v.Decref()
			}
			as.cache = nil
		},
		DuplicateInternal: func(payload any) any {
			as := payload.(*ArithSeries)
			dup := *as
			dup.cache = nil // materialization cache is not copied; it's lazy
			return &dup
		},
		UpdateStringFromInternal: func(payload any) []byte {
			as := payload.(*ArithSeries)
			return []byte(as.formatAll())
		},
		SetFromAnyString: func(str []byte) (any, error) {
			return parseArithSeriesString(string(str))
		},
	}
	arithSeriesType.Interface = &ListOps{
		Length: func(payload any) (int, error) {
			return payload.(*ArithSeries).Length, nil
		},
		Index: func(payload any, i int) (Value, error) {
			as := payload.(*ArithSeries)
			if i < 0 || i >= as.Length {
				return NewValueString(""), nil
			}
			if as.cache != nil {
				return as.cache[i], nil
			}
			return NewValueString(as.formatAt(i)), nil
		},
		Range: func(payload any, from, to int) (Value, error) {
			as := payload.(*ArithSeries)
			from, to, ok := clampRange(from, to, as.Length)
			if !ok {
				empty := &ArithSeries{Step: 1, IsDouble: as.IsDouble, Precision: as.Precision}
				v := Value{}
				v.SetInternal(arithSeriesType, empty)
				return v, nil
			}
			newStart := as.at(from)
			newEnd := as.at(to)
			sub := &ArithSeries{
				Start: newStart, End: newEnd, Step: as.Step,
				Length: to - from + 1, IsDouble: as.IsDouble, Precision: as.Precision,
			}
			v := Value{}
			v.SetInternal(arithSeriesType, sub)
			return v, nil
		},
		RangeEnd: func(payload any, from int, endIdx int) (Value, error) {
			as := payload.(*ArithSeries)
			return arithSeriesType.Interface.Range(as, from, endIdx)
		},
		Contains: func(payload any, elem Value) (bool, error) {
			as := payload.(*ArithSeries)
			target, err := strconv.ParseFloat(strings.TrimSpace(string(elem.GetString())), 64)
			if err != nil {
				return false, nil
			}
			if as.Step == 0 {
				return false, nil
			}
			candidate := (target - as.Start) / as.Step
			i := int(math.Round(candidate))
			for _, j := range []int{i, i + 1, i - 1} {
				if j < 0 || j >= as.Length {
					continue
				}
				if as.elementString(j) == formatArithNumber(target, as.IsDouble, as.Precision) {
					return true, nil
				}
			}
			return false, nil
		},
		AllElements: func(payload any) ([]Value, error) {
			as := payload.(*ArithSeries)
			if as.cache != nil {
				return as.cache, nil
			}
			items := make([]Value, as.Length)
			for i := range items {
				items[i] = NewValueString(as.formatAt(i)).Incref()
			}
			as.cache = items
			return items, nil
		},
		Reverse: func(payload any) (any, error) {
			as := payload.(*ArithSeries)
			if as.Length == 0 {
				return as, nil
			}
			newStart := as.at(as.Length - 1)
			newEnd := as.at(0)
			as.Start, as.End = newStart, newEnd
			as.Step = -as.Step
			for _, v := range as.cache {
				v.Decref()
			}
			as.cache = nil
			return as, nil
		},
		IsSorted: func(payload any) (bool, error) {
			return payload.(*ArithSeries).Step >= 0, nil
		},
	}
	RegisterType(arithSeriesType)
}

// NewArithSeries builds a series per spec §4.B's construction rules:
// any one of start/end/step/length may be omitted (represented here
// with the hasX booleans) and is solved algebraically from the rest.
func NewArithSeries(useDoubles bool, precision int, start, end, step float64, length int, hasStart, hasEnd, hasStep, hasLength bool) (*ArithSeries, error) {
	switch {
	case hasLength && (!hasStart || !hasEnd || !hasStep):
		if !hasStep {
			if !hasStart || !hasEnd {
				return nil, NewRuntimeError(ErrValueTooLarge, "arithseries: need at least two of start/end/step when length is given")
			}
			if length <= 1 {
				step = 0
			} else {
				step = (end - start) / float64(length-1)
			}
		} else if !hasStart {
			start = end - step*float64(length-1)
		} else if !hasEnd {
			end = start + step*float64(length-1)
		}
	case !hasLength:
		if !hasStep {
			if end >= start {
				step = 1
			} else {
				step = -1
			}
		}
		if step == 0 {
			if end != start {
				length = 0
			} else {
				length = 1
			}
		} else {
			length = computeLength(start, end, step, useDoubles, precision)
		}
	}

	if length < 0 {
		return nil, NewRuntimeError(ErrValueTooLarge, "arithseries: negative length")
	}
	const maxSeriesLength = 1 << 32
	if length > maxSeriesLength {
		return nil, NewRuntimeError(ErrValueTooLarge, "arithseries: length %d exceeds maximum", length)
	}

	return &ArithSeries{
		Start: start, End: end, Step: step, Length: length,
		IsDouble: useDoubles, Precision: precision,
	}, nil
}

func computeLength(start, end, step float64, useDoubles bool, precision int) int {
	if step == 0 {
		if end == start {
			return 1
		}
		return 0
	}
	if !useDoubles {
		n := math.Floor((end-start)/step) + 1
		if n < 0 {
			return 0
		}
		return int(n)
	}
	// Scale by 10^precision before dividing, to avoid FP drift per
	// spec §3's invariant for double series.
	scale := math.Pow(10, float64(precision))
	sStart := math.Round(start * scale)
	sEnd := math.Round(end * scale)
	sStep := math.Round(step * scale)
	if sStep == 0 {
		if sEnd == sStart {
			return 1
		}
		return 0
	}
	n := math.Floor((sEnd-sStart)/sStep) + 1
	if n < 0 {
		return 0
	}
	return int(n)
}

// at returns the raw float64 value at index i with no bounds check.
func (as *ArithSeries) at(i int) float64 {
	v := as.Start + as.Step*float64(i)
	if as.IsDouble {
		scale := math.Pow(10, float64(as.Precision))
		v = math.Round(v*scale) / scale
	}
	return v
}

func (as *ArithSeries) formatAt(i int) string {
	return formatArithNumber(as.at(i), as.IsDouble, as.Precision)
}

// elementString returns the canonical text of element i, preferring a
// materialized cache entry over the start/step formula — the cache
// may hold values no longer expressible by the formula (e.g. after a
// string-reparse fallback), and it is always authoritative when set.
func (as *ArithSeries) elementString(i int) string {
	if as.cache != nil {
		return string(as.cache[i].GetString())
	}
	return as.formatAt(i)
}

func (as *ArithSeries) formatAll() string {
	words := make([]string, as.Length)
	for i := range words {
		words[i] = as.elementString(i)
	}
	return strings.Join(words, " ")
}

func formatArithNumber(v float64, isDouble bool, precision int) string {
	if !isDouble {
		return strconv.FormatInt(int64(math.Round(v)), 10)
	}
	return strconv.FormatFloat(v, 'f', precision, 64)
}

func parseArithSeriesString(s string) (*ArithSeries, error) {
	fields := strings.Fields(s)
	items := make([]Value, len(fields))
	for i, f := range fields {
		items[i] = NewValueString(f).Incref()
	}
	// A parsed-back series degenerates to a start-0, step-1
	// "series" over the materialized values; it is no longer a true
	// arithmetic progression in general, but round-tripping through
	// the string form and reparsing a concrete series is exactly the
	// interface-table fallback path (spec §4.A), not a guarantee
	// that re-parsed content stays a series internally.
	as := &ArithSeries{Start: 0, Step: 1, Length: len(fields), cache: items}
	return as, nil
}
