package tclcore

import (
	"strings"
)

// listPayload is the internal representation of the concrete "list"
// type: an eagerly materialized slice of child values. It exists so
// the interface-table fallback ("serialize to string, parse as a
// concrete list, re-dispatch") always has something to reparse into —
// without a concrete sibling, a type with a sparse interface table
// would have nowhere to fall back to.
type listPayload struct {
	items []Value
}

var listType *TypeDescriptor

func init() {
	listType = &TypeDescriptor{
		Name:    "list",
		Version: 1,
		FreeInternal: func(payload any) {
			lp := payload.(*listPayload)
			for _, item := range lp.items {
				item.Decref()
			}
		},
		DuplicateInternal: func(payload any) any {
			lp := payload.(*listPayload)
			items := make([]Value, len(lp.items))
			for i, item := range lp.items {
				items[i] = item.Duplicate()
				items[i].Incref()
			}
			return &listPayload{items: items}
		},
		UpdateStringFromInternal: func(payload any) []byte {
			lp := payload.(*listPayload)
			words := make([]string, len(lp.items))
			for i, item := range lp.items {
				words[i] = listQuoteWord(string(item.GetString()))
			}
			return []byte(strings.Join(words, " "))
		},
		SetFromAnyString: func(str []byte) (any, error) {
			words, err := parseTclList(string(str))
			if err != nil {
				return nil, err
			}
			items := make([]Value, len(words))
			for i, w := range words {
				items[i] = NewValueString(w).Incref()
			}
			return &listPayload{items: items}, nil
		},
	}
	listType.Interface = &ListOps{
		Length: func(payload any) (int, error) {
			return len(payload.(*listPayload).items), nil
		},
		Index: func(payload any, i int) (Value, error) {
			items := payload.(*listPayload).items
			if i < 0 || i >= len(items) {
				return NewValueString(""), nil
			}
			return items[i], nil
		},
		Range: func(payload any, from, to int) (Value, error) {
			items := payload.(*listPayload).items
			from, to, ok := clampRange(from, to, len(items))
			if !ok {
				v := Value{}
				v.SetInternal(listType, &listPayload{})
				return v, nil
			}
			sub := make([]Value, to-from+1)
			for i := range sub {
				sub[i] = items[from+i].Duplicate()
				sub[i].Incref()
			}
			v := Value{}
			v.SetInternal(listType, &listPayload{items: sub})
			return v, nil
		},
		Contains: func(payload any, elem Value) (bool, error) {
			target := string(elem.GetString())
			for _, item := range payload.(*listPayload).items {
				if string(item.GetString()) == target {
					return true, nil
				}
			}
			return false, nil
		},
		AllElements: func(payload any) ([]Value, error) {
			return append([]Value(nil), payload.(*listPayload).items...), nil
		},
		Append: func(payload any, elem Value) (any, error) {
			lp := payload.(*listPayload)
			lp.items = append(lp.items, elem.Duplicate().Incref())
			return lp, nil
		},
		AppendList: func(payload any, list Value) (any, error) {
			lp := payload.(*listPayload)
			other, err := AllElements(list)
			if err != nil {
				return nil, err
			}
			for _, item := range other {
				lp.items = append(lp.items, item.Duplicate().Incref())
			}
			return lp, nil
		},
		Replace: func(payload any, i, count int, elems []Value) (any, error) {
			lp := payload.(*listPayload)
			if i < 0 || i > len(lp.items) {
				return nil, NewRuntimeError(ErrValueTooLarge, "list replace: index %d out of range", i)
			}
			end := i + count
			if end > len(lp.items) {
				end = len(lp.items)
			}
			for _, rm := range lp.items[i:end] {
				rm.Decref()
			}
			replacement := make([]Value, len(elems))
			for j, e := range elems {
				replacement[j] = e.Duplicate().Incref()
			}
			lp.items = append(lp.items[:i:i], append(replacement, lp.items[end:]...)...)
			return lp, nil
		},
		Set: func(payload any, i int, v Value) (any, error) {
			lp := payload.(*listPayload)
			if i < 0 || i >= len(lp.items) {
				return nil, NewRuntimeError(ErrValueTooLarge, "list set: index %d out of range", i)
			}
			lp.items[i].Decref()
			lp.items[i] = v.Duplicate().Incref()
			return lp, nil
		},
		Reverse: func(payload any) (any, error) {
			lp := payload.(*listPayload)
			n := len(lp.items)
			for i := 0; i < n/2; i++ {
				lp.items[i], lp.items[n-1-i] = lp.items[n-1-i], lp.items[i]
			}
			return lp, nil
		},
		IsSorted: func(payload any) (bool, error) {
			items := payload.(*listPayload).items
			for i := 1; i < len(items); i++ {
				if string(items[i-1].GetString()) > string(items[i].GetString()) {
					return false, nil
				}
			}
			return true, nil
		},
	}
	RegisterType(listType)
}

// clampRange clamps [from,to] to [0,n-1] per spec §4.B's range
// semantics, reporting ok=false for an empty resulting range.
func clampRange(from, to, n int) (clampedFrom, clampedTo int, ok bool) {
	if n == 0 || from > to {
		return 0, 0, false
	}
	if from < 0 {
		from = 0
	}
	if to > n-1 {
		to = n - 1
	}
	if from > to {
		return 0, 0, false
	}
	return from, to, true
}

// ---- interface-table dispatch with string-reparse fallback ----

// asListOps returns v's interface table and payload. If v has no
// list-capable type, or its table lacks any of the read slots (Length,
// Index, Range, Contains, AllElements), v's string form is reparsed as
// a concrete list and the list type's table is returned instead.
func asListOps(v Value) (*ListOps, any, error) {
	if td := v.GetType(); td != nil && td.Interface != nil {
		ops := td.Interface
		if ops.Length != nil && ops.Index != nil && ops.Range != nil && ops.Contains != nil && ops.AllElements != nil {
			return ops, v.Internal(), nil
		}
	}
	payload, err := listType.SetFromAnyString(v.GetString())
	if err != nil {
		return nil, nil, err
	}
	return listType.Interface, payload, nil
}

func Length(v Value) (int, error) {
	ops, payload, err := asListOps(v)
	if err != nil {
		return 0, err
	}
	if ops.Length != nil {
		return ops.Length(payload)
	}
	return len(payload.(*listPayload).items), nil
}

func Index(v Value, i int) (Value, error) {
	ops, payload, err := asListOps(v)
	if err != nil {
		return Value{}, err
	}
	if ops.Index != nil {
		return ops.Index(payload, i)
	}
	return listType.Interface.Index(payload, i)
}

func ListRange(v Value, from, to int) (Value, error) {
	ops, payload, err := asListOps(v)
	if err != nil {
		return Value{}, err
	}
	if ops.Range != nil {
		return ops.Range(payload, from, to)
	}
	return listType.Interface.Range(payload, from, to)
}

func Contains(v Value, elem Value) (bool, error) {
	ops, payload, err := asListOps(v)
	if err != nil {
		return false, err
	}
	if ops.Contains != nil {
		return ops.Contains(payload, elem)
	}
	return listType.Interface.Contains(payload, elem)
}

func AllElements(v Value) ([]Value, error) {
	ops, payload, err := asListOps(v)
	if err != nil {
		return nil, err
	}
	if ops.AllElements != nil {
		return ops.AllElements(payload)
	}
	return listType.Interface.AllElements(payload)
}

// Append mutates *v in place (MakeUnique is the caller's
// responsibility, matching the spec's "the mutator only available on
// uniquely-owned values" decision for Module B's Reverse).
func Append(v *Value, elem Value) error {
	td := v.GetType()
	if td == nil || td.Interface == nil || td.Interface.Append == nil {
		if err := v.ConvertTo(listType); err != nil {
			return err
		}
		td = listType
	}
	newPayload, err := td.Interface.Append(v.Internal(), elem)
	if err != nil {
		return err
	}
	v.SetInternal(td, newPayload)
	return nil
}

// Reverse mutates *v in place via its type's Reverse slot, falling
// back to the concrete list type. Panics if v is shared (refcount > 1)
// rather than silently mutating another holder's view, per spec.md's
// open question (2): "panic if shared".
func Reverse(v *Value) error {
	if v.Refcount() > 1 {
		panic("tclcore: Reverse called on a shared value (refcount > 1)")
	}
	td := v.GetType()
	if td == nil || td.Interface == nil || td.Interface.Reverse == nil {
		if err := v.ConvertTo(listType); err != nil {
			return err
		}
		td = listType
	}
	newPayload, err := td.Interface.Reverse(v.Internal())
	if err != nil {
		return err
	}
	v.SetInternal(td, newPayload)
	return nil
}

// ---- Tcl list string syntax: whitespace-separated words, {...}
// grouping (nests, no escape processing inside), "..." quoting
// (backslash-escapes processed inside) ----

func parseTclList(s string) ([]string, error) {
	var words []string
	i, n := 0, len(s)
	for i < n {
		for i < n && isListSpace(s[i]) {
			i++
		}
		if i >= n {
			break
		}
		var word string
		var err error
		switch s[i] {
		case '{':
			word, i, err = parseBraced(s, i)
		case '"':
			word, i, err = parseQuoted(s, i)
		default:
			word, i = parseBare(s, i)
		}
		if err != nil {
			return nil, err
		}
		words = append(words, word)
	}
	return words, nil
}

func isListSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func parseBraced(s string, i int) (string, int, error) {
	start := i
	depth := 0
	i++ // consume leading '{'
	depth++
	contentStart := i
	for i < len(s) && depth > 0 {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
		case '\\':
			i++ // skip escaped char verbatim, brace counting unaffected
		}
		i++
	}
	if depth != 0 {
		return "", start, NewRuntimeError(ErrConvertSyntax, "list: unbalanced {} beginning at %d", start)
	}
	return s[contentStart : i-1], i, nil
}

func parseQuoted(s string, i int) (string, int, error) {
	start := i
	i++ // consume leading '"'
	var b strings.Builder
	for i < len(s) && s[i] != '"' {
		if s[i] == '\\' && i+1 < len(s) {
			b.WriteByte(s[i+1])
			i += 2
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	if i >= len(s) {
		return "", start, NewRuntimeError(ErrConvertSyntax, `list: unterminated " beginning at %d`, start)
	}
	return b.String(), i + 1, nil
}

func parseBare(s string, i int) (string, int) {
	start := i
	for i < len(s) && !isListSpace(s[i]) {
		i++
	}
	return s[start:i], i
}

// listQuoteWord braces w if it contains characters that would
// otherwise change how it's re-parsed as a list word.
func listQuoteWord(w string) string {
	if w == "" {
		return "{}"
	}
	needsQuoting := false
	for i := 0; i < len(w); i++ {
		switch w[i] {
		case ' ', '\t', '\n', '\r', '{', '}', '"', '\\', ';':
			needsQuoting = true
		}
	}
	if !needsQuoting {
		return w
	}
	return "{" + w + "}"
}
