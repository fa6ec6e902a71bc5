package tclcore

import "fmt"

// ErrorKind classifies a RuntimeError so callers can match on a stable
// token instead of parsing the human-readable message.
type ErrorKind int

const (
	ErrNone ErrorKind = iota
	ErrTypeMismatch
	ErrOutOfMemory
	ErrValueTooLarge

	ErrEncodingUnknown
	ErrEncodingInvalid

	ErrConvertSyntax
	ErrConvertUnknown
	ErrConvertMultibyteIncomplete
	ErrConvertNoSpace

	ErrIOReadable
	ErrIOWritable
	ErrIOClosed
	ErrIOBlocked
	ErrIOBroken

	ErrCompressNeedDict
	ErrCompressStreamError
	ErrCompressDataError

	ErrWaitNoSources
	ErrWaitNoTime
	ErrWaitNoFileEvent
	ErrWaitNegativeTime

	ErrCancelled
	ErrLimitExceeded
)

var errorKindNames = map[ErrorKind]string{
	ErrNone:                       "none",
	ErrTypeMismatch:               "type_mismatch",
	ErrOutOfMemory:                "out_of_memory",
	ErrValueTooLarge:              "value_too_large",
	ErrEncodingUnknown:            "encoding_unknown",
	ErrEncodingInvalid:            "encoding_invalid",
	ErrConvertSyntax:              "convert_syntax",
	ErrConvertUnknown:             "convert_unknown",
	ErrConvertMultibyteIncomplete: "convert_multibyte_incomplete",
	ErrConvertNoSpace:             "convert_no_space",
	ErrIOReadable:                 "io_readable",
	ErrIOWritable:                 "io_writable",
	ErrIOClosed:                   "io_closed",
	ErrIOBlocked:                  "io_blocked",
	ErrIOBroken:                   "io_broken",
	ErrCompressNeedDict:           "compress_need_dict",
	ErrCompressStreamError:        "compress_stream_error",
	ErrCompressDataError:          "compress_data_error",
	ErrWaitNoSources:              "wait_no_sources",
	ErrWaitNoTime:                 "wait_no_time",
	ErrWaitNoFileEvent:            "wait_no_file_event",
	ErrWaitNegativeTime:           "wait_negative_time",
	ErrCancelled:                  "cancelled",
	ErrLimitExceeded:              "limit_exceeded",
}

func (k ErrorKind) String() string {
	if s, ok := errorKindNames[k]; ok {
		return s
	}
	return "unknown_error_kind"
}

// RuntimeError is the error type returned across every fallible
// runtime operation in this package. It carries both a human message
// and a stable, matchable code list headed by its Kind, mirroring the
// "structured error-code list" requirement of spec §7.
type RuntimeError struct {
	Kind    ErrorKind
	Message string
	Codes   []string
}

func NewRuntimeError(kind ErrorKind, format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Codes:   []string{kind.String()},
	}
}

func (e *RuntimeError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.String()
}

// WithCode appends an additional token to the error's code list, for
// callers that need a more specific trailing code than Kind alone
// (e.g. "convert_unknown", "iso8859-1", "23").
func (e *RuntimeError) WithCode(code string) *RuntimeError {
	e.Codes = append(e.Codes, code)
	return e
}

// IsKind reports whether err is a *RuntimeError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	re, ok := err.(*RuntimeError)
	return ok && re.Kind == kind
}
