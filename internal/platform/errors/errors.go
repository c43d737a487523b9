// Package errors provides a structured error type with codes and a per hour severity kind
package errors

// Always import the project errors package as perr (platform/errors)

import (
	stderrs "errors"
	"fmt"
)

// ErrorCode classifies a failure. Values are stable; add sparingly
type ErrorCode uint16

const (
	// CodeUnknown is for unclassified errors
	CodeUnknown ErrorCode = iota

	// CodeNotFound is for an archive hour that does not exist at the source
	CodeNotFound

	// CodeExhausted is for a fetch that used up its retry budget
	CodeExhausted

	// CodeCorrupt is for archive content that is not valid gzip or not valid JSON lines
	CodeCorrupt

	// CodeUnavailable is for prefetched data that could not be produced
	CodeUnavailable

	// CodeHTTP is for an HTTP status the retry policy does not know how to handle
	CodeHTTP

	// CodeCheckpoint is for malformed or inconsistent checkpoint state
	CodeCheckpoint

	// CodeConfig is for invalid configuration detected at startup
	CodeConfig

	// CodeShutdown is for work submitted to a component that is shutting down
	CodeShutdown
)

var codeNames = [...]string{
	CodeUnknown:     "unknown",
	CodeNotFound:    "not_found",
	CodeExhausted:   "exhausted",
	CodeCorrupt:     "corrupt",
	CodeUnavailable: "unavailable",
	CodeHTTP:        "http",
	CodeCheckpoint:  "checkpoint",
	CodeConfig:      "config",
	CodeShutdown:    "shutdown",
}

// String returns a short label suitable for logs and metric labels
func (c ErrorCode) String() string {
	if int(c) < len(codeNames) {
		return codeNames[c]
	}
	return "unknown"
}

// Kind is the severity of a failure from the point of view of a scan over many hours
type Kind uint8

const (
	// KindNonRecoverable skips the hour and reports the error to the caller
	KindNonRecoverable Kind = iota

	// KindRecoverable skips the hour and only logs it
	KindRecoverable

	// KindFatal aborts the whole run
	KindFatal
)

// String returns the kind label
func (k Kind) String() string {
	switch k {
	case KindRecoverable:
		return "recoverable"
	case KindFatal:
		return "fatal"
	default:
		return "non_recoverable"
	}
}

// KindOfCode maps an ErrorCode to its severity
func KindOfCode(c ErrorCode) Kind {
	switch c {
	case CodeNotFound, CodeExhausted:
		return KindRecoverable
	case CodeCheckpoint, CodeConfig:
		return KindFatal
	default:
		return KindNonRecoverable
	}
}

// KindOf returns the severity of any error; foreign errors are non recoverable
func KindOf(err error) Kind { return KindOfCode(CodeOf(err)) }

// Error is the structured error type with wrapping and metadata
// msg is human/developer facing; code is machine facing
// op is an optional operation tag; orig is the wrapped cause
type Error struct {
	orig error
	msg  string
	code ErrorCode
	op   string
}

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.orig != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.orig)
	}
	return e.msg
}

// Unwrap returns the wrapped error, if any
func (e *Error) Unwrap() error { return e.orig }

// Code returns the error code
func (e *Error) Code() ErrorCode { return e.code }

// Kind returns the severity derived from the code
func (e *Error) Kind() Kind { return KindOfCode(e.code) }

// Op returns the operation label, if set
func (e *Error) Op() string { return e.op }

// Root returns the deepest wrapped cause
func Root(err error) error {
	for err != nil {
		u := stderrs.Unwrap(err)
		if u == nil {
			return err
		}
		err = u
	}
	return nil
}

// CodeOf extracts an ErrorCode from any error, defaulting to Unknown
func CodeOf(err error) ErrorCode {
	if e, ok := As(err); ok {
		return e.code
	}
	return CodeUnknown
}

// IsCode reports whether err has the given code
func IsCode(err error, code ErrorCode) bool { return CodeOf(err) == code }

// As unwraps and returns (*Error, true) if err is one of ours
func As(err error) (*Error, bool) {
	var e *Error
	if stderrs.As(err, &e) {
		return e, true
	}
	return nil, false
}

// WithOp attaches an operation label to an *Error (copy-on-write). If err isn't *Error, returns err unchanged
func WithOp(err error, op string) error {
	if e, ok := As(err); ok {
		c := *e
		c.op = op
		return &c
	}
	return err
}

// Constructors

// New returns a new *Error with the given code and message
func New(code ErrorCode, msg string) error { return &Error{code: code, msg: msg} }

// Newf returns a new *Error with code and formatted message
func Newf(code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...)}
}

// Wrap returns a new *Error that wraps orig with code and message
func Wrap(orig error, code ErrorCode, msg string) error {
	return &Error{code: code, msg: msg, orig: orig}
}

// Wrapf returns a new *Error that wraps orig with code and formatted message
func Wrapf(orig error, code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...), orig: orig}
}

// WrapIf wraps only when err != nil (helper for 1-liners)
func WrapIf(err error, code ErrorCode, msg string) error {
	if err == nil {
		return nil
	}
	return Wrap(err, code, msg)
}

// Sugar

// NotFoundf returns a recoverable not found error
func NotFoundf(format string, a ...any) error { return Newf(CodeNotFound, format, a...) }

// Exhaustedf returns a recoverable retry budget error
func Exhaustedf(format string, a ...any) error { return Newf(CodeExhausted, format, a...) }

// Corruptf returns a corrupt content error
func Corruptf(format string, a ...any) error { return Newf(CodeCorrupt, format, a...) }

// Unavailablef returns a data unavailable error
func Unavailablef(format string, a ...any) error { return Newf(CodeUnavailable, format, a...) }

// Checkpointf returns a fatal checkpoint error
func Checkpointf(format string, a ...any) error { return Newf(CodeCheckpoint, format, a...) }

// Configf returns a fatal configuration error
func Configf(format string, a ...any) error { return Newf(CodeConfig, format, a...) }
