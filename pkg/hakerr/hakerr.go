// Package hakerr defines the single tagged error type shared by every
// hakswitch parser and crypto routine.
//
// Error messages are kept terse; callers that need richer context should
// wrap [Error] in their own type. Every parser returns this type on
// failure — there is no panic path for malformed input.
package hakerr

import (
	"errors"
	"fmt"
)

// Kind tags the class of failure. Consumers that need to branch on the
// failure type should compare Kind, not the formatted message.
type Kind int

const (
	// BadMagic means a fixed-byte signature did not match.
	BadMagic Kind = iota
	// UnsupportedVersion means a version field was present but not one
	// this library understands.
	UnsupportedVersion
	// UnexpectedEOF means the stream ended before a promised read
	// completed.
	UnexpectedEOF
	// UnterminatedName means no null byte was found where one was
	// required.
	UnterminatedName
	// InvalidRange means an offset or size would address outside the
	// valid region.
	InvalidRange
	// Parse means a named structural violation occurred.
	Parse
	// IO wraps an underlying I/O failure.
	IO
	// LZ4 means LZ4 decompression failed.
	LZ4
	// Zstd means Zstandard decompression failed.
	Zstd
)

func (k Kind) String() string {
	switch k {
	case BadMagic:
		return "bad magic value"
	case UnsupportedVersion:
		return "unsupported version"
	case UnexpectedEOF:
		return "unexpected end of file"
	case UnterminatedName:
		return "unterminated string"
	case InvalidRange:
		return "invalid offset or size"
	case Parse:
		return "parse error"
	case IO:
		return "I/O error"
	case LZ4:
		return "lz4 decompression failed"
	case Zstd:
		return "zstd decompression failed"
	default:
		return "unknown error"
	}
}

// Error is the unified error type returned by every hakswitch package.
type Error struct {
	Kind Kind

	// Version carries the rejected version byte when Kind ==
	// UnsupportedVersion.
	Version uint8
	// Msg carries the structural-violation description when Kind ==
	// Parse.
	Msg string
	// Cause carries the wrapped I/O error when Kind == IO.
	Cause error
}

func (e *Error) Error() string {
	switch e.Kind {
	case UnsupportedVersion:
		return fmt.Sprintf("unsupported version: %d", e.Version)
	case Parse:
		return fmt.Sprintf("parse error: %s", e.Msg)
	case IO:
		return fmt.Sprintf("I/O error: %v", e.Cause)
	default:
		return e.Kind.String()
	}
}

// Unwrap exposes the wrapped I/O cause, if any, to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a *Error with the same Kind, ignoring the
// payload fields (Version/Msg/Cause). This lets callers write
// errors.Is(err, hakerr.New(hakerr.BadMagic)).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs a bare error of the given kind.
func New(kind Kind) *Error {
	return &Error{Kind: kind}
}

// Versioned constructs an UnsupportedVersion error.
func Versioned(version uint8) *Error {
	return &Error{Kind: UnsupportedVersion, Version: version}
}

// Parsef constructs a Parse error with a formatted message.
func Parsef(format string, args ...any) *Error {
	return &Error{Kind: Parse, Msg: fmt.Sprintf(format, args...)}
}

// Wrap wraps an underlying I/O error. A nil cause returns nil so callers
// can write `return hakerr.Wrap(err)` directly after an I/O call.
func Wrap(cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: IO, Cause: cause}
}
