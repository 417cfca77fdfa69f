package engine

import "fmt"

// Code categorizes an engine error the way a caller across a process
// boundary (a TCP client, a CLI) needs to react to it.
type Code string

const (
	// CodeIO covers filesystem failures: open, read, write, delete.
	CodeIO Code = "IO_ERROR"
	// CodeCodec covers a record that could not be encoded or decoded.
	CodeCodec Code = "CODEC_ERROR"
	// CodeRecordNotFound covers Remove against an absent key.
	CodeRecordNotFound Code = "RECORD_NOT_FOUND"
	// CodeProtocol covers a malformed or truncated wire message, and on
	// the client side an error response reported by the server.
	CodeProtocol Code = "PROTOCOL_ERROR"
	// CodeServer covers failures specific to an alternate storage backend.
	CodeServer Code = "SERVER_ERROR"
)

// Error is the engine's error type. It carries a Code so callers can
// branch on error category without string matching, while still
// supporting errors.Is/errors.As through Unwrap.
type Error struct {
	Code    Code
	Message string
	cause   error
}

// NewError builds an Error with the given code and message, optionally
// wrapping an underlying cause.
func NewError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause, if any, for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// ErrRecordNotFound is returned by Remove when the key is absent. The
// server sends its full Error() text ("RECORD_NOT_FOUND: Key not
// found") on the wire, not the bare "Key not found"; internal/client
// maps that text back to this error, and the CLIs print "Key not found".
var ErrRecordNotFound = NewError(CodeRecordNotFound, "Key not found", nil)

// wrapIO wraps a filesystem error with the IO code.
func wrapIO(message string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(CodeIO, message, err)
}

// wrapCodec wraps a record encode/decode error with the Codec code.
func wrapCodec(message string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(CodeCodec, message, err)
}
