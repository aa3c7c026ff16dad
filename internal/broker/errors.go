package broker

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

// Kind is a closed taxonomy of broker failure modes, mirrored from the
// original implementation's error enum (server/error.rs) and the
// teacher's practice of wrapping stdlib net/io errors into a small
// named set rather than exposing raw net.Error values to callers.
type Kind int

const (
	KindTimeout Kind = iota
	KindDisconnected
	KindTooLong
	KindParseError
	KindInvalidLen
	KindErrorResponse
	KindAddrInUse
	KindPermissionDenied
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindDisconnected:
		return "disconnected"
	case KindTooLong:
		return "too_long"
	case KindParseError:
		return "parse_error"
	case KindInvalidLen:
		return "invalid_len"
	case KindErrorResponse:
		return "error_response"
	case KindAddrInUse:
		return "addr_in_use"
	case KindPermissionDenied:
		return "permission_denied"
	default:
		return "unknown"
	}
}

// Error pairs a Kind with the underlying cause, if any, so callers can
// still use errors.Is/errors.As against the wrapped error.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// classifyListenError maps a net.Listen failure onto the acceptor-startup
// Kinds spec.md §7 calls out as fatal.
func classifyListenError(err error) *Error {
	if errors.Is(err, syscall.EADDRINUSE) {
		return newError(KindAddrInUse, err)
	}
	if errors.Is(err, fs.ErrPermission) {
		return newError(KindPermissionDenied, err)
	}
	return newError(KindUnknown, err)
}
