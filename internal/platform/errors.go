package platform

import "fmt"

// Kind classifies a platform-level failure the way spec §4.1 requires:
// NotFound, AlreadyExists, Busy, PermissionDenied, Transport.
type Kind string

const (
	NotFound         Kind = "not_found"
	AlreadyExists    Kind = "already_exists"
	Busy             Kind = "busy"
	PermissionDenied Kind = "permission_denied"
	Transport        Kind = "transport"
)

// Error wraps an underlying error with a Kind so callers can branch on
// failure category (errors.As) without parsing message strings, the way
// the teacher's bare fmt.Errorf strings couldn't.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}
