package domain

import (
	"errors"
	"fmt"
)

// Kind classifies failures so callers can branch without inspecting concrete types.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindConflict
	KindNotFound
	KindInvalidOperation
	KindPersistence
	KindRemoteService
)

func (k Kind) String() string {
	switch k {
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindInvalidOperation:
		return "invalid_operation"
	case KindPersistence:
		return "persistence_failure"
	case KindRemoteService:
		return "remote_service_failure"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of Kind.String; unknown names yield KindUnknown.
func ParseKind(name string) Kind {
	for k := KindConflict; k <= KindRemoteService; k++ {
		if k.String() == name {
			return k
		}
	}
	return KindUnknown
}

// Error is the single error type raised by the opinions bounded context.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the bare kind sentinels below, so errors.Is(err, ErrNotFound) works for any NotFound.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Msg != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrConflict         = &Error{Kind: KindConflict}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrInvalidOperation = &Error{Kind: KindInvalidOperation}
	ErrPersistence      = &Error{Kind: KindPersistence}
	ErrRemoteService    = &Error{Kind: KindRemoteService}
)

// KindOf reports the kind of the first *Error in the chain.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func InvalidOperation(format string, args ...any) error {
	return &Error{Kind: KindInvalidOperation, Msg: fmt.Sprintf(format, args...)}
}

// Persistence wraps a store failure. Domain errors pass through untouched.
func Persistence(msg string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindUnknown {
		return err
	}
	return &Error{Kind: KindPersistence, Msg: msg, Err: err}
}

// RemoteService wraps a failure reported by a collaborator service.
func RemoteService(msg string, err error) error {
	return &Error{Kind: KindRemoteService, Msg: msg, Err: err}
}
