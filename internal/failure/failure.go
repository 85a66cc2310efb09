// Package failure defines the error taxonomy shared by discovery, the git
// executor and the reporter. Every per-repository failure carries exactly one
// Kind; errors.Is works against the Err* sentinels.
package failure

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// ToolFailure is the zero value so that unclassified errors land there.
	ToolFailure Kind = iota
	NotFound
	InvalidRepository
	RemoteUnreachable
	Timeout
	Interrupted
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not-found"
	case InvalidRepository:
		return "invalid-repository"
	case RemoteUnreachable:
		return "remote-unreachable"
	case Timeout:
		return "timeout"
	case ToolFailure:
		return "tool-failure"
	case Interrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. They compare by kind only.
var (
	ErrNotFound          = &Error{Kind: NotFound}
	ErrInvalidRepository = &Error{Kind: InvalidRepository}
	ErrRemoteUnreachable = &Error{Kind: RemoteUnreachable}
	ErrTimeout           = &Error{Kind: Timeout}
	ErrToolFailure       = &Error{Kind: ToolFailure}
	ErrInterrupted       = &Error{Kind: Interrupted}
)

// Error is a classified per-repository failure.
type Error struct {
	Kind Kind
	Op   string // "open", "fetch", "pending", "merge", ...
	Name string // repository name, if known
	Err  error
}

func New(kind Kind, op, name string, err error) *Error {
	return &Error{Kind: kind, Op: op, Name: name, Err: err}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Name != "" {
		msg = e.Name + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality so that errors.Is(err, ErrTimeout) matches any
// timeout regardless of op, name or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or ToolFailure.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ToolFailure
}

// Cause returns a concise, user-facing description of err: the innermost
// non-classified message when available, otherwise the kind.
func Cause(err error) string {
	if err == nil {
		return ""
	}
	var fe *Error
	if !errors.As(err, &fe) {
		return err.Error()
	}
	for {
		var inner *Error
		if fe.Err == nil || !errors.As(fe.Err, &inner) {
			break
		}
		fe = inner
	}
	if fe.Err != nil {
		return fe.Err.Error()
	}
	return fe.Kind.String()
}
