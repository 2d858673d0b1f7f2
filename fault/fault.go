// Package fault classifies the errors returned by the scheme.
//
// Every error that leaves a public entry point carries one of four kinds so
// callers can tell a misuse of the API from a correct protocol refusal or an
// internal fault:
//
//	Usage          bad identities, epochs, dimensions or bit widths
//	Invariant      a computed key or preimage failed its defining equation
//	Denied         the protocol refused (revoked receiver, signature mismatch)
//	NotImplemented a path that exists in the API but is not available
package fault

import (
	"fmt"

	"github.com/pkg/errors"
)

type Kind int

const (
	Unknown Kind = iota
	Usage
	Invariant
	Denied
	NotImplemented
)

func (k Kind) String() string {
	switch k {
	case Usage:
		return "usage error"
	case Invariant:
		return "invariant violation"
	case Denied:
		return "protocol denial"
	case NotImplemented:
		return "not implemented"
	}
	return "unknown error"
}

// Error is an operation failure tagged with its Kind.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap tags err with op and kind. A nil err yields nil.
func Wrap(op string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// Wrapf tags err with op and kind and prefixes a formatted message.
func Wrapf(op string, kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: errors.Wrapf(err, format, args...)}
}

func Usagef(op string, format string, args ...any) error {
	return &Error{Op: op, Kind: Usage, Err: errors.Errorf(format, args...)}
}

func Invariantf(op string, format string, args ...any) error {
	return &Error{Op: op, Kind: Invariant, Err: errors.Errorf(format, args...)}
}

func Deniedf(op string, format string, args ...any) error {
	return &Error{Op: op, Kind: Denied, Err: errors.Errorf(format, args...)}
}

func NotImplementedf(op string, format string, args ...any) error {
	return &Error{Op: op, Kind: NotImplemented, Err: errors.Errorf(format, args...)}
}

// KindOf returns the kind of the outermost *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unknown
}

// Is reports whether err is tagged with kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
