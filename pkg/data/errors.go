package data

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies failures so callers can decide between aborting a run and
// degrading to a placeholder.
type Kind int

const (
	KindUnknown Kind = iota
	// KindConfig is a conflicting flag or invalid range, reported before any I/O.
	KindConfig
	// KindAuth means no usable credential could be obtained.
	KindAuth
	// KindFetch is a transport or HTTP failure that exhausted its retries.
	KindFetch
	// KindParse is an unexpected page structure. Never retried.
	KindParse
	// KindNotFound means the requested work does not exist.
	KindNotFound
	// KindStorage is an unreadable or unwritable store.
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindAuth:
		return "auth"
	case KindFetch:
		return "fetch"
	case KindParse:
		return "parse"
	case KindNotFound:
		return "not found"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind Kind
	Op   string
	// Status is the last HTTP status seen, 0 for transport failures.
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a classified error. cause may be nil.
func NewError(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// KindOf returns the kind of the first classified error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// StatusOf returns the HTTP status carried by a fetch error, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}
