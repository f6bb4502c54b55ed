package viewer

import (
	"fmt"

	"github.com/pkg/errors"
)

type Kind int

const (
	// ParseError: content is not JSON or not a usable gltf document.
	ParseError Kind = iota + 1
	// FetchError: a url or path could not be retrieved.
	FetchError
	// ReadError: a caller supplied file handle failed while reading.
	ReadError
	// RenderContextError: no rendering surface could be acquired.
	RenderContextError
)

func (k Kind) String() string {
	switch k {
	case ParseError:
		return "ParseError"
	case FetchError:
		return "FetchError"
	case ReadError:
		return "ReadError"
	case RenderContextError:
		return "RenderContextError"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Cause() error { return e.Err }

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// IsKind reports whether err is or wraps a viewer Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// ErrSuperseded is returned by a load whose result was dropped because a newer
// load or a Dispose happened while it was in flight.
var ErrSuperseded = errors.New("load superseded")
