// Package apperror defines the error taxonomy shared by repositories, services and handlers.
package apperror

import "errors"

// Kind classifies an error for transport mapping.
type Kind string

const (
	NotFound     Kind = "not_found"
	Validation   Kind = "validation"
	Conflict     Kind = "conflict"
	Unauthorized Kind = "unauthorized"
	Forbidden    Kind = "forbidden"
	Upstream     Kind = "upstream"
	Internal     Kind = "internal"
)

// Error is a classified error. Sentinel values of *Error are compared by identity,
// so callers wrap them with fmt.Errorf("...: %w", ErrX) to add context.
type Error struct {
	Kind    Kind
	Message string
}

// New creates a classified error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

// KindOf returns the kind of the first classified error in err's chain.
// Unclassified errors are Internal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// ErrVersionConflict is returned when an optimistic version check fails.
var ErrVersionConflict = New(Conflict, "resource was modified concurrently, retry the request")
