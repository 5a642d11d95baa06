// Package spatialerr defines the closed error taxonomy shared by the
// key backends and the generic engine. It exists below them in the
// dependency graph so that morton, tetra, and engine can all return
// the same sentinel kinds without importing each other or the public
// facade package (which wraps these into its own exported errors,
// mirroring how the teacher's internal/index/interfaces.go re-declares
// VectorEntry/SearchResult to avoid a circular import back into
// internal/index/hnsw).
package spatialerr

import "errors"

// Kind identifies one of the closed set of error conditions spec.md
// §7 enumerates. CacheMiss is deliberately not a Kind: spec.md marks
// it internal-only, never surfaced to a caller.
type Kind int

const (
	KindOutOfDomain Kind = iota
	KindInvalidLevel
	KindEntityAlreadyExists
	KindEntityNotFound
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindOutOfDomain:
		return "OutOfDomain"
	case KindInvalidLevel:
		return "InvalidLevel"
	case KindEntityAlreadyExists:
		return "EntityAlreadyExists"
	case KindEntityNotFound:
		return "EntityNotFound"
	case KindCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Error is the structured error every internal package returns for
// the conditions in spec.md §7. Kind lets callers branch with
// errors.As without string matching; Cause preserves the underlying
// error, if any, via Unwrap.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Kind.String() + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports equality by Kind, so errors.Is(err, spatialerr.New(KindOutOfDomain, ""))
// works without comparing messages.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// New constructs an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an *Error of the given kind around a cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Sentinels for errors.Is comparisons against a bare Kind, used
// internally and re-exported by the public package.
var (
	ErrOutOfDomain         = New(KindOutOfDomain, "coordinate outside representable domain")
	ErrInvalidLevel        = New(KindInvalidLevel, "level outside [0, MaxLevel]")
	ErrEntityAlreadyExists = New(KindEntityAlreadyExists, "entity with this ID already exists")
	ErrEntityNotFound      = New(KindEntityNotFound, "entity not found")
	ErrCancelled           = New(KindCancelled, "query cancelled")
)
