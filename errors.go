package spatialidx

import (
	"errors"

	"github.com/arbortree/spatialidx/internal/spatialerr"
)

// Sentinel errors, re-exported from internal/spatialerr so callers can
// use errors.Is without importing an internal package.
var (
	ErrOutOfDomain         = spatialerr.ErrOutOfDomain
	ErrInvalidLevel        = spatialerr.ErrInvalidLevel
	ErrEntityAlreadyExists = spatialerr.ErrEntityAlreadyExists
	ErrEntityNotFound      = spatialerr.ErrEntityNotFound
	ErrCancelled           = spatialerr.ErrCancelled
)

// ErrInvalidConfig is returned by New* constructors when a Config
// option rejects its argument.
var ErrInvalidConfig = errors.New("spatialidx: invalid configuration")
