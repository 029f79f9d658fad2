package aiguard

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrBackendUnavailable = errors.New("aiguard: rate limit backend unavailable")
	ErrInvalidConfig      = errors.New("aiguard: invalid configuration")
)

// BackendError wraps a failure from the distributed counter backend with
// the operation and key that triggered it.
type BackendError struct {
	Op  string
	Key string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("aiguard: backend %s key=%s: %v", e.Op, e.Key, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// configError builds an ErrInvalidConfig with a field-level detail. Config
// problems are fatal at construction; nothing validates per request.
func configError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
