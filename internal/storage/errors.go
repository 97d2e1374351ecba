package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupported marks an operation invoked on a tier that does not
	// serve its operation class.
	ErrUnsupported = errors.New("operation not supported by this backend")

	// ErrInvalidArgument marks a business-rule violation on the input:
	// negative holding days, non-positive price, unknown enum value.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Unsupported builds the standard error for an operation outside a tier's
// capability, naming the backend and the operation.
func Unsupported(backend, op string) error {
	return fmt.Errorf("%s: %s: %w", backend, op, ErrUnsupported)
}

// Invalidf builds an InvalidArgument error with a formatted cause.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalidArgument)...)
}
