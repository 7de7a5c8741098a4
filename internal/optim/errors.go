package optim

import "errors"

// Common errors.
var (
	ErrShapeMismatch    = errors.New("gradient size does not match accumulator size")
	ErrUnknownParameter = errors.New("no accumulator for parameter")
	ErrSizeMismatch     = errors.New("accumulator already exists with a different size")
	ErrInvalidSize      = errors.New("accumulator size must be positive")
	ErrStateDrift       = errors.New("updater state does not match layer parameters")
	ErrUnknownLayer     = errors.New("unknown layer")
)
