package table

import (
	"errors"
	"fmt"
)

var (
	ErrNoColumns       = errors.New("table requires at least one column")
	ErrInvalidPageSize = errors.New("page size must be positive")
	ErrMissingAccessor = errors.New("data column requires a value accessor or renderer")
	ErrMissingRenderer = errors.New("action column requires a renderer")
	ErrDuplicateKey    = errors.New("duplicate row key")
	ErrNilColumn       = errors.New("column is nil")
)

func columnError(header string, err error) error {
	return fmt.Errorf("column %q: %w", header, err)
}
