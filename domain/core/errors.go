package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound        = errors.New("resource not found")
	ErrSessionNotFound = fmt.Errorf("%w: session", ErrNotFound)
	ErrColumnNotFound  = fmt.Errorf("%w: column", ErrNotFound)

	// State errors
	ErrNoDataset       = errors.New("no dataset loaded for this tab")
	ErrPreviewInactive = errors.New("no preview is open")
	ErrUnknownAnalysis = errors.New("unknown analysis")

	// Dataset shape errors
	ErrDuplicateColumn = errors.New("duplicate column name")
	ErrEmptyDataset    = errors.New("dataset has no rows")
)

// NewNotFoundError wraps ErrNotFound with the resource and key that was looked up
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, resource, id)
}

// IsNotFoundError reports whether err is any kind of not-found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
