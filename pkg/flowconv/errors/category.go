// Package errors classifies conversion failures.
//
// The converter treats failures in two ways:
//   - Recoverable: a single malformed source occurrence (a node without a
//     name, an edge pointing at an unknown node). The occurrence is dropped,
//     logged, and conversion continues.
//   - Fatal: anything that would leave a partially wired target graph
//     (unknown component type, routing invariant violation, incompatible
//     ports). Conversion aborts and no artifact is returned.
package errors

import (
	"errors"
	"fmt"
)

// Category represents how an error should be handled.
type Category int

const (
	// CategoryFatal aborts the whole conversion.
	CategoryFatal Category = iota

	// CategoryRecoverable drops the offending occurrence and continues.
	CategoryRecoverable
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryFatal:
		return "fatal"
	case CategoryRecoverable:
		return "recoverable"
	default:
		return "unknown"
	}
}

// CategorizedError wraps an error with an explicit category.
// Use it to override the default classification of an error.
type CategorizedError struct {
	// Err is the underlying error.
	Err error

	// Category indicates how this error should be handled.
	Category Category

	// Context describes what operation was being attempted.
	Context string
}

// Error implements the error interface.
func (e *CategorizedError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (category: %s)", e.Context, e.Err, e.Category)
	}
	return fmt.Sprintf("%s (category: %s)", e.Err, e.Category)
}

// Unwrap returns the underlying error.
func (e *CategorizedError) Unwrap() error {
	return e.Err
}

// Fatal marks err as fatal.
func Fatal(err error, context string) *CategorizedError {
	return &CategorizedError{Err: err, Category: CategoryFatal, Context: context}
}

// Recoverable marks err as recoverable.
func Recoverable(err error, context string) *CategorizedError {
	return &CategorizedError{Err: err, Category: CategoryRecoverable, Context: context}
}

// Categorize determines how an error should be handled.
// Unknown errors are fatal.
func Categorize(err error) Category {
	if err == nil {
		return CategoryFatal
	}

	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr.Category
	}

	if errors.Is(err, ErrMalformedSourceGraph) {
		var malformed *MalformedSourceGraphError
		if errors.As(err, &malformed) && malformed.Fatal {
			return CategoryFatal
		}
		return CategoryRecoverable
	}

	return CategoryFatal
}

// IsFatal reports whether err must abort the conversion.
func IsFatal(err error) bool {
	return err != nil && Categorize(err) == CategoryFatal
}
