// internal/services/errors.go
package services

import (
	"errors"
	"fmt"

	"github.com/ecocart/storefront-api/internal/catalog"
	"github.com/ecocart/storefront-api/internal/models"
	"github.com/ecocart/storefront-api/internal/repository"
)

// ValidationError lists the offending fields of a rejected write.
type ValidationError = models.ValidationError

var (
	ErrInvalidQuery      = catalog.ErrEmptyQuery
	ErrNotFound          = repository.ErrNotFound
	ErrInsufficientStock = repository.ErrInsufficientStock
	ErrInvalidTransition = models.ErrInvalidTransition
	ErrForbidden         = errors.New("access denied")
)

// StoreError wraps any persistence failure that is not one of the sentinels
// above.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// storeErr passes domain sentinels through and wraps everything else.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var vErr *ValidationError
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrInvalidTransition),
		errors.As(err, &vErr):
		return err
	}
	var sErr *StoreError
	if errors.As(err, &sErr) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
