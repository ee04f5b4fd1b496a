package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEntryNotFound       = errors.New("queue entry not found")
	ErrPartNotFound        = errors.New("part not found")
	ErrImportNotFound      = errors.New("import batch not found")
	ErrCustomerNotFound    = errors.New("customer not found")
	ErrConflict            = errors.New("conflict")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrTemporary           = errors.New("temporary failure")
	ErrOrchestratorOffline = errors.New("orchestrator unavailable")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
