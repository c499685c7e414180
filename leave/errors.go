/*
errors.go - Sentinel errors for the leave engine

PURPOSE:
  The calculator itself never returns errors - degenerate input degrades
  to documented fallbacks. These sentinels exist for the layers around it
  (store, API) so handlers can map failures to HTTP status codes with
  errors.Is instead of string matching.
*/
package leave

import (
	"errors"
	"fmt"
)

var (
	// ErrEmployeeNotFound is returned when a referenced employee doesn't exist.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrPolicyNotConfigured is returned when no leave policy has been saved yet.
	ErrPolicyNotConfigured = errors.New("leave policy not configured")

	// ErrInvalidBatch is returned when a backfill batch contains invalid rows.
	// The batch is all-or-nothing: one bad row rejects the whole submission.
	ErrInvalidBatch = errors.New("backfill batch contains invalid rows")
)

// BatchValidationError carries the per-row failures of a rejected batch.
type BatchValidationError struct {
	RowErrors []RowError
}

func (e *BatchValidationError) Error() string {
	return fmt.Sprintf("backfill batch contains %d invalid row(s)", len(e.RowErrors))
}

func (e *BatchValidationError) Unwrap() error { return ErrInvalidBatch }

// IsNotFound reports whether the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) || errors.Is(err, ErrPolicyNotConfigured)
}

// IsClientError reports whether the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidBatch)
}
