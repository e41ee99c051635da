package util

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrorKind classifies engine failures.
type ErrorKind string

const (
	// KindConfiguration covers missing SLA rules and empty calendars. The
	// engine degrades to "no SLA tracked" instead of failing the caller.
	KindConfiguration ErrorKind = "CONFIGURATION"
	// KindValidation covers data violating a declared invariant. Recorded in
	// reports, never propagated to crash a request.
	KindValidation ErrorKind = "VALIDATION"
	// KindConsistency covers orphaned rows and drifted mirror fields.
	KindConsistency ErrorKind = "CONSISTENCY"
	// KindInfrastructure covers absent tables/relations: the store is not
	// initialized yet and reads/writes become no-ops.
	KindInfrastructure ErrorKind = "INFRASTRUCTURE"
	// KindRepairAmbiguous covers records that cannot be confidently repaired
	// and must be surfaced for manual review.
	KindRepairAmbiguous ErrorKind = "REPAIR_AMBIGUOUS"
)

// EngineError standardizes application errors.
type EngineError struct {
	Kind    ErrorKind
	Message string
	Details map[string]any
	Err     error
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// NewEngineError constructs an EngineError.
func NewEngineError(kind ErrorKind, message string, details map[string]any) *EngineError {
	return &EngineError{Kind: kind, Message: message, Details: details}
}

func NewConfigurationError(message string, details map[string]any) error {
	return NewEngineError(KindConfiguration, message, details)
}

func NewValidationError(message string, details map[string]any) error {
	return NewEngineError(KindValidation, message, details)
}

func NewConsistencyError(message string, details map[string]any) error {
	return NewEngineError(KindConsistency, message, details)
}

func NewInfrastructureError(message string, err error) error {
	return &EngineError{Kind: KindInfrastructure, Message: message, Err: err}
}

func NewRepairAmbiguousError(message string, details map[string]any) error {
	return NewEngineError(KindRepairAmbiguous, message, details)
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr.Kind == kind
	}
	return false
}

// undefinedTable is SQLSTATE 42P01, raised when a relation does not exist.
const undefinedTable = "42P01"

// IsNotInitialized reports whether err means a required relation is absent.
// Setup order is not guaranteed, so every read/write path treats this as
// "not yet initialized" and returns an empty result instead of failing.
func IsNotInitialized(err error) bool {
	if err == nil {
		return false
	}
	if IsKind(err, KindInfrastructure) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTable
}

// ToEngineError converts generic errors to EngineError.
func ToEngineError(err error) *EngineError {
	if err == nil {
		return nil
	}
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr
	}
	if IsNotInitialized(err) {
		return &EngineError{Kind: KindInfrastructure, Message: "store not initialized", Err: err}
	}
	return &EngineError{Kind: KindConsistency, Message: "unexpected storage error", Err: err}
}
