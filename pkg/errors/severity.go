// Package errors provides severity-aware error types.
package errors

import "fmt"

// Severity indicates error impact level.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// PlatformError is a structured error with entity context. Failures
// are contained at the entity boundary: one measure's error must not
// stop its siblings, so batch code collects these instead of aborting.
type PlatformError struct {
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	Severity    Severity `json:"severity"`
	EntityID    string   `json:"entity_id,omitempty"`
	Recoverable bool     `json:"recoverable"`
	Err         error    `json:"-"`
}

func (e *PlatformError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.EntityID != "" {
		return fmt.Sprintf("[%s] %s: %s (entity: %s)", e.Severity, e.Code, msg, e.EntityID)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Code, msg)
}

func (e *PlatformError) Unwrap() error { return e.Err }

// Error codes
const (
	ErrCodeMeasureNotFound  = "MEASURE_NOT_FOUND"
	ErrCodeBuildingNotFound = "BUILDING_NOT_FOUND"
	ErrCodeAnalysisFailed   = "ANALYSIS_FAILED"
	ErrCodeCashFlowFailed   = "CASHFLOW_FAILED"
	ErrCodeResyncFailed     = "RESYNC_FAILED"
	ErrCodePersistFailed    = "PERSIST_FAILED"
)

// NewMeasureNotFoundError creates an error for a missing measure.
func NewMeasureNotFoundError(measureID string, err error) *PlatformError {
	return &PlatformError{
		Code:        ErrCodeMeasureNotFound,
		Message:     fmt.Sprintf("Measure not found: %s", measureID),
		Severity:    SeverityError,
		EntityID:    measureID,
		Recoverable: false,
		Err:         err,
	}
}

// NewCashFlowError creates an error for a failed cash-flow call. It is
// recoverable: dependent ratio metrics degrade to their defaults.
func NewCashFlowError(entityID string, err error) *PlatformError {
	return &PlatformError{
		Code:        ErrCodeCashFlowFailed,
		Message:     "Cash-flow service call failed",
		Severity:    SeverityWarning,
		EntityID:    entityID,
		Recoverable: true,
		Err:         err,
	}
}

// NewResyncError creates an error for a failed analytical resync.
func NewResyncError(entityID string, err error) *PlatformError {
	return &PlatformError{
		Code:        ErrCodeResyncFailed,
		Message:     "Analytical resync failed",
		Severity:    SeverityWarning,
		EntityID:    entityID,
		Recoverable: true,
		Err:         err,
	}
}
