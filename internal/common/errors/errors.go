// Package errors provides standardized error handling for the integration engine
// and its BPMN workflow boundary.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeMalformedRecommendation ErrorCode = "MALFORMED_RECOMMENDATION"
	ErrCodeHarmonizationFailed     ErrorCode = "HARMONIZATION_FAILED"
	ErrCodeUnresolvableConflict    ErrorCode = "UNRESOLVABLE_CONFLICT"
	ErrCodeCyclicRequiredDep       ErrorCode = "CYCLIC_REQUIRED_DEPENDENCY"
	ErrCodeStageFailure            ErrorCode = "STAGE_FAILURE"
	ErrCodeRunInProgress           ErrorCode = "RUN_IN_PROGRESS"

	ErrCodeGoalStoreQueryFailed ErrorCode = "GOAL_STORE_QUERY_FAILED"
	ErrCodeBaselineFetchFailed  ErrorCode = "BASELINE_FETCH_FAILED"
	ErrCodeUrgencyFetchFailed   ErrorCode = "URGENCY_FETCH_FAILED"
	ErrCodeResultArchiveFailed  ErrorCode = "RESULT_ARCHIVE_FAILED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeParseError               ErrorCode = "PARSE_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	if e.ErrorVariables != nil {
		for k, v := range e.ErrorVariables {
			vars[k] = v
		}
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewHarmonizationFailedError creates a non-retryable error for a harmonization
// stage that produced no insights at all.
func NewHarmonizationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeHarmonizationFailed,
		Message:   "Harmonization produced no insights",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRunInProgressError creates a retryable error for a concurrent run against
// the same user's goal graph.
func NewRunInProgressError(userID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRunInProgress,
		Message:   "An integration run is already in progress for this user",
		Details:   fmt.Sprintf("userId: %s", userID),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewGoalStoreQueryFailedError creates a retryable goal store error.
func NewGoalStoreQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeGoalStoreQueryFailed,
		Message:   "Goal store query failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewResultArchiveFailedError creates a retryable archive error.
func NewResultArchiveFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeResultArchiveFailed,
		Message:   "Unified result archive failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewParseError creates a non-retryable input parse error.
func NewParseError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeParseError,
		Message:   "Failed to parse job input",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes (identical by
// convention so workflow models can match on the same strings).
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeMalformedRecommendation:  "MALFORMED_RECOMMENDATION",
	ErrCodeHarmonizationFailed:      "HARMONIZATION_FAILED",
	ErrCodeUnresolvableConflict:     "UNRESOLVABLE_CONFLICT",
	ErrCodeCyclicRequiredDep:        "CYCLIC_REQUIRED_DEPENDENCY",
	ErrCodeStageFailure:             "STAGE_FAILURE",
	ErrCodeRunInProgress:            "RUN_IN_PROGRESS",
	ErrCodeGoalStoreQueryFailed:     "GOAL_STORE_QUERY_FAILED",
	ErrCodeBaselineFetchFailed:      "BASELINE_FETCH_FAILED",
	ErrCodeUrgencyFetchFailed:       "URGENCY_FETCH_FAILED",
	ErrCodeResultArchiveFailed:      "RESULT_ARCHIVE_FAILED",
	ErrCodeDatabaseConnectionFailed: "DATABASE_CONNECTION_FAILED",
	ErrCodeParseError:               "PARSE_ERROR",
}

// GetRetryCount returns the recommended retry count per error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeGoalStoreQueryFailed,
		ErrCodeBaselineFetchFailed,
		ErrCodeUrgencyFetchFailed,
		ErrCodeResultArchiveFailed,
		ErrCodeDatabaseConnectionFailed:
		return 3 // Retryable technical errors

	case ErrCodeRunInProgress:
		return 2 // The competing run usually finishes quickly

	default:
		return 0 // Business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code) // Fallback
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "RECOMMENDATION") || strings.Contains(codeStr, "PARSE"):
		return "INGESTION"
	case strings.Contains(codeStr, "CONFLICT") || strings.Contains(codeStr, "HARMONIZATION") || strings.Contains(codeStr, "STAGE"):
		return "PIPELINE"
	case strings.Contains(codeStr, "GOAL") || strings.Contains(codeStr, "CYCLIC"):
		return "GOAL_GRAPH"
	case strings.Contains(codeStr, "BASELINE") || strings.Contains(codeStr, "URGENCY"):
		return "PROVIDER"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "ARCHIVE"):
		return "STORAGE"
	default:
		return "OTHER"
	}
}
