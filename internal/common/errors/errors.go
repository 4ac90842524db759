// Package errors provides the coded errors shared by the notifier, the CLI
// and the workflow worker.
package errors

import (
	stderrors "errors"
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
	ErrCodeTeamNotFound      ErrorCode = "TEAM_NOT_FOUND"
	ErrCodeSourceAuthFailed  ErrorCode = "SOURCE_AUTH_FAILED"
	ErrCodeEventFetchFailed  ErrorCode = "EVENT_FETCH_FAILED"
	ErrCodeAttendanceFetch   ErrorCode = "ATTENDANCE_FETCH_FAILED"
	ErrCodeRosterFetchFailed ErrorCode = "ROSTER_FETCH_FAILED"
	ErrCodeNotificationSend  ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeRunStateFailed    ErrorCode = "RUN_STATE_FAILED"
	ErrCodeDeliveryLogFailed ErrorCode = "DELIVERY_LOG_FAILED"
	ErrCodeInvalidJobInput   ErrorCode = "INVALID_JOB_INPUT"
	ErrCodeInvalidConfig     ErrorCode = "INVALID_CONFIG"
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the workflow engine.
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

// ToErrorVariables returns a map suitable for setting job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message string, cause error, retryable bool) *StandardError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewTeamNotFoundError is returned when no team of the authenticated user
// has the configured name.
func NewTeamNotFoundError(teamName string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTeamNotFound,
		Message:   "Team not found",
		Details:   fmt.Sprintf("teamName: %s", teamName),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewSourceAuthFailedError(err error) *StandardError {
	return newError(ErrCodeSourceAuthFailed, "Event source authentication failed", err, false)
}

func NewEventFetchFailedError(teamID int64, err error) *StandardError {
	return newError(ErrCodeEventFetchFailed, "Failed to fetch team events", err, true).
		WithMetadata("teamId", teamID)
}

func NewAttendanceFetchFailedError(eventID int64, err error) *StandardError {
	return newError(ErrCodeAttendanceFetch, "Failed to fetch attendance", err, true).
		WithMetadata("eventId", eventID)
}

func NewRosterFetchFailedError(err error) *StandardError {
	return newError(ErrCodeRosterFetchFailed, "Failed to fetch recipients", err, true)
}

// NewNotificationSendFailedError wraps a failed send to a single recipient.
func NewNotificationSendFailedError(channel, recipientID string, err error) *StandardError {
	return newError(ErrCodeNotificationSend, "Notification delivery failed", err, true).
		WithMetadata("channel", channel).
		WithMetadata("recipientId", recipientID)
}

func NewRunStateFailedError(op string, err error) *StandardError {
	return newError(ErrCodeRunStateFailed, fmt.Sprintf("Run state %s failed", op), err, true)
}

func NewDeliveryLogFailedError(err error) *StandardError {
	return newError(ErrCodeDeliveryLogFailed, "Failed to record delivery", err, true)
}

func NewInvalidJobInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidJobInput,
		Message:   "Invalid job input",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidConfigError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidConfig,
		Message:   "Invalid configuration",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeEventFetchFailed,
		ErrCodeRosterFetchFailed,
		ErrCodeNotificationSend,
		ErrCodeRunStateFailed:
		return 3

	case ErrCodeAttendanceFetch,
		ErrCodeDeliveryLogFailed:
		return 2

	default:
		return 0 // business errors
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandard finds the first StandardError in err's chain.
func AsStandard(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandard(err)
	return ok && stdErr.Code == code
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "TEAM") || strings.HasPrefix(codeStr, "SOURCE") ||
		strings.Contains(codeStr, "FETCH"):
		return "SOURCE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "RUN_STATE") || strings.Contains(codeStr, "DELIVERY_LOG"):
		return "STORAGE"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
