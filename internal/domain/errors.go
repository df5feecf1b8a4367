// Package domain defines core types, interfaces, and errors for the dataset gateway.
package domain

import (
	"errors"
	"fmt"
)

// Stable error kinds surfaced to clients and operators. Alerting keys on these,
// so they must never change once released.
const (
	KindInvalidSQL         = "invalid_sql"
	KindMultiStatement     = "multi_statement"
	KindForbiddenStatement = "forbidden_statement_kind"
	KindForbiddenFunction  = "forbidden_function"
	KindForbiddenJoin      = "forbidden_join"
	KindExcessiveOffset    = "excessive_offset"
	KindUnresolvedDataset  = "unresolved_dataset"
	KindAuthzDenied        = "authorization_denied"
	KindReflectionFailure  = "reconciliation_reflection_failure"
	KindExecutionError     = "execution_error"
	KindExecutionTimeout   = "execution_timeout"
)

// ValidationError indicates the client submitted SQL or parameters outside the
// accepted subset. Kind is one of the Kind* constants.
type ValidationError struct {
	Kind    string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError indicates a referenced dataset has no active catalogue entry.
type NotFoundError struct {
	Kind    string
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// AccessDeniedError indicates the policy oracle denied the request.
// Reason carries the oracle-supplied text only, never internal policy detail.
type AccessDeniedError struct {
	Reason string
}

func (e *AccessDeniedError) Error() string {
	if e.Reason == "" {
		return "access denied by policy"
	}
	return "access denied by policy: " + e.Reason
}

// ExecutionError indicates the storage backend failed or timed out.
// The raw backend error is kept for logs but never shown to clients.
type ExecutionError struct {
	Timeout   bool
	RequestID string
	Err       error
}

func (e *ExecutionError) Error() string {
	kind := KindExecutionError
	if e.Timeout {
		kind = KindExecutionTimeout
	}
	if e.RequestID != "" {
		return fmt.Sprintf("%s (request %s)", kind, e.RequestID)
	}
	return kind
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Kind returns the stable error kind for this execution failure.
func (e *ExecutionError) ErrKind() string {
	if e.Timeout {
		return KindExecutionTimeout
	}
	return KindExecutionError
}

// Classify maps any query-path error to its stable kind and a sanitized,
// client-safe reason. Raw backend error text never comes back from here.
func Classify(err error) (kind, reason string) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Kind, verr.Message
	}
	var nferr *NotFoundError
	if errors.As(err, &nferr) {
		return nferr.Kind, nferr.Message
	}
	var aerr *AccessDeniedError
	if errors.As(err, &aerr) {
		return KindAuthzDenied, aerr.Reason
	}
	var xerr *ExecutionError
	if errors.As(err, &xerr) {
		if xerr.Timeout {
			return KindExecutionTimeout, "query timed out"
		}
		return KindExecutionError, "query execution failed"
	}
	return KindExecutionError, "internal error"
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(kind, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ErrUnresolved creates the not-found error for an unknown or inactive dataset.
// The message names the logical identifier only; physical names never leak.
func ErrUnresolved(datasetID string) *NotFoundError {
	return &NotFoundError{
		Kind:    KindUnresolvedDataset,
		Message: fmt.Sprintf("query references unknown dataset %q", datasetID),
	}
}
