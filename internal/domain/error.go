package domain

import (
	"errors"
	"fmt"
)

// Application error codes.
// These map to HTTP status codes and determine user-facing messages.
const (
	ECONFLICT     = "conflict"         // 409 - Resource conflict
	EINTERNAL     = "internal"         // 500 - Internal server error (hide details)
	EINVALID      = "invalid"          // 400 - Validation error (bad input)
	ENOTFOUND     = "not_found"        // 404 - Resource not found
	EUNAUTHORIZED = "unauthorized"     // 401 - Authentication required
	EFORBIDDEN    = "forbidden"        // 403 - Authenticated but not permitted
	EPAYMENT      = "payment_required" // 402 - Payment failed or required
	ETOOLARGE     = "too_large"        // 413 - Request body too large
	ERATELIMIT    = "rate_limited"     // 429 - Too many requests
)

// Billing precondition reasons. Surfaced verbatim in the "code" field of
// error responses so the dashboard can branch on them.
const (
	ReasonUserNotFound              = "USER_NOT_FOUND"
	ReasonNoActiveSubscription      = "NO_ACTIVE_SUBSCRIPTION"
	ReasonSubscriptionNotCancelling = "SUBSCRIPTION_NOT_CANCELLING"
)

// Error represents an application error with a code and message.
// It implements the error interface and supports error wrapping.
type Error struct {
	// Code is the generic error class (EINVALID, ENOTFOUND, ...).
	Code string

	// Reason is an optional machine-readable reason (NO_ACTIVE_SUBSCRIPTION, ...)
	// echoed to API clients. Empty for errors without a client-facing reason.
	Reason string

	// Message is a human-readable error message safe to show to users.
	Message string

	// Op is the operation where the error occurred (e.g., "subscription.cancel").
	// Used for logging, not shown to users.
	Op string

	// Err is the underlying error, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Op != "" {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap implements error unwrapping for errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode extracts the error class from an error.
// Returns EINTERNAL for non-domain errors.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorReason extracts the machine-readable reason from an error.
// Returns the error class when no specific reason is set, so the "code"
// field in responses is never empty.
func ErrorReason(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Reason != "" {
			return e.Reason
		}
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage extracts a user-facing message from an error.
// Internal errors get a generic message so upstream details never leak
// into response bodies.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Code == EINTERNAL {
			return "An internal error occurred. Please try again later."
		}
		return e.Message
	}
	return "An internal error occurred. Please try again later."
}

// Errorf creates a new domain error with a formatted message.
func Errorf(code, op, format string, args ...interface{}) error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError wraps an existing error with a domain error code and operation.
// Returns nil if err is nil.
func WrapError(err error, code, op, message string) error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// WrapOp annotates an error with the operation it occurred in while
// preserving the class, reason, and message of wrapped domain errors.
// Non-domain errors become EINTERNAL.
func WrapOp(err error, op string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return &Error{
			Code:    e.Code,
			Reason:  e.Reason,
			Message: e.Message,
			Op:      op,
			Err:     err,
		}
	}
	return &Error{
		Code:    EINTERNAL,
		Op:      op,
		Message: "internal error",
		Err:     err,
	}
}

// IsCode returns true if err has the given error class.
func IsCode(err error, code string) bool {
	return ErrorCode(err) == code
}

// NotFound creates a not found error for a resource.
func NotFound(op, resource, identifier string) error {
	return &Error{
		Code:    ENOTFOUND,
		Op:      op,
		Message: fmt.Sprintf("%s not found: %s", resource, identifier),
	}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(op, message string) error {
	return &Error{
		Code:    EUNAUTHORIZED,
		Op:      op,
		Message: message,
	}
}

// Invalid creates a validation error.
func Invalid(op, message string) error {
	return &Error{
		Code:    EINVALID,
		Op:      op,
		Message: message,
	}
}

// Internal creates an internal error wrapping an underlying cause.
// The message shown to users will be generic; the cause is for logging.
func Internal(err error, op, message string) error {
	return &Error{
		Code:    EINTERNAL,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// Pre-defined billing precondition errors. Handlers map these onto
// 404/400 responses with their Reason in the "code" field.
var (
	// ErrUserNotFound indicates no user row exists for the identity.
	ErrUserNotFound = &Error{
		Code:    ENOTFOUND,
		Reason:  ReasonUserNotFound,
		Message: "User not found",
	}

	// ErrNoActiveSubscription indicates a billing action requires an
	// active subscription and the user does not have one.
	ErrNoActiveSubscription = &Error{
		Code:    ENOTFOUND,
		Reason:  ReasonNoActiveSubscription,
		Message: "No active subscription found",
	}

	// ErrSubscriptionNotCancelling indicates reactivate was called on a
	// subscription that is not scheduled to cancel.
	ErrSubscriptionNotCancelling = &Error{
		Code:    EINVALID,
		Reason:  ReasonSubscriptionNotCancelling,
		Message: "Subscription is not scheduled for cancellation",
	}
)
