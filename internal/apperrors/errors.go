package apperrors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeDecode indicates a credential could not be decoded into claims.
	// Recoverable: callers treat claims as absent, never as fatal.
	ErrCodeDecode ErrorCode = "decode"
	// ErrCodeInvalidCredentials indicates the provider rejected the supplied credentials.
	ErrCodeInvalidCredentials ErrorCode = "invalid_credentials"
	// ErrCodeNetwork indicates a transport-level failure talking to a provider or the backend.
	ErrCodeNetwork ErrorCode = "network"
	// ErrCodeProviderUnavailable indicates the identity provider is down or misconfigured.
	ErrCodeProviderUnavailable ErrorCode = "provider_unavailable"
	// ErrCodeExpired indicates a credential is past its hard expiry.
	ErrCodeExpired ErrorCode = "expired"
	// ErrCodeInteractionRequired indicates silent refresh is not possible and the
	// user must complete an interactive sign-in. Callers must never retry silently.
	ErrCodeInteractionRequired ErrorCode = "interaction_required"
	// ErrCodeNotRegistered indicates the backend has no account for the principal.
	// This is expected control flow (route to sign-up), not a failure.
	ErrCodeNotRegistered ErrorCode = "not_registered"
	// ErrCodeProfileFetch indicates the backend profile fetch failed in a retryable way.
	ErrCodeProfileFetch ErrorCode = "profile_fetch"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "internal"
)

// AppError represents a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf creates a new AppError with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Decode creates a new Decode error.
func Decode(message string) *AppError {
	return New(ErrCodeDecode, message)
}

// InvalidCredentials creates a new InvalidCredentials error.
func InvalidCredentials(message string) *AppError {
	return New(ErrCodeInvalidCredentials, message)
}

// Network creates a new Network error.
func Network(message string) *AppError {
	return New(ErrCodeNetwork, message)
}

// ProviderUnavailable creates a new ProviderUnavailable error.
func ProviderUnavailable(message string) *AppError {
	return New(ErrCodeProviderUnavailable, message)
}

// Expired creates a new Expired error.
func Expired(message string) *AppError {
	return New(ErrCodeExpired, message)
}

// InteractionRequired creates a new InteractionRequired error.
func InteractionRequired(message string) *AppError {
	return New(ErrCodeInteractionRequired, message)
}

// NotRegistered creates a new NotRegistered error.
func NotRegistered(message string) *AppError {
	return New(ErrCodeNotRegistered, message)
}

// ProfileFetch creates a new ProfileFetch error.
func ProfileFetch(message string) *AppError {
	return New(ErrCodeProfileFetch, message)
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return New(ErrCodeValidation, message)
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsDecode checks if an error is a Decode error.
func IsDecode(err error) bool { return isCode(err, ErrCodeDecode) }

// IsInvalidCredentials checks if an error is an InvalidCredentials error.
func IsInvalidCredentials(err error) bool { return isCode(err, ErrCodeInvalidCredentials) }

// IsNetwork checks if an error is a Network error.
func IsNetwork(err error) bool { return isCode(err, ErrCodeNetwork) }

// IsProviderUnavailable checks if an error is a ProviderUnavailable error.
func IsProviderUnavailable(err error) bool { return isCode(err, ErrCodeProviderUnavailable) }

// IsExpired checks if an error is an Expired error.
func IsExpired(err error) bool { return isCode(err, ErrCodeExpired) }

// IsInteractionRequired checks if an error is an InteractionRequired error.
func IsInteractionRequired(err error) bool { return isCode(err, ErrCodeInteractionRequired) }

// IsNotRegistered checks if an error is a NotRegistered error.
func IsNotRegistered(err error) bool { return isCode(err, ErrCodeNotRegistered) }

// IsProfileFetch checks if an error is a ProfileFetch error.
func IsProfileFetch(err error) bool { return isCode(err, ErrCodeProfileFetch) }

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool { return isCode(err, ErrCodeValidation) }

// IsInternal checks if an error is an Internal error.
func IsInternal(err error) bool { return isCode(err, ErrCodeInternal) }

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
