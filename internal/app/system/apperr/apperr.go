// internal/app/system/apperr/apperr.go
//
// Package apperr is the error taxonomy shared by the session controller, the
// signup ledger and the publication form. Every failure a caller can act on
// is one of the kinds below; anything else is treated as a store failure.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Auth failures surfaced to the user as "Error during sign-up/sign-in: <msg>".
var (
	ErrAccountExists     = &AuthError{Code: "account_exists", Msg: "An account with this email already exists."}
	ErrWeakCredential    = &AuthError{Code: "weak_credential", Msg: "Password should be at least 6 characters."}
	ErrInvalidCredential = &AuthError{Code: "invalid_credential", Msg: "Invalid email or password."}
	ErrInvalidEmail      = &AuthError{Code: "invalid_email", Msg: "Please enter a valid email address."}
)

var (
	// ErrNotAuthenticated is returned when an operation needs a signed-in user.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrAlreadySignedUp is returned when the (user, opportunity) signup exists.
	ErrAlreadySignedUp = errors.New("already signed up")

	// ErrRateLimited is returned when sign-in or sign-up attempts are throttled.
	ErrRateLimited = errors.New("rate limited")
)

// AuthError is an authentication-service rejection.
type AuthError struct {
	Code string
	Msg  string
}

func (e *AuthError) Error() string { return e.Msg }

// StoreError wraps a document-store failure with the operation that failed.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return e.Op + ": store failure"
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Store wraps err as a StoreError. A nil err stays nil.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// ValidationError rejects one form field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Invalid is shorthand for a ValidationError.
func Invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// IsAuth reports whether err is an AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsStore reports whether err is a StoreError.
func IsStore(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Status maps an error to the HTTP status the JSON surface answers with.
func Status(err error) int {
	var (
		ae *AuthError
		ve *ValidationError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAlreadySignedUp):
		return http.StatusConflict
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.As(err, &ae):
		if ae == ErrInvalidCredential {
			return http.StatusUnauthorized
		}
		if ae == ErrAccountExists {
			return http.StatusConflict
		}
		return http.StatusBadRequest
	case errors.As(err, &ve):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Kind names the error class for logs, metrics labels and JSON bodies.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotAuthenticated):
		return "not_authenticated"
	case errors.Is(err, ErrAlreadySignedUp):
		return "already_signed_up"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case IsAuth(err):
		return "auth"
	case IsValidation(err):
		return "validation"
	}
	return "store"
}

// Message turns err into the notice shown to the user. Errors without a
// message of their own (store failures, a missing session) get fallback.
func Message(err error, fallback string) string {
	var (
		ae *AuthError
		ve *ValidationError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAlreadySignedUp):
		return "You have already signed up for this opportunity."
	case errors.As(err, &ae):
		return "Error during sign-up/sign-in: " + ae.Msg
	case errors.As(err, &ve):
		return ve.Message
	}
	return fallback
}
