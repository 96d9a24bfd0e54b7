package domain

import (
	"errors"
	"fmt"
)

// ErrKind is used to map domain errors to HTTP status codes consistently.
type ErrKind string

const (
	KindValidation     ErrKind = "validation"     // 400
	KindAuth           ErrKind = "auth"           // 401
	KindForbidden      ErrKind = "forbidden"      // 403
	KindNotFound       ErrKind = "not_found"      // 404
	KindConflict       ErrKind = "conflict"       // 400 (duplicate / already verified)
	KindInfrastructure ErrKind = "infrastructure" // 503
	KindInternal       ErrKind = "internal"       // 500
)

// Stable machine codes. Clients may branch on these; do not change casually.
const (
	CodeInvalidJSON          = "invalid_json"
	CodeMissingField         = "missing_field"
	CodeInvalidField         = "invalid_field"
	CodeMissingCredentials   = "missing_credentials"
	CodeInvalidCredentials   = "invalid_credentials"
	CodeVerificationRequired = "verification_required"
	CodeAccountNotFound      = "account_not_found"
	CodeVerificationInvalid  = "verification_token_invalid"
	CodeUsernameExists       = "username_already_exists"
	CodeAlreadyVerified      = "already_verified"
	CodeDBUnavailable        = "db_unavailable"
	CodeBrokerUnavailable    = "broker_unavailable"
	CodeHashFailed           = "hash_failed"
	CodeRandomFailed         = "random_failed"
	CodeInternal             = "internal_error"
)

// Error is a structured domain error.
// - Kind: high-level category for HTTP mapping
// - Code: stable machine code
// - Message: safe summary for clients (never carries secrets)
// - Meta: optional details (field, reason, etc.)
// - Cause: wrapped internal error for logging/diagnostics
type Error struct {
	Kind    ErrKind
	Code    string
	Message string
	Meta    map[string]string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Kind, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind ErrKind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func Wrap(kind ErrKind, code, msg string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Cause: cause}
}

func WithMeta(err *Error, meta map[string]string) *Error {
	err.Meta = meta
	return err
}

func Is(err error, code string) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// KindOf returns the kind of a domain error, or KindInternal for anything else.
func KindOf(err error) ErrKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// ----------------------
// InvalidInput (400)
// ----------------------

func ErrInvalidJSON(cause error) *Error {
	return Wrap(KindValidation, CodeInvalidJSON, "invalid JSON body", cause)
}

func ErrMissingField(field string) *Error {
	return WithMeta(New(KindValidation, CodeMissingField, "missing required field"), map[string]string{
		"field": field,
	})
}

func ErrInvalidField(field, reason string) *Error {
	return WithMeta(New(KindValidation, CodeInvalidField, "invalid field"), map[string]string{
		"field":  field,
		"reason": reason,
	})
}

// ----------------------
// Unauthorized (401)
// ----------------------

func ErrMissingCredentials() *Error {
	return New(KindAuth, CodeMissingCredentials, "missing credentials")
}

func ErrInvalidCredentials() *Error {
	return New(KindAuth, CodeInvalidCredentials, "invalid username or password")
}

// ----------------------
// VerificationRequired (403)
// ----------------------

func ErrVerificationRequired() *Error {
	return New(KindForbidden, CodeVerificationRequired, "email verification required")
}

// ----------------------
// NotFound (404)
// ----------------------

func ErrAccountNotFound() *Error {
	return New(KindNotFound, CodeAccountNotFound, "account not found")
}

// Covers unknown, expired and already consumed tokens alike.
func ErrVerificationTokenInvalid() *Error {
	return New(KindNotFound, CodeVerificationInvalid, "verification link is invalid or expired")
}

// ----------------------
// Conflict
// ----------------------

func ErrUsernameAlreadyExists() *Error {
	return New(KindConflict, CodeUsernameExists, "an account with this username already exists")
}

func ErrAlreadyVerified() *Error {
	return New(KindConflict, CodeAlreadyVerified, "account is already verified")
}

// ----------------------
// Transient / internal (5xx)
// ----------------------

func ErrDBUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, CodeDBUnavailable, "database unavailable", cause)
}

func ErrBrokerUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, CodeBrokerUnavailable, "message broker unavailable", cause)
}

func ErrHashFailed(cause error) *Error {
	return Wrap(KindInternal, CodeHashFailed, "password hashing failed", cause)
}

func ErrRandomFailed(cause error) *Error {
	return Wrap(KindInternal, CodeRandomFailed, "random generation failed", cause)
}

func ErrInternal(cause error) *Error {
	return Wrap(KindInternal, CodeInternal, "internal error", cause)
}
