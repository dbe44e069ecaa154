package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Kind classifies a failure so the transport layer can map it to a status code.
type Kind string

const (
	KindValidation            Kind = "validation"
	KindInvalidAmount         Kind = "invalid_amount"
	KindBelowMinimum          Kind = "below_minimum"
	KindMissingField          Kind = "missing_field"
	KindGateway               Kind = "gateway"
	KindNotFound              Kind = "not_found"
	KindInvalidTransition     Kind = "invalid_transition"
	KindSubscriptionNotActive Kind = "subscription_not_active"
	KindSignatureMismatch     Kind = "signature_mismatch"
)

// Error is a user facing error. Message is safe to return to the client.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrValidation            = &Error{Kind: KindValidation, Message: "Validation failed"}
	ErrInvalidAmount         = &Error{Kind: KindInvalidAmount, Message: "Invalid amount"}
	ErrBelowMinimum          = &Error{Kind: KindBelowMinimum, Message: "Amount below minimum"}
	ErrMissingField          = &Error{Kind: KindMissingField, Message: "Missing required field"}
	ErrGateway               = &Error{Kind: KindGateway, Message: "Payment gateway error"}
	ErrNotFound              = &Error{Kind: KindNotFound, Message: "Donation not found"}
	ErrInvalidTransition     = &Error{Kind: KindInvalidTransition, Message: "Invalid status transition"}
	ErrSubscriptionNotActive = &Error{Kind: KindSubscriptionNotActive, Message: "Subscription is not active"}
	ErrSignatureMismatch     = &Error{Kind: KindSignatureMismatch, Message: "Invalid payment signature"}
)

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation lists every missing field in one error.
func Validation(missing []string) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: "Missing required fields: " + strings.Join(missing, ", "),
	}
}

func MissingField(field string) *Error {
	return &Error{Kind: KindMissingField, Message: field + " is required"}
}

// Gateway wraps an upstream failure. The upstream message is forwarded as-is.
func Gateway(err error) *Error {
	msg := "Payment gateway error"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return &Error{Kind: KindGateway, Message: msg, Err: err}
}

func InvalidTransition(from, to string) *Error {
	return Newf(KindInvalidTransition, "Cannot change donation status from %s to %s", from, to)
}

// KindOf returns the kind of the first *Error in the chain, or "" for plain errors.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// MessageOf returns the client safe message of the first *Error in the chain.
func MessageOf(err error) (string, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Message, true
	}
	return "", false
}

func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}
