package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidVariant   = errors.New("invalid variant")
	ErrMissingField     = errors.New("missing required field")
	ErrSignatureInvalid = errors.New("webhook signature invalid")
	ErrMalformedContext = errors.New("malformed session context")
	ErrRecord           = errors.New("failed to record purchase")
	ErrCodeExhausted    = errors.New("redemption code space exhausted")
	ErrProviderRejected = errors.New("print provider rejected order")
	ErrPayment          = errors.New("payment provider error")
	ErrNotFound         = errors.New("not found")
)

// MissingFieldError names the required field that was absent.
type MissingFieldError struct {
	Field string
}

func MissingField(name string) error {
	return &MissingFieldError{Field: name}
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}

// InvalidVariantError carries the offending value for logs and 4xx bodies.
type InvalidVariantError struct {
	Field string
	Value string
}

func InvalidVariant(field, value string) error {
	return &InvalidVariantError{Field: field, Value: value}
}

func (e *InvalidVariantError) Error() string {
	return fmt.Sprintf("invalid variant: unsupported %s %q", e.Field, e.Value)
}

func (e *InvalidVariantError) Is(target error) bool {
	return target == ErrInvalidVariant
}

// ProviderRejectedError is returned when the print provider refuses an order.
// Status is zero when the request never got an HTTP response (timeout, network).
// Unconfirmed is set when the request may have reached the provider, so the
// order might exist even though no answer came back.
type ProviderRejectedError struct {
	Status      int
	Details     string
	Unconfirmed bool
}

func (e *ProviderRejectedError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("print provider rejected order: %s", e.Details)
	}
	return fmt.Sprintf("print provider rejected order (status %d): %s", e.Status, e.Details)
}

func (e *ProviderRejectedError) Is(target error) bool {
	return target == ErrProviderRejected
}

// PaymentError wraps a payment provider failure verbatim.
type PaymentError struct {
	Err error
}

func (e *PaymentError) Error() string {
	return e.Err.Error()
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

func (e *PaymentError) Is(target error) bool {
	return target == ErrPayment
}

// ErrInvalidInput covers malformed caller input that is not a catalog problem,
// such as an unparseable email address or a non-positive quantity.
var ErrInvalidInput = errors.New("invalid input")
