package models

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the storage layer and services. Handlers map
// these to HTTP statuses at the boundary.
var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrMenuItemNotFound  = errors.New("menu item not found")
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrEmailTaken        = errors.New("email already registered")

	ErrPartnerAlreadyAssigned = errors.New("delivery partner already assigned")
	ErrStatusConflict         = errors.New("order status changed concurrently")

	// OTP verification outcomes.
	ErrOTPNotFound         = errors.New("verification code not found")
	ErrOTPExpired          = errors.New("verification code expired")
	ErrOTPMismatch         = errors.New("incorrect verification code")
	ErrOTPAttemptsExceeded = errors.New("too many verification attempts")

	// ErrDeliveryFailed means the verification code could not be handed to
	// the email/SMS transport. Unlike push-notification failures this one is
	// surfaced to the caller.
	ErrDeliveryFailed = errors.New("verification code delivery failed")
)

// ValidationError reports a malformed request payload.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// InvalidTransitionError reports a rejected order status change.
type InvalidTransitionError struct {
	From   OrderStatus
	To     OrderStatus
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s: %s", e.From, e.To, e.Reason)
}
