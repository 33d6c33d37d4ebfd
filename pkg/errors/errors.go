package errors

import "fmt"

// ErrNotFound indicates a resource was not found
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrUnauthorized indicates missing or invalid credentials
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	return e.Message
}

// ErrEmptyCart indicates a checkout was attempted with no cart lines
type ErrEmptyCart struct{}

func (e *ErrEmptyCart) Error() string {
	return "cart is empty, nothing to checkout"
}

// ErrShippingRequired indicates a physical cart was submitted without a
// selected shipping quote
type ErrShippingRequired struct{}

func (e *ErrShippingRequired) Error() string {
	return "cart contains physical items, a shipping selection is required"
}

// ErrInsufficientStock names the first under-stocked SKU. Not retryable:
// retrying won't change stock.
type ErrInsufficientStock struct {
	SKU string
}

func (e *ErrInsufficientStock) Error() string {
	return fmt.Sprintf("insufficient stock for %s", e.SKU)
}

// ErrReservationExpired indicates a reservation token was read past its TTL
type ErrReservationExpired struct {
	Token string
}

func (e *ErrReservationExpired) Error() string {
	return fmt.Sprintf("reservation %s has expired", e.Token)
}

// ErrTokenInvalid indicates consume/release was called on an unknown,
// released, or wrong-store token. Treated as fatal for the checkout attempt
// and logged for investigation.
type ErrTokenInvalid struct {
	Token  string
	Reason string
}

func (e *ErrTokenInvalid) Error() string {
	return fmt.Sprintf("reservation token %s is invalid: %s", e.Token, e.Reason)
}

// ErrAlreadyConsumed signals an idempotent replay: the token already produced
// an order. Callers should look the order up by payment reference and return
// it rather than failing.
type ErrAlreadyConsumed struct {
	Token string
}

func (e *ErrAlreadyConsumed) Error() string {
	return fmt.Sprintf("reservation %s already consumed", e.Token)
}

// ErrPaymentDeclined indicates the provider reported a decline or the session
// was never paid. Surfaced to buyers as a generic payment failure.
type ErrPaymentDeclined struct {
	Provider string
}

func (e *ErrPaymentDeclined) Error() string {
	return fmt.Sprintf("payment declined by %s", e.Provider)
}

// ErrDuplicatePaymentReference indicates an order insert hit the unique
// payment_reference constraint. The existing order should be returned.
type ErrDuplicatePaymentReference struct {
	Reference string
}

func (e *ErrDuplicatePaymentReference) Error() string {
	return fmt.Sprintf("an order already exists for payment reference %s", e.Reference)
}

// ErrInvalidStateTransition indicates an illegal reservation state change
type ErrInvalidStateTransition struct {
	From string
	To   string
}

func (e *ErrInvalidStateTransition) Error() string {
	return fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
}
