package domain

import (
	"time"

	"github.com/google/uuid"
)

// Store represents a tenant storefront on the platform
type Store struct {
	ID         uuid.UUID
	Name       string
	APIKeyHash string
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CartLine is one product line of a cart. All money fields are integer
// minor-currency units. Immutable once checkout begins.
type CartLine struct {
	SKU                      string
	Title                    string
	Quantity                 int
	UnitPrice                int64
	PersonalizationSurcharge int64
	RequiresShipping         bool
}

// LineTotal is (unit price + personalization surcharge) * quantity
func (l CartLine) LineTotal() int64 {
	return (l.UnitPrice + l.PersonalizationSurcharge) * int64(l.Quantity)
}

// ShippingQuote is a carrier option selected by the buyer
type ShippingQuote struct {
	Carrier          string
	Service          string
	PriceMinorUnits  int64
	EstimatedDaysMin int
	EstimatedDaysMax int
}

// CustomerInfo is the buyer's contact information
type CustomerInfo struct {
	Name  string
	Email string
	Phone *string
}

// CheckoutTotals holds computed totals in minor-currency units
type CheckoutTotals struct {
	Subtotal     int64
	ShippingCost int64
	GrandTotal   int64
}

// CheckoutIntent is the validated input to a payment coordinator: cart lines,
// buyer contact info, the shipping selection (nil for digital-only carts) and
// the computed totals. It lives in the reservation for the duration of the
// external payment flow.
type CheckoutIntent struct {
	StoreID  uuid.UUID
	Lines    []CartLine
	Customer CustomerInfo
	Shipping *ShippingQuote
	Totals   CheckoutTotals
}

// Reservation is a time-bounded hold on stock, keyed by an opaque token.
// The intent is carried so the order can be rebuilt when the buyer returns
// from the external payment flow.
type Reservation struct {
	Token     string
	StoreID   uuid.UUID
	Intent    CheckoutIntent
	State     ReservationState
	CreatedAt time.Time
	ExpiresAt time.Time
}

// HeldQuantity returns the quantity this reservation holds for the given SKU
func (r *Reservation) HeldQuantity(sku string) int {
	total := 0
	for _, line := range r.Intent.Lines {
		if line.SKU == sku {
			total += line.Quantity
		}
	}
	return total
}

// OrderLine is a persisted order line
type OrderLine struct {
	SKU                      string
	Title                    string
	Quantity                 int
	UnitPrice                int64
	PersonalizationSurcharge int64
	RequiresShipping         bool
}

// Order is created exactly once per successfully consumed reservation.
// PaymentReference is unique across all orders.
type Order struct {
	ID               uuid.UUID
	StoreID          uuid.UUID
	Lines            []OrderLine
	Totals           CheckoutTotals
	Customer         CustomerInfo
	Shipping         *ShippingQuote
	PaymentReference string
	ReservationToken string
	CreatedAt        time.Time
}
