package domain

// ReservationState represents the lifecycle state of a stock reservation
type ReservationState string

const (
	ReservationStateHeld     ReservationState = "HELD"
	ReservationStateConsumed ReservationState = "CONSUMED"
	ReservationStateReleased ReservationState = "RELEASED"
	ReservationStateExpired  ReservationState = "EXPIRED"
)

// IsValid checks if the reservation state is valid
func (s ReservationState) IsValid() bool {
	switch s {
	case ReservationStateHeld,
		ReservationStateConsumed,
		ReservationStateReleased,
		ReservationStateExpired:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions are allowed
func (s ReservationState) IsTerminal() bool {
	return s != ReservationStateHeld
}

// CanTransitionTo checks if a state transition is valid. Only a held
// reservation can move; consumed, released and expired are terminal.
func (s ReservationState) CanTransitionTo(newState ReservationState) bool {
	if s != ReservationStateHeld {
		return false
	}
	switch newState {
	case ReservationStateConsumed, ReservationStateReleased, ReservationStateExpired:
		return true
	default:
		return false
	}
}

// ShippingClass classifies a cart by its shipping needs
type ShippingClass string

const (
	ShippingClassDigitalOnly ShippingClass = "DIGITAL_ONLY"
	ShippingClassPhysical    ShippingClass = "PHYSICAL"
	ShippingClassMixed       ShippingClass = "MIXED"
)
