package checkout

import (
	"github.com/medicstrading/madebuy-checkout/internal/domain"
)

// Classify decides whether a cart is digital-only, physical, or mixed, and
// whether a shipping selection is mandatory before checkout can proceed.
// Pure function; callers must reject empty carts before invoking it.
func Classify(lines []domain.CartLine) (domain.ShippingClass, bool) {
	physical := 0
	for _, line := range lines {
		if line.RequiresShipping {
			physical++
		}
	}

	switch {
	case physical == 0:
		return domain.ShippingClassDigitalOnly, false
	case physical == len(lines):
		return domain.ShippingClassPhysical, true
	default:
		return domain.ShippingClassMixed, true
	}
}
