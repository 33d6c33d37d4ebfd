package checkout

import (
	"github.com/medicstrading/madebuy-checkout/internal/domain"
	"github.com/medicstrading/madebuy-checkout/pkg/errors"
)

// Totalize computes subtotal, shipping cost and grand total for a cart.
// All arithmetic is in integer minor-currency units.
//
// If the cart requires shipping and no quote is selected this refuses with
// ErrShippingRequired; this is the gate that forces physical orders through
// shipping selection while digital-only orders skip it entirely.
func Totalize(lines []domain.CartLine, quote *domain.ShippingQuote) (domain.CheckoutTotals, error) {
	if len(lines) == 0 {
		return domain.CheckoutTotals{}, &errors.ErrEmptyCart{}
	}

	_, shippingRequired := Classify(lines)
	if shippingRequired && quote == nil {
		return domain.CheckoutTotals{}, &errors.ErrShippingRequired{}
	}

	var subtotal int64
	for _, line := range lines {
		subtotal += line.LineTotal()
	}

	totals := domain.CheckoutTotals{Subtotal: subtotal}
	if shippingRequired {
		totals.ShippingCost = quote.PriceMinorUnits
	}
	totals.GrandTotal = totals.Subtotal + totals.ShippingCost

	return totals, nil
}
