package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicstrading/madebuy-checkout/internal/domain"
	"github.com/medicstrading/madebuy-checkout/pkg/errors"
)

func TestTotalize_DigitalOnlyNeedsNoQuote(t *testing.T) {
	lines := []domain.CartLine{
		{SKU: "ebook-1", Quantity: 1, UnitPrice: 2000, RequiresShipping: false},
	}

	totals, err := Totalize(lines, nil)

	require.NoError(t, err)
	assert.Equal(t, int64(2000), totals.Subtotal)
	assert.Equal(t, int64(0), totals.ShippingCost)
	assert.Equal(t, int64(2000), totals.GrandTotal)
}

func TestTotalize_PhysicalWithoutQuoteRefused(t *testing.T) {
	lines := []domain.CartLine{
		{SKU: "ring-7", Quantity: 1, UnitPrice: 15000, RequiresShipping: true},
	}

	_, err := Totalize(lines, nil)

	var shippingErr *errors.ErrShippingRequired
	require.ErrorAs(t, err, &shippingErr)
}

func TestTotalize_PhysicalWithQuote(t *testing.T) {
	lines := []domain.CartLine{
		{SKU: "ring-7", Quantity: 2, UnitPrice: 15000, PersonalizationSurcharge: 500, RequiresShipping: true},
		{SKU: "ebook-1", Quantity: 1, UnitPrice: 2000, RequiresShipping: false},
	}
	quote := &domain.ShippingQuote{Carrier: "GLS", Service: "standard", PriceMinorUnits: 795}

	totals, err := Totalize(lines, quote)

	require.NoError(t, err)
	// (15000+500)*2 + 2000
	assert.Equal(t, int64(33000), totals.Subtotal)
	assert.Equal(t, int64(795), totals.ShippingCost)
	assert.Equal(t, int64(33795), totals.GrandTotal)
}

func TestTotalize_EmptyCartRejected(t *testing.T) {
	_, err := Totalize(nil, nil)

	var emptyErr *errors.ErrEmptyCart
	require.ErrorAs(t, err, &emptyErr)
}

func TestTotalize_SurchargeMultipliedByQuantity(t *testing.T) {
	lines := []domain.CartLine{
		{SKU: "mug-3", Quantity: 3, UnitPrice: 1200, PersonalizationSurcharge: 300, RequiresShipping: false},
	}

	totals, err := Totalize(lines, nil)

	require.NoError(t, err)
	assert.Equal(t, int64(4500), totals.Subtotal)
	assert.Equal(t, int64(4500), totals.GrandTotal)
}
