package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/medicstrading/madebuy-checkout/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name             string
		lines            []domain.CartLine
		wantClass        domain.ShippingClass
		wantShippingReqd bool
	}{
		{
			name: "all digital",
			lines: []domain.CartLine{
				{SKU: "ebook-1", Quantity: 1, RequiresShipping: false},
				{SKU: "course-2", Quantity: 1, RequiresShipping: false},
			},
			wantClass:        domain.ShippingClassDigitalOnly,
			wantShippingReqd: false,
		},
		{
			name: "all physical",
			lines: []domain.CartLine{
				{SKU: "ring-7", Quantity: 2, RequiresShipping: true},
			},
			wantClass:        domain.ShippingClassPhysical,
			wantShippingReqd: true,
		},
		{
			name: "mixed",
			lines: []domain.CartLine{
				{SKU: "ring-7", Quantity: 1, RequiresShipping: true},
				{SKU: "ebook-1", Quantity: 1, RequiresShipping: false},
			},
			wantClass:        domain.ShippingClassMixed,
			wantShippingReqd: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class, shippingRequired := Classify(tt.lines)
			assert.Equal(t, tt.wantClass, class)
			assert.Equal(t, tt.wantShippingReqd, shippingRequired)
		})
	}
}
