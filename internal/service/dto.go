package service

import (
	"github.com/medicstrading/madebuy-checkout/internal/domain"
)

// CheckoutRequest represents a checkout submission from the storefront
type CheckoutRequest struct {
	Items    []CheckoutItem     `json:"items" binding:"required,min=1"`
	Customer CustomerInfo       `json:"customer" binding:"required"`
	Shipping *ShippingSelection `json:"shipping,omitempty"`
}

type CheckoutItem struct {
	SKU                      string `json:"sku" binding:"required"`
	Title                    string `json:"title" binding:"required"`
	Quantity                 int    `json:"quantity" binding:"required,min=1"`
	UnitPrice                int64  `json:"unit_price" binding:"required,min=0"`
	PersonalizationSurcharge int64  `json:"personalization_surcharge" binding:"min=0"`
	RequiresShipping         bool   `json:"requires_shipping"`
}

type CustomerInfo struct {
	Name  string  `json:"name" binding:"required"`
	Email string  `json:"email" binding:"required,email"`
	Phone *string `json:"phone,omitempty"`
}

// ShippingSelection is the quote the buyer picked during shipping selection
type ShippingSelection struct {
	Carrier          string `json:"carrier" binding:"required"`
	Service          string `json:"service" binding:"required"`
	Price            int64  `json:"price" binding:"min=0"`
	EstimatedDaysMin int    `json:"estimated_days_min"`
	EstimatedDaysMax int    `json:"estimated_days_max"`
}

// QuotesRequest asks for carrier options for a destination and cart
type QuotesRequest struct {
	Destination DestinationInfo `json:"destination" binding:"required"`
	Items       []CheckoutItem  `json:"items" binding:"required,min=1"`
}

type DestinationInfo struct {
	Street     string `json:"street" binding:"required"`
	City       string `json:"city" binding:"required"`
	PostalCode string `json:"postal_code" binding:"required"`
	Country    string `json:"country" binding:"required"`
}

func (r CheckoutRequest) cartLines() []domain.CartLine {
	lines := make([]domain.CartLine, 0, len(r.Items))
	for _, item := range r.Items {
		lines = append(lines, domain.CartLine{
			SKU:                      item.SKU,
			Title:                    item.Title,
			Quantity:                 item.Quantity,
			UnitPrice:                item.UnitPrice,
			PersonalizationSurcharge: item.PersonalizationSurcharge,
			RequiresShipping:         item.RequiresShipping,
		})
	}
	return lines
}

func (r CheckoutRequest) shippingQuote() *domain.ShippingQuote {
	if r.Shipping == nil {
		return nil
	}
	return &domain.ShippingQuote{
		Carrier:          r.Shipping.Carrier,
		Service:          r.Shipping.Service,
		PriceMinorUnits:  r.Shipping.Price,
		EstimatedDaysMin: r.Shipping.EstimatedDaysMin,
		EstimatedDaysMax: r.Shipping.EstimatedDaysMax,
	}
}

func (r CheckoutRequest) customer() domain.CustomerInfo {
	return domain.CustomerInfo{
		Name:  r.Customer.Name,
		Email: r.Customer.Email,
		Phone: r.Customer.Phone,
	}
}
