package service

import (
	"checkout-service/internal/models"

	"github.com/shopspring/decimal"
)

// deliveryMethodPrices is the flat price table for delivery methods. It is
// not used to compute order totals (the gateway-verified amount is
// authoritative); it only feeds the soft amount reconciliation check.
var deliveryMethodPrices = map[string]decimal.Decimal{
	"standard": decimal.NewFromInt(30),
	"express":  decimal.NewFromInt(60),
	"pickup":   decimal.Zero,
}

// DeliveryFee returns the flat fee for a delivery method, zero for unknown
// methods.
func DeliveryFee(methodID string) decimal.Decimal {
	if fee, ok := deliveryMethodPrices[methodID]; ok {
		return fee
	}
	return decimal.Zero
}

// CartTotal sums unit price times quantity over all cart lines.
func CartTotal(items []models.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.UnitPrice().Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}
