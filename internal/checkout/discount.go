package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/money"
)

var hundred = decimal.NewFromInt(100)

// DiscountEngine derives a line's unit price from its original price. Each
// operation returns a new LineItem; the input is never mutated.
type DiscountEngine struct {
	currency money.Currency
}

// NewDiscountEngine builds an engine rounding to cur.
func NewDiscountEngine(cur money.Currency) DiscountEngine {
	return DiscountEngine{currency: cur}
}

// Apply dispatches on the request kind. DiscountNone removes any discount.
func (e DiscountEngine) Apply(item LineItem, req DiscountRequest) (LineItem, error) {
	switch req.Kind {
	case DiscountNone:
		return e.RemoveDiscount(item), nil
	case DiscountPercentage:
		return e.ApplyPercentage(item, req.Value)
	case DiscountFixedAmount:
		return e.ApplyFixedAmount(item, req.Value)
	case DiscountDirectPrice:
		return e.SetDirectPrice(item, req.Value)
	default:
		return item, ErrUnknownDiscountKind
	}
}

// ApplyPercentage sets unitPrice to originalPrice * (100 - percent) / 100.
func (e DiscountEngine) ApplyPercentage(item LineItem, percent decimal.Decimal) (LineItem, error) {
	if percent.IsNegative() || percent.GreaterThan(hundred) {
		return item, ErrPercentOutOfRange
	}
	out := item
	out.UnitPrice = e.currency.Round(item.OriginalPrice.Mul(hundred.Sub(percent)).Div(hundred))
	out.Discount = &Discount{Kind: DiscountPercentage, Value: percent}
	return out, nil
}

// ApplyFixedAmount subtracts a per-unit amount from the original price.
func (e DiscountEngine) ApplyFixedAmount(item LineItem, amount decimal.Decimal) (LineItem, error) {
	if amount.IsNegative() {
		return item, ErrNegativeDiscount
	}
	if amount.GreaterThan(item.OriginalPrice) {
		return item, ErrDiscountExceedsPrice
	}
	amount = e.currency.Round(amount)
	if amount.GreaterThan(item.OriginalPrice) {
		amount = item.OriginalPrice
	}
	out := item
	out.UnitPrice = item.OriginalPrice.Sub(amount)
	out.Discount = &Discount{Kind: DiscountFixedAmount, Value: amount}
	return out, nil
}

// SetDirectPrice overrides the unit price. The new price may not exceed the
// original price.
func (e DiscountEngine) SetDirectPrice(item LineItem, price decimal.Decimal) (LineItem, error) {
	if price.IsNegative() {
		return item, ErrNegativePrice
	}
	if price.GreaterThan(item.OriginalPrice) {
		return item, ErrPriceAboveOriginal
	}
	price = e.currency.Round(price)
	if price.GreaterThan(item.OriginalPrice) {
		price = item.OriginalPrice
	}
	out := item
	out.UnitPrice = price
	out.Discount = &Discount{Kind: DiscountDirectPrice, Value: price}
	return out, nil
}

// RemoveDiscount restores the original price. Items without a discount are
// returned unchanged.
func (e DiscountEngine) RemoveDiscount(item LineItem) LineItem {
	if item.Discount == nil {
		return item
	}
	out := item
	out.UnitPrice = item.OriginalPrice
	out.Discount = nil
	return out
}
