package pricing

import "github.com/shopspring/decimal"

// MaxDiscountPercent is the largest discount the engine will apply. Anything
// above it is clamped so an item never becomes free or negative. Discounts
// are whole percents.
var MaxDiscountPercent = decimal.NewFromInt(99)

var hundred = decimal.NewFromInt(100)

// ClampDiscount truncates d to a whole percent and limits it to
// [0, MaxDiscountPercent].
func ClampDiscount(d decimal.Decimal) decimal.Decimal {
	d = d.Truncate(0)
	if d.IsNegative() {
		return decimal.Zero
	}
	if d.GreaterThan(MaxDiscountPercent) {
		return MaxDiscountPercent
	}
	return d
}

// EffectivePrice returns the unit price after applying discount percent.
// A nil or zero discount leaves base unchanged. The result keeps full
// precision; use Display for rounding.
func EffectivePrice(base decimal.Decimal, discount *decimal.Decimal) decimal.Decimal {
	if base.IsNegative() {
		base = decimal.Zero
	}
	if discount == nil || discount.IsZero() {
		return base
	}
	d := ClampDiscount(*discount)
	if d.IsZero() {
		return base
	}
	return base.Mul(hundred.Sub(d)).Div(hundred)
}

// Display rounds a price to cents for presentation.
func Display(p decimal.Decimal) string {
	return p.StringFixed(2)
}
