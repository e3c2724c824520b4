package catalog

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// DiscountedCents applies a percentage discount to a price in cents,
// rounding half-up to a whole cent. Percent outside (0,100] leaves the
// price unchanged.
func DiscountedCents(priceCents int64, percent int) int64 {
	if percent <= 0 || percent > 100 {
		return priceCents
	}
	price := decimal.NewFromInt(priceCents)
	factor := hundred.Sub(decimal.NewFromInt(int64(percent))).Div(hundred)
	return price.Mul(factor).Round(0).IntPart()
}
