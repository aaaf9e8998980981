package settlement

import "github.com/shopspring/decimal"

var bpsDenominator = decimal.NewFromInt(10000)

// PlatformFee returns total * bps / 10000 rounded half-up, bounded to
// [0, total]. The product is computed in decimal so large totals cannot
// overflow int64.
func PlatformFee(totalCents, bps int64) int64 {
	if totalCents <= 0 || bps <= 0 {
		return 0
	}
	fee := decimal.NewFromInt(totalCents).
		Mul(decimal.NewFromInt(bps)).
		Div(bpsDenominator).
		Round(0)
	if fee.GreaterThan(decimal.NewFromInt(totalCents)) {
		return totalCents
	}
	return fee.IntPart()
}
