package payment

import "math"

// Processing-fee policy when the donor opts to cover the fee: a rate over
// the donated amount plus a fixed part, plus a flat surcharge that differs
// per gateway.
const (
	feeRate    = 0.014
	feeFixed   = 20
	stripeFlat = 20
	paypalFlat = 25
)

// TotalWithFee returns the amount to charge in pence. With coverFee unset
// the donated amount is charged as-is.
func TotalWithFee(gateway string, amountInPence int64, coverFee bool) int64 {
	if !coverFee {
		return amountInPence
	}

	fee := int64(math.Round(float64(amountInPence)*feeRate)) + feeFixed
	switch gateway {
	case MethodPayPal:
		fee += paypalFlat
	default:
		fee += stripeFlat
	}

	return amountInPence + fee
}
