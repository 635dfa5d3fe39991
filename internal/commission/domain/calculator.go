package domain

import "math"

// Calculate returns the commission in minor units for a confirmed
// booking. PER_COVER multiplies covers by the per-cover amount;
// PERCENT_OF_SPEND takes a fraction of the booking fee. Results round
// half away from zero to whole cents.
func Calculate(model Model, rateValue float64, diners int, feeAmount int64) int64 {
	switch model {
	case ModelPerCover:
		return roundHalfAway(float64(diners) * rateValue)
	case ModelPercentOfSpend:
		return roundHalfAway(float64(feeAmount) * rateValue)
	default:
		return 0
	}
}

func roundHalfAway(v float64) int64 {
	return int64(math.Round(v))
}
