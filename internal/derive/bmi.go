// Package derive implements the rules that keep derived columns consistent
// with their source rows: BMI at visit creation, prescription totals after
// detail inserts, and stock decrements on dispense transitions. The rules
// themselves are pure; the owning services run them inside the same
// transaction as the triggering write so both commit or roll back together.
package derive

import "math"

// BMI computes body mass index from a height in centimeters and a weight in
// kilograms, rounded to two decimal places. The second return value is false
// unless both inputs are positive; callers leave the stored bmi null in that
// case.
//
// Applied once, at visit creation. Later edits to height or weight do not
// recompute the stored value.
func BMI(heightCm, weightKg float64) (float64, bool) {
	if heightCm <= 0 || weightKg <= 0 {
		return 0, false
	}
	meters := heightCm / 100
	return math.Round(weightKg/(meters*meters)*100) / 100, true
}
