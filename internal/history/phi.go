package history

import "math"

// PhiCoefficient computes the correlation of a 2x2 contingency table. It is
// the Pearson correlation of two binary outcomes: bothHit counts games where
// both props hit, onlyFirst and onlySecond where exactly one hit, neither
// where both missed. A degenerate table (any marginal zero, such as a prop
// that hit in every sampled game) returns 0 rather than NaN.
func PhiCoefficient(bothHit, onlyFirst, onlySecond, neither int) float64 {
	n11 := float64(bothHit)
	n10 := float64(onlyFirst)
	n01 := float64(onlySecond)
	n00 := float64(neither)

	firstHit := n11 + n10
	firstMiss := n01 + n00
	secondHit := n11 + n01
	secondMiss := n10 + n00

	denominator := firstHit * firstMiss * secondHit * secondMiss
	if denominator <= 0 {
		return 0
	}

	phi := (n11*n00 - n10*n01) / math.Sqrt(denominator)
	return math.Max(-1.0, math.Min(1.0, phi))
}
