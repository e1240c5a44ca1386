package odds

import (
	"errors"
	"math"

	"github.com/stitts-dev/parlay-analytics/pkg/types"
)

var (
	// ErrZeroOdds indicates a leg with American odds of 0, which has no meaning
	ErrZeroOdds = errors.New("american odds of 0 are invalid")
	// ErrNoLegs indicates an empty leg list
	ErrNoLegs = errors.New("no legs provided")
)

// AmericanToImplied converts American odds to implied probability.
// Example: -150 → 0.6, +150 → 0.4.
func AmericanToImplied(odds int) (float64, error) {
	if odds == 0 {
		return 0, ErrZeroOdds
	}

	if odds > 0 {
		return 100.0 / (float64(odds) + 100.0), nil
	}
	return math.Abs(float64(odds)) / (math.Abs(float64(odds)) + 100.0), nil
}

// AmericanToDecimal converts American odds to decimal odds.
// Example: +150 → 2.5, -150 → 1.667.
func AmericanToDecimal(odds int) (float64, error) {
	if odds == 0 {
		return 0, ErrZeroOdds
	}

	if odds > 0 {
		return (float64(odds) / 100.0) + 1.0, nil
	}
	return (100.0 / float64(-odds)) + 1.0, nil
}

// DecimalToAmerican converts decimal odds back to American odds
func DecimalToAmerican(decimal float64) int {
	if decimal >= 2.0 {
		return int(math.Round((decimal - 1.0) * 100))
	}
	return int(math.Round(-100.0 / (decimal - 1.0)))
}

// ImpliedProbabilities derives the implied probability of every leg in order
func ImpliedProbabilities(legs []types.Leg) ([]float64, error) {
	if len(legs) == 0 {
		return nil, ErrNoLegs
	}

	probs := make([]float64, len(legs))
	for i, leg := range legs {
		p, err := AmericanToImplied(leg.Odds)
		if err != nil {
			return nil, err
		}
		probs[i] = p
	}
	return probs, nil
}

// CombineOdds multiplies the legs' decimal odds into a single parlay price,
// returned in both American and decimal form. A single leg keeps its own odds.
func CombineOdds(legs []types.Leg) (int, float64, error) {
	if len(legs) == 0 {
		return 0, 0, ErrNoLegs
	}

	combined := 1.0
	for _, leg := range legs {
		d, err := AmericanToDecimal(leg.Odds)
		if err != nil {
			return 0, 0, err
		}
		combined *= d
	}

	if len(legs) == 1 {
		return legs[0].Odds, combined, nil
	}
	return DecimalToAmerican(combined), combined, nil
}

// CombinedWinProbability multiplies the legs' implied probabilities,
// assuming independence. This is the naive baseline that correlation
// adjustment refines.
func CombinedWinProbability(legs []types.Leg) (float64, error) {
	if len(legs) == 0 {
		return 0, ErrNoLegs
	}

	probs, err := ImpliedProbabilities(legs)
	if err != nil {
		return 0, err
	}

	combined := 1.0
	for _, p := range probs {
		combined *= p
	}
	return combined, nil
}
