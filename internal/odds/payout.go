package odds

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/stitts-dev/parlay-analytics/pkg/types"
)

// ErrInvalidStake indicates a stake that is missing, unparseable, or not positive
var ErrInvalidStake = errors.New("stake must be a positive decimal amount")

// QuotePayout prices a stake against the parlay's combined decimal odds.
// Money math stays in decimal form; amounts are rounded to cents.
func QuotePayout(stake string, legs []types.Leg) (*types.PayoutQuote, error) {
	stakeAmount, err := decimal.NewFromString(stake)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStake, stake)
	}
	if !stakeAmount.IsPositive() {
		return nil, ErrInvalidStake
	}
	if len(legs) == 0 {
		return nil, ErrNoLegs
	}

	combined := decimal.NewFromInt(1)
	hundred := decimal.NewFromInt(100)
	for _, leg := range legs {
		if leg.Odds == 0 {
			return nil, ErrZeroOdds
		}

		var d decimal.Decimal
		if leg.Odds > 0 {
			d = decimal.NewFromInt(int64(leg.Odds)).Div(hundred).Add(decimal.NewFromInt(1))
		} else {
			d = hundred.Div(decimal.NewFromInt(int64(-leg.Odds))).Add(decimal.NewFromInt(1))
		}
		combined = combined.Mul(d)
	}

	payout := stakeAmount.Mul(combined).Round(2)
	profit := payout.Sub(stakeAmount.Round(2))

	return &types.PayoutQuote{
		Stake:           stakeAmount.Round(2).StringFixed(2),
		PotentialPayout: payout.StringFixed(2),
		PotentialProfit: profit.StringFixed(2),
	}, nil
}
