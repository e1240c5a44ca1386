package odds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/parlay-analytics/pkg/types"
)

func TestAmericanToImplied(t *testing.T) {
	tests := []struct {
		name     string
		odds     int
		expected float64
	}{
		{"even money +100", 100, 0.5},
		{"even money -100", -100, 0.5},
		{"favorite -150", -150, 0.6},
		{"underdog +150", 150, 0.4},
		{"heavy favorite -300", -300, 0.75},
		{"big underdog +300", 300, 0.25},
		{"standard -110", -110, 0.5238},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := AmericanToImplied(tt.odds)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, result, 0.001)
		})
	}
}

func TestAmericanToImplied_ZeroOdds(t *testing.T) {
	_, err := AmericanToImplied(0)
	assert.ErrorIs(t, err, ErrZeroOdds)
}

func TestAmericanToImplied_Bounds(t *testing.T) {
	// Positive odds price an underdog, negative odds a favorite
	for _, o := range []int{100, 110, 150, 250, 600, 1200, 10000} {
		p, err := AmericanToImplied(o)
		require.NoError(t, err)
		assert.LessOrEqual(t, p, 0.5, "odds %d", o)
		assert.Greater(t, p, 0.0, "odds %d", o)
	}
	for _, o := range []int{-101, -110, -150, -250, -600, -1200, -10000} {
		p, err := AmericanToImplied(o)
		require.NoError(t, err)
		assert.Greater(t, p, 0.5, "odds %d", o)
		assert.Less(t, p, 1.0, "odds %d", o)
	}
}

func TestAmericanToDecimal(t *testing.T) {
	tests := []struct {
		name     string
		odds     int
		expected float64
	}{
		{"even money +100", 100, 2.0},
		{"even money -100", -100, 2.0},
		{"underdog +150", 150, 2.5},
		{"favorite -150", -150, 1.6667},
		{"standard -110", -110, 1.9091},
		{"big underdog +400", 400, 5.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := AmericanToDecimal(tt.odds)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, result, 0.001)
		})
	}

	_, err := AmericanToDecimal(0)
	assert.ErrorIs(t, err, ErrZeroOdds)
}

func TestDecimalAmericanRoundTrip(t *testing.T) {
	for _, o := range []int{100, 105, 110, 150, 240, 575, 1000, -105, -110, -150, -240, -575, -1000} {
		d, err := AmericanToDecimal(o)
		require.NoError(t, err)
		assert.Equal(t, o, DecimalToAmerican(d), "odds %d", o)
	}
}

func TestImpliedDecimalConsistency(t *testing.T) {
	// Implied probability equals the reciprocal of decimal odds
	for _, o := range []int{100, 135, 220, -110, -135, -220, 750, -750} {
		p, err := AmericanToImplied(o)
		require.NoError(t, err)
		d, err := AmericanToDecimal(o)
		require.NoError(t, err)
		assert.InDelta(t, 1.0/d, p, 1e-12, "odds %d", o)
	}
}

func TestCombineOdds(t *testing.T) {
	t.Run("single leg keeps its own odds", func(t *testing.T) {
		american, dec, err := CombineOdds([]types.Leg{{ID: "1", Description: "leg", Odds: -110}})
		require.NoError(t, err)
		assert.Equal(t, -110, american)
		assert.InDelta(t, 1.9091, dec, 0.001)
	})

	t.Run("two even legs", func(t *testing.T) {
		legs := []types.Leg{
			{ID: "1", Description: "a", Odds: 100},
			{ID: "2", Description: "b", Odds: 100},
		}
		american, dec, err := CombineOdds(legs)
		require.NoError(t, err)
		assert.InDelta(t, 4.0, dec, 1e-9)
		assert.Equal(t, 300, american)
	})

	t.Run("standard two leg -110 parlay", func(t *testing.T) {
		legs := []types.Leg{
			{ID: "1", Description: "a", Odds: -110},
			{ID: "2", Description: "b", Odds: -110},
		}
		american, dec, err := CombineOdds(legs)
		require.NoError(t, err)
		assert.InDelta(t, 3.6446, dec, 0.001)
		assert.Equal(t, 264, american)
	})

	t.Run("empty list", func(t *testing.T) {
		_, _, err := CombineOdds(nil)
		assert.ErrorIs(t, err, ErrNoLegs)
	})

	t.Run("zero odds leg", func(t *testing.T) {
		_, _, err := CombineOdds([]types.Leg{{ID: "1", Description: "a", Odds: 0}})
		assert.ErrorIs(t, err, ErrZeroOdds)
	})
}

func TestCombinedWinProbability(t *testing.T) {
	t.Run("two -110 legs", func(t *testing.T) {
		legs := []types.Leg{
			{ID: "1", Description: "a", Odds: -110},
			{ID: "2", Description: "b", Odds: -110},
		}
		p, err := CombinedWinProbability(legs)
		require.NoError(t, err)
		assert.InDelta(t, 0.2746, p, 0.001)
	})

	t.Run("monotonically non-increasing as legs are added", func(t *testing.T) {
		legs := []types.Leg{}
		prev := 1.0
		for i, o := range []int{-200, 150, -110, 300, -450} {
			legs = append(legs, types.Leg{ID: string(rune('a' + i)), Description: "leg", Odds: o})
			p, err := CombinedWinProbability(legs)
			require.NoError(t, err)
			assert.LessOrEqual(t, p, prev)
			prev = p
		}
	})

	t.Run("empty list", func(t *testing.T) {
		p, err := CombinedWinProbability(nil)
		assert.ErrorIs(t, err, ErrNoLegs)
		assert.Equal(t, 0.0, p)
	})
}

func TestQuotePayout(t *testing.T) {
	t.Run("two leg parlay at +150 and -110", func(t *testing.T) {
		legs := []types.Leg{
			{ID: "1", Description: "a", Odds: 150},
			{ID: "2", Description: "b", Odds: -110},
		}
		// 2.5 * (100/110 + 1) = 4.7727...
		quote, err := QuotePayout("100", legs)
		require.NoError(t, err)
		assert.Equal(t, "100.00", quote.Stake)
		assert.Equal(t, "477.27", quote.PotentialPayout)
		assert.Equal(t, "377.27", quote.PotentialProfit)
	})

	t.Run("rejects zero stake", func(t *testing.T) {
		_, err := QuotePayout("0", []types.Leg{{ID: "1", Description: "a", Odds: 100}})
		assert.ErrorIs(t, err, ErrInvalidStake)
	})

	t.Run("rejects unparseable stake", func(t *testing.T) {
		_, err := QuotePayout("ten dollars", []types.Leg{{ID: "1", Description: "a", Odds: 100}})
		assert.ErrorIs(t, err, ErrInvalidStake)
	})

	t.Run("rejects zero odds", func(t *testing.T) {
		_, err := QuotePayout("25", []types.Leg{{ID: "1", Description: "a", Odds: 0}})
		assert.ErrorIs(t, err, ErrZeroOdds)
	})
}
