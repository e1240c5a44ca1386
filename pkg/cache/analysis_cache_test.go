package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stitts-dev/parlay-analytics/pkg/types"
)

func cacheTestLegs() []types.Leg {
	return []types.Leg{
		{Description: "Jayson Tatum over 27.5 points", Odds: -110, PlayerName: "Jayson Tatum", PropType: "points", Side: types.SideOver, Sport: types.SportNBA, EventID: "bos-mia-0115"},
		{Description: "Luka Doncic over 8.5 assists", Odds: -120, PlayerName: "Luka Doncic", PropType: "assists", Side: types.SideOver, Sport: types.SportNBA, EventID: "dal-phx-0115"},
	}
}

func TestAnalysisKey_OrderInsensitive(t *testing.T) {
	legs := cacheTestLegs()
	reversed := []types.Leg{legs[1], legs[0]}
	opts := types.AnalysisOptions{UseSampling: true, Iterations: 5000}

	assert.Equal(t, AnalysisKey(legs, opts), AnalysisKey(reversed, opts))
}

func TestAnalysisKey_SensitiveToInputs(t *testing.T) {
	legs := cacheTestLegs()
	base := AnalysisKey(legs, types.AnalysisOptions{})

	changedOdds := cacheTestLegs()
	changedOdds[0].Odds = -115
	assert.NotEqual(t, base, AnalysisKey(changedOdds, types.AnalysisOptions{}))

	assert.NotEqual(t, base, AnalysisKey(legs, types.AnalysisOptions{UseSampling: true}))
	assert.NotEqual(t, base, AnalysisKey(legs, types.AnalysisOptions{Stake: "100"}))

	seed := int64(7)
	assert.NotEqual(t, base, AnalysisKey(legs, types.AnalysisOptions{Seed: &seed}))
}

func TestAnalysisKey_Stable(t *testing.T) {
	legs := cacheTestLegs()
	opts := types.AnalysisOptions{Stake: "50"}

	assert.Equal(t, AnalysisKey(legs, opts), AnalysisKey(legs, opts))
	assert.Len(t, AnalysisKey(legs, opts), 32)
}
