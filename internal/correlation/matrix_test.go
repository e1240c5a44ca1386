package correlation

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/parlay-analytics/pkg/types"
)

func leg(id, player, prop, side, event string, odds int) types.Leg {
	return types.Leg{
		ID:          id,
		Description: fmt.Sprintf("%s %s %s", player, side, prop),
		Odds:        odds,
		PlayerName:  player,
		PropType:    prop,
		Side:        side,
		Sport:       types.SportNBA,
		EventID:     event,
	}
}

type fakeLookup struct {
	samples map[string]HistoricalSample
}

func (f *fakeLookup) Sample(a, b types.Leg) (HistoricalSample, bool) {
	props := []string{strings.ToLower(a.PropType), strings.ToLower(b.PropType)}
	if props[0] > props[1] {
		props[0], props[1] = props[1], props[0]
	}
	key := strings.ToLower(a.PlayerName) + "|" + props[0] + "|" + props[1]
	s, ok := f.samples[key]
	return s, ok
}

func TestClassifyPair(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		a        types.Leg
		b        types.Leg
		expected types.CorrelationType
	}{
		{
			"same player same game",
			leg("1", "Jayson Tatum", "points", "over", "BOS@MIA", -110),
			leg("2", "Jayson Tatum", "rebounds", "over", "BOS@MIA", -115),
			types.CorrelationSamePlayer,
		},
		{
			"same player unknown events",
			leg("1", "Jayson Tatum", "points", "over", "", -110),
			leg("2", "Jayson Tatum", "assists", "over", "", -115),
			types.CorrelationSamePlayer,
		},
		{
			"same player name different case",
			leg("1", "jayson tatum", "points", "over", "BOS@MIA", -110),
			leg("2", "JAYSON TATUM", "assists", "over", "BOS@MIA", -115),
			types.CorrelationSamePlayer,
		},
		{
			"same player different games",
			leg("1", "Jayson Tatum", "points", "over", "BOS@MIA", -110),
			leg("2", "Jayson Tatum", "points", "over", "BOS@NYK", -115),
			types.CorrelationUnrelated,
		},
		{
			"different players same game pace props",
			leg("1", "Jayson Tatum", "points", "over", "BOS@MIA", -110),
			leg("2", "Bam Adebayo", "points", "over", "BOS@MIA", -120),
			types.CorrelationSameGamePace,
		},
		{
			"different players same game non-pace prop",
			leg("1", "Jayson Tatum", "points", "over", "BOS@MIA", -110),
			leg("2", "Bam Adebayo", "blocks", "over", "BOS@MIA", -120),
			types.CorrelationSameGameOther,
		},
		{
			"different games",
			leg("1", "Jayson Tatum", "points", "over", "BOS@MIA", -110),
			leg("2", "Luka Doncic", "points", "over", "DAL@PHX", -120),
			types.CorrelationUnrelated,
		},
		{
			"missing events different players",
			leg("1", "Jayson Tatum", "points", "over", "", -110),
			leg("2", "Luka Doncic", "points", "over", "", -120),
			types.CorrelationUnrelated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyPair(tt.a, tt.b, cfg))
			// Classification is symmetric
			assert.Equal(t, tt.expected, ClassifyPair(tt.b, tt.a, cfg))
		})
	}
}

func TestBuild_InsufficientLegs(t *testing.T) {
	builder := NewBuilder(DefaultConfig(), nil)

	_, err := builder.Build(nil)
	assert.ErrorIs(t, err, ErrInsufficientLegs)

	_, err = builder.Build([]types.Leg{leg("1", "Jayson Tatum", "points", "over", "BOS@MIA", -110)})
	assert.ErrorIs(t, err, ErrInsufficientLegs)
}

func TestBuild_MatrixShape(t *testing.T) {
	builder := NewBuilder(DefaultConfig(), nil)
	legs := []types.Leg{
		leg("1", "Jayson Tatum", "points", "over", "BOS@MIA", -110),
		leg("2", "Jayson Tatum", "rebounds", "over", "BOS@MIA", -115),
		leg("3", "Bam Adebayo", "points", "over", "BOS@MIA", -120),
		leg("4", "Luka Doncic", "assists", "over", "DAL@PHX", 105),
	}

	result, err := builder.Build(legs)
	require.NoError(t, err)

	n := len(legs)
	assert.Len(t, result.Matrix, n)
	assert.Len(t, result.Correlations, n*(n-1)/2)

	for i := 0; i < n; i++ {
		assert.Len(t, result.Matrix[i], n)
		assert.Equal(t, 1.0, result.Matrix[i][i])
		for j := 0; j < n; j++ {
			assert.Equal(t, result.Matrix[i][j], result.Matrix[j][i], "matrix[%d][%d]", i, j)
			assert.GreaterOrEqual(t, result.Matrix[i][j], -1.0)
			assert.LessOrEqual(t, result.Matrix[i][j], 1.0)
		}
	}

	assert.GreaterOrEqual(t, result.AvgCorrelation, 0.0)
	assert.LessOrEqual(t, result.AvgCorrelation, 1.0)
}

func TestBuild_UnrelatedLegs(t *testing.T) {
	builder := NewBuilder(DefaultConfig(), nil)
	legs := []types.Leg{
		leg("1", "Jayson Tatum", "points", "over", "BOS@MIA", -110),
		leg("2", "Luka Doncic", "points", "over", "DAL@PHX", -110),
	}

	result, err := builder.Build(legs)
	require.NoError(t, err)

	assert.Equal(t, 0.0, result.Matrix[0][1])
	assert.Equal(t, 0.0, result.AvgCorrelation)
	assert.Equal(t, types.SeverityNone, result.Severity)
	assert.Equal(t, types.CorrelationUnrelated, result.Correlations[0].CorrelationType)
}

func TestBuild_SamePlayerStack(t *testing.T) {
	builder := NewBuilder(DefaultConfig(), nil)
	legs := []types.Leg{
		leg("1", "Jayson Tatum", "points", "over", "BOS@MIA", -110),
		leg("2", "Jayson Tatum", "rebounds", "over", "BOS@MIA", -115),
		leg("3", "Jayson Tatum", "assists", "over", "BOS@MIA", -105),
	}

	result, err := builder.Build(legs)
	require.NoError(t, err)

	for _, pair := range result.Correlations {
		assert.Equal(t, types.CorrelationSamePlayer, pair.CorrelationType)
		assert.Greater(t, pair.Correlation, 0.0)
		assert.Equal(t, types.ConfidenceLow, pair.Confidence)
		assert.Equal(t, 0, pair.SampleSize)
	}
	assert.Greater(t, result.AvgCorrelation, 0.0)
}

func TestBuild_OpposingSidesFlipSign(t *testing.T) {
	builder := NewBuilder(DefaultConfig(), nil)
	legs := []types.Leg{
		leg("1", "Jayson Tatum", "points", "over", "BOS@MIA", -110),
		leg("2", "Jayson Tatum", "rebounds", "under", "BOS@MIA", -115),
	}

	result, err := builder.Build(legs)
	require.NoError(t, err)
	assert.Less(t, result.Matrix[0][1], 0.0)

	// Average correlation uses magnitudes, so it stays positive
	assert.Greater(t, result.AvgCorrelation, 0.0)
}

func TestBuild_CoefficientClamping(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SamePlayerPropPairs = nil
	cfg.SamePlayerDefault = 1.7

	builder := NewBuilder(cfg, nil)
	legs := []types.Leg{
		leg("1", "Jayson Tatum", "points", "over", "BOS@MIA", -110),
		leg("2", "Jayson Tatum", "rebounds", "over", "BOS@MIA", -115),
	}

	result, err := builder.Build(legs)
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.Matrix[0][1])
}

func TestBuild_HistoricalSampleOverride(t *testing.T) {
	lookup := &fakeLookup{samples: map[string]HistoricalSample{
		"jayson tatum|points|rebounds": {Correlation: 0.6, SampleSize: 82},
	}}

	cfg := DefaultConfig()
	builder := NewBuilder(cfg, lookup)
	legs := []types.Leg{
		leg("1", "Jayson Tatum", "points", "over", "BOS@MIA", -110),
		leg("2", "Jayson Tatum", "rebounds", "over", "BOS@MIA", -115),
	}

	result, err := builder.Build(legs)
	require.NoError(t, err)

	pair := result.Correlations[0]
	assert.Equal(t, types.ConfidenceHigh, pair.Confidence)
	assert.Equal(t, 82, pair.SampleSize)

	// Blend of observed 0.6 and the heuristic 0.25
	expected := cfg.SampleBlendWeight*0.6 + (1-cfg.SampleBlendWeight)*0.25
	assert.InDelta(t, expected, pair.Correlation, 1e-9)
}

func TestBuild_SmallSampleKeepsHeuristic(t *testing.T) {
	lookup := &fakeLookup{samples: map[string]HistoricalSample{
		"jayson tatum|points|rebounds": {Correlation: 0.6, SampleSize: 5},
	}}

	builder := NewBuilder(DefaultConfig(), lookup)
	legs := []types.Leg{
		leg("1", "Jayson Tatum", "points", "over", "BOS@MIA", -110),
		leg("2", "Jayson Tatum", "rebounds", "over", "BOS@MIA", -115),
	}

	result, err := builder.Build(legs)
	require.NoError(t, err)

	pair := result.Correlations[0]
	assert.Equal(t, types.ConfidenceLow, pair.Confidence)
	assert.Equal(t, 0, pair.SampleSize)
	assert.InDelta(t, 0.25, pair.Correlation, 1e-9)
}

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		avg      float64
		expected string
	}{
		{0.6, types.SeverityHigh},
		{0.51, types.SeverityHigh},
		{0.5, types.SeverityMedium},
		{0.3, types.SeverityMedium},
		{0.26, types.SeverityMedium},
		{0.25, types.SeverityLow},
		{0.1, types.SeverityLow},
		{0.001, types.SeverityLow},
		{0.0, types.SeverityNone},
		{-0.1, types.SeverityNone},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("avg %.3f", tt.avg), func(t *testing.T) {
			assert.Equal(t, tt.expected, SeverityFor(tt.avg))
		})
	}
}

func BenchmarkBuildMatrix(b *testing.B) {
	builder := NewBuilder(DefaultConfig(), nil)

	legs := make([]types.Leg, 10)
	props := []string{"points", "rebounds", "assists", "threes", "pra"}
	for i := range legs {
		player := fmt.Sprintf("Player %d", i/2)
		event := fmt.Sprintf("GAME%d", i/4)
		legs[i] = leg(fmt.Sprintf("%d", i), player, props[i%len(props)], "over", event, -110)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := builder.Build(legs)
		if err != nil {
			b.Fatal(err)
		}
	}
}
