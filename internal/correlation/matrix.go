package correlation

import (
	"errors"
	"math"

	"github.com/stitts-dev/parlay-analytics/pkg/types"
)

// ErrInsufficientLegs indicates correlation analysis was requested for fewer
// than two legs. Callers treat this as "not applicable" rather than a failure.
var ErrInsufficientLegs = errors.New("correlation analysis requires at least 2 legs")

// HistoricalSample is an observed co-occurrence measurement for a
// player/prop pair
type HistoricalSample struct {
	Correlation float64
	SampleSize  int
}

// SampleLookup resolves historical samples for same-player leg pairs.
// Implementations must be fully resolved before analysis begins; the
// builder never performs I/O.
type SampleLookup interface {
	Sample(a, b types.Leg) (HistoricalSample, bool)
}

// Builder assembles correlation matrices for parlays
type Builder struct {
	cfg    Config
	lookup SampleLookup
}

// NewBuilder creates a matrix builder. lookup may be nil, in which case
// every pair uses heuristic coefficients with low confidence.
func NewBuilder(cfg Config, lookup SampleLookup) *Builder {
	return &Builder{
		cfg:    cfg,
		lookup: lookup,
	}
}

// Build estimates a pairwise correlation for every leg pair and assembles
// the symmetric matrix with a unit diagonal
func (b *Builder) Build(legs []types.Leg) (*types.CorrelationMatrix, error) {
	if len(legs) < 2 {
		return nil, ErrInsufficientLegs
	}

	n := len(legs)
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
		matrix[i][i] = 1.0
	}

	pairs := make([]types.PairCorrelation, 0, n*(n-1)/2)
	totalMagnitude := 0.0

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pair := b.pairCorrelation(i, j, legs[i], legs[j])
			matrix[i][j] = pair.Correlation
			matrix[j][i] = pair.Correlation
			totalMagnitude += math.Abs(pair.Correlation)
			pairs = append(pairs, pair)
		}
	}

	avg := totalMagnitude / float64(len(pairs))

	return &types.CorrelationMatrix{
		Matrix:         matrix,
		Correlations:   pairs,
		AvgCorrelation: avg,
		Severity:       SeverityFor(avg),
	}, nil
}

// pairCorrelation estimates the coefficient for one leg pair
func (b *Builder) pairCorrelation(i, j int, first, second types.Leg) types.PairCorrelation {
	ctype := ClassifyPair(first, second, b.cfg)

	coeff := 0.0
	switch ctype {
	case types.CorrelationSamePlayer:
		coeff = b.cfg.samePlayerBase(normalize(first.PropType), normalize(second.PropType))
		if opposingSides(first, second) {
			coeff = -coeff
		}
	case types.CorrelationSameGamePace:
		coeff = b.cfg.SameGamePace
		if opposingSides(first, second) {
			coeff = -coeff
		}
	case types.CorrelationSameGameOther:
		coeff = b.cfg.SameGameOther
	}

	confidence := types.ConfidenceLow
	sampleSize := 0

	// An observed sample overrides the heuristic for same-player pairs
	if ctype == types.CorrelationSamePlayer && b.lookup != nil {
		if sample, ok := b.lookup.Sample(first, second); ok && sample.SampleSize >= b.cfg.MinSampleSize {
			observed := sample.Correlation
			if opposingSides(first, second) {
				observed = -observed
			}
			coeff = b.cfg.SampleBlendWeight*observed + (1-b.cfg.SampleBlendWeight)*coeff
			confidence = types.ConfidenceHigh
			sampleSize = sample.SampleSize
		}
	}

	// Cap correlation between -1 and 1
	coeff = math.Max(-1.0, math.Min(1.0, coeff))

	return types.PairCorrelation{
		LegIndex1:       i,
		LegIndex2:       j,
		Correlation:     coeff,
		CorrelationType: ctype,
		Confidence:      confidence,
		SampleSize:      sampleSize,
	}
}

// SeverityFor maps an average correlation magnitude to its severity label
func SeverityFor(avgCorrelation float64) string {
	switch {
	case avgCorrelation > 0.5:
		return types.SeverityHigh
	case avgCorrelation > 0.25:
		return types.SeverityMedium
	case avgCorrelation > 0:
		return types.SeverityLow
	default:
		return types.SeverityNone
	}
}
