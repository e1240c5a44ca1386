package simulator

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/stitts-dev/parlay-analytics/internal/correlation"
	"github.com/stitts-dev/parlay-analytics/pkg/types"
)

// WarningSimplifiedEstimate is appended when sampling was requested but the
// matrix could not be decomposed
const WarningSimplifiedEstimate = "correlation sampling unavailable; simplified estimate used"

// Estimate is the joint probability result for a parlay
type Estimate struct {
	IndependentProbability float64
	CorrelatedProbability  float64
	Adjustment             float64
	Method                 string
	Repaired               bool
	Warnings               []string
}

type jointSampler interface {
	Sample(matrix [][]float64, legProbs []float64, opts SampleOptions) (*SampleOutcome, error)
}

// Estimator turns a correlation matrix and per-leg implied probabilities
// into a joint win probability
type Estimator struct {
	cfg     correlation.Config
	sampler jointSampler
}

// NewEstimator creates an estimator with the given heuristic configuration
func NewEstimator(cfg correlation.Config) *Estimator {
	return &Estimator{
		cfg:     cfg,
		sampler: NewCopulaSampler(cfg),
	}
}

// Estimate computes the correlated joint probability for the legs. The
// matrix may be nil for parlays of fewer than two legs, in which case the
// independence product is returned unadjusted.
func (e *Estimator) Estimate(legs []types.Leg, legProbs []float64, matrix *types.CorrelationMatrix, opts *SampleOptions) (*Estimate, error) {
	if len(legs) != len(legProbs) {
		return nil, errors.New("legs and probabilities must have equal length")
	}

	independent := 1.0
	for _, p := range legProbs {
		independent *= p
	}

	if matrix == nil {
		return &Estimate{
			IndependentProbability: independent,
			CorrelatedProbability:  independent,
			Adjustment:             1.0,
			Method:                 types.MethodNotApplicable,
		}, nil
	}

	warnings := pairWarnings(legs, matrix, e.cfg.HighPairThreshold)

	if opts != nil {
		outcome, err := e.sampler.Sample(matrix.Matrix, legProbs, *opts)
		if err == nil {
			return &Estimate{
				IndependentProbability: independent,
				CorrelatedProbability:  outcome.Probability,
				Adjustment:             adjustmentRatio(outcome.Probability, independent),
				Method:                 types.MethodCopulaSampling,
				Repaired:               outcome.Repaired,
				Warnings:               warnings,
			}, nil
		}
		if !errors.Is(err, ErrDecompositionFailed) {
			return nil, err
		}
		warnings = append(warnings, WarningSimplifiedEstimate)
	}

	correlated := e.adjustProbability(independent, matrix, legProbs)
	return &Estimate{
		IndependentProbability: independent,
		CorrelatedProbability:  correlated,
		Adjustment:             adjustmentRatio(correlated, independent),
		Method:                 types.MethodClosedForm,
		Warnings:               warnings,
	}, nil
}

// adjustProbability applies the closed-form multiplicative adjustment. The
// signed mean of the pairwise coefficients sets the direction, and the
// effect compounds with each additional leg. The result can never exceed
// the weakest leg's own probability.
func (e *Estimator) adjustProbability(independent float64, matrix *types.CorrelationMatrix, legProbs []float64) float64 {
	signedMean := 0.0
	for _, pair := range matrix.Correlations {
		signedMean += pair.Correlation
	}
	signedMean /= float64(len(matrix.Correlations))

	n := len(legProbs)
	factor := 1.0 + signedMean*e.cfg.AdjustmentWeight*float64(n-1)
	adjusted := independent * factor

	maxProb := 1.0
	for _, p := range legProbs {
		maxProb = math.Min(maxProb, p)
	}

	return math.Max(0.0, math.Min(maxProb, adjusted))
}

func adjustmentRatio(correlated, independent float64) float64 {
	if independent <= 0 {
		return 1.0
	}
	return correlated / independent
}

// pairWarnings flags strongly correlated pairs and players carrying more
// than one leg
func pairWarnings(legs []types.Leg, matrix *types.CorrelationMatrix, highThreshold float64) []string {
	warnings := make([]string, 0)

	for _, pair := range matrix.Correlations {
		if math.Abs(pair.Correlation) > highThreshold {
			warnings = append(warnings, fmt.Sprintf(
				"high correlation (%.2f) between %q and %q",
				pair.Correlation, legs[pair.LegIndex1].Description, legs[pair.LegIndex2].Description))
		}
	}

	stacked := make(map[string]int)
	for _, pair := range matrix.Correlations {
		if pair.CorrelationType != types.CorrelationSamePlayer {
			continue
		}
		name := legs[pair.LegIndex1].PlayerName
		if name == "" {
			name = legs[pair.LegIndex2].PlayerName
		}
		stacked[strings.TrimSpace(name)]++
	}

	players := make([]string, 0, len(stacked))
	for name := range stacked {
		players = append(players, name)
	}
	sort.Strings(players)
	for _, name := range players {
		warnings = append(warnings, fmt.Sprintf("multiple legs depend on %s", name))
	}

	return warnings
}
