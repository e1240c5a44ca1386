package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/parlay-analytics/internal/correlation"
	"github.com/stitts-dev/parlay-analytics/internal/odds"
	"github.com/stitts-dev/parlay-analytics/internal/simulator"
	"github.com/stitts-dev/parlay-analytics/pkg/types"
)

var (
	// ErrNoLegs is returned when an analysis request carries no legs
	ErrNoLegs = errors.New("at least one leg is required")
	// ErrTooManyLegs is returned when a parlay exceeds the configured leg limit
	ErrTooManyLegs = errors.New("parlay exceeds the maximum number of legs")
	// ErrDuplicateLeg is returned when two legs share the same description
	ErrDuplicateLeg = errors.New("parlay contains duplicate legs")
	// ErrInvalidSide is returned when a leg side is neither over nor under
	ErrInvalidSide = errors.New("leg side must be over or under")
	// ErrEmptyDescription is returned when a leg has no description
	ErrEmptyDescription = errors.New("leg description is required")
)

// Params bounds analysis work independently of the heuristic configuration
type Params struct {
	MaxLegs           int
	DefaultIterations int
	MinIterations     int
	MaxIterations     int
}

// DefaultParams returns the limits used when no overrides are configured
func DefaultParams() Params {
	return Params{
		MaxLegs:           10,
		DefaultIterations: 10000,
		MinIterations:     1000,
		MaxIterations:     100000,
	}
}

// SampleResolver prefetches historical correlation samples for a leg set.
// Resolution happens before any matrix work so the builder itself never
// performs I/O; implementations recover their own failures and return a
// nil or empty lookup when no samples are available.
type SampleResolver interface {
	Resolve(ctx context.Context, legs []types.Leg) correlation.SampleLookup
}

// Analyzer runs the full parlay analysis pipeline: leg validation, odds
// arithmetic, correlation matrix construction, and joint probability
// estimation. Each call operates on its own inputs and returns a fresh
// result, so a single Analyzer is safe for concurrent use.
type Analyzer struct {
	cfg       correlation.Config
	params    Params
	resolver  SampleResolver
	estimator *simulator.Estimator
	logger    *logrus.Logger
}

// NewAnalyzer creates an analyzer. The resolver may be nil, in which case
// every pairwise correlation falls back to the heuristic defaults.
func NewAnalyzer(cfg correlation.Config, resolver SampleResolver, params Params, logger *logrus.Logger) *Analyzer {
	return &Analyzer{
		cfg:       cfg,
		params:    params,
		resolver:  resolver,
		estimator: simulator.NewEstimator(cfg),
		logger:    logger,
	}
}

// ValidateLegs rejects leg lists that cannot be analyzed. Failures here map
// to invalid input at the API boundary; everything past validation is
// recovered internally with fallbacks instead of surfacing errors.
func (a *Analyzer) ValidateLegs(legs []types.Leg) error {
	if len(legs) == 0 {
		return ErrNoLegs
	}
	if a.params.MaxLegs > 0 && len(legs) > a.params.MaxLegs {
		return fmt.Errorf("%w: got %d, limit %d", ErrTooManyLegs, len(legs), a.params.MaxLegs)
	}

	seen := make(map[string]int, len(legs))
	for i, leg := range legs {
		desc := strings.TrimSpace(leg.Description)
		if desc == "" {
			return fmt.Errorf("%w: leg %d", ErrEmptyDescription, i)
		}
		if leg.Odds == 0 {
			return fmt.Errorf("leg %d (%s): %w", i, desc, odds.ErrZeroOdds)
		}
		if leg.Side != "" && leg.Side != types.SideOver && leg.Side != types.SideUnder {
			return fmt.Errorf("%w: leg %d has side %q", ErrInvalidSide, i, leg.Side)
		}

		key := strings.ToLower(desc)
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("%w: legs %d and %d", ErrDuplicateLeg, prev, i)
		}
		seen[key] = i
	}

	return nil
}

// Analyze produces the complete analysis for a parlay. A single leg is
// valid input; it yields the leg's own pricing with no correlation work.
// The progress callback is optional and only fires on sampled runs.
func (a *Analyzer) Analyze(ctx context.Context, legs []types.Leg, opts types.AnalysisOptions, progress func(done, total int, hitRate float64)) (*types.AnalysisResponse, error) {
	started := time.Now()

	if err := a.ValidateLegs(legs); err != nil {
		return nil, err
	}

	probs, err := odds.ImpliedProbabilities(legs)
	if err != nil {
		return nil, err
	}

	breakdowns := make([]types.LegBreakdown, len(legs))
	for i, leg := range legs {
		decimal, err := odds.AmericanToDecimal(leg.Odds)
		if err != nil {
			return nil, err
		}
		breakdowns[i] = types.LegBreakdown{
			Leg:                leg,
			ImpliedProbability: roundTo(probs[i], 4),
			DecimalOdds:        roundTo(decimal, 4),
		}
	}

	combinedAmerican, combinedDecimal, err := odds.CombineOdds(legs)
	if err != nil {
		return nil, err
	}

	var matrix *types.CorrelationMatrix
	if len(legs) >= 2 {
		var lookup correlation.SampleLookup
		if a.resolver != nil {
			lookup = a.resolver.Resolve(ctx, legs)
		}
		matrix, err = correlation.NewBuilder(a.cfg, lookup).Build(legs)
		if err != nil {
			return nil, err
		}
		matrix.AvgCorrelation = roundTo(matrix.AvgCorrelation, 3)
	}

	var sampleOpts *simulator.SampleOptions
	if opts.UseSampling && matrix != nil {
		sampleOpts = &simulator.SampleOptions{
			Iterations: a.clampIterations(opts.Iterations),
			Progress:   progress,
		}
		if opts.Seed != nil {
			sampleOpts.Seed = *opts.Seed
		}
	}

	estimate, err := a.estimator.Estimate(legs, probs, matrix, sampleOpts)
	if err != nil {
		return nil, err
	}

	var payout *types.PayoutQuote
	if opts.Stake != "" {
		payout, err = odds.QuotePayout(opts.Stake, legs)
		if err != nil {
			return nil, err
		}
	}

	warnings := estimate.Warnings
	if warnings == nil {
		warnings = []string{}
	}

	response := &types.AnalysisResponse{
		AnalysisID: uuid.New().String(),
		Legs:       breakdowns,
		Estimate: types.ParlayProbabilityEstimate{
			IndependentProbability:         roundTo(estimate.IndependentProbability, 4),
			EstimatedCorrelatedProbability: roundTo(estimate.CorrelatedProbability, 4),
			CorrelationAdjustment:          roundTo(estimate.Adjustment, 4),
			CombinedOdds:                   combinedAmerican,
			CombinedDecimalOdds:            roundTo(combinedDecimal, 4),
			Method:                         estimate.Method,
			Warnings:                       warnings,
		},
		Matrix:     matrix,
		Payout:     payout,
		ComputedAt: time.Now().UTC(),
	}

	fields := logrus.Fields{
		"analysis_id": response.AnalysisID,
		"num_legs":    len(legs),
		"method":      estimate.Method,
		"duration_ms": time.Since(started).Milliseconds(),
	}
	if matrix != nil {
		fields["severity"] = matrix.Severity
	}
	a.logger.WithFields(fields).Info("Parlay analysis completed")

	return response, nil
}

// Quote combines odds without any correlation work, for callers that only
// need pricing
func (a *Analyzer) Quote(legs []types.Leg, stake string) (*types.QuoteResponse, error) {
	if err := a.ValidateLegs(legs); err != nil {
		return nil, err
	}

	breakdowns := make([]types.LegBreakdown, len(legs))
	for i, leg := range legs {
		prob, err := odds.AmericanToImplied(leg.Odds)
		if err != nil {
			return nil, err
		}
		decimal, err := odds.AmericanToDecimal(leg.Odds)
		if err != nil {
			return nil, err
		}
		breakdowns[i] = types.LegBreakdown{
			Leg:                leg,
			ImpliedProbability: roundTo(prob, 4),
			DecimalOdds:        roundTo(decimal, 4),
		}
	}

	combinedAmerican, combinedDecimal, err := odds.CombineOdds(legs)
	if err != nil {
		return nil, err
	}
	winProbability, err := odds.CombinedWinProbability(legs)
	if err != nil {
		return nil, err
	}

	var payout *types.PayoutQuote
	if stake != "" {
		payout, err = odds.QuotePayout(stake, legs)
		if err != nil {
			return nil, err
		}
	}

	return &types.QuoteResponse{
		Legs:                breakdowns,
		CombinedOdds:        combinedAmerican,
		CombinedDecimalOdds: roundTo(combinedDecimal, 4),
		WinProbability:      roundTo(winProbability, 4),
		Payout:              payout,
	}, nil
}

// PreviewPair classifies and scores a single leg pair without building a
// full matrix. Used by the correlation inspection endpoint.
func (a *Analyzer) PreviewPair(ctx context.Context, first, second types.Leg) (*types.PairCorrelation, error) {
	pair := []types.Leg{first, second}
	if err := a.ValidateLegs(pair); err != nil {
		return nil, err
	}

	var lookup correlation.SampleLookup
	if a.resolver != nil {
		lookup = a.resolver.Resolve(ctx, pair)
	}
	matrix, err := correlation.NewBuilder(a.cfg, lookup).Build(pair)
	if err != nil {
		return nil, err
	}
	return &matrix.Correlations[0], nil
}

// clampIterations bounds a requested iteration count, substituting the
// default when the caller did not ask for a specific count
func (a *Analyzer) clampIterations(requested int) int {
	if requested <= 0 {
		return a.params.DefaultIterations
	}
	if requested < a.params.MinIterations {
		return a.params.MinIterations
	}
	if requested > a.params.MaxIterations {
		return a.params.MaxIterations
	}
	return requested
}

func roundTo(value float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(value*scale) / scale
}
