package simulator

import (
	"errors"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/stitts-dev/parlay-analytics/internal/correlation"
)

// ErrDecompositionFailed indicates the correlation matrix could not be
// factorized even after PSD repair. Callers fall back to the closed-form
// estimate.
var ErrDecompositionFailed = errors.New("correlation matrix decomposition failed after repair")

// SampleOptions controls a copula sampling run
type SampleOptions struct {
	Iterations       int
	Seed             int64
	ProgressInterval int
	Progress         func(done, total int, hitRate float64)
}

// SampleOutcome is the result of a copula sampling run
type SampleOutcome struct {
	Probability float64
	Iterations  int
	Repaired    bool
}

// CopulaSampler estimates joint hit probability by drawing correlated
// standard-normal outcomes through the Cholesky factor of the correlation
// matrix and thresholding each component at the leg's implied probability.
type CopulaSampler struct {
	cfg correlation.Config
}

// NewCopulaSampler creates a sampler with the given heuristic configuration
func NewCopulaSampler(cfg correlation.Config) *CopulaSampler {
	return &CopulaSampler{cfg: cfg}
}

// Sample draws opts.Iterations joint outcomes and returns the fraction in
// which every leg hit. A fixed seed makes the run deterministic.
func (s *CopulaSampler) Sample(matrix [][]float64, legProbs []float64, opts SampleOptions) (*SampleOutcome, error) {
	n := len(legProbs)
	sym := correlation.ToSymDense(matrix)

	repaired := false
	var chol mat.Cholesky
	if !chol.Factorize(sym) {
		fixed, err := correlation.NearestPSD(sym, s.cfg.EigenvalueFloor)
		if err != nil {
			return nil, ErrDecompositionFailed
		}
		if !chol.Factorize(fixed) {
			return nil, ErrDecompositionFailed
		}
		repaired = true
	}

	lower := mat.NewTriDense(n, mat.Lower, nil)
	chol.LTo(lower)

	// Each leg hits when its correlated normal draw falls below the
	// inverse-CDF threshold of its implied probability
	thresholds := make([]float64, n)
	for i, p := range legProbs {
		thresholds[i] = distuv.UnitNormal.Quantile(p)
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	iterations := opts.Iterations
	if iterations <= 0 {
		iterations = 10000
	}
	progressInterval := opts.ProgressInterval
	if progressInterval <= 0 {
		progressInterval = 1000
	}

	draws := make([]float64, n)
	hits := 0
	for iter := 1; iter <= iterations; iter++ {
		for i := range draws {
			draws[i] = rng.NormFloat64()
		}

		allHit := true
		for i := 0; i < n; i++ {
			correlated := 0.0
			for j := 0; j <= i; j++ {
				correlated += lower.At(i, j) * draws[j]
			}
			if correlated >= thresholds[i] {
				allHit = false
				break
			}
		}
		if allHit {
			hits++
		}

		if opts.Progress != nil && iter%progressInterval == 0 {
			opts.Progress(iter, iterations, float64(hits)/float64(iter))
		}
	}

	return &SampleOutcome{
		Probability: float64(hits) / float64(iterations),
		Iterations:  iterations,
		Repaired:    repaired,
	}, nil
}
