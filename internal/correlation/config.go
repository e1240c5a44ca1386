package correlation

// Config holds every heuristic coefficient and threshold used during
// correlation analysis. The values are placeholder estimates chosen for
// plausible behavior, not measured from historical outcome data; callers
// and tests can override any of them.
type Config struct {
	// SamePlayerPropPairs maps prop-type pairs for one player to a base
	// coefficient. Missing pairs fall back to SamePlayerDefault.
	SamePlayerPropPairs map[string]map[string]float64
	SamePlayerDefault   float64

	// Base coefficients for legs linked only through their game
	SameGamePace  float64
	SameGameOther float64

	// PaceProps marks prop types driven primarily by game pace
	PaceProps map[string]bool

	// Historical sample handling
	MinSampleSize     int
	SampleBlendWeight float64

	// HighPairThreshold is the absolute pairwise correlation above which a
	// warning names the two legs
	HighPairThreshold float64

	// EigenvalueFloor replaces negative eigenvalues during PSD repair
	EigenvalueFloor float64

	// AdjustmentWeight scales the closed-form probability adjustment per
	// additional leg
	AdjustmentWeight float64
}

// DefaultConfig returns the standard heuristic coefficients
func DefaultConfig() Config {
	return Config{
		SamePlayerPropPairs: map[string]map[string]float64{
			"points":   {"points": 0.85, "rebounds": 0.25, "assists": 0.30, "threes": 0.55, "pra": 0.70, "steals": 0.10, "blocks": 0.10},
			"rebounds": {"points": 0.25, "rebounds": 0.85, "assists": 0.20, "threes": 0.05, "pra": 0.60, "steals": 0.05, "blocks": 0.25},
			"assists":  {"points": 0.30, "rebounds": 0.20, "assists": 0.85, "threes": 0.15, "pra": 0.55, "steals": 0.15, "blocks": 0.05},
			"threes":   {"points": 0.55, "rebounds": 0.05, "assists": 0.15, "threes": 0.85, "pra": 0.45},
			"pra":      {"points": 0.70, "rebounds": 0.60, "assists": 0.55, "threes": 0.45, "pra": 0.85},
			"steals":   {"points": 0.10, "rebounds": 0.05, "assists": 0.15, "steals": 0.85, "blocks": 0.15},
			"blocks":   {"points": 0.10, "rebounds": 0.25, "assists": 0.05, "steals": 0.15, "blocks": 0.85},
		},
		SamePlayerDefault: 0.40,
		SameGamePace:      0.20,
		SameGameOther:     0.10,
		PaceProps: map[string]bool{
			"points":  true,
			"threes":  true,
			"assists": true,
			"pra":     true,
		},
		MinSampleSize:     25,
		SampleBlendWeight: 0.7,
		HighPairThreshold: 0.5,
		EigenvalueFloor:   1e-6,
		AdjustmentWeight:  0.35,
	}
}

// samePlayerBase looks up the base coefficient for two prop types on one player
func (c Config) samePlayerBase(propA, propB string) float64 {
	if corr, exists := c.SamePlayerPropPairs[propA][propB]; exists {
		return corr
	}
	if corr, exists := c.SamePlayerPropPairs[propB][propA]; exists {
		return corr
	}
	return c.SamePlayerDefault
}
