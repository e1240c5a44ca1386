package types

// Sport represents different sports types
type Sport string

const (
	SportNBA Sport = "nba"
	SportNFL Sport = "nfl"
	SportMLB Sport = "mlb"
	SportNHL Sport = "nhl"
)

// Side represents which side of a proposition a leg takes
const (
	SideOver  = "over"
	SideUnder = "under"
)

// Leg represents one selection within a parlay. ImpliedProbability is
// always derived from Odds at analysis time, never stored on the leg.
type Leg struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Odds        int    `json:"odds"`
	PlayerName  string `json:"player_name,omitempty"`
	PropType    string `json:"prop_type,omitempty"`
	Side        string `json:"side,omitempty"`
	Sport       Sport  `json:"sport,omitempty"`
	EventID     string `json:"event_id,omitempty"`
}

// CorrelationType classifies why two legs are expected to move together
type CorrelationType string

const (
	CorrelationSamePlayer    CorrelationType = "same_player"
	CorrelationSameGamePace  CorrelationType = "same_game_pace"
	CorrelationSameGameOther CorrelationType = "same_game_other"
	CorrelationUnrelated     CorrelationType = "unrelated"
)

// Confidence levels for a pairwise correlation estimate
const (
	ConfidenceLow  = "low"
	ConfidenceHigh = "high"
)

// Severity labels for the matrix-wide average correlation
const (
	SeverityNone   = "none"
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// PairCorrelation represents the estimated correlation for one leg pair (i < j)
type PairCorrelation struct {
	LegIndex1       int             `json:"leg_index_1"`
	LegIndex2       int             `json:"leg_index_2"`
	Correlation     float64         `json:"correlation"`
	CorrelationType CorrelationType `json:"correlation_type"`
	Confidence      string          `json:"confidence"`
	SampleSize      int             `json:"sample_size"`
}

// CorrelationMatrix represents the pairwise correlation structure of a parlay.
// Matrix is symmetric with a unit diagonal; Correlations holds the
// N*(N-1)/2 off-diagonal pairs; AvgCorrelation is the mean of absolute
// off-diagonal values.
type CorrelationMatrix struct {
	Matrix         [][]float64       `json:"matrix"`
	Correlations   []PairCorrelation `json:"correlations"`
	AvgCorrelation float64           `json:"avg_correlation"`
	Severity       string            `json:"severity"`
}

// Estimation methods reported on a ParlayProbabilityEstimate
const (
	MethodClosedForm     = "closed_form"
	MethodCopulaSampling = "copula_sampling"
	MethodNotApplicable  = "not_applicable"
)

// ParlayProbabilityEstimate is the analysis summary for a parlay
type ParlayProbabilityEstimate struct {
	IndependentProbability         float64  `json:"independent_probability"`
	EstimatedCorrelatedProbability float64  `json:"estimated_correlated_probability"`
	CorrelationAdjustment          float64  `json:"correlation_adjustment"`
	CombinedOdds                   int      `json:"combined_odds"`
	CombinedDecimalOdds            float64  `json:"combined_decimal_odds"`
	Method                         string   `json:"method"`
	Warnings                       []string `json:"warnings"`
}

// LegBreakdown echoes a leg back with its derived pricing
type LegBreakdown struct {
	Leg                Leg     `json:"leg"`
	ImpliedProbability float64 `json:"implied_probability"`
	DecimalOdds        float64 `json:"decimal_odds"`
}

// PayoutQuote represents the potential return for a stake on a parlay.
// Amounts are decimal strings rounded to cents.
type PayoutQuote struct {
	Stake           string `json:"stake"`
	PotentialPayout string `json:"potential_payout"`
	PotentialProfit string `json:"potential_profit"`
}
