package types

import "time"

// AnalysisOptions controls how the joint probability is estimated.
// ProgressChannel names a client-chosen WebSocket channel to receive
// sampling progress; it never affects the computed result.
type AnalysisOptions struct {
	UseSampling     bool   `json:"use_sampling"`
	Iterations      int    `json:"iterations,omitempty"`
	Seed            *int64 `json:"seed,omitempty"`
	Stake           string `json:"stake,omitempty"`
	ProgressChannel string `json:"progress_channel,omitempty"`
}

// AnalysisRequest represents a parlay analysis request
type AnalysisRequest struct {
	Legs    []Leg           `json:"legs" binding:"required"`
	Options AnalysisOptions `json:"options"`
}

// AnalysisResponse represents a completed parlay analysis
type AnalysisResponse struct {
	AnalysisID string                    `json:"analysis_id"`
	Legs       []LegBreakdown            `json:"legs"`
	Estimate   ParlayProbabilityEstimate `json:"estimate"`
	Matrix     *CorrelationMatrix        `json:"correlation_matrix,omitempty"`
	Payout     *PayoutQuote              `json:"payout,omitempty"`
	FromCache  bool                      `json:"from_cache"`
	ComputedAt time.Time                 `json:"computed_at"`
}

// QuoteRequest represents an odds-only combination request
type QuoteRequest struct {
	Legs  []Leg  `json:"legs" binding:"required"`
	Stake string `json:"stake,omitempty"`
}

// PairPreviewRequest asks for the correlation between two legs
type PairPreviewRequest struct {
	First  Leg `json:"first" binding:"required"`
	Second Leg `json:"second" binding:"required"`
}

// QuoteResponse represents combined parlay pricing without correlation work
type QuoteResponse struct {
	Legs                []LegBreakdown `json:"legs"`
	CombinedOdds        int            `json:"combined_odds"`
	CombinedDecimalOdds float64        `json:"combined_decimal_odds"`
	WinProbability      float64        `json:"win_probability"`
	Payout              *PayoutQuote   `json:"payout,omitempty"`
}

// ProgressUpdate represents a progress update for a sampled analysis run
type ProgressUpdate struct {
	Type       string    `json:"type"`
	AnalysisID string    `json:"analysis_id"`
	Progress   float64   `json:"progress"` // 0.0 to 1.0
	DrawsDone  int       `json:"draws_done"`
	TotalDraws int       `json:"total_draws"`
	HitRate    float64   `json:"hit_rate"`
	Message    string    `json:"message,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// HealthStatus represents the health status of the service
type HealthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// SuccessResponse for API endpoints
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
