package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/parlay-analytics/internal/analysis"
	"github.com/stitts-dev/parlay-analytics/internal/odds"
	"github.com/stitts-dev/parlay-analytics/internal/websocket"
	"github.com/stitts-dev/parlay-analytics/pkg/cache"
	"github.com/stitts-dev/parlay-analytics/pkg/config"
	"github.com/stitts-dev/parlay-analytics/pkg/types"
)

// AnalysisHandler handles parlay analysis requests
type AnalysisHandler struct {
	analyzer *analysis.Analyzer
	cache    *cache.AnalysisCacheService
	wsHub    *websocket.Hub
	config   *config.Config
	logger   *logrus.Logger
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(
	analyzer *analysis.Analyzer,
	cacheService *cache.AnalysisCacheService,
	wsHub *websocket.Hub,
	cfg *config.Config,
	logger *logrus.Logger,
) *AnalysisHandler {
	return &AnalysisHandler{
		analyzer: analyzer,
		cache:    cacheService,
		wsHub:    wsHub,
		config:   cfg,
		logger:   logger,
	}
}

// AnalyzeParlay runs the full correlation-aware analysis for a parlay.
// Identical requests are served from cache when available.
func (h *AnalysisHandler) AnalyzeParlay(c *gin.Context) {
	var req types.AnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Warn("Invalid analysis request")
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error: "Invalid request format: " + err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return
	}

	ctx := c.Request.Context()
	cacheKey := cache.AnalysisKey(req.Legs, req.Options)

	if h.cache != nil {
		if cached, err := h.cache.GetAnalysis(ctx, cacheKey); err == nil && cached != nil {
			cached.FromCache = true
			h.logger.WithField("cache_key", cacheKey).Debug("Serving analysis from cache")
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	progress := h.progressPublisher(req.Options)

	result, err := h.analyzer.Analyze(ctx, req.Legs, req.Options, progress)
	if err != nil {
		status, code := classifyAnalysisError(err)
		h.logger.WithError(err).WithField("code", code).Warn("Parlay analysis failed")
		c.JSON(status, types.ErrorResponse{
			Error: err.Error(),
			Code:  code,
		})
		return
	}

	if h.wsHub != nil && req.Options.ProgressChannel != "" {
		h.wsHub.BroadcastToChannel(req.Options.ProgressChannel, types.ProgressUpdate{
			Type:       "analysis_complete",
			AnalysisID: result.AnalysisID,
			Progress:   1.0,
			HitRate:    result.Estimate.EstimatedCorrelatedProbability,
			Message:    "analysis complete",
			Timestamp:  time.Now().UTC(),
		})
	}

	if h.cache != nil {
		if err := h.cache.SetAnalysis(ctx, cacheKey, result, h.config.AnalysisCacheTTL); err != nil {
			h.logger.WithError(err).Warn("Failed to cache analysis result")
		}
	}

	c.JSON(http.StatusOK, result)
}

// QuoteParlay combines leg odds without any correlation work
func (h *AnalysisHandler) QuoteParlay(c *gin.Context) {
	var req types.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error: "Invalid request format: " + err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return
	}

	result, err := h.analyzer.Quote(req.Legs, req.Stake)
	if err != nil {
		status, code := classifyAnalysisError(err)
		c.JSON(status, types.ErrorResponse{
			Error: err.Error(),
			Code:  code,
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// PreviewPairCorrelation reports the estimated correlation between two legs
func (h *AnalysisHandler) PreviewPairCorrelation(c *gin.Context) {
	var req types.PairPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error: "Invalid request format: " + err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return
	}

	pair, err := h.analyzer.PreviewPair(c.Request.Context(), req.First, req.Second)
	if err != nil {
		status, code := classifyAnalysisError(err)
		c.JSON(status, types.ErrorResponse{
			Error: err.Error(),
			Code:  code,
		})
		return
	}

	c.JSON(http.StatusOK, pair)
}

// GetCacheStatus reports analysis cache health and entry counts
func (h *AnalysisHandler) GetCacheStatus(c *gin.Context) {
	if h.cache == nil {
		c.JSON(http.StatusServiceUnavailable, types.ErrorResponse{
			Error: "Analysis cache is not configured",
			Code:  "CACHE_UNAVAILABLE",
		})
		return
	}

	c.JSON(http.StatusOK, h.cache.GetStatus(c.Request.Context()))
}

// progressPublisher returns a progress callback that forwards sampling
// progress to the requested WebSocket channel, or nil when no channel
// was requested.
func (h *AnalysisHandler) progressPublisher(opts types.AnalysisOptions) func(done, total int, hitRate float64) {
	if h.wsHub == nil || opts.ProgressChannel == "" {
		return nil
	}

	channel := opts.ProgressChannel
	return func(done, total int, hitRate float64) {
		fraction := 0.0
		if total > 0 {
			fraction = float64(done) / float64(total)
		}
		h.wsHub.BroadcastToChannel(channel, types.ProgressUpdate{
			Type:       "analysis_progress",
			Progress:   fraction,
			DrawsDone:  done,
			TotalDraws: total,
			HitRate:    hitRate,
			Timestamp:  time.Now().UTC(),
		})
	}
}

// classifyAnalysisError maps analyzer errors to an HTTP status and error code
func classifyAnalysisError(err error) (int, string) {
	switch {
	case errors.Is(err, analysis.ErrNoLegs),
		errors.Is(err, analysis.ErrTooManyLegs),
		errors.Is(err, analysis.ErrDuplicateLeg),
		errors.Is(err, analysis.ErrInvalidSide),
		errors.Is(err, analysis.ErrEmptyDescription),
		errors.Is(err, odds.ErrZeroOdds),
		errors.Is(err, odds.ErrNoLegs):
		return http.StatusBadRequest, "INVALID_LEGS"
	case errors.Is(err, odds.ErrInvalidStake):
		return http.StatusBadRequest, "INVALID_STAKE"
	default:
		return http.StatusInternalServerError, "ANALYSIS_ERROR"
	}
}
