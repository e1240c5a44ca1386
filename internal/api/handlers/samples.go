package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/parlay-analytics/internal/history"
	"github.com/stitts-dev/parlay-analytics/internal/providers"
	"github.com/stitts-dev/parlay-analytics/pkg/types"
)

// SamplesHandler exposes the historical sample store and its refresh jobs
type SamplesHandler struct {
	store     *history.Store
	refresher *history.Refresher
	provider  *providers.StatsProviderClient
	logger    *logrus.Logger
}

// NewSamplesHandler creates a new samples handler
func NewSamplesHandler(
	store *history.Store,
	refresher *history.Refresher,
	provider *providers.StatsProviderClient,
	logger *logrus.Logger,
) *SamplesHandler {
	return &SamplesHandler{
		store:     store,
		refresher: refresher,
		provider:  provider,
		logger:    logger,
	}
}

// GetSampleStatus reports stored sample counts, refresh jobs, and the
// upstream provider's circuit breaker state
func (h *SamplesHandler) GetSampleStatus(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, types.ErrorResponse{
			Error: "Sample store is not configured",
			Code:  "SAMPLES_UNAVAILABLE",
		})
		return
	}

	status := gin.H{
		"timestamp": time.Now().UTC(),
	}

	count, err := h.store.CountSamples()
	if err != nil {
		h.logger.WithError(err).Warn("Failed to count stored samples")
		status["sample_count"] = "unknown"
	} else {
		status["sample_count"] = count
	}

	if h.refresher != nil {
		status["scheduler_running"] = h.refresher.IsRunning()
		status["jobs"] = h.refresher.GetJobs()
	} else {
		status["scheduler_running"] = false
	}

	if h.provider != nil {
		status["provider_breaker"] = h.provider.BreakerState()
	}

	c.JSON(http.StatusOK, status)
}

// TriggerRefresh starts an immediate sample refresh in the background
func (h *SamplesHandler) TriggerRefresh(c *gin.Context) {
	if h.refresher == nil {
		c.JSON(http.StatusServiceUnavailable, types.ErrorResponse{
			Error: "Sample refresh is not configured",
			Code:  "REFRESH_UNAVAILABLE",
		})
		return
	}

	go h.refresher.RefreshNow()

	c.JSON(http.StatusAccepted, types.SuccessResponse{
		Message: "Sample refresh started",
	})
}

// GetPairSample returns the stored sample for one player's prop pair
func (h *SamplesHandler) GetPairSample(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, types.ErrorResponse{
			Error: "Sample store is not configured",
			Code:  "SAMPLES_UNAVAILABLE",
		})
		return
	}

	sport := c.Query("sport")
	player := c.Query("player")
	propA := c.Query("prop_a")
	propB := c.Query("prop_b")
	if sport == "" || player == "" || propA == "" || propB == "" {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error: "sport, player, prop_a, and prop_b query parameters are required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	sample, err := h.store.GetSample(sport, player, propA, propB)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load pair sample")
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{
			Error: "Failed to load pair sample",
			Code:  "SAMPLES_ERROR",
		})
		return
	}
	if sample == nil {
		c.JSON(http.StatusNotFound, types.ErrorResponse{
			Error: "No sample recorded for this prop pair",
			Code:  "SAMPLE_NOT_FOUND",
		})
		return
	}

	c.JSON(http.StatusOK, sample)
}
