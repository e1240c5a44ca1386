package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/parlay-analytics/internal/analysis"
	"github.com/stitts-dev/parlay-analytics/internal/api/handlers"
	"github.com/stitts-dev/parlay-analytics/internal/api/middleware"
	"github.com/stitts-dev/parlay-analytics/internal/correlation"
	"github.com/stitts-dev/parlay-analytics/internal/history"
	"github.com/stitts-dev/parlay-analytics/internal/providers"
	"github.com/stitts-dev/parlay-analytics/internal/websocket"
	"github.com/stitts-dev/parlay-analytics/pkg/cache"
	"github.com/stitts-dev/parlay-analytics/pkg/config"
	"github.com/stitts-dev/parlay-analytics/pkg/database"
	"github.com/stitts-dev/parlay-analytics/pkg/logger"
	"github.com/stitts-dev/parlay-analytics/pkg/types"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Initialize structured logger with service context
	structuredLogger := logger.InitLogger("info", cfg.IsDevelopment())
	logger.WithService("parlay-analytics").WithFields(logrus.Fields{
		"version":     "1.0.0",
		"environment": cfg.Env,
		"port":        cfg.Port,
	}).Info("Starting Parlay Analytics Service")

	// Setup Gin mode
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to the historical sample database
	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logger.WithService("parlay-analytics").Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	sampleStore := history.NewStore(db, structuredLogger)
	if err := sampleStore.Migrate(); err != nil {
		logger.WithService("parlay-analytics").Fatalf("Failed to migrate sample store: %v", err)
	}

	// Connect to Redis for the analysis cache
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.WithService("parlay-analytics").Fatalf("Failed to parse Redis URL: %v", err)
	}
	redisClient := redis.NewClient(opt)
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.WithService("parlay-analytics").Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	cacheService := cache.NewAnalysisCacheService(redisClient, structuredLogger)

	// Initialize WebSocket hub for sampling progress updates
	wsHub := websocket.NewHub(structuredLogger)
	go wsHub.Run()

	// Upstream stats provider and sample refresh jobs are optional; without
	// them analysis still runs on heuristic coefficients plus whatever
	// samples are already stored.
	var statsProvider *providers.StatsProviderClient
	var refresher *history.Refresher
	if cfg.StatsProviderURL != "" {
		statsProvider = providers.NewStatsProviderClient(providers.StatsProviderConfig{
			BaseURL:           cfg.StatsProviderURL,
			APIKey:            cfg.StatsProviderKey,
			RequestsPerMinute: cfg.StatsProviderRateLimit,
			Timeout:           cfg.ExternalAPITimeout,
			BreakerThreshold:  cfg.CircuitBreakerThreshold,
		}, structuredLogger)

		refresher = history.NewRefresher(sampleStore, statsProvider, history.RefresherConfig{
			RefreshSchedule: cfg.HistoryRefreshSchedule,
			PruneSchedule:   cfg.HistoryPruneSchedule,
			MaxSampleAge:    cfg.HistoryMaxAge,
			Sports:          cfg.SupportedSports,
		}, structuredLogger)

		if cfg.EnableBackgroundJobs {
			if err := refresher.Start(); err != nil {
				logger.WithService("parlay-analytics").Fatalf("Failed to start sample refresher: %v", err)
			}
		}
		if !cfg.SkipInitialSampleSync {
			go refresher.RefreshNow()
		}
	} else {
		logger.WithService("parlay-analytics").Info("No stats provider configured; skipping sample refresh jobs")
	}

	// Build the analyzer on top of the sample store
	correlationCfg := correlation.DefaultConfig()
	if cfg.MinSampleSize > 0 {
		correlationCfg.MinSampleSize = cfg.MinSampleSize
	}
	analyzer := analysis.NewAnalyzer(correlationCfg, sampleStore, analysis.Params{
		MaxLegs:           cfg.MaxParlayLegs,
		DefaultIterations: cfg.DefaultIterations,
		MinIterations:     cfg.MinIterations,
		MaxIterations:     cfg.MaxIterations,
	}, structuredLogger)

	// Initialize router
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestLogger(structuredLogger, "parlay-analytics"),
		middleware.CORS(cfg.CorsOrigins),
	)

	// Initialize handlers
	analysisHandler := handlers.NewAnalysisHandler(
		analyzer,
		cacheService,
		wsHub,
		cfg,
		structuredLogger,
	)
	samplesHandler := handlers.NewSamplesHandler(
		sampleStore,
		refresher,
		statsProvider,
		structuredLogger,
	)
	healthHandler := handlers.NewHealthHandler(db, redisClient, wsHub, structuredLogger)

	// Setup API routes
	apiV1 := router.Group("/api/v1")
	{
		// Parlay analysis endpoints
		apiV1.POST("/parlays/analyze", analysisHandler.AnalyzeParlay)
		apiV1.POST("/parlays/quote", analysisHandler.QuoteParlay)
		apiV1.GET("/parlays/cache-status", analysisHandler.GetCacheStatus)

		// Correlation endpoints
		apiV1.POST("/correlations/pairs", analysisHandler.PreviewPairCorrelation)

		// Historical sample endpoints
		apiV1.GET("/samples/status", samplesHandler.GetSampleStatus)
		apiV1.POST("/samples/refresh", samplesHandler.TriggerRefresh)
		apiV1.GET("/samples/pair", samplesHandler.GetPairSample)
	}

	// WebSocket endpoint for progress updates
	router.GET("/ws/analysis-progress/:channel", wsHub.HandleWebSocket)

	// Health check endpoints
	router.GET("/health", healthHandler.GetHealth)
	router.GET("/ready", healthHandler.GetReady)
	router.GET("/metrics", healthHandler.GetMetrics)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		logger.WithService("parlay-analytics").WithField("port", cfg.Port).Info("Parlay analytics service started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithService("parlay-analytics").Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.WithService("parlay-analytics").Info("Shutting down parlay analytics service...")

	// Tell progress subscribers their in-flight runs will not complete
	wsHub.BroadcastToAll(types.ProgressUpdate{
		Type:      "service_shutdown",
		Message:   "service shutting down",
		Timestamp: time.Now().UTC(),
	})

	if refresher != nil && refresher.IsRunning() {
		refresher.Stop()
	}

	// The server has 5 seconds to finish the request it is currently handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithService("parlay-analytics").Fatalf("Parlay analytics service forced to shutdown: %v", err)
	}

	logger.WithService("parlay-analytics").Info("Parlay analytics service exited")
}
