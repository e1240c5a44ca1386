package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/parlay-analytics/pkg/types"
)

// ErrCacheMiss indicates the requested analysis is not cached
var ErrCacheMiss = errors.New("analysis not found in cache")

// AnalysisCacheService handles caching for parlay analysis results
type AnalysisCacheService struct {
	client *redis.Client
	logger *logrus.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// NewAnalysisCacheService creates a new analysis cache service
func NewAnalysisCacheService(client *redis.Client, logger *logrus.Logger) *AnalysisCacheService {
	return &AnalysisCacheService{
		client: client,
		logger: logger,
	}
}

// AnalysisKey builds a cache key from the canonicalized leg set and options.
// Leg order does not affect the key.
func AnalysisKey(legs []types.Leg, opts types.AnalysisOptions) string {
	sigs := make([]string, 0, len(legs))
	for _, leg := range legs {
		sigs = append(sigs, fmt.Sprintf("%s|%d|%s|%s|%s|%s|%s",
			leg.Description, leg.Odds, leg.PlayerName, leg.PropType, leg.Side, leg.Sport, leg.EventID))
	}
	sort.Strings(sigs)

	var seed int64
	if opts.Seed != nil {
		seed = *opts.Seed
	}
	payload := fmt.Sprintf("%s#sampling=%t#iters=%d#seed=%d#stake=%s",
		strings.Join(sigs, ";"), opts.UseSampling, opts.Iterations, seed, opts.Stake)

	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:16])
}

// SetAnalysis stores an analysis response in cache
func (c *AnalysisCacheService) SetAnalysis(ctx context.Context, key string, result *types.AnalysisResponse, expiration time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis result: %w", err)
	}

	fullKey := fmt.Sprintf("parlay:analysis:%s", key)
	if err := c.client.Set(ctx, fullKey, data, expiration).Err(); err != nil {
		return fmt.Errorf("failed to set analysis result in cache: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"cache_key":  fullKey,
		"expiration": expiration,
		"leg_count":  len(result.Legs),
	}).Debug("Cached analysis result")

	return nil
}

// GetAnalysis retrieves an analysis response from cache
func (c *AnalysisCacheService) GetAnalysis(ctx context.Context, key string) (*types.AnalysisResponse, error) {
	fullKey := fmt.Sprintf("parlay:analysis:%s", key)
	data, err := c.client.Get(ctx, fullKey).Result()
	if err != nil {
		if err == redis.Nil {
			c.misses.Add(1)
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get analysis result from cache: %w", err)
	}

	var result types.AnalysisResponse
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal analysis result: %w", err)
	}

	c.hits.Add(1)
	c.logger.WithFields(logrus.Fields{
		"cache_key": fullKey,
		"leg_count": len(result.Legs),
	}).Debug("Retrieved analysis result from cache")

	return &result, nil
}

// DeleteAnalysis removes an analysis result from cache
func (c *AnalysisCacheService) DeleteAnalysis(ctx context.Context, key string) error {
	fullKey := fmt.Sprintf("parlay:analysis:%s", key)
	if err := c.client.Del(ctx, fullKey).Err(); err != nil {
		return fmt.Errorf("failed to delete analysis result from cache: %w", err)
	}

	c.logger.WithField("cache_key", fullKey).Debug("Deleted analysis result from cache")
	return nil
}

// GetStatus returns cache statistics
func (c *AnalysisCacheService) GetStatus(ctx context.Context) map[string]interface{} {
	info := c.client.Info(ctx)
	dbSize := c.client.DBSize(ctx)

	hits := c.hits.Load()
	misses := c.misses.Load()

	status := map[string]interface{}{
		"service":   "analysis-cache",
		"timestamp": time.Now(),
		"connected": true,
		"hits":      hits,
		"misses":    misses,
	}

	if total := hits + misses; total > 0 {
		status["hit_rate"] = float64(hits) / float64(total)
	}

	if dbSize.Err() == nil {
		status["db_size"] = dbSize.Val()
	}

	if info.Err() == nil {
		status["redis_info"] = "available"
	}

	analysisKeys, err := c.client.Keys(ctx, "parlay:analysis:*").Result()
	if err == nil {
		status["analysis_keys"] = len(analysisKeys)
	}

	return status
}

// FlushAnalysisCache clears all analysis results from cache
func (c *AnalysisCacheService) FlushAnalysisCache(ctx context.Context) error {
	keys, err := c.client.Keys(ctx, "parlay:analysis:*").Result()
	if err != nil {
		return fmt.Errorf("failed to get analysis keys: %w", err)
	}

	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("failed to delete analysis keys: %w", err)
		}
	}

	c.logger.WithField("deleted_keys", len(keys)).Info("Flushed analysis cache")
	return nil
}
