package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/stitts-dev/parlay-analytics/internal/history"
)

// ErrProviderUnavailable indicates the stats provider is down or its
// circuit breaker is open. Callers keep serving heuristic-only analysis.
var ErrProviderUnavailable = errors.New("stats provider unavailable")

// StatsProviderClient fetches observed prop-pair outcome counts from the
// stats provider's PostgREST-style API
type StatsProviderClient struct {
	httpClient  *http.Client
	logger      *logrus.Logger
	baseURL     string
	apiKey      string
	rateLimiter *rate.Limiter
	breaker     *gobreaker.CircuitBreaker
}

// StatsProviderConfig carries the connection settings for the client
type StatsProviderConfig struct {
	BaseURL           string
	APIKey            string
	RequestsPerMinute int
	Timeout           time.Duration
	BreakerThreshold  int
}

// NewStatsProviderClient creates a provider client with rate limiting and
// circuit breaker protection
func NewStatsProviderClient(cfg StatsProviderConfig, logger *logrus.Logger) *StatsProviderClient {
	settings := gobreaker.Settings{
		Name:        "stats-provider",
		MaxRequests: uint32(cfg.BreakerThreshold),
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"component": "circuit_breaker",
				"service":   name,
				"from":      from.String(),
				"to":        to.String(),
			}).Info("Circuit breaker state changed")
		},
	}

	requestsPerMinute := cfg.RequestsPerMinute
	if requestsPerMinute <= 0 {
		requestsPerMinute = 30
	}

	return &StatsProviderClient{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger:      logger,
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		rateLimiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1),
		breaker:     gobreaker.NewCircuitBreaker(settings),
	}
}

// propPairStatsRow mirrors one row of the provider's prop_pair_stats view
type propPairStatsRow struct {
	Sport         string    `json:"sport"`
	PlayerName    string    `json:"player_name"`
	PropTypeA     string    `json:"prop_type_a"`
	PropTypeB     string    `json:"prop_type_b"`
	BothHit       int       `json:"both_hit"`
	OnlyFirstHit  int       `json:"only_first_hit"`
	OnlySecondHit int       `json:"only_second_hit"`
	NeitherHit    int       `json:"neither_hit"`
	Season        string    `json:"season"`
	CapturedAt    time.Time `json:"captured_at"`
}

// FetchPropPairSamples pulls observed outcome counts for a sport. The
// correlation itself is recomputed locally when the samples are stored.
func (c *StatsProviderClient) FetchPropPairSamples(ctx context.Context, sport string) ([]history.PropCorrelationSample, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/rest/v1/prop_pair_stats?sport=eq.%s&select=*",
		c.baseURL, url.QueryEscape(sport))

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetchRows(ctx, endpoint)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		return nil, err
	}

	rows := result.([]propPairStatsRow)
	samples := make([]history.PropCorrelationSample, 0, len(rows))
	for _, row := range rows {
		sample := history.PropCorrelationSample{
			Sport:         row.Sport,
			PlayerName:    row.PlayerName,
			PropTypeA:     row.PropTypeA,
			PropTypeB:     row.PropTypeB,
			BothHit:       row.BothHit,
			OnlyFirstHit:  row.OnlyFirstHit,
			OnlySecondHit: row.OnlySecondHit,
			NeitherHit:    row.NeitherHit,
			Source:        "stats-provider",
			CapturedAt:    row.CapturedAt,
		}
		if row.Season != "" {
			sample.SeasonTags = pq.StringArray{row.Season}
		}
		samples = append(samples, sample)
	}

	c.logger.WithFields(logrus.Fields{
		"sport":   sport,
		"fetched": len(samples),
	}).Debug("Fetched prop pair samples")

	return samples, nil
}

// Ping checks provider reachability for readiness probes
func (c *StatsProviderClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/rest/v1/", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}
	return nil
}

// BreakerState reports the circuit breaker state for status endpoints
func (c *StatsProviderClient) BreakerState() string {
	return c.breaker.State().String()
}

func (c *StatsProviderClient) fetchRows(ctx context.Context, endpoint string) ([]propPairStatsRow, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider request failed with status %d", resp.StatusCode)
	}

	var rows []propPairStatsRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return rows, nil
}

func (c *StatsProviderClient) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
}
