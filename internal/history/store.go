package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/stitts-dev/parlay-analytics/internal/correlation"
	"github.com/stitts-dev/parlay-analytics/pkg/database"
	"github.com/stitts-dev/parlay-analytics/pkg/types"
)

// Store persists observed prop-pair correlation samples
type Store struct {
	db     *database.DB
	logger *logrus.Logger
}

// NewStore creates a sample store
func NewStore(db *database.DB, logger *logrus.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger,
	}
}

// Migrate creates or updates the samples table
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&PropCorrelationSample{})
}

// UpsertSamples writes a batch of samples, recomputing each correlation
// from its contingency counts. Records missing a player or prop pair are
// skipped rather than failing the batch. Returns the number written.
func (s *Store) UpsertSamples(samples []PropCorrelationSample) (int, error) {
	written := 0
	for _, sample := range samples {
		sample = normalizeSample(sample)
		if sample.PlayerName == "" || sample.PropTypeA == "" || sample.PropTypeB == "" || sample.PropTypeA == sample.PropTypeB {
			s.logger.WithFields(logrus.Fields{
				"player": sample.PlayerName,
				"prop_a": sample.PropTypeA,
				"prop_b": sample.PropTypeB,
			}).Warn("Skipping malformed correlation sample")
			continue
		}

		sample.SampleSize = sample.BothHit + sample.OnlyFirstHit + sample.OnlySecondHit + sample.NeitherHit
		if sample.SampleSize <= 0 {
			continue
		}
		sample.Correlation = PhiCoefficient(sample.BothHit, sample.OnlyFirstHit, sample.OnlySecondHit, sample.NeitherHit)
		if sample.CapturedAt.IsZero() {
			sample.CapturedAt = time.Now().UTC()
		}

		var existing PropCorrelationSample
		err := s.db.Where("sport = ? AND player_name = ? AND prop_type_a = ? AND prop_type_b = ?",
			sample.Sport, sample.PlayerName, sample.PropTypeA, sample.PropTypeB).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sample.ID = uuid.New()
			if err := s.db.Create(&sample).Error; err != nil {
				return written, fmt.Errorf("failed to create correlation sample: %w", err)
			}
			written++
			continue
		}
		if err != nil {
			return written, fmt.Errorf("failed to look up correlation sample: %w", err)
		}

		updates := map[string]interface{}{
			"both_hit":        sample.BothHit,
			"only_first_hit":  sample.OnlyFirstHit,
			"only_second_hit": sample.OnlySecondHit,
			"neither_hit":     sample.NeitherHit,
			"sample_size":     sample.SampleSize,
			"correlation":     sample.Correlation,
			"source":          sample.Source,
			"season_tags":     sample.SeasonTags,
			"metadata":        sample.Metadata,
			"captured_at":     sample.CapturedAt,
		}
		if err := s.db.Model(&existing).Updates(updates).Error; err != nil {
			return written, fmt.Errorf("failed to update correlation sample: %w", err)
		}
		written++
	}
	return written, nil
}

// GetSample fetches the stored sample for a player's prop pair. Prop order
// does not matter; the stored row keeps props in lexical order.
func (s *Store) GetSample(sport, playerName, propA, propB string) (*PropCorrelationSample, error) {
	probe := normalizeSample(PropCorrelationSample{
		Sport:      sport,
		PlayerName: playerName,
		PropTypeA:  propA,
		PropTypeB:  propB,
	})

	var sample PropCorrelationSample
	err := s.db.Where("sport = ? AND player_name = ? AND prop_type_a = ? AND prop_type_b = ?",
		probe.Sport, probe.PlayerName, probe.PropTypeA, probe.PropTypeB).First(&sample).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch correlation sample: %w", err)
	}
	return &sample, nil
}

// CountSamples reports how many samples are stored
func (s *Store) CountSamples() (int64, error) {
	var count int64
	if err := s.db.Model(&PropCorrelationSample{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count correlation samples: %w", err)
	}
	return count, nil
}

// PruneStale deletes samples captured before the cutoff age
func (s *Store) PruneStale(maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	result := s.db.Where("captured_at < ?", cutoff).Delete(&PropCorrelationSample{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune stale samples: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Resolve prefetches samples for every same-player prop pair in the leg
// set and returns them as an in-memory lookup. Database failures degrade
// to heuristic-only analysis; they are logged, never propagated.
func (s *Store) Resolve(ctx context.Context, legs []types.Leg) correlation.SampleLookup {
	snapshot := make(snapshotLookup)

	for i := 0; i < len(legs); i++ {
		for j := i + 1; j < len(legs); j++ {
			first, second := legs[i], legs[j]
			if first.PlayerName == "" || !strings.EqualFold(first.PlayerName, second.PlayerName) {
				continue
			}

			key := snapshotKey(first, second)
			if _, ok := snapshot[key]; ok {
				continue
			}

			sport := string(first.Sport)
			if sport == "" {
				sport = string(second.Sport)
			}

			probe := normalizeSample(PropCorrelationSample{
				Sport:      sport,
				PlayerName: first.PlayerName,
				PropTypeA:  first.PropType,
				PropTypeB:  second.PropType,
			})

			var sample PropCorrelationSample
			err := s.db.WithContext(ctx).Where("sport = ? AND player_name = ? AND prop_type_a = ? AND prop_type_b = ?",
				probe.Sport, probe.PlayerName, probe.PropTypeA, probe.PropTypeB).First(&sample).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			if err != nil {
				s.logger.WithError(err).Warn("Historical sample lookup failed; using heuristics")
				return snapshot
			}

			snapshot[key] = correlation.HistoricalSample{
				Correlation: sample.Correlation,
				SampleSize:  sample.SampleSize,
			}
		}
	}

	return snapshot
}

// snapshotLookup holds prefetched samples keyed by player and prop pair
type snapshotLookup map[string]correlation.HistoricalSample

func (l snapshotLookup) Sample(a, b types.Leg) (correlation.HistoricalSample, bool) {
	sample, ok := l[snapshotKey(a, b)]
	return sample, ok
}

func snapshotKey(a, b types.Leg) string {
	propA := strings.ToLower(strings.TrimSpace(a.PropType))
	propB := strings.ToLower(strings.TrimSpace(b.PropType))
	if propA > propB {
		propA, propB = propB, propA
	}
	return strings.ToLower(strings.TrimSpace(a.PlayerName)) + "|" + propA + "|" + propB
}

// normalizeSample lowercases identifying fields and orders the prop pair
// lexically, swapping the one-sided counts when the order flips
func normalizeSample(sample PropCorrelationSample) PropCorrelationSample {
	sample.Sport = strings.ToLower(strings.TrimSpace(sample.Sport))
	sample.PlayerName = strings.ToLower(strings.TrimSpace(sample.PlayerName))
	sample.PropTypeA = strings.ToLower(strings.TrimSpace(sample.PropTypeA))
	sample.PropTypeB = strings.ToLower(strings.TrimSpace(sample.PropTypeB))
	if sample.PropTypeA > sample.PropTypeB {
		sample.PropTypeA, sample.PropTypeB = sample.PropTypeB, sample.PropTypeA
		sample.OnlyFirstHit, sample.OnlySecondHit = sample.OnlySecondHit, sample.OnlyFirstHit
	}
	return sample
}
