package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stitts-dev/parlay-analytics/pkg/database"
)

type fakeSampleSource struct {
	samplesBySport map[string][]PropCorrelationSample
	failSports     map[string]bool
	calls          int
}

func (f *fakeSampleSource) FetchPropPairSamples(ctx context.Context, sport string) ([]PropCorrelationSample, error) {
	f.calls++
	if f.failSports[sport] {
		return nil, errors.New("provider unavailable")
	}
	return f.samplesBySport[sport], nil
}

type RefresherTestSuite struct {
	suite.Suite
	store  *Store
	source *fakeSampleSource
}

func (s *RefresherTestSuite) SetupTest() {
	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	s.Require().NoError(err)

	s.store = NewStore(&database.DB{DB: gormDB}, logrus.New())
	s.Require().NoError(s.store.Migrate())

	s.source = &fakeSampleSource{
		samplesBySport: map[string][]PropCorrelationSample{
			"nba": {
				{
					Sport: "nba", PlayerName: "Jayson Tatum",
					PropTypeA: "points", PropTypeB: "rebounds",
					BothHit: 30, OnlyFirstHit: 10, OnlySecondHit: 10, NeitherHit: 30,
				},
				{
					Sport: "nba", PlayerName: "Luka Doncic",
					PropTypeA: "points", PropTypeB: "assists",
					BothHit: 25, OnlyFirstHit: 15, OnlySecondHit: 15, NeitherHit: 25,
				},
			},
			"nfl": {
				{
					Sport: "nfl", PlayerName: "Josh Allen",
					PropTypeA: "passing_yards", PropTypeB: "passing_tds",
					BothHit: 20, OnlyFirstHit: 8, OnlySecondHit: 8, NeitherHit: 20,
				},
			},
		},
		failSports: map[string]bool{},
	}
}

func (s *RefresherTestSuite) newRefresher(sports []string) *Refresher {
	return NewRefresher(s.store, s.source, RefresherConfig{
		RefreshSchedule: "0 */6 * * *",
		PruneSchedule:   "0 3 * * *",
		MaxSampleAge:    720 * time.Hour,
		Sports:          sports,
	}, logrus.New())
}

func (s *RefresherTestSuite) TestRefreshNowWritesSamples() {
	refresher := s.newRefresher([]string{"nba"})

	refresher.RefreshNow()

	count, err := s.store.CountSamples()
	s.Require().NoError(err)
	s.Equal(int64(2), count)
	s.Equal(1, s.source.calls)

	jobs := refresher.GetJobs()
	s.Require().Len(jobs, 1)
	s.Equal("sample_refresh", jobs[0].ID)
	s.Equal("completed", jobs[0].Status)
	s.Equal(1, jobs[0].RunCount)
	s.Equal(0, jobs[0].ErrorCount)
}

func (s *RefresherTestSuite) TestRefreshSurvivesPartialFailure() {
	s.source.failSports["nba"] = true
	refresher := s.newRefresher([]string{"nba", "nfl"})

	refresher.RefreshNow()

	count, err := s.store.CountSamples()
	s.Require().NoError(err)
	s.Equal(int64(1), count)

	jobs := refresher.GetJobs()
	s.Require().Len(jobs, 1)
	s.Equal("completed", jobs[0].Status)
}

func (s *RefresherTestSuite) TestRefreshFailsWhenAllSportsFail() {
	s.source.failSports["nba"] = true
	s.source.failSports["nfl"] = true
	refresher := s.newRefresher([]string{"nba", "nfl"})

	refresher.RefreshNow()

	jobs := refresher.GetJobs()
	s.Require().Len(jobs, 1)
	s.Equal("failed", jobs[0].Status)
	s.Equal(1, jobs[0].ErrorCount)
	s.NotEmpty(jobs[0].LastError)
}

func (s *RefresherTestSuite) TestStartAndStop() {
	refresher := s.newRefresher([]string{"nba"})

	s.Require().NoError(refresher.Start())
	s.True(refresher.IsRunning())
	s.Len(refresher.GetJobs(), 2)

	s.Error(refresher.Start())

	refresher.Stop()
	s.False(refresher.IsRunning())
}

func (s *RefresherTestSuite) TestStartRejectsBadSchedule() {
	refresher := NewRefresher(s.store, s.source, RefresherConfig{
		RefreshSchedule: "not a schedule",
		PruneSchedule:   "0 3 * * *",
		MaxSampleAge:    720 * time.Hour,
		Sports:          []string{"nba"},
	}, logrus.New())

	s.Error(refresher.Start())
}

func TestRefresherTestSuite(t *testing.T) {
	suite.Run(t, new(RefresherTestSuite))
}
