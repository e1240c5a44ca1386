package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// SampleSource fetches observed prop-pair samples from an upstream stats
// provider
type SampleSource interface {
	FetchPropPairSamples(ctx context.Context, sport string) ([]PropCorrelationSample, error)
}

// JobInfo represents information about a scheduled job
type JobInfo struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Schedule   string        `json:"schedule"`
	LastRun    time.Time     `json:"last_run"`
	NextRun    time.Time     `json:"next_run"`
	Status     string        `json:"status"`
	RunCount   int           `json:"run_count"`
	ErrorCount int           `json:"error_count"`
	LastError  string        `json:"last_error,omitempty"`
	Duration   time.Duration `json:"duration"`
	IsEnabled  bool          `json:"is_enabled"`
}

// RefresherConfig controls the refresh and prune schedules
type RefresherConfig struct {
	RefreshSchedule string
	PruneSchedule   string
	MaxSampleAge    time.Duration
	Sports          []string
}

// Refresher keeps the sample store populated from the stats provider on a
// cron schedule and evicts samples older than the configured age
type Refresher struct {
	store  *Store
	source SampleSource
	logger *logrus.Logger
	cfg    RefresherConfig
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.RWMutex
	jobs      map[string]JobInfo
	isRunning bool
}

// NewRefresher creates a refresher with its own cron scheduler
func NewRefresher(store *Store, source SampleSource, cfg RefresherConfig, logger *logrus.Logger) *Refresher {
	ctx, cancel := context.WithCancel(context.Background())

	cronLogger := cron.VerbosePrintfLogger(logger)
	c := cron.New(cron.WithLogger(cronLogger))

	return &Refresher{
		store:  store,
		source: source,
		logger: logger,
		cfg:    cfg,
		cron:   c,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]JobInfo),
	}
}

// Start schedules the refresh and prune jobs and starts the scheduler
func (r *Refresher) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isRunning {
		return fmt.Errorf("sample refresher is already running")
	}

	if err := r.addJob("sample_refresh", r.cfg.RefreshSchedule, "Correlation sample refresh", r.refreshSamples); err != nil {
		return err
	}
	if err := r.addJob("sample_prune", r.cfg.PruneSchedule, "Stale sample cleanup", r.pruneSamples); err != nil {
		return err
	}

	r.cron.Start()
	r.isRunning = true

	r.logger.WithField("component", "sample_refresher").Info("Sample refresher started")
	return nil
}

// Stop halts the scheduler and cancels any in-flight refresh
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isRunning {
		return
	}

	cronCtx := r.cron.Stop()
	select {
	case <-cronCtx.Done():
	case <-time.After(5 * time.Second):
		r.logger.WithField("component", "sample_refresher").Warn("Scheduler stop timed out; abandoning running job")
	}

	r.cancel()
	r.isRunning = false

	r.logger.WithField("component", "sample_refresher").Info("Sample refresher stopped")
}

// RefreshNow runs a sample refresh outside the schedule, for startup
// warming and the admin endpoint
func (r *Refresher) RefreshNow() {
	r.runJob("sample_refresh", "Correlation sample refresh", r.refreshSamples)
}

// GetJobs returns a snapshot of job telemetry
func (r *Refresher) GetJobs() []JobInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	jobs := make([]JobInfo, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}

// IsRunning reports whether the scheduler is active
func (r *Refresher) IsRunning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isRunning
}

// addJob registers a job with the scheduler and records its info
func (r *Refresher) addJob(id, schedule, name string, jobFunc func() error) error {
	entryID, err := r.cron.AddFunc(schedule, func() {
		r.runJob(id, name, jobFunc)
	})
	if err != nil {
		return fmt.Errorf("failed to add job %s: %w", id, err)
	}

	var nextRun time.Time
	for _, entry := range r.cron.Entries() {
		if entry.ID == entryID {
			nextRun = entry.Next
			break
		}
	}

	r.jobs[id] = JobInfo{
		ID:        id,
		Name:      name,
		Schedule:  schedule,
		NextRun:   nextRun,
		Status:    "scheduled",
		IsEnabled: true,
	}

	r.logger.WithFields(logrus.Fields{
		"component": "sample_refresher",
		"job_id":    id,
		"schedule":  schedule,
		"next_run":  nextRun,
	}).Info("Scheduled job added")

	return nil
}

// runJob executes a job with panic recovery and status bookkeeping
func (r *Refresher) runJob(id, name string, jobFunc func() error) {
	r.mu.Lock()
	job, exists := r.jobs[id]
	if exists && !job.IsEnabled {
		r.mu.Unlock()
		return
	}
	if !exists {
		job = JobInfo{ID: id, Name: name, IsEnabled: true}
	}
	job.Status = "running"
	job.LastRun = time.Now()
	job.RunCount++
	r.jobs[id] = job
	r.mu.Unlock()

	logger := r.logger.WithFields(logrus.Fields{
		"component": "sample_refresher",
		"job_id":    id,
		"run_count": job.RunCount,
	})

	logger.Info("Starting scheduled job")
	startTime := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			logger.WithField("panic", rec).Error("Job panicked")
			r.updateJobStatus(id, "failed", fmt.Sprintf("panic: %v", rec), time.Since(startTime))
		}
	}()

	if err := jobFunc(); err != nil {
		logger.WithError(err).Error("Job failed")
		r.updateJobStatus(id, "failed", err.Error(), time.Since(startTime))
		return
	}

	duration := time.Since(startTime)
	logger.WithField("duration", duration).Info("Job completed successfully")
	r.updateJobStatus(id, "completed", "", duration)
}

func (r *Refresher) updateJobStatus(id, status, lastError string, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, exists := r.jobs[id]
	if !exists {
		return
	}

	job.Status = status
	job.Duration = duration
	job.LastError = lastError
	if lastError != "" {
		job.ErrorCount++
	}

	for _, entry := range r.cron.Entries() {
		if entry.Next.After(job.LastRun) {
			job.NextRun = entry.Next
			break
		}
	}

	r.jobs[id] = job
}

// refreshSamples pulls fresh samples for every configured sport. A sport
// whose fetch fails is skipped so one provider outage cannot starve the
// others; the job only fails when every sport fails.
func (r *Refresher) refreshSamples() error {
	total := 0
	failures := 0

	for _, sport := range r.cfg.Sports {
		samples, err := r.source.FetchPropPairSamples(r.ctx, sport)
		if err != nil {
			failures++
			r.logger.WithError(err).WithField("sport", sport).Warn("Sample fetch failed")
			continue
		}

		written, err := r.store.UpsertSamples(samples)
		if err != nil {
			failures++
			r.logger.WithError(err).WithField("sport", sport).Error("Sample upsert failed")
			continue
		}

		total += written
		r.logger.WithFields(logrus.Fields{
			"sport":   sport,
			"fetched": len(samples),
			"written": written,
		}).Info("Refreshed correlation samples")
	}

	if len(r.cfg.Sports) > 0 && failures == len(r.cfg.Sports) {
		return fmt.Errorf("sample refresh failed for all %d sports", failures)
	}

	r.logger.WithField("total_written", total).Info("Correlation sample refresh completed")
	return nil
}

// pruneSamples evicts samples older than the configured age
func (r *Refresher) pruneSamples() error {
	pruned, err := r.store.PruneStale(r.cfg.MaxSampleAge)
	if err != nil {
		return err
	}

	r.logger.WithFields(logrus.Fields{
		"pruned":  pruned,
		"max_age": r.cfg.MaxSampleAge,
	}).Info("Pruned stale correlation samples")
	return nil
}
