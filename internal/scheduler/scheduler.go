// Package scheduler runs periodic jobs such as the nightly model retrain.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/trogers1052/stock-forecast-service/internal/service"
)

// Job is a unit of scheduled work
type Job interface {
	Run(ctx context.Context) error
	Name() string
}

// Scheduler runs registered jobs on cron schedules with seconds precision.
// A job still running when its next slot arrives is skipped.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	log    zerolog.Logger
}

// New creates a stopped scheduler
func New(log zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		ctx:    ctx,
		cancel: cancel,
		log:    log.With().Str("component", "scheduler").Logger(),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.cron.Entries())).Msg("scheduler started")
}

// Stop cancels running jobs and waits for them to return
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// AddJob registers job under a six-field cron schedule, for example
// "0 30 6 * * MON-FRI" for 06:30 on weekdays
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() { s.run(job) })
	if err != nil {
		return fmt.Errorf("failed to schedule %s with %q: %w", job.Name(), schedule, err)
	}

	s.log.Info().Str("schedule", schedule).Str("job", job.Name()).Msg("job registered")
	return nil
}

// RunNow executes a job immediately, outside its schedule
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("running job immediately")
	return job.Run(s.ctx)
}

func (s *Scheduler) run(job Job) {
	start := time.Now()
	s.log.Debug().Str("job", job.Name()).Msg("running job")

	if err := job.Run(s.ctx); err != nil {
		s.log.Error().Err(err).Str("job", job.Name()).Dur("duration", time.Since(start)).Msg("job failed")
		return
	}
	s.log.Info().Str("job", job.Name()).Dur("duration", time.Since(start)).Msg("job completed")
}

// Retrainer retrains every tracked symbol
type Retrainer interface {
	RetrainAll(ctx context.Context) (*service.RetrainSummary, error)
}

// RetrainJob refits all models on the latest stored history
type RetrainJob struct {
	retrainer Retrainer
	timeout   time.Duration
	log       zerolog.Logger
}

// NewRetrainJob creates a retrain job. A zero timeout means no limit.
func NewRetrainJob(r Retrainer, timeout time.Duration, log zerolog.Logger) *RetrainJob {
	return &RetrainJob{retrainer: r, timeout: timeout, log: log}
}

func (j *RetrainJob) Name() string { return "retrain_models" }

func (j *RetrainJob) Run(ctx context.Context) error {
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	summary, err := j.retrainer.RetrainAll(ctx)
	if err != nil {
		return err
	}
	if len(summary.Failed) > 0 {
		j.log.Warn().Interface("failed", summary.Failed).Msg("some models were not retrained")
	}
	return nil
}
