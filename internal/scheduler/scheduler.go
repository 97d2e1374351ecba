// Package scheduler runs the substrate's recurring maintenance jobs on
// cron schedules. The only shipped job is the daily holding-day tick;
// the Job interface leaves room for compaction and export jobs.
package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is one recurring maintenance task. Run receives the scheduler's
// base context; a job applies its own deadline on top of it.
type Job interface {
	Run(ctx context.Context) error
	Name() string
}

// Scheduler drives registered jobs on six-field cron expressions
// (seconds included), for example "0 30 8 * * MON-FRI" for 08:30 on
// weekdays.
type Scheduler struct {
	cron   *cron.Cron
	base   context.Context
	cancel context.CancelFunc
	log    zerolog.Logger
}

func New(log zerolog.Logger) *Scheduler {
	base, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		base:   base,
		cancel: cancel,
		log:    log.With().Str("component", "scheduler").Logger(),
	}
}

// Start begins firing schedules in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop cancels the base context, halts the timer and waits for any job
// in flight to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// AddJob registers a job against a cron expression. A failing run is
// logged and the schedule keeps firing.
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		if err := job.Run(s.base); err != nil {
			s.log.Error().Err(err).Str("job", job.Name()).Msg("job failed")
			return
		}
		s.log.Debug().Str("job", job.Name()).Msg("job completed")
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("schedule", schedule).Str("job", job.Name()).Msg("job registered")
	return nil
}

// RunNow executes a job once, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("running job immediately")
	return job.Run(ctx)
}
