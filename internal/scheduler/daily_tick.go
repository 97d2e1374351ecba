package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/silverquant/tierstore/internal/storage"
)

// DailyTickSchedule fires before the trading session opens on weekdays.
const DailyTickSchedule = "0 30 8 * * MON-FRI"

// DailyTickJob advances every position's holding-day counter once per
// trading day. The store's own date marker keeps the job idempotent, so a
// restart that re-triggers the schedule cannot double-increment.
type DailyTickJob struct {
	store     storage.PositionStore
	accountID string
	timeout   time.Duration
	log       zerolog.Logger
}

// NewDailyTickJob builds the job for one account.
func NewDailyTickJob(store storage.PositionStore, accountID string, log zerolog.Logger) *DailyTickJob {
	return &DailyTickJob{
		store:     store,
		accountID: accountID,
		timeout:   30 * time.Second,
		log:       log.With().Str("component", "daily_tick").Logger(),
	}
}

// Name implements Job.
func (j *DailyTickJob) Name() string { return "daily_tick:" + j.accountID }

// Run implements Job.
func (j *DailyTickJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	incremented, err := j.store.AllHeldInc(ctx, j.accountID)
	if err != nil {
		return err
	}
	if incremented {
		j.log.Info().Str("account", j.accountID).Msg("holding days advanced")
	} else {
		j.log.Debug().Str("account", j.accountID).Msg("already advanced today")
	}
	return nil
}
