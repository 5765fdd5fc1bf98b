package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"shopfloor/utils"
)

// TrialSweeper periodically downgrades expired trials that no traffic has
// touched. The lazy, request-triggered downgrade remains the primary path;
// this sweep only closes the "nobody logs in" blind spot for deployments that
// want timeliness. Disabled unless an interval is configured.
type TrialSweeper struct {
	Lifecycle *utils.LifecycleService
	Interval  time.Duration
	Logger    *logrus.Logger
}

func NewTrialSweeper(lifecycle *utils.LifecycleService, interval time.Duration, logger *logrus.Logger) *TrialSweeper {
	return &TrialSweeper{
		Lifecycle: lifecycle,
		Interval:  interval,
		Logger:    logger,
	}
}

func (ts *TrialSweeper) Start(ctx context.Context) {
	// Initial delay to let the server start up
	time.Sleep(10 * time.Second)

	ts.Logger.WithField("interval", ts.Interval.String()).Info("trial sweeper started")

	ticker := time.NewTicker(ts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ts.Logger.Info("trial sweeper shutting down")
			return
		case <-ticker.C:
			ts.sweep(ctx)
		}
	}
}

func (ts *TrialSweeper) sweep(ctx context.Context) {
	downgraded, err := ts.Lifecycle.DowngradeExpiredTrials(ctx)
	if err != nil {
		ts.Logger.WithError(err).Warn("trial sweep failed")
		return
	}
	if downgraded > 0 {
		ts.Logger.WithField("count", downgraded).Info("trial sweep downgraded expired trials")
	}
}
