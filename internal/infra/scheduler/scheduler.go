package scheduler

import (
	"context"

	"daily_horoscope_bot/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DispatchScheduler owns the periodic timer that drives the minute tick.
// The standard five-field cron spec fires at second zero of every minute;
// SkipIfStillRunning coalesces (skips, never queues) a firing that arrives
// while the previous tick is still in flight, so at most one tick executes
// at any time.
type DispatchScheduler struct {
	cronEngine *cron.Cron
	dispatch   *app.DispatchService
	logger     *logrus.Entry
	cronSpec   string
}

func NewDispatchScheduler(dispatch *app.DispatchService, logger *logrus.Entry, cronSpec string) *DispatchScheduler {
	cronLogger := cron.PrintfLogger(logger)
	return &DispatchScheduler{
		cronEngine: cron.New(
			cron.WithChain(
				cron.Recover(cronLogger),
				cron.SkipIfStillRunning(cronLogger),
			),
		),
		dispatch: dispatch,
		logger:   logger,
		cronSpec: cronSpec,
	}
}

func (s *DispatchScheduler) Start() {
	s.logger.WithField("spec", s.cronSpec).Info("Starting dispatch scheduler")

	_, err := s.cronEngine.AddFunc(s.cronSpec, func() {
		s.dispatch.RunTick(context.Background())
	})
	if err != nil {
		s.logger.Fatalf("Could not add dispatch tick cron job: %v", err)
	}

	s.cronEngine.Start()
	s.logger.Info("Dispatch scheduler started")
}

func (s *DispatchScheduler) Stop() {
	s.logger.Info("Stopping dispatch scheduler...")
	ctx := s.cronEngine.Stop() // Stops new firings, waits for a running tick.
	<-ctx.Done()
	s.logger.Info("Dispatch scheduler gracefully stopped")
}
