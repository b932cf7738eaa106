// Package scheduler triggers the daily accrual run.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ndewijer/investment-ledger/internal/service"
)

// AccrualRunner is the part of service.AccrualService the scheduler drives.
type AccrualRunner interface {
	Run(ctx context.Context, now time.Time) (service.RunSummary, error)
}

// Scheduler runs accrual on a cron spec evaluated in the platform timezone.
// Overlapping ticks are skipped; a missed or doubled run is harmless because
// each grant is claimed exactly once in storage.
type Scheduler struct {
	cron    *cron.Cron
	runner  AccrualRunner
	logger  *zap.Logger
	timeout time.Duration
	now     func() time.Time

	// base is cancelled when Stop gives up waiting, aborting in-flight runs.
	base    context.Context
	abort   context.CancelFunc
	startup sync.WaitGroup
}

// New creates a Scheduler for spec. It does not start it.
func New(spec string, loc *time.Location, runner AccrualRunner, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		runner:  runner,
		logger:  logger,
		timeout: time.Hour,
		now:     time.Now,
	}
	s.base, s.abort = context.WithCancel(context.Background())
	s.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("invalid accrual schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins firing the schedule. With runNow the first run happens
// immediately in the background.
func (s *Scheduler) Start(runNow bool) {
	s.cron.Start()
	s.logger.Info("accrual scheduler started", zap.Time("next", s.Next()))
	if runNow {
		s.startup.Add(1)
		go func() {
			defer s.startup.Done()
			s.tick()
		}()
	}
}

// Stop halts the schedule and waits for running accruals, including the
// run started by Start, to finish. When ctx expires first the runs are
// cancelled and Stop returns without waiting further.
func (s *Scheduler) Stop(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		<-s.cron.Stop().Done()
		s.startup.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("accrual still running at shutdown, cancelling")
		s.abort()
	}
}

// Next returns the next scheduled run time.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(s.base, s.timeout)
	defer cancel()

	if _, err := s.runner.Run(ctx, s.now()); err != nil {
		s.logger.Error("scheduled accrual run failed", zap.Error(err))
	}
}
