package domain

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
)

// Abandoner closes sessions that outlived their TTL.
type Abandoner interface {
	Abandon(ctx context.Context) (int, error)
}

// Sweeper periodically abandons stale sessions.
type Sweeper struct {
	sched  gocron.Scheduler
	logger *slog.Logger
}

// NewSweeper schedules svc.Abandon every interval. Runs never overlap.
func NewSweeper(svc Abandoner, interval time.Duration, clock clockwork.Clock, logger *slog.Logger) (*Sweeper, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive, got %s", interval)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	sched, err := gocron.NewScheduler(gocron.WithClock(clock))
	if err != nil {
		return nil, fmt.Errorf("creating scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			n, err := svc.Abandon(context.Background())
			if err != nil {
				logger.Error("session sweep failed", "error", err)
				return
			}
			if n > 0 {
				logger.Info("abandoned stale sessions", "count", n)
			}
		}),
		gocron.WithName("abandon-stale-sessions"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("scheduling session sweep: %w", err)
	}

	return &Sweeper{sched: sched, logger: logger}, nil
}

// Start begins running the sweep.
func (s *Sweeper) Start() {
	s.sched.Start()
	s.logger.Debug("session sweeper started")
}

// Stop waits for a running sweep and stops the scheduler.
func (s *Sweeper) Stop() error {
	return s.sched.Shutdown()
}
