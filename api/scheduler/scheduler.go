package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper closes out chat phases whose deadline passed without the in-process
// timer firing, typically after a restart
type Sweeper interface {
	SweepOverdue(ctx context.Context) (int, error)
}

// Scheduler handles periodic background jobs for the game lifecycle
type Scheduler struct {
	cron  *cron.Cron
	games Sweeper
}

// New creates a new scheduler instance
func New(games Sweeper) *Scheduler {
	return &Scheduler{
		cron:  cron.New(cron.WithLocation(time.UTC)),
		games: games,
	}
}

// Start begins the scheduler with all registered jobs
func (s *Scheduler) Start() {
	_, err := s.cron.AddFunc("@every 1m", s.sweepOverdueGames)
	if err != nil {
		zap.S().Errorw("failed to register overdue game sweep", "error", err)
	}

	s.cron.Start()
	zap.S().Info("game scheduler started")
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("game scheduler stopped")
}

func (s *Scheduler) sweepOverdueGames() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	moved, err := s.games.SweepOverdue(ctx)
	if err != nil {
		zap.S().Errorw("overdue game sweep failed", "error", err)
		return
	}
	if moved > 0 {
		zap.S().Infow("closed overdue chat phases", "count", moved)
	}
}
