// workers/scheduler.go
package workers

import (
	"context"
	"fmt"
	"time"

	"eduquest/config"
	"eduquest/logger"

	"github.com/go-co-op/gocron/v2"
)

// jobTimeout bounds a single run of any background job.
const jobTimeout = 10 * time.Minute

type DailyRefresher interface {
	RefreshAll(ctx context.Context) (int, error)
}

type ChallengeSweeper interface {
	SweepChallenges(ctx context.Context) (int, error)
}

// Scheduler runs the periodic maintenance jobs: the daily quest refresh and
// the sweep that closes finished challenges.
type Scheduler struct {
	sched  gocron.Scheduler
	log    *logger.Logger
	ctx    context.Context
	cancel context.CancelFunc

	refresh gocron.Job
	sweep   gocron.Job
}

func NewScheduler(cfg config.SchedulerConfig, quests DailyRefresher, challenges ChallengeSweeper, log *logger.Logger) (*Scheduler, error) {
	if log == nil {
		log = logger.Nop()
	}
	sched, err := gocron.NewScheduler(
		gocron.WithLocation(cfg.Location()),
		gocron.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{sched: sched, log: log, ctx: ctx, cancel: cancel}

	s.refresh, err = s.add("daily-quest-refresh", cfg.DailyRefreshCron, func(ctx context.Context) (int, error) {
		return quests.RefreshAll(ctx)
	})
	if err != nil {
		s.abort()
		return nil, err
	}
	s.sweep, err = s.add("challenge-sweep", cfg.ChallengeSweepCron, func(ctx context.Context) (int, error) {
		return challenges.SweepChallenges(ctx)
	})
	if err != nil {
		s.abort()
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) add(name, crontab string, run func(ctx context.Context) (int, error)) (gocron.Job, error) {
	job, err := s.sched.NewJob(
		gocron.CronJob(crontab, false),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
			defer cancel()

			start := time.Now()
			n, err := run(ctx)
			if err != nil {
				s.log.Error("scheduled job failed", "job", name, "affected", n, "error", err)
				return
			}
			s.log.Info("scheduled job finished", "job", name, "affected", n, "duration_ms", time.Since(start).Milliseconds())
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("scheduler: job %s (%q): %w", name, crontab, err)
	}
	return job, nil
}

func (s *Scheduler) abort() {
	s.cancel()
	_ = s.sched.Shutdown()
}

func (s *Scheduler) Start() {
	s.sched.Start()
	s.log.Info("scheduler started", "jobs", len(s.sched.Jobs()))
}

// RunRefreshNow triggers the daily refresh outside its schedule.
func (s *Scheduler) RunRefreshNow() error { return s.refresh.RunNow() }

// RunSweepNow triggers the challenge sweep outside its schedule.
func (s *Scheduler) RunSweepNow() error { return s.sweep.RunNow() }

// Shutdown cancels running jobs and waits for them to return.
func (s *Scheduler) Shutdown() error {
	s.cancel()
	if err := s.sched.Shutdown(); err != nil {
		return fmt.Errorf("scheduler: shutdown: %w", err)
	}
	return nil
}
