package recompute

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Scheduler struct {
	service *Service
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewScheduler(svc *Service) *Scheduler {
	return &Scheduler{
		service: svc,
		done:    make(chan struct{}),
	}
}

func StartScheduler(lc fx.Lifecycle, s *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			// The loop outlives startup, so it gets its own context
			// rather than the start hook's, which fx cancels once
			// startup completes.
			ctx, cancel := context.WithCancel(context.Background())
			s.cancel = cancel
			go s.run(ctx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if s.cancel != nil {
				s.cancel()
			}
			select {
			case <-s.done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)
	zap.L().Info("[Scheduler] started nightly recomputation scheduler")

	for {
		now := time.Now()
		next := nextRunTime(now, 2, 0)

		sleepDuration := next.Sub(now)
		zap.L().Info("[Scheduler] next run scheduled",
			zap.Time("next_run", next),
			zap.Duration("sleep_for", sleepDuration),
		)
		select {
		case <-time.After(sleepDuration):
			s.runNightly(ctx)
		case <-ctx.Done():
			zap.L().Warn("[Scheduler] stopped")
			return
		}
	}
}

func (s *Scheduler) runNightly(ctx context.Context) {
	start := time.Now()
	zap.L().Info("[Scheduler] Running nightly recomputation enqueue")

	jobID, err := s.service.EnqueueAll(ctx)
	if err != nil {
		zap.L().Error("[Scheduler] failed to enqueue full recomputation", zap.Error(err))
		return
	}

	zap.L().Info("[Scheduler] Finished nightly enqueue",
		zap.String("job_id", jobID),
		zap.Duration("duration", time.Since(start)),
	)
}

func nextRunTime(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if now.After(next) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
