package recompute

import (
	"context"
	"sync"
	"time"

	"creator-engine/pkg/config"
	"creator-engine/services/badge"
	"creator-engine/services/campaign"
	"creator-engine/services/creator"
	"creator-engine/services/earnings"
	"creator-engine/services/gmv"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	node  *snowflake.Node
	asynq *asynq.Client

	creators  *creator.Service
	gmv       *gmv.Service
	badges    *badge.Service
	campaigns *campaign.Service
	earnings  *earnings.Service

	batchSize   int
	batchPause  time.Duration
	concurrency int
	unitTimeout time.Duration
}

type ServiceParams struct {
	fx.In

	DB        *gorm.DB
	Node      *snowflake.Node
	Asynq     *asynq.Client `optional:"true"`
	Creators  *creator.Service
	GMV       *gmv.Service
	Badges    *badge.Service
	Campaigns *campaign.Service
	Earnings  *earnings.Service
	Cfg       *config.Config `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	s := &Service{
		db:          p.DB,
		node:        p.Node,
		asynq:       p.Asynq,
		creators:    p.Creators,
		gmv:         p.GMV,
		badges:      p.Badges,
		campaigns:   p.Campaigns,
		earnings:    p.Earnings,
		batchSize:   50,
		batchPause:  500 * time.Millisecond,
		concurrency: 8,
		unitTimeout: 30 * time.Second,
	}
	if p.Cfg != nil {
		if p.Cfg.Engine.BatchSize > 0 {
			s.batchSize = p.Cfg.Engine.BatchSize
		}
		if p.Cfg.Engine.BatchPause > 0 {
			s.batchPause = p.Cfg.Engine.BatchPause
		}
		if p.Cfg.Engine.WorkerConcurrency > 0 {
			s.concurrency = p.Cfg.Engine.WorkerConcurrency
		}
		if p.Cfg.Engine.UnitTimeout > 0 {
			s.unitTimeout = p.Cfg.Engine.UnitTimeout
		}
	}
	return s
}

// RecomputeCreator re-derives one creator's state from the raw sale and
// deliverable records: lifetime GMV aggregate, badge assignments, then an
// earnings upsert per campaign the creator has activity on. Each call is
// bounded by the unit timeout so one slow creator cannot stall a batch run.
func (s *Service) RecomputeCreator(ctx context.Context, creatorID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.unitTimeout)
	defer cancel()

	span := trace.SpanFromContext(ctx)
	traceID := span.SpanContext().TraceID().String()

	total, err := s.gmv.TotalGMV(ctx, creatorID)
	if err != nil {
		return err
	}

	newly, err := s.badges.CheckAndAssign(ctx, creatorID, total)
	if err != nil {
		return err
	}

	campaignIDs, err := s.gmv.CampaignsForCreator(ctx, creatorID)
	if err != nil {
		return err
	}

	for _, campaignID := range campaignIDs {
		cfg, err := s.campaigns.GetConfig(ctx, campaignID)
		if err != nil {
			return err
		}

		completed, err := s.gmv.CountDeliverables(ctx, creatorID, campaignID)
		if err != nil {
			return err
		}
		generated, err := s.gmv.CampaignGMV(ctx, creatorID, campaignID)
		if err != nil {
			return err
		}

		breakdown, err := s.earnings.Compute(ctx, earnings.ComputeInput{
			CreatorID:             creatorID,
			ApplicationID:         applicationID(creatorID, campaignID),
			Config:                cfg,
			DeliverablesCompleted: completed,
			GMVGenerated:          generated,
		})
		if err != nil {
			return err
		}
		if _, err := s.earnings.Upsert(ctx, breakdown); err != nil {
			return err
		}
	}

	zap.L().Debug("recomputed creator",
		zap.String("trace_id", traceID),
		zap.String("creator_id", creatorID),
		zap.String("total_gmv", total.String()),
		zap.Int("new_badges", len(newly)),
		zap.Int("campaigns", len(campaignIDs)),
	)
	return nil
}

// applicationID derives a stable scope key for the earnings upsert until the
// application service syncs real application ids.
func applicationID(creatorID, campaignID string) string {
	return creatorID + ":" + campaignID
}

// BatchResult summarizes one full recomputation run.
type BatchResult struct {
	Processed int
	Succeeded int
	Failed    int
	FailedIDs []string
}

// RunForAll recomputes every active creator in fixed-size batches with
// bounded concurrency. One creator failing is recorded and skipped, never
// fatal to the run. Cancellation is honored between batches so an in-flight
// batch always finishes its creators.
func (s *Service) RunForAll(ctx context.Context) (*BatchResult, error) {
	ids, err := s.creators.ListActiveIDs(ctx)
	if err != nil {
		return nil, err
	}

	// Drop cached leaderboards so the run ranks against current records
	// instead of boards cached before it started.
	if active, err := s.campaigns.ListActive(ctx); err != nil {
		zap.L().Warn("failed to list campaigns for leaderboard invalidation", zap.Error(err))
	} else {
		campaignIDs := make([]string, 0, len(active))
		for _, c := range active {
			campaignIDs = append(campaignIDs, c.CampaignID)
		}
		s.earnings.InvalidateBoards(ctx, campaignIDs...)
	}

	result := &BatchResult{}
	sem := semaphore.NewWeighted(int64(s.concurrency))
	var mu sync.Mutex

	started := time.Now()
	for offset := 0; offset < len(ids); offset += s.batchSize {
		if err := ctx.Err(); err != nil {
			zap.L().Warn("recomputation run cancelled",
				zap.Int("processed", result.Processed),
				zap.Int("remaining", len(ids)-offset),
			)
			return result, err
		}

		end := offset + s.batchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[offset:end]

		g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
		for _, id := range batch {
			id := id
			if err := sem.Acquire(gctx, 1); err != nil {
				break
			}
			g.Go(func() error {
				defer sem.Release(1)

				runErr := s.RecomputeCreator(gctx, id)

				mu.Lock()
				defer mu.Unlock()
				result.Processed++
				if runErr != nil {
					result.Failed++
					result.FailedIDs = append(result.FailedIDs, id)
					zap.L().Error("failed to recompute creator",
						zap.String("creator_id", id),
						zap.Error(runErr),
					)
					return nil
				}
				result.Succeeded++
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return result, err
		}

		if end < len(ids) && s.batchPause > 0 {
			select {
			case <-time.After(s.batchPause):
			case <-ctx.Done():
			}
		}
	}

	zap.L().Info("recomputation run finished",
		zap.Int("processed", result.Processed),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
		zap.Duration("took", time.Since(started)),
	)
	return result, nil
}
