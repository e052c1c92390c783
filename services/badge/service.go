package badge

import (
	"context"
	"time"

	"creator-engine/pkg/db/option"
	"creator-engine/pkg/errutil"
	"creator-engine/pkg/repository"
	"creator-engine/services/creator"
	"creator-engine/services/gmv"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db     *gorm.DB
	node   *snowflake.Node
	ladder []Tier

	gmv *gmv.Service

	badges   repository.Repository[CreatorBadge]
	creators repository.Repository[creator.Creator]
}

type ServiceParams struct {
	fx.In

	DB   *gorm.DB
	Node *snowflake.Node
	GMV  *gmv.Service

	Ladder []Tier `optional:"true"`
}

func NewService(p ServiceParams) (*Service, error) {
	ladder := p.Ladder
	if ladder == nil {
		ladder = DefaultLadder()
	}
	if err := validateLadder(ladder); err != nil {
		return nil, err
	}

	return &Service{
		db:       p.DB,
		node:     p.Node,
		ladder:   ladder,
		gmv:      p.GMV,
		badges:   repository.ProvideStore[CreatorBadge](p.DB),
		creators: repository.ProvideStore[creator.Creator](p.DB),
	}, nil
}

func (s *Service) Ladder() []Tier {
	out := make([]Tier, len(s.ladder))
	copy(out, s.ladder)
	return out
}

// CheckAndAssign walks the ladder in ascending threshold order and records
// every tier the given GMV newly crosses. The badge inserts and the creator's
// aggregate update share one transaction so badges never reflect a GMV value
// that was not durably stored. A duplicate insert from a concurrent run is
// success, not conflict, and is excluded from the returned set.
func (s *Service) CheckAndAssign(ctx context.Context, creatorID string, currentGMV decimal.Decimal) ([]Tier, error) {
	span := trace.SpanFromContext(ctx)
	traceID := span.SpanContext().TraceID().String()

	var newly []Tier
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		newly = newly[:0]

		record, err := s.creators.WithTrx(tx).FindOne(ctx, &creator.Creator{CreatorID: creatorID})
		if err != nil {
			return err
		}
		if record == nil {
			return errutil.NotFound("creator not found", nil)
		}

		earned, err := s.badges.WithTrx(tx).Find(ctx, &CreatorBadge{CreatorID: creatorID})
		if err != nil {
			return err
		}
		earnedSet := make(map[string]bool, len(earned))
		for _, b := range earned {
			earnedSet[b.BadgeType] = true
		}

		now := time.Now()
		for _, tier := range s.ladder {
			if currentGMV.LessThan(tier.Threshold) {
				break
			}
			if earnedSet[tier.Type] {
				continue
			}

			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "creator_id"}, {Name: "badge_type"}},
				DoNothing: true,
			}).Create(&CreatorBadge{
				ID:             s.node.Generate().String(),
				CreatorID:      creatorID,
				BadgeType:      tier.Type,
				EarnedAt:       now,
				GMVAtThreshold: tier.Threshold,
			})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				newly = append(newly, tier)
			}
		}

		// Same unit of work as the assignments.
		return tx.Model(&creator.Creator{}).
			Where("creator_id = ?", creatorID).
			Updates(map[string]any{
				"current_gmv": currentGMV,
				"gmv_version": gorm.Expr("gmv_version + 1"),
				"updated_at":  now,
			}).Error
	})
	if err != nil {
		zap.L().Error("failed to check and assign badges",
			zap.String("trace_id", traceID),
			zap.String("creator_id", creatorID),
			zap.Error(err),
		)
		return nil, err
	}

	if len(newly) > 0 {
		types := make([]string, 0, len(newly))
		for _, tier := range newly {
			types = append(types, tier.Type)
		}
		zap.L().Info("assigned badges",
			zap.String("trace_id", traceID),
			zap.String("creator_id", creatorID),
			zap.Strings("badge_types", types),
		)
	}
	return newly, nil
}

// EarnedBadges lists the achievement log for a creator, oldest first.
func (s *Service) EarnedBadges(ctx context.Context, creatorID string) ([]*CreatorBadge, error) {
	return s.badges.Find(ctx, &CreatorBadge{CreatorID: creatorID},
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "earned_at",
			OrderBy: "ASC",
			Allow:   map[string]bool{"earned_at": true},
		}))
}

// OverallProgress reports the highest earned tier, the next unearned tier
// above the current GMV, and the distance to it.
func (s *Service) OverallProgress(ctx context.Context, creatorID string) (*ProgressSummary, error) {
	record, err := s.creators.FindOne(ctx, &creator.Creator{CreatorID: creatorID})
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, errutil.NotFound("creator not found", nil)
	}

	earnedSet, err := s.earnedSet(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	summary := &ProgressSummary{
		ProgressPercent: 100,
		RemainingGMV:    decimal.Zero,
	}

	for i := range s.ladder {
		tier := s.ladder[i]
		if earnedSet[tier.Type] {
			summary.CurrentTier = &s.ladder[i]
		}
	}

	currentGMV := record.CurrentGMV
	for i := range s.ladder {
		tier := s.ladder[i]
		if earnedSet[tier.Type] || !tier.Threshold.GreaterThan(currentGMV) {
			continue
		}
		summary.NextTier = &s.ladder[i]
		summary.ProgressPercent = progressPercent(currentGMV, tier.Threshold, 100)
		summary.RemainingGMV = tier.Threshold.Sub(currentGMV)
		break
	}

	return summary, nil
}

// Progress reports progress against a single tier. 100 is reserved for the
// earned state; an unearned tier caps at 99.9 even when the aggregate already
// exceeds the threshold but assignment has not run yet.
func (s *Service) Progress(ctx context.Context, creatorID, badgeType string) (*TierProgress, error) {
	tier, ok := s.tierByType(badgeType)
	if !ok {
		return nil, errutil.BadRequest("unknown badge type", nil,
			errutil.WithDetails(errutil.Detail{Field: "badge_type", Message: badgeType}))
	}

	record, err := s.creators.FindOne(ctx, &creator.Creator{CreatorID: creatorID})
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, errutil.NotFound("creator not found", nil)
	}

	existing, err := s.badges.FindOne(ctx, &CreatorBadge{CreatorID: creatorID, BadgeType: badgeType})
	if err != nil {
		return nil, err
	}

	progress := &TierProgress{Tier: tier}
	if existing != nil {
		progress.Earned = true
		progress.ProgressPercent = 100
		progress.RemainingGMV = decimal.Zero
		return progress, nil
	}

	progress.ProgressPercent = progressPercent(record.CurrentGMV, tier.Threshold, 99.9)
	remaining := tier.Threshold.Sub(record.CurrentGMV)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	progress.RemainingGMV = remaining
	return progress, nil
}

func (s *Service) earnedSet(ctx context.Context, creatorID string) (map[string]bool, error) {
	earned, err := s.badges.Find(ctx, &CreatorBadge{CreatorID: creatorID})
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(earned))
	for _, b := range earned {
		set[b.BadgeType] = true
	}
	return set, nil
}

func progressPercent(current, threshold decimal.Decimal, limit float64) float64 {
	if threshold.IsZero() {
		return limit
	}
	pct, _ := current.Div(threshold).Mul(decimal.NewFromInt(100)).Float64()
	if pct > limit {
		return limit
	}
	if pct < 0 {
		return 0
	}
	return pct
}
