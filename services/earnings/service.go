package earnings

import (
	"context"
	"time"

	"creator-engine/pkg/config"
	"creator-engine/pkg/db/option"
	"creator-engine/pkg/errutil"
	"creator-engine/pkg/money"
	"creator-engine/pkg/repository"
	"creator-engine/services/campaign"

	"github.com/bwmarrin/snowflake"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	node     *snowflake.Node
	redis    *redis.Client
	cacheTTL time.Duration

	earnings repository.Repository[CreatorEarnings]
}

type ServiceParams struct {
	fx.In

	DB    *gorm.DB
	Node  *snowflake.Node
	Cfg   *config.Config `optional:"true"`
	Redis *redis.Client  `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	cacheTTL := 5 * time.Minute
	if p.Cfg != nil && p.Cfg.Engine.LeaderboardCacheTTL > 0 {
		cacheTTL = p.Cfg.Engine.LeaderboardCacheTTL
	}

	return &Service{
		db:       p.DB,
		node:     p.Node,
		redis:    p.Redis,
		cacheTTL: cacheTTL,
		earnings: repository.ProvideStore[CreatorEarnings](p.DB),
	}
}

// Compute produces the rounded earnings breakdown for one creator on one
// campaign. It is a pure function of its inputs plus current leaderboard
// state: calling it repeatedly with the same inputs yields the same result.
// Intermediate values stay at full precision; rounding happens once, on the
// final component fields, and the total is the sum of those rounded fields.
func (s *Service) Compute(ctx context.Context, in ComputeInput) (*Breakdown, error) {
	if in.Config == nil || in.Config.Campaign == nil {
		return nil, errutil.BadRequest("missing campaign config", nil)
	}
	c := in.Config.Campaign

	base := decimal.Zero
	if c.PayoutModel.IncludesBasePay() {
		base = c.BasePayoutPerPost.Mul(decimal.NewFromInt(in.DeliverablesCompleted))
	}

	commission := decimal.Zero
	if c.PayoutModel.IncludesCommission() {
		commission = money.PercentOf(in.GMVGenerated, c.GMVCommissionRate)
	}

	bonus := decimal.Zero
	matched := ResolveGMVBonus(in.Config.BonusTiers, in.GMVGenerated)
	if matched != nil {
		bonus = bonus.Add(matched.Amount)
	}

	// Each leaderboard range is keyed by its own metric, so a mixed table
	// needs one rank per distinct metric.
	ranks := make(map[campaign.MetricType]int)
	lbBonus := decimal.Zero
	if len(in.Config.LeaderboardBonuses) > 0 {
		for _, lb := range in.Config.LeaderboardBonuses {
			if _, ok := ranks[lb.MetricType]; ok {
				continue
			}
			r, err := s.RankOf(ctx, c.CampaignID, lb.MetricType, in.CreatorID)
			if err != nil {
				return nil, err
			}
			ranks[lb.MetricType] = r
		}
		lbBonus = ResolveLeaderboardBonus(in.Config.LeaderboardBonuses, ranks)
		bonus = bonus.Add(lbBonus)
	}

	referral := s.referralEarnings(ctx, in.CreatorID, c.CampaignID)

	b := &Breakdown{
		CreatorID:        in.CreatorID,
		CampaignID:       c.CampaignID,
		ApplicationID:    in.ApplicationID,
		BaseEarnings:     money.Round(base),
		GMVCommission:    money.Round(commission),
		BonusEarnings:    money.Round(bonus),
		ReferralEarnings: money.Round(referral),
		MatchedBonus:     matched,
		LeaderboardBonus: lbBonus,
		LeaderboardRanks: ranks,
	}
	b.TotalEarnings = b.BaseEarnings.
		Add(b.GMVCommission).
		Add(b.BonusEarnings).
		Add(b.ReferralEarnings)

	return b, nil
}

// referralEarnings is the placeholder for the referral program: a typed zero
// until referral attribution exists, so the breakdown shape is stable for
// downstream consumers.
func (s *Service) referralEarnings(ctx context.Context, creatorID, campaignID string) decimal.Decimal {
	return decimal.Zero
}

// Upsert stores a breakdown as the (creator, campaign, application) earnings
// record, replacing any previous computation. TotalPaid is preserved; a
// negative pending payment is stored as-is and reported as a data-quality
// error rather than clamped, since clamping would mask accounting bugs.
func (s *Service) Upsert(ctx context.Context, b *Breakdown) (*CreatorEarnings, error) {
	span := trace.SpanFromContext(ctx)
	traceID := span.SpanContext().TraceID().String()

	var record *CreatorEarnings
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.earnings.WithTrx(tx).FindOne(ctx, &CreatorEarnings{
			CreatorID:     b.CreatorID,
			CampaignID:    b.CampaignID,
			ApplicationID: b.ApplicationID,
		})
		if err != nil {
			return err
		}

		now := time.Now()
		if existing == nil {
			record = &CreatorEarnings{
				ID:               s.node.Generate().String(),
				CreatorID:        b.CreatorID,
				CampaignID:       b.CampaignID,
				ApplicationID:    b.ApplicationID,
				BaseEarnings:     b.BaseEarnings,
				GMVCommission:    b.GMVCommission,
				BonusEarnings:    b.BonusEarnings,
				ReferralEarnings: b.ReferralEarnings,
				TotalEarnings:    b.TotalEarnings,
				TotalPaid:        decimal.Zero,
				PendingPayment:   b.TotalEarnings,
				RecomputedAt:     now,
			}
			return s.earnings.WithTrx(tx).Create(ctx, record)
		}

		pending := b.TotalEarnings.Sub(existing.TotalPaid)
		if err := tx.Model(&CreatorEarnings{}).
			Where("id = ?", existing.ID).
			Updates(map[string]any{
				"base_earnings":     b.BaseEarnings,
				"gmv_commission":    b.GMVCommission,
				"bonus_earnings":    b.BonusEarnings,
				"referral_earnings": b.ReferralEarnings,
				"total_earnings":    b.TotalEarnings,
				"pending_payment":   pending,
				"recomputed_at":     now,
				"updated_at":        now,
			}).Error; err != nil {
			return err
		}

		existing.BaseEarnings = b.BaseEarnings
		existing.GMVCommission = b.GMVCommission
		existing.BonusEarnings = b.BonusEarnings
		existing.ReferralEarnings = b.ReferralEarnings
		existing.TotalEarnings = b.TotalEarnings
		existing.PendingPayment = pending
		existing.RecomputedAt = now
		record = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	if record.PendingPayment.IsNegative() {
		zap.L().Error("negative pending payment",
			zap.String("trace_id", traceID),
			zap.String("creator_id", record.CreatorID),
			zap.String("campaign_id", record.CampaignID),
			zap.String("total_earnings", record.TotalEarnings.String()),
			zap.String("total_paid", record.TotalPaid.String()),
			zap.String("pending_payment", record.PendingPayment.String()),
		)
	}

	return record, nil
}

// RecordPayment applies a payout made by the payment subsystem. TotalPaid
// only ever increases.
func (s *Service) RecordPayment(ctx context.Context, earningsID string, amount decimal.Decimal) (*CreatorEarnings, error) {
	if !amount.IsPositive() {
		return nil, errutil.BadRequest("payment amount must be positive", nil)
	}

	var record *CreatorEarnings
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.earnings.WithTrx(tx).FindOne(ctx, &CreatorEarnings{ID: earningsID})
		if err != nil {
			return err
		}
		if existing == nil {
			return errutil.NotFound("earnings record not found", nil)
		}

		paid := existing.TotalPaid.Add(amount)
		pending := existing.TotalEarnings.Sub(paid)
		if err := tx.Model(&CreatorEarnings{}).
			Where("id = ?", existing.ID).
			Updates(map[string]any{
				"total_paid":      paid,
				"pending_payment": pending,
				"updated_at":      time.Now(),
			}).Error; err != nil {
			return err
		}

		existing.TotalPaid = paid
		existing.PendingPayment = pending
		record = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	if record.PendingPayment.IsNegative() {
		zap.L().Error("overpayment detected",
			zap.String("earnings_id", record.ID),
			zap.String("total_earnings", record.TotalEarnings.String()),
			zap.String("total_paid", record.TotalPaid.String()),
		)
	}

	return record, nil
}

func (s *Service) Get(ctx context.Context, creatorID, campaignID, applicationID string) (*CreatorEarnings, error) {
	record, err := s.earnings.FindOne(ctx, &CreatorEarnings{
		CreatorID:     creatorID,
		CampaignID:    campaignID,
		ApplicationID: applicationID,
	})
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, errutil.NotFound("earnings record not found", nil)
	}
	return record, nil
}

func (s *Service) ListByCreator(ctx context.Context, creatorID string) ([]*CreatorEarnings, error) {
	return s.earnings.Find(ctx, &CreatorEarnings{CreatorID: creatorID},
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "recomputed_at",
			OrderBy: "DESC",
			Allow:   map[string]bool{"recomputed_at": true},
		}))
}

// ListOutstanding returns records still owing money, largest balance first.
// This feeds the payout batch.
func (s *Service) ListOutstanding(ctx context.Context, limit int) ([]*CreatorEarnings, error) {
	return s.earnings.Find(ctx, &CreatorEarnings{},
		option.ApplyOperator(option.Condition{Field: "pending_payment", Operator: option.GT, Value: 0}),
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "pending_payment",
			OrderBy: "DESC",
			Allow:   map[string]bool{"pending_payment": true},
		}),
		option.WithLimit(limit),
	)
}
