package campaign

import (
	"context"
	"fmt"
	"sort"
	"time"

	"creator-engine/pkg/errutil"
	"creator-engine/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ========================================================
// Service Definition
// ========================================================

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	campaigns   repository.Repository[Campaign]
	bonusTiers  repository.Repository[GMVBonusTier]
	leaderboard repository.Repository[LeaderboardBonus]
}

type ServiceParams struct {
	fx.In

	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:          p.DB,
		node:        p.Node,
		campaigns:   repository.ProvideStore[Campaign](p.DB),
		bonusTiers:  repository.ProvideStore[GMVBonusTier](p.DB),
		leaderboard: repository.ProvideStore[LeaderboardBonus](p.DB),
	}
}

// ========================================================
// Configuration intake
// ========================================================

type CreateInput struct {
	Name               string
	Description        string
	PayoutModel        PayoutModel
	BasePayoutPerPost  decimal.Decimal
	GMVCommissionRate  decimal.Decimal
	StartAt            *time.Time
	EndAt              *time.Time
	BonusTiers         []*GMVBonusTier
	LeaderboardBonuses []*LeaderboardBonus
}

// Create persists a campaign payout configuration after validation. The
// bonus tables are stored alongside the campaign in one transaction.
func (s *Service) Create(ctx context.Context, in CreateInput) (*PayoutConfig, error) {
	id := s.node.Generate().String()

	c := &Campaign{
		CampaignID:        id,
		Code:              fmt.Sprintf("%s-%s", slug.Make(in.Name), id[len(id)-6:]),
		Name:              in.Name,
		Description:       in.Description,
		PayoutModel:       in.PayoutModel,
		BasePayoutPerPost: in.BasePayoutPerPost,
		GMVCommissionRate: in.GMVCommissionRate,
		Status:            StatusDraft,
		StartAt:           in.StartAt,
		EndAt:             in.EndAt,
	}

	for _, tier := range in.BonusTiers {
		tier.ID = s.node.Generate().String()
		tier.CampaignID = id
	}
	for _, bonus := range in.LeaderboardBonuses {
		bonus.ID = s.node.Generate().String()
		bonus.CampaignID = id
	}

	cfg := &PayoutConfig{
		Campaign:           c,
		BonusTiers:         in.BonusTiers,
		LeaderboardBonuses: in.LeaderboardBonuses,
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.campaigns.WithTrx(tx).Create(ctx, c); err != nil {
			return err
		}
		if err := s.bonusTiers.WithTrx(tx).BatchCreate(ctx, in.BonusTiers); err != nil {
			return err
		}
		return s.leaderboard.WithTrx(tx).BatchCreate(ctx, in.LeaderboardBonuses)
	}); err != nil {
		zap.L().Error("failed to create campaign", zap.Error(err))
		return nil, err
	}

	return cfg, nil
}

// ========================================================

func (s *Service) Get(ctx context.Context, campaignID string) (*Campaign, error) {
	record, err := s.campaigns.FindOne(ctx, &Campaign{CampaignID: campaignID})
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, errutil.NotFound("campaign not found", nil)
	}
	return record, nil
}

// GetConfig reads the campaign plus both bonus tables. Overlapping tiers in
// stored data are reported as a data-quality problem but the config is still
// returned; evaluation-time tie-break handles them deterministically.
func (s *Service) GetConfig(ctx context.Context, campaignID string) (*PayoutConfig, error) {
	c, err := s.Get(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	tiers, err := s.bonusTiers.Find(ctx, &GMVBonusTier{CampaignID: campaignID})
	if err != nil {
		return nil, err
	}

	bonuses, err := s.leaderboard.Find(ctx, &LeaderboardBonus{CampaignID: campaignID})
	if err != nil {
		return nil, err
	}

	cfg := &PayoutConfig{
		Campaign:           c,
		BonusTiers:         tiers,
		LeaderboardBonuses: bonuses,
	}

	if err := ValidateConfig(cfg); err != nil {
		zap.L().Error("stored campaign config fails validation",
			zap.String("campaign_id", campaignID),
			zap.Error(err),
		)
	}

	return cfg, nil
}

// ========================================================

func (s *Service) ListActive(ctx context.Context) ([]*Campaign, error) {
	var active []Campaign
	now := time.Now()

	if err := s.db.WithContext(ctx).
		Where("status = ?", StatusActive).
		Where("(start_at IS NULL OR start_at <= ?) AND (end_at IS NULL OR end_at >= ?)", now, now).
		Find(&active).Error; err != nil {
		return nil, err
	}

	out := make([]*Campaign, 0, len(active))
	for i := range active {
		out = append(out, &active[i])
	}
	return out, nil
}

func (s *Service) SetStatus(ctx context.Context, campaignID string, status Status) error {
	res := s.db.WithContext(ctx).
		Model(&Campaign{}).
		Where("campaign_id = ?", campaignID).
		Updates(map[string]any{"status": status, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errutil.NotFound("campaign not found", nil)
	}
	return nil
}

// ========================================================
// Validation
// ========================================================

// ValidateConfig enforces the configuration-time invariants: non-negative
// rates, non-overlapping bonus tiers, well-formed leaderboard ranges.
func ValidateConfig(cfg *PayoutConfig) error {
	c := cfg.Campaign
	switch c.PayoutModel {
	case PayoutFixedPerPost, PayoutGMVCommission, PayoutHybrid, PayoutRetainerGMV:
	default:
		return errutil.ValidationFailed("unknown payout model", nil,
			errutil.WithDetails(errutil.Detail{Field: "payout_model", Message: string(c.PayoutModel)}))
	}
	if c.BasePayoutPerPost.IsNegative() {
		return errutil.ValidationFailed("base payout per post must not be negative", nil)
	}
	if c.GMVCommissionRate.IsNegative() {
		return errutil.ValidationFailed("commission rate must not be negative", nil)
	}

	if err := validateBonusTiers(cfg.BonusTiers); err != nil {
		return err
	}
	return validateLeaderboardBonuses(cfg.LeaderboardBonuses)
}

func validateBonusTiers(tiers []*GMVBonusTier) error {
	for _, tier := range tiers {
		switch tier.BonusType {
		case BonusFlatAmount, BonusCommissionIncrease:
		default:
			return errutil.ValidationFailed("unknown bonus type", nil,
				errutil.WithDetails(errutil.Detail{Field: "bonus_type", Message: string(tier.BonusType)}))
		}
		if tier.MinGMV.IsNegative() {
			return errutil.ValidationFailed("min_gmv must not be negative", nil)
		}
		if tier.MaxGMV != nil && tier.MaxGMV.LessThan(tier.MinGMV) {
			return errutil.ValidationFailed("max_gmv must not be below min_gmv", nil)
		}
	}

	sorted := make([]*GMVBonusTier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MinGMV.LessThan(sorted[j].MinGMV)
	})

	for i := 1; i < len(sorted); i++ {
		prev := sorted[i-1]
		// An unbounded tier below another tier always overlaps it.
		if prev.MaxGMV == nil || !sorted[i].MinGMV.GreaterThan(*prev.MaxGMV) {
			return errutil.DataQuality("overlapping gmv bonus tiers", nil,
				errutil.WithDetails(
					errutil.Detail{Field: "min_gmv", Message: sorted[i].MinGMV.String()},
				))
		}
	}
	return nil
}

func validateLeaderboardBonuses(bonuses []*LeaderboardBonus) error {
	for _, bonus := range bonuses {
		switch bonus.MetricType {
		case MetricGMV, MetricPosts, MetricEngagement:
		default:
			return errutil.ValidationFailed("unknown leaderboard metric", nil,
				errutil.WithDetails(errutil.Detail{Field: "metric_type", Message: string(bonus.MetricType)}))
		}
		if bonus.PositionStart < 1 {
			return errutil.ValidationFailed("position_start must be at least 1", nil)
		}
		if bonus.PositionEnd < bonus.PositionStart {
			return errutil.ValidationFailed("position_end must not be below position_start", nil)
		}
		if bonus.BonusAmount.IsNegative() {
			return errutil.ValidationFailed("bonus_amount must not be negative", nil)
		}
	}
	return nil
}
