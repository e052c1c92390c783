package earnings

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"creator-engine/services/campaign"
)

// CreatorEarnings is the per (creator, campaign, application) payout record.
// It is recomputed in place on every run: an upsert, never an append.
// TotalPaid is monotonic and only moved by the payout subsystem.
type CreatorEarnings struct {
	ID               string          `gorm:"column:id;primaryKey;type:char(26)"`
	CreatorID        string          `gorm:"column:creator_id;uniqueIndex:idx_earnings_scope;not null"`
	CampaignID       string          `gorm:"column:campaign_id;uniqueIndex:idx_earnings_scope;not null"`
	ApplicationID    string          `gorm:"column:application_id;uniqueIndex:idx_earnings_scope;not null"`
	BaseEarnings     decimal.Decimal `gorm:"column:base_earnings;type:numeric(20,2);not null;default:0"`
	GMVCommission    decimal.Decimal `gorm:"column:gmv_commission;type:numeric(20,2);not null;default:0"`
	BonusEarnings    decimal.Decimal `gorm:"column:bonus_earnings;type:numeric(20,2);not null;default:0"`
	ReferralEarnings decimal.Decimal `gorm:"column:referral_earnings;type:numeric(20,2);not null;default:0"`
	TotalEarnings    decimal.Decimal `gorm:"column:total_earnings;type:numeric(20,2);not null;default:0"`
	TotalPaid        decimal.Decimal `gorm:"column:total_paid;type:numeric(20,2);not null;default:0"`
	PendingPayment   decimal.Decimal `gorm:"column:pending_payment;type:numeric(20,2);not null;default:0"`
	Metadata         datatypes.JSON  `gorm:"column:metadata"`
	RecomputedAt     time.Time       `gorm:"column:recomputed_at"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (CreatorEarnings) TableName() string {
	return "creator_earnings"
}

// ResolvedBonus is the typed result of GMV-tier resolution. Amount is the
// bonus contribution already evaluated against the GMV value; Type records
// which kind of tier matched so consumers can distinguish a flat grant from
// a commission increase.
type ResolvedBonus struct {
	Tier   *campaign.GMVBonusTier
	Type   campaign.BonusType
	Amount decimal.Decimal
}

// RankedCreator is one leaderboard row. Rank is 1-based.
type RankedCreator struct {
	CreatorID string          `json:"creator_id"`
	Rank      int             `json:"rank"`
	Score     decimal.Decimal `json:"score"`
}

// ComputeInput is everything Compute needs besides leaderboard state.
type ComputeInput struct {
	CreatorID             string
	ApplicationID         string
	Config                *campaign.PayoutConfig
	DeliverablesCompleted int64
	GMVGenerated          decimal.Decimal
}

// Breakdown is the rounded result of one computation. The four component
// fields are rounded half-up to 2dp; TotalEarnings is their exact sum, so
// re-summing the rounded fields never drifts.
type Breakdown struct {
	CreatorID        string
	CampaignID       string
	ApplicationID    string
	BaseEarnings     decimal.Decimal
	GMVCommission    decimal.Decimal
	BonusEarnings    decimal.Decimal
	ReferralEarnings decimal.Decimal
	TotalEarnings    decimal.Decimal

	MatchedBonus     *ResolvedBonus
	LeaderboardBonus decimal.Decimal
	LeaderboardRanks map[campaign.MetricType]int
}
