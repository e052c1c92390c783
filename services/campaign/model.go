package campaign

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ENUM-LIKE constants
type PayoutModel string
type BonusType string
type MetricType string
type Status string

const (
	PayoutFixedPerPost  PayoutModel = "fixed_per_post"
	PayoutGMVCommission PayoutModel = "gmv_commission"
	PayoutHybrid        PayoutModel = "hybrid"
	PayoutRetainerGMV   PayoutModel = "retainer_gmv"

	BonusFlatAmount         BonusType = "flat_amount"
	BonusCommissionIncrease BonusType = "commission_increase"

	MetricGMV        MetricType = "gmv"
	MetricPosts      MetricType = "posts"
	MetricEngagement MetricType = "engagement"

	StatusDraft    Status = "DRAFT"
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
	StatusExpired  Status = "EXPIRED"
)

func (m PayoutModel) IncludesBasePay() bool {
	switch m {
	case PayoutFixedPerPost, PayoutHybrid, PayoutRetainerGMV:
		return true
	default:
		return false
	}
}

func (m PayoutModel) IncludesCommission() bool {
	switch m {
	case PayoutGMVCommission, PayoutHybrid, PayoutRetainerGMV:
		return true
	default:
		return false
	}
}

// Campaign holds the payout configuration the engine consumes. The engine
// reads it and validates it; campaign lifecycle beyond that belongs to the
// campaign management surface.
type Campaign struct {
	CampaignID        string          `gorm:"column:campaign_id;primaryKey;type:char(26)"`
	Code              string          `gorm:"column:code;index"`
	Name              string          `gorm:"column:name;type:varchar(255);not null"`
	Description       string          `gorm:"column:description;type:text"`
	PayoutModel       PayoutModel     `gorm:"column:payout_model;type:varchar(50);not null;default:'fixed_per_post'"`
	BasePayoutPerPost decimal.Decimal `gorm:"column:base_payout_per_post;type:numeric(20,4);not null;default:0"`
	GMVCommissionRate decimal.Decimal `gorm:"column:gmv_commission_rate;type:numeric(10,4);not null;default:0"`
	Status            Status          `gorm:"column:status;type:varchar(20);not null;default:'DRAFT'"`
	StartAt           *time.Time      `gorm:"column:start_at"`
	EndAt             *time.Time      `gorm:"column:end_at"`
	Metadata          datatypes.JSON  `gorm:"column:metadata"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Campaign) TableName() string {
	return "campaigns"
}

// IsActive checks if campaign is currently active based on time range & status.
func (c *Campaign) IsActive(now time.Time) bool {
	if c.Status != StatusActive {
		return false
	}
	if c.StartAt != nil && now.Before(*c.StartAt) {
		return false
	}
	if c.EndAt != nil && now.After(*c.EndAt) {
		return false
	}
	return true
}

// GMVBonusTier is one campaign-scoped GMV range granting an extra bonus.
// A nil MaxGMV means unbounded above. Ranges within one campaign must not
// overlap; that is validated at configuration time.
type GMVBonusTier struct {
	ID         string           `gorm:"column:id;primaryKey;type:char(26)"`
	CampaignID string           `gorm:"column:campaign_id;index;not null"`
	MinGMV     decimal.Decimal  `gorm:"column:min_gmv;type:numeric(20,4);not null"`
	MaxGMV     *decimal.Decimal `gorm:"column:max_gmv;type:numeric(20,4)"`
	BonusType  BonusType        `gorm:"column:bonus_type;type:varchar(30);not null"`
	BonusValue decimal.Decimal  `gorm:"column:bonus_value;type:numeric(20,4);not null"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime"`
}

func (GMVBonusTier) TableName() string {
	return "gmv_bonus_tiers"
}

// Contains reports whether value falls inside the tier's range. Both bounds
// are inclusive.
func (t *GMVBonusTier) Contains(value decimal.Decimal) bool {
	if value.LessThan(t.MinGMV) {
		return false
	}
	if t.MaxGMV != nil && value.GreaterThan(*t.MaxGMV) {
		return false
	}
	return true
}

// LeaderboardBonus grants a fixed amount to creators whose campaign rank on
// the configured metric falls within [PositionStart, PositionEnd].
type LeaderboardBonus struct {
	ID            string          `gorm:"column:id;primaryKey;type:char(26)"`
	CampaignID    string          `gorm:"column:campaign_id;index;not null"`
	PositionStart int             `gorm:"column:position_start;not null"`
	PositionEnd   int             `gorm:"column:position_end;not null"`
	BonusAmount   decimal.Decimal `gorm:"column:bonus_amount;type:numeric(20,4);not null"`
	MetricType    MetricType      `gorm:"column:metric_type;type:varchar(20);not null;default:'gmv'"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (LeaderboardBonus) TableName() string {
	return "leaderboard_bonuses"
}

// PayoutConfig is everything the earnings calculator needs for one campaign,
// read in a single call.
type PayoutConfig struct {
	Campaign           *Campaign
	BonusTiers         []*GMVBonusTier
	LeaderboardBonuses []*LeaderboardBonus
}
