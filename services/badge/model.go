package badge

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreatorBadge is the append-only achievement log. A row is created exactly
// once when a threshold is first crossed and never mutated or deleted; the
// unique index on (creator_id, badge_type) is what makes assignment
// idempotent under concurrent runs.
type CreatorBadge struct {
	ID             string          `gorm:"column:id;primaryKey;type:char(26)"`
	CreatorID      string          `gorm:"column:creator_id;uniqueIndex:idx_creator_badge;not null"`
	BadgeType      string          `gorm:"column:badge_type;uniqueIndex:idx_creator_badge;type:varchar(50);not null"`
	EarnedAt       time.Time       `gorm:"column:earned_at;not null"`
	GMVAtThreshold decimal.Decimal `gorm:"column:gmv_threshold_at_time;type:numeric(20,4);not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (CreatorBadge) TableName() string {
	return "creator_badges"
}

// ProgressSummary describes where a creator sits on the ladder.
type ProgressSummary struct {
	CurrentTier     *Tier
	NextTier        *Tier
	ProgressPercent float64
	RemainingGMV    decimal.Decimal
}

// TierProgress is the per-badge variant. Percent is capped at 99.9 while
// unearned; 100 is reserved for the earned state.
type TierProgress struct {
	Tier            Tier
	Earned          bool
	ProgressPercent float64
	RemainingGMV    decimal.Decimal
}

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNoData Confidence = "no_data"
)

// PaceEstimate is computed on demand and never persisted.
type PaceEstimate struct {
	BadgeType         string
	IsAchieved        bool
	DaysToAchieve     *int
	EstimatedDate     *time.Time
	Confidence        Confidence
	AvgDailyGMV       decimal.Decimal
	RemainingGMV      decimal.Decimal
	RequiredDailyPace map[int]decimal.Decimal
}
