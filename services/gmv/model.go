package gmv

import (
	"time"

	"github.com/shopspring/decimal"
)

type DeliverableStatus string

const (
	DeliverableSubmitted DeliverableStatus = "SUBMITTED"
	DeliverableApproved  DeliverableStatus = "APPROVED"
	DeliverableRejected  DeliverableStatus = "REJECTED"
)

// SaleRecord is one sale attributed to a creator. Rows are written by the
// order-source sync; this engine only reads them.
type SaleRecord struct {
	ID         string          `gorm:"column:id;primaryKey;type:char(26)"`
	CreatorID  string          `gorm:"column:creator_id;index;not null"`
	CampaignID string          `gorm:"column:campaign_id;index;not null"`
	OrderID    string          `gorm:"column:order_id;index"`
	Amount     decimal.Decimal `gorm:"column:amount;type:numeric(20,4);not null"`
	OccurredAt time.Time       `gorm:"column:occurred_at;index;not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (SaleRecord) TableName() string {
	return "sale_records"
}

// DeliverableRecord is one piece of content submitted against a campaign
// obligation, written by the deliverable-source sync.
type DeliverableRecord struct {
	ID            string            `gorm:"column:id;primaryKey;type:char(26)"`
	CreatorID     string            `gorm:"column:creator_id;index;not null"`
	CampaignID    string            `gorm:"column:campaign_id;index;not null"`
	ApplicationID string            `gorm:"column:application_id;index"`
	Status        DeliverableStatus `gorm:"column:status;type:varchar(20);not null;default:'SUBMITTED'"`
	SubmittedAt   time.Time         `gorm:"column:submitted_at;not null"`
	ApprovedAt    *time.Time        `gorm:"column:approved_at"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (DeliverableRecord) TableName() string {
	return "deliverable_records"
}

// Growth is the percent change between the most recent window and the
// preceding equal-length window. Undefined marks growth from a zero base
// (the "infinite growth" case) so callers never see a division by zero.
type Growth struct {
	Percent   float64
	Undefined bool
}
