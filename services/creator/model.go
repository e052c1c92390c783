package creator

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// Creator carries the identity fields the engine reads plus the cached
// lifetime GMV aggregate it owns. CurrentGMV is monotonically non-decreasing
// under normal operation; GMVVersion guards the read-modify-write cycle so
// concurrent recomputations cannot tear the aggregate.
type Creator struct {
	CreatorID    string          `gorm:"column:creator_id;primaryKey;type:char(26)"`
	DisplayName  string          `gorm:"column:display_name;type:varchar(255);not null"`
	Status       Status          `gorm:"column:status;type:varchar(20);not null;default:'ACTIVE'"`
	CurrentGMV   decimal.Decimal `gorm:"column:current_gmv;type:numeric(20,4);not null;default:0"`
	GMVVersion   int64           `gorm:"column:gmv_version;not null;default:0"`
	RegisteredAt time.Time       `gorm:"column:registered_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Creator) TableName() string {
	return "creators"
}

// Update enumerates every field the engine is allowed to mutate outside the
// aggregate pipeline. Nil means "leave unchanged"; unknown fields are
// impossible by construction.
type Update struct {
	DisplayName *string
	Status      *Status
}
