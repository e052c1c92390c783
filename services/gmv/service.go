package gmv

import (
	"context"
	"time"

	"creator-engine/pkg/errutil"
	"creator-engine/pkg/repository"
	"creator-engine/services/creator"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db *gorm.DB

	sales        repository.Repository[SaleRecord]
	deliverables repository.Repository[DeliverableRecord]
	creators     repository.Repository[creator.Creator]
}

type ServiceParams struct {
	fx.In

	DB *gorm.DB
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:           p.DB,
		sales:        repository.ProvideStore[SaleRecord](p.DB),
		deliverables: repository.ProvideStore[DeliverableRecord](p.DB),
		creators:     repository.ProvideStore[creator.Creator](p.DB),
	}
}

// TotalGMV returns the lifetime sales volume attributed to a creator. When
// the sale store is unreachable it degrades to the creator's cached
// aggregate instead of failing the whole computation chain.
func (s *Service) TotalGMV(ctx context.Context, creatorID string) (decimal.Decimal, error) {
	span := trace.SpanFromContext(ctx)
	traceID := span.SpanContext().TraceID().String()

	total, err := s.sumSales(ctx, s.db.WithContext(ctx).
		Model(&SaleRecord{}).
		Where("creator_id = ?", creatorID))
	if err == nil {
		return total, nil
	}

	cached, cacheErr := s.creators.FindOne(ctx, &creator.Creator{CreatorID: creatorID})
	if cacheErr != nil || cached == nil {
		return decimal.Zero, err
	}

	zap.L().Warn("sale store unavailable, serving cached GMV aggregate",
		zap.String("trace_id", traceID),
		zap.String("creator_id", creatorID),
		zap.String("cached_gmv", cached.CurrentGMV.String()),
		zap.Error(err),
	)
	return cached.CurrentGMV, nil
}

// PeriodGMV sums sales within [start, end).
func (s *Service) PeriodGMV(ctx context.Context, creatorID string, start, end time.Time) (decimal.Decimal, error) {
	return s.sumSales(ctx, s.db.WithContext(ctx).
		Model(&SaleRecord{}).
		Where("creator_id = ?", creatorID).
		Where("occurred_at >= ? AND occurred_at < ?", start, end))
}

// CampaignGMV sums a creator's sales attributed to one campaign.
func (s *Service) CampaignGMV(ctx context.Context, creatorID, campaignID string) (decimal.Decimal, error) {
	return s.sumSales(ctx, s.db.WithContext(ctx).
		Model(&SaleRecord{}).
		Where("creator_id = ? AND campaign_id = ?", creatorID, campaignID))
}

func (s *Service) AverageDailyGMV(ctx context.Context, creatorID string, lookbackDays int) (decimal.Decimal, error) {
	if lookbackDays <= 0 {
		return decimal.Zero, errutil.BadRequest("lookbackDays must be positive", nil)
	}

	now := time.Now()
	total, err := s.PeriodGMV(ctx, creatorID, now.AddDate(0, 0, -lookbackDays), now)
	if err != nil {
		return decimal.Zero, err
	}

	return total.Div(decimal.NewFromInt(int64(lookbackDays))), nil
}

// GrowthRate compares the most recent days-long window against the preceding
// equal-length window. A zero previous period yields 0% when the current
// period is also zero, otherwise the undefined-growth sentinel.
func (s *Service) GrowthRate(ctx context.Context, creatorID string, days int) (Growth, error) {
	if days <= 0 {
		return Growth{}, errutil.BadRequest("days must be positive", nil)
	}

	now := time.Now()
	mid := now.AddDate(0, 0, -days)
	prevStart := now.AddDate(0, 0, -2*days)

	current, err := s.PeriodGMV(ctx, creatorID, mid, now)
	if err != nil {
		return Growth{}, err
	}
	previous, err := s.PeriodGMV(ctx, creatorID, prevStart, mid)
	if err != nil {
		return Growth{}, err
	}

	if previous.IsZero() {
		if current.IsZero() {
			return Growth{Percent: 0}, nil
		}
		return Growth{Undefined: true}, nil
	}

	change, _ := current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100)).Float64()
	return Growth{Percent: change}, nil
}

// CountDeliverables counts approved deliverables for a creator on a campaign.
func (s *Service) CountDeliverables(ctx context.Context, creatorID, campaignID string) (int64, error) {
	return s.deliverables.Count(ctx, &DeliverableRecord{
		CreatorID:  creatorID,
		CampaignID: campaignID,
		Status:     DeliverableApproved,
	})
}

// CampaignsForCreator lists the campaigns a creator has activity on, from
// either sales or deliverables.
func (s *Service) CampaignsForCreator(ctx context.Context, creatorID string) ([]string, error) {
	var fromSales []string
	if err := s.db.WithContext(ctx).
		Model(&SaleRecord{}).
		Where("creator_id = ?", creatorID).
		Distinct("campaign_id").
		Pluck("campaign_id", &fromSales).Error; err != nil {
		return nil, err
	}

	var fromDeliverables []string
	if err := s.db.WithContext(ctx).
		Model(&DeliverableRecord{}).
		Where("creator_id = ?", creatorID).
		Distinct("campaign_id").
		Pluck("campaign_id", &fromDeliverables).Error; err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(fromSales)+len(fromDeliverables))
	ids := make([]string, 0, len(fromSales)+len(fromDeliverables))
	for _, id := range append(fromSales, fromDeliverables...) {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// sumSales keeps currency summation on the numeric column; the scan target is
// a fixed-point decimal, never a float.
func (s *Service) sumSales(ctx context.Context, tx *gorm.DB) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	if err := tx.Select("SUM(amount)").Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
