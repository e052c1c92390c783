package badge

import (
	"context"
	"time"

	"creator-engine/pkg/errutil"
	"creator-engine/services/creator"

	"github.com/shopspring/decimal"
)

// paceHorizons are the fixed "what pace would I need" display horizons.
var paceHorizons = []int{30, 60, 90}

// EstimateTimeToBadge projects calendar time to an unearned tier from the
// creator's historical daily average over the lookback window. The ETA math
// never divides by zero: a non-positive average yields the no_data result.
func (s *Service) EstimateTimeToBadge(ctx context.Context, creatorID, badgeType string, lookbackDays int) (*PaceEstimate, error) {
	tier, ok := s.tierByType(badgeType)
	if !ok {
		return nil, errutil.BadRequest("unknown badge type", nil,
			errutil.WithDetails(errutil.Detail{Field: "badge_type", Message: badgeType}))
	}
	if lookbackDays <= 0 {
		return nil, errutil.BadRequest("lookbackDays must be positive", nil)
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
	if existing != nil {
		zero := 0
		return &PaceEstimate{
			BadgeType:     badgeType,
			IsAchieved:    true,
			DaysToAchieve: &zero,
			Confidence:    classifyConfidence(lookbackDays),
			RemainingGMV:  decimal.Zero,
		}, nil
	}

	remaining := tier.Threshold.Sub(record.CurrentGMV)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	estimate := &PaceEstimate{
		BadgeType:         badgeType,
		RemainingGMV:      remaining,
		RequiredDailyPace: requiredDailyPace(remaining),
	}

	avgDaily, err := s.gmv.AverageDailyGMV(ctx, creatorID, lookbackDays)
	if err != nil {
		return nil, err
	}
	estimate.AvgDailyGMV = avgDaily

	if avgDaily.LessThanOrEqual(decimal.Zero) {
		estimate.Confidence = ConfidenceNoData
		return estimate, nil
	}

	days := int(remaining.Div(avgDaily).Ceil().IntPart())
	eta := time.Now().AddDate(0, 0, days)

	estimate.DaysToAchieve = &days
	estimate.EstimatedDate = &eta
	estimate.Confidence = classifyConfidence(lookbackDays)
	return estimate, nil
}

// requiredDailyPace is independent of the ETA: it answers "what daily average
// would reach the threshold within each fixed horizon".
func requiredDailyPace(remaining decimal.Decimal) map[int]decimal.Decimal {
	pace := make(map[int]decimal.Decimal, len(paceHorizons))
	for _, horizon := range paceHorizons {
		pace[horizon] = remaining.Div(decimal.NewFromInt(int64(horizon)))
	}
	return pace
}

// classifyConfidence buckets purely on lookback length; it does not account
// for variance of the daily series.
func classifyConfidence(lookbackDays int) Confidence {
	switch {
	case lookbackDays >= 60:
		return ConfidenceHigh
	case lookbackDays >= 30:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
