package earnings

import (
	"creator-engine/pkg/money"
	"creator-engine/services/campaign"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ResolveGMVBonus selects the single bonus tier containing the GMV value and
// evaluates its contribution. Selection is total and deterministic: for any
// value exactly one tier matches or none. Overlapping tiers should have been
// rejected at configuration time; when they still show up here the highest
// min_gmv match wins and the overlap is reported as a data-quality error,
// never silently accepted.
func ResolveGMVBonus(tiers []*campaign.GMVBonusTier, gmv decimal.Decimal) *ResolvedBonus {
	var matched []*campaign.GMVBonusTier
	for _, tier := range tiers {
		if tier.Contains(gmv) {
			matched = append(matched, tier)
		}
	}

	if len(matched) == 0 {
		return nil
	}

	winner := matched[0]
	if len(matched) > 1 {
		for _, tier := range matched[1:] {
			if tier.MinGMV.GreaterThan(winner.MinGMV) {
				winner = tier
			}
		}
		zap.L().Error("overlapping gmv bonus tiers at evaluation time",
			zap.String("campaign_id", winner.CampaignID),
			zap.String("gmv", gmv.String()),
			zap.Int("matched", len(matched)),
			zap.String("winner_min_gmv", winner.MinGMV.String()),
		)
	}

	resolved := &ResolvedBonus{
		Tier: winner,
		Type: winner.BonusType,
	}
	switch winner.BonusType {
	case campaign.BonusCommissionIncrease:
		// The value is an additional commission rate, applied to the GMV
		// that qualified for the tier.
		resolved.Amount = money.PercentOf(gmv, winner.BonusValue)
	default:
		resolved.Amount = winner.BonusValue
	}
	return resolved
}

// ResolveLeaderboardBonus sums the bonus amounts of every range the creator's
// ranks fall into. Each range is keyed by its own metric: a rank on gmv never
// satisfies a posts-keyed range. A missing or zero rank means unranked on
// that metric.
func ResolveLeaderboardBonus(bonuses []*campaign.LeaderboardBonus, ranks map[campaign.MetricType]int) decimal.Decimal {
	total := decimal.Zero
	for _, bonus := range bonuses {
		rank := ranks[bonus.MetricType]
		if rank < 1 {
			continue
		}
		if rank >= bonus.PositionStart && rank <= bonus.PositionEnd {
			total = total.Add(bonus.BonusAmount)
		}
	}
	return total
}
