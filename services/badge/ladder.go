package badge

import (
	"github.com/shopspring/decimal"

	"creator-engine/pkg/errutil"
)

// Tier is one rung of the achievement ladder. The ladder is static
// configuration: totally ordered by rank, strictly increasing thresholds.
type Tier struct {
	Type      string
	Name      string
	Rank      int
	Threshold decimal.Decimal
}

// DefaultLadder is the production achievement ladder.
func DefaultLadder() []Tier {
	return []Tier{
		{Type: "bronze", Name: "Bronze Creator", Rank: 1, Threshold: decimal.NewFromInt(1_000)},
		{Type: "silver", Name: "Silver Creator", Rank: 2, Threshold: decimal.NewFromInt(5_000)},
		{Type: "gold", Name: "Gold Creator", Rank: 3, Threshold: decimal.NewFromInt(10_000)},
		{Type: "platinum", Name: "Platinum Creator", Rank: 4, Threshold: decimal.NewFromInt(50_000)},
		{Type: "diamond", Name: "Diamond Creator", Rank: 5, Threshold: decimal.NewFromInt(100_000)},
	}
}

// validateLadder rejects ladders that break the ordering invariants: ranks
// and badge types must be unique, thresholds strictly increasing.
func validateLadder(ladder []Tier) error {
	if len(ladder) == 0 {
		return errutil.ValidationFailed("badge ladder is empty", nil)
	}

	types := make(map[string]bool, len(ladder))
	for i, tier := range ladder {
		if tier.Type == "" {
			return errutil.ValidationFailed("badge tier missing type", nil)
		}
		if types[tier.Type] {
			return errutil.ValidationFailed("duplicate badge type in ladder", nil,
				errutil.WithDetails(errutil.Detail{Field: "badge_type", Message: tier.Type}))
		}
		types[tier.Type] = true

		if i == 0 {
			continue
		}
		if ladder[i-1].Rank >= tier.Rank {
			return errutil.ValidationFailed("badge ladder ranks must be strictly increasing", nil)
		}
		if ladder[i-1].Threshold.GreaterThanOrEqual(tier.Threshold) {
			return errutil.ValidationFailed("badge ladder thresholds must be strictly increasing", nil)
		}
	}
	return nil
}

func (s *Service) tierByType(badgeType string) (Tier, bool) {
	for _, tier := range s.ladder {
		if tier.Type == badgeType {
			return tier, true
		}
	}
	return Tier{}, false
}
