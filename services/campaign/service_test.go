package campaign

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"creator-engine/pkg/errutil"
	"creator-engine/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestService(t *testing.T) *Service {
	db := testutil.NewTestDB(t, &Campaign{}, &GMVBonusTier{}, &LeaderboardBonus{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return NewService(ServiceParams{DB: db, Node: node})
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestCreatePersistsFullConfig(t *testing.T) {
	s := newTestService(t)

	cfg, err := s.Create(context.Background(), CreateInput{
		Name:              "Summer Push",
		PayoutModel:       PayoutHybrid,
		BasePayoutPerPost: dec("75"),
		GMVCommissionRate: dec("8"),
		BonusTiers: []*GMVBonusTier{
			{MinGMV: dec("1000"), MaxGMV: decPtr("4999.99"), BonusType: BonusFlatAmount, BonusValue: dec("100")},
			{MinGMV: dec("5000"), BonusType: BonusFlatAmount, BonusValue: dec("500")},
		},
		LeaderboardBonuses: []*LeaderboardBonus{
			{PositionStart: 1, PositionEnd: 3, BonusAmount: dec("250"), MetricType: MetricGMV},
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, cfg.Campaign.CampaignID)
	require.Contains(t, cfg.Campaign.Code, "summer-push-")
	require.Equal(t, StatusDraft, cfg.Campaign.Status)

	loaded, err := s.GetConfig(context.Background(), cfg.Campaign.CampaignID)
	require.NoError(t, err)
	require.Len(t, loaded.BonusTiers, 2)
	require.Len(t, loaded.LeaderboardBonuses, 1)
	require.Equal(t, PayoutHybrid, loaded.Campaign.PayoutModel)
}

func TestCreateRejectsOverlappingTiers(t *testing.T) {
	s := newTestService(t)

	_, err := s.Create(context.Background(), CreateInput{
		Name:        "Broken",
		PayoutModel: PayoutFixedPerPost,
		BonusTiers: []*GMVBonusTier{
			{MinGMV: dec("1000"), MaxGMV: decPtr("5000"), BonusType: BonusFlatAmount, BonusValue: dec("100")},
			{MinGMV: dec("4000"), MaxGMV: decPtr("9000"), BonusType: BonusFlatAmount, BonusValue: dec("200")},
		},
	})
	require.Error(t, err)

	var base errutil.BaseError
	require.ErrorAs(t, err, &base)
	require.Equal(t, errutil.StatusDataQuality, base.Code)
}

func TestCreateRejectsUnboundedTierBelowAnother(t *testing.T) {
	s := newTestService(t)

	_, err := s.Create(context.Background(), CreateInput{
		Name:        "Broken",
		PayoutModel: PayoutFixedPerPost,
		BonusTiers: []*GMVBonusTier{
			{MinGMV: dec("1000"), BonusType: BonusFlatAmount, BonusValue: dec("100")},
			{MinGMV: dec("5000"), MaxGMV: decPtr("9000"), BonusType: BonusFlatAmount, BonusValue: dec("200")},
		},
	})
	require.Error(t, err)
}

func TestCreateRejectsInvertedTierRange(t *testing.T) {
	s := newTestService(t)

	_, err := s.Create(context.Background(), CreateInput{
		Name:        "Broken",
		PayoutModel: PayoutFixedPerPost,
		BonusTiers: []*GMVBonusTier{
			{MinGMV: dec("5000"), MaxGMV: decPtr("1000"), BonusType: BonusFlatAmount, BonusValue: dec("100")},
		},
	})
	require.Error(t, err)

	var base errutil.BaseError
	require.ErrorAs(t, err, &base)
	require.Equal(t, errutil.StatusValidationFailed, base.Code)
}

func TestCreateRejectsInvertedLeaderboardRange(t *testing.T) {
	s := newTestService(t)

	_, err := s.Create(context.Background(), CreateInput{
		Name:        "Broken",
		PayoutModel: PayoutFixedPerPost,
		LeaderboardBonuses: []*LeaderboardBonus{
			{PositionStart: 5, PositionEnd: 2, BonusAmount: dec("100"), MetricType: MetricGMV},
		},
	})
	require.Error(t, err)
}

func TestCreateRejectsUnknownPayoutModel(t *testing.T) {
	s := newTestService(t)

	_, err := s.Create(context.Background(), CreateInput{
		Name:        "Broken",
		PayoutModel: PayoutModel("revenue_share"),
	})
	require.Error(t, err)
}

func TestGetConfigMissingCampaign(t *testing.T) {
	s := newTestService(t)

	_, err := s.GetConfig(context.Background(), "missing")
	require.Error(t, err)

	var base errutil.BaseError
	require.ErrorAs(t, err, &base)
	require.Equal(t, errutil.StatusNotFound, base.Code)
}

func TestSetStatusAndListActive(t *testing.T) {
	s := newTestService(t)

	cfg, err := s.Create(context.Background(), CreateInput{
		Name:        "Launch",
		PayoutModel: PayoutFixedPerPost,
	})
	require.NoError(t, err)

	active, err := s.ListActive(context.Background())
	require.NoError(t, err)
	require.Empty(t, active)

	require.NoError(t, s.SetStatus(context.Background(), cfg.Campaign.CampaignID, StatusActive))

	active, err = s.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, cfg.Campaign.CampaignID, active[0].CampaignID)
}

func TestSetStatusMissingCampaign(t *testing.T) {
	s := newTestService(t)

	err := s.SetStatus(context.Background(), "missing", StatusActive)
	require.Error(t, err)
}

func TestBonusTierContainsInclusiveBounds(t *testing.T) {
	tier := &GMVBonusTier{MinGMV: dec("1000"), MaxGMV: decPtr("4999.99")}

	require.False(t, tier.Contains(dec("999.99")))
	require.True(t, tier.Contains(dec("1000")))
	require.True(t, tier.Contains(dec("4999.99")))
	require.False(t, tier.Contains(dec("5000")))

	open := &GMVBonusTier{MinGMV: dec("5000")}
	require.True(t, open.Contains(dec("1000000")))
	require.False(t, open.Contains(dec("4999.99")))
}
