package badge

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"creator-engine/pkg/errutil"
	"creator-engine/services/creator"
	"creator-engine/services/gmv"
	"creator-engine/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	db := testutil.NewTestDB(t,
		&creator.Creator{},
		&gmv.SaleRecord{},
		&gmv.DeliverableRecord{},
		&CreatorBadge{},
	)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	gmvSvc := gmv.NewService(gmv.ServiceParams{DB: db})
	svc, err := NewService(ServiceParams{DB: db, Node: node, GMV: gmvSvc})
	require.NoError(t, err)
	return svc, db
}

func seedCreator(t *testing.T, db *gorm.DB, id string, currentGMV string) {
	t.Helper()
	require.NoError(t, db.Create(&creator.Creator{
		CreatorID:   id,
		DisplayName: "Creator " + id,
		Status:      creator.StatusActive,
		CurrentGMV:  decimal.RequireFromString(currentGMV),
	}).Error)
}

func badgeTypes(tiers []Tier) []string {
	out := make([]string, 0, len(tiers))
	for _, tier := range tiers {
		out = append(out, tier.Type)
	}
	return out
}

func TestCheckAndAssignZeroGMVAssignsNothing(t *testing.T) {
	s, db := newTestService(t)
	seedCreator(t, db, "creator-1", "0")

	newly, err := s.CheckAndAssign(context.Background(), "creator-1", decimal.Zero)
	require.NoError(t, err)
	require.Empty(t, newly)

	earned, err := s.EarnedBadges(context.Background(), "creator-1")
	require.NoError(t, err)
	require.Empty(t, earned)
}

func TestCheckAndAssignCrossesFirstThreshold(t *testing.T) {
	s, db := newTestService(t)
	seedCreator(t, db, "creator-1", "0")

	newly, err := s.CheckAndAssign(context.Background(), "creator-1", decimal.NewFromInt(1200))
	require.NoError(t, err)
	require.Equal(t, []string{"bronze"}, badgeTypes(newly))

	// A second run over the same GMV assigns nothing new.
	newly, err = s.CheckAndAssign(context.Background(), "creator-1", decimal.NewFromInt(1200))
	require.NoError(t, err)
	require.Empty(t, newly)

	earned, err := s.EarnedBadges(context.Background(), "creator-1")
	require.NoError(t, err)
	require.Len(t, earned, 1)
	require.Equal(t, "bronze", earned[0].BadgeType)
}

func TestCheckAndAssignCrossesSeveralThresholdsAtOnce(t *testing.T) {
	s, db := newTestService(t)
	seedCreator(t, db, "creator-1", "0")

	newly, err := s.CheckAndAssign(context.Background(), "creator-1", decimal.NewFromInt(12000))
	require.NoError(t, err)
	require.Equal(t, []string{"bronze", "silver", "gold"}, badgeTypes(newly))
}

func TestCheckAndAssignExactThresholdCounts(t *testing.T) {
	s, db := newTestService(t)
	seedCreator(t, db, "creator-1", "0")

	newly, err := s.CheckAndAssign(context.Background(), "creator-1", decimal.NewFromInt(1000))
	require.NoError(t, err)
	require.Equal(t, []string{"bronze"}, badgeTypes(newly))
}

func TestCheckAndAssignNeverRemovesBadges(t *testing.T) {
	s, db := newTestService(t)
	seedCreator(t, db, "creator-1", "0")

	_, err := s.CheckAndAssign(context.Background(), "creator-1", decimal.NewFromInt(6000))
	require.NoError(t, err)

	// GMV dropping below earned thresholds leaves the badge log untouched.
	newly, err := s.CheckAndAssign(context.Background(), "creator-1", decimal.NewFromInt(100))
	require.NoError(t, err)
	require.Empty(t, newly)

	earned, err := s.EarnedBadges(context.Background(), "creator-1")
	require.NoError(t, err)
	require.Len(t, earned, 2)
}

func TestCheckAndAssignStoresAggregate(t *testing.T) {
	s, db := newTestService(t)
	seedCreator(t, db, "creator-1", "0")

	_, err := s.CheckAndAssign(context.Background(), "creator-1", decimal.NewFromInt(1200))
	require.NoError(t, err)

	var record creator.Creator
	require.NoError(t, db.Where("creator_id = ?", "creator-1").First(&record).Error)
	require.True(t, record.CurrentGMV.Equal(decimal.NewFromInt(1200)))
	require.Equal(t, int64(1), record.GMVVersion)
}

func TestCheckAndAssignUnknownCreator(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.CheckAndAssign(context.Background(), "missing", decimal.NewFromInt(1200))
	require.Error(t, err)

	var base errutil.BaseError
	require.ErrorAs(t, err, &base)
	require.Equal(t, errutil.StatusNotFound, base.Code)
}

func TestOverallProgressFreshCreator(t *testing.T) {
	s, db := newTestService(t)
	seedCreator(t, db, "creator-1", "0")

	summary, err := s.OverallProgress(context.Background(), "creator-1")
	require.NoError(t, err)
	require.Nil(t, summary.CurrentTier)
	require.NotNil(t, summary.NextTier)
	require.Equal(t, "bronze", summary.NextTier.Type)
	require.Zero(t, summary.ProgressPercent)
	require.True(t, summary.RemainingGMV.Equal(decimal.NewFromInt(1000)))
}

func TestOverallProgressMidLadder(t *testing.T) {
	s, db := newTestService(t)
	seedCreator(t, db, "creator-1", "0")

	_, err := s.CheckAndAssign(context.Background(), "creator-1", decimal.NewFromInt(2500))
	require.NoError(t, err)

	summary, err := s.OverallProgress(context.Background(), "creator-1")
	require.NoError(t, err)
	require.NotNil(t, summary.CurrentTier)
	require.Equal(t, "bronze", summary.CurrentTier.Type)
	require.NotNil(t, summary.NextTier)
	require.Equal(t, "silver", summary.NextTier.Type)
	require.InDelta(t, 50.0, summary.ProgressPercent, 0.0001)
	require.True(t, summary.RemainingGMV.Equal(decimal.NewFromInt(2500)))
}

func TestOverallProgressLadderComplete(t *testing.T) {
	s, db := newTestService(t)
	seedCreator(t, db, "creator-1", "0")

	_, err := s.CheckAndAssign(context.Background(), "creator-1", decimal.NewFromInt(150000))
	require.NoError(t, err)

	summary, err := s.OverallProgress(context.Background(), "creator-1")
	require.NoError(t, err)
	require.NotNil(t, summary.CurrentTier)
	require.Equal(t, "diamond", summary.CurrentTier.Type)
	require.Nil(t, summary.NextTier)
	require.Equal(t, 100.0, summary.ProgressPercent)
	require.True(t, summary.RemainingGMV.IsZero())
}

func TestProgressEarnedTierIsFull(t *testing.T) {
	s, db := newTestService(t)
	seedCreator(t, db, "creator-1", "0")

	_, err := s.CheckAndAssign(context.Background(), "creator-1", decimal.NewFromInt(1500))
	require.NoError(t, err)

	progress, err := s.Progress(context.Background(), "creator-1", "bronze")
	require.NoError(t, err)
	require.True(t, progress.Earned)
	require.Equal(t, 100.0, progress.ProgressPercent)
	require.True(t, progress.RemainingGMV.IsZero())
}

func TestProgressUnearnedTierCapsBelowFull(t *testing.T) {
	s, db := newTestService(t)
	// Aggregate already past the threshold but assignment has not run.
	seedCreator(t, db, "creator-1", "1500")

	progress, err := s.Progress(context.Background(), "creator-1", "bronze")
	require.NoError(t, err)
	require.False(t, progress.Earned)
	require.Equal(t, 99.9, progress.ProgressPercent)
	require.True(t, progress.RemainingGMV.IsZero())
}

func TestProgressUnknownBadgeType(t *testing.T) {
	s, db := newTestService(t)
	seedCreator(t, db, "creator-1", "0")

	_, err := s.Progress(context.Background(), "creator-1", "mythril")
	require.Error(t, err)

	var base errutil.BaseError
	require.ErrorAs(t, err, &base)
	require.Equal(t, errutil.StatusBadRequest, base.Code)
}

func TestCustomLadderValidation(t *testing.T) {
	db := testutil.NewTestDB(t, &creator.Creator{}, &CreatorBadge{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	gmvSvc := gmv.NewService(gmv.ServiceParams{DB: db})

	_, err = NewService(ServiceParams{
		DB:   db,
		Node: node,
		GMV:  gmvSvc,
		Ladder: []Tier{
			{Type: "first", Name: "First", Rank: 1, Threshold: decimal.NewFromInt(500)},
			{Type: "second", Name: "Second", Rank: 2, Threshold: decimal.NewFromInt(400)},
		},
	})
	require.Error(t, err)
}

func TestBadgeLogRecordsThresholdAtTime(t *testing.T) {
	s, db := newTestService(t)
	seedCreator(t, db, "creator-1", "0")

	before := time.Now().Add(-time.Second)
	_, err := s.CheckAndAssign(context.Background(), "creator-1", decimal.NewFromInt(1200))
	require.NoError(t, err)

	earned, err := s.EarnedBadges(context.Background(), "creator-1")
	require.NoError(t, err)
	require.Len(t, earned, 1)
	require.True(t, earned[0].GMVAtThreshold.Equal(decimal.NewFromInt(1000)))
	require.True(t, earned[0].EarnedAt.After(before))
	require.NotEmpty(t, earned[0].ID)
}
