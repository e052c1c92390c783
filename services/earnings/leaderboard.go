package earnings

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"creator-engine/pkg/rediskey"
	"creator-engine/services/campaign"
	"creator-engine/services/creator"
	"creator-engine/services/gmv"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type metricRow struct {
	CreatorID string          `gorm:"column:creator_id"`
	Score     decimal.Decimal `gorm:"column:score"`
}

// RankCreators ranks every creator with activity in a campaign by the given
// metric, descending. Ties are broken by earliest registration, then by
// creator id — an arbitrary but deterministic policy. Results are cached in
// redis for the configured TTL since a batch run asks for the same board once
// per creator.
func (s *Service) RankCreators(ctx context.Context, campaignID string, metric campaign.MetricType) ([]RankedCreator, error) {
	if cached := s.cachedBoard(ctx, campaignID, metric); cached != nil {
		return cached, nil
	}

	rows, err := s.metricRows(ctx, campaignID, metric)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	registered := make(map[string]time.Time, len(rows))
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.CreatorID)
	}
	var creators []creator.Creator
	if err := s.db.WithContext(ctx).Where("creator_id IN ?", ids).Find(&creators).Error; err != nil {
		return nil, err
	}
	for _, c := range creators {
		registered[c.CreatorID] = c.RegisteredAt
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Score.Equal(rows[j].Score) {
			return rows[i].Score.GreaterThan(rows[j].Score)
		}
		ri, rj := registered[rows[i].CreatorID], registered[rows[j].CreatorID]
		if !ri.Equal(rj) {
			return ri.Before(rj)
		}
		return rows[i].CreatorID < rows[j].CreatorID
	})

	board := make([]RankedCreator, 0, len(rows))
	for i, row := range rows {
		board = append(board, RankedCreator{
			CreatorID: row.CreatorID,
			Rank:      i + 1,
			Score:     row.Score,
		})
	}

	s.storeBoard(ctx, campaignID, metric, board)
	return board, nil
}

// RankOf returns a creator's 1-based rank on the campaign leaderboard, or 0
// when the creator has no ranked activity.
func (s *Service) RankOf(ctx context.Context, campaignID string, metric campaign.MetricType, creatorID string) (int, error) {
	board, err := s.RankCreators(ctx, campaignID, metric)
	if err != nil {
		return 0, err
	}
	for _, entry := range board {
		if entry.CreatorID == creatorID {
			return entry.Rank, nil
		}
	}
	return 0, nil
}

// InvalidateBoards drops the cached leaderboards for the given campaigns so
// the next ranking query sees current sales and deliverables. A recompute run
// calls this up front; within the run the boards can still age up to the
// cache TTL, which is an accepted staleness window.
func (s *Service) InvalidateBoards(ctx context.Context, campaignIDs ...string) {
	if s.redis == nil || len(campaignIDs) == 0 {
		return
	}

	metrics := []campaign.MetricType{campaign.MetricGMV, campaign.MetricPosts, campaign.MetricEngagement}
	keys := make([]string, 0, len(campaignIDs)*len(metrics))
	for _, id := range campaignIDs {
		for _, metric := range metrics {
			keys = append(keys, rediskey.BuildLeaderboardKey(id, string(metric)))
		}
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		zap.L().Warn("failed to invalidate leaderboard cache", zap.Error(err))
	}
}

func (s *Service) metricRows(ctx context.Context, campaignID string, metric campaign.MetricType) ([]metricRow, error) {
	var rows []metricRow
	switch metric {
	case campaign.MetricPosts:
		err := s.db.WithContext(ctx).
			Model(&gmv.DeliverableRecord{}).
			Select("creator_id, COUNT(*) AS score").
			Where("campaign_id = ? AND status = ?", campaignID, gmv.DeliverableApproved).
			Group("creator_id").
			Scan(&rows).Error
		return rows, err
	case campaign.MetricEngagement:
		// Engagement events are not synced yet; attributed sale count is the
		// documented proxy until the engagement feed lands.
		err := s.db.WithContext(ctx).
			Model(&gmv.SaleRecord{}).
			Select("creator_id, COUNT(*) AS score").
			Where("campaign_id = ?", campaignID).
			Group("creator_id").
			Scan(&rows).Error
		return rows, err
	default:
		err := s.db.WithContext(ctx).
			Model(&gmv.SaleRecord{}).
			Select("creator_id, SUM(amount) AS score").
			Where("campaign_id = ?", campaignID).
			Group("creator_id").
			Scan(&rows).Error
		return rows, err
	}
}

func (s *Service) cachedBoard(ctx context.Context, campaignID string, metric campaign.MetricType) []RankedCreator {
	if s.redis == nil {
		return nil
	}

	payload, err := s.redis.Get(ctx, rediskey.BuildLeaderboardKey(campaignID, string(metric))).Bytes()
	if err != nil {
		if err != redis.Nil {
			zap.L().Warn("failed to read leaderboard cache", zap.Error(err))
		}
		return nil
	}

	var board []RankedCreator
	if err := json.Unmarshal(payload, &board); err != nil {
		zap.L().Warn("corrupt leaderboard cache entry", zap.Error(err))
		return nil
	}
	return board
}

func (s *Service) storeBoard(ctx context.Context, campaignID string, metric campaign.MetricType, board []RankedCreator) {
	if s.redis == nil || len(board) == 0 {
		return
	}

	payload, err := json.Marshal(board)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, rediskey.BuildLeaderboardKey(campaignID, string(metric)), payload, s.cacheTTL).Err(); err != nil {
		zap.L().Warn("failed to write leaderboard cache", zap.Error(err))
	}
}
