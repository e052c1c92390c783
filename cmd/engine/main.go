package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"creator-engine/pkg/config"
	"creator-engine/pkg/db"
	"creator-engine/pkg/logger"
	"creator-engine/pkg/redis"
	"creator-engine/pkg/taskq"
	"creator-engine/services/badge"
	"creator-engine/services/campaign"
	"creator-engine/services/creator"
	"creator-engine/services/earnings"
	"creator-engine/services/gmv"
	"creator-engine/services/recompute"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		taskq.Client,
		taskq.Server,
		fx.Provide(
			provideSnowflakeNode,
		),
		creator.Module,
		gmv.Module,
		badge.Module,
		campaign.Module,
		earnings.Module,
		recompute.Module,
		fx.Invoke(
			migrate,
			db.Otel,
			db.Metric,
			registerHandlers,
		),
		fxLogger,
	)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func provideSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func migrate(gormDB *gorm.DB) error {
	return gormDB.AutoMigrate(
		&creator.Creator{},
		&gmv.SaleRecord{},
		&gmv.DeliverableRecord{},
		&badge.CreatorBadge{},
		&campaign.Campaign{},
		&campaign.GMVBonusTier{},
		&campaign.LeaderboardBonus{},
		&earnings.CreatorEarnings{},
		&recompute.Job{},
	)
}

func registerHandlers(mux *asynq.ServeMux, svc *recompute.Service) {
	recompute.RegisterHandlers(mux, svc)
}
