package recompute

import (
	"github.com/hibiken/asynq"
	"go.uber.org/fx"

	"creator-engine/pkg/taskname"
)

var Module = fx.Module("recompute.module",
	fx.Provide(
		NewService,
		NewScheduler,
	),
	fx.Invoke(StartScheduler),
)

// RegisterHandlers binds the worker entrypoints onto the asynq mux.
func RegisterHandlers(mux *asynq.ServeMux, svc *Service) {
	mux.HandleFunc(taskname.RecomputeCreator, svc.HandleRecomputeCreatorTask)
	mux.HandleFunc(taskname.RecomputeAll, svc.HandleRecomputeAllTask)
}
