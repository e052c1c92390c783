package earnings

import "go.uber.org/fx"

var Module = fx.Module("earnings.module",
	fx.Provide(NewService),
)
