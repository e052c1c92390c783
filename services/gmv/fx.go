package gmv

import (
	"go.uber.org/fx"
)

var Module = fx.Module("gmv.module",
	fx.Provide(NewService),
)
