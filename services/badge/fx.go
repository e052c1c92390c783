package badge

import (
	"go.uber.org/fx"
)

var Module = fx.Module("badge.module",
	fx.Provide(NewService),
)
