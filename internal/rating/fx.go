package rating

import (
	"github.com/aquadesk/aquadesk/internal/rating/service"
	"go.uber.org/fx"
)

var Module = fx.Module("rating",
	fx.Provide(service.NewService),
)
