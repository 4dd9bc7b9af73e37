package ledger

import (
	"github.com/aquadesk/aquadesk/internal/ledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger",
	fx.Provide(service.NewService),
)
