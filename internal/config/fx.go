package config

import "go.uber.org/fx"

// Module wires env config and the hot-reloadable billing policy.
var Module = fx.Module("config",
	fx.Provide(
		Load,
		NewBillingConfigHolder,
	),
)
