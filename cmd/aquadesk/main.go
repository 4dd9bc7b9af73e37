package main

import (
	"github.com/aquadesk/aquadesk/internal/clock"
	"github.com/aquadesk/aquadesk/internal/config"
	"github.com/aquadesk/aquadesk/internal/invoice"
	"github.com/aquadesk/aquadesk/internal/ledger"
	"github.com/aquadesk/aquadesk/internal/logger"
	"github.com/aquadesk/aquadesk/internal/migration"
	"github.com/aquadesk/aquadesk/internal/rating"
	"github.com/aquadesk/aquadesk/internal/reconciler"
	"github.com/aquadesk/aquadesk/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,

		rating.Module,
		invoice.Module,
		ledger.Module,
		reconciler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
