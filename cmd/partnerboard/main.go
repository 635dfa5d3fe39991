package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/primetable/partnerboard/internal/clock"
	"github.com/primetable/partnerboard/internal/config"
	"github.com/primetable/partnerboard/internal/migration"
	"github.com/primetable/partnerboard/internal/mockgen"
	"github.com/primetable/partnerboard/internal/observability"
	"github.com/primetable/partnerboard/internal/scheduler"
	"github.com/primetable/partnerboard/internal/server"
	"github.com/primetable/partnerboard/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		server.Module,
		scheduler.Module,
		mockgen.Module,
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
