package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/clinicore/panelbilling/internal/audit"
	"github.com/clinicore/panelbilling/internal/cache"
	"github.com/clinicore/panelbilling/internal/clock"
	"github.com/clinicore/panelbilling/internal/company"
	"github.com/clinicore/panelbilling/internal/config"
	"github.com/clinicore/panelbilling/internal/ledger"
	"github.com/clinicore/panelbilling/internal/migration"
	"github.com/clinicore/panelbilling/internal/observability"
	"github.com/clinicore/panelbilling/internal/payment"
	"github.com/clinicore/panelbilling/internal/raterule"
	"github.com/clinicore/panelbilling/internal/reporting"
	"github.com/clinicore/panelbilling/internal/server"
	"github.com/clinicore/panelbilling/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		cache.Module,

		audit.Module,
		company.Module,
		raterule.Module,
		ledger.Module,
		payment.Module,
		reporting.Module,

		migration.Module,
		server.Module,
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
