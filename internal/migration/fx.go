package migration

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/clinicore/panelbilling/internal/config"
	"github.com/clinicore/panelbilling/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, node *snowflake.Node) error {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}

		dialect := strings.ToLower(strings.TrimSpace(cfg.DBType))
		if err := RunMigrations(sqlDB, dialect); err != nil {
			return err
		}

		return seed.EnsureDefaultCompany(conn, node, cfg.DefaultCompanyCode)
	}),
)
