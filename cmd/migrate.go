package cmd

import (
	"context"
	"fmt"

	"github.com/jmehdipour/worktimer/internal/config"
	"github.com/jmehdipour/worktimer/internal/db"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		sqlDB, err := db.Open(cfg.Store.Driver, cfg.Store.DSN, db.PoolOpts{
			MaxOpenConns:    cfg.Store.MaxOpenConns,
			MaxIdleConns:    cfg.Store.MaxIdleConns,
			ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Store.ConnMaxIdleTime,
			PingTimeout:     cfg.Store.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer sqlDB.Close()

		applied, err := db.Migrate(context.Background(), sqlDB)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), ">> Migration complete (%d applied)\n", applied)
		return nil
	},
}
