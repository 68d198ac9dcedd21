package worker

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run the work item sync scheduler (hourly incremental, nightly full)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop, a, err := boot(cmd)
		if err != nil {
			return err
		}
		defer stop()
		defer a.Close()

		a.Log.Info("sync worker started",
			zap.Duration("incremental_interval", a.Cfg.Sync.IncrementalInterval),
			zap.Int("full_refresh_hour", a.Cfg.Sync.FullRefreshHour),
			zap.Int("concurrency", a.Cfg.Sync.Concurrency),
		)
		return a.Scheduler().Run(ctx)
	},
}
