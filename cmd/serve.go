package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmehdipour/worktimer/internal/app"
	httpSrv "github.com/jmehdipour/worktimer/internal/http"
	"github.com/jmehdipour/worktimer/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run HTTP server (and the sync scheduler when enabled)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := app.Load(ctx, cfgPath)
		if err != nil {
			return err
		}
		defer a.Close()
		log := a.Log

		metrics.MustRegister(prometheus.DefaultRegisterer)

		server := httpSrv.NewServer(a.Cfg, httpSrv.Deps{
			Bus:      a.Bus,
			Report:   a.Report,
			Sync:     a.Sync,
			Gatherer: prometheus.DefaultGatherer,
		}, a.Redis, log)

		if a.Cfg.Sync.Enabled {
			go func() {
				if err := a.Scheduler().Run(ctx); err != nil {
					log.Error("sync scheduler stopped", zap.Error(err))
				}
			}()
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start(a.Cfg.HTTP.Addr)
		}()

		select {
		case <-ctx.Done():
			log.Info("signal received, shutting down")
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	},
}
