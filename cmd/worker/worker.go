package worker

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmehdipour/worktimer/internal/app"
	"github.com/jmehdipour/worktimer/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// NewWorkerCmd returns the parent "worker" command.
func NewWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run background workers",
	}
	// attach subcommands
	cmd.AddCommand(syncCmd)
	cmd.AddCommand(relayCmd)
	cmd.AddCommand(commentsCmd)

	return cmd
}

// boot loads the app and returns a context cancelled on SIGINT/SIGTERM.
func boot(cmd *cobra.Command) (context.Context, context.CancelFunc, *app.App, error) {
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	a, err := app.Load(ctx, cfgPath)
	if err != nil {
		stop()
		return nil, nil, nil, err
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)
	return ctx, stop, a, nil
}
