package worker

import (
	"github.com/jmehdipour/worktimer/internal/kafka"
	"github.com/jmehdipour/worktimer/internal/worker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Publish ledger events from the outbox (Kafka, or in process without brokers)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop, a, err := boot(cmd)
		if err != nil {
			return err
		}
		defer stop()
		defer a.Close()

		var pub worker.Publisher
		if len(a.Cfg.Kafka.Brokers) > 0 {
			producer := kafka.NewProducer(kafka.ProducerConfig{Brokers: a.Cfg.Kafka.Brokers})
			defer producer.Close()
			pub = producer
			a.Log.Info("relay publishing to kafka", zap.Strings("brokers", a.Cfg.Kafka.Brokers))
		} else {
			poster := worker.NewCommentPoster(a.Sync, a.Log)
			pub = worker.NewLocalPublisher(poster.Handle)
			a.Log.Info("relay delivering in process (no kafka brokers configured)")
		}

		relay := worker.NewRelay(a.Outbox, pub, a.Log)
		if a.Cfg.Outbox.PollInterval > 0 {
			relay.PollInterval = a.Cfg.Outbox.PollInterval
		}
		if a.Cfg.Outbox.BatchSize > 0 {
			relay.BatchSize = a.Cfg.Outbox.BatchSize
		}
		return relay.Run(ctx)
	},
}
