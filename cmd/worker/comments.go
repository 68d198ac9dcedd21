package worker

import (
	"fmt"
	"time"

	"github.com/jmehdipour/worktimer/internal/kafka"
	"github.com/jmehdipour/worktimer/internal/worker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var commentsCmd = &cobra.Command{
	Use:   "comments",
	Short: "Post comments of stopped timers to their work items",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop, a, err := boot(cmd)
		if err != nil {
			return err
		}
		defer stop()
		defer a.Close()

		k := a.Cfg.Kafka
		if len(k.Brokers) == 0 {
			return fmt.Errorf("comments worker needs kafka brokers; without them the relay delivers in process")
		}
		groupID := k.GroupID
		if groupID == "" {
			groupID = "worktimer-comments"
		}

		consumer := kafka.NewConsumerFromConfig(kafka.Config{
			Brokers:        k.Brokers,
			Topic:          k.Topic,
			GroupID:        groupID,
			MinBytes:       k.MinBytes,
			MaxBytes:       k.MaxBytes,
			CommitInterval: time.Duration(k.CommitInterval) * time.Millisecond,
		})
		defer consumer.Close()

		a.Log.Info("comments worker consuming", zap.String("topic", k.Topic), zap.String("group", groupID))
		return worker.NewCommentPoster(a.Sync, a.Log).Run(ctx, consumer)
	},
}
