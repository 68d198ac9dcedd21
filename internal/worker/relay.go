package worker

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jmehdipour/worktimer/internal/kafka"
	"github.com/jmehdipour/worktimer/internal/metrics"
	"github.com/jmehdipour/worktimer/internal/repository"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher delivers outbox events. *kafka.Producer and LocalPublisher
// satisfy it.
type Publisher interface {
	Publish(ctx context.Context, msgs ...kafka.Message) error
}

// Relay moves ledger events from the outbox table to a Publisher:
// - polls unpublished rows oldest first,
// - publishes them one by one and stops at the first failure so order holds,
// - marks delivered rows published and bumps attempts on the failed one.
type Relay struct {
	Outbox repository.OutboxRepository
	Pub    Publisher

	BatchSize    int           // rows per poll
	PollInterval time.Duration // wait between polls
	MaxAttempts  int           // give up on a row after this many failures

	log *zap.Logger
	now func() time.Time
}

func NewRelay(outbox repository.OutboxRepository, pub Publisher, log *zap.Logger) *Relay {
	return &Relay{
		Outbox:       outbox,
		Pub:          pub,
		BatchSize:    100,
		PollInterval: 2 * time.Second,
		MaxAttempts:  10,
		log:          log.With(zap.String("worker", "relay")),
		now:          time.Now,
	}
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	if r.PollInterval <= 0 {
		r.PollInterval = 2 * time.Second
	}
	tick := time.NewTicker(r.PollInterval)
	defer tick.Stop()

	r.log.Info("relay started", zap.Duration("poll_interval", r.PollInterval), zap.Int("batch_size", r.BatchSize))
	for {
		if _, err := r.Flush(ctx); err != nil && ctx.Err() == nil {
			r.log.Warn("relay flush failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
		}
	}
}

// Flush publishes one batch and returns how many rows were delivered.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	pending, err := r.Outbox.FetchPending(ctx, r.BatchSize)
	if err != nil {
		return 0, err
	}

	done := make([]int64, 0, len(pending))
	var pubErr error
	for _, ev := range pending {
		if r.MaxAttempts > 0 && ev.Attempts >= r.MaxAttempts {
			metrics.OutboxPublished.WithLabelValues("dropped").Inc()
			r.log.Error("giving up on outbox event",
				zap.Int64("id", ev.ID),
				zap.String("topic", ev.Topic),
				zap.Int("attempts", ev.Attempts),
			)
			done = append(done, ev.ID)
			continue
		}

		err := r.Pub.Publish(ctx, kafka.Message{
			Topic: ev.Topic,
			Key:   []byte(ev.Aggregate + ":" + ev.AggregateID),
			Value: ev.Payload,
			Headers: []kafkago.Header{
				{Key: "outbox_id", Value: []byte(strconv.FormatInt(ev.ID, 10))},
			},
		})
		if err != nil {
			metrics.OutboxPublished.WithLabelValues("failed").Inc()
			if bumpErr := r.Outbox.BumpAttempts(ctx, ev.ID); bumpErr != nil {
				err = errors.Join(err, bumpErr)
			}
			pubErr = err
			break
		}
		metrics.OutboxPublished.WithLabelValues("published").Inc()
		done = append(done, ev.ID)
	}

	if err := r.Outbox.MarkPublished(ctx, done, r.now()); err != nil {
		return 0, errors.Join(pubErr, err)
	}
	if len(done) > 0 {
		r.log.Debug("relay flushed", zap.Int("published", len(done)))
	}
	return len(done), pubErr
}

// Deliver handles one message in process.
type Deliver func(ctx context.Context, m kafka.Message) error

// LocalPublisher hands messages straight to in-process handlers. It stands in
// for Kafka when no brokers are configured.
type LocalPublisher struct {
	handlers []Deliver
}

func NewLocalPublisher(handlers ...Deliver) *LocalPublisher {
	return &LocalPublisher{handlers: handlers}
}

func (p *LocalPublisher) Publish(ctx context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		for _, h := range p.handlers {
			if err := h(ctx, m); err != nil {
				return err
			}
		}
	}
	return nil
}
