package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jmehdipour/worktimer/internal/kafka"
	"github.com/jmehdipour/worktimer/internal/model"
	"go.uber.org/zap"
)

// Source is a committable message stream; *kafka.Consumer satisfies it.
type Source interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, m kafka.Message) error
}

// CommentSink posts a comment on a customer's work item.
type CommentSink interface {
	PostComment(ctx context.Context, customer string, id int64, text string) error
}

// CommentPoster mirrors the comment of a stopped timer onto the work item it
// references.
type CommentPoster struct {
	sink     CommentSink
	attempts int
	backoff  time.Duration
	log      *zap.Logger
}

type PosterOption func(*CommentPoster)

// WithRetry sets how many times Run handles a message that keeps failing with
// a connection error, doubling the wait from backoff between tries.
func WithRetry(attempts int, backoff time.Duration) PosterOption {
	return func(p *CommentPoster) {
		p.attempts = attempts
		p.backoff = backoff
	}
}

func NewCommentPoster(sink CommentSink, log *zap.Logger, opts ...PosterOption) *CommentPoster {
	p := &CommentPoster{
		sink:     sink,
		attempts: 4,
		backoff:  time.Second,
		log:      log.With(zap.String("worker", "comments")),
	}
	for _, o := range opts {
		o(p)
	}
	if p.attempts < 1 {
		p.attempts = 1
	}
	return p
}

// Handle processes one ledger event. Malformed events and events that cannot
// ever be posted return nil; only transient failures are returned.
func (p *CommentPoster) Handle(ctx context.Context, m kafka.Message) error {
	var ev model.LedgerEvent
	if err := json.Unmarshal(m.Value, &ev); err != nil || ev.ID == "" {
		p.log.Warn("skipping malformed ledger event", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}
	if ev.Type != model.EventTimerStopped || ev.ExternalRef == nil || *ev.ExternalRef <= 0 {
		return nil
	}
	if ev.Comment == nil || strings.TrimSpace(*ev.Comment) == "" {
		return nil
	}

	err := p.sink.PostComment(ctx, ev.CustomerName, *ev.ExternalRef, *ev.Comment)
	switch {
	case err == nil:
		p.log.Info("comment posted",
			zap.String("event", ev.ID),
			zap.String("customer", ev.CustomerName),
			zap.Int64("work_item", *ev.ExternalRef),
		)
		return nil
	case errors.Is(err, model.ErrConnection):
		return err
	default:
		p.log.Warn("dropping comment",
			zap.String("event", ev.ID),
			zap.String("customer", ev.CustomerName),
			zap.Int64("work_item", *ev.ExternalRef),
			zap.Error(err),
		)
		return nil
	}
}

// Run consumes src until ctx is cancelled. A message whose post fails with a
// connection error is handled again with backoff, up to the configured
// attempts. After that it is logged and committed like every other message, so
// one unreachable organization cannot stall the partition.
func (p *CommentPoster) Run(ctx context.Context, src Source) error {
	p.log.Info("comments worker started")
	for {
		m, err := src.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.log.Warn("fetch failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(200 * time.Millisecond):
			}
			continue
		}

		if err := p.handleWithRetry(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.log.Error("posting comment failed, giving up",
				zap.Int64("offset", m.Offset),
				zap.Int("attempts", p.attempts),
				zap.Error(err),
			)
		}
		if err := src.Commit(ctx, m); err != nil && ctx.Err() == nil {
			p.log.Warn("commit failed", zap.Error(err))
		}
	}
}

func (p *CommentPoster) handleWithRetry(ctx context.Context, m kafka.Message) error {
	wait := p.backoff
	var err error
	for i := 1; i <= p.attempts; i++ {
		if err = p.Handle(ctx, m); err == nil {
			return nil
		}
		if i == p.attempts {
			break
		}
		p.log.Warn("posting comment failed, retrying",
			zap.Int64("offset", m.Offset),
			zap.Int("attempt", i),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return err
}
