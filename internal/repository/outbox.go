package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmehdipour/worktimer/internal/model"
	"github.com/jmoiron/sqlx"
)

// OutboxRepository defines persistence methods for the outbox table.
type OutboxRepository interface {
	// Insert writes a single outbox event. If tx is nil, it will open/commit
	// an internal transaction; otherwise it uses the given tx.
	Insert(ctx context.Context, tx *sqlx.Tx, aggregate, aggregateID, topic string, payload []byte) error
	// FetchPending returns unpublished events, oldest first.
	FetchPending(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	MarkPublished(ctx context.Context, ids []int64, at time.Time) error
	BumpAttempts(ctx context.Context, id int64) error
}

// OutboxRepositoryImpl is a sqlx-backed implementation.
type OutboxRepositoryImpl struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewOutboxRepository constructs an OutboxRepositoryImpl.
func NewOutboxRepository(db *sqlx.DB) *OutboxRepositoryImpl {
	return &OutboxRepositoryImpl{db: db, now: time.Now}
}

var _ OutboxRepository = (*OutboxRepositoryImpl)(nil)

// Insert adds an event row to outbox. The relay worker picks it up and
// publishes it to the topic named in the `topic` column.
func (r *OutboxRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, aggregate, aggregateID, topic string, payload []byte) error {
	const q = `
		INSERT INTO outbox (aggregate, aggregate_id, topic, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	err := withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q, aggregate, aggregateID, topic, payload, formatTime(r.now()))

		return err
	})
	return mapError(err, "outbox", aggregateID)
}

type outboxRow struct {
	ID          int64          `db:"id"`
	Aggregate   string         `db:"aggregate"`
	AggregateID string         `db:"aggregate_id"`
	Topic       string         `db:"topic"`
	Payload     []byte         `db:"payload"`
	Attempts    int            `db:"attempts"`
	CreatedAt   string         `db:"created_at"`
	PublishedAt sql.NullString `db:"published_at"`
}

func (r *OutboxRepositoryImpl) FetchPending(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxRow
	err := sqlx.SelectContext(ctx, r.db, &rows, `
		SELECT id, aggregate, aggregate_id, topic, payload, attempts, created_at, published_at
		  FROM outbox
		 WHERE published_at IS NULL
		 ORDER BY id
		 LIMIT ?
	`, limit)
	if err != nil {
		return nil, mapError(err, "outbox", "pending")
	}

	out := make([]model.OutboxEvent, 0, len(rows))
	for _, row := range rows {
		created, err := parseTime(row.CreatedAt)
		if err != nil {
			return nil, err
		}
		published, err := parseNullTime(row.PublishedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, model.OutboxEvent{
			ID:          row.ID,
			Aggregate:   row.Aggregate,
			AggregateID: row.AggregateID,
			Topic:       row.Topic,
			Payload:     row.Payload,
			Attempts:    row.Attempts,
			CreatedAt:   created,
			PublishedAt: published,
		})
	}
	return out, nil
}

func (r *OutboxRepositoryImpl) MarkPublished(ctx context.Context, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`UPDATE outbox SET published_at = ? WHERE id IN (?)`, formatTime(at), ids)
	if err != nil {
		return err
	}
	query = r.db.Rebind(query)

	err = withTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	})
	return mapError(err, "outbox", ids)
}

func (r *OutboxRepositoryImpl) BumpAttempts(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE outbox SET attempts = attempts + 1 WHERE id = ?`, id)
	return mapError(err, "outbox", id)
}
