package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmehdipour/worktimer/internal/model"
	"github.com/jmoiron/sqlx"
)

// WorkItemsRepository is the local mirror of remote work items.
type WorkItemsRepository interface {
	// Watermark returns max(external_id) for the customer; ok is false when the
	// mirror holds nothing for it.
	Watermark(ctx context.Context, customer string) (id int64, ok bool, err error)
	Replace(ctx context.Context, customer string, items []model.WorkItem, syncedAt time.Time) error
	Append(ctx context.Context, items []model.WorkItem, syncedAt time.Time) (int, error)
	List(ctx context.Context, f WorkItemFilter) ([]model.WorkItemView, error)
	Count(ctx context.Context, customer string) (int, error)
}

type WorkItemFilter struct {
	Customer string
	Types    []model.WorkItemType
	Search   string
}

type WorkItemsRepositoryImpl struct {
	db *sqlx.DB
}

func NewWorkItemsRepository(db *sqlx.DB) *WorkItemsRepositoryImpl {
	return &WorkItemsRepositoryImpl{db: db}
}

var _ WorkItemsRepository = (*WorkItemsRepositoryImpl)(nil)

const insertChunk = 200

func (r *WorkItemsRepositoryImpl) Watermark(ctx context.Context, customer string) (int64, bool, error) {
	var wm sql.NullInt64
	err := sqlx.GetContext(ctx, r.db, &wm, `
		SELECT MAX(external_id) FROM work_items WHERE customer_name = ?
	`, customer)
	if err != nil {
		return 0, false, mapError(err, "work items", customer)
	}
	return wm.Int64, wm.Valid, nil
}

// Replace swaps the customer's mirror for items in one transaction.
func (r *WorkItemsRepositoryImpl) Replace(ctx context.Context, customer string, items []model.WorkItem, syncedAt time.Time) error {
	err := withTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM work_items WHERE customer_name = ?`, customer); err != nil {
			return err
		}
		return r.insertBatch(ctx, tx, items, syncedAt)
	})
	return mapError(err, "work items", customer)
}

// Append inserts items without touching existing rows.
func (r *WorkItemsRepositoryImpl) Append(ctx context.Context, items []model.WorkItem, syncedAt time.Time) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	err := withTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		return r.insertBatch(ctx, tx, items, syncedAt)
	})
	if err != nil {
		return 0, mapError(err, "work items", items[0].CustomerName)
	}
	return len(items), nil
}

func (r *WorkItemsRepositoryImpl) insertBatch(ctx context.Context, tx *sqlx.Tx, items []model.WorkItem, syncedAt time.Time) error {
	ts := formatTime(syncedAt)
	for start := 0; start < len(items); start += insertChunk {
		end := start + insertChunk
		if end > len(items) {
			end = len(items)
		}

		b := sq.Insert("work_items").Columns(
			"customer_name", "external_id", "type", "title", "state", "parent_external_id", "synced_at",
		)
		for _, it := range items[start:end] {
			b = b.Values(it.CustomerName, it.ExternalID, it.Type.String(), it.Title, it.State, it.ParentExternalID, ts)
		}
		q, args, err := b.ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

type workItemRow struct {
	CustomerName     string         `db:"customer_name"`
	ExternalID       int64          `db:"external_id"`
	Type             string         `db:"type"`
	Title            string         `db:"title"`
	State            string         `db:"state"`
	ParentExternalID sql.NullInt64  `db:"parent_external_id"`
	SyncedAt         string         `db:"synced_at"`
	ParentTitle      sql.NullString `db:"parent_title"`
	ParentType       sql.NullString `db:"parent_type"`
	GrandparentTitle sql.NullString `db:"grandparent_title"`
}

// List resolves parent and grandparent titles through self-joins on the
// mirror. Parents that were never mirrored simply stay unresolved.
func (r *WorkItemsRepositoryImpl) List(ctx context.Context, f WorkItemFilter) ([]model.WorkItemView, error) {
	b := sq.Select(
		"w.customer_name", "w.external_id", "w.type", "w.title", "w.state",
		"w.parent_external_id", "w.synced_at",
		"p.title AS parent_title", "p.type AS parent_type", "g.title AS grandparent_title",
	).
		From("work_items w").
		LeftJoin("work_items p ON p.customer_name = w.customer_name AND p.external_id = w.parent_external_id").
		LeftJoin("work_items g ON g.customer_name = p.customer_name AND g.external_id = p.parent_external_id").
		OrderBy("w.customer_name", "w.external_id")

	if f.Customer != "" {
		b = b.Where(sq.Eq{"w.customer_name": f.Customer})
	}
	if len(f.Types) > 0 {
		types := make([]string, 0, len(f.Types))
		for _, t := range f.Types {
			types = append(types, t.String())
		}
		b = b.Where(sq.Eq{"w.type": types})
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		b = b.Where(sq.Like{"w.title": "%" + s + "%"})
	}

	q, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	var rows []workItemRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, q, args...); err != nil {
		return nil, mapError(err, "work items", f.Customer)
	}

	out := make([]model.WorkItemView, 0, len(rows))
	for _, row := range rows {
		syncedAt, err := parseTime(row.SyncedAt)
		if err != nil {
			return nil, err
		}
		v := model.WorkItemView{
			WorkItem: model.WorkItem{
				CustomerName:     row.CustomerName,
				ExternalID:       row.ExternalID,
				Type:             model.WorkItemType(row.Type),
				Title:            row.Title,
				State:            row.State,
				ParentExternalID: nullInt(row.ParentExternalID),
				SyncedAt:         syncedAt,
			},
			ParentTitle:      nullString(row.ParentTitle),
			ParentType:       nullString(row.ParentType),
			GrandparentTitle: nullString(row.GrandparentTitle),
		}
		v.Display = v.DisplayName()
		out = append(out, v)
	}
	return out, nil
}

func (r *WorkItemsRepositoryImpl) Count(ctx context.Context, customer string) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.db, &n, `SELECT COUNT(*) FROM work_items WHERE customer_name = ?`, customer)
	if err != nil {
		return 0, mapError(err, "work items", customer)
	}
	return n, nil
}
