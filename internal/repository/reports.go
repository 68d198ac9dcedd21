package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmehdipour/worktimer/internal/model"
	"github.com/jmoiron/sqlx"
)

// ReportsRepository reads the raw rows behind the customer report. Live
// values of running entries depend on "now" and are computed by the caller.
type ReportsRepository interface {
	ProjectEntries(ctx context.Context, from, to model.Date) ([]ProjectEntryRow, error)
}

// ProjectEntryRow is one current project joined with at most one of its
// entries in range. Entry is nil for projects without entries.
type ProjectEntryRow struct {
	CustomerID   int64
	CustomerName string
	SortOrder    int
	ProjectID    int64
	ProjectName  string
	Entry        *model.TimeEntry
}

type ReportsRepositoryImpl struct {
	db *sqlx.DB
}

func NewReportsRepository(db *sqlx.DB) *ReportsRepositoryImpl {
	return &ReportsRepositoryImpl{db: db}
}

var _ ReportsRepository = (*ReportsRepositoryImpl)(nil)

type projectEntrySQL struct {
	CustomerID    int64           `db:"customer_id"`
	CustomerName  string          `db:"customer_name"`
	SortOrder     int             `db:"sort_order"`
	ProjectID     int64           `db:"project_id"`
	ProjectName   string          `db:"project_name"`
	EntryID       sql.NullInt64   `db:"entry_id"`
	StartTime     sql.NullString  `db:"start_time"`
	EndTime       sql.NullString  `db:"end_time"`
	ElapsedHours  sql.NullFloat64 `db:"elapsed_hours"`
	WageSnapshot  sql.NullFloat64 `db:"wage_snapshot"`
	BonusSnapshot sql.NullFloat64 `db:"bonus_snapshot"`
	Cost          sql.NullFloat64 `db:"cost"`
	BonusAmount   sql.NullFloat64 `db:"bonus_amount"`
}

// ProjectEntries lists every current project of every current customer with
// its entries whose date_key falls in [from, to]. Entries are matched by
// project id, so history written under earlier customer versions counts too.
func (r *ReportsRepositoryImpl) ProjectEntries(ctx context.Context, from, to model.Date) ([]ProjectEntryRow, error) {
	q, args, err := sq.Select(
		"c.id AS customer_id", "c.name AS customer_name", "c.sort_order",
		"p.id AS project_id", "p.name AS project_name",
		"t.id AS entry_id", "t.start_time", "t.end_time", "t.elapsed_hours",
		"t.wage_snapshot", "t.bonus_snapshot", "t.cost", "t.bonus_amount",
	).
		From("projects p").
		Join("customers c ON c.id = p.customer_id AND c.is_current = 1").
		LeftJoin("time_entries t ON t.project_id = p.id AND t.date_key BETWEEN ? AND ?", from.Key(), to.Key()).
		Where(sq.Eq{"p.is_current": 1}).
		OrderBy("c.sort_order", "c.id", "p.name", "p.id", "t.id").
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []projectEntrySQL
	if err := sqlx.SelectContext(ctx, r.db, &rows, q, args...); err != nil {
		return nil, mapError(err, "report", from)
	}

	out := make([]ProjectEntryRow, 0, len(rows))
	for _, row := range rows {
		per := ProjectEntryRow{
			CustomerID:   row.CustomerID,
			CustomerName: row.CustomerName,
			SortOrder:    row.SortOrder,
			ProjectID:    row.ProjectID,
			ProjectName:  row.ProjectName,
		}
		if row.EntryID.Valid {
			start, err := parseTime(row.StartTime.String)
			if err != nil {
				return nil, err
			}
			end, err := parseNullTime(row.EndTime)
			if err != nil {
				return nil, err
			}
			per.Entry = &model.TimeEntry{
				ID:            row.EntryID.Int64,
				CustomerID:    row.CustomerID,
				ProjectID:     row.ProjectID,
				StartTime:     start,
				EndTime:       end,
				ElapsedHours:  nullFloat(row.ElapsedHours),
				WageSnapshot:  row.WageSnapshot.Float64,
				BonusSnapshot: row.BonusSnapshot.Float64,
				Cost:          nullFloat(row.Cost),
				BonusAmount:   nullFloat(row.BonusAmount),
			}
		}
		out = append(out, per)
	}
	return out, nil
}
