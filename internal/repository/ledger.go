package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmehdipour/worktimer/internal/model"
	"github.com/jmoiron/sqlx"
)

// LedgerRepository persists time entries.
type LedgerRepository interface {
	// FindOpen returns the running entry of a (customer, project) pair, or nil.
	FindOpen(ctx context.Context, tx *sqlx.Tx, customerID, projectID int64) (*model.TimeEntry, error)
	GetByID(ctx context.Context, tx *sqlx.Tx, id int64) (*model.TimeEntry, error)
	Insert(ctx context.Context, tx *sqlx.Tx, e model.TimeEntry) (int64, error)
	// Close writes end time and derived columns only while the entry is still
	// open. It reports false when another writer closed it first.
	Close(ctx context.Context, tx *sqlx.Tx, e model.TimeEntry) (bool, error)
	Update(ctx context.Context, tx *sqlx.Tx, e model.TimeEntry) error
	DeleteOpen(ctx context.Context, tx *sqlx.Tx, customerID, projectID int64) (int64, error)
	RenameCustomer(ctx context.Context, tx *sqlx.Tx, oldName, newName string) (int64, error)
	RenameProject(ctx context.Context, tx *sqlx.Tx, customerName, oldName, newName string) (int64, error)
	List(ctx context.Context, f EntryFilter) ([]model.TimeEntry, error)
}

// EntryFilter narrows List. Zero values mean "no filter".
type EntryFilter struct {
	OnlyOpen  bool
	ProjectID int64
	FromKey   int
	ToKey     int
	Limit     int
}

type LedgerRepositoryImpl struct {
	db *sqlx.DB
}

func NewLedgerRepository(db *sqlx.DB) *LedgerRepositoryImpl {
	return &LedgerRepositoryImpl{db: db}
}

var _ LedgerRepository = (*LedgerRepositoryImpl)(nil)

var entryColumns = []string{
	"id", "customer_id", "project_id", "customer_name", "project_name", "date_key",
	"start_time", "end_time", "elapsed_hours", "wage_snapshot", "bonus_snapshot",
	"cost", "bonus_amount", "external_ref", "comment",
}

type entryRow struct {
	ID            int64           `db:"id"`
	CustomerID    int64           `db:"customer_id"`
	ProjectID     int64           `db:"project_id"`
	CustomerName  string          `db:"customer_name"`
	ProjectName   string          `db:"project_name"`
	DateKey       int             `db:"date_key"`
	StartTime     string          `db:"start_time"`
	EndTime       sql.NullString  `db:"end_time"`
	ElapsedHours  sql.NullFloat64 `db:"elapsed_hours"`
	WageSnapshot  float64         `db:"wage_snapshot"`
	BonusSnapshot float64         `db:"bonus_snapshot"`
	Cost          sql.NullFloat64 `db:"cost"`
	BonusAmount   sql.NullFloat64 `db:"bonus_amount"`
	ExternalRef   sql.NullInt64   `db:"external_ref"`
	Comment       sql.NullString  `db:"comment"`
}

func (r entryRow) toModel() (model.TimeEntry, error) {
	start, err := parseTime(r.StartTime)
	if err != nil {
		return model.TimeEntry{}, err
	}
	end, err := parseNullTime(r.EndTime)
	if err != nil {
		return model.TimeEntry{}, err
	}
	return model.TimeEntry{
		ID:            r.ID,
		CustomerID:    r.CustomerID,
		ProjectID:     r.ProjectID,
		CustomerName:  r.CustomerName,
		ProjectName:   r.ProjectName,
		DateKey:       r.DateKey,
		StartTime:     start,
		EndTime:       end,
		ElapsedHours:  nullFloat(r.ElapsedHours),
		WageSnapshot:  r.WageSnapshot,
		BonusSnapshot: r.BonusSnapshot,
		Cost:          nullFloat(r.Cost),
		BonusAmount:   nullFloat(r.BonusAmount),
		ExternalRef:   nullInt(r.ExternalRef),
		Comment:       nullString(r.Comment),
	}, nil
}

func (r *LedgerRepositoryImpl) selectEntries(ctx context.Context, tx *sqlx.Tx, b sq.SelectBuilder) ([]model.TimeEntry, error) {
	q, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	var rows []entryRow
	if err := sqlx.SelectContext(ctx, ext(r.db, tx), &rows, q, args...); err != nil {
		return nil, mapError(err, "time entries", "select")
	}
	out := make([]model.TimeEntry, 0, len(rows))
	for _, row := range rows {
		e, err := row.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *LedgerRepositoryImpl) FindOpen(ctx context.Context, tx *sqlx.Tx, customerID, projectID int64) (*model.TimeEntry, error) {
	entries, err := r.selectEntries(ctx, tx, sq.Select(entryColumns...).
		From("time_entries").
		Where(sq.Eq{"customer_id": customerID, "project_id": projectID, "end_time": nil}).
		OrderBy("id DESC").
		Limit(1))
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

func (r *LedgerRepositoryImpl) GetByID(ctx context.Context, tx *sqlx.Tx, id int64) (*model.TimeEntry, error) {
	entries, err := r.selectEntries(ctx, tx, sq.Select(entryColumns...).
		From("time_entries").
		Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, mapError(sql.ErrNoRows, "time entry", id)
	}
	return &entries[0], nil
}

func (r *LedgerRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, e model.TimeEntry) (int64, error) {
	const q = `
		INSERT INTO time_entries
		    (customer_id, project_id, customer_name, project_name, date_key, start_time,
		     wage_snapshot, bonus_snapshot, external_ref, comment)
		VALUES
		    (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	var id int64
	err := withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, q,
			e.CustomerID, e.ProjectID, e.CustomerName, e.ProjectName, e.DateKey, formatTime(e.StartTime),
			e.WageSnapshot, e.BonusSnapshot, e.ExternalRef, e.Comment,
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, mapError(err, "time entry", e.ProjectName)
	}
	return id, nil
}

func (r *LedgerRepositoryImpl) Close(ctx context.Context, tx *sqlx.Tx, e model.TimeEntry) (bool, error) {
	res, err := ext(r.db, tx).ExecContext(ctx, `
		UPDATE time_entries
		   SET end_time = ?, elapsed_hours = ?, cost = ?, bonus_amount = ?,
		       external_ref = ?, comment = ?
		 WHERE id = ? AND end_time IS NULL
	`, nullTime(e.EndTime), e.ElapsedHours, e.Cost, e.BonusAmount, e.ExternalRef, e.Comment, e.ID)
	if err != nil {
		return false, mapError(err, "time entry", e.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Update rewrites every mutable column of an entry (administrative correction).
func (r *LedgerRepositoryImpl) Update(ctx context.Context, tx *sqlx.Tx, e model.TimeEntry) error {
	_, err := ext(r.db, tx).ExecContext(ctx, `
		UPDATE time_entries
		   SET project_id = ?, project_name = ?, date_key = ?, start_time = ?, end_time = ?,
		       elapsed_hours = ?, cost = ?, bonus_amount = ?, external_ref = ?, comment = ?
		 WHERE id = ?
	`, e.ProjectID, e.ProjectName, e.DateKey, formatTime(e.StartTime), nullTime(e.EndTime),
		e.ElapsedHours, e.Cost, e.BonusAmount, e.ExternalRef, e.Comment, e.ID)
	return mapError(err, "time entry", e.ID)
}

func (r *LedgerRepositoryImpl) DeleteOpen(ctx context.Context, tx *sqlx.Tx, customerID, projectID int64) (int64, error) {
	res, err := ext(r.db, tx).ExecContext(ctx, `
		DELETE FROM time_entries
		 WHERE customer_id = ? AND project_id = ? AND end_time IS NULL
	`, customerID, projectID)
	if err != nil {
		return 0, mapError(err, "time entry", projectID)
	}
	return res.RowsAffected()
}

// RenameCustomer rewrites the customer display snapshot of historical entries.
func (r *LedgerRepositoryImpl) RenameCustomer(ctx context.Context, tx *sqlx.Tx, oldName, newName string) (int64, error) {
	res, err := ext(r.db, tx).ExecContext(ctx, `
		UPDATE time_entries SET customer_name = ? WHERE customer_name = ?
	`, newName, oldName)
	if err != nil {
		return 0, mapError(err, "time entries", oldName)
	}
	return res.RowsAffected()
}

func (r *LedgerRepositoryImpl) RenameProject(ctx context.Context, tx *sqlx.Tx, customerName, oldName, newName string) (int64, error) {
	res, err := ext(r.db, tx).ExecContext(ctx, `
		UPDATE time_entries SET project_name = ? WHERE customer_name = ? AND project_name = ?
	`, newName, customerName, oldName)
	if err != nil {
		return 0, mapError(err, "time entries", oldName)
	}
	return res.RowsAffected()
}

// List returns entries newest first.
func (r *LedgerRepositoryImpl) List(ctx context.Context, f EntryFilter) ([]model.TimeEntry, error) {
	b := sq.Select(entryColumns...).From("time_entries").OrderBy("id DESC")
	if f.OnlyOpen {
		b = b.Where(sq.Eq{"end_time": nil})
	}
	if f.ProjectID > 0 {
		b = b.Where(sq.Eq{"project_id": f.ProjectID})
	}
	if f.FromKey > 0 {
		b = b.Where(sq.GtOrEq{"date_key": f.FromKey})
	}
	if f.ToKey > 0 {
		b = b.Where(sq.LtOrEq{"date_key": f.ToKey})
	}
	if f.Limit > 0 {
		b = b.Limit(uint64(f.Limit))
	}
	return r.selectEntries(ctx, nil, b)
}
