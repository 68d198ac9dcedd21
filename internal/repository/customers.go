package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmehdipour/worktimer/internal/model"
	"github.com/jmoiron/sqlx"
)

// CustomersRepository persists the customer version chain. Every method
// accepts an optional tx; nil runs against the pool.
type CustomersRepository interface {
	GetByID(ctx context.Context, tx *sqlx.Tx, id int64) (*model.CustomerVersion, error)
	GetCurrent(ctx context.Context, tx *sqlx.Tx, name string) (*model.CustomerVersion, error)
	History(ctx context.Context, tx *sqlx.Tx, name string) ([]model.CustomerVersion, error)
	ListCurrent(ctx context.Context, tx *sqlx.Tx) ([]model.CustomerVersion, error)
	ListAll(ctx context.Context) ([]model.CustomerVersion, error)
	Insert(ctx context.Context, tx *sqlx.Tx, c model.CustomerVersion) (int64, error)
	CloseVersion(ctx context.Context, tx *sqlx.Tx, id int64, validTo model.Date) error
	DisableByName(ctx context.Context, tx *sqlx.Tx, name string) (int64, error)
	LatestEnableCandidate(ctx context.Context, tx *sqlx.Tx, name string) (*model.CustomerVersion, error)
	MarkCurrent(ctx context.Context, tx *sqlx.Tx, id int64) error
	RenameChain(ctx context.Context, tx *sqlx.Tx, name, newName string) (int64, error)
	UpdateCredentials(ctx context.Context, tx *sqlx.Tx, id int64, orgRef, token *string) error
	SetSortOrder(ctx context.Context, tx *sqlx.Tx, name string, order int) (int64, error)
	NextSortOrder(ctx context.Context, tx *sqlx.Tx) (int, error)
}

type CustomersRepositoryImpl struct {
	db *sqlx.DB
}

func NewCustomersRepository(db *sqlx.DB) *CustomersRepositoryImpl {
	return &CustomersRepositoryImpl{db: db}
}

var _ CustomersRepository = (*CustomersRepositoryImpl)(nil)

const customerColumns = `id, name, wage, org_ref, token, start_date, valid_from, valid_to, is_current, sort_order, created_at`

type customerRow struct {
	model.CustomerVersion
	CreatedAtRaw string `db:"created_at"`
}

func (r customerRow) toModel() (model.CustomerVersion, error) {
	c := r.CustomerVersion
	t, err := parseTime(r.CreatedAtRaw)
	if err != nil {
		return model.CustomerVersion{}, err
	}
	c.CreatedAt = t
	return c, nil
}

func toCustomers(rows []customerRow) ([]model.CustomerVersion, error) {
	out := make([]model.CustomerVersion, 0, len(rows))
	for _, row := range rows {
		c, err := row.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *CustomersRepositoryImpl) getOne(ctx context.Context, tx *sqlx.Tx, key any, query string, args ...any) (*model.CustomerVersion, error) {
	var row customerRow
	if err := sqlx.GetContext(ctx, ext(r.db, tx), &row, query, args...); err != nil {
		return nil, mapError(err, "customer", key)
	}
	c, err := row.toModel()
	if err != nil {
		return nil, mapError(err, "customer", key)
	}
	return &c, nil
}

func (r *CustomersRepositoryImpl) list(ctx context.Context, tx *sqlx.Tx, query string, args ...any) ([]model.CustomerVersion, error) {
	var rows []customerRow
	if err := sqlx.SelectContext(ctx, ext(r.db, tx), &rows, query, args...); err != nil {
		return nil, mapError(err, "customers", "list")
	}
	return toCustomers(rows)
}

// GetByID resolves any version, current or historical.
func (r *CustomersRepositoryImpl) GetByID(ctx context.Context, tx *sqlx.Tx, id int64) (*model.CustomerVersion, error) {
	return r.getOne(ctx, tx, id, `SELECT `+customerColumns+` FROM customers WHERE id = ?`, id)
}

func (r *CustomersRepositoryImpl) GetCurrent(ctx context.Context, tx *sqlx.Tx, name string) (*model.CustomerVersion, error) {
	return r.getOne(ctx, tx, name, `
		SELECT `+customerColumns+`
		  FROM customers
		 WHERE name = ? AND is_current = 1
	`, name)
}

// History returns every version of name, oldest first.
func (r *CustomersRepositoryImpl) History(ctx context.Context, tx *sqlx.Tx, name string) ([]model.CustomerVersion, error) {
	return r.list(ctx, tx, `
		SELECT `+customerColumns+`
		  FROM customers
		 WHERE name = ?
		 ORDER BY created_at, id
	`, name)
}

func (r *CustomersRepositoryImpl) ListCurrent(ctx context.Context, tx *sqlx.Tx) ([]model.CustomerVersion, error) {
	return r.list(ctx, tx, `
		SELECT `+customerColumns+`
		  FROM customers
		 WHERE is_current = 1
		 ORDER BY sort_order, id
	`)
}

func (r *CustomersRepositoryImpl) ListAll(ctx context.Context) ([]model.CustomerVersion, error) {
	return r.list(ctx, nil, `
		SELECT `+customerColumns+`
		  FROM customers
		 ORDER BY name, created_at, id
	`)
}

func (r *CustomersRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, c model.CustomerVersion) (int64, error) {
	const q = `
		INSERT INTO customers
		    (name, wage, org_ref, token, start_date, valid_from, valid_to, is_current, sort_order, created_at)
		VALUES
		    (?,    ?,    ?,       ?,     ?,          ?,          ?,        ?,          ?,          ?)
	`
	var id int64
	err := withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, q,
			c.Name, c.Wage, c.OrgRef, c.Token, c.StartDate, c.ValidFrom, c.ValidTo,
			boolInt(c.IsCurrent), c.SortOrder, formatTime(c.CreatedAt),
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, mapError(err, "customer", c.Name)
	}
	return id, nil
}

// CloseVersion ends a version: it stops being current and its validity ends at validTo.
func (r *CustomersRepositoryImpl) CloseVersion(ctx context.Context, tx *sqlx.Tx, id int64, validTo model.Date) error {
	_, err := ext(r.db, tx).ExecContext(ctx, `
		UPDATE customers SET is_current = 0, valid_to = ? WHERE id = ?
	`, validTo, id)
	return mapError(err, "customer", id)
}

func (r *CustomersRepositoryImpl) DisableByName(ctx context.Context, tx *sqlx.Tx, name string) (int64, error) {
	res, err := ext(r.db, tx).ExecContext(ctx, `
		UPDATE customers SET is_current = 0 WHERE name = ? AND is_current = 1
	`, name)
	if err != nil {
		return 0, mapError(err, "customer", name)
	}
	return res.RowsAffected()
}

// LatestEnableCandidate picks the most recently created open-ended version
// that is not current.
func (r *CustomersRepositoryImpl) LatestEnableCandidate(ctx context.Context, tx *sqlx.Tx, name string) (*model.CustomerVersion, error) {
	return r.getOne(ctx, tx, name, `
		SELECT `+customerColumns+`
		  FROM customers
		 WHERE name = ? AND valid_to IS NULL AND is_current = 0
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1
	`, name)
}

func (r *CustomersRepositoryImpl) MarkCurrent(ctx context.Context, tx *sqlx.Tx, id int64) error {
	_, err := ext(r.db, tx).ExecContext(ctx, `UPDATE customers SET is_current = 1 WHERE id = ?`, id)
	return mapError(err, "customer", id)
}

// RenameChain renames every version of name so the chain keeps one identity.
func (r *CustomersRepositoryImpl) RenameChain(ctx context.Context, tx *sqlx.Tx, name, newName string) (int64, error) {
	res, err := ext(r.db, tx).ExecContext(ctx, `UPDATE customers SET name = ? WHERE name = ?`, newName, name)
	if err != nil {
		return 0, mapError(err, "customer", name)
	}
	return res.RowsAffected()
}

// UpdateCredentials sets the non-nil credential fields of one version.
func (r *CustomersRepositoryImpl) UpdateCredentials(ctx context.Context, tx *sqlx.Tx, id int64, orgRef, token *string) error {
	if orgRef == nil && token == nil {
		return nil
	}

	b := sq.Update("customers").Where(sq.Eq{"id": id})
	if orgRef != nil {
		b = b.Set("org_ref", *orgRef)
	}
	if token != nil {
		b = b.Set("token", *token)
	}
	q, args, err := b.ToSql()
	if err != nil {
		return err
	}

	_, err = ext(r.db, tx).ExecContext(ctx, q, args...)
	return mapError(err, "customer", id)
}

func (r *CustomersRepositoryImpl) SetSortOrder(ctx context.Context, tx *sqlx.Tx, name string, order int) (int64, error) {
	res, err := ext(r.db, tx).ExecContext(ctx, `UPDATE customers SET sort_order = ? WHERE name = ?`, order, name)
	if err != nil {
		return 0, mapError(err, "customer", name)
	}
	return res.RowsAffected()
}

// NextSortOrder returns the position after the last customer.
func (r *CustomersRepositoryImpl) NextSortOrder(ctx context.Context, tx *sqlx.Tx) (int, error) {
	var last int
	err := sqlx.GetContext(ctx, ext(r.db, tx), &last, `SELECT COALESCE(MAX(sort_order), 0) FROM customers`)
	if err != nil {
		return 0, mapError(err, "customers", "sort_order")
	}
	return last + 1, nil
}
