package repository

import (
	"context"

	"github.com/jmehdipour/worktimer/internal/model"
	"github.com/jmoiron/sqlx"
)

type ProjectsRepository interface {
	GetByID(ctx context.Context, tx *sqlx.Tx, id int64) (*model.ProjectVersion, error)
	GetByName(ctx context.Context, tx *sqlx.Tx, customerID int64, name string) (*model.ProjectVersion, error)
	ListByCustomer(ctx context.Context, tx *sqlx.Tx, customerID int64) ([]model.ProjectVersion, error)
	Insert(ctx context.Context, tx *sqlx.Tx, p model.ProjectVersion) (int64, error)
	Repoint(ctx context.Context, tx *sqlx.Tx, fromCustomerID, toCustomerID int64) (int64, error)
	SetCurrent(ctx context.Context, tx *sqlx.Tx, id int64, current bool) error
	Update(ctx context.Context, tx *sqlx.Tx, id int64, name string, externalRef *int64) error
}

type ProjectsRepositoryImpl struct {
	db *sqlx.DB
}

func NewProjectsRepository(db *sqlx.DB) *ProjectsRepositoryImpl {
	return &ProjectsRepositoryImpl{db: db}
}

var _ ProjectsRepository = (*ProjectsRepositoryImpl)(nil)

const projectColumns = `id, name, customer_id, external_ref, is_current`

func (r *ProjectsRepositoryImpl) GetByID(ctx context.Context, tx *sqlx.Tx, id int64) (*model.ProjectVersion, error) {
	var p model.ProjectVersion
	err := sqlx.GetContext(ctx, ext(r.db, tx), &p, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	if err != nil {
		return nil, mapError(err, "project", id)
	}
	return &p, nil
}

// GetByName finds a project of one customer version regardless of is_current.
func (r *ProjectsRepositoryImpl) GetByName(ctx context.Context, tx *sqlx.Tx, customerID int64, name string) (*model.ProjectVersion, error) {
	var p model.ProjectVersion
	err := sqlx.GetContext(ctx, ext(r.db, tx), &p, `
		SELECT `+projectColumns+`
		  FROM projects
		 WHERE customer_id = ? AND name = ?
	`, customerID, name)
	if err != nil {
		return nil, mapError(err, "project", name)
	}
	return &p, nil
}

func (r *ProjectsRepositoryImpl) ListByCustomer(ctx context.Context, tx *sqlx.Tx, customerID int64) ([]model.ProjectVersion, error) {
	var out []model.ProjectVersion
	err := sqlx.SelectContext(ctx, ext(r.db, tx), &out, `
		SELECT `+projectColumns+`
		  FROM projects
		 WHERE customer_id = ?
		 ORDER BY name
	`, customerID)
	if err != nil {
		return nil, mapError(err, "projects", customerID)
	}
	return out, nil
}

func (r *ProjectsRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, p model.ProjectVersion) (int64, error) {
	var id int64
	err := withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO projects (name, customer_id, external_ref, is_current)
			VALUES (?, ?, ?, ?)
		`, p.Name, p.CustomerID, p.ExternalRef, boolInt(p.IsCurrent))
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, mapError(err, "project", p.Name)
	}
	return id, nil
}

// Repoint moves every project of one customer version to another.
func (r *ProjectsRepositoryImpl) Repoint(ctx context.Context, tx *sqlx.Tx, fromCustomerID, toCustomerID int64) (int64, error) {
	res, err := ext(r.db, tx).ExecContext(ctx, `
		UPDATE projects SET customer_id = ? WHERE customer_id = ?
	`, toCustomerID, fromCustomerID)
	if err != nil {
		return 0, mapError(err, "projects", fromCustomerID)
	}
	return res.RowsAffected()
}

func (r *ProjectsRepositoryImpl) SetCurrent(ctx context.Context, tx *sqlx.Tx, id int64, current bool) error {
	_, err := ext(r.db, tx).ExecContext(ctx, `UPDATE projects SET is_current = ? WHERE id = ?`, boolInt(current), id)
	return mapError(err, "project", id)
}

func (r *ProjectsRepositoryImpl) Update(ctx context.Context, tx *sqlx.Tx, id int64, name string, externalRef *int64) error {
	_, err := ext(r.db, tx).ExecContext(ctx, `
		UPDATE projects SET name = ?, external_ref = ? WHERE id = ?
	`, name, externalRef, id)
	return mapError(err, "project", id)
}
