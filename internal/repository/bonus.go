package repository

import (
	"context"
	"errors"

	"github.com/jmehdipour/worktimer/internal/model"
	"github.com/jmoiron/sqlx"
)

type BonusRepository interface {
	// GetOpen returns the open-ended rate, or nil when none exists.
	GetOpen(ctx context.Context, tx *sqlx.Tx) (*model.BonusRate, error)
	CloseOpen(ctx context.Context, tx *sqlx.Tx, id int64, end model.Date) error
	Insert(ctx context.Context, tx *sqlx.Tx, rate model.BonusRate) (int64, error)
	RateAt(ctx context.Context, tx *sqlx.Tx, d model.Date) (*model.BonusRate, error)
	List(ctx context.Context) ([]model.BonusRate, error)
}

type BonusRepositoryImpl struct {
	db *sqlx.DB
}

func NewBonusRepository(db *sqlx.DB) *BonusRepositoryImpl {
	return &BonusRepositoryImpl{db: db}
}

var _ BonusRepository = (*BonusRepositoryImpl)(nil)

func (r *BonusRepositoryImpl) GetOpen(ctx context.Context, tx *sqlx.Tx) (*model.BonusRate, error) {
	var rate model.BonusRate
	err := sqlx.GetContext(ctx, ext(r.db, tx), &rate, `
		SELECT id, percent, start_date, end_date
		  FROM bonus_rates
		 WHERE end_date IS NULL
	`)
	if err != nil {
		err = mapError(err, "bonus rate", "open")
		if errors.Is(err, model.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rate, nil
}

func (r *BonusRepositoryImpl) CloseOpen(ctx context.Context, tx *sqlx.Tx, id int64, end model.Date) error {
	_, err := ext(r.db, tx).ExecContext(ctx, `
		UPDATE bonus_rates SET end_date = ? WHERE id = ? AND end_date IS NULL
	`, end, id)
	return mapError(err, "bonus rate", id)
}

func (r *BonusRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, rate model.BonusRate) (int64, error) {
	var id int64
	err := withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO bonus_rates (percent, start_date, end_date) VALUES (?, ?, ?)
		`, rate.Percent, rate.StartDate, rate.EndDate)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, mapError(err, "bonus rate", rate.StartDate)
	}
	return id, nil
}

// RateAt returns the rate whose window contains d.
func (r *BonusRepositoryImpl) RateAt(ctx context.Context, tx *sqlx.Tx, d model.Date) (*model.BonusRate, error) {
	var rate model.BonusRate
	err := sqlx.GetContext(ctx, ext(r.db, tx), &rate, `
		SELECT id, percent, start_date, end_date
		  FROM bonus_rates
		 WHERE start_date <= ? AND (end_date IS NULL OR end_date >= ?)
		 ORDER BY start_date DESC
		 LIMIT 1
	`, d, d)
	if err != nil {
		return nil, mapError(err, "bonus rate", d)
	}
	return &rate, nil
}

func (r *BonusRepositoryImpl) List(ctx context.Context) ([]model.BonusRate, error) {
	var out []model.BonusRate
	err := sqlx.SelectContext(ctx, r.db, &out, `
		SELECT id, percent, start_date, end_date FROM bonus_rates ORDER BY start_date
	`)
	if err != nil {
		return nil, mapError(err, "bonus rates", "list")
	}
	return out, nil
}
