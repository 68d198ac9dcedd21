package bonus

import (
	"context"
	"fmt"

	"github.com/jmehdipour/worktimer/internal/model"
	"github.com/jmehdipour/worktimer/internal/repository"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Service manages the global bonus rate timeline.
type Service struct {
	db    *sqlx.DB
	rates repository.BonusRepository
	log   *zap.Logger
}

func New(db *sqlx.DB, rates repository.BonusRepository, log *zap.Logger) *Service {
	return &Service{db: db, rates: rates, log: log.With(zap.String("service", "bonus"))}
}

// SetBonusRate ends the open rate the day before start and opens a new one.
// The percent is clamped to [0, 1].
func (s *Service) SetBonusRate(ctx context.Context, start model.Date, percent float64) (int64, error) {
	if start.IsZero() {
		return 0, model.NewValidationError("start_date", "required")
	}
	percent = model.ClampPercent(percent)

	var id int64
	err := repository.RunInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		open, err := s.rates.GetOpen(ctx, tx)
		if err != nil {
			return err
		}
		if open != nil {
			if !start.After(open.StartDate) {
				return model.NewValidationError("start_date",
					fmt.Sprintf("must be after %s, the start of the open rate", open.StartDate))
			}
			if err := s.rates.CloseOpen(ctx, tx, open.ID, start.AddDays(-1)); err != nil {
				return err
			}
		}

		id, err = s.rates.Insert(ctx, tx, model.BonusRate{Percent: percent, StartDate: start})
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("set bonus rate: %w", err)
	}

	s.log.Info("bonus rate set", zap.String("start", start.String()), zap.Float64("percent", percent))
	return id, nil
}

// RateAt returns the percent valid on d.
func (s *Service) RateAt(ctx context.Context, d model.Date) (float64, error) {
	r, err := s.rates.RateAt(ctx, nil, d)
	if err != nil {
		return 0, err
	}
	return r.Percent, nil
}

func (s *Service) List(ctx context.Context) ([]model.BonusRate, error) {
	return s.rates.List(ctx)
}
