package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmehdipour/worktimer/internal/metrics"
	"github.com/jmehdipour/worktimer/internal/model"
	"github.com/jmehdipour/worktimer/internal/repository"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type ToggleInput struct {
	CustomerID  int64   `json:"customer_id"`
	ProjectID   int64   `json:"project_id"`
	ExternalRef *int64  `json:"external_ref,omitempty"`
	Comment     *string `json:"comment,omitempty"`
}

func (in ToggleInput) validate() error {
	var v model.Validator
	v.Check(in.CustomerID > 0, "customer_id", "required")
	v.Check(in.ProjectID > 0, "project_id", "required")
	return v.Err()
}

type ToggleResult struct {
	State model.TimerState `json:"state"`
	Entry model.TimeEntry  `json:"entry"`
}

// Toggle starts a timer for the pair when none is running, otherwise stops
// the running one. The open-entry lookup and the write share one transaction;
// the close only matches a still-open row and a second concurrent start is
// rejected by the open-entry unique index.
func (s *Service) Toggle(ctx context.Context, in ToggleInput) (ToggleResult, error) {
	if err := in.validate(); err != nil {
		return ToggleResult{}, err
	}

	now := s.now()
	var res ToggleResult
	err := repository.RunInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		customer, err := s.customers.GetByID(ctx, tx, in.CustomerID)
		if err != nil {
			return err
		}
		project, err := s.projects.GetByID(ctx, tx, in.ProjectID)
		if err != nil {
			return err
		}

		open, err := s.entries.FindOpen(ctx, tx, in.CustomerID, in.ProjectID)
		if err != nil {
			return fmt.Errorf("find open entry: %w", err)
		}

		if open == nil {
			res, err = s.start(ctx, tx, *customer, *project, in, now)
		} else {
			res, err = s.stop(ctx, tx, *open, in, now)
		}
		return err
	})
	if err != nil {
		return ToggleResult{}, fmt.Errorf("toggle timer: %w", err)
	}

	transition := "started"
	if res.State == model.TimerIdle {
		transition = "stopped"
	}
	metrics.TimerTransitions.WithLabelValues(transition).Inc()
	s.log.Info("timer toggled",
		zap.String("transition", transition),
		zap.Int64("entry_id", res.Entry.ID),
		zap.String("customer", res.Entry.CustomerName),
		zap.String("project", res.Entry.ProjectName),
	)

	return res, nil
}

func (s *Service) start(ctx context.Context, tx *sqlx.Tx, c model.CustomerVersion, p model.ProjectVersion, in ToggleInput, now time.Time) (ToggleResult, error) {
	day := s.dayOf(now)

	var bonus float64
	rate, err := s.bonus.RateAt(ctx, tx, day)
	switch {
	case err == nil:
		bonus = rate.Percent
	case errors.Is(err, model.ErrNotFound):
		bonus = 0
	default:
		return ToggleResult{}, fmt.Errorf("bonus rate: %w", err)
	}

	e := model.TimeEntry{
		CustomerID:    c.ID,
		ProjectID:     p.ID,
		CustomerName:  c.Name,
		ProjectName:   p.Name,
		DateKey:       day.Key(),
		StartTime:     now,
		WageSnapshot:  c.Wage,
		BonusSnapshot: bonus,
		ExternalRef:   in.ExternalRef,
		Comment:       in.Comment,
	}
	if e.ExternalRef == nil {
		e.ExternalRef = p.ExternalRef
	}

	id, err := s.entries.Insert(ctx, tx, e)
	if err != nil {
		return ToggleResult{}, fmt.Errorf("insert entry: %w", err)
	}
	e.ID = id

	if err := s.publish(ctx, tx, model.EventTimerStarted, e, now); err != nil {
		return ToggleResult{}, err
	}
	return ToggleResult{State: model.TimerRunning, Entry: e}, nil
}

func (s *Service) stop(ctx context.Context, tx *sqlx.Tx, open model.TimeEntry, in ToggleInput, now time.Time) (ToggleResult, error) {
	if now.Before(open.StartTime) {
		return ToggleResult{}, model.NewValidationError("end_time", "before start_time")
	}

	e := model.CloseEntry(open, now)
	if in.Comment != nil {
		e.Comment = in.Comment
	}
	if in.ExternalRef != nil {
		e.ExternalRef = in.ExternalRef
	}

	ok, err := s.entries.Close(ctx, tx, e)
	if err != nil {
		return ToggleResult{}, fmt.Errorf("close entry: %w", err)
	}
	if !ok {
		return ToggleResult{}, fmt.Errorf("entry %d closed concurrently: %w", e.ID, model.ErrConflict)
	}

	if err := s.publish(ctx, tx, model.EventTimerStopped, e, now); err != nil {
		return ToggleResult{}, err
	}
	return ToggleResult{State: model.TimerIdle, Entry: e}, nil
}
