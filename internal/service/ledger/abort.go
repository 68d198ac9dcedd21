package ledger

import (
	"context"
	"fmt"

	"github.com/jmehdipour/worktimer/internal/metrics"
	"github.com/jmehdipour/worktimer/internal/model"
	"github.com/jmehdipour/worktimer/internal/repository"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Abort discards the running entry of a pair. It is a no-op when nothing runs
// and reports whether an entry was removed.
func (s *Service) Abort(ctx context.Context, customerID, projectID int64) (bool, error) {
	var aborted bool
	err := repository.RunInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := s.customers.GetByID(ctx, tx, customerID); err != nil {
			return err
		}
		if _, err := s.projects.GetByID(ctx, tx, projectID); err != nil {
			return err
		}

		open, err := s.entries.FindOpen(ctx, tx, customerID, projectID)
		if err != nil {
			return fmt.Errorf("find open entry: %w", err)
		}
		if open == nil {
			return nil
		}

		n, err := s.entries.DeleteOpen(ctx, tx, customerID, projectID)
		if err != nil {
			return fmt.Errorf("delete open entry: %w", err)
		}
		if n == 0 {
			return nil
		}
		aborted = true
		return s.publish(ctx, tx, model.EventTimerAborted, *open, s.now())
	})
	if err != nil {
		return false, fmt.Errorf("abort timer: %w", err)
	}

	if aborted {
		metrics.TimerTransitions.WithLabelValues("aborted").Inc()
		s.log.Info("timer aborted", zap.Int64("customer_id", customerID), zap.Int64("project_id", projectID))
	}
	return aborted, nil
}
