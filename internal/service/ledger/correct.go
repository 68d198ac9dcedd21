package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jmehdipour/worktimer/internal/model"
	"github.com/jmehdipour/worktimer/internal/repository"
	"github.com/jmoiron/sqlx"
)

// CorrectionInput holds the fields an operator may change on an existing
// entry. Nil fields are left untouched.
type CorrectionInput struct {
	Start       *time.Time `json:"start_time,omitempty"`
	End         *time.Time `json:"end_time,omitempty"`
	Comment     *string    `json:"comment,omitempty"`
	ExternalRef *int64     `json:"external_ref,omitempty"`
	ProjectID   *int64     `json:"project_id,omitempty"`
}

// Correct applies an administrative correction and recomputes the derived
// columns from the entry's own wage and bonus snapshots.
func (s *Service) Correct(ctx context.Context, id int64, in CorrectionInput) (model.TimeEntry, error) {
	var out model.TimeEntry
	err := repository.RunInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		e, err := s.entries.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}

		if in.ProjectID != nil && *in.ProjectID != e.ProjectID {
			p, err := s.projects.GetByID(ctx, tx, *in.ProjectID)
			if err != nil {
				return err
			}
			e.ProjectID = p.ID
			e.ProjectName = p.Name
		}
		if in.Start != nil {
			e.StartTime = *in.Start
			e.DateKey = s.dayOf(*in.Start).Key()
		}
		if in.Comment != nil {
			e.Comment = in.Comment
		}
		if in.ExternalRef != nil {
			e.ExternalRef = in.ExternalRef
		}

		end := e.EndTime
		if in.End != nil {
			end = in.End
		}
		if end != nil {
			if !end.After(e.StartTime) {
				return model.NewValidationError("end_time", "must be after start_time")
			}
			*e = model.CloseEntry(*e, *end)
		}

		if err := s.entries.Update(ctx, tx, *e); err != nil {
			return err
		}
		out = *e
		return nil
	})
	if err != nil {
		return model.TimeEntry{}, fmt.Errorf("correct entry %d: %w", id, err)
	}
	return out, nil
}
