package versions

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmehdipour/worktimer/internal/model"
	"github.com/jmehdipour/worktimer/internal/repository"
	"github.com/jmehdipour/worktimer/internal/util"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type CustomerInput struct {
	Name      string      `json:"name"`
	Wage      float64     `json:"wage"`
	StartDate model.Date  `json:"start_date"`
	ValidFrom *model.Date `json:"valid_from,omitempty"`
	OrgRef    *string     `json:"org_ref,omitempty"`
	Token     *string     `json:"token,omitempty"`
}

func (in *CustomerInput) normalize() error {
	in.Name = util.NormalizeName(in.Name)

	var v model.Validator
	v.Check(in.Name != "", "name", "required")
	v.Check(in.Wage >= 0, "wage", "must not be negative")
	v.Check(!in.StartDate.IsZero(), "start_date", "required")
	return v.Err()
}

// CreateCustomerVersion starts a new version of the named customer. The
// previous version, if any, ends the day before StartDate and hands its
// projects and sort position to the new one.
func (s *Service) CreateCustomerVersion(ctx context.Context, in CustomerInput) (int64, error) {
	if err := in.normalize(); err != nil {
		return 0, err
	}

	validFrom := model.DateOf(s.now().In(s.loc))
	if in.ValidFrom != nil {
		validFrom = *in.ValidFrom
	}
	validFrom = model.MinDate(validFrom, in.StartDate)

	var id int64
	err := repository.RunInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		prev, err := s.latestVersion(ctx, tx, in.Name)
		if err != nil {
			return err
		}

		c := model.CustomerVersion{
			Name:      in.Name,
			Wage:      in.Wage,
			OrgRef:    in.OrgRef,
			Token:     in.Token,
			StartDate: in.StartDate,
			ValidFrom: validFrom,
			IsCurrent: true,
			CreatedAt: s.now(),
		}

		if prev != nil {
			if prev.ValidTo == nil {
				if err := s.customers.CloseVersion(ctx, tx, prev.ID, in.StartDate.AddDays(-1)); err != nil {
					return err
				}
			}
			c.SortOrder = prev.SortOrder
			if c.OrgRef == nil {
				c.OrgRef = prev.OrgRef
			}
			if c.Token == nil {
				c.Token = prev.Token
			}
		} else {
			next, err := s.customers.NextSortOrder(ctx, tx)
			if err != nil {
				return err
			}
			c.SortOrder = next
		}

		id, err = s.customers.Insert(ctx, tx, c)
		if err != nil {
			return err
		}

		if prev != nil {
			if _, err := s.projects.Repoint(ctx, tx, prev.ID, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("create customer version %q: %w", in.Name, err)
	}

	s.log.Info("customer version created", zap.String("customer", in.Name), zap.Int64("id", id))
	return id, nil
}

// latestVersion returns the current version of name, or the newest historical
// one when the customer is disabled. It returns nil for unknown names.
func (s *Service) latestVersion(ctx context.Context, tx *sqlx.Tx, name string) (*model.CustomerVersion, error) {
	cur, err := s.customers.GetCurrent(ctx, tx, name)
	if err == nil {
		return cur, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	history, err := s.customers.History(ctx, tx, name)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, nil
	}
	last := history[len(history)-1]
	return &last, nil
}

type RenameCustomerInput struct {
	Name    string  `json:"name"`
	NewName string  `json:"new_name"`
	OrgRef  *string `json:"org_ref,omitempty"`
	Token   *string `json:"token,omitempty"`
}

// RenameCustomer edits the current version in place. A new name is applied to
// the whole version chain and to the display names stored on time entries.
func (s *Service) RenameCustomer(ctx context.Context, in RenameCustomerInput) error {
	in.Name = util.NormalizeName(in.Name)
	in.NewName = util.NormalizeName(in.NewName)
	if in.NewName == "" {
		in.NewName = in.Name
	}

	err := repository.RunInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		cur, err := s.customers.GetCurrent(ctx, tx, in.Name)
		if err != nil {
			return err
		}

		if err := s.customers.UpdateCredentials(ctx, tx, cur.ID, in.OrgRef, in.Token); err != nil {
			return err
		}
		if in.NewName == in.Name {
			return nil
		}

		_, err = s.customers.GetCurrent(ctx, tx, in.NewName)
		switch {
		case err == nil:
			return fmt.Errorf("customer %q already exists: %w", in.NewName, model.ErrConflict)
		case !errors.Is(err, model.ErrNotFound):
			return err
		}

		if _, err := s.customers.RenameChain(ctx, tx, in.Name, in.NewName); err != nil {
			return err
		}
		_, err = s.entries.RenameCustomer(ctx, tx, in.Name, in.NewName)
		return err
	})
	if err != nil {
		return fmt.Errorf("rename customer %q: %w", in.Name, err)
	}

	s.log.Info("customer updated", zap.String("customer", in.Name), zap.String("new_name", in.NewName))
	return nil
}

// DisableCustomer clears the current flag. Disabling twice is a no-op.
func (s *Service) DisableCustomer(ctx context.Context, name string) error {
	name = util.NormalizeName(name)
	err := repository.RunInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		n, err := s.customers.DisableByName(ctx, tx, name)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		history, err := s.customers.History(ctx, tx, name)
		if err != nil {
			return err
		}
		if len(history) == 0 {
			return fmt.Errorf("customer %q: %w", name, model.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("disable customer: %w", err)
	}
	return nil
}

// EnableCustomer makes the newest open-ended version current again.
func (s *Service) EnableCustomer(ctx context.Context, name string) error {
	name = util.NormalizeName(name)
	err := repository.RunInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		_, err := s.customers.GetCurrent(ctx, tx, name)
		switch {
		case err == nil:
			return fmt.Errorf("customer %q is already enabled: %w", name, model.ErrConflict)
		case !errors.Is(err, model.ErrNotFound):
			return err
		}

		cand, err := s.customers.LatestEnableCandidate(ctx, tx, name)
		if err != nil {
			return err
		}
		return s.customers.MarkCurrent(ctx, tx, cand.ID)
	})
	if err != nil {
		return fmt.Errorf("enable customer: %w", err)
	}
	return nil
}

// SetCustomerSortOrder moves the whole chain of name to position order.
func (s *Service) SetCustomerSortOrder(ctx context.Context, name string, order int) error {
	name = util.NormalizeName(name)
	n, err := s.customers.SetSortOrder(ctx, nil, name, order)
	if err != nil {
		return fmt.Errorf("set sort order: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("customer %q: %w", name, model.ErrNotFound)
	}
	return nil
}

// ListCustomers returns current customers in report order, or every version
// when includeHistory is set.
func (s *Service) ListCustomers(ctx context.Context, includeHistory bool) ([]model.CustomerVersion, error) {
	if includeHistory {
		return s.customers.ListAll(ctx)
	}
	return s.customers.ListCurrent(ctx, nil)
}

// History returns all versions of one customer, oldest first.
func (s *Service) History(ctx context.Context, name string) ([]model.CustomerVersion, error) {
	return s.customers.History(ctx, nil, util.NormalizeName(name))
}
