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

type ProjectInput struct {
	CustomerName string `json:"customer"`
	Name         string `json:"name"`
	ExternalRef  *int64 `json:"external_ref,omitempty"`
}

// CreateProjectVersion adds a project under the current customer version. A
// disabled project of the same name is re-enabled instead.
func (s *Service) CreateProjectVersion(ctx context.Context, in ProjectInput) (int64, error) {
	in.CustomerName = util.NormalizeName(in.CustomerName)
	in.Name = util.NormalizeName(in.Name)

	var v model.Validator
	v.Check(in.CustomerName != "", "customer", "required")
	v.Check(in.Name != "", "name", "required")
	if err := v.Err(); err != nil {
		return 0, err
	}

	var id int64
	err := repository.RunInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		c, err := s.customers.GetCurrent(ctx, tx, in.CustomerName)
		if err != nil {
			return err
		}

		existing, err := s.projects.GetByName(ctx, tx, c.ID, in.Name)
		switch {
		case err == nil && existing.IsCurrent:
			return fmt.Errorf("project %q already exists: %w", in.Name, model.ErrConflict)
		case err == nil:
			id = existing.ID
			if in.ExternalRef != nil {
				if err := s.projects.Update(ctx, tx, id, existing.Name, in.ExternalRef); err != nil {
					return err
				}
			}
			return s.projects.SetCurrent(ctx, tx, id, true)
		case !errors.Is(err, model.ErrNotFound):
			return err
		}

		id, err = s.projects.Insert(ctx, tx, model.ProjectVersion{
			Name:        in.Name,
			CustomerID:  c.ID,
			ExternalRef: in.ExternalRef,
			IsCurrent:   true,
		})
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("create project %q: %w", in.Name, err)
	}

	s.log.Info("project saved", zap.String("customer", in.CustomerName), zap.String("project", in.Name), zap.Int64("id", id))
	return id, nil
}

type RenameProjectInput struct {
	CustomerName string `json:"customer"`
	Name         string `json:"name"`
	NewName      string `json:"new_name"`
	ExternalRef  *int64 `json:"external_ref,omitempty"`
}

// RenameProject edits a project in place and carries the new name onto the
// display names of its time entries.
func (s *Service) RenameProject(ctx context.Context, in RenameProjectInput) error {
	in.CustomerName = util.NormalizeName(in.CustomerName)
	in.Name = util.NormalizeName(in.Name)
	in.NewName = util.NormalizeName(in.NewName)
	if in.NewName == "" {
		in.NewName = in.Name
	}

	err := repository.RunInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		p, err := s.project(ctx, tx, in.CustomerName, in.Name)
		if err != nil {
			return err
		}

		if in.NewName != in.Name {
			_, err := s.projects.GetByName(ctx, tx, p.CustomerID, in.NewName)
			switch {
			case err == nil:
				return fmt.Errorf("project %q already exists: %w", in.NewName, model.ErrConflict)
			case !errors.Is(err, model.ErrNotFound):
				return err
			}
		}

		ref := p.ExternalRef
		if in.ExternalRef != nil {
			ref = in.ExternalRef
		}
		if err := s.projects.Update(ctx, tx, p.ID, in.NewName, ref); err != nil {
			return err
		}
		if in.NewName == in.Name {
			return nil
		}
		_, err = s.entries.RenameProject(ctx, tx, in.CustomerName, in.Name, in.NewName)
		return err
	})
	if err != nil {
		return fmt.Errorf("rename project %q: %w", in.Name, err)
	}
	return nil
}

func (s *Service) DisableProject(ctx context.Context, customerName, name string) error {
	err := repository.RunInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		p, err := s.project(ctx, tx, util.NormalizeName(customerName), util.NormalizeName(name))
		if err != nil {
			return err
		}
		return s.projects.SetCurrent(ctx, tx, p.ID, false)
	})
	if err != nil {
		return fmt.Errorf("disable project: %w", err)
	}
	return nil
}

func (s *Service) EnableProject(ctx context.Context, customerName, name string) error {
	err := repository.RunInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		p, err := s.project(ctx, tx, util.NormalizeName(customerName), util.NormalizeName(name))
		if err != nil {
			return err
		}
		if p.IsCurrent {
			return fmt.Errorf("project %q is already enabled: %w", p.Name, model.ErrConflict)
		}
		return s.projects.SetCurrent(ctx, tx, p.ID, true)
	})
	if err != nil {
		return fmt.Errorf("enable project: %w", err)
	}
	return nil
}

// ListProjects returns every project, current or not, of the customer's
// current version.
func (s *Service) ListProjects(ctx context.Context, customerName string) ([]model.ProjectVersion, error) {
	c, err := s.customers.GetCurrent(ctx, nil, util.NormalizeName(customerName))
	if err != nil {
		return nil, err
	}
	return s.projects.ListByCustomer(ctx, nil, c.ID)
}

func (s *Service) project(ctx context.Context, tx *sqlx.Tx, customerName, name string) (*model.ProjectVersion, error) {
	c, err := s.customers.GetCurrent(ctx, tx, customerName)
	if err != nil {
		return nil, err
	}
	return s.projects.GetByName(ctx, tx, c.ID, name)
}

// Resolve maps current customer and project names to their ids.
func (s *Service) Resolve(ctx context.Context, customerName, projectName string) (customerID, projectID int64, err error) {
	p, err := s.project(ctx, nil, util.NormalizeName(customerName), util.NormalizeName(projectName))
	if err != nil {
		return 0, 0, fmt.Errorf("resolve %s/%s: %w", customerName, projectName, err)
	}
	if !p.IsCurrent {
		return 0, 0, fmt.Errorf("project %q is disabled: %w", p.Name, model.ErrNotFound)
	}
	return p.CustomerID, p.ID, nil
}
